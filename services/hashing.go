package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

type questionDigest struct {
	Answer  string   `json:"answer"`
	Options []string `json:"options"`
	Stem    string   `json:"stem"`
}

// HashQuestion returns a stable content hash over stem, options and answer.
// The hash is the uniqueness key for questions across ingestion runs.
func HashQuestion(stem string, options []string, answer string) string {
	if options == nil {
		options = []string{}
	}
	payload, _ := json.Marshal(questionDigest{Answer: answer, Options: options, Stem: stem})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
