package services

import "strings"

// Subject, topic and subtopic tags are stored and queried in lowercase;
// question content (stems, options, answers) keeps its original case.

func NormalizeTag(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// ToDisplayCase formats a normalized tag for display (Title Case).
func ToDisplayCase(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	words := strings.Fields(value)
	for i, word := range words {
		words[i] = titleWord(word)
	}
	return strings.Join(words, " ")
}

func titleWord(word string) string {
	// Capitalize after hyphens too: "single-digit" -> "Single-Digit".
	parts := strings.Split(word, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
	}
	return strings.Join(parts, "-")
}
