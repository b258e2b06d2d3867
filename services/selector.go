package services

import (
	"math"
	"math/rand"
	"sort"

	"studybuddy/apperrors"
	"studybuddy/models"
	"studybuddy/repository"
)

// TierOrder is the declaration order of difficulty tiers. It breaks
// allocation ties and fixes the interleaving order.
var TierOrder = []string{"easy", "medium", "hard"}

// Relaxation records which constraint the fallback ladder had to drop.
type Relaxation string

const (
	RelaxNone     Relaxation = ""
	RelaxSubtopic Relaxation = "subtopic_relaxed"
	RelaxTopic    Relaxation = "topic_relaxed"
	RelaxSeen     Relaxation = "seen_allowed"
)

type SelectionInput struct {
	ChildID  uint
	Subject  string
	Topic    string
	Subtopic string
	Grade    *int
	Count    int
	Mix      models.DifficultyMix
	Rand     *rand.Rand
}

type SelectionResult struct {
	Questions  []models.Question
	Relaxation Relaxation
}

// Selector chooses quiz question sets. It performs read-only catalog queries
// and holds no lock; recording seen questions is the caller's business.
type Selector struct {
	Repo repository.Repository
}

func NewSelector(repo repository.Repository) *Selector {
	return &Selector{Repo: repo}
}

// AllocateTierCounts converts mix proportions into per-tier integer counts
// that sum exactly to total, by largest-remainder allocation. Fractional ties
// break in tier declaration order.
func AllocateTierCounts(total int, mix models.DifficultyMix) map[string]int {
	proportions := map[string]float64{
		"easy":   mix.Easy,
		"medium": mix.Medium,
		"hard":   mix.Hard,
	}

	type remainder struct {
		tier string
		frac float64
	}

	counts := make(map[string]int, len(TierOrder))
	remainders := make([]remainder, 0, len(TierOrder))
	assigned := 0
	for _, tier := range TierOrder {
		exact := float64(total) * proportions[tier]
		floor := int(math.Floor(exact + 1e-9))
		counts[tier] = floor
		assigned += floor
		remainders = append(remainders, remainder{tier: tier, frac: exact - float64(floor)})
	}

	// Stable sort keeps declaration order for equal fractional parts.
	sort.SliceStable(remainders, func(i, j int) bool {
		return remainders[i].frac > remainders[j].frac
	})
	for i := 0; i < total-assigned; i++ {
		counts[remainders[i%len(remainders)].tier]++
	}
	return counts
}

// Select builds an ordered question set honoring the difficulty mix and the
// child's seen-question history. When the strict pool runs short it relaxes
// constraints in a fixed ladder: drop subtopic, drop topic, allow seen. The
// result is deterministic for a fixed Rand seed. A short result is returned
// together with an insufficient-pool error, never silently truncated.
func (s *Selector) Select(input SelectionInput) (*SelectionResult, error) {
	counts := AllocateTierCounts(input.Count, input.Mix)

	seenList, err := s.Repo.ListSeenHashes(input.ChildID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(seenList))
	for _, hash := range seenList {
		seen[hash] = true
	}

	chosen := make(map[string]bool)
	relaxation := RelaxNone
	perTier := make(map[string][]models.Question, len(TierOrder))

	for _, tier := range TierOrder {
		target := counts[tier]
		if target == 0 {
			continue
		}

		selected, applied, err := s.fillTier(input, tier, target, seen, chosen)
		if err != nil {
			return nil, err
		}
		if relaxDepth(applied) > relaxDepth(relaxation) {
			relaxation = applied
		}
		perTier[tier] = selected
	}

	// Shuffle within each tier, then interleave tiers round-robin so the
	// quiz does not run easiest-to-hardest in a block.
	ordered := make([]models.Question, 0, input.Count)
	for _, tier := range TierOrder {
		questions := perTier[tier]
		input.Rand.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}
	for round := 0; len(ordered) < input.Count; round++ {
		progressed := false
		for _, tier := range TierOrder {
			if round < len(perTier[tier]) {
				ordered = append(ordered, perTier[tier][round])
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	result := &SelectionResult{Questions: ordered, Relaxation: relaxation}
	if len(ordered) < input.Count {
		return result, apperrors.Newf(apperrors.KindInsufficientPool,
			"insufficient questions available: needed %d, only found %d", input.Count, len(ordered))
	}
	return result, nil
}

func relaxDepth(r Relaxation) int {
	switch r {
	case RelaxSubtopic:
		return 1
	case RelaxTopic:
		return 2
	case RelaxSeen:
		return 3
	}
	return 0
}

// fillTier draws up to target questions of one difficulty, walking the
// fallback ladder only as far as needed.
func (s *Selector) fillTier(input SelectionInput, tier string, target int, seen, chosen map[string]bool) ([]models.Question, Relaxation, error) {
	filters := []struct {
		filter     repository.QuestionFilter
		allowSeen  bool
		relaxation Relaxation
	}{
		{repository.QuestionFilter{Subject: input.Subject, Grade: input.Grade, Topic: input.Topic, Subtopic: input.Subtopic, Difficulty: tier}, false, RelaxNone},
		{repository.QuestionFilter{Subject: input.Subject, Grade: input.Grade, Topic: input.Topic, Difficulty: tier}, false, RelaxSubtopic},
		{repository.QuestionFilter{Subject: input.Subject, Grade: input.Grade, Difficulty: tier}, false, RelaxTopic},
		{repository.QuestionFilter{Subject: input.Subject, Grade: input.Grade, Difficulty: tier}, true, RelaxSeen},
	}

	var selected []models.Question
	applied := RelaxNone
	for _, step := range filters {
		if len(selected) >= target {
			break
		}
		// The subtopic rung is meaningless when no subtopic was requested.
		if step.relaxation == RelaxSubtopic && input.Subtopic == "" {
			continue
		}

		candidates, err := s.Repo.ListQuestions(step.filter)
		if err != nil {
			return nil, applied, err
		}
		// Randomize the draw so repeated quizzes do not replay the catalog
		// in insertion order.
		input.Rand.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		added := false
		for _, question := range candidates {
			if len(selected) >= target {
				break
			}
			if chosen[question.Hash] {
				continue
			}
			if !step.allowSeen && seen[question.Hash] {
				continue
			}
			chosen[question.Hash] = true
			selected = append(selected, question)
			added = true
		}
		if added && relaxDepth(step.relaxation) > relaxDepth(applied) {
			applied = step.relaxation
		}
	}
	return selected, applied, nil
}
