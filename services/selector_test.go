package services

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studybuddy/apperrors"
	"studybuddy/models"
	"studybuddy/repository"
)

func seedQuestions(t *testing.T, repo *repository.MemoryRepository, count int, subject, topic, subtopic, difficulty string) []models.Question {
	t.Helper()
	questions := make([]models.Question, 0, count)
	for i := 0; i < count; i++ {
		stem := fmt.Sprintf("%s/%s/%s %s question %d", subject, topic, subtopic, difficulty, i)
		questions = append(questions, models.Question{
			Subject:       subject,
			Topic:         topic,
			SubTopic:      subtopic,
			Difficulty:    difficulty,
			Stem:          stem,
			Options:       `["a","b","c","d"]`,
			CorrectAnswer: "a",
			Rationale:     "because",
			Source:        "seeded",
			Hash:          HashQuestion(stem, []string{"a", "b", "c", "d"}, "a"),
		})
	}
	inserted, err := repo.InsertQuestions(questions)
	require.NoError(t, err)
	require.Equal(t, count, inserted)
	return questions
}

func TestAllocateTierCounts(t *testing.T) {
	tests := []struct {
		name  string
		total int
		mix   models.DifficultyMix
		want  map[string]int
	}{
		{"default mix of 10", 10, models.DifficultyMix{Easy: 0.3, Medium: 0.5, Hard: 0.2}, map[string]int{"easy": 3, "medium": 5, "hard": 2}},
		{"remainder goes to largest fraction", 7, models.DifficultyMix{Easy: 0.3, Medium: 0.5, Hard: 0.2}, map[string]int{"easy": 2, "medium": 4, "hard": 1}},
		{"two remainders", 13, models.DifficultyMix{Easy: 0.3, Medium: 0.5, Hard: 0.2}, map[string]int{"easy": 4, "medium": 6, "hard": 3}},
		{"tie breaks in tier order", 6, models.DifficultyMix{Easy: 0.5, Medium: 0.25, Hard: 0.25}, map[string]int{"easy": 3, "medium": 2, "hard": 1}},
		{"single tier", 5, models.DifficultyMix{Easy: 0, Medium: 1, Hard: 0}, map[string]int{"easy": 0, "medium": 5, "hard": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AllocateTierCounts(tt.total, tt.mix))
		})
	}
}

func TestAllocateTierCountsAlwaysSumsToTotal(t *testing.T) {
	mixes := []models.DifficultyMix{
		{Easy: 0.3, Medium: 0.5, Hard: 0.2},
		{Easy: 0.2, Medium: 0.2, Hard: 0.6},
		{Easy: 1.0 / 3, Medium: 1.0 / 3, Hard: 1.0 / 3},
		{Easy: 0.45, Medium: 0.45, Hard: 0.1},
		{Easy: 1, Medium: 0, Hard: 0},
	}
	for _, mix := range mixes {
		for total := 5; total <= 30; total++ {
			counts := AllocateTierCounts(total, mix)
			sum := counts["easy"] + counts["medium"] + counts["hard"]
			assert.Equalf(t, total, sum, "mix %+v total %d", mix, total)
		}
	}
}

func newTestSelector(repo *repository.MemoryRepository) *Selector {
	return NewSelector(repo)
}

func TestSelectHonorsDifficultyMix(t *testing.T) {
	repo := repository.NewMemoryRepository()
	seedQuestions(t, repo, 20, "math", "multiplication", "", "easy")
	seedQuestions(t, repo, 20, "math", "multiplication", "", "medium")
	seedQuestions(t, repo, 20, "math", "multiplication", "", "hard")

	result, err := newTestSelector(repo).Select(SelectionInput{
		ChildID: 1,
		Subject: "math",
		Topic:   "multiplication",
		Count:   10,
		Mix:     models.DifficultyMix{Easy: 0.3, Medium: 0.5, Hard: 0.2},
		Rand:    rand.New(rand.NewSource(42)),
	})
	require.NoError(t, err)
	require.Len(t, result.Questions, 10)
	assert.Equal(t, Relaxation(""), result.Relaxation)

	byTier := map[string]int{}
	for _, question := range result.Questions {
		byTier[question.Difficulty]++
	}
	assert.Equal(t, 3, byTier["easy"])
	assert.Equal(t, 5, byTier["medium"])
	assert.Equal(t, 2, byTier["hard"])
}

func TestSelectNoDuplicates(t *testing.T) {
	repo := repository.NewMemoryRepository()
	seedQuestions(t, repo, 30, "math", "fractions", "", "easy")
	seedQuestions(t, repo, 30, "math", "fractions", "", "medium")
	seedQuestions(t, repo, 30, "math", "fractions", "", "hard")

	result, err := newTestSelector(repo).Select(SelectionInput{
		ChildID: 1,
		Subject: "math",
		Topic:   "fractions",
		Count:   30,
		Mix:     models.DefaultDifficultyMix(),
		Rand:    rand.New(rand.NewSource(7)),
	})
	require.NoError(t, err)

	hashes := map[string]bool{}
	for _, question := range result.Questions {
		assert.False(t, hashes[question.Hash], "duplicate question %s", question.Stem)
		hashes[question.Hash] = true
	}
}

func TestSelectDeterministicUnderFixedSeed(t *testing.T) {
	repo := repository.NewMemoryRepository()
	seedQuestions(t, repo, 15, "math", "addition", "", "easy")
	seedQuestions(t, repo, 15, "math", "addition", "", "medium")
	seedQuestions(t, repo, 15, "math", "addition", "", "hard")

	input := SelectionInput{
		ChildID: 1,
		Subject: "math",
		Topic:   "addition",
		Count:   10,
		Mix:     models.DefaultDifficultyMix(),
	}

	input.Rand = rand.New(rand.NewSource(99))
	first, err := newTestSelector(repo).Select(input)
	require.NoError(t, err)

	input.Rand = rand.New(rand.NewSource(99))
	second, err := newTestSelector(repo).Select(input)
	require.NoError(t, err)

	require.Len(t, second.Questions, len(first.Questions))
	for i := range first.Questions {
		assert.Equal(t, first.Questions[i].ID, second.Questions[i].ID)
	}
}

func TestSelectExcludesSeenQuestions(t *testing.T) {
	repo := repository.NewMemoryRepository()
	easy := seedQuestions(t, repo, 10, "math", "division", "", "easy")
	seedQuestions(t, repo, 10, "math", "division", "", "medium")
	seedQuestions(t, repo, 10, "math", "division", "", "hard")

	// Mark half the easy pool seen; enough unseen remains, so none of the
	// seen questions may appear.
	seenHashes := map[string]bool{}
	for _, question := range easy[:5] {
		seenHashes[question.Hash] = true
	}
	require.NoError(t, repo.MarkSeen(1, keys(seenHashes)))

	result, err := newTestSelector(repo).Select(SelectionInput{
		ChildID: 1,
		Subject: "math",
		Topic:   "division",
		Count:   10,
		Mix:     models.DefaultDifficultyMix(),
		Rand:    rand.New(rand.NewSource(3)),
	})
	require.NoError(t, err)
	assert.Equal(t, Relaxation(""), result.Relaxation)
	for _, question := range result.Questions {
		assert.False(t, seenHashes[question.Hash], "seen question selected without relaxation")
	}
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	return out
}

func TestSelectRelaxesSubtopicThenTopic(t *testing.T) {
	repo := repository.NewMemoryRepository()
	// Only 2 questions per tier carry the requested subtopic; the rest of
	// the topic pool fills the gap.
	seedQuestions(t, repo, 2, "math", "multiplication", "arrays", "easy")
	seedQuestions(t, repo, 8, "math", "multiplication", "", "easy")
	seedQuestions(t, repo, 10, "math", "multiplication", "", "medium")
	seedQuestions(t, repo, 10, "math", "multiplication", "", "hard")

	result, err := newTestSelector(repo).Select(SelectionInput{
		ChildID:  1,
		Subject:  "math",
		Topic:    "multiplication",
		Subtopic: "arrays",
		Count:    10,
		Mix:      models.DefaultDifficultyMix(),
		Rand:     rand.New(rand.NewSource(5)),
	})
	require.NoError(t, err)
	assert.Equal(t, RelaxSubtopic, result.Relaxation)
	assert.Len(t, result.Questions, 10)

	// Drain the topic as well: only the wider subject pool can satisfy it.
	repo2 := repository.NewMemoryRepository()
	seedQuestions(t, repo2, 1, "math", "multiplication", "", "easy")
	seedQuestions(t, repo2, 1, "math", "multiplication", "", "medium")
	seedQuestions(t, repo2, 10, "math", "geometry", "", "easy")
	seedQuestions(t, repo2, 10, "math", "geometry", "", "medium")
	seedQuestions(t, repo2, 10, "math", "geometry", "", "hard")

	result, err = newTestSelector(repo2).Select(SelectionInput{
		ChildID: 1,
		Subject: "math",
		Topic:   "multiplication",
		Count:   10,
		Mix:     models.DefaultDifficultyMix(),
		Rand:    rand.New(rand.NewSource(5)),
	})
	require.NoError(t, err)
	assert.Equal(t, RelaxTopic, result.Relaxation)
	assert.Len(t, result.Questions, 10)
}

func TestSelectAllowsSeenAsLastResort(t *testing.T) {
	repo := repository.NewMemoryRepository()
	easy := seedQuestions(t, repo, 3, "math", "counting", "", "easy")
	medium := seedQuestions(t, repo, 5, "math", "counting", "", "medium")
	hard := seedQuestions(t, repo, 2, "math", "counting", "", "hard")

	// The child has seen every question in the corpus.
	var all []string
	for _, group := range [][]models.Question{easy, medium, hard} {
		for _, question := range group {
			all = append(all, question.Hash)
		}
	}
	require.NoError(t, repo.MarkSeen(1, all))

	result, err := newTestSelector(repo).Select(SelectionInput{
		ChildID: 1,
		Subject: "math",
		Topic:   "counting",
		Count:   10,
		Mix:     models.DefaultDifficultyMix(),
		Rand:    rand.New(rand.NewSource(11)),
	})
	require.NoError(t, err)
	assert.Equal(t, RelaxSeen, result.Relaxation)
	assert.Len(t, result.Questions, 10)
}

func TestSelectSignalsExhaustedCorpus(t *testing.T) {
	repo := repository.NewMemoryRepository()
	seedQuestions(t, repo, 2, "math", "counting", "", "easy")
	seedQuestions(t, repo, 2, "math", "counting", "", "medium")

	result, err := newTestSelector(repo).Select(SelectionInput{
		ChildID: 1,
		Subject: "math",
		Topic:   "counting",
		Count:   10,
		Mix:     models.DefaultDifficultyMix(),
		Rand:    rand.New(rand.NewSource(1)),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInsufficientPool, apperrors.KindOf(err))
	// Short result is returned alongside the error, never silently truncated.
	assert.Len(t, result.Questions, 4)
}
