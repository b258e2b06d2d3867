package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studybuddy/apperrors"
	"studybuddy/config"
	"studybuddy/models"
	"studybuddy/repository"
)

type quizFixture struct {
	repo *repository.MemoryRepository
	svc  *QuizService
	now  time.Time
}

func newQuizFixture(t *testing.T) *quizFixture {
	t.Helper()
	repo := repository.NewMemoryRepository()
	repo.AddChild(&models.Child{UserID: 1, Name: "Sam"})

	cfg := &config.Config{
		MinDurationSec:   300,
		MaxDurationSec:   7200,
		MinQuestionCount: 5,
		MaxQuestionCount: 30,
	}

	fixture := &quizFixture{
		repo: repo,
		now:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	svc := NewQuizService(repo, cfg)
	svc.Now = func() time.Time { return fixture.now }
	svc.Seed = func() int64 { return 42 }
	fixture.svc = svc
	return fixture
}

func (f *quizFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *quizFixture) seedPool(t *testing.T) {
	seedQuestions(t, f.repo, 10, "math", "multiplication", "", "easy")
	seedQuestions(t, f.repo, 10, "math", "multiplication", "", "medium")
	seedQuestions(t, f.repo, 10, "math", "multiplication", "", "hard")
}

func (f *quizFixture) createQuiz(t *testing.T) *models.QuizSessionResponse {
	t.Helper()
	response, err := f.svc.Create(CreateQuizInput{
		ChildID:       1,
		Subject:       "math",
		Topic:         "multiplication",
		QuestionCount: 10,
		DurationSec:   600,
	})
	require.NoError(t, err)
	return response
}

// answersFor builds a full correct answer set; the seeded pool always has
// correct choice "a".
func answersFor(response *models.QuizSessionResponse) []models.QuizAnswer {
	answers := make([]models.QuizAnswer, 0, len(response.Questions))
	for _, question := range response.Questions {
		answers = append(answers, models.QuizAnswer{QuestionID: question.ID, SelectedChoice: "a"})
	}
	return answers
}

func TestCreateQuizDurationBounds(t *testing.T) {
	fixture := newQuizFixture(t)
	fixture.seedPool(t)

	tests := []struct {
		durationSec int
		accepted    bool
	}{
		{299, false},
		{300, true},
		{7200, true},
		{7201, false},
	}
	for _, tt := range tests {
		_, err := fixture.svc.Create(CreateQuizInput{
			ChildID:       1,
			Subject:       "math",
			Topic:         "multiplication",
			QuestionCount: 10,
			DurationSec:   tt.durationSec,
		})
		if tt.accepted {
			assert.NoErrorf(t, err, "duration_sec=%d", tt.durationSec)
			// Clear the active session so the next case is not a conflict.
			active, findErr := fixture.repo.FindActiveQuizSession(1, "math", "multiplication")
			require.NoError(t, findErr)
			_, expErr := fixture.repo.ExpireQuizSession(active.ID)
			require.NoError(t, expErr)
		} else {
			assert.Equalf(t, apperrors.KindValidation, apperrors.KindOf(err), "duration_sec=%d", tt.durationSec)
		}
	}
}

func TestCreateQuizQuestionCountBounds(t *testing.T) {
	fixture := newQuizFixture(t)
	fixture.seedPool(t)

	for _, count := range []int{4, 31} {
		_, err := fixture.svc.Create(CreateQuizInput{
			ChildID:       1,
			Subject:       "math",
			Topic:         "multiplication",
			QuestionCount: count,
			DurationSec:   600,
		})
		assert.Equalf(t, apperrors.KindValidation, apperrors.KindOf(err), "question_count=%d", count)
	}
}

func TestCreateQuizMixMustSumToOne(t *testing.T) {
	fixture := newQuizFixture(t)
	fixture.seedPool(t)

	_, err := fixture.svc.Create(CreateQuizInput{
		ChildID:       1,
		Subject:       "math",
		Topic:         "multiplication",
		QuestionCount: 10,
		DurationSec:   600,
		DifficultyMix: &models.DifficultyMix{Easy: 0.5, Medium: 0.5, Hard: 0.5},
	})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestCreateQuizUnknownChild(t *testing.T) {
	fixture := newQuizFixture(t)
	fixture.seedPool(t)

	_, err := fixture.svc.Create(CreateQuizInput{
		ChildID:       999,
		Subject:       "math",
		Topic:         "multiplication",
		QuestionCount: 10,
		DurationSec:   600,
	})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestCreateQuizInsufficientPool(t *testing.T) {
	fixture := newQuizFixture(t)
	seedQuestions(t, fixture.repo, 2, "math", "multiplication", "", "easy")

	_, err := fixture.svc.Create(CreateQuizInput{
		ChildID:       1,
		Subject:       "math",
		Topic:         "multiplication",
		QuestionCount: 10,
		DurationSec:   600,
	})
	assert.Equal(t, apperrors.KindInsufficientPool, apperrors.KindOf(err))

	// Nothing was persisted for the failed create.
	sessions, total, listErr := fixture.repo.ListQuizSessions(1, 10, 0)
	require.NoError(t, listErr)
	assert.Empty(t, sessions)
	assert.Zero(t, total)
}

func TestCreateQuizConflictOnDuplicateActive(t *testing.T) {
	fixture := newQuizFixture(t)
	fixture.seedPool(t)
	fixture.createQuiz(t)

	_, err := fixture.svc.Create(CreateQuizInput{
		ChildID:       1,
		Subject:       "math",
		Topic:         "multiplication",
		QuestionCount: 10,
		DurationSec:   600,
	})
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestCreateQuizPersistsOrderedQuestionsAndMarksSeen(t *testing.T) {
	fixture := newQuizFixture(t)
	fixture.seedPool(t)

	response := fixture.createQuiz(t)
	require.Equal(t, models.StatusActive, response.Session.Status)
	require.Len(t, response.Questions, 10)
	assert.Equal(t, 600, response.TimeRemainingSec)

	views, err := fixture.repo.ListQuizSessionQuestions(response.Session.ID)
	require.NoError(t, err)
	require.Len(t, views, 10)
	for i, view := range views {
		// Positions are 0-based and contiguous.
		assert.Equal(t, i, view.Position)
		// Captured at selection time.
		assert.Equal(t, "a", view.CorrectChoice)
		assert.Equal(t, "because", view.Explanation)
		assert.Nil(t, view.SelectedChoice)
		assert.Nil(t, view.IsCorrect)
	}

	seen, err := fixture.repo.ListSeenHashes(1)
	require.NoError(t, err)
	assert.Len(t, seen, 10)
}

func TestSubmitQuizGradesAndCompletes(t *testing.T) {
	fixture := newQuizFixture(t)
	fixture.seedPool(t)
	response := fixture.createQuiz(t)

	fixture.advance(2 * time.Minute)
	result, err := fixture.svc.Submit(response.Session.ID, answersFor(response))
	require.NoError(t, err)

	assert.Equal(t, 100, result.Score)
	assert.Equal(t, 10, result.CorrectCount)
	assert.Equal(t, 120, result.TimeTakenSec)

	session, err := fixture.repo.GetQuizSession(response.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, session.Status)
	require.NotNil(t, session.Score)
	assert.Equal(t, 100, *session.Score)
	require.NotNil(t, session.SubmittedAt)
}

func TestSubmitQuizPartialAnswers(t *testing.T) {
	fixture := newQuizFixture(t)
	fixture.seedPool(t)
	response := fixture.createQuiz(t)

	// Answer only 4 of 10 correctly; the rest are unanswered and count
	// as incorrect.
	answers := answersFor(response)[:4]
	result, err := fixture.svc.Submit(response.Session.ID, answers)
	require.NoError(t, err)

	assert.Equal(t, 4, result.CorrectCount)
	assert.Equal(t, 6, result.Unanswered)
	assert.Equal(t, 40, result.Score)
}

func TestDoubleSubmitLosesInvalidState(t *testing.T) {
	fixture := newQuizFixture(t)
	fixture.seedPool(t)
	response := fixture.createQuiz(t)

	_, err := fixture.svc.Submit(response.Session.ID, answersFor(response))
	require.NoError(t, err)

	_, err = fixture.svc.Submit(response.Session.ID, answersFor(response))
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	// The first result stands.
	session, getErr := fixture.repo.GetQuizSession(response.Session.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.StatusCompleted, session.Status)
}

func TestSubmitAfterDurationExpires(t *testing.T) {
	fixture := newQuizFixture(t)
	fixture.seedPool(t)
	response := fixture.createQuiz(t)

	fixture.advance(601 * time.Second)
	_, err := fixture.svc.Submit(response.Session.ID, answersFor(response))
	assert.Equal(t, apperrors.KindExpired, apperrors.KindOf(err))

	// The session is observed expired afterwards, never active.
	session, getErr := fixture.repo.GetQuizSession(response.Session.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.StatusExpired, session.Status)
	assert.Nil(t, session.Score)
}

func TestGetQuizLazilyExpires(t *testing.T) {
	fixture := newQuizFixture(t)
	fixture.seedPool(t)
	response := fixture.createQuiz(t)

	fixture.advance(10 * time.Minute)
	got, results, err := fixture.svc.Get(response.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Session.Status)
	assert.Equal(t, 0, got.TimeRemainingSec)
	// Terminal sessions reveal the graded items (here all unanswered).
	assert.Len(t, results, 10)
}

func TestGetQuizHidesAnswersWhileActive(t *testing.T) {
	fixture := newQuizFixture(t)
	fixture.seedPool(t)
	response := fixture.createQuiz(t)

	got, results, err := fixture.svc.Get(response.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Session.Status)
	assert.Nil(t, results)
	assert.Len(t, got.Questions, 10)
}

func TestExpireEndpointIsTerminalOnce(t *testing.T) {
	fixture := newQuizFixture(t)
	fixture.seedPool(t)
	response := fixture.createQuiz(t)

	expired, err := fixture.svc.Expire(response.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, expired.Status)

	// Terminal states never change again.
	_, err = fixture.svc.Expire(response.Session.ID)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	_, err = fixture.svc.Submit(response.Session.ID, nil)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
}

func TestSubmitUnknownSession(t *testing.T) {
	fixture := newQuizFixture(t)
	_, err := fixture.svc.Submit(4242, nil)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestListQuizSessionsPagination(t *testing.T) {
	fixture := newQuizFixture(t)
	fixture.seedPool(t)

	for i := 0; i < 3; i++ {
		response := fixture.createQuiz(t)
		_, err := fixture.svc.Expire(response.Session.ID)
		require.NoError(t, err)
		fixture.advance(time.Minute)
	}

	sessions, total, err := fixture.svc.List(1, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, sessions, 2)
	// Newest first.
	assert.True(t, sessions[0].StartedAt.After(sessions[1].StartedAt))

	sessions, _, err = fixture.svc.List(1, 2, 2)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}
