package services

import (
	"math"
	"math/rand"
	"time"

	"studybuddy/apperrors"
	"studybuddy/config"
	"studybuddy/models"
	"studybuddy/repository"
)

// QuizService owns the quiz session state machine: active is the only
// initial state, completed and expired are terminal. Every transition is a
// conditional update keyed on the current status, so concurrent submits (or
// a submit racing an expire) resolve to exactly one winner.
type QuizService struct {
	Repo     repository.Repository
	Cfg      *config.Config
	Selector *Selector

	// Now and Seed are injectable for tests.
	Now  func() time.Time
	Seed func() int64
}

func NewQuizService(repo repository.Repository, cfg *config.Config) *QuizService {
	return &QuizService{
		Repo:     repo,
		Cfg:      cfg,
		Selector: NewSelector(repo),
		Now:      func() time.Time { return time.Now().UTC() },
		Seed:     func() int64 { return time.Now().UnixNano() },
	}
}

type CreateQuizInput struct {
	ChildID       uint
	Subject       string
	Topic         string
	Subtopic      string
	QuestionCount int
	DurationSec   int
	DifficultyMix *models.DifficultyMix
}

func (s *QuizService) validateCreate(input *CreateQuizInput) error {
	if input.DurationSec < s.Cfg.MinDurationSec || input.DurationSec > s.Cfg.MaxDurationSec {
		return apperrors.Newf(apperrors.KindValidation,
			"duration_sec must be between %d and %d", s.Cfg.MinDurationSec, s.Cfg.MaxDurationSec)
	}
	if input.QuestionCount < s.Cfg.MinQuestionCount || input.QuestionCount > s.Cfg.MaxQuestionCount {
		return apperrors.Newf(apperrors.KindValidation,
			"question_count must be between %d and %d", s.Cfg.MinQuestionCount, s.Cfg.MaxQuestionCount)
	}
	if input.Subject == "" || input.Topic == "" {
		return apperrors.New(apperrors.KindValidation, "subject and topic are required")
	}
	if input.DifficultyMix != nil {
		mix := input.DifficultyMix
		for _, proportion := range []float64{mix.Easy, mix.Medium, mix.Hard} {
			if proportion < 0 || proportion > 1 {
				return apperrors.New(apperrors.KindValidation, "difficulty mix proportions must lie in [0, 1]")
			}
		}
		total := mix.Easy + mix.Medium + mix.Hard
		if math.Abs(total-1.0) > 0.01 {
			return apperrors.New(apperrors.KindValidation, "difficulty mix proportions must sum to 1.0")
		}
	}
	return nil
}

// Create validates bounds, selects the question set and persists the session
// plus all of its question rows in a single atomic write.
func (s *QuizService) Create(input CreateQuizInput) (*models.QuizSessionResponse, error) {
	input.Subject = NormalizeTag(input.Subject)
	input.Topic = NormalizeTag(input.Topic)
	input.Subtopic = NormalizeTag(input.Subtopic)

	if err := s.validateCreate(&input); err != nil {
		return nil, err
	}

	child, err := s.Repo.GetChild(input.ChildID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "child not found")
	}

	active, err := s.Repo.FindActiveQuizSession(input.ChildID, input.Subject, input.Topic)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, apperrors.Newf(apperrors.KindConflict,
			"active quiz already exists for this child/subject/topic: %d", active.ID)
	}

	mix := models.DefaultDifficultyMix()
	if input.DifficultyMix != nil {
		mix = *input.DifficultyMix
	}

	selection, err := s.Selector.Select(SelectionInput{
		ChildID:  input.ChildID,
		Subject:  input.Subject,
		Topic:    input.Topic,
		Subtopic: input.Subtopic,
		Grade:    child.Grade,
		Count:    input.QuestionCount,
		Mix:      mix,
		Rand:     rand.New(rand.NewSource(s.Seed())),
	})
	if err != nil {
		return nil, err
	}

	now := s.Now()
	session := &models.QuizSession{
		ChildID:        input.ChildID,
		Subject:        input.Subject,
		Topic:          input.Topic,
		Subtopic:       input.Subtopic,
		Status:         models.StatusActive,
		DurationSec:    input.DurationSec,
		DifficultyMix:  mix,
		StartedAt:      now,
		TotalQuestions: input.QuestionCount,
	}

	rows := make([]models.QuizSessionQuestion, 0, len(selection.Questions))
	hashes := make([]string, 0, len(selection.Questions))
	for i, question := range selection.Questions {
		rows = append(rows, models.QuizSessionQuestion{
			QuestionID:    question.ID,
			Position:      i,
			CorrectChoice: question.CorrectAnswer,
			Explanation:   question.Rationale,
		})
		hashes = append(hashes, question.Hash)
	}

	if err := s.Repo.CreateQuizSession(session, rows); err != nil {
		return nil, err
	}

	// Serving the questions makes them "seen"; the upsert is idempotent so
	// a retry after a partial failure is harmless.
	if err := s.Repo.MarkSeen(input.ChildID, hashes); err != nil {
		return nil, err
	}

	return &models.QuizSessionResponse{
		Session:          session,
		Questions:        questionDisplays(selection.Questions),
		TimeRemainingSec: input.DurationSec,
		Relaxation:       string(selection.Relaxation),
	}, nil
}

func questionDisplays(questions []models.Question) []models.QuestionDisplay {
	displays := make([]models.QuestionDisplay, 0, len(questions))
	for i, question := range questions {
		displays = append(displays, models.QuestionDisplay{
			ID:         question.ID,
			Index:      i,
			Stem:       question.Stem,
			Options:    question.OptionList(),
			Difficulty: question.Difficulty,
			Subject:    question.Subject,
			Topic:      question.Topic,
		})
	}
	return displays
}

// Get returns the session with remaining time and its question set. Answers
// stay hidden while the session is active; terminal sessions reveal the
// graded items. An overdue active session is expired lazily here.
func (s *QuizService) Get(sessionID uint) (*models.QuizSessionResponse, []models.QuizItemResult, error) {
	session, err := s.loadSession(sessionID)
	if err != nil {
		return nil, nil, err
	}

	now := s.Now()
	if session.Status == models.StatusActive && session.ExpiredBy(now) {
		if _, err := s.Repo.ExpireQuizSession(sessionID); err != nil {
			return nil, nil, err
		}
		if session, err = s.loadSession(sessionID); err != nil {
			return nil, nil, err
		}
	}

	views, err := s.Repo.ListQuizSessionQuestions(sessionID)
	if err != nil {
		return nil, nil, err
	}

	displays := make([]models.QuestionDisplay, 0, len(views))
	for _, view := range views {
		displays = append(displays, models.QuestionDisplay{
			ID:         view.QuestionID,
			Index:      view.Position,
			Stem:       view.Stem,
			Options:    view.Options,
			Difficulty: view.Difficulty,
			Subject:    view.Subject,
			Topic:      view.Topic,
		})
	}

	response := &models.QuizSessionResponse{
		Session:          session,
		Questions:        displays,
		TimeRemainingSec: session.TimeRemainingSec(now),
	}
	if !session.Status.Terminal() {
		return response, nil, nil
	}

	items := make([]models.QuizItemResult, 0, len(views))
	for _, view := range views {
		item := models.QuizItemResult{
			QuestionID:    view.QuestionID,
			Index:         view.Position,
			Stem:          view.Stem,
			Options:       view.Options,
			CorrectChoice: view.CorrectChoice,
			Explanation:   view.Explanation,
		}
		if view.SelectedChoice != nil {
			item.SelectedChoice = *view.SelectedChoice
		}
		if view.IsCorrect != nil {
			item.IsCorrect = *view.IsCorrect
		}
		items = append(items, item)
	}
	return response, items, nil
}

// Submit grades the answer set and commits the graded result together with
// the active -> completed transition. Losing either race (double submit, or
// an expire sweep landing first) fails cleanly without partial writes.
func (s *QuizService) Submit(sessionID uint, answers []models.QuizAnswer) (*models.QuizResult, error) {
	session, err := s.loadSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, apperrors.Newf(apperrors.KindInvalidState, "quiz session is already %s", session.Status)
	}

	now := s.Now()
	if session.ExpiredBy(now) {
		if _, err := s.Repo.ExpireQuizSession(sessionID); err != nil {
			return nil, err
		}
		return nil, apperrors.New(apperrors.KindExpired, "quiz session has expired")
	}

	views, err := s.Repo.ListQuizSessionQuestions(sessionID)
	if err != nil {
		return nil, err
	}

	graded := GradeQuiz(views, answers, session.StartedAt, now)

	won, err := s.Repo.CompleteQuizSession(sessionID, graded.Score, now, graded.Answers)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, apperrors.New(apperrors.KindInvalidState, "quiz session is no longer active")
	}

	return &models.QuizResult{
		SessionID:      sessionID,
		Score:          graded.Score,
		CorrectCount:   graded.CorrectCount,
		TotalQuestions: graded.TotalQuestions,
		Unanswered:     graded.Unanswered,
		TimeTakenSec:   graded.TimeTakenSec,
		Items:          graded.Items,
		SubmittedAt:    now,
	}, nil
}

// Expire marks an active session expired. Terminal sessions never change.
func (s *QuizService) Expire(sessionID uint) (*models.QuizSession, error) {
	session, err := s.loadSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, apperrors.Newf(apperrors.KindInvalidState, "quiz session is already %s", session.Status)
	}

	won, err := s.Repo.ExpireQuizSession(sessionID)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, apperrors.New(apperrors.KindInvalidState, "quiz session is no longer active")
	}
	return s.loadSession(sessionID)
}

func (s *QuizService) List(childID uint, limit, offset int) ([]models.QuizSession, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.ListQuizSessions(childID, limit, offset)
}

func (s *QuizService) loadSession(sessionID uint) (*models.QuizSession, error) {
	session, err := s.Repo.GetQuizSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "quiz session not found")
	}
	return session, nil
}
