// Package repository abstracts persistence for the question catalog, learner
// history and quiz sessions. The Postgres implementation backs the server;
// the in-memory implementation backs tests and local development.
package repository

import (
	"time"

	"studybuddy/models"
)

// QuestionFilter narrows a catalog query. Zero-value fields are ignored.
// Grade matches questions tagged with the same grade or with no grade.
type QuestionFilter struct {
	Subject    string
	Grade      *int
	Topic      string
	Subtopic   string
	Difficulty string
}

type Repository interface {
	// Users and children
	CreateUser(user *models.User) error
	GetUser(userID uint) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	GetChild(childID uint) (*models.Child, error)
	ChildBelongsToUser(childID, userID uint) (bool, error)

	// Question catalog (read-only apart from ingestion)
	ListQuestions(filter QuestionFilter) ([]models.Question, error)
	GetQuestion(questionID uint) (*models.Question, error)
	InsertQuestions(questions []models.Question) (int, error)
	ListSubtopics(subject string, grade *int, topic string) ([]models.Subtopic, error)

	// Seen-question history. MarkSeen is an idempotent upsert: safe to
	// retry, safe to race.
	ListSeenHashes(childID uint) ([]string, error)
	MarkSeen(childID uint, hashes []string) error

	// Attempt log, append-only, oldest first
	CreateAttempt(attempt *models.Attempt) error
	ListAttempts(childID uint, subject string) ([]models.Attempt, error)

	// Quiz sessions. CreateQuizSession persists the session and all of its
	// question rows in one transaction. CompleteQuizSession and
	// ExpireQuizSession are conditional on status = active at commit time
	// and report whether the transition won; they never touch a terminal
	// session.
	CreateQuizSession(session *models.QuizSession, questions []models.QuizSessionQuestion) error
	GetQuizSession(sessionID uint) (*models.QuizSession, error)
	ListQuizSessions(childID uint, limit, offset int) ([]models.QuizSession, int64, error)
	FindActiveQuizSession(childID uint, subject, topic string) (*models.QuizSession, error)
	ListQuizSessionQuestions(sessionID uint) ([]models.QuizSessionQuestionView, error)
	CompleteQuizSession(sessionID uint, score int, submittedAt time.Time, answers []models.QuizSessionQuestion) (bool, error)
	ExpireQuizSession(sessionID uint) (bool, error)
}
