package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studybuddy/models"
)

type PostgresRepository struct {
	DB *gorm.DB
}

func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{DB: db}
}

func (r *PostgresRepository) CreateUser(user *models.User) error {
	return r.DB.Create(user).Error
}

func (r *PostgresRepository) GetUser(userID uint) (*models.User, error) {
	var user models.User
	if err := r.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *PostgresRepository) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.DB.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *PostgresRepository) GetChild(childID uint) (*models.Child, error) {
	var child models.Child
	if err := r.DB.First(&child, childID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &child, nil
}

func (r *PostgresRepository) ChildBelongsToUser(childID, userID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&models.Child{}).
		Where("id = ? AND user_id = ?", childID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *PostgresRepository) ListQuestions(filter QuestionFilter) ([]models.Question, error) {
	query := r.DB.Model(&models.Question{})
	if filter.Subject != "" {
		query = query.Where("subject = ?", filter.Subject)
	}
	if filter.Grade != nil {
		query = query.Where("grade = ? OR grade IS NULL", *filter.Grade)
	}
	if filter.Topic != "" {
		query = query.Where("topic = ?", filter.Topic)
	}
	if filter.Subtopic != "" {
		query = query.Where("sub_topic = ?", filter.Subtopic)
	}
	if filter.Difficulty != "" {
		query = query.Where("difficulty = ?", filter.Difficulty)
	}

	var questions []models.Question
	if err := query.Order("created_at").Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *PostgresRepository) GetQuestion(questionID uint) (*models.Question, error) {
	var question models.Question
	if err := r.DB.First(&question, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &question, nil
}

// InsertQuestions skips questions whose content hash already exists and
// returns the number actually inserted.
func (r *PostgresRepository) InsertQuestions(questions []models.Question) (int, error) {
	inserted := 0
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		for i := range questions {
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "hash"}},
				DoNothing: true,
			}).Create(&questions[i])
			if result.Error != nil {
				return result.Error
			}
			inserted += int(result.RowsAffected)
		}
		return nil
	})
	return inserted, err
}

func (r *PostgresRepository) ListSubtopics(subject string, grade *int, topic string) ([]models.Subtopic, error) {
	query := r.DB.Model(&models.Subtopic{}).Where("subject = ?", subject)
	if grade != nil {
		query = query.Where("grade = ? OR grade IS NULL", *grade)
	}
	if topic != "" {
		query = query.Where("topic = ?", topic)
	}

	var subtopics []models.Subtopic
	if err := query.Order("name").Find(&subtopics).Error; err != nil {
		return nil, err
	}
	return subtopics, nil
}

func (r *PostgresRepository) ListSeenHashes(childID uint) ([]string, error) {
	var hashes []string
	err := r.DB.Model(&models.SeenQuestion{}).
		Where("child_id = ?", childID).
		Pluck("question_hash", &hashes).Error
	return hashes, err
}

func (r *PostgresRepository) MarkSeen(childID uint, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}
	rows := make([]models.SeenQuestion, 0, len(hashes))
	for _, hash := range hashes {
		rows = append(rows, models.SeenQuestion{ChildID: childID, QuestionHash: hash})
	}
	return r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (r *PostgresRepository) CreateAttempt(attempt *models.Attempt) error {
	return r.DB.Create(attempt).Error
}

func (r *PostgresRepository) ListAttempts(childID uint, subject string) ([]models.Attempt, error) {
	query := r.DB.Where("child_id = ?", childID)
	if subject != "" {
		query = query.Where("subject = ?", subject)
	}

	var attempts []models.Attempt
	if err := query.Order("created_at, id").Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *PostgresRepository) CreateQuizSession(session *models.QuizSession, questions []models.QuizSessionQuestion) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].QuizSessionID = session.ID
		}
		return tx.Create(&questions).Error
	})
}

func (r *PostgresRepository) GetQuizSession(sessionID uint) (*models.QuizSession, error) {
	var session models.QuizSession
	if err := r.DB.First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *PostgresRepository) ListQuizSessions(childID uint, limit, offset int) ([]models.QuizSession, int64, error) {
	var total int64
	if err := r.DB.Model(&models.QuizSession{}).Where("child_id = ?", childID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessions []models.QuizSession
	err := r.DB.Where("child_id = ?", childID).
		Order("started_at DESC").
		Limit(limit).Offset(offset).
		Find(&sessions).Error
	return sessions, total, err
}

func (r *PostgresRepository) FindActiveQuizSession(childID uint, subject, topic string) (*models.QuizSession, error) {
	var session models.QuizSession
	err := r.DB.Where("child_id = ? AND subject = ? AND topic = ? AND status = ?",
		childID, subject, topic, models.StatusActive).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *PostgresRepository) ListQuizSessionQuestions(sessionID uint) ([]models.QuizSessionQuestionView, error) {
	var rows []models.QuizSessionQuestion
	err := r.DB.Where("quiz_session_id = ?", sessionID).
		Order("position").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	views := make([]models.QuizSessionQuestionView, 0, len(rows))
	for _, row := range rows {
		view := models.QuizSessionQuestionView{QuizSessionQuestion: row}
		var question models.Question
		if err := r.DB.First(&question, row.QuestionID).Error; err == nil {
			view.Stem = question.Stem
			view.Options = question.OptionList()
			view.Subject = question.Subject
			view.Topic = question.Topic
			view.Difficulty = question.Difficulty
		}
		views = append(views, view)
	}
	return views, nil
}

// CompleteQuizSession flips active -> completed with a conditional update
// keyed on the current status, so concurrent submits resolve to one winner.
// The per-question answers commit in the same transaction as the transition.
func (r *PostgresRepository) CompleteQuizSession(sessionID uint, score int, submittedAt time.Time, answers []models.QuizSessionQuestion) (bool, error) {
	won := false
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.QuizSession{}).
			Where("id = ? AND status = ?", sessionID, models.StatusActive).
			Updates(map[string]interface{}{
				"status":       models.StatusCompleted,
				"score":        score,
				"submitted_at": submittedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		won = true

		for _, answer := range answers {
			err := tx.Model(&models.QuizSessionQuestion{}).
				Where("quiz_session_id = ? AND question_id = ?", sessionID, answer.QuestionID).
				Updates(map[string]interface{}{
					"selected_choice": answer.SelectedChoice,
					"is_correct":      answer.IsCorrect,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	return won, err
}

func (r *PostgresRepository) ExpireQuizSession(sessionID uint) (bool, error) {
	result := r.DB.Model(&models.QuizSession{}).
		Where("id = ? AND status = ?", sessionID, models.StatusActive).
		Update("status", models.StatusExpired)
	return result.RowsAffected > 0, result.Error
}
