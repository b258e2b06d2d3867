package repository

import (
	"sort"
	"strings"
	"sync"
	"time"

	"studybuddy/models"
)

// MemoryRepository emulates the Postgres repository for tests and local
// development. All methods are safe for concurrent use; the session
// transitions hold the lock across their read-check-write, matching the
// conditional-update semantics of the SQL implementation.
type MemoryRepository struct {
	mu sync.Mutex

	users            map[uint]*models.User
	children         map[uint]*models.Child
	questions        map[uint]*models.Question
	subtopics        []models.Subtopic
	seenHashes       map[uint]map[string]bool
	attempts         []models.Attempt
	quizSessions     map[uint]*models.QuizSession
	sessionQuestions []models.QuizSessionQuestion

	nextID uint
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:        make(map[uint]*models.User),
		children:     make(map[uint]*models.Child),
		questions:    make(map[uint]*models.Question),
		seenHashes:   make(map[uint]map[string]bool),
		quizSessions: make(map[uint]*models.QuizSession),
		nextID:       1,
	}
}

func (r *MemoryRepository) allocID() uint {
	id := r.nextID
	r.nextID++
	return id
}

func (r *MemoryRepository) CreateUser(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = r.allocID()
	user.CreatedAt = time.Now().UTC()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *MemoryRepository) GetUser(userID uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *MemoryRepository) GetUserByUsername(username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

// AddChild seeds a learner profile; used by tests and local bootstrap.
func (r *MemoryRepository) AddChild(child *models.Child) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if child.ID == 0 {
		child.ID = r.allocID()
	} else if child.ID >= r.nextID {
		r.nextID = child.ID + 1
	}
	copied := *child
	r.children[child.ID] = &copied
}

func (r *MemoryRepository) GetChild(childID uint) (*models.Child, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	child, ok := r.children[childID]
	if !ok {
		return nil, nil
	}
	copied := *child
	return &copied, nil
}

func (r *MemoryRepository) ChildBelongsToUser(childID, userID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	child, ok := r.children[childID]
	return ok && child.UserID == userID, nil
}

func matchesFilter(q *models.Question, filter QuestionFilter) bool {
	if filter.Subject != "" && q.Subject != filter.Subject {
		return false
	}
	if filter.Grade != nil && q.Grade != nil && *q.Grade != *filter.Grade {
		return false
	}
	if filter.Topic != "" && q.Topic != filter.Topic {
		return false
	}
	if filter.Subtopic != "" && q.SubTopic != filter.Subtopic {
		return false
	}
	if filter.Difficulty != "" && q.Difficulty != filter.Difficulty {
		return false
	}
	return true
}

func (r *MemoryRepository) ListQuestions(filter QuestionFilter) ([]models.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var results []models.Question
	for _, question := range r.questions {
		if matchesFilter(question, filter) {
			results = append(results, *question)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].ID < results[j].ID
		}
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})
	return results, nil
}

func (r *MemoryRepository) GetQuestion(questionID uint) (*models.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	question, ok := r.questions[questionID]
	if !ok {
		return nil, nil
	}
	copied := *question
	return &copied, nil
}

func (r *MemoryRepository) InsertQuestions(questions []models.Question) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inserted := 0
	for i := range questions {
		question := questions[i]
		duplicate := false
		for _, existing := range r.questions {
			if existing.Hash == question.Hash {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		if question.ID == 0 {
			question.ID = r.allocID()
		} else if question.ID >= r.nextID {
			r.nextID = question.ID + 1
		}
		if question.CreatedAt.IsZero() {
			question.CreatedAt = time.Now().UTC()
		}
		copied := question
		r.questions[question.ID] = &copied
		questions[i].ID = question.ID
		inserted++
	}
	return inserted, nil
}

// AddSubtopics seeds the subtopic catalog.
func (r *MemoryRepository) AddSubtopics(subtopics []models.Subtopic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, subtopic := range subtopics {
		if subtopic.ID == 0 {
			subtopic.ID = r.allocID()
		}
		r.subtopics = append(r.subtopics, subtopic)
	}
}

func (r *MemoryRepository) ListSubtopics(subject string, grade *int, topic string) ([]models.Subtopic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var results []models.Subtopic
	for _, subtopic := range r.subtopics {
		if subtopic.Subject != subject {
			continue
		}
		if grade != nil && subtopic.Grade != nil && *subtopic.Grade != *grade {
			continue
		}
		if topic != "" && subtopic.Topic != topic {
			continue
		}
		results = append(results, subtopic)
	}
	sort.Slice(results, func(i, j int) bool {
		return strings.Compare(results[i].Name, results[j].Name) < 0
	})
	return results, nil
}

func (r *MemoryRepository) ListSeenHashes(childID uint) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hashes := make([]string, 0, len(r.seenHashes[childID]))
	for hash := range r.seenHashes[childID] {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)
	return hashes, nil
}

func (r *MemoryRepository) MarkSeen(childID uint, hashes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.seenHashes[childID]
	if set == nil {
		set = make(map[string]bool)
		r.seenHashes[childID] = set
	}
	for _, hash := range hashes {
		set[hash] = true
	}
	return nil
}

func (r *MemoryRepository) CreateAttempt(attempt *models.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt.ID = r.allocID()
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	r.attempts = append(r.attempts, *attempt)
	return nil
}

func (r *MemoryRepository) ListAttempts(childID uint, subject string) ([]models.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var results []models.Attempt
	for _, attempt := range r.attempts {
		if attempt.ChildID != childID {
			continue
		}
		if subject != "" && attempt.Subject != subject {
			continue
		}
		results = append(results, attempt)
	}
	return results, nil
}

func (r *MemoryRepository) CreateQuizSession(session *models.QuizSession, questions []models.QuizSessionQuestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session.ID = r.allocID()
	session.CreatedAt = time.Now().UTC()
	copied := *session
	r.quizSessions[session.ID] = &copied
	for i := range questions {
		questions[i].ID = r.allocID()
		questions[i].QuizSessionID = session.ID
		r.sessionQuestions = append(r.sessionQuestions, questions[i])
	}
	return nil
}

func (r *MemoryRepository) GetQuizSession(sessionID uint) (*models.QuizSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.quizSessions[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (r *MemoryRepository) ListQuizSessions(childID uint, limit, offset int) ([]models.QuizSession, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sessions []models.QuizSession
	for _, session := range r.quizSessions {
		if session.ChildID == childID {
			sessions = append(sessions, *session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})
	total := int64(len(sessions))
	if offset >= len(sessions) {
		return nil, total, nil
	}
	sessions = sessions[offset:]
	if limit > 0 && limit < len(sessions) {
		sessions = sessions[:limit]
	}
	return sessions, total, nil
}

func (r *MemoryRepository) FindActiveQuizSession(childID uint, subject, topic string) (*models.QuizSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.quizSessions {
		if session.ChildID == childID && session.Subject == subject &&
			session.Topic == topic && session.Status == models.StatusActive {
			copied := *session
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) ListQuizSessionQuestions(sessionID uint) ([]models.QuizSessionQuestionView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var views []models.QuizSessionQuestionView
	for _, row := range r.sessionQuestions {
		if row.QuizSessionID != sessionID {
			continue
		}
		view := models.QuizSessionQuestionView{QuizSessionQuestion: row}
		if question, ok := r.questions[row.QuestionID]; ok {
			view.Stem = question.Stem
			view.Options = question.OptionList()
			view.Subject = question.Subject
			view.Topic = question.Topic
			view.Difficulty = question.Difficulty
		}
		views = append(views, view)
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].Position < views[j].Position
	})
	return views, nil
}

func (r *MemoryRepository) CompleteQuizSession(sessionID uint, score int, submittedAt time.Time, answers []models.QuizSessionQuestion) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.quizSessions[sessionID]
	if !ok || session.Status != models.StatusActive {
		return false, nil
	}
	session.Status = models.StatusCompleted
	session.Score = &score
	submitted := submittedAt
	session.SubmittedAt = &submitted
	for _, answer := range answers {
		for i := range r.sessionQuestions {
			row := &r.sessionQuestions[i]
			if row.QuizSessionID == sessionID && row.QuestionID == answer.QuestionID {
				row.SelectedChoice = answer.SelectedChoice
				row.IsCorrect = answer.IsCorrect
			}
		}
	}
	return true, nil
}

func (r *MemoryRepository) ExpireQuizSession(sessionID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.quizSessions[sessionID]
	if !ok || session.Status != models.StatusActive {
		return false, nil
	}
	session.Status = models.StatusExpired
	return true, nil
}
