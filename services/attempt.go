package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lms/models"
)

// PassThreshold is the fixed pass mark in percent.
const PassThreshold = 70

const (
	AttemptInProgress = "in_progress"
	AttemptSubmitted  = "submitted"
)

// AttemptSession is one timed run through a quiz's questions by one
// user. Answers are last-choice-wins; the countdown force-submits at
// zero. Once submitted the session is terminal: the score is computed
// exactly once and kept in memory until it has been persisted.
type AttemptSession struct {
	ID       string
	UserID   uint
	CourseID uint
	QuizID   uint

	mu        sync.Mutex
	state     string
	questions []models.Question
	answers   map[uint]string
	startedAt time.Time
	deadline  time.Time
	timer     *time.Timer
	result    *models.QuizResult
	persisted bool
}

// AttemptView is the session state exposed to callers.
type AttemptView struct {
	SessionID        string            `json:"session_id"`
	QuizID           uint              `json:"quiz_id"`
	State            string            `json:"state"`
	QuestionCount    int               `json:"question_count"`
	AnsweredCount    int               `json:"answered_count"`
	RemainingSeconds int               `json:"remaining_seconds"`
	Answers          map[uint]string   `json:"answers"`
	Questions        []AttemptQuestion `json:"questions"`
}

// AttemptQuestion is a question as shown to the learner: no answer key.
type AttemptQuestion struct {
	ID      uint     `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// AttemptManager registers in-memory attempt sessions and drives their
// countdown timers. Sessions live in process memory: the forced-submit
// callback has to run where the session lives.
type AttemptManager struct {
	db  *gorm.DB
	log *zap.Logger

	mu       sync.Mutex
	sessions map[string]*AttemptSession

	// limitFor computes the attempt duration from the question count.
	limitFor func(questionCount int) time.Duration
}

func NewAttemptManager(db *gorm.DB, log *zap.Logger) *AttemptManager {
	return &AttemptManager{
		db:       db,
		log:      log,
		sessions: make(map[string]*AttemptSession),
		limitFor: defaultTimeLimit,
	}
}

// defaultTimeLimit is 30 minutes per question, capped at 2 hours.
func defaultTimeLimit(questionCount int) time.Duration {
	minutes := questionCount * 30
	if minutes > 120 {
		minutes = 120
	}
	return time.Duration(minutes) * time.Minute
}

// Start opens a session for an active quiz. The quiz and its questions
// are loaded up front; a quiz that cannot be loaded, is inactive, or
// has no questions cannot be started.
func (m *AttemptManager) Start(ctx context.Context, userID, quizID uint) (*AttemptView, error) {
	db := m.db.WithContext(ctx)

	var quiz models.Quiz
	if err := db.First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("quiz %d", quizID)
		}
		return nil, storageErr("load quiz", err)
	}
	if !quiz.IsActive {
		return nil, preconditionErr("quiz %d is not active", quizID)
	}

	var questions []models.Question
	if err := db.Where("quiz_id = ?", quizID).
		Order("created_at ASC, id ASC").
		Find(&questions).Error; err != nil {
		return nil, storageErr("load questions", err)
	}
	if len(questions) == 0 {
		return nil, preconditionErr("quiz %d has no questions", quizID)
	}

	now := time.Now()
	limit := m.limitFor(len(questions))
	sess := &AttemptSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		CourseID:  quiz.CourseID,
		QuizID:    quiz.ID,
		state:     AttemptInProgress,
		questions: questions,
		answers:   make(map[uint]string),
		startedAt: now,
		deadline:  now.Add(limit),
	}
	sess.timer = time.AfterFunc(limit, func() { m.forceSubmit(sess.ID) })

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	return sess.view(), nil
}

func (m *AttemptManager) session(sessionID string, userID uint) (*AttemptSession, error) {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok || sess.UserID != userID {
		return nil, notFoundErr("attempt session %s", sessionID)
	}
	return sess, nil
}

// SelectAnswer records the learner's choice for a question, replacing
// any prior choice.
func (m *AttemptManager) SelectAnswer(sessionID string, userID, questionID uint, option string) error {
	sess, err := m.session(sessionID, userID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != AttemptInProgress {
		return preconditionErr("attempt already submitted")
	}

	for _, q := range sess.questions {
		if q.ID != questionID {
			continue
		}
		var options []string
		_ = json.Unmarshal(q.Options, &options)
		for _, opt := range options {
			if opt == option {
				sess.answers[questionID] = option
				return nil
			}
		}
		return validationErr("option %q is not valid for question %d", option, questionID)
	}
	return notFoundErr("question %d in attempt", questionID)
}

// State reports the current session view, including remaining seconds.
func (m *AttemptManager) State(sessionID string, userID uint) (*AttemptView, error) {
	sess, err := m.session(sessionID, userID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.viewLocked(), nil
}

// Submit finalizes the attempt. Partial answer sets are accepted:
// unanswered questions score as incorrect with a null user answer. If
// persisting the result fails, the computed result stays on the session
// and Submit can be called again without re-scoring; once the result is
// stored the session is released from the registry.
func (m *AttemptManager) Submit(ctx context.Context, sessionID string, userID uint) (*models.QuizResult, error) {
	sess, err := m.session(sessionID, userID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return m.submitLocked(ctx, sess)
}

func (m *AttemptManager) submitLocked(ctx context.Context, sess *AttemptSession) (*models.QuizResult, error) {
	if sess.state == AttemptInProgress {
		sess.timer.Stop()
		sess.state = AttemptSubmitted
		sess.result = sess.score(time.Now())
	}

	if !sess.persisted {
		if err := m.db.WithContext(ctx).Create(sess.result).Error; err != nil {
			return nil, storageErr("persist quiz result", err)
		}
		sess.persisted = true
		// Nothing reads the session once its result is stored; leaving
		// it registered would grow the registry by one entry per attempt.
		m.evict(sess.ID)
	}
	return sess.result, nil
}

func (m *AttemptManager) evict(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

// forceSubmit runs when the countdown reaches zero. The result is
// scored from whatever answers were captured; a persistence failure is
// logged and left for a manual Submit retry.
func (m *AttemptManager) forceSubmit(sessionID string) {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != AttemptInProgress {
		return
	}

	if _, err := m.submitLocked(context.Background(), sess); err != nil {
		m.log.Error("forced submit failed",
			zap.String("session_id", sess.ID),
			zap.Uint("quiz_id", sess.QuizID),
			zap.Error(err))
	}
}

// Close tears the session down and cancels its timer. An in-progress
// session is abandoned without a result.
func (m *AttemptManager) Close(sessionID string, userID uint) error {
	sess, err := m.session(sessionID, userID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	sess.timer.Stop()
	sess.mu.Unlock()

	m.evict(sessionID)
	return nil
}

// score compares captured answers against the answer key with exact
// string equality and builds the immutable result row.
func (s *AttemptSession) score(now time.Time) *models.QuizResult {
	correct := 0
	details := make([]models.AnswerDetail, 0, len(s.questions))

	for _, q := range s.questions {
		detail := models.AnswerDetail{
			QuestionID:    q.ID,
			Question:      q.Text,
			CorrectAnswer: q.Answer,
		}
		if answer, ok := s.answers[q.ID]; ok {
			detail.UserAnswer = &answer
			detail.IsCorrect = answer == q.Answer
		}
		if detail.IsCorrect {
			correct++
		}
		details = append(details, detail)
	}

	total := len(s.questions)
	percentage := int(math.Round(float64(correct) / float64(total) * 100))
	raw, _ := json.Marshal(details)

	return &models.QuizResult{
		CourseID:       s.CourseID,
		UserID:         s.UserID,
		QuizID:         s.QuizID,
		Score:          correct,
		TotalQuestions: total,
		Percentage:     percentage,
		IsPassed:       percentage >= PassThreshold,
		Answers:        datatypes.JSON(raw),
		SubmittedAt:    now,
	}
}

func (s *AttemptSession) view() *AttemptView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *AttemptSession) viewLocked() *AttemptView {
	remaining := int(time.Until(s.deadline).Seconds())
	if remaining < 0 || s.state != AttemptInProgress {
		remaining = 0
	}

	questions := make([]AttemptQuestion, 0, len(s.questions))
	for _, q := range s.questions {
		var options []string
		_ = json.Unmarshal(q.Options, &options)
		questions = append(questions, AttemptQuestion{
			ID:      q.ID,
			Text:    q.Text,
			Options: options,
		})
	}

	answers := make(map[uint]string, len(s.answers))
	for id, a := range s.answers {
		answers[id] = a
	}

	return &AttemptView{
		SessionID:        s.ID,
		QuizID:           s.QuizID,
		State:            s.state,
		QuestionCount:    len(s.questions),
		AnsweredCount:    len(s.answers),
		RemainingSeconds: remaining,
		Answers:          answers,
		Questions:        questions,
	}
}
