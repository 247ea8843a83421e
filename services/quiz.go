package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lms/models"
)

// QuizService owns the quiz lifecycle (create inactive, rename,
// activate/deactivate, delete) and question management. The one
// cross-user invariant is that at most one quiz per course is active;
// activation enforces it with a conditional update.
type QuizService struct {
	DB *gorm.DB
}

func NewQuizService(db *gorm.DB) *QuizService {
	return &QuizService{DB: db}
}

// QuestionInput is the shape accepted for adding or replacing a
// question.
type QuestionInput struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
}

// validate trims options before checking them: the stored option set is
// the trimmed one.
func (in *QuestionInput) validate() ([]string, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, validationErr("question text must not be empty")
	}
	if len(in.Options) < 2 {
		return nil, validationErr("question needs at least 2 options")
	}

	options := make([]string, 0, len(in.Options))
	seen := make(map[string]bool, len(in.Options))
	for _, opt := range in.Options {
		trimmed := strings.TrimSpace(opt)
		if trimmed == "" {
			return nil, validationErr("options must not be empty")
		}
		if seen[trimmed] {
			return nil, validationErr("duplicate option %q", trimmed)
		}
		seen[trimmed] = true
		options = append(options, trimmed)
	}

	answer := strings.TrimSpace(in.Answer)
	if !seen[answer] {
		return nil, validationErr("answer %q is not one of the options", answer)
	}
	in.Answer = answer
	return options, nil
}

func (s *QuizService) CreateQuiz(ctx context.Context, courseID uint, title string) (*models.Quiz, error) {
	if strings.TrimSpace(title) == "" {
		return nil, validationErr("quiz title must not be empty")
	}

	db := s.DB.WithContext(ctx)
	var course models.Course
	if err := db.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("course %d", courseID)
		}
		return nil, storageErr("load course", err)
	}

	quiz := models.Quiz{
		CourseID: courseID,
		Title:    strings.TrimSpace(title),
		IsActive: false,
	}
	if err := db.Create(&quiz).Error; err != nil {
		return nil, storageErr("create quiz", err)
	}
	return &quiz, nil
}

func (s *QuizService) GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := s.DB.WithContext(ctx).First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("quiz %d", quizID)
		}
		return nil, storageErr("load quiz", err)
	}
	return &quiz, nil
}

func (s *QuizService) RenameQuiz(ctx context.Context, quizID uint, title string) (*models.Quiz, error) {
	if strings.TrimSpace(title) == "" {
		return nil, validationErr("quiz title must not be empty")
	}

	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	quiz.Title = strings.TrimSpace(title)
	if err := s.DB.WithContext(ctx).Save(quiz).Error; err != nil {
		return nil, storageErr("update quiz", err)
	}
	return quiz, nil
}

// SetActive toggles a quiz's active flag. Activation fails while
// another quiz of the same course is active: the conditional update
// only matches when no competing active row exists, so two concurrent
// activations cannot both win.
func (s *QuizService) SetActive(ctx context.Context, quizID uint, active bool) (*models.Quiz, error) {
	db := s.DB.WithContext(ctx)

	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	if !active {
		if err := db.Model(quiz).Update("is_active", false).Error; err != nil {
			return nil, storageErr("deactivate quiz", err)
		}
		quiz.IsActive = false
		return quiz, nil
	}

	if strings.TrimSpace(quiz.Title) == "" {
		return nil, validationErr("quiz title must not be empty")
	}

	res := db.Model(&models.Quiz{}).
		Where("id = ?", quiz.ID).
		Where("NOT EXISTS (SELECT 1 FROM quizzes q WHERE q.course_id = ? AND q.is_active = ? AND q.id <> ? AND q.deleted_at IS NULL)",
			quiz.CourseID, true, quiz.ID).
		Update("is_active", true)
	if res.Error != nil {
		return nil, storageErr("activate quiz", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, preconditionErr("another quiz for course %d is already active", quiz.CourseID)
	}

	quiz.IsActive = true
	return quiz, nil
}

// DeleteQuiz removes the quiz and all of its questions. Historical
// QuizResult rows are kept.
func (s *QuizService) DeleteQuiz(ctx context.Context, quizID uint) error {
	db := s.DB.WithContext(ctx)

	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", quiz.ID).Delete(&models.Question{}).Error; err != nil {
			return storageErr("delete questions", err)
		}
		if err := tx.Delete(quiz).Error; err != nil {
			return storageErr("delete quiz", err)
		}
		return nil
	})
}

func (s *QuizService) QuizzesByCourse(ctx context.Context, courseID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	if err := s.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&quizzes).Error; err != nil {
		return nil, storageErr("list quizzes", err)
	}
	return quizzes, nil
}

// ActiveQuiz returns the active quiz of a course, or nil when there is
// none. "No active quiz" is a normal answer here, not an error.
func (s *QuizService) ActiveQuiz(ctx context.Context, courseID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.DB.WithContext(ctx).
		Where("course_id = ? AND is_active = ?", courseID, true).
		First(&quiz).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageErr("load active quiz", err)
	}
	return &quiz, nil
}

func (s *QuizService) AddQuestion(ctx context.Context, quizID uint, input QuestionInput) (*models.Question, error) {
	options, err := input.validate()
	if err != nil {
		return nil, err
	}

	if _, err := s.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}

	raw, _ := json.Marshal(options)
	question := models.Question{
		QuizID:  quizID,
		Text:    strings.TrimSpace(input.Text),
		Options: datatypes.JSON(raw),
		Answer:  input.Answer,
	}
	if err := s.DB.WithContext(ctx).Create(&question).Error; err != nil {
		return nil, storageErr("create question", err)
	}
	return &question, nil
}

func (s *QuizService) UpdateQuestion(ctx context.Context, questionID uint, input QuestionInput) (*models.Question, error) {
	options, err := input.validate()
	if err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	var question models.Question
	if err := db.First(&question, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("question %d", questionID)
		}
		return nil, storageErr("load question", err)
	}

	raw, _ := json.Marshal(options)
	question.Text = strings.TrimSpace(input.Text)
	question.Options = datatypes.JSON(raw)
	question.Answer = input.Answer
	if err := db.Save(&question).Error; err != nil {
		return nil, storageErr("update question", err)
	}
	return &question, nil
}

func (s *QuizService) DeleteQuestion(ctx context.Context, questionID uint) error {
	res := s.DB.WithContext(ctx).Delete(&models.Question{}, questionID)
	if res.Error != nil {
		return storageErr("delete question", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundErr("question %d", questionID)
	}
	return nil
}

func (s *QuizService) Questions(ctx context.Context, quizID uint) ([]models.Question, error) {
	if _, err := s.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}

	var questions []models.Question
	if err := s.DB.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("created_at ASC, id ASC").
		Find(&questions).Error; err != nil {
		return nil, storageErr("list questions", err)
	}
	return questions, nil
}

// ResultsForUser lists a learner's attempt history for one course,
// newest first. Results survive quiz deletion.
func (s *QuizService) ResultsForUser(ctx context.Context, userID, courseID uint) ([]models.QuizResult, error) {
	var results []models.QuizResult
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("submitted_at DESC").
		Find(&results).Error; err != nil {
		return nil, storageErr("list quiz results", err)
	}
	return results, nil
}

func (s *QuizService) ResultsForQuiz(ctx context.Context, quizID uint) ([]models.QuizResult, error) {
	var results []models.QuizResult
	if err := s.DB.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("submitted_at DESC").
		Find(&results).Error; err != nil {
		return nil, storageErr("list quiz results", err)
	}
	return results, nil
}
