package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Quiz is a gradable question set scoped to one course. At most one quiz
// per course may be active at a time; activation is a guarded update in
// services.QuizService.
type Quiz struct {
	gorm.Model
	CourseID  uint   `gorm:"index;not null"`
	Title     string `gorm:"not null"`
	IsActive  bool   `gorm:"default:false"`
	Questions []Question
}

type Question struct {
	gorm.Model
	QuizID  uint           `gorm:"index;not null"`
	Text    string         `gorm:"not null"`
	Options datatypes.JSON `gorm:"not null"` // JSON array of option strings
	Answer  string         `gorm:"not null"` // must equal one of Options
}

// QuizResult is one scored attempt. Rows are append-only and are kept
// when the quiz itself is deleted.
type QuizResult struct {
	gorm.Model
	CourseID       uint `gorm:"index;not null"`
	UserID         uint `gorm:"index;not null"`
	QuizID         uint `gorm:"index;not null"`
	Score          int
	TotalQuestions int
	Percentage     int
	IsPassed       bool
	Answers        datatypes.JSON
	SubmittedAt    time.Time
}

// AnswerDetail is one entry of QuizResult.Answers. UserAnswer is nil for
// questions left unanswered.
type AnswerDetail struct {
	QuestionID    uint    `json:"question_id"`
	Question      string  `json:"question"`
	UserAnswer    *string `json:"user_answer"`
	CorrectAnswer string  `json:"correct_answer"`
	IsCorrect     bool    `json:"is_correct"`
}
