package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lms/models"
)

func addQuestions(t *testing.T, svc *QuizService, quizID uint, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		_, err := svc.AddQuestion(context.Background(), quizID, QuestionInput{
			Text:    "What is the capital of France?",
			Options: []string{"Paris", "Berlin", "Madrid"},
			Answer:  "Paris",
		})
		require.NoError(t, err)
	}
}

func TestCreateQuizLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := NewQuizService(db)
	ctx := context.Background()

	course := createCourse(t, db, "JS Basics")

	_, err := svc.CreateQuiz(ctx, course.ID, "  ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateQuiz(ctx, 999, "Final")
	assert.ErrorIs(t, err, ErrNotFound)

	quiz, err := svc.CreateQuiz(ctx, course.ID, "Final")
	require.NoError(t, err)
	assert.False(t, quiz.IsActive, "quizzes are created inactive")

	_, err = svc.RenameQuiz(ctx, quiz.ID, "")
	assert.ErrorIs(t, err, ErrValidation)

	renamed, err := svc.RenameQuiz(ctx, quiz.ID, "Final Exam")
	require.NoError(t, err)
	assert.Equal(t, "Final Exam", renamed.Title)
}

func TestQuestionValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewQuizService(db)
	ctx := context.Background()

	course := createCourse(t, db, "Geography")
	quiz, err := svc.CreateQuiz(ctx, course.ID, "Capitals")
	require.NoError(t, err)

	cases := []struct {
		name  string
		input QuestionInput
	}{
		{"empty text", QuestionInput{Text: " ", Options: []string{"A", "B"}, Answer: "A"}},
		{"single option", QuestionInput{Text: "Q", Options: []string{"A"}, Answer: "A"}},
		{"blank option", QuestionInput{Text: "Q", Options: []string{"A", "  "}, Answer: "A"}},
		{"duplicate option", QuestionInput{Text: "Q", Options: []string{"Paris", "Paris"}, Answer: "Paris"}},
		{"answer not in options", QuestionInput{Text: "Q", Options: []string{"Paris", "Berlin"}, Answer: "London"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddQuestion(ctx, quiz.ID, tc.input)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	question, err := svc.AddQuestion(ctx, quiz.ID, QuestionInput{
		Text:    "Capital of France?",
		Options: []string{" Paris ", "Berlin"},
		Answer:  "Paris",
	})
	require.NoError(t, err)
	assert.Equal(t, "Paris", question.Answer)

	// Update applies the same validation and replaces in place.
	_, err = svc.UpdateQuestion(ctx, question.ID, QuestionInput{
		Text:    "Capital of France?",
		Options: []string{"Paris", "Paris"},
		Answer:  "Paris",
	})
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := svc.UpdateQuestion(ctx, question.ID, QuestionInput{
		Text:    "Capital of Germany?",
		Options: []string{"Paris", "Berlin"},
		Answer:  "Berlin",
	})
	require.NoError(t, err)
	assert.Equal(t, "Berlin", updated.Answer)
}

func TestSingleActiveQuiz(t *testing.T) {
	db := newTestDB(t)
	svc := NewQuizService(db)
	ctx := context.Background()

	course := createCourse(t, db, "JS Basics")
	other := createCourse(t, db, "Go Basics")

	q1, err := svc.CreateQuiz(ctx, course.ID, "Quiz 1")
	require.NoError(t, err)
	q2, err := svc.CreateQuiz(ctx, course.ID, "Quiz 2")
	require.NoError(t, err)
	q3, err := svc.CreateQuiz(ctx, other.ID, "Other course quiz")
	require.NoError(t, err)

	_, err = svc.SetActive(ctx, q1.ID, true)
	require.NoError(t, err)

	// Activating a second quiz for the same course is rejected; the
	// first stays active.
	_, err = svc.SetActive(ctx, q2.ID, true)
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	active, err := svc.ActiveQuiz(ctx, course.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, q1.ID, active.ID)

	// A different course is unaffected.
	_, err = svc.SetActive(ctx, q3.ID, true)
	require.NoError(t, err)

	// After deactivating the first, the second may activate.
	_, err = svc.SetActive(ctx, q1.ID, false)
	require.NoError(t, err)
	_, err = svc.SetActive(ctx, q2.ID, true)
	require.NoError(t, err)

	active, err = svc.ActiveQuiz(ctx, course.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, q2.ID, active.ID)
}

func TestActiveQuizNone(t *testing.T) {
	db := newTestDB(t)
	svc := NewQuizService(db)

	course := createCourse(t, db, "JS Basics")

	quiz, err := svc.ActiveQuiz(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Nil(t, quiz, "no active quiz is a normal answer, not an error")
}

func TestQuizDeletionCascade(t *testing.T) {
	db := newTestDB(t)
	svc := NewQuizService(db)
	ctx := context.Background()

	course := createCourse(t, db, "JS Basics")
	user := createUser(t, db, "learner@example.com")

	quiz, err := svc.CreateQuiz(ctx, course.ID, "Final")
	require.NoError(t, err)
	addQuestions(t, svc, quiz.ID, 5)

	result := models.QuizResult{
		CourseID:       course.ID,
		UserID:         user.ID,
		QuizID:         quiz.ID,
		Score:          3,
		TotalQuestions: 5,
		Percentage:     60,
	}
	require.NoError(t, db.Create(&result).Error)

	require.NoError(t, svc.DeleteQuiz(ctx, quiz.ID))

	var questionCount int64
	db.Model(&models.Question{}).Where("quiz_id = ?", quiz.ID).Count(&questionCount)
	assert.Equal(t, int64(0), questionCount, "questions are deleted with the quiz")

	_, err = svc.GetQuiz(ctx, quiz.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Historical results survive the deletion.
	results, err := svc.ResultsForQuiz(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestDeleteQuestion(t *testing.T) {
	db := newTestDB(t)
	svc := NewQuizService(db)
	ctx := context.Background()

	course := createCourse(t, db, "JS Basics")
	quiz, err := svc.CreateQuiz(ctx, course.ID, "Final")
	require.NoError(t, err)
	addQuestions(t, svc, quiz.ID, 2)

	questions, err := svc.Questions(ctx, quiz.ID)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	require.NoError(t, svc.DeleteQuestion(ctx, questions[0].ID))
	assert.ErrorIs(t, svc.DeleteQuestion(ctx, questions[0].ID), ErrNotFound)

	questions, err = svc.Questions(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Len(t, questions, 1)
}
