package controllers

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"lms/config"
	"lms/live"
	"lms/models"
	"lms/services"
	"lms/utils"
)

type QuizzesController struct {
	DB   *gorm.DB
	Cfg  *config.Config
	Quiz *services.QuizService
	Hub  *live.Hub
}

func NewQuizzesController(db *gorm.DB, cfg *config.Config, quiz *services.QuizService, hub *live.Hub) *QuizzesController {
	return &QuizzesController{DB: db, Cfg: cfg, Quiz: quiz, Hub: hub}
}

// GetActiveQuiz returns the course's active quiz with its questions,
// stripped of the answer key. No active quiz is a normal empty answer.
func (qc *QuizzesController) GetActiveQuiz(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	quiz, err := qc.Quiz.ActiveQuiz(c.Context(), uint(courseID))
	if err != nil {
		return serviceError(c, err)
	}
	if quiz == nil {
		return utils.Success(c, fiber.StatusOK, fiber.Map{"quiz": nil})
	}

	questions, err := qc.Quiz.Questions(c.Context(), quiz.ID)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"quiz": fiber.Map{
			"id":        quiz.ID,
			"course_id": quiz.CourseID,
			"title":     quiz.Title,
			"questions": learnerQuestions(questions),
		},
	})
}

// ListQuizzes is the admin view: every quiz of the course with its
// activity state and question count.
func (qc *QuizzesController) ListQuizzes(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	quizzes, err := qc.Quiz.QuizzesByCourse(c.Context(), uint(courseID))
	if err != nil {
		return serviceError(c, err)
	}

	result := make([]fiber.Map, 0, len(quizzes))
	for _, quiz := range quizzes {
		var questionCount int64
		qc.DB.Model(&models.Question{}).Where("quiz_id = ?", quiz.ID).Count(&questionCount)

		result = append(result, fiber.Map{
			"id":         quiz.ID,
			"title":      quiz.Title,
			"is_active":  quiz.IsActive,
			"questions":  questionCount,
			"created_at": quiz.CreatedAt,
			"updated_at": quiz.UpdatedAt,
		})
	}
	return utils.Success(c, fiber.StatusOK, result)
}

func (qc *QuizzesController) CreateQuiz(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input struct {
		Title string `json:"title"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	quiz, err := qc.Quiz.CreateQuiz(c.Context(), uint(courseID), input.Title)
	if err != nil {
		return serviceError(c, err)
	}

	qc.Hub.Notify(c.Context(), "quizzes")
	return utils.Created(c, quiz)
}

func (qc *QuizzesController) RenameQuiz(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("quizId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz ID")
	}

	var input struct {
		Title string `json:"title"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	quiz, err := qc.Quiz.RenameQuiz(c.Context(), uint(quizID), input.Title)
	if err != nil {
		return serviceError(c, err)
	}

	qc.Hub.Notify(c.Context(), "quizzes")
	return utils.Success(c, fiber.StatusOK, quiz)
}

func (qc *QuizzesController) SetQuizActive(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("quizId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz ID")
	}

	var input struct {
		Active bool `json:"active"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	quiz, err := qc.Quiz.SetActive(c.Context(), uint(quizID), input.Active)
	if err != nil {
		return serviceError(c, err)
	}

	qc.Hub.Notify(c.Context(), "quizzes")
	return utils.Success(c, fiber.StatusOK, quiz)
}

func (qc *QuizzesController) DeleteQuiz(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("quizId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz ID")
	}

	if err := qc.Quiz.DeleteQuiz(c.Context(), uint(quizID)); err != nil {
		return serviceError(c, err)
	}

	qc.Hub.Notify(c.Context(), "quizzes")
	return utils.NoContent(c)
}

// ListQuestions is the admin view including answer keys.
func (qc *QuizzesController) ListQuestions(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("quizId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz ID")
	}

	questions, err := qc.Quiz.Questions(c.Context(), uint(quizID))
	if err != nil {
		return serviceError(c, err)
	}

	result := make([]fiber.Map, 0, len(questions))
	for _, q := range questions {
		var options []string
		_ = json.Unmarshal(q.Options, &options)
		result = append(result, fiber.Map{
			"id":      q.ID,
			"text":    q.Text,
			"options": options,
			"answer":  q.Answer,
		})
	}
	return utils.Success(c, fiber.StatusOK, result)
}

func (qc *QuizzesController) AddQuestion(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("quizId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz ID")
	}

	var input services.QuestionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	question, err := qc.Quiz.AddQuestion(c.Context(), uint(quizID), input)
	if err != nil {
		return serviceError(c, err)
	}

	qc.Hub.Notify(c.Context(), "quizzes")
	return utils.Created(c, question)
}

func (qc *QuizzesController) UpdateQuestion(c *fiber.Ctx) error {
	questionID, err := strconv.Atoi(c.Params("questionId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question ID")
	}

	var input services.QuestionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	question, err := qc.Quiz.UpdateQuestion(c.Context(), uint(questionID), input)
	if err != nil {
		return serviceError(c, err)
	}

	qc.Hub.Notify(c.Context(), "quizzes")
	return utils.Success(c, fiber.StatusOK, question)
}

func (qc *QuizzesController) DeleteQuestion(c *fiber.Ctx) error {
	questionID, err := strconv.Atoi(c.Params("questionId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question ID")
	}

	if err := qc.Quiz.DeleteQuestion(c.Context(), uint(questionID)); err != nil {
		return serviceError(c, err)
	}

	qc.Hub.Notify(c.Context(), "quizzes")
	return utils.NoContent(c)
}

// GetUserResults lists the caller's attempt history for the course.
func (qc *QuizzesController) GetUserResults(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	results, err := qc.Quiz.ResultsForUser(c.Context(), userID, uint(courseID))
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, results)
}

// GetQuizResults is the admin view of all submissions for a quiz.
func (qc *QuizzesController) GetQuizResults(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("quizId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz ID")
	}

	results, err := qc.Quiz.ResultsForQuiz(c.Context(), uint(quizID))
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, results)
}

func learnerQuestions(questions []models.Question) []fiber.Map {
	result := make([]fiber.Map, 0, len(questions))
	for _, q := range questions {
		var options []string
		_ = json.Unmarshal(q.Options, &options)
		result = append(result, fiber.Map{
			"id":      q.ID,
			"text":    q.Text,
			"options": options,
		})
	}
	return result
}
