package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"lms/config"
	"lms/services"
	"lms/utils"
)

type AttemptsController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Attempts *services.AttemptManager
}

func NewAttemptsController(db *gorm.DB, cfg *config.Config, attempts *services.AttemptManager) *AttemptsController {
	return &AttemptsController{DB: db, Cfg: cfg, Attempts: attempts}
}

// StartAttempt opens a timed session for the quiz.
func (ac *AttemptsController) StartAttempt(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	quizID, err := strconv.Atoi(c.Params("quizId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz ID")
	}

	view, err := ac.Attempts.Start(c.Context(), userID, uint(quizID))
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Created(c, view)
}

// SelectAnswer captures one answer; repeated answers for the same
// question overwrite the previous choice.
func (ac *AttemptsController) SelectAnswer(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	sessionID := c.Params("sessionId")

	var input struct {
		QuestionID uint   `json:"question_id"`
		Option     string `json:"option"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if err := ac.Attempts.SelectAnswer(sessionID, userID, input.QuestionID, input.Option); err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "Answer recorded"})
}

// GetAttempt reports session state including the remaining seconds.
func (ac *AttemptsController) GetAttempt(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	view, err := ac.Attempts.State(c.Params("sessionId"), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, view)
}

// SubmitAttempt finalizes the session and returns the scored result.
// Partial answer sets are accepted; the client warns about unanswered
// questions before calling this.
func (ac *AttemptsController) SubmitAttempt(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	result, err := ac.Attempts.Submit(c.Context(), c.Params("sessionId"), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, result)
}

// AbandonAttempt tears the session down without scoring it.
func (ac *AttemptsController) AbandonAttempt(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	if err := ac.Attempts.Close(c.Params("sessionId"), userID); err != nil {
		return serviceError(c, err)
	}
	return utils.NoContent(c)
}
