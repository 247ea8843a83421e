package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"lms/services"
	"lms/utils"
)

// serviceError maps engine errors onto HTTP statuses.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return utils.UnprocessableEntity(c, err.Error())
	case errors.Is(err, services.ErrNotFound):
		return utils.NotFound(c, err.Error())
	case errors.Is(err, services.ErrPreconditionFailed):
		return utils.Conflict(c, err.Error())
	default:
		return utils.InternalServerError(c, err.Error())
	}
}
