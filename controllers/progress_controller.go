package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"lms/config"
	"lms/live"
	"lms/services"
	"lms/utils"
)

type ProgressController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Progress *services.ProgressService
	Hub      *live.Hub
}

func NewProgressController(db *gorm.DB, cfg *config.Config, progress *services.ProgressService, hub *live.Hub) *ProgressController {
	return &ProgressController{DB: db, Cfg: cfg, Progress: progress, Hub: hub}
}

// GetCourseProgress godoc
// @Summary Get course progress
// @Description Returns the caller's unlock/completion state for a course
// @Tags progress
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/progress [get]
func (pc *ProgressController) GetCourseProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	progress, err := pc.Progress.CourseProgress(c.Context(), userID, uint(courseID))
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, progressPayload(progress))
}

// ToggleMaterial flips completion for one material. Completing the
// current material is also the signal the client uses to advance focus
// to the next one.
func (pc *ProgressController) ToggleMaterial(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}
	materialID, err := strconv.Atoi(c.Params("materialId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid material ID")
	}

	progress, err := pc.Progress.ToggleCompletion(c.Context(), userID, uint(courseID), uint(materialID))
	if err != nil {
		return serviceError(c, err)
	}

	pc.Hub.Notify(c.Context(), "progress")
	return utils.Success(c, fiber.StatusOK, progressPayload(progress))
}

func progressPayload(progress *services.CourseProgress) fiber.Map {
	materials := make([]fiber.Map, 0, len(progress.Materials))
	for i, m := range progress.Materials {
		materials = append(materials, fiber.Map{
			"id":             m.ID,
			"title":          m.Title,
			"sequence_index": m.SequenceIndex,
			"completed":      progress.IsCompleted(m.ID),
			"unlocked":       progress.Unlocked(i),
		})
	}
	return fiber.Map{
		"materials":  materials,
		"percentage": progress.Percentage(),
	}
}
