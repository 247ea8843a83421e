package controllers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"lms/config"
	"lms/live"
	"lms/models"
	"lms/utils"
)

type MaterialsController struct {
	DB  *gorm.DB
	Cfg *config.Config
	Hub *live.Hub
}

func NewMaterialsController(db *gorm.DB, cfg *config.Config, hub *live.Hub) *MaterialsController {
	return &MaterialsController{DB: db, Cfg: cfg, Hub: hub}
}

// CreateMaterial appends a material to the course sequence. The
// sequence index is assigned inside the transaction so two concurrent
// creates cannot share a slot.
func (mc *MaterialsController) CreateMaterial(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		VideoURL    string `json:"video_url"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if strings.TrimSpace(input.Title) == "" {
		return utils.BadRequest(c, "Title is required")
	}

	var course models.Course
	if err := mc.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	material := models.Material{
		CourseID:    course.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		VideoURL:    input.VideoURL,
	}

	err = mc.DB.Transaction(func(tx *gorm.DB) error {
		var maxIndex int
		if err := tx.Model(&models.Material{}).
			Where("course_id = ?", course.ID).
			Select("COALESCE(MAX(sequence_index), -1)").
			Scan(&maxIndex).Error; err != nil {
			return err
		}
		material.SequenceIndex = maxIndex + 1
		return tx.Create(&material).Error
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not create material")
	}

	mc.Hub.Notify(c.Context(), "materials")
	return utils.Created(c, material)
}

func (mc *MaterialsController) UpdateMaterial(c *fiber.Ctx) error {
	materialID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid material ID")
	}

	var material models.Material
	if err := mc.DB.First(&material, materialID).Error; err != nil {
		return utils.NotFound(c, "Material not found")
	}

	var input struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		VideoURL    *string `json:"video_url"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return utils.BadRequest(c, "Title is required")
		}
		material.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		material.Description = *input.Description
	}
	if input.VideoURL != nil {
		material.VideoURL = *input.VideoURL
	}

	if err := mc.DB.Save(&material).Error; err != nil {
		return utils.InternalServerError(c, "Could not update material")
	}

	mc.Hub.Notify(c.Context(), "materials")
	return utils.Success(c, fiber.StatusOK, material)
}

// DeleteMaterial removes the material and any progress rows pointing at
// it. Remaining materials keep their indexes; the sequence stays
// ordered, just with a gap.
func (mc *MaterialsController) DeleteMaterial(c *fiber.Ctx) error {
	materialID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid material ID")
	}

	var material models.Material
	if err := mc.DB.First(&material, materialID).Error; err != nil {
		return utils.NotFound(c, "Material not found")
	}

	err = mc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("material_id = ?", material.ID).Delete(&models.ProgressRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&material).Error
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not delete material")
	}

	mc.Hub.Notify(c.Context(), "materials")
	return utils.NoContent(c)
}
