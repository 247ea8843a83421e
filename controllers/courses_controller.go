package controllers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"lms/config"
	"lms/live"
	"lms/models"
	"lms/services"
	"lms/utils"
)

var courseCategories = map[string]bool{
	"programming": true,
	"design":      true,
	"business":    true,
	"language":    true,
	"other":       true,
}

type CoursesController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Progress *services.ProgressService
	Hub      *live.Hub
}

func NewCoursesController(db *gorm.DB, cfg *config.Config, progress *services.ProgressService, hub *live.Hub) *CoursesController {
	return &CoursesController{DB: db, Cfg: cfg, Progress: progress, Hub: hub}
}

func (cc *CoursesController) ListCourses(c *fiber.Ctx) error {
	search := c.Query("search")
	category := c.Query("category")

	query := cc.DB.Model(&models.Course{})
	if search != "" {
		query = query.Where("title LIKE ?", "%"+search+"%")
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var courses []models.Course
	if err := query.Order("created_at DESC").Find(&courses).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	result := make([]fiber.Map, 0, len(courses))
	for _, course := range courses {
		var materialCount int64
		cc.DB.Model(&models.Material{}).Where("course_id = ?", course.ID).Count(&materialCount)

		result = append(result, fiber.Map{
			"id":          course.ID,
			"title":       course.Title,
			"description": course.Description,
			"category":    course.Category,
			"image_url":   course.ImageURL,
			"materials":   materialCount,
			"created_at":  course.CreatedAt,
		})
	}
	return utils.Success(c, fiber.StatusOK, result)
}

// GetCourse returns the course with its ordered materials and the
// caller's unlock/completion state per material.
func (cc *CoursesController) GetCourse(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	progress, err := cc.Progress.CourseProgress(c.Context(), userID, uint(courseID))
	if err != nil {
		return serviceError(c, err)
	}

	materials := make([]fiber.Map, 0, len(progress.Materials))
	for i, m := range progress.Materials {
		materials = append(materials, fiber.Map{
			"id":             m.ID,
			"title":          m.Title,
			"description":    m.Description,
			"video_url":      m.VideoURL,
			"sequence_index": m.SequenceIndex,
			"completed":      progress.IsCompleted(m.ID),
			"unlocked":       progress.Unlocked(i),
		})
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"course": fiber.Map{
			"id":          course.ID,
			"title":       course.Title,
			"description": course.Description,
			"category":    course.Category,
			"image_url":   course.ImageURL,
		},
		"materials":  materials,
		"percentage": progress.Percentage(),
	})
}

func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	var input struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		ImageURL    string `json:"image_url"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if strings.TrimSpace(input.Title) == "" {
		return utils.BadRequest(c, "Title is required")
	}
	if input.Category != "" && !courseCategories[input.Category] {
		return utils.BadRequest(c, "Unknown category")
	}

	course := models.Course{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Category:    input.Category,
		ImageURL:    input.ImageURL,
	}
	if err := cc.DB.Create(&course).Error; err != nil {
		return utils.InternalServerError(c, "Could not create course")
	}

	cc.Hub.Notify(c.Context(), "courses")
	return utils.Created(c, course)
}

func (cc *CoursesController) UpdateCourse(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	var input struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Category    *string `json:"category"`
		ImageURL    *string `json:"image_url"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return utils.BadRequest(c, "Title is required")
		}
		course.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		course.Description = *input.Description
	}
	if input.Category != nil {
		if *input.Category != "" && !courseCategories[*input.Category] {
			return utils.BadRequest(c, "Unknown category")
		}
		course.Category = *input.Category
	}
	if input.ImageURL != nil {
		course.ImageURL = *input.ImageURL
	}

	if err := cc.DB.Save(&course).Error; err != nil {
		return utils.InternalServerError(c, "Could not update course")
	}

	cc.Hub.Notify(c.Context(), "courses")
	return utils.Success(c, fiber.StatusOK, course)
}

// DeleteCourse removes the course, its materials, its quizzes and their
// questions, and the progress rows pointing at it. Quiz results are
// kept as history.
func (cc *CoursesController) DeleteCourse(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	err = cc.DB.Transaction(func(tx *gorm.DB) error {
		var quizIDs []uint
		if err := tx.Model(&models.Quiz{}).Where("course_id = ?", course.ID).Pluck("id", &quizIDs).Error; err != nil {
			return err
		}
		if len(quizIDs) > 0 {
			if err := tx.Where("quiz_id IN ?", quizIDs).Delete(&models.Question{}).Error; err != nil {
				return err
			}
			if err := tx.Where("course_id = ?", course.ID).Delete(&models.Quiz{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("course_id = ?", course.ID).Delete(&models.Material{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("course_id = ?", course.ID).Delete(&models.ProgressRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&course).Error
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not delete course")
	}

	cc.Hub.Notify(c.Context(), "courses")
	return utils.NoContent(c)
}
