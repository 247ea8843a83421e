package services

import (
	"context"
	"errors"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lms/models"
)

// ProgressService owns the sequential unlock state machine: a learner
// may only access material i once material i-1 is completed, and
// completion is a toggle persisted as a ProgressRecord row.
type ProgressService struct {
	DB *gorm.DB
}

func NewProgressService(db *gorm.DB) *ProgressService {
	return &ProgressService{DB: db}
}

// CourseProgress is a snapshot of one (user, course) pair: the ordered
// material sequence plus the set of completed material ids. Unlock
// state is always recomputed from the set, never cached, so removing a
// completion re-locks everything after it.
type CourseProgress struct {
	Materials []models.Material
	Completed map[uint]bool
}

func (p *CourseProgress) IsCompleted(materialID uint) bool {
	return p.Completed[materialID]
}

func (p *CourseProgress) Unlocked(index int) bool {
	if index < 0 || index >= len(p.Materials) {
		return false
	}
	if index == 0 {
		return true
	}
	return p.Completed[p.Materials[index-1].ID]
}

func (p *CourseProgress) Percentage() int {
	if len(p.Materials) == 0 {
		return 0
	}
	// Count against the current material list so records left behind by
	// a deleted material cannot inflate the percentage.
	done := 0
	for _, m := range p.Materials {
		if p.Completed[m.ID] {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(p.Materials)) * 100))
}

func (p *CourseProgress) indexOf(materialID uint) int {
	for i, m := range p.Materials {
		if m.ID == materialID {
			return i
		}
	}
	return -1
}

// CourseProgress loads the snapshot for a user and course.
func (s *ProgressService) CourseProgress(ctx context.Context, userID, courseID uint) (*CourseProgress, error) {
	return loadCourseProgress(s.DB.WithContext(ctx), userID, courseID)
}

func loadCourseProgress(db *gorm.DB, userID, courseID uint) (*CourseProgress, error) {
	var course models.Course
	if err := db.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("course %d", courseID)
		}
		return nil, storageErr("load course", err)
	}

	var materials []models.Material
	if err := db.Where("course_id = ?", courseID).
		Order("sequence_index ASC").
		Find(&materials).Error; err != nil {
		return nil, storageErr("load materials", err)
	}

	var records []models.ProgressRecord
	if err := db.Where("user_id = ? AND course_id = ?", userID, courseID).
		Find(&records).Error; err != nil {
		return nil, storageErr("load progress records", err)
	}

	completed := make(map[uint]bool, len(records))
	for _, r := range records {
		completed[r.MaterialID] = true
	}

	return &CourseProgress{Materials: materials, Completed: completed}, nil
}

// ToggleCompletion flips the completion state of one material. Marking
// a locked material either way is rejected. The insert ignores
// duplicate (user, material) rows and the delete is keyed the same way,
// so repeated toggles stay idempotent. The returned snapshot is
// re-read after the write and reflects persisted truth.
func (s *ProgressService) ToggleCompletion(ctx context.Context, userID, courseID, materialID uint) (*CourseProgress, error) {
	db := s.DB.WithContext(ctx)

	err := db.Transaction(func(tx *gorm.DB) error {
		progress, err := loadCourseProgress(tx, userID, courseID)
		if err != nil {
			return err
		}

		index := progress.indexOf(materialID)
		if index < 0 {
			return notFoundErr("material %d in course %d", materialID, courseID)
		}
		if !progress.Unlocked(index) {
			return preconditionErr("material %d is locked", materialID)
		}

		if progress.IsCompleted(materialID) {
			if err := tx.Unscoped().
				Where("user_id = ? AND material_id = ?", userID, materialID).
				Delete(&models.ProgressRecord{}).Error; err != nil {
				return storageErr("delete progress record", err)
			}
			return nil
		}

		record := models.ProgressRecord{
			UserID:      userID,
			MaterialID:  materialID,
			CourseID:    courseID,
			CompletedAt: time.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "material_id"}},
			DoNothing: true,
		}).Create(&record).Error; err != nil {
			return storageErr("create progress record", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return loadCourseProgress(db, userID, courseID)
}
