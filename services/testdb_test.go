package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lms/models"
	"lms/utils"
)

// newTestDB opens an isolated in-memory database per test. The shared
// cache keeps the database alive across pooled connections.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, utils.Migrate(db))
	return db
}

func createCourse(t *testing.T, db *gorm.DB, title string) models.Course {
	t.Helper()
	course := models.Course{Title: title, Category: "programming"}
	require.NoError(t, db.Create(&course).Error)
	return course
}

func createMaterials(t *testing.T, db *gorm.DB, courseID uint, titles ...string) []models.Material {
	t.Helper()
	materials := make([]models.Material, 0, len(titles))
	for i, title := range titles {
		m := models.Material{
			CourseID:      courseID,
			Title:         title,
			VideoURL:      "https://videos.example.com/" + title,
			SequenceIndex: i,
		}
		require.NoError(t, db.Create(&m).Error)
		materials = append(materials, m)
	}
	return materials
}

func createUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{Email: email, PasswordHash: "x", Role: "user"}
	require.NoError(t, db.Create(&user).Error)
	return user
}
