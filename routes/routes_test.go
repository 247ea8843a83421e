package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lms/config"
	"lms/models"
	"lms/utils"
)

func setupApp(t *testing.T) (*fiber.App, *gorm.DB, *config.Config) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, utils.Migrate(db))

	cfg := &config.Config{JWTSecret: "testsecret", ServerPort: "8080"}

	app := fiber.New()
	SetupRoutes(app, db, cfg, zap.NewNop(), nil, nil)
	return app, db, cfg
}

func createAdmin(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	require.NoError(t, err)
	admin := models.User{Email: "admin@example.com", PasswordHash: string(hash), Role: "admin"}
	require.NoError(t, db.Create(&admin).Error)
	return admin
}

func request(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var result map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}

func data(t *testing.T, result map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := result["data"].(map[string]interface{})
	require.True(t, ok, "expected data envelope, got %v", result)
	return d
}

func TestRegisterAndLogin(t *testing.T) {
	app, _, _ := setupApp(t)

	status, result := request(t, app, "POST", "/api/auth/register",
		"", map[string]string{"email": "new@example.com", "password": "secret123"})
	require.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, result["token"])
	assert.Equal(t, "user", result["user"].(map[string]interface{})["role"])

	// Duplicate registration is rejected.
	status, _ = request(t, app, "POST", "/api/auth/register",
		"", map[string]string{"email": "new@example.com", "password": "secret123"})
	assert.Equal(t, fiber.StatusConflict, status)

	status, result = request(t, app, "POST", "/api/auth/login",
		"", map[string]string{"email": "new@example.com", "password": "secret123"})
	require.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, result["token"])

	status, _ = request(t, app, "POST", "/api/auth/login",
		"", map[string]string{"email": "new@example.com", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAdminGuard(t *testing.T) {
	app, _, _ := setupApp(t)

	_, result := request(t, app, "POST", "/api/auth/register",
		"", map[string]string{"email": "user@example.com", "password": "secret123"})
	token := result["token"].(string)

	status, _ := request(t, app, "POST", "/api/admin/courses",
		token, map[string]string{"title": "Nope"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = request(t, app, "GET", "/api/courses", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

// TestLearningScenario walks the whole flow: registration, course and
// material authoring, sequential gating, quiz authoring, a timed
// attempt and its persisted result.
func TestLearningScenario(t *testing.T) {
	app, db, _ := setupApp(t)
	createAdmin(t, db)

	// Learner registers, admin logs in.
	_, result := request(t, app, "POST", "/api/auth/register",
		"", map[string]string{"email": "learner@example.com", "password": "secret123"})
	learnerToken := result["token"].(string)

	_, result = request(t, app, "POST", "/api/auth/login",
		"", map[string]string{"email": "admin@example.com", "password": "password"})
	adminToken := result["token"].(string)

	// Admin creates the course with three materials.
	status, result := request(t, app, "POST", "/api/admin/courses",
		adminToken, map[string]string{"title": "JS Basics", "category": "programming"})
	require.Equal(t, fiber.StatusCreated, status)
	courseID := uint(data(t, result)["ID"].(float64))

	materialIDs := make([]uint, 0, 3)
	for _, title := range []string{"M1", "M2", "M3"} {
		status, result = request(t, app, "POST", fmt.Sprintf("/api/admin/courses/%d/materials", courseID),
			adminToken, map[string]string{"title": title, "video_url": "https://videos.example.com/" + title})
		require.Equal(t, fiber.StatusCreated, status)
		materialIDs = append(materialIDs, uint(data(t, result)["ID"].(float64)))
	}

	// The learner sees M1 unlocked and M2 locked.
	status, result = request(t, app, "GET", fmt.Sprintf("/api/courses/%d", courseID), learnerToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	materials := data(t, result)["materials"].([]interface{})
	require.Len(t, materials, 3)
	assert.True(t, materials[0].(map[string]interface{})["unlocked"].(bool))
	assert.False(t, materials[1].(map[string]interface{})["unlocked"].(bool))

	// Completing M2 before M1 is rejected.
	status, _ = request(t, app, "POST",
		fmt.Sprintf("/api/courses/%d/materials/%d/toggle", courseID, materialIDs[1]), learnerToken, nil)
	assert.Equal(t, fiber.StatusConflict, status)

	// Completing M1 unlocks M2.
	status, result = request(t, app, "POST",
		fmt.Sprintf("/api/courses/%d/materials/%d/toggle", courseID, materialIDs[0]), learnerToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	materials = data(t, result)["materials"].([]interface{})
	assert.True(t, materials[1].(map[string]interface{})["unlocked"].(bool))
	assert.Equal(t, float64(33), data(t, result)["percentage"].(float64))

	// Admin builds and activates the quiz.
	status, result = request(t, app, "POST", fmt.Sprintf("/api/admin/courses/%d/quizzes", courseID),
		adminToken, map[string]string{"title": "Final"})
	require.Equal(t, fiber.StatusCreated, status)
	quizID := uint(data(t, result)["ID"].(float64))

	for i := 0; i < 2; i++ {
		status, _ = request(t, app, "POST", fmt.Sprintf("/api/admin/quizzes/%d/questions", quizID),
			adminToken, map[string]interface{}{
				"text":    fmt.Sprintf("Question %d", i+1),
				"options": []string{"right", "wrong"},
				"answer":  "right",
			})
		require.Equal(t, fiber.StatusCreated, status)
	}

	status, _ = request(t, app, "PUT", fmt.Sprintf("/api/admin/quizzes/%d/active", quizID),
		adminToken, map[string]bool{"active": true})
	require.Equal(t, fiber.StatusOK, status)

	// The learner sees the active quiz without answer keys.
	status, result = request(t, app, "GET", fmt.Sprintf("/api/courses/%d/quiz", courseID), learnerToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	quiz := data(t, result)["quiz"].(map[string]interface{})
	questions := quiz["questions"].([]interface{})
	require.Len(t, questions, 2)
	_, hasAnswer := questions[0].(map[string]interface{})["answer"]
	assert.False(t, hasAnswer, "answer keys are not exposed to learners")

	// Attempt: first question right, second wrong.
	status, result = request(t, app, "POST", fmt.Sprintf("/api/attempts/quiz/%d", quizID), learnerToken, nil)
	require.Equal(t, fiber.StatusCreated, status)
	sessionID := data(t, result)["session_id"].(string)
	assert.Greater(t, data(t, result)["remaining_seconds"].(float64), float64(0))

	q1 := uint(questions[0].(map[string]interface{})["id"].(float64))
	q2 := uint(questions[1].(map[string]interface{})["id"].(float64))

	status, _ = request(t, app, "PUT", "/api/attempts/"+sessionID+"/answer",
		learnerToken, map[string]interface{}{"question_id": q1, "option": "right"})
	require.Equal(t, fiber.StatusOK, status)
	status, _ = request(t, app, "PUT", "/api/attempts/"+sessionID+"/answer",
		learnerToken, map[string]interface{}{"question_id": q2, "option": "wrong"})
	require.Equal(t, fiber.StatusOK, status)

	status, result = request(t, app, "POST", "/api/attempts/"+sessionID+"/submit", learnerToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	submitted := data(t, result)
	assert.Equal(t, float64(1), submitted["Score"])
	assert.Equal(t, float64(50), submitted["Percentage"])
	assert.Equal(t, false, submitted["IsPassed"])

	// The result is persisted and retrievable.
	status, result = request(t, app, "GET", fmt.Sprintf("/api/courses/%d/quiz/results", courseID), learnerToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	results := result["data"].([]interface{})
	require.Len(t, results, 1)
}
