package routes

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"lms/cache"
	"lms/config"
	"lms/controllers"
	"lms/live"
	"lms/middleware"
	"lms/services"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, logger *zap.Logger, tokens *cache.TokenCache, hub *live.Hub) {
	progressService := services.NewProgressService(db)
	quizService := services.NewQuizService(db)
	attemptManager := services.NewAttemptManager(db, logger)

	// Auth routes
	authController := controllers.NewAuthController(db, cfg, tokens)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)
	app.Post("/api/auth/logout", authController.Logout)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg, tokens)
	adminMiddleware := middleware.AdminMiddleware(db, cfg)

	// User routes
	usersController := controllers.NewUsersController(db, cfg)
	app.Get("/api/users/profile", authMiddleware, usersController.GetProfile)
	app.Put("/api/users/profile", authMiddleware, usersController.UpdateProfile)
	app.Get("/api/users", authMiddleware, adminMiddleware, usersController.ListUsers)
	app.Put("/api/users/:id/role", authMiddleware, adminMiddleware, usersController.UpdateUserRole)

	// Course routes
	coursesController := controllers.NewCoursesController(db, cfg, progressService, hub)
	courses := app.Group("/api/courses", authMiddleware)
	courses.Get("/", coursesController.ListCourses)
	courses.Get("/:id", coursesController.GetCourse)

	// Progress routes
	progressController := controllers.NewProgressController(db, cfg, progressService, hub)
	courses.Get("/:id/progress", progressController.GetCourseProgress)
	courses.Post("/:id/materials/:materialId/toggle", progressController.ToggleMaterial)

	// Quiz routes for learners
	quizzesController := controllers.NewQuizzesController(db, cfg, quizService, hub)
	courses.Get("/:id/quiz", quizzesController.GetActiveQuiz)
	courses.Get("/:id/quiz/results", quizzesController.GetUserResults)

	// Attempt routes
	attemptsController := controllers.NewAttemptsController(db, cfg, attemptManager)
	attempts := app.Group("/api/attempts", authMiddleware)
	attempts.Post("/quiz/:quizId", attemptsController.StartAttempt)
	attempts.Get("/:sessionId", attemptsController.GetAttempt)
	attempts.Put("/:sessionId/answer", attemptsController.SelectAnswer)
	attempts.Post("/:sessionId/submit", attemptsController.SubmitAttempt)
	attempts.Delete("/:sessionId", attemptsController.AbandonAttempt)

	// Live change streams
	eventsController := controllers.NewEventsController(hub)
	app.Get("/api/events/:collection", authMiddleware, eventsController.Watch)

	// Admin routes for courses and materials
	materialsController := controllers.NewMaterialsController(db, cfg, hub)
	adminCourses := app.Group("/api/admin/courses", authMiddleware, adminMiddleware)
	adminCourses.Post("/", coursesController.CreateCourse)
	adminCourses.Put("/:id", coursesController.UpdateCourse)
	adminCourses.Delete("/:id", coursesController.DeleteCourse)
	adminCourses.Post("/:id/materials", materialsController.CreateMaterial)

	adminMaterials := app.Group("/api/admin/materials", authMiddleware, adminMiddleware)
	adminMaterials.Put("/:id", materialsController.UpdateMaterial)
	adminMaterials.Delete("/:id", materialsController.DeleteMaterial)

	// Admin routes for quizzes
	adminCourses.Get("/:id/quizzes", quizzesController.ListQuizzes)
	adminCourses.Post("/:id/quizzes", quizzesController.CreateQuiz)

	adminQuizzes := app.Group("/api/admin/quizzes", authMiddleware, adminMiddleware)
	adminQuizzes.Put("/:quizId", quizzesController.RenameQuiz)
	adminQuizzes.Put("/:quizId/active", quizzesController.SetQuizActive)
	adminQuizzes.Delete("/:quizId", quizzesController.DeleteQuiz)
	adminQuizzes.Get("/:quizId/questions", quizzesController.ListQuestions)
	adminQuizzes.Post("/:quizId/questions", quizzesController.AddQuestion)
	adminQuizzes.Put("/:quizId/questions/:questionId", quizzesController.UpdateQuestion)
	adminQuizzes.Delete("/:quizId/questions/:questionId", quizzesController.DeleteQuestion)
	adminQuizzes.Get("/:quizId/results", quizzesController.GetQuizResults)
}
