package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"lms/cache"
	"lms/config"
	"lms/models"
	"lms/utils"
)

type AuthController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Tokens *cache.TokenCache
}

func NewAuthController(db *gorm.DB, cfg *config.Config, tokens *cache.TokenCache) *AuthController {
	return &AuthController{DB: db, Cfg: cfg, Tokens: tokens}
}

type credentialsInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register godoc
// @Summary Register a new user
// @Description Creates a new user account with the default user role
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input credentialsInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	input.Email = strings.TrimSpace(input.Email)
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return utils.BadRequest(c, "Invalid email address")
	}
	if len(input.Password) < 6 {
		return utils.BadRequest(c, "Password must be at least 6 characters")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}

	// Uniqueness is left to the constraint so two concurrent
	// registrations cannot both pass a pre-check.
	user := models.User{
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Role:         "user",
		LastLogin:    time.Now(),
	}
	if err := ac.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.Conflict(c, "Email already in use")
		}
		return utils.InternalServerError(c, "Could not create user")
	}

	token, err := utils.GenerateJWTToken(user.ID, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input credentialsInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var user models.User
	if err := ac.DB.Where("email = ?", strings.TrimSpace(input.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Unauthorized(c, "Invalid credentials")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return utils.Unauthorized(c, "Invalid credentials")
	}

	token, err := utils.GenerateJWTToken(user.ID, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	user.LastLogin = time.Now()
	ac.DB.Save(&user)
	ac.DB.Create(&models.LoginHistory{UserID: user.ID, LoginTime: user.LastLogin})

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// Logout revokes the presented token until its natural expiry.
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	claims, err := utils.ParseToken(c, ac.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	if ac.Tokens != nil {
		jti, _ := claims["jti"].(string)
		if exp, ok := claims["exp"].(float64); ok && jti != "" {
			ttl := time.Until(time.Unix(int64(exp), 0))
			if err := ac.Tokens.Revoke(c.Context(), jti, ttl); err != nil {
				return utils.InternalServerError(c, "Could not revoke token")
			}
		}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "Logged out"})
}
