package middleware

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"lms/cache"
	"lms/config"
	"lms/models"
	"lms/utils"
)

// AuthMiddleware validates the JWT and rejects tokens revoked by
// logout. The revocation check is skipped when no token cache is
// configured.
func AuthMiddleware(cfg *config.Config, tokens *cache.TokenCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := utils.ParseToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}

		if tokens != nil {
			jti, _ := claims["jti"].(string)
			if jti != "" {
				revoked, err := tokens.IsRevoked(c.Context(), jti)
				if err == nil && revoked {
					return utils.Unauthorized(c, "Token revoked")
				}
			}
		}

		if userID, ok := claims["user_id"].(float64); ok {
			c.Locals("userID", uint(userID))
		}
		return c.Next()
	}
}

// AdminMiddleware loads the caller's user row and requires the admin
// role. Role is the only authorization axis.
func AdminMiddleware(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := utils.ExtractUserIDFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		if !user.IsAdmin() {
			return utils.Forbidden(c, "Forbidden - Admin access required")
		}

		return c.Next()
	}
}
