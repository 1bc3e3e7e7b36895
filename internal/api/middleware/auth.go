package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nizami/nizami-backend/internal/auth"
)

// AuthConfig holds the auth middleware configuration
type AuthConfig struct {
	// Validator is nil when authentication is disabled
	Validator *auth.Validator
	Optional  bool // If true, requests without a token pass through
}

// AuthRequired creates a middleware that requires a valid access token
func AuthRequired(validator *auth.Validator) fiber.Handler {
	return AuthMiddleware(AuthConfig{Validator: validator})
}

// AuthMiddleware is the main authentication middleware
func AuthMiddleware(config AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if config.Validator == nil {
			return c.Next()
		}

		token := auth.ExtractTokenFromBearer(c.Get(fiber.HeaderAuthorization))
		// Browsers cannot set headers on websocket upgrades
		if token == "" {
			token = c.Query("token")
		}

		if token == "" {
			if config.Optional {
				return c.Next()
			}
			return fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
		}

		claims, err := config.Validator.ValidateAccessToken(token)
		if err != nil {
			if config.Optional {
				return c.Next()
			}
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("user_role", claims.Role)
		return c.Next()
	}
}

// GetUserID returns the authenticated user, or "" when auth is disabled
func GetUserID(c *fiber.Ctx) string {
	if id, ok := c.Locals("user_id").(string); ok {
		return id
	}
	return ""
}

// IsAuthenticated checks if the request is authenticated
func IsAuthenticated(c *fiber.Ctx) bool {
	return GetUserID(c) != ""
}
