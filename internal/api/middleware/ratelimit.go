package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// APIRateLimit limits read endpoints per user, or per IP when anonymous
func APIRateLimit(max int, expiration time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:          max,
		Expiration:   expiration,
		KeyGenerator: keyBy("api"),
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "API rate limit exceeded. Please slow down your requests.",
				"code":  fiber.StatusTooManyRequests,
			})
		},
	})
}

// TurnRateLimit limits chat turns. Failed turns do not count, so a client
// may retry them with the same uuid.
func TurnRateLimit(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:          max,
		Expiration:   1 * time.Minute,
		KeyGenerator: keyBy("turn"),
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Chat rate limit exceeded. Please wait before sending more messages.",
				"code":  fiber.StatusTooManyRequests,
			})
		},
		SkipFailedRequests: true,
	})
}

func keyBy(prefix string) func(c *fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		if userID := GetUserID(c); userID != "" {
			return fmt.Sprintf("%s:user:%s", prefix, userID)
		}
		return fmt.Sprintf("%s:ip:%s", prefix, c.IP())
	}
}
