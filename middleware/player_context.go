// middleware/player_context.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PlayerContextMiddleware extracts the caller's player identity and makes
// it available to handlers. Identity travels explicitly on every request
// (headers, or query params for EventSource connections that cannot set
// headers) — there is no ambient identity anywhere in the service.
func PlayerContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		playerID := strings.TrimSpace(c.Get("X-Player-ID"))
		playerName := strings.TrimSpace(c.Get("X-Player-Name"))

		// EventSource fallback: /events endpoints pass identity in the query.
		if playerID == "" {
			playerID = strings.TrimSpace(c.Query("player_id"))
		}
		if playerName == "" {
			playerName = strings.TrimSpace(c.Query("player_name"))
		}

		if playerID == "" {
			log.Printf("❌ [PLAYER_CTX] X-Player-ID missing on %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-Player-ID — every request must carry a player identity",
			})
		}

		c.Locals("player_id", playerID)
		c.Locals("player_name", playerName)
		return c.Next()
	}
}
