// handlers/ranking.go
package handlers

import (
	"tictactoe-online-system/middleware"
	"tictactoe-online-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRankingRoutes(app *fiber.App, rankingService *services.RankingService) {
	// Leaderboard is public; the self view needs identity.
	app.Get("/rankings", rankingService.GetLeaderboard)

	secured := app.Group("/", middleware.PlayerContextMiddleware())
	secured.Get("/rankings/me", rankingService.GetMyRanking)
}
