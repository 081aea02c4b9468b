// handlers/match.go
package handlers

import (
	"tictactoe-online-system/middleware"
	"tictactoe-online-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMatchRoutes(app *fiber.App, matchService *services.MatchService, lobbyService *services.LobbyService, chatService *services.ChatService) {
	// Every match route needs a player identity — moves, joins and even
	// lobby listing are scoped to the caller.
	secured := app.Group("/", middleware.PlayerContextMiddleware())

	secured.Post("/matches", matchService.CreateMatch)
	secured.Get("/matches", lobbyService.ListMatches)
	secured.Get("/matches/events", lobbyService.StreamLobbyEvents)
	secured.Get("/matches/:id", matchService.GetMatch)
	secured.Post("/matches/:id/join", matchService.JoinMatch)
	secured.Post("/matches/:id/moves", matchService.ApplyMove)
	secured.Get("/matches/:id/moves", matchService.ListMoves)
	secured.Post("/matches/:id/rematch", matchService.RequestRematch)
	secured.Delete("/matches/:id", matchService.DeleteMatch)
	secured.Get("/matches/:id/events", matchService.StreamMatchEvents)

	// In-match chat
	secured.Get("/matches/:id/messages", chatService.ListMessages)
	secured.Post("/matches/:id/messages", chatService.PostMessage)
}
