// handlers/tournament.go
package handlers

import (
	"tictactoe-online-system/middleware"
	"tictactoe-online-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTournamentRoutes(app *fiber.App, tournamentService *services.TournamentService) {
	secured := app.Group("/", middleware.PlayerContextMiddleware())

	secured.Post("/tournaments", tournamentService.CreateTournament)
	secured.Get("/tournaments", tournamentService.ListTournaments)
	secured.Get("/tournaments/:id", tournamentService.GetTournament)
	secured.Post("/tournaments/:id/join", tournamentService.JoinTournament)
	secured.Post("/tournaments/:id/leave", tournamentService.LeaveTournament)
	secured.Post("/tournaments/:id/start", tournamentService.StartTournament)
}
