package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tictactoe-online-system/handlers"
	"tictactoe-online-system/middleware"
	"tictactoe-online-system/models"
	"tictactoe-online-system/services"
	"tictactoe-online-system/utils"
	"tictactoe-online-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		AppName: "tictactoe-online-system",
	})

	// 🔐 GLOBAL: only Gateway requests allowed (open in standalone mode)
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-Player-ID, X-Player-Name",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	// R2 archival is optional; without credentials finished matches are
	// deleted without an archive copy.
	if err := utils.InitR2(); err != nil {
		log.Printf("⚠️  R2 archive disabled: %v", err)
	}

	// TranslateError maps driver unique-violation errors to
	// gorm.ErrDuplicatedKey, which the tournament join path relies on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Match{},
		&models.MatchMove{},
		&models.MatchMessage{},
		&models.PlayerRanking{},
		&models.Tournament{},
		&models.TournamentParticipant{},
		&models.TournamentMatch{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	feed := services.NewMatchFeed()
	matchService := services.NewMatchService(db, feed)
	tournamentService := services.NewTournamentService(db)
	matchService.Tournaments = tournamentService
	lobbyService := services.NewLobbyService(matchService, feed)
	chatService := services.NewChatService(db, matchService)
	rankingService := services.NewRankingService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller := workers.NewMatchFeedPoller(db, feed, time.Second)
	go poller.Run(ctx)
	go lobbyService.Watch(ctx)

	matchService.StartMaintenanceScheduler()

	handlers.SetupMatchRoutes(app, matchService, lobbyService, chatService)
	handlers.SetupTournamentRoutes(app, tournamentService)
	handlers.SetupRankingRoutes(app, rankingService)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Match feed poller running (every 1s)")
	log.Println("✅ Maintenance scheduler running")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
