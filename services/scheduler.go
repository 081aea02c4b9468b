// services/scheduler.go
package services

import (
	"log"
	"os"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const (
	defaultLobbyTTL     = 15 * time.Minute
	defaultMatchIdleTTL = 24 * time.Hour
)

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("⚠️  %s is not a duration, using default %s", key, fallback)
	}
	return fallback
}

// StartMaintenanceScheduler runs the housekeeping this store otherwise
// never gets: waiting matches nobody joined expire after LOBBY_TTL, and
// finished or stalled matches are archived away after MATCH_IDLE_TTL.
func (s *MatchService) StartMaintenanceScheduler() {
	lobbyTTL := envDuration("LOBBY_TTL", defaultLobbyTTL)
	idleTTL := envDuration("MATCH_IDLE_TTL", defaultMatchIdleTTL)

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("[Maintenance] scheduler init failed: %v", err)
		return
	}
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			s.expireIdleMatches(lobbyTTL, idleTTL)
		}),
	)

	log.Printf("[Maintenance] scheduler running (lobby TTL %s, idle TTL %s)", lobbyTTL, idleTTL)
}
