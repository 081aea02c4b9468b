package services

import (
	"context"
	"log"
	"sync"

	"github.com/gofiber/fiber/v2"

	"tictactoe-online-system/models"
)

// LobbyService keeps an eventually-consistent cache of joinable matches.
// It refreshes on demand and whenever the change feed reports any match
// insert/update/delete; readers filter out their own matches.
type LobbyService struct {
	Matches *MatchService
	Feed    *MatchFeed

	mu     sync.RWMutex
	cached []models.Match

	// fetch is swappable for tests; defaults to the waiting-match query.
	fetch func() ([]models.Match, error)
}

func NewLobbyService(matches *MatchService, feed *MatchFeed) *LobbyService {
	s := &LobbyService{Matches: matches, Feed: feed}
	s.fetch = func() ([]models.Match, error) {
		var rows []models.Match
		err := matches.DB.
			Where("status = ?", models.StatusWaiting).
			Order("created_at DESC").
			Limit(lobbyListLimit * 2).
			Find(&rows).Error
		if err != nil {
			return nil, storageErr("refresh lobby", err)
		}
		return rows, nil
	}
	return s
}

// Refresh reloads the cache from storage.
func (s *LobbyService) Refresh() error {
	rows, err := s.fetch()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cached = rows
	s.mu.Unlock()
	return nil
}

// List returns cached waiting matches, newest first, excluding the
// viewer's own, capped at the lobby page size.
func (s *LobbyService) List(excludingPlayerID string) []models.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Match, 0, lobbyListLimit)
	for _, m := range s.cached {
		if m.PlayerXID == excludingPlayerID {
			continue
		}
		out = append(out, m)
		if len(out) == lobbyListLimit {
			break
		}
	}
	return out
}

// Watch consumes the unfiltered feed and refreshes the cache on every
// event until ctx is cancelled. Run it in its own goroutine.
func (s *LobbyService) Watch(ctx context.Context) {
	ch := s.Feed.SubscribeAll("lobby-cache")
	defer s.Feed.Unsubscribe("lobby-cache")
	if err := s.Refresh(); err != nil {
		log.Printf("[Lobby] initial refresh: %v", err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			if err := s.Refresh(); err != nil {
				log.Printf("[Lobby] refresh: %v", err)
			}
		}
	}
}

// ListMatches serves the lobby: refresh-on-demand keeps a cold cache from
// showing an empty room right after boot.
func (s *LobbyService) ListMatches(c *fiber.Ctx) error {
	playerID, _ := playerIdentity(c)
	if err := s.Refresh(); err != nil {
		return matchErrorResponse(c, err)
	}
	matches := s.List(playerID)
	return c.JSON(fiber.Map{"matches": matches, "count": len(matches)})
}
