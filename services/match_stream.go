package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

const streamKeepalive = 15 * time.Second

// StreamMatchEvents pushes the per-match change feed over SSE. The
// subscriber key is the player id, so a client that switches to another
// match replaces its previous subscription instead of leaking it. The
// first event is always a snapshot of the current row so the client can
// converge regardless of what it missed while connecting.
//
// Subscription happens before the snapshot read: a write committed
// between the two lands either in the snapshot or in the channel, and
// the version gate below discards whichever copy is older. The reverse
// order would lose any write published between read and subscribe.
func (s *MatchService) StreamMatchEvents(c *fiber.Ctx) error {
	matchID := c.Params("id")
	playerID, _ := playerIdentity(c)

	ch := s.Feed.Subscribe(playerID, matchID)
	m, err := s.getMatch(matchID)
	if err != nil {
		s.Feed.Unsubscribe(playerID)
		return matchErrorResponse(c, err)
	}

	setSSEHeaders(c)
	ctx := c.Context()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer s.Feed.Unsubscribe(playerID)

		if !writeSSEEvent(w, MatchEvent{Type: EventUpdated, MatchID: m.ID, Match: m}) {
			return
		}

		keepalive := time.NewTicker(streamKeepalive)
		defer keepalive.Stop()
		lastVersion := m.Version

		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				// Duplicate or out-of-order redelivery is a no-op.
				if ev.Match != nil && ev.Match.Version <= lastVersion {
					continue
				}
				if ev.Match != nil {
					lastVersion = ev.Match.Version
				}
				if !writeSSEEvent(w, ev) {
					return
				}
				if ev.Type == EventDeleted {
					return
				}
			case <-keepalive.C:
				w.WriteString(":\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})
	return nil
}

// StreamLobbyEvents pushes the unfiltered feed, which lobby views use as
// their refresh trigger.
func (s *LobbyService) StreamLobbyEvents(c *fiber.Ctx) error {
	playerID, _ := playerIdentity(c)
	key := "lobby:" + playerID

	setSSEHeaders(c)
	ch := s.Feed.SubscribeAll(key)
	ctx := c.Context()
	feed := s.Feed

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer feed.Unsubscribe(key)

		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		keepalive := time.NewTicker(streamKeepalive)
		defer keepalive.Stop()

		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				// The lobby only cares about waiting-list churn, but any
				// event is a valid refresh trigger; strip the move
				// history to keep the stream light.
				if ev.Match != nil {
					trimmed := *ev.Match
					trimmed.Moves = nil
					ev.Match = &trimmed
				}
				if !writeSSEEvent(w, ev) {
					return
				}
			case <-keepalive.C:
				w.WriteString(":\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})
	return nil
}

func setSSEHeaders(c *fiber.Ctx) {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx
}

func writeSSEEvent(w *bufio.Writer, ev MatchEvent) bool {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[SSE] marshal event for %s: %v", ev.MatchID, err)
		return false
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
	return w.Flush() == nil
}
