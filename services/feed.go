package services

import (
	"log"
	"sync"

	"tictactoe-online-system/models"
)

type MatchEventType string

const (
	EventInserted MatchEventType = "inserted"
	EventUpdated  MatchEventType = "updated"
	EventDeleted  MatchEventType = "deleted"
)

// MatchEvent is the tagged change-feed payload. Deleted events carry only
// the id; inserted/updated carry the full row.
type MatchEvent struct {
	Type    MatchEventType `json:"type"`
	MatchID string         `json:"match_id"`
	Match   *models.Match  `json:"match,omitempty"`
}

const feedBuffer = 16

type feedSub struct {
	matchID string // "" means unfiltered (lobby)
	ch      chan MatchEvent
}

// MatchFeed fans change events out to subscribers. A subscriber key holds
// at most one active subscription: subscribing the same key again tears
// the previous one down first, so a client switching matches never leaks
// its old subscription.
type MatchFeed struct {
	mu   sync.Mutex
	subs map[string]*feedSub
}

func NewMatchFeed() *MatchFeed {
	return &MatchFeed{subs: make(map[string]*feedSub)}
}

// Subscribe registers subscriber key for events about one match.
// Any previous subscription under the same key is closed.
func (f *MatchFeed) Subscribe(key, matchID string) <-chan MatchEvent {
	return f.subscribe(key, matchID)
}

// SubscribeAll registers subscriber key for events about every match,
// which is what the lobby list watches.
func (f *MatchFeed) SubscribeAll(key string) <-chan MatchEvent {
	return f.subscribe(key, "")
}

func (f *MatchFeed) subscribe(key, matchID string) <-chan MatchEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prev, ok := f.subs[key]; ok {
		close(prev.ch)
	}
	sub := &feedSub{matchID: matchID, ch: make(chan MatchEvent, feedBuffer)}
	f.subs[key] = sub
	return sub.ch
}

// Unsubscribe releases the subscription held by key, if any.
func (f *MatchFeed) Unsubscribe(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub, ok := f.subs[key]; ok {
		close(sub.ch)
		delete(f.subs, key)
	}
}

// Publish delivers an event to every interested subscriber in order.
// A subscriber that has fallen feedBuffer events behind loses its oldest
// event; consumers already tolerate gaps by comparing versions and
// resyncing from the snapshot endpoint.
func (f *MatchFeed) Publish(ev MatchEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, sub := range f.subs {
		if sub.matchID != "" && sub.matchID != ev.MatchID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- ev:
			default:
				log.Printf("[Feed] dropping event for slow subscriber %s", key)
			}
		}
	}
}

// SubscriberCount reports active subscriptions, for logging and tests.
func (f *MatchFeed) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
