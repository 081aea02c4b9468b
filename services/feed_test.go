package services

import (
	"sync"
	"testing"
	"time"

	"tictactoe-online-system/models"
)

func recvEvent(t *testing.T, ch <-chan MatchEvent) MatchEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before event arrived")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return MatchEvent{}
}

func TestFeedFiltersByMatch(t *testing.T) {
	feed := NewMatchFeed()
	chA := feed.Subscribe("viewer-a", "match-1")
	chB := feed.Subscribe("viewer-b", "match-2")

	feed.Publish(MatchEvent{Type: EventUpdated, MatchID: "match-1", Match: &models.Match{ID: "match-1"}})

	ev := recvEvent(t, chA)
	if ev.MatchID != "match-1" || ev.Type != EventUpdated {
		t.Errorf("got event %+v, want updated match-1", ev)
	}
	select {
	case ev := <-chB:
		t.Errorf("subscriber for match-2 received %+v", ev)
	default:
	}
}

func TestFeedSubscribeAll(t *testing.T) {
	feed := NewMatchFeed()
	ch := feed.SubscribeAll("lobby")

	feed.Publish(MatchEvent{Type: EventInserted, MatchID: "match-1"})
	feed.Publish(MatchEvent{Type: EventDeleted, MatchID: "match-2"})

	if ev := recvEvent(t, ch); ev.Type != EventInserted {
		t.Errorf("first event = %q, want inserted", ev.Type)
	}
	if ev := recvEvent(t, ch); ev.Type != EventDeleted || ev.MatchID != "match-2" {
		t.Errorf("second event = %+v, want deleted match-2", ev)
	}
}

// Re-subscribing under the same key must close the old channel, so a
// client hopping matches never leaks its previous subscription.
func TestFeedResubscribeClosesPrevious(t *testing.T) {
	feed := NewMatchFeed()
	old := feed.Subscribe("viewer", "match-1")
	_ = feed.Subscribe("viewer", "match-2")

	select {
	case _, ok := <-old:
		if ok {
			t.Error("old channel delivered an event instead of closing")
		}
	case <-time.After(time.Second):
		t.Error("old channel not closed on resubscribe")
	}
	if n := feed.SubscriberCount(); n != 1 {
		t.Errorf("SubscriberCount = %d, want 1", n)
	}
}

func TestFeedUnsubscribe(t *testing.T) {
	feed := NewMatchFeed()
	ch := feed.Subscribe("viewer", "match-1")
	feed.Unsubscribe("viewer")

	if _, ok := <-ch; ok {
		t.Error("channel open after Unsubscribe")
	}
	if n := feed.SubscriberCount(); n != 0 {
		t.Errorf("SubscriberCount = %d, want 0", n)
	}
	// Unsubscribing a key twice is a no-op.
	feed.Unsubscribe("viewer")
}

// A subscriber that stops draining loses oldest events, never blocks the
// publisher, and keeps the newest event available.
func TestFeedSlowSubscriberDropsOldest(t *testing.T) {
	feed := NewMatchFeed()
	ch := feed.Subscribe("slow", "match-1")

	total := feedBuffer + 5
	for i := 0; i < total; i++ {
		feed.Publish(MatchEvent{
			Type:    EventUpdated,
			MatchID: "match-1",
			Match:   &models.Match{ID: "match-1", Version: i + 1},
		})
	}

	var got []int
	for {
		select {
		case ev := <-ch:
			got = append(got, ev.Match.Version)
		default:
			if len(got) != feedBuffer {
				t.Fatalf("buffered %d events, want %d", len(got), feedBuffer)
			}
			if last := got[len(got)-1]; last != total {
				t.Errorf("newest buffered version = %d, want %d", last, total)
			}
			return
		}
	}
}

// An event published right after Subscribe must survive until the
// consumer starts reading. Streaming handlers rely on this: they
// subscribe before fetching their snapshot, so a write landing between
// the two waits in the buffer instead of vanishing.
func TestFeedRetainsEventsPublishedBeforeConsumption(t *testing.T) {
	feed := NewMatchFeed()

	// Published before any subscription: gone, which is exactly why the
	// snapshot must be read after subscribing.
	feed.Publish(MatchEvent{Type: EventUpdated, MatchID: "match-1", Match: &models.Match{ID: "match-1", Version: 2}})

	ch := feed.Subscribe("viewer", "match-1")
	feed.Publish(MatchEvent{Type: EventUpdated, MatchID: "match-1", Match: &models.Match{ID: "match-1", Version: 3, Status: models.StatusFinished}})

	ev := recvEvent(t, ch)
	if ev.Match == nil || ev.Match.Version != 3 {
		t.Fatalf("got %+v, want the buffered version-3 event", ev)
	}
	if ev.Match.Status != models.StatusFinished {
		t.Errorf("status = %q, want finished", ev.Match.Status)
	}
	select {
	case stray := <-ch:
		t.Errorf("pre-subscription event leaked through: %+v", stray)
	default:
	}
}

// A rematched row must reach subscribers with its successor pointer
// before its deletion event, in publish order, so the losing client can
// follow to the new match.
func TestFeedDeliversSuccessorBeforeDeletion(t *testing.T) {
	feed := NewMatchFeed()
	ch := feed.Subscribe("viewer", "match-1")

	successorID := "match-2"
	feed.Publish(MatchEvent{
		Type:    EventUpdated,
		MatchID: "match-1",
		Match:   &models.Match{ID: "match-1", Status: models.StatusRematched, SuccessorID: &successorID, Version: 9},
	})
	feed.Publish(MatchEvent{Type: EventDeleted, MatchID: "match-1"})

	first := recvEvent(t, ch)
	if first.Type != EventUpdated || first.Match == nil || first.Match.SuccessorID == nil {
		t.Fatalf("first event %+v, want the rematched update carrying the successor", first)
	}
	if *first.Match.SuccessorID != successorID {
		t.Errorf("successor = %q, want %q", *first.Match.SuccessorID, successorID)
	}
	if second := recvEvent(t, ch); second.Type != EventDeleted {
		t.Errorf("second event = %q, want deleted", second.Type)
	}
}

func TestFeedConcurrentPublish(t *testing.T) {
	feed := NewMatchFeed()
	ch := feed.SubscribeAll("watcher")

	done := make(chan struct{})
	var received int
	go func() {
		defer close(done)
		for range ch {
			received++
		}
	}()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				feed.Publish(MatchEvent{Type: EventUpdated, MatchID: "match-1"})
			}
		}()
	}
	wg.Wait()
	feed.Unsubscribe("watcher")
	<-done

	if received == 0 {
		t.Error("concurrent publishes delivered nothing")
	}
}
