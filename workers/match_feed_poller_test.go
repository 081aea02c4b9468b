package workers

import (
	"testing"
	"time"

	"tictactoe-online-system/services"
)

// The inclusive cursor re-reads rows stamped exactly at the cursor every
// tick; observe is what keeps those re-reads from being re-published.
func TestObserveSuppressesReReads(t *testing.T) {
	p := NewMatchFeedPoller(nil, nil, time.Second)

	evType, publish := p.observe("m1", 1)
	if !publish || evType != services.EventInserted {
		t.Fatalf("first sighting = (%v, %v), want (inserted, true)", evType, publish)
	}

	if _, publish := p.observe("m1", 1); publish {
		t.Error("same version re-read was published again")
	}

	evType, publish = p.observe("m1", 3)
	if !publish || evType != services.EventUpdated {
		t.Errorf("newer version = (%v, %v), want (updated, true)", evType, publish)
	}

	if _, publish := p.observe("m1", 2); publish {
		t.Error("stale version was published after a newer one")
	}

	evType, publish = p.observe("m2", 5)
	if !publish || evType != services.EventInserted {
		t.Errorf("unseen id = (%v, %v), want (inserted, true)", evType, publish)
	}
}
