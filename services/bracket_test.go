package services

import "testing"

func TestRoundsFor(t *testing.T) {
	if got := roundsFor(4); got != 2 {
		t.Errorf("roundsFor(4) = %d, want 2", got)
	}
	if got := roundsFor(8); got != 3 {
		t.Errorf("roundsFor(8) = %d, want 3", got)
	}
}

func TestMatchesInRound(t *testing.T) {
	tests := []struct {
		players, round, want int
	}{
		{4, 1, 2},
		{4, 2, 1},
		{8, 1, 4},
		{8, 2, 2},
		{8, 3, 1},
	}
	for _, tt := range tests {
		if got := matchesInRound(tt.players, tt.round); got != tt.want {
			t.Errorf("matchesInRound(%d, %d) = %d, want %d",
				tt.players, tt.round, got, tt.want)
		}
	}
}

// An 8-player round of four feeds two semifinals: matches 1 and 2 fill the
// two seats of next-round match 1, matches 3 and 4 fill match 2.
func TestNextSlot(t *testing.T) {
	tests := []struct {
		matchNumber, wantMatch, wantSlot int
	}{
		{1, 1, 1},
		{2, 1, 2},
		{3, 2, 1},
		{4, 2, 2},
	}
	for _, tt := range tests {
		nextMatch, slot := nextSlot(tt.matchNumber)
		if nextMatch != tt.wantMatch || slot != tt.wantSlot {
			t.Errorf("nextSlot(%d) = (%d, %d), want (%d, %d)",
				tt.matchNumber, nextMatch, slot, tt.wantMatch, tt.wantSlot)
		}
	}
}

// Every first-round match must route its winner to a distinct (match, slot)
// pair, so a full bracket never double-seats.
func TestNextSlotCoversBracket(t *testing.T) {
	seen := make(map[[2]int]int)
	for n := 1; n <= 4; n++ {
		next, slot := nextSlot(n)
		key := [2]int{next, slot}
		if prev, dup := seen[key]; dup {
			t.Errorf("matches %d and %d both feed match %d slot %d", prev, n, next, slot)
		}
		seen[key] = n
	}
}
