package services

import (
	"strings"
	"testing"
)

// The conditional-write guards are the whole concurrency story: every
// precondition a caller observed must be restated in the WHERE clause so
// the authoritative store, not the caller, decides races. Pin each
// predicate so a refactor cannot quietly widen a guard.
func TestConditionalWriteGuards(t *testing.T) {
	tests := []struct {
		name     string
		guard    string
		requires []string
	}{
		{
			"join takes only a vacant waiting match",
			joinGuard,
			[]string{"id = ?", "status = ?", "player_o_id IS NULL", "player_x_id <> ?"},
		},
		{
			"move requires status, turn, version and an empty cell",
			moveGuard,
			[]string{"id = ?", "status = ?", "turn = ?", "version = ?", "substr(board, ?, 1) = '-'"},
		},
		{
			"delete requires waiting status and the host",
			deleteGuard,
			[]string{"id = ?", "status = ?", "player_x_id = ?"},
		},
		{
			"rematch request claims an empty slot",
			rematchClaimGuard,
			[]string{"id = ?", "status = ?", "rematch_requested_by IS NULL"},
		},
		{
			"rematch accept requires the opponent's claim",
			rematchAcceptGuard,
			[]string{"id = ?", "status = ?", "rematch_requested_by = ?"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, pred := range tt.requires {
				if !strings.Contains(tt.guard, pred) {
					t.Errorf("guard %q is missing predicate %q", tt.guard, pred)
				}
			}
			// Exactly the listed predicates, nothing dropped or added.
			if got := strings.Count(tt.guard, " AND ") + 1; got != len(tt.requires) {
				t.Errorf("guard %q has %d predicates, want %d", tt.guard, got, len(tt.requires))
			}
		})
	}
}
