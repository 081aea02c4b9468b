package services

import "testing"

func TestComputeRatingUpdate(t *testing.T) {
	tests := []struct {
		name     string
		self     int
		opponent int
		result   MatchResult
		want     int
	}{
		{"even win", 1000, 1000, ResultWin, 1016},
		{"even loss", 1000, 1000, ResultLoss, 984},
		{"even draw", 1000, 1000, ResultDraw, 1000},
		{"favorite wins small", 1200, 1000, ResultWin, 1208},
		{"underdog loses small", 1000, 1200, ResultLoss, 992},
		{"underdog wins big", 1000, 1200, ResultWin, 1024},
		{"favorite loses big", 1200, 1000, ResultLoss, 1176},
		{"favorite drops on draw", 1200, 1000, ResultDraw, 1192},
		{"underdog gains on draw", 1000, 1200, ResultDraw, 1008},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRatingUpdate(tt.self, tt.opponent, tt.result)
			if got.NewRating != tt.want {
				t.Errorf("ComputeRatingUpdate(%d, %d, %s) = %d, want %d",
					tt.self, tt.opponent, tt.result, got.NewRating, tt.want)
			}
			if got.NewRating-tt.self != got.Delta {
				t.Errorf("delta %d inconsistent with new rating %d", got.Delta, got.NewRating)
			}
		})
	}
}

// A decided game is zero-sum when both sides are computed from the same
// snapshot.
func TestRatingSymmetry(t *testing.T) {
	pairs := [][2]int{{1000, 1000}, {1200, 1000}, {1500, 900}, {100, 2400}}
	for _, p := range pairs {
		winner := ComputeRatingUpdate(p[0], p[1], ResultWin)
		loser := ComputeRatingUpdate(p[1], p[0], ResultLoss)
		if winner.Delta+loser.Delta != 0 {
			t.Errorf("deltas for %d vs %d not zero-sum: +%d / %d",
				p[0], p[1], winner.Delta, loser.Delta)
		}
	}
}

func TestRatingFloor(t *testing.T) {
	got := ComputeRatingUpdate(110, 110, ResultLoss)
	if got.NewRating != RatingFloor {
		t.Errorf("rating below floor: got %d, want %d", got.NewRating, RatingFloor)
	}
	if ComputeRatingUpdate(100, 2400, ResultLoss).NewRating < RatingFloor {
		t.Error("floor breached on hopeless loss")
	}
}

func TestBonusUpdate(t *testing.T) {
	if got := BonusUpdate(1000, 50); got != 1050 {
		t.Errorf("BonusUpdate(1000, 50) = %d, want 1050", got)
	}
	if got := BonusUpdate(120, -50); got != RatingFloor {
		t.Errorf("negative bonus breached floor: got %d", got)
	}
}

// Lock acquisition order must be a pure function of the pair, never of
// who sat where, or two simultaneous finishes between the same players
// could deadlock.
func TestRankingLockOrder(t *testing.T) {
	a1, b1 := rankingLockOrder("alice", "bob")
	a2, b2 := rankingLockOrder("bob", "alice")
	if a1 != a2 || b1 != b2 {
		t.Errorf("order depends on argument order: (%s,%s) vs (%s,%s)", a1, b1, a2, b2)
	}
	if a1 != "alice" || b1 != "bob" {
		t.Errorf("rankingLockOrder = (%s, %s), want ascending (alice, bob)", a1, b1)
	}
}

func TestInvertResult(t *testing.T) {
	if invertResult(ResultWin) != ResultLoss ||
		invertResult(ResultLoss) != ResultWin ||
		invertResult(ResultDraw) != ResultDraw {
		t.Error("invertResult mapping wrong")
	}
}
