package services

import (
	"fmt"
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tictactoe-online-system/models"
)

// Rating constants: K governs how much a single game moves a rating,
// RatingFloor is the hard minimum a rating can fall to.
const (
	KFactor     = 32
	RatingFloor = 100
)

type MatchResult string

const (
	ResultWin  MatchResult = "win"
	ResultLoss MatchResult = "loss"
	ResultDraw MatchResult = "draw"
)

type RatingUpdate struct {
	NewRating int `json:"new_rating"`
	Delta     int `json:"delta"`
}

// expectedScore is the logistic expected result for self against opponent.
func expectedScore(selfRating, opponentRating int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(opponentRating-selfRating)/400.0))
}

// ComputeRatingUpdate computes one side's new rating from a match result.
// Pure and deterministic. The two sides of a match must both be computed
// from the same pre-match snapshot, never chained.
func ComputeRatingUpdate(selfRating, opponentRating int, result MatchResult) RatingUpdate {
	expected := expectedScore(selfRating, opponentRating)
	var actual float64
	switch result {
	case ResultWin:
		actual = 1
	case ResultDraw:
		actual = 0.5
	case ResultLoss:
		actual = 0
	}
	delta := int(math.Round(KFactor * (actual - expected)))
	newRating := selfRating + delta
	if newRating < RatingFloor {
		newRating = RatingFloor
	}
	return RatingUpdate{NewRating: newRating, Delta: delta}
}

// BonusUpdate is the additive mode used for tournament prizes: a flat
// bonus on top of the current rating, still floored.
func BonusUpdate(rating, bonus int) int {
	r := rating + bonus
	if r < RatingFloor {
		r = RatingFloor
	}
	return r
}

// rankingLockOrder fixes the FOR UPDATE acquisition order for a pair of
// ranking rows: always ascending player id, regardless of seats.
func rankingLockOrder(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

func invertResult(r MatchResult) MatchResult {
	switch r {
	case ResultWin:
		return ResultLoss
	case ResultLoss:
		return ResultWin
	default:
		return ResultDraw
	}
}

// ensureRanking lazily creates the player's ranking row at the base rating.
// Existing rows are left untouched.
func ensureRanking(tx *gorm.DB, playerID, playerName string) error {
	row := models.PlayerRanking{
		PlayerID:      playerID,
		PlayerName:    playerName,
		Rating:        models.BaseRating,
		HighestRating: models.BaseRating,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}},
		DoNothing: true,
	}).Create(&row).Error
}

// applyMatchRatings writes both players' rating rows for a decided match.
// Both updates are computed from the same pre-match snapshot taken under
// row locks, so the result is numerically consistent no matter which seat
// the caller held.
func applyMatchRatings(tx *gorm.DB, xID, xName, oID, oName string, xResult MatchResult) error {
	if err := ensureRanking(tx, xID, xName); err != nil {
		return fmt.Errorf("ensure ranking for %s: %w", xID, err)
	}
	if err := ensureRanking(tx, oID, oName); err != nil {
		return fmt.Errorf("ensure ranking for %s: %w", oID, err)
	}

	// Rows are locked in sorted-id order, never seat order, so two games
	// between the same pair finishing at once cannot deadlock each other.
	firstID, secondID := rankingLockOrder(xID, oID)
	var first, second models.PlayerRanking
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&first, "player_id = ?", firstID).Error; err != nil {
		return err
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&second, "player_id = ?", secondID).Error; err != nil {
		return err
	}
	x, o := first, second
	if first.PlayerID != xID {
		x, o = second, first
	}

	oResult := invertResult(xResult)
	xUpdate := ComputeRatingUpdate(x.Rating, o.Rating, xResult)
	oUpdate := ComputeRatingUpdate(o.Rating, x.Rating, oResult)

	if err := applyRankingRow(tx, &x, xUpdate, xResult); err != nil {
		return err
	}
	return applyRankingRow(tx, &o, oUpdate, oResult)
}

func applyRankingRow(tx *gorm.DB, r *models.PlayerRanking, u RatingUpdate, result MatchResult) error {
	r.Rating = u.NewRating
	r.GamesPlayed++
	switch result {
	case ResultWin:
		r.Wins++
		r.WinStreak++
	case ResultLoss:
		r.Losses++
		r.WinStreak = 0
	case ResultDraw:
		r.Draws++
		r.WinStreak = 0
	}
	if r.WinStreak > r.BestStreak {
		r.BestStreak = r.WinStreak
	}
	if r.Rating > r.HighestRating {
		r.HighestRating = r.Rating
	}
	return tx.Save(r).Error
}

// applyRatingBonus adds a flat tournament bonus to a player's rating,
// creating the row at base rating if the player has none yet.
func applyRatingBonus(tx *gorm.DB, playerID, playerName string, bonus int) error {
	if err := ensureRanking(tx, playerID, playerName); err != nil {
		return err
	}
	var r models.PlayerRanking
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&r, "player_id = ?", playerID).Error; err != nil {
		return err
	}
	r.Rating = BonusUpdate(r.Rating, bonus)
	if r.Rating > r.HighestRating {
		r.HighestRating = r.Rating
	}
	return tx.Save(&r).Error
}
