package models

import "time"

// Base rating for a player's first recorded game.
const BaseRating = 1000

// PlayerRanking is the per-player skill record. Rows are created lazily on
// first game completion and only ever mutated with the rating engine's
// output, inside the same transaction as the finishing move.
type PlayerRanking struct {
	ID         string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PlayerID   string `gorm:"uniqueIndex;not null" json:"player_id"`
	PlayerName string `gorm:"not null" json:"player_name"`

	Rating        int `gorm:"not null;default:1000" json:"rating"`
	HighestRating int `gorm:"not null;default:1000" json:"highest_rating"`
	Wins          int `gorm:"not null;default:0" json:"wins"`
	Losses        int `gorm:"not null;default:0" json:"losses"`
	Draws         int `gorm:"not null;default:0" json:"draws"`
	GamesPlayed   int `gorm:"not null;default:0" json:"games_played"`
	WinStreak     int `gorm:"not null;default:0" json:"win_streak"`
	BestStreak    int `gorm:"not null;default:0" json:"best_streak"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
