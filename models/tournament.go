package models

import "time"

type TournamentStatus string

const (
	TournamentWaiting    TournamentStatus = "waiting"
	TournamentInProgress TournamentStatus = "in_progress"
	TournamentFinished   TournamentStatus = "finished"
)

// Tournament is a single-elimination bracket of 4 or 8 participants.
type Tournament struct {
	ID         string           `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name       string           `gorm:"not null" json:"name"`
	Slug       string           `gorm:"index" json:"slug"`
	CreatedBy  string           `gorm:"index;not null" json:"created_by"`
	Status     TournamentStatus `gorm:"type:varchar(16);not null;default:'waiting';index" json:"status"`
	MaxPlayers int              `gorm:"not null;check:max_players IN (4,8)" json:"max_players"`

	CurrentRound int     `gorm:"not null;default:0" json:"current_round"`
	WinnerID     *string `json:"winner_id,omitempty"`
	WinnerName   *string `json:"winner_name,omitempty"`

	Participants []TournamentParticipant `gorm:"foreignKey:TournamentID" json:"participants,omitempty"`
	Matches      []TournamentMatch       `gorm:"foreignKey:TournamentID" json:"matches,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TournamentParticipant is one seat in the bracket. A participant
// eliminated in round r never appears in a match of a later round.
type TournamentParticipant struct {
	ID           string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	TournamentID string `gorm:"not null;index;uniqueIndex:idx_tournament_player,priority:1" json:"tournament_id"`
	PlayerID     string `gorm:"not null;uniqueIndex:idx_tournament_player,priority:2" json:"player_id"`
	PlayerName   string `gorm:"not null" json:"player_name"`
	Seed         int    `gorm:"not null;default:0" json:"seed"`
	Eliminated   bool   `gorm:"not null;default:false" json:"eliminated"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

type BracketMatchStatus string

const (
	BracketPending  BracketMatchStatus = "pending"
	BracketPlaying  BracketMatchStatus = "playing"
	BracketFinished BracketMatchStatus = "finished"
)

// TournamentMatch is one bracket slot. Rounds after the first are
// pre-created as placeholders with no players; GameID points at the
// ordinary Match that plays it out once both seats are filled.
type TournamentMatch struct {
	ID           string             `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	TournamentID string             `gorm:"not null;index" json:"tournament_id"`
	Round        int                `gorm:"not null" json:"round"`
	MatchNumber  int                `gorm:"not null" json:"match_number"`
	Player1ID    *string            `json:"player1_id,omitempty"`
	Player1Name  *string            `json:"player1_name,omitempty"`
	Player2ID    *string            `json:"player2_id,omitempty"`
	Player2Name  *string            `json:"player2_name,omitempty"`
	WinnerID     *string            `json:"winner_id,omitempty"`
	GameID       *string            `gorm:"index" json:"game_id,omitempty"`
	Status       BracketMatchStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
