package models

import (
	"time"
)

type MatchStatus string

const (
	StatusWaiting  MatchStatus = "waiting"
	StatusPlaying  MatchStatus = "playing"
	StatusFinished MatchStatus = "finished"
	// StatusRematched marks a finished match whose rematch was accepted.
	// The row is archived and deleted shortly after; the marker exists so
	// exactly one of two concurrent acceptors can claim the transition.
	StatusRematched MatchStatus = "rematched"
)

// Match is one online game. The row is the single shared mutable resource
// between the two clients: every mutation is a conditional update carrying
// the preconditions the writer observed, with Version as the
// optimistic-concurrency token.
type Match struct {
	ID          string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PlayerXID   string  `gorm:"index;not null" json:"player_x_id"`
	PlayerXName string  `gorm:"not null" json:"player_x_name"`
	PlayerOID   *string `gorm:"index" json:"player_o_id"`
	PlayerOName *string `json:"player_o_name"`

	Board   string       `gorm:"type:varchar(9);not null;default:'---------'" json:"board"`
	Turn    Seat         `gorm:"type:varchar(1);not null;default:'X'" json:"turn"`
	Status  MatchStatus  `gorm:"type:varchar(16);not null;default:'waiting';index" json:"status"`
	Outcome MatchOutcome `gorm:"type:varchar(8);not null;default:''" json:"outcome"`

	RematchRequestedBy *string `json:"rematch_requested_by,omitempty"`
	// SuccessorID points at the replacement match once a rematch has been
	// accepted, so the other client can follow before this row disappears.
	SuccessorID *string `json:"successor_id,omitempty"`

	// Version increments on every accepted write. Feed consumers drop
	// events that do not carry a newer version than they already hold.
	Version int `gorm:"not null;default:1" json:"version"`

	Moves []MatchMove `gorm:"foreignKey:MatchID" json:"moves,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// MatchMove is one row of the append-only move history, used for replay
// and kept when the match is archived.
type MatchMove struct {
	ID         string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	MatchID    string    `gorm:"index;not null" json:"match_id"`
	MoveNumber int       `gorm:"not null" json:"move_number"`
	Seat       Seat      `gorm:"type:varchar(1);not null" json:"seat"`
	Cell       int       `gorm:"not null" json:"cell"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// SeatOf returns which seat the player holds, if any.
func (m *Match) SeatOf(playerID string) (Seat, bool) {
	if m.PlayerXID == playerID {
		return SeatX, true
	}
	if m.PlayerOID != nil && *m.PlayerOID == playerID {
		return SeatO, true
	}
	return "", false
}

// OpponentID returns the id of the other seat's holder, or "" if vacant.
func (m *Match) OpponentID(seat Seat) string {
	if seat == SeatX {
		if m.PlayerOID == nil {
			return ""
		}
		return *m.PlayerOID
	}
	return m.PlayerXID
}

func (m *Match) SeatName(seat Seat) string {
	if seat == SeatX {
		return m.PlayerXName
	}
	if m.PlayerOName != nil {
		return *m.PlayerOName
	}
	return ""
}

// ValidateMove is the local, synchronous legality check (wrong turn,
// occupied cell, match not in play). The repository write re-checks the
// same guards against the authoritative row, so a stale client's move is
// rejected twice over.
func (m *Match) ValidateMove(seat Seat, cell int) error {
	if m.Status != StatusPlaying {
		return ErrMatchNotPlaying
	}
	if cell < 0 || cell >= BoardSize {
		return ErrInvalidCell
	}
	if m.Turn != seat {
		return ErrNotYourTurn
	}
	if m.Board[cell] != EmptyCell {
		return ErrCellTaken
	}
	return nil
}
