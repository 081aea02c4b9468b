package models

import "time"

// MatchMessage is one chat line inside a match. Messages ride the same
// storage and are fetched alongside the match they belong to.
type MatchMessage struct {
	ID         string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	MatchID    string    `gorm:"index;not null" json:"match_id"`
	SenderID   string    `gorm:"not null" json:"sender_id"`
	SenderName string    `gorm:"not null" json:"sender_name"`
	Seat       Seat      `gorm:"type:varchar(1);not null" json:"seat"`
	Body       string    `gorm:"type:varchar(280);not null" json:"body"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}
