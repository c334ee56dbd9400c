package db

import (
	"time"

	"gorm.io/datatypes"
)

// Match is one completed game. Test runs are never persisted.
type Match struct {
	ID            uint      `gorm:"primaryKey"`
	RoomCode      string    `gorm:"size:12;index;not null"`
	Title         string    `gorm:"size:128;not null"`
	Mode          string    `gorm:"size:16;not null"`
	QuestionCount int       `gorm:"not null;default:0"`
	StartedAt     time.Time `gorm:"not null"`
	FinishedAt    time.Time `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
	Players       []MatchPlayer
	Events        []Event
}

type MatchPlayer struct {
	ID         uint      `gorm:"primaryKey"`
	MatchID    uint      `gorm:"index;not null;uniqueIndex:idx_match_players_match_name"`
	Name       string    `gorm:"size:64;not null;uniqueIndex:idx_match_players_match_name"`
	Score      int       `gorm:"not null;default:0"`
	BonusCount int       `gorm:"not null;default:0"`
	Rank       int       `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// Event is an archived per-question breakdown attached to its match, typed so
// further event kinds can share the table.
type Event struct {
	ID        uint           `gorm:"primaryKey"`
	MatchID   uint           `gorm:"index;not null"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
