package postgres

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/google/uuid"
)

/*
 * 'ScheduledGame' is one entry in a team's schedule. Exactly one row per id;
 * ids are never reused. OpponentID is nullable: tournament games carry a
 * TournamentID instead and the schedule falls back to the tournament name.
 */
type ScheduledGame struct {
	ID           string    `gorm:"primaryKey;size:50;not null"`
	TeamID       string    `gorm:"size:50;not null;index:idx_games_team"`
	OwnerID      string    `gorm:"size:50;not null;index:idx_games_owner"` // managing user, scopes the realtime channel
	Date         time.Time `gorm:"not null;index:idx_games_date"`
	Rink         string    `gorm:"size:100"`
	City         string    `gorm:"size:100"`
	State        string    `gorm:"size:50"`
	Country      string    `gorm:"size:50;default:'USA'"`
	OpponentID   *string   `gorm:"size:50;index:idx_games_opponent"`
	TournamentID *string   `gorm:"size:50;index:idx_games_tournament"`
	// Denormalized opponent blob for teams outside the opponents table,
	// e.g. a one-off tournament matchup submitted as {"name": ...}.
	OpponentInfo datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
	GameType     string         `gorm:"size:30"` // "league", "exhibition", "tournament", ...
	IsHome       bool           `gorm:"default:false"`
	CreatedAt    time.Time      `gorm:"default:CURRENT_TIMESTAMP"`

	// Relationships
	Team       Team        `gorm:"foreignKey:TeamID"`
	Opponent   *Opponent   `gorm:"foreignKey:OpponentID"`
	Tournament *Tournament `gorm:"foreignKey:TournamentID"`
}

// Server-assigned ids are uuids, same shape as the client-side placeholders
// but minted here so they are authoritative.
func (g *ScheduledGame) BeforeCreate(tx *gorm.DB) (err error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}
