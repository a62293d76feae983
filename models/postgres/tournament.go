package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/google/uuid"
)

/*
 * 'Tournament' groups a set of scheduled games under one event. When a game
 * has no opponent set, the tournament name is what the schedule displays.
 */
type Tournament struct {
	ID        string    `gorm:"primaryKey;size:50;not null"`
	Name      string    `gorm:"size:100;not null"`
	City      string    `gorm:"size:100"`
	State     string    `gorm:"size:50"`
	Country   string    `gorm:"size:50;default:'USA'"`
	StartDate time.Time
	EndDate   time.Time

	Games []*ScheduledGame `gorm:"foreignKey:TournamentID"`
}

func (t *Tournament) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
