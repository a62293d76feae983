package postgres

import (
	"gorm.io/gorm"

	"github.com/google/uuid"
)

/*
 * 'Association' is the governing body a team plays under (e.g. a state or
 * district youth hockey association). Kept minimal, mostly used for lookups.
 */
type Association struct {
	ID      string `gorm:"primaryKey;size:50;not null"`
	Name    string `gorm:"size:100;not null"`
	City    string `gorm:"size:100"`
	State   string `gorm:"size:50"`
	Country string `gorm:"size:50;default:'USA'"`
}

/*
 * 'Team' defines the structure of a managed youth hockey team. It references
 * the managing User and an Association, and owns the scheduled games.
 */
type Team struct {
	ID            string `gorm:"primaryKey;size:50;not null"`
	Name          string `gorm:"size:100;not null"`
	AgeGroup      string `gorm:"size:20"` // e.g. "12U", "14U"
	Level         string `gorm:"size:20"` // e.g. "AA", "A", "B"
	ManagerID     string `gorm:"size:50;index:idx_teams_manager"`
	AssociationID string `gorm:"size:50;index:idx_teams_association"`

	// Relationships
	Manager     User             `gorm:"foreignKey:ManagerID"`
	Association Association      `gorm:"foreignKey:AssociationID"`
	Games       []*ScheduledGame `gorm:"foreignKey:TeamID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (t *Team) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
