package postgres

import (
	"gorm.io/gorm"

	"github.com/google/uuid"
)

/*
 * 'Opponent' is another club's team that a managed team plays against.
 * A scheduled game may reference one, or none when the game belongs to a
 * tournament (the tournament name is shown instead).
 */
type Opponent struct {
	ID            string `gorm:"primaryKey;size:50;not null"`
	Name          string `gorm:"size:100;not null"`
	AssociationID string `gorm:"size:50;index:idx_opponents_association"`

	Association Association `gorm:"foreignKey:AssociationID"`
}

func (o *Opponent) BeforeCreate(tx *gorm.DB) (err error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
