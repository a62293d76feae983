package postgres

import (
	"time"
)

/*
 * 'User' contains the blueprint definition of a User. A user owns the teams
 * they manage and, through those, the scheduled games.
 */
type User struct {
	ID           string    `gorm:"primaryKey;size:50;not null"`
	Email        string    `gorm:"size:100;not null;uniqueIndex"`
	PasswordHash string    `gorm:"size:255;not null"`
	FullName     string    `gorm:"size:100"`
	MemberSince  time.Time `gorm:"default:CURRENT_TIMESTAMP"`

	// Teams managed by this user
	Teams []*Team `gorm:"foreignKey:ManagerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
