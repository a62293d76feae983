package utils

import (
	"RinkLink/models/postgres"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/gin-gonic/gin"
)

// LoggerMiddleware logs information about each request
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		// Process request
		c.Next()

		latency := time.Since(startTime)

		fmt.Printf("%s %s -> %d (%s)\n",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), latency)
	}
}

// ErrorHandler handles global errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
	}
}

// Function to check if a team exists
func CheckTeamExists(db *gorm.DB, teamID string) (*postgres.Team, error) {
	var team postgres.Team
	result := db.Where("id = ?", teamID).First(&team)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("team not found")
		}
		return nil, result.Error
	}

	return &team, nil
}

// IsTeamManager tells whether the user manages the given team.
func IsTeamManager(db *gorm.DB, teamID string, userID string) (bool, error) {
	var count int64
	err := db.Model(&postgres.Team{}).
		Where("id = ? AND manager_id = ?", teamID, userID).
		Count(&count).Error

	if err != nil {
		return false, err
	}

	return count > 0, nil
}
