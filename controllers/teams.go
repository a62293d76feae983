package controllers

import (
	"RinkLink/middleware"
	models "RinkLink/models/postgres"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// @Summary List the authenticated user's teams
// @Description Returns the teams managed by the authenticated user
// @Tags teams
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Success 200 {array} object{id=string,name=string,age_group=string,level=string}
// @Failure 500 {object} object{error=string}
// @Router /auth/teams [get]
// @Security ApiKeyAuth
func ListTeams(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := middleware.JWTDecoder(c)
		if err != nil {
			log.Print("Error decoding jwt...")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var teams []models.Team
		if err := db.Preload("Association").Where("manager_id = ?", userID).Find(&teams).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching teams"})
			return
		}

		out := make([]gin.H, 0, len(teams))
		for _, team := range teams {
			out = append(out, gin.H{
				"id":          team.ID,
				"name":        team.Name,
				"age_group":   team.AgeGroup,
				"level":       team.Level,
				"association": team.Association.Name,
			})
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary List known opponents
// @Description Returns the opponents available when scheduling a game
// @Tags teams
// @Produce json
// @Success 200 {array} object{id=string,name=string}
// @Failure 500 {object} object{error=string}
// @Router /opponents [get]
func ListOpponents(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var opponents []models.Opponent
		if err := db.Order("name").Find(&opponents).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching opponents"})
			return
		}

		out := make([]gin.H, 0, len(opponents))
		for _, op := range opponents {
			out = append(out, gin.H{"id": op.ID, "name": op.Name})
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary List tournaments
// @Description Returns the tournaments a game can be scheduled under
// @Tags teams
// @Produce json
// @Success 200 {array} object{id=string,name=string,city=string,state=string}
// @Failure 500 {object} object{error=string}
// @Router /tournaments [get]
func ListTournaments(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tournaments []models.Tournament
		if err := db.Order("start_date").Find(&tournaments).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching tournaments"})
			return
		}

		out := make([]gin.H, 0, len(tournaments))
		for _, t := range tournaments {
			out = append(out, gin.H{
				"id":    t.ID,
				"name":  t.Name,
				"city":  t.City,
				"state": t.State,
			})
		}
		c.JSON(http.StatusOK, out)
	}
}
