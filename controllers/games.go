package controllers

import (
	postgres_models "RinkLink/models/postgres"
	realtime_models "RinkLink/models/realtime"
	redis_service "RinkLink/services/redis"
	"RinkLink/services/sync"
	"RinkLink/utils"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GamesController bundles the dependencies of the schedule endpoints.
type GamesController struct {
	DB          *gorm.DB
	RedisClient *redis_service.RedisClient
	Publisher   *sync.ChangePublisher
}

// @Summary Get a user's schedule
// @Description Returns every scheduled game of the games owned by the given user, opponent and tournament resolved
// @Tags games
// @Produce json
// @Param user query string true "Owner user id"
// @Success 200 {array} realtime.GameRecord
// @Failure 400 {object} object{error=string}
// @Failure 500 {object} object{error=string}
// @Router /games [get]
func (gc *GamesController) GetGames(c *gin.Context) {
	ownerID := c.Query("user")
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user query parameter is required"})
		return
	}

	// Serve from the snapshot cache when we can, PostgreSQL otherwise.
	if cached, err := gc.RedisClient.GetScheduleSnapshot(ownerID); err == nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	games, err := gc.loadGames(ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching games"})
		return
	}

	records := make([]realtime_models.GameRecord, 0, len(games))
	for i := range games {
		records = append(records, sync.ToGameRecord(&games[i]))
	}

	if err := gc.RedisClient.CacheScheduleSnapshot(ownerID, records); err != nil {
		log.Printf("Could not cache schedule snapshot for %s: %v", ownerID, err)
	}

	c.JSON(http.StatusOK, records)
}

// @Summary Add a batch of games
// @Description Creates the given games and returns them with their server-assigned ids, in request order
// @Tags games
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param games body []realtime.GameRecord true "Games to create, opponent resolved to an id or null"
// @Success 201 {array} realtime.GameRecord
// @Failure 400 {object} object{error=string}
// @Failure 500 {object} object{error=string}
// @Router /games/add-games [post]
// @Security ApiKeyAuth
func (gc *GamesController) AddGames(c *gin.Context) {
	var incoming []realtime_models.GameRecord
	if err := c.ShouldBindJSON(&incoming); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid games payload"})
		return
	}
	if len(incoming) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No games to add"})
		return
	}

	// Confirmations must come back in request order, the client reconciles
	// its optimistic placeholders positionally.
	confirmed := make([]realtime_models.GameRecord, 0, len(incoming))
	for _, rec := range incoming {
		game, err := recordToModel(rec)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// Placeholder ids stay on the client, the server mints its own.
		game.ID = ""

		if err := gc.DB.Create(game).Error; err != nil {
			log.Printf("Failed to create game: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating game"})
			return
		}

		full, err := gc.loadGame(game.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading created game"})
			return
		}

		if err := gc.Publisher.GameInserted(full); err != nil {
			log.Printf("Could not publish insert for game %s: %v", full.ID, err)
		}
		confirmed = append(confirmed, sync.ToGameRecord(full))
	}

	c.JSON(http.StatusCreated, confirmed)
}

// @Summary Update a game
// @Description Updates a single scheduled game
// @Tags games
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param id path string true "Game id"
// @Param game body realtime.GameRecord true "Updated game, opponent resolved to an id or null"
// @Success 200 {object} realtime.GameRecord
// @Failure 400 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Failure 500 {object} object{error=string}
// @Router /games/{id} [put]
// @Security ApiKeyAuth
func (gc *GamesController) UpdateGame(c *gin.Context) {
	id := c.Param("id")

	var existing postgres_models.ScheduledGame
	if err := gc.DB.Where("id = ?", id).First(&existing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching game"})
		return
	}

	var rec realtime_models.GameRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid game payload"})
		return
	}

	updated, err := recordToModel(rec)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	carryRowIdentity(updated, &existing)

	if err := gc.DB.Save(updated).Error; err != nil {
		log.Printf("Failed to update game %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating game"})
		return
	}

	full, err := gc.loadGame(updated.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading updated game"})
		return
	}

	if err := gc.Publisher.GameUpdated(full); err != nil {
		log.Printf("Could not publish update for game %s: %v", full.ID, err)
	}

	c.JSON(http.StatusOK, sync.ToGameRecord(full))
}

// @Summary Delete a game
// @Description Removes a single scheduled game
// @Tags games
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param id path string true "Game id"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} object{error=string}
// @Failure 500 {object} object{error=string}
// @Router /games/{id} [delete]
// @Security ApiKeyAuth
func (gc *GamesController) DeleteGame(c *gin.Context) {
	id := c.Param("id")

	var existing postgres_models.ScheduledGame
	if err := gc.DB.Where("id = ?", id).First(&existing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching game"})
		return
	}

	if err := gc.DB.Delete(&existing).Error; err != nil {
		log.Printf("Failed to delete game %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting game"})
		return
	}

	if err := gc.Publisher.GameDeleted(&existing); err != nil {
		log.Printf("Could not publish delete for game %s: %v", id, err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Game deleted successfully"})
}

// @Summary Export a user's schedule as CSV
// @Description Returns the full schedule of a user as a CSV download
// @Tags games
// @Produce text/csv
// @Param user query string true "Owner user id"
// @Success 200 {string} string
// @Failure 400 {object} object{error=string}
// @Failure 500 {object} object{error=string}
// @Router /games/export [get]
func (gc *GamesController) ExportSchedule(c *gin.Context) {
	ownerID := c.Query("user")
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user query parameter is required"})
		return
	}

	games, err := gc.loadGames(ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching games"})
		return
	}

	records := make([]realtime_models.GameRecord, 0, len(games))
	for i := range games {
		records = append(records, sync.ToGameRecord(&games[i]))
	}

	data, err := utils.ScheduleCSV(records)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error exporting schedule"})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=schedule.csv")
	c.Data(http.StatusOK, "text/csv", data)
}

func (gc *GamesController) loadGames(ownerID string) ([]postgres_models.ScheduledGame, error) {
	var games []postgres_models.ScheduledGame
	err := gc.DB.
		Preload("Opponent").
		Preload("Tournament").
		Where("owner_id = ?", ownerID).
		Order("date").
		Find(&games).Error
	return games, err
}

func (gc *GamesController) loadGame(id string) (*postgres_models.ScheduledGame, error) {
	var game postgres_models.ScheduledGame
	err := gc.DB.
		Preload("Opponent").
		Preload("Tournament").
		Where("id = ?", id).
		First(&game).Error
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// carryRowIdentity keeps the columns a client cannot change through an
// update: the id, the owning user, and the original creation timestamp.
// Save writes every column, so without this a zero CreatedAt would clobber
// the row's real one.
func carryRowIdentity(updated, existing *postgres_models.ScheduledGame) {
	updated.ID = existing.ID
	updated.OwnerID = existing.OwnerID
	updated.CreatedAt = existing.CreatedAt
	if updated.TeamID == "" {
		updated.TeamID = existing.TeamID
	}
}

// recordToModel converts an incoming wire record into a row. The date is
// accepted either as full RFC3339 or as the shorter "2006-01-02T15:04" the
// frontend forms produce.
func recordToModel(rec realtime_models.GameRecord) (*postgres_models.ScheduledGame, error) {
	date, err := parseGameDate(rec.Date)
	if err != nil {
		return nil, err
	}
	game := &postgres_models.ScheduledGame{
		ID:           rec.ID,
		TeamID:       rec.TeamID,
		OwnerID:      rec.OwnerID,
		Date:         date,
		Rink:         rec.Rink,
		City:         rec.City,
		State:        rec.State,
		Country:      rec.Country,
		OpponentID:   rec.OpponentID,
		TournamentID: rec.TournamentID,
		GameType:     rec.GameType,
		IsHome:       rec.IsHome,
	}
	// Opponents that never made it into the opponents table arrive as a raw
	// JSON blob; persist it so the name survives the round trip.
	if rec.OpponentID == nil && len(rec.Opponent) > 0 && string(rec.Opponent) != "null" {
		game.OpponentInfo = datatypes.JSON(rec.Opponent)
	}
	return game, nil
}

func parseGameDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04", raw); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New("invalid date format, expected ISO-8601")
}
