package controllers

import (
	postgres_models "RinkLink/models/postgres"
	realtime_models "RinkLink/models/realtime"
	redis_service "RinkLink/services/redis"
	"RinkLink/services/sync"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Redis pointed at a closed port: every cache call fails fast, which is the
// "cache miss, fall through to PostgreSQL" path.
func unreachableRedis() *redis_service.RedisClient {
	return &redis_service.RedisClient{
		Client: goredis.NewClient(&goredis.Options{Addr: "localhost:63790"}),
		Ctx:    context.Background(),
	}
}

func newMockedController(t *testing.T) (*GamesController, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(pgdriver.New(pgdriver.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	redisClient := unreachableRedis()
	return &GamesController{
		DB:          gormDB,
		RedisClient: redisClient,
		Publisher:   sync.NewChangePublisher(redisClient),
	}, mock
}

func gameColumns() []string {
	return []string{
		"id", "team_id", "owner_id", "date", "rink", "city", "state",
		"country", "opponent_id", "tournament_id", "game_type", "is_home",
		"created_at",
	}
}

func TestGetGames(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gamesController, mock := newMockedController(t)

	router := gin.New()
	router.GET("/games", gamesController.GetGames)

	fmt.Println("Request: GET /games?user=owner1")

	date := time.Date(2025, 1, 4, 19, 30, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM "scheduled_games" WHERE owner_id = \$1`).
		WithArgs("owner1").
		WillReturnRows(sqlmock.NewRows(gameColumns()).
			AddRow("g1", "team1", "owner1", date, "North Rink", "Duluth", "MN",
				"USA", nil, nil, "league", true, date))

	req, _ := http.NewRequest("GET", "/games?user=owner1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	fmt.Println("Response:", w.Body.String())
	assert.Equal(t, http.StatusOK, w.Code)

	var response []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response, 1)
	assert.Equal(t, "g1", response[0]["id"])
	assert.Equal(t, "owner1", response[0]["owner_id"])
	assert.Equal(t, "19:30", response[0]["time"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetGamesMissingUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gamesController, _ := newMockedController(t)

	router := gin.New()
	router.GET("/games", gamesController.GetGames)

	req, _ := http.NewRequest("GET", "/games", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteGame(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gamesController, mock := newMockedController(t)

	router := gin.New()
	router.DELETE("/games/:id", gamesController.DeleteGame)

	fmt.Println("Request: DELETE /games/g1")

	date := time.Date(2025, 1, 4, 19, 30, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM "scheduled_games" WHERE id = \$1`).
		WithArgs("g1", 1).
		WillReturnRows(sqlmock.NewRows(gameColumns()).
			AddRow("g1", "team1", "owner1", date, "North Rink", "Duluth", "MN",
				"USA", nil, nil, "league", true, date))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "scheduled_games"`).
		WithArgs("g1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, _ := http.NewRequest("DELETE", "/games/g1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	fmt.Println("Response:", w.Body.String())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteGameNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gamesController, mock := newMockedController(t)

	router := gin.New()
	router.DELETE("/games/:id", gamesController.DeleteGame)

	mock.ExpectQuery(`SELECT \* FROM "scheduled_games" WHERE id = \$1`).
		WithArgs("missing", 1).
		WillReturnRows(sqlmock.NewRows(gameColumns()))

	req, _ := http.NewRequest("DELETE", "/games/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateGameNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gamesController, mock := newMockedController(t)

	router := gin.New()
	router.PUT("/games/:id", gamesController.UpdateGame)

	mock.ExpectQuery(`SELECT \* FROM "scheduled_games" WHERE id = \$1`).
		WithArgs("missing", 1).
		WillReturnRows(sqlmock.NewRows(gameColumns()))

	body := strings.NewReader(`{"date":"2025-01-01T10:00","rink":"North Rink"}`)
	req, _ := http.NewRequest("PUT", "/games/missing", body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddGamesRejectsEmptyBatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gamesController, _ := newMockedController(t)

	router := gin.New()
	router.POST("/games/add-games", gamesController.AddGames)

	req, _ := http.NewRequest("POST", "/games/add-games", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordToModelKeepsExternalOpponent(t *testing.T) {
	rec := realtime_models.GameRecord{
		Date:     "2025-03-01T12:00",
		Rink:     "South Rink",
		Opponent: json.RawMessage(`{"name":"Visiting Wolves"}`),
	}

	game, err := recordToModel(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Visiting Wolves"}`, string(game.OpponentInfo))

	// A resolved opponent id wins over the blob.
	opponentID := "op1"
	rec.OpponentID = &opponentID
	game, err = recordToModel(rec)
	require.NoError(t, err)
	assert.Empty(t, game.OpponentInfo)
}

func TestCarryRowIdentityPreservesCreatedAt(t *testing.T) {
	created := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	existing := &postgres_models.ScheduledGame{
		ID:        "g1",
		TeamID:    "team1",
		OwnerID:   "owner1",
		CreatedAt: created,
	}
	updated := &postgres_models.ScheduledGame{Rink: "South Rink"}

	carryRowIdentity(updated, existing)
	assert.Equal(t, "g1", updated.ID)
	assert.Equal(t, "owner1", updated.OwnerID)
	assert.Equal(t, "team1", updated.TeamID)
	assert.Equal(t, created, updated.CreatedAt)
}
