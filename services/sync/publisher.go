package sync

import (
	postgres_models "RinkLink/models/postgres"
	realtime_models "RinkLink/models/realtime"
	redis_service "RinkLink/services/redis"
	"encoding/json"
	"fmt"
	"time"
)

// ChangePublisher fans row-level schedule mutations out to the realtime
// side. Controllers call it after a successful PostgreSQL write; it drops
// the owner's cached snapshot and publishes the change event on the owner's
// Redis channel, where the socket.io relay and any subscribed live store
// pick it up.
type ChangePublisher struct {
	redisClient *redis_service.RedisClient
}

// NewChangePublisher creates a new instance of the change publisher
func NewChangePublisher(redisClient *redis_service.RedisClient) *ChangePublisher {
	return &ChangePublisher{
		redisClient: redisClient,
	}
}

// GameInserted publishes the INSERT event for a freshly created game.
func (cp *ChangePublisher) GameInserted(game *postgres_models.ScheduledGame) error {
	rec := ToGameRecord(game)
	return cp.publish(game.OwnerID, realtime_models.ChangeEvent{
		EventType: realtime_models.EventInsert,
		New:       &rec,
	})
}

// GameUpdated publishes the UPDATE event for a modified game.
func (cp *ChangePublisher) GameUpdated(game *postgres_models.ScheduledGame) error {
	rec := ToGameRecord(game)
	return cp.publish(game.OwnerID, realtime_models.ChangeEvent{
		EventType: realtime_models.EventUpdate,
		New:       &rec,
	})
}

// GameDeleted publishes the DELETE event. Deletes only carry the old record.
func (cp *ChangePublisher) GameDeleted(game *postgres_models.ScheduledGame) error {
	rec := ToGameRecord(game)
	return cp.publish(game.OwnerID, realtime_models.ChangeEvent{
		EventType: realtime_models.EventDelete,
		Old:       &rec,
	})
}

func (cp *ChangePublisher) publish(ownerID string, event realtime_models.ChangeEvent) error {
	// The cached snapshot is stale the moment the row changed.
	if err := cp.redisClient.InvalidateScheduleSnapshot(ownerID); err != nil {
		return fmt.Errorf("error invalidating schedule snapshot: %v", err)
	}
	if err := cp.redisClient.PublishScheduleChange(ownerID, event); err != nil {
		return fmt.Errorf("error publishing schedule change: %v", err)
	}
	return nil
}

// ToGameRecord converts a persisted game row into its wire shape. The
// opponent reference goes out as a plain {id,name} object when it was
// preloaded; display-side normalization tolerates the other shapes older
// query paths produce.
func ToGameRecord(game *postgres_models.ScheduledGame) realtime_models.GameRecord {
	rec := realtime_models.GameRecord{
		ID:           game.ID,
		TeamID:       game.TeamID,
		OwnerID:      game.OwnerID,
		Date:         game.Date.Format(time.RFC3339),
		Time:         game.Date.Format("15:04"),
		Rink:         game.Rink,
		City:         game.City,
		State:        game.State,
		Country:      game.Country,
		OpponentID:   game.OpponentID,
		TournamentID: game.TournamentID,
		GameType:     game.GameType,
		IsHome:       game.IsHome,
	}

	if game.Opponent != nil {
		if data, err := json.Marshal(map[string]string{
			"id":   game.Opponent.ID,
			"name": game.Opponent.Name,
		}); err == nil {
			rec.Opponent = data
		}
	} else if len(game.OpponentInfo) > 0 && string(game.OpponentInfo) != "{}" {
		// No opponents-table row, but the denormalized blob stored at
		// creation still names the other team.
		rec.Opponent = json.RawMessage(game.OpponentInfo)
	}
	if game.Tournament != nil {
		rec.TournamentName = game.Tournament.Name
	}
	return rec
}
