package redis

import (
	realtime_models "RinkLink/models/realtime"
	redis_utils "RinkLink/services/redis/utils"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient handles Redis operations
type RedisClient struct {
	Client *redis.Client
	Ctx    context.Context
}

// NewRedisClient creates a new Redis client instance
func NewRedisClient(Addr string, DB int) *RedisClient {
	var client *redis.Client
	if Addr != "localhost:6379" {
		log.Println("Connecting to remote Redis...")
		opt, err := redis.ParseURL(Addr)
		if err != nil {
			panic("Error parsing Redis URL")
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr: Addr,
			DB:   DB,
		})
	}
	return &RedisClient{
		Client: client,
		Ctx:    context.Background(),
	}
}

// PublishScheduleChange publishes a row-level change event on the owner's
// schedule channel. Every connected client of that owner (socket.io relay or
// a direct Redis feed) receives it in publish order.
func (rc *RedisClient) PublishScheduleChange(ownerID string, event realtime_models.ChangeEvent) error {
	channel := redis_utils.FormatScheduleChannel(ownerID)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error marshaling change event: %v", err)
	}
	return rc.Client.Publish(rc.Ctx, channel, data).Err()
}

// SubscribeScheduleChanges subscribes to an owner's schedule channel. The
// caller owns the returned PubSub and must Close it on teardown.
func (rc *RedisClient) SubscribeScheduleChanges(ownerID string) *redis.PubSub {
	channel := redis_utils.FormatScheduleChannel(ownerID)
	return rc.Client.Subscribe(rc.Ctx, channel)
}

// CacheScheduleSnapshot stores the latest full schedule of an owner.
// Key format: "schedule:{ownerID}:snapshot"
// TTL: 1 hour
func (rc *RedisClient) CacheScheduleSnapshot(ownerID string, games []realtime_models.GameRecord) error {
	key := redis_utils.FormatScheduleSnapshotKey(ownerID)
	data, err := json.Marshal(games)
	if err != nil {
		return fmt.Errorf("error marshaling schedule snapshot: %v", err)
	}
	return rc.Client.Set(rc.Ctx, key, data, time.Hour).Err()
}

// GetScheduleSnapshot retrieves an owner's cached schedule, if any.
// Returns redis.Nil wrapped in the error when there is no cached snapshot.
func (rc *RedisClient) GetScheduleSnapshot(ownerID string) ([]realtime_models.GameRecord, error) {
	key := redis_utils.FormatScheduleSnapshotKey(ownerID)
	data, err := rc.Client.Get(rc.Ctx, key).Bytes()
	if err != nil {
		return nil, fmt.Errorf("error getting schedule snapshot: %w", err)
	}

	var games []realtime_models.GameRecord
	if err := json.Unmarshal(data, &games); err != nil {
		return nil, fmt.Errorf("error unmarshaling schedule snapshot: %v", err)
	}
	return games, nil
}

// InvalidateScheduleSnapshot drops the cached schedule of an owner after a
// mutation so the next fetch hits PostgreSQL.
func (rc *RedisClient) InvalidateScheduleSnapshot(ownerID string) error {
	key := redis_utils.FormatScheduleSnapshotKey(ownerID)
	return rc.Client.Del(rc.Ctx, key).Err()
}

// MarkUserPresent records which socket a user is currently connected
// through. No TTL; the disconnect handler clears it.
func (rc *RedisClient) MarkUserPresent(userID, socketID string) error {
	key := redis_utils.FormatPresenceKey(userID)
	return rc.Client.Set(rc.Ctx, key, socketID, 0).Err()
}

// ClearUserPresence drops a user's presence key on disconnect.
func (rc *RedisClient) ClearUserPresence(userID string) error {
	return rc.CleanupKeys([]string{redis_utils.FormatPresenceKey(userID)})
}

// CleanupKeys removes the specified keys from Redis
func (rc *RedisClient) CleanupKeys(keys []string) error {
	for _, key := range keys {
		if err := rc.Client.Del(rc.Ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to cleanup Redis key %s: %v", key, err)
		}
	}
	return nil
}
