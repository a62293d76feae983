package livestore

import (
	realtime_models "RinkLink/models/realtime"
	redis_service "RinkLink/services/redis"
	"encoding/json"
	"log"
)

// ChangeFeed is the push-channel side of the store: an unbounded stream of
// row-level change events already scoped to one owner. Close releases the
// underlying subscription; leaking it leaks a long-lived connection.
type ChangeFeed interface {
	Events() <-chan realtime_models.ChangeEvent
	Close() error
}

// FeedFactory opens a fresh subscription for an owner. The store calls it
// once per Initialize so re-initializing always gets a new subscription.
type FeedFactory func(ownerID string) (ChangeFeed, error)

// NewRedisFeed returns a FeedFactory backed by the shared Redis client.
// Channel scoping already filters out events for unrelated owners, so no
// filtering happens here.
func NewRedisFeed(rc *redis_service.RedisClient) FeedFactory {
	return func(ownerID string) (ChangeFeed, error) {
		pubsub := rc.SubscribeScheduleChanges(ownerID)

		f := &feed{
			events:  make(chan realtime_models.ChangeEvent),
			done:    make(chan struct{}),
			release: pubsub.Close,
		}

		go func() {
			defer close(f.events)
			ch := pubsub.Channel()
			for {
				select {
				case msg, ok := <-ch:
					if !ok {
						return
					}
					var event realtime_models.ChangeEvent
					if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
						log.Printf("Dropping malformed change event: %v", err)
						continue
					}
					select {
					case f.events <- event:
					case <-f.done:
						return
					}
				case <-f.done:
					return
				}
			}
		}()

		return f, nil
	}
}

// feed is the concrete ChangeFeed used both by the Redis factory and, with a
// locally written events channel, by tests.
type feed struct {
	events  chan realtime_models.ChangeEvent
	done    chan struct{}
	release func() error
}

func (f *feed) Events() <-chan realtime_models.ChangeEvent {
	return f.events
}

func (f *feed) Close() error {
	select {
	case <-f.done:
		return nil
	default:
	}
	close(f.done)
	if f.release != nil {
		return f.release()
	}
	return nil
}
