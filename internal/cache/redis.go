package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const eventKeyPrefix = "webhook:event:"

// EventRegistry is a fast replay guard for webhook events. The database
// idempotency guards remain authoritative; this only short-circuits obvious
// redeliveries before any SQL runs.
type EventRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewEventRegistry(client *redis.Client, ttl time.Duration) *EventRegistry {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &EventRegistry{client: client, ttl: ttl}
}

// FirstDelivery marks the event id as seen and reports whether this was the
// first time. SetNX makes the mark-and-check atomic.
func (r *EventRegistry) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	ok, err := r.client.SetNX(ctx, eventKeyPrefix+eventID, 1, r.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Forget removes the seen-mark for an event. Called when processing failed
// after the mark was taken, so the processor's redelivery is not dropped as
// a duplicate.
func (r *EventRegistry) Forget(ctx context.Context, eventID string) error {
	return r.client.Del(ctx, eventKeyPrefix+eventID).Err()
}
