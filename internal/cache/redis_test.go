package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func getTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestFirstDelivery(t *testing.T) {
	client := getTestRedis(t)
	defer client.Close()

	registry := NewEventRegistry(client, time.Minute)
	ctx := context.Background()
	eventID := "evt_test_" + uuid.NewString()
	t.Cleanup(func() {
		client.Del(context.Background(), eventKeyPrefix+eventID)
	})

	first, err := registry.FirstDelivery(ctx, eventID)
	if err != nil {
		t.Fatalf("FirstDelivery() error = %v", err)
	}
	if !first {
		t.Error("FirstDelivery() = false on first sighting")
	}

	second, err := registry.FirstDelivery(ctx, eventID)
	if err != nil {
		t.Fatalf("FirstDelivery() error = %v", err)
	}
	if second {
		t.Error("FirstDelivery() = true on redelivery")
	}
}

func TestForget_FreesEventForRedelivery(t *testing.T) {
	client := getTestRedis(t)
	defer client.Close()

	registry := NewEventRegistry(client, time.Minute)
	ctx := context.Background()
	eventID := "evt_forget_" + uuid.NewString()
	t.Cleanup(func() {
		client.Del(context.Background(), eventKeyPrefix+eventID)
	})

	if _, err := registry.FirstDelivery(ctx, eventID); err != nil {
		t.Fatalf("FirstDelivery() error = %v", err)
	}
	if err := registry.Forget(ctx, eventID); err != nil {
		t.Fatalf("Forget() error = %v", err)
	}

	again, err := registry.FirstDelivery(ctx, eventID)
	if err != nil {
		t.Fatalf("FirstDelivery() error = %v", err)
	}
	if !again {
		t.Error("event id still marked after Forget")
	}
}

func TestFirstDelivery_KeysExpire(t *testing.T) {
	client := getTestRedis(t)
	defer client.Close()

	registry := NewEventRegistry(client, 50*time.Millisecond)
	ctx := context.Background()
	eventID := "evt_ttl_" + uuid.NewString()

	if _, err := registry.FirstDelivery(ctx, eventID); err != nil {
		t.Fatalf("FirstDelivery() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	again, err := registry.FirstDelivery(ctx, eventID)
	if err != nil {
		t.Fatalf("FirstDelivery() error = %v", err)
	}
	if !again {
		t.Error("event id still marked after its ttl elapsed")
	}
	client.Del(ctx, eventKeyPrefix+eventID)
}
