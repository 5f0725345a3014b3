package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"residence-backend/config"
	"residence-backend/internal/allocation"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client, *StreamPublisher) {
	mr := miniredis.RunT(t)
	cfg := &config.EventsConfig{
		Enabled:   true,
		RedisAddr: mr.Addr(),
		Stream:    "allocation:events",
		MaxLen:    100,
	}
	client := NewRedisClient(cfg)
	t.Cleanup(func() { client.Close() })

	publisher, err := NewStreamPublisher(context.Background(), client, cfg, zap.NewNop())
	require.NoError(t, err)
	return mr, client, publisher
}

func TestStreamPublisher_Append(t *testing.T) {
	_, client, publisher := setupTestRedis(t)
	ctx := context.Background()

	ev := allocation.Event{
		Type:       allocation.EventGuestAllocated,
		RoomID:     4,
		RoomNumber: "101",
		BedID:      9,
		BedNumber:  2,
		GuestID:    77,
		At:         time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	id, err := publisher.Append(ctx, ev)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	entries, err := client.XRange(ctx, "allocation:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	values := entries[0].Values
	assert.Equal(t, "guest_allocated", values["type"])
	assert.Equal(t, "4", values["room_id"])
	assert.Equal(t, "9", values["bed_id"])

	var decoded allocation.Event
	require.NoError(t, json.Unmarshal([]byte(values["data"].(string)), &decoded))
	assert.Equal(t, ev, decoded)
}

func TestStreamPublisher_PublishAsObserver(t *testing.T) {
	_, client, publisher := setupTestRedis(t)
	ctx := context.Background()

	var obs allocation.Observer = publisher
	obs.Publish(ctx, allocation.Event{Type: allocation.EventBedVacated, RoomID: 1, At: time.Now()})
	obs.Publish(ctx, allocation.Event{Type: allocation.EventRoomDeleted, RoomID: 1, At: time.Now()})

	n, err := client.XLen(ctx, "allocation:events").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStreamPublisher_PublishSurvivesOutage(t *testing.T) {
	mr, _, publisher := setupTestRedis(t)
	mr.Close()

	assert.NotPanics(t, func() {
		publisher.Publish(context.Background(), allocation.Event{Type: allocation.EventBedVacated, RoomID: 1})
	})
	_, err := publisher.Append(context.Background(), allocation.Event{Type: allocation.EventBedVacated})
	assert.Error(t, err)
}

func TestNewStreamPublisher_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.EventsConfig{RedisAddr: mr.Addr(), Stream: "s"}
	client := NewRedisClient(cfg)
	defer client.Close()
	mr.Close()

	_, err := NewStreamPublisher(context.Background(), client, cfg, nil)
	assert.Error(t, err)
}
