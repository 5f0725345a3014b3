package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"residence-backend/config"
	"residence-backend/internal/allocation"
)

const publishTimeout = 2 * time.Second

// StreamPublisher appends allocation events to a capped Redis stream.
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	log    *zap.Logger
}

// NewRedisClient creates a client for the events Redis.
func NewRedisClient(cfg *config.EventsConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewStreamPublisher pings client and returns a publisher writing to cfg.Stream.
func NewStreamPublisher(ctx context.Context, client *redis.Client, cfg *config.EventsConfig, log *zap.Logger) (*StreamPublisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
	}
	return &StreamPublisher{
		client: client,
		stream: cfg.Stream,
		maxLen: cfg.MaxLen,
		log:    log.Named("events"),
	}, nil
}

// Publish writes ev to the stream. Failures are logged and dropped.
func (p *StreamPublisher) Publish(ctx context.Context, ev allocation.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if _, err := p.Append(ctx, ev); err != nil {
		p.log.Warn("failed to publish allocation event", zap.String("event", string(ev.Type)), zap.Error(err))
	}
}

// Append writes ev to the stream and returns the entry id.
func (p *StreamPublisher) Append(ctx context.Context, ev allocation.Event) (string, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":      string(ev.Type),
			"room_id":   strconv.FormatInt(ev.RoomID, 10),
			"bed_id":    strconv.FormatInt(ev.BedID, 10),
			"data":      string(data),
			"timestamp": strconv.FormatInt(ev.At.Unix(), 10),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to append to stream %s: %w", p.stream, err)
	}
	return id, nil
}

// Close closes the underlying client.
func (p *StreamPublisher) Close() error {
	return p.client.Close()
}
