// Package realtime publishes per-user session events to Redis channels.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Event names.
const (
	EventUploadStarted   = "upload_started"
	EventUploadProgress  = "upload_progress"
	EventFirstImage      = "first_image"
	EventUploadCompleted = "upload_completed"
	EventUploadCancelled = "upload_cancelled"
	EventPersistFailed   = "persist_failed"
	EventTagsChanged     = "vibes_changed"
)

type Publisher interface {
	PublishUserEvent(ctx context.Context, userID, event string, payload map[string]any) error
}

// Message is the JSON envelope published on a user channel.
type Message struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload"`
}

func UserChannel(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher connects to redisURL and verifies the connection.
func NewRedisPublisher(ctx context.Context, redisURL string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisPublisherWithClient(client), nil
}

func NewRedisPublisherWithClient(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (r *RedisPublisher) PublishUserEvent(ctx context.Context, userID, event string, payload map[string]any) error {
	data, err := json.Marshal(Message{Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := r.client.Publish(ctx, UserChannel(userID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event, err)
	}
	return nil
}

func (r *RedisPublisher) Close() error {
	return r.client.Close()
}

// NopPublisher drops every event. Used when Redis is not configured.
type NopPublisher struct{}

func (NopPublisher) PublishUserEvent(context.Context, string, string, map[string]any) error {
	return nil
}
