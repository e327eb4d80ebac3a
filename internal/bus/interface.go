package bus

import (
	"context"
	"io"
	"log"
)

// ActivityStream is the Redis stream carrying triage and ingestion activity.
const ActivityStream = "incident-activity"

// Activity kinds.
const (
	KindIngested      = "ingested"
	KindStatusChanged = "status_changed"
)

// Bus is the outbound activity feed. The console only publishes; the
// activity command is the one reader.
type Bus interface {
	// PublishActivity appends a message to the activity stream
	PublishActivity(ctx context.Context, msg ActivityMessage) error

	// ReadActivity consumes the activity stream through a consumer group until ctx ends
	ReadActivity(ctx context.Context, group, consumer string, handler func(ctx context.Context, msg ActivityMessage) error) error

	// GetStats returns basic statistics about the bus
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// HealthCheck performs a health check on the bus connection
	HealthCheck(ctx context.Context) error

	// Close closes the bus connection
	Close() error
}

// NewBus creates a new bus instance based on the Redis URL
// If redisURL is empty or unreachable, returns a NullBus
func NewBus(redisURL string, logger *log.Logger) Bus {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	if redisURL == "" {
		return NewNullBus(logger)
	}

	redisBus, err := NewRedisBus(redisURL, logger)
	if err == nil {
		return redisBus
	}

	// Fall back to null bus if Redis fails
	logger.Printf("activity feed disabled: %v", err)
	return NewNullBus(logger)
}
