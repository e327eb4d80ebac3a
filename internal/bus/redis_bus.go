package bus

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisBus publishes activity to a Redis Stream
type RedisBus struct {
	client *redis.Client
	logger *log.Logger
}

// StreamMessage represents a message in a Redis Stream
type StreamMessage struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

// ActivityMessage is one entry of the activity stream
type ActivityMessage struct {
	ID           string `json:"id,omitempty"`
	Kind         string `json:"kind"`
	IncidentID   string `json:"incident_id"`
	Status       string `json:"status,omitempty"`
	PrevStatus   string `json:"prev_status,omitempty"`
	Severity     string `json:"severity,omitempty"`
	Service      string `json:"service,omitempty"`
	SubmissionID string `json:"submission_id,omitempty"`
	Actor        string `json:"actor,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}

// StreamHandler is a function that processes stream messages
type StreamHandler func(ctx context.Context, message StreamMessage) error

// NewRedisBus creates a new Redis bus instance
func NewRedisBus(redisURL string, logger *log.Logger) (*RedisBus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if logger == nil {
		logger = log.New(log.Writer(), "[RedisBus] ", log.LstdFlags)
	}

	return &RedisBus{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (rb *RedisBus) Close() error {
	return rb.client.Close()
}

// PublishActivity publishes a message to the activity stream
func (rb *RedisBus) PublishActivity(ctx context.Context, msg ActivityMessage) error {
	result := rb.client.XAdd(ctx, &redis.XAddArgs{
		Stream: ActivityStream,
		Values: msg.fields(),
	})
	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to publish activity: %w", err)
	}

	rb.logger.Printf("Published %s for incident %s", msg.Kind, msg.IncidentID)
	return nil
}

func (m ActivityMessage) fields() map[string]interface{} {
	ts := m.Timestamp
	if ts == 0 {
		ts = time.Now().Unix()
	}
	return map[string]interface{}{
		"kind":          m.Kind,
		"incident_id":   m.IncidentID,
		"status":        m.Status,
		"prev_status":   m.PrevStatus,
		"severity":      m.Severity,
		"service":       m.Service,
		"submission_id": m.SubmissionID,
		"actor":         m.Actor,
		"timestamp":     ts,
	}
}

func activityFromStream(message StreamMessage) ActivityMessage {
	msg := ActivityMessage{
		ID:           message.ID,
		Kind:         message.Fields["kind"],
		IncidentID:   message.Fields["incident_id"],
		Status:       message.Fields["status"],
		PrevStatus:   message.Fields["prev_status"],
		Severity:     message.Fields["severity"],
		Service:      message.Fields["service"],
		SubmissionID: message.Fields["submission_id"],
		Actor:        message.Fields["actor"],
	}
	if ts, err := parseTimestamp(message.Fields["timestamp"]); err == nil {
		msg.Timestamp = ts
	}
	return msg
}

// CreateConsumerGroup creates a consumer group for a stream if it doesn't exist
func (rb *RedisBus) CreateConsumerGroup(ctx context.Context, stream, group string) error {
	result := rb.client.XGroupCreateMkStream(ctx, stream, group, "0")
	if err := result.Err(); err != nil {
		if !strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("failed to create consumer group %s for stream %s: %w", group, stream, err)
		}
	}

	rb.logger.Printf("Consumer group %s ready for stream %s", group, stream)
	return nil
}

// ReadStream reads messages from a stream using consumer groups
func (rb *RedisBus) ReadStream(ctx context.Context, stream, group, consumer string, handler StreamHandler) error {
	if err := rb.CreateConsumerGroup(ctx, stream, group); err != nil {
		return err
	}

	rb.logger.Printf("Starting stream reader for %s (group: %s, consumer: %s)", stream, group, consumer)

	for {
		select {
		case <-ctx.Done():
			rb.logger.Printf("Stream reader for %s stopping due to context cancellation", stream)
			return ctx.Err()
		default:
		}

		result := rb.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{stream, ">"},
			Count:    10,
			Block:    1 * time.Second,
		})
		if err := result.Err(); err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			rb.logger.Printf("Error reading from stream %s: %v", stream, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, st := range result.Val() {
			for _, message := range st.Messages {
				streamMsg := StreamMessage{
					ID:     message.ID,
					Fields: make(map[string]string, len(message.Values)),
				}
				for key, value := range message.Values {
					if strValue, ok := value.(string); ok {
						streamMsg.Fields[key] = strValue
					}
				}

				if err := handler(ctx, streamMsg); err != nil {
					rb.logger.Printf("Error processing message %s: %v", message.ID, err)
					continue
				}

				if err := rb.client.XAck(ctx, st.Stream, group, message.ID).Err(); err != nil {
					rb.logger.Printf("Error acknowledging message %s: %v", message.ID, err)
				}
			}
		}
	}
}

// ReadActivity reads from the activity stream
func (rb *RedisBus) ReadActivity(ctx context.Context, group, consumer string, handler func(ctx context.Context, msg ActivityMessage) error) error {
	return rb.ReadStream(ctx, ActivityStream, group, consumer, func(ctx context.Context, message StreamMessage) error {
		return handler(ctx, activityFromStream(message))
	})
}

// TrimActivity caps the activity stream length
func (rb *RedisBus) TrimActivity(ctx context.Context, maxLen int64) error {
	if err := rb.client.XTrimMaxLenApprox(ctx, ActivityStream, maxLen, 0).Err(); err != nil {
		return fmt.Errorf("failed to trim stream %s: %w", ActivityStream, err)
	}
	return nil
}

// parseTimestamp parses a timestamp string to epoch seconds
func parseTimestamp(timestamp string) (int64, error) {
	if timestamp == "" {
		return time.Now().Unix(), nil
	}

	// Try numeric epoch (seconds or milliseconds)
	if n, err := strconv.ParseInt(timestamp, 10, 64); err == nil {
		if n > 1_000_000_000_000 {
			return n / 1000, nil
		}
		return n, nil
	}

	if ts, err := time.Parse(time.RFC3339Nano, timestamp); err == nil {
		return ts.Unix(), nil
	}

	return time.Now().Unix(), fmt.Errorf("unable to parse timestamp: %s", timestamp)
}

// HealthCheck performs a health check on the Redis connection
func (rb *RedisBus) HealthCheck(ctx context.Context) error {
	return rb.client.Ping(ctx).Err()
}

// GetStats returns basic statistics about the activity stream
func (rb *RedisBus) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"type": "redis"}

	info, err := rb.client.XInfoStream(ctx, ActivityStream).Result()
	if err != nil {
		if err == redis.Nil || strings.Contains(err.Error(), "no such key") {
			stats["activity_stream"] = map[string]interface{}{"length": int64(0)}
			return stats, nil
		}
		return nil, fmt.Errorf("failed to get stream info for %s: %w", ActivityStream, err)
	}
	stats["activity_stream"] = map[string]interface{}{
		"length":         info.Length,
		"first_entry_id": info.FirstEntry.ID,
		"last_entry_id":  info.LastEntry.ID,
	}
	if groups, err := rb.client.XInfoGroups(ctx, ActivityStream).Result(); err == nil {
		stats["consumer_groups"] = len(groups)
	}
	return stats, nil
}
