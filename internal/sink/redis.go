package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/ayusman/abhinaya/internal/gesture"
)

// DefaultRecentLimit bounds the recent-gestures list kept next to the channel.
const DefaultRecentLimit = 100

// RedisSink publishes each record on <prefix>:gestures and keeps the latest
// records in the <prefix>:gestures:recent list.
type RedisSink struct {
	client *redis.Client
	prefix string
	limit  int64
}

// NewRedisSink creates a sink on an existing client.
func NewRedisSink(client *redis.Client, prefix string) *RedisSink {
	return &RedisSink{client: client, prefix: prefix, limit: DefaultRecentLimit}
}

// Channel is the pub/sub channel records are published on.
func (s *RedisSink) Channel() string {
	return s.prefix + ":gestures"
}

// RecentKey is the list holding the most recent records, newest first.
func (s *RedisSink) RecentKey() string {
	return s.Channel() + ":recent"
}

// Send publishes rec and pushes it onto the recent list in one transaction.
func (s *RedisSink) Send(ctx context.Context, rec gesture.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode gesture: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, s.Channel(), payload)
		pipe.LPush(ctx, s.RecentKey(), payload)
		pipe.LTrim(ctx, s.RecentKey(), 0, s.limit-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
