// Package stream mirrors the coordination log onto a Redis Stream so
// external consumers can tail registration, notification, assignment,
// and progress events. Publishing is fire-and-forget, matching the
// log's no-delivery-guarantee contract.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/quarry/sparc/internal/coord"
)

// Stream publishes coordination messages to a Redis Stream.
type Stream struct {
	rdb    *redis.Client
	name   string
	logger *zap.Logger
}

// New connects to Redis and returns a Stream writing to the named
// stream key.
func New(redisURL, name string, logger *zap.Logger) (*Stream, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Stream{rdb: rdb, name: name, logger: logger}, nil
}

// Publish appends a coordination message to the stream.
func (s *Stream) Publish(ctx context.Context, m *coord.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	_, err = s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.name,
		Values: map[string]interface{}{
			"type": string(m.Type),
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", s.name, err)
	}

	s.logger.Debug("mirrored message",
		zap.String("id", m.ID),
		zap.String("type", string(m.Type)))
	return nil
}

// Subscribe tails the stream, emitting messages on the returned channel.
// Cancel the context to stop.
func (s *Stream) Subscribe(ctx context.Context) <-chan *coord.Message {
	ch := make(chan *coord.Message, 16)

	go func() {
		defer close(ch)
		lastID := "$"

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			results, err := s.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{s.name, lastID},
				Count:   10,
				Block:   time.Second * 2,
			}).Result()

			if err != nil {
				if err == context.Canceled || err == context.DeadlineExceeded {
					return
				}
				continue
			}

			for _, r := range results {
				for _, msg := range r.Messages {
					lastID = msg.ID
					data, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					var m coord.Message
					if json.Unmarshal([]byte(data), &m) == nil {
						ch <- &m
					}
				}
			}
		}
	}()

	return ch
}

// Close shuts down the Redis connection.
func (s *Stream) Close() error {
	return s.rdb.Close()
}
