package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/event"
)

const (
	pendingKey    = domain.KeyPrefix + "notifications"
	processingKey = domain.KeyPrefix + "notifications:processing"
)

// store is the consumer interface for the notification queue (ISP).
type store interface {
	RPush(ctx context.Context, key string, values ...string) error
	BLMove(ctx context.Context, src, dst string, timeout time.Duration) ([]byte, error)
	LRem(ctx context.Context, key string, count int64, value string) error
	LLen(ctx context.Context, key string) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// Message is a dequeued notification together with the raw payload needed
// to acknowledge it.
type Message struct {
	Notification event.Notification
	raw          string
}

// Queue is an at-least-once notification queue on a Redis list pair:
// BLMOVE shifts a message to a processing list, Ack removes it there.
// A crash before Ack leaves the message in processing for Recover to
// requeue, which is where the at-least-once (and the occasional duplicate
// delivery) comes from.
type Queue struct {
	store store
}

// New creates a notification queue.
func New(s store) *Queue {
	return &Queue{store: s}
}

// Enqueue appends a notification to the pending list.
func (q *Queue) Enqueue(ctx context.Context, n event.Notification) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := q.store.RPush(ctx, pendingKey, string(data)); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next notification. Returns nil when
// the timeout expires with nothing pending.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Message, error) {
	raw, err := q.store.BLMove(ctx, pendingKey, processingKey, timeout)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("dequeue notification: %w", err)
	}

	var n event.Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		// Malformed payload: drop it from processing so it cannot wedge the queue.
		_ = q.store.LRem(ctx, processingKey, 1, string(raw))
		return nil, fmt.Errorf("unmarshal notification: %w", err)
	}

	return &Message{Notification: n, raw: string(raw)}, nil
}

// Ack removes a handled message from the processing list.
func (q *Queue) Ack(ctx context.Context, m *Message) error {
	if err := q.store.LRem(ctx, processingKey, 1, m.raw); err != nil {
		return fmt.Errorf("ack notification: %w", err)
	}
	return nil
}

// Recover moves messages stranded in the processing list (a consumer died
// mid-flight) back to pending. Called once at startup before workers spin up.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	stranded, err := q.store.LRange(ctx, processingKey, 0, -1)
	if err != nil {
		return 0, fmt.Errorf("list stranded notifications: %w", err)
	}
	for _, raw := range stranded {
		if err := q.store.RPush(ctx, pendingKey, raw); err != nil {
			return 0, fmt.Errorf("requeue stranded notification: %w", err)
		}
		if err := q.store.LRem(ctx, processingKey, 1, raw); err != nil {
			return 0, fmt.Errorf("clear stranded notification: %w", err)
		}
	}
	return len(stranded), nil
}

// Depth returns the number of pending notifications.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	n, err := q.store.LLen(ctx, pendingKey)
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return n, nil
}
