package queue

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain/event"
)

// --- Mocks ---

type mockStore struct {
	lists map[string][]string
}

func newMockStore() *mockStore {
	return &mockStore{lists: make(map[string][]string)}
}

func (m *mockStore) RPush(_ context.Context, key string, values ...string) error {
	m.lists[key] = append(m.lists[key], values...)
	return nil
}

func (m *mockStore) BLMove(_ context.Context, src, dst string, _ time.Duration) ([]byte, error) {
	list := m.lists[src]
	if len(list) == 0 {
		return nil, db.ErrKeyNotFound
	}
	head := list[0]
	m.lists[src] = list[1:]
	m.lists[dst] = append(m.lists[dst], head)
	return []byte(head), nil
}

func (m *mockStore) LRem(_ context.Context, key string, _ int64, value string) error {
	list := m.lists[key]
	for i, v := range list {
		if v == value {
			m.lists[key] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockStore) LLen(_ context.Context, key string) (int64, error) {
	return int64(len(m.lists[key])), nil
}

func (m *mockStore) LRange(_ context.Context, key string, _, _ int64) ([]string, error) {
	return m.lists[key], nil
}

// --- Helpers ---

func makeNotification(productID string) event.Notification {
	return event.Notification{
		Kind:            event.KindItem,
		TenantID:        "acme",
		ProductID:       productID,
		SourceUpdatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// --- Tests ---

func TestQueue_EnqueueDequeueAck(t *testing.T) {
	s := newMockStore()
	q := New(s)
	ctx := context.Background()

	if err := q.Enqueue(ctx, makeNotification("p1")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	msg, err := q.Dequeue(ctx, time.Second)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.Notification.ProductID != "p1" {
		t.Errorf("unexpected product %q", msg.Notification.ProductID)
	}

	// In flight until acked.
	if len(s.lists[processingKey]) != 1 {
		t.Fatalf("expected message parked in processing, got %v", s.lists[processingKey])
	}

	if err := q.Ack(ctx, msg); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	if len(s.lists[processingKey]) != 0 {
		t.Error("expected processing list emptied after ack")
	}
}

func TestQueue_DequeueEmptyReturnsNil(t *testing.T) {
	q := New(newMockStore())

	msg, err := q.Dequeue(context.Background(), time.Millisecond)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if msg != nil {
		t.Errorf("expected nil on empty queue, got %+v", msg)
	}
}

func TestQueue_RecoverRequeuesStranded(t *testing.T) {
	s := newMockStore()
	q := New(s)
	ctx := context.Background()

	if err := q.Enqueue(ctx, makeNotification("p1")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	// Dequeue without acking simulates a consumer dying mid-flight.
	if _, err := q.Dequeue(ctx, time.Second); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}

	n, err := q.Recover(ctx)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 stranded message requeued, got %d", n)
	}

	msg, err := q.Dequeue(ctx, time.Second)
	if err != nil {
		t.Fatalf("Dequeue after recover: %v", err)
	}
	if msg == nil || msg.Notification.ProductID != "p1" {
		t.Error("expected the stranded message redelivered")
	}
}

func TestQueue_MalformedPayloadDropped(t *testing.T) {
	s := newMockStore()
	q := New(s)
	ctx := context.Background()

	if err := s.RPush(ctx, pendingKey, "{not json"); err != nil {
		t.Fatalf("RPush: %v", err)
	}

	if _, err := q.Dequeue(ctx, time.Second); err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if len(s.lists[processingKey]) != 0 {
		t.Error("malformed payload must not wedge the processing list")
	}
}

func TestQueue_EnqueueRejectsInvalid(t *testing.T) {
	q := New(newMockStore())
	if err := q.Enqueue(context.Background(), event.Notification{}); err == nil {
		t.Error("expected validation error for empty notification")
	}
}

func TestQueue_Depth(t *testing.T) {
	q := New(newMockStore())
	ctx := context.Background()

	for _, id := range []string{"p1", "p2", "p3"} {
		if err := q.Enqueue(ctx, makeNotification(id)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	n, err := q.Depth(ctx)
	if err != nil {
		t.Fatalf("Depth: %v", err)
	}
	if n != 3 {
		t.Errorf("expected depth 3, got %d", n)
	}
}
