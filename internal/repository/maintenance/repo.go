package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/event"
)

const jobTTL = 24 * time.Hour

// store is the consumer interface for maintenance state (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	RPush(ctx context.Context, key string, values ...string) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Repo holds the sweeper's working state: stale-product flags, the resume
// checkpoint, dead-lettered notifications, reindex job records, and the
// per-attribute-value counts recomputed for admin display.
type Repo struct {
	store store
}

// New creates a maintenance repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// MarkStale flags a product for the next sweep after the sync handler
// exhausted its retry budget.
func (r *Repo) MarkStale(ctx context.Context, tenantID, productID string) error {
	if err := r.store.SAdd(ctx, staleKey(tenantID), productID); err != nil {
		return fmt.Errorf("mark stale %s: %w", productID, err)
	}
	return nil
}

// ClearStale removes the stale flag after a successful recompute.
func (r *Repo) ClearStale(ctx context.Context, tenantID, productID string) error {
	if err := r.store.SRem(ctx, staleKey(tenantID), productID); err != nil {
		return fmt.Errorf("clear stale %s: %w", productID, err)
	}
	return nil
}

// StaleProducts returns the products currently flagged stale.
func (r *Repo) StaleProducts(ctx context.Context, tenantID string) ([]string, error) {
	ids, err := r.store.SMembers(ctx, staleKey(tenantID))
	if err != nil {
		return nil, fmt.Errorf("stale products %s: %w", tenantID, err)
	}
	return ids, nil
}

// DeadLetter records a notification that failed all retries. Never dropped
// silently: the payload and cause stay inspectable for operators.
func (r *Repo) DeadLetter(ctx context.Context, n event.Notification, cause string) error {
	entry := deadLetterEntry{Notification: n, Cause: cause, At: time.Now().UTC()}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}
	if err := r.store.RPush(ctx, deadLetterKey, string(data)); err != nil {
		return fmt.Errorf("dead letter: %w", err)
	}
	return nil
}

// Checkpoint returns the last committed sweep position for a tenant, empty
// when no sweep is in progress.
func (r *Repo) Checkpoint(ctx context.Context, tenantID string) (string, error) {
	data, err := r.store.Get(ctx, checkpointKey(tenantID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read checkpoint %s: %w", tenantID, err)
	}
	return string(data), nil
}

// SaveCheckpoint commits the sweep position after a fully processed batch.
func (r *Repo) SaveCheckpoint(ctx context.Context, tenantID, productID string) error {
	if err := r.store.Set(ctx, checkpointKey(tenantID), []byte(productID)); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", tenantID, err)
	}
	return nil
}

// ClearCheckpoint resets the sweep position once a full pass completes.
func (r *Repo) ClearCheckpoint(ctx context.Context, tenantID string) error {
	if err := r.store.Del(ctx, checkpointKey(tenantID)); err != nil {
		return fmt.Errorf("clear checkpoint %s: %w", tenantID, err)
	}
	return nil
}

// SaveJob persists a reindex job record with a retention TTL.
func (r *Repo) SaveJob(ctx context.Context, tenantID, jobID string, data []byte) error {
	if err := r.store.SetWithTTL(ctx, jobKey(tenantID, jobID), data, jobTTL); err != nil {
		return fmt.Errorf("save job %s: %w", jobID, err)
	}
	return nil
}

// GetJob returns a reindex job record.
func (r *Repo) GetJob(ctx context.Context, tenantID, jobID string) ([]byte, error) {
	data, err := r.store.Get(ctx, jobKey(tenantID, jobID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	return data, nil
}

// PutAttributeCounts stores the per-value product counts for one attribute,
// recomputed by the sweeper outside the hot query path.
func (r *Repo) PutAttributeCounts(ctx context.Context, tenantID, code string, counts map[string]int) error {
	if len(counts) == 0 {
		return nil
	}
	fields := make(map[string]string, len(counts))
	for value, n := range counts {
		fields[value] = strconv.Itoa(n)
	}
	if err := r.store.HSet(ctx, attrCountsKey(tenantID, code), fields); err != nil {
		return fmt.Errorf("put attribute counts %s/%s: %w", tenantID, code, err)
	}
	return nil
}

// AttributeCounts returns the stored per-value counts for one attribute.
func (r *Repo) AttributeCounts(ctx context.Context, tenantID, code string) (map[string]int, error) {
	fields, err := r.store.HGetAll(ctx, attrCountsKey(tenantID, code))
	if err != nil {
		return nil, fmt.Errorf("attribute counts %s/%s: %w", tenantID, code, err)
	}
	counts := make(map[string]int, len(fields))
	for value, raw := range fields {
		n, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		counts[value] = n
	}
	return counts, nil
}

type deadLetterEntry struct {
	Notification event.Notification `json:"notification"`
	Cause        string             `json:"cause"`
	At           time.Time          `json:"at"`
}

const deadLetterKey = domain.KeyPrefix + "dead_letters"

func staleKey(tenantID string) string {
	return domain.KeyPrefix + tenantID + ":stale"
}

func checkpointKey(tenantID string) string {
	return domain.KeyPrefix + tenantID + ":sweep_checkpoint"
}

func jobKey(tenantID, jobID string) string {
	return domain.KeyPrefix + tenantID + ":job:" + jobID
}

func attrCountsKey(tenantID, code string) string {
	return domain.KeyPrefix + tenantID + ":attr_counts:" + code
}
