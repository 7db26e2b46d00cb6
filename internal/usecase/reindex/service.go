// Package reindex repairs drift between the write-side catalog and the
// filter index: a checkpointed sweeper that recomputes stale or lagging
// documents, plus async on-demand jobs.
package reindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/catalog"
	"github.com/kailas-cloud/facetdex/internal/logger"
	"github.com/kailas-cloud/facetdex/internal/metrics"
)

// Sweep defaults.
const (
	DefaultBatchSize = 200
	DefaultWorkers   = 4
)

// Stats summarizes one sweep pass.
type Stats struct {
	Processed int
	Repaired  int
}

// Service runs reindex sweeps.
type Service struct {
	docs   DocumentPager
	src    SourceReader
	syncer Syncer
	maint  Maintenance

	batchSize int
	workers   int
	now       func() time.Time
}

// New creates a reindex service.
func New(docs DocumentPager, src SourceReader, syncer Syncer, maint Maintenance) *Service {
	return &Service{
		docs: docs, src: src, syncer: syncer, maint: maint,
		batchSize: DefaultBatchSize,
		workers:   DefaultWorkers,
		now:       time.Now,
	}
}

// WithBatchSize configures documents per checkpointed batch.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// WithWorkers configures repair concurrency within a batch.
func (s *Service) WithWorkers(n int) *Service {
	if n > 0 {
		s.workers = n
	}
	return s
}

// WithClock configures the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Trigger starts an async sweep for one tenant and returns its job handle.
// The job outlives the triggering request; a process restart abandons the
// job record but the checkpoint lets the next sweep resume the walk.
func (s *Service) Trigger(ctx context.Context, tenantID, scope string) (Job, error) {
	if scope == "" {
		scope = ScopeFull
	}
	if scope != ScopeFull && scope != ScopeStale {
		return Job{}, fmt.Errorf("%w: unknown reindex scope %q", domain.ErrValidation, scope)
	}

	job := Job{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Scope:     scope,
		Status:    StatusRunning,
		StartedAt: s.now().UTC(),
	}
	if err := s.saveJob(ctx, &job); err != nil {
		return Job{}, err
	}

	go s.runJob(context.WithoutCancel(ctx), job)
	return job, nil
}

// JobStatus returns the persisted record of a triggered sweep.
func (s *Service) JobStatus(ctx context.Context, tenantID, jobID string) (Job, error) {
	data, err := s.maint.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return Job{}, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	return job, nil
}

// Run sweeps every known tenant on the given interval until cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		tenants, err := s.docs.Tenants(ctx)
		if err != nil {
			log.Error("list tenants for sweep", zap.Error(err))
			continue
		}
		for _, tenant := range tenants {
			if ctx.Err() != nil {
				return
			}
			tctx := logger.WithTenant(ctx, tenant)
			stats, err := s.Sweep(tctx, tenant, ScopeFull)
			if err != nil {
				logger.FromContext(tctx).Error("tenant sweep failed", zap.Error(err))
				continue
			}
			if stats.Repaired > 0 {
				logger.FromContext(tctx).Info("tenant sweep repaired documents",
					zap.Int("processed", stats.Processed),
					zap.Int("repaired", stats.Repaired),
				)
			}
		}
	}
}

// Sweep walks a tenant's documents in checkpointed batches, repairing any
// that are flagged stale or whose source timestamp lags the live write side.
// Cancellation mid-sweep keeps the last committed checkpoint so the next
// sweep resumes there instead of restarting.
func (s *Service) Sweep(ctx context.Context, tenantID, scope string) (Stats, error) {
	staleIDs, err := s.maint.StaleProducts(ctx, tenantID)
	if err != nil {
		return Stats{}, fmt.Errorf("list stale products: %w", err)
	}
	stale := make(map[string]bool, len(staleIDs))
	for _, id := range staleIDs {
		stale[id] = true
	}

	if scope == ScopeStale {
		return s.repairStale(ctx, tenantID, staleIDs)
	}

	after, err := s.maint.Checkpoint(ctx, tenantID)
	if err != nil {
		return Stats{}, err
	}

	// Admin counts need a whole pass; a sweep resumed mid-walk repairs
	// documents but leaves the counts to the next uninterrupted pass.
	var counts map[string]map[string]int
	if after == "" {
		counts = make(map[string]map[string]int)
	}

	var stats Stats
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		docs, err := s.docs.ScanTenantPage(ctx, tenantID, after, s.batchSize)
		if err != nil {
			return stats, fmt.Errorf("scan page after %q: %w", after, err)
		}
		if len(docs) == 0 {
			break
		}

		stats.Repaired += s.processBatch(ctx, tenantID, docs, stale, counts)
		stats.Processed += len(docs)

		// Cancellation aborts the repairs inside the batch. Committing the
		// checkpoint anyway would skip those documents on resume, so the
		// batch stays uncommitted and is rewalked by the next sweep.
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		after = docs[len(docs)-1].ProductID()
		if err := s.maint.SaveCheckpoint(ctx, tenantID, after); err != nil {
			return stats, err
		}
	}

	if err := s.maint.ClearCheckpoint(ctx, tenantID); err != nil {
		return stats, err
	}
	if counts != nil {
		for code, c := range counts {
			if err := s.maint.PutAttributeCounts(ctx, tenantID, code, c); err != nil {
				logger.FromContext(ctx).Warn("store attribute counts",
					zap.String("tenant", tenantID), zap.String("code", code), zap.Error(err))
			}
		}
	}
	return stats, nil
}

// repairStale resyncs only flagged products, skipping the full walk.
func (s *Service) repairStale(ctx context.Context, tenantID string, ids []string) (Stats, error) {
	var stats Stats
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Processed++
		changed, err := s.syncer.Resync(ctx, tenantID, id)
		if err != nil {
			logger.FromContext(ctx).Warn("stale repair failed",
				zap.String("tenant", tenantID), zap.String("product", id), zap.Error(err))
			continue
		}
		if changed {
			stats.Repaired++
			metrics.SweepRepairedTotal.Inc()
		}
	}
	return stats, nil
}

// processBatch repairs one batch with bounded concurrency and accumulates
// attribute counts. Counts are gathered on the dispatching goroutine, so the
// workers share nothing but the repaired counter.
func (s *Service) processBatch(
	ctx context.Context,
	tenantID string,
	docs []catalog.Document,
	stale map[string]bool,
	counts map[string]map[string]int,
) int {
	sem := make(chan struct{}, s.workers)
	var wg stdsync.WaitGroup
	var mu stdsync.Mutex
	repaired := 0

	for i := range docs {
		d := &docs[i]
		if counts != nil && d.DocStatus() == catalog.StatusActive {
			for code := range d.Attributes() {
				if counts[code] == nil {
					counts[code] = make(map[string]int)
				}
				for _, v := range d.AttributeValues(code) {
					counts[code][v]++
				}
			}
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(doc *catalog.Document) {
			defer wg.Done()
			defer func() { <-sem }()
			if s.repair(ctx, tenantID, doc, stale) {
				mu.Lock()
				repaired++
				mu.Unlock()
			}
		}(d)
	}
	wg.Wait()
	return repaired
}

// repair resyncs one document if it is flagged stale, lags the write side,
// or was deleted upstream. Reports whether the index changed.
func (s *Service) repair(ctx context.Context, tenantID string, doc *catalog.Document, stale map[string]bool) bool {
	log := logger.FromContext(ctx)
	need := stale[doc.ProductID()]
	if !need {
		srcAt, err := s.src.ProductUpdatedAt(ctx, tenantID, doc.ProductID())
		switch {
		case errors.Is(err, domain.ErrProductNotFound):
			// Deleted upstream without a processed notification.
			need = true
		case err != nil:
			log.Warn("write-side timestamp unavailable",
				zap.String("tenant", tenantID), zap.String("product", doc.ProductID()), zap.Error(err))
			return false
		case srcAt.After(doc.SourceUpdatedAt()):
			need = true
		}
	}
	if !need {
		return false
	}

	changed, err := s.syncer.Resync(ctx, tenantID, doc.ProductID())
	if err != nil {
		log.Warn("sweep repair failed",
			zap.String("tenant", tenantID), zap.String("product", doc.ProductID()), zap.Error(err))
		return false
	}
	if changed {
		metrics.SweepRepairedTotal.Inc()
	}
	return changed
}

func (s *Service) saveJob(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	if err := s.maint.SaveJob(ctx, job.TenantID, job.ID, data); err != nil {
		return err
	}
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) {
	log := logger.FromContext(ctx)

	stats, err := s.Sweep(ctx, job.TenantID, job.Scope)
	finished := s.now().UTC()
	job.FinishedAt = &finished
	job.Processed = stats.Processed
	job.Repaired = stats.Repaired
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
	} else {
		job.Status = StatusCompleted
	}

	if err := s.saveJob(ctx, &job); err != nil {
		log.Error("persist finished job", zap.String("job", job.ID), zap.Error(err))
	}
}
