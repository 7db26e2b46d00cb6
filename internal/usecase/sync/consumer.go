package sync

import (
	"context"
	stdsync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/logger"
	"github.com/kailas-cloud/facetdex/internal/metrics"
)

// DefaultDequeueTimeout bounds each blocking pop so workers notice shutdown.
const DefaultDequeueTimeout = 5 * time.Second

// Consumer drains the notification queue with a bounded worker pool.
type Consumer struct {
	queue   NotificationQueue
	proc    Processor
	workers int
	timeout time.Duration
}

// NewConsumer creates a queue consumer with the given worker count.
func NewConsumer(q NotificationQueue, proc Processor, workers int) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{queue: q, proc: proc, workers: workers, timeout: DefaultDequeueTimeout}
}

// WithDequeueTimeout configures the blocking pop timeout.
func (c *Consumer) WithDequeueTimeout(d time.Duration) *Consumer {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// Run requeues messages stranded by a previous crash, then processes
// notifications until the context is cancelled. It blocks until all
// workers have drained.
func (c *Consumer) Run(ctx context.Context) {
	log := logger.FromContext(ctx)

	recovered, err := c.queue.Recover(ctx)
	if err != nil {
		log.Error("recover stranded notifications", zap.Error(err))
	} else if recovered > 0 {
		log.Info("requeued stranded notifications", zap.Int("count", recovered))
	}

	var wg stdsync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.work(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (c *Consumer) work(ctx context.Context, id int) {
	log := logger.FromContext(ctx).With(zap.Int("worker", id))

	for ctx.Err() == nil {
		msg, err := c.queue.Dequeue(ctx, c.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("dequeue failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if msg == nil {
			// Idle tick; refresh the backlog gauge.
			if depth, derr := c.queue.Depth(ctx); derr == nil {
				metrics.QueueDepth.Set(float64(depth))
			}
			continue
		}

		if err := c.proc.Process(ctx, msg.Notification); err != nil {
			// Left unacked: Recover requeues it on the next start.
			log.Error("processing failed, leaving for redelivery",
				zap.String("kind", string(msg.Notification.Kind)),
				zap.String("tenant", msg.Notification.TenantID),
				zap.Error(err),
			)
			continue
		}
		if err := c.queue.Ack(ctx, msg); err != nil {
			log.Warn("ack failed, message may be redelivered", zap.Error(err))
		}
	}
}
