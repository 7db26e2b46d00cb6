package health

import "context"

// DBPinger checks storage availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// QueueChecker reports the notification backlog.
type QueueChecker interface {
	Depth(ctx context.Context) (int64, error)
}
