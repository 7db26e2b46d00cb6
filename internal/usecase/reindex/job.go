package reindex

import "time"

// JobStatus is the lifecycle state of an async reindex job.
type JobStatus string

// Job states.
const (
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Sweep scopes. Full walks every document; stale repairs only flagged ones.
const (
	ScopeFull  = "full"
	ScopeStale = "stale"
)

// Job is the persisted record of one triggered reindex sweep.
type Job struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	Scope      string     `json:"scope"`
	Status     JobStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Processed  int        `json:"processed"`
	Repaired   int        `json:"repaired"`
	Error      string     `json:"error,omitempty"`
}
