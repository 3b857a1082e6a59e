package models

// JobStatus is the lifecycle state of an acquisition job. Transitions are
// PENDING → RUNNING → {COMPLETED | FAILED | CANCELLED}; terminal states
// never transition again.
type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
	JobCancelled JobStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// JobRunResult is the final outcome of one orchestrated job run. It is
// created at orchestration start, mutated additively during the run, and
// never mutated after being returned.
type JobRunResult struct {
	JobID             string              `json:"job_id"`
	KeywordsProcessed int                 `json:"keywords_processed"`
	TotalResults      int                 `json:"total_results"`
	Results           []*ExtractedContent `json:"results"`
	FailedCount       int                 `json:"failed_count"`
	DuplicateCount    int                 `json:"duplicate_count"`
}

// PoolState is a read-only snapshot of browser pool occupancy.
// Invariant: Leased + Idle <= Max.
type PoolState struct {
	Leased int `json:"leased"`
	Idle   int `json:"idle"`
	Max    int `json:"max"`
}
