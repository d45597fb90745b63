package jobs

import (
	"encoding/json"
	"time"
)

// State is the lifecycle state of a background job.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Kind identifies which pipeline a job runs.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

// Job is the pollable status record for one background pipeline run.
type Job struct {
	ID          string          `json:"job_id"`
	State       State           `json:"status"`
	Kind        Kind            `json:"pipeline_type"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Clone returns an independent copy so concurrent readers never observe a
// record mid-transition.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	clone := *j
	if j.CompletedAt != nil {
		completed := *j.CompletedAt
		clone.CompletedAt = &completed
	}
	if j.Result != nil {
		clone.Result = make(json.RawMessage, len(j.Result))
		copy(clone.Result, j.Result)
	}
	return &clone
}
