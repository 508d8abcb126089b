package types

import "time"

// JobState is the lifecycle of a generation job. Transitions are one-way:
// PENDING -> PROGRESS -> SUCCESS or FAILURE. No state is ever re-entered.
type JobState string

const (
	StatePending  JobState = "PENDING"
	StateProgress JobState = "PROGRESS"
	StateSuccess  JobState = "SUCCESS"
	StateFailure  JobState = "FAILURE"
)

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == StateSuccess || s == StateFailure
}

// CanTransition reports whether moving from s to next is a legal one-way
// step of the state machine.
func (s JobState) CanTransition(next JobState) bool {
	switch s {
	case StatePending:
		return next == StateProgress || next == StateFailure
	case StateProgress:
		return next == StateSuccess || next == StateFailure
	default:
		return false
	}
}

// Progress is the coarse progress record attached to a PROGRESS job.
// Percent partitions: 0-80 frame rendering, 80-85 transition to encode,
// 85-95 external encode, 95-100 artifact upload.
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// Job is the unit of concurrency: exactly one worker drives one job's
// pipeline, and only that worker mutates the record. Status pollers read it
// concurrently through the store.
type Job struct {
	ID        string      `json:"id"`
	Config    VideoConfig `json:"config"`
	State     JobState    `json:"state"`
	Progress  Progress    `json:"progress"`
	WordCount int         `json:"word_count"`

	// ArtifactPath is the local encoded video; ArtifactURL is set instead
	// when the artifact was promoted to remote storage.
	ArtifactPath string `json:"artifact_path,omitempty"`
	ArtifactURL  string `json:"artifact_url,omitempty"`

	// Error carries the human-readable cause for FAILURE jobs.
	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	// ExpiresAt is set when the job reaches a terminal state; the reaper
	// removes the record and any surviving files after this instant.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// JobRequest is the task-queue payload: everything a worker needs to run
// the pipeline. Delivery is at-least-once; re-execution is idempotent
// because the working directory is keyed by job id and overwritten.
type JobRequest struct {
	JobID  string      `json:"job_id"`
	Text   string      `json:"text"`
	Config VideoConfig `json:"config"`
}
