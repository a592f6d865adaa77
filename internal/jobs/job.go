// Package jobs tracks image jobs from creation to a terminal status and
// makes sure at most one of them is processing at a time.
package jobs

import (
	"errors"
	"time"
)

var (
	// ErrConcurrencyConflict means another job is still processing.
	ErrConcurrencyConflict = errors.New("image generation already in progress")

	// ErrJobNotFound means no job has the given id.
	ErrJobNotFound = errors.New("job not found")

	// ErrAlreadyFinalized means the job already reached a terminal status.
	ErrAlreadyFinalized = errors.New("job already finalized")
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Terminal reports whether s is done or error.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Job is a snapshot of one image request.
type Job struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	UserMessage string     `json:"userMessage"`
	ResultURL   string     `json:"resultUrl,omitempty"`
	ErrorInfo   string     `json:"errorInfo,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

// Outcome is what the agent run produced. A non-nil Err makes the job fail.
type Outcome struct {
	ImageURL string
	Err      error
}
