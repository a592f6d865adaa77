// Package stream delivers the terminal status of a job to subscribers.
package stream

import (
	"context"

	"github.com/aatumaykin/morningbrew/internal/jobs"
)

// Event statuses
const (
	StatusDone  = "done"
	StatusError = "error"
)

// FailureMessage is what subscribers see when a job fails. The diagnostic
// itself stays in the job record and the logs.
const FailureMessage = "Image generation failed. Please try again later."

// Event is the one message a subscription yields.
type Event struct {
	Status   string `json:"status"`
	ImageURL string `json:"imageUrl,omitempty"`
	Message  string `json:"message,omitempty"`
}

// JobSource is the part of jobs.Store the publisher reads.
type JobSource interface {
	Get(id string) (jobs.Job, error)
	Done(id string) (<-chan struct{}, error)
}

// Publisher turns a job's completion signal into a one-shot event sequence.
type Publisher struct {
	jobs JobSource
}

// NewPublisher creates a publisher over src.
func NewPublisher(src JobSource) *Publisher {
	return &Publisher{jobs: src}
}

// Subscribe returns a channel that yields exactly one terminal event for
// jobID and is then closed. An unknown id fails with jobs.ErrJobNotFound
// before anything is sent. Cancelling ctx closes the channel without an
// event and has no effect on the job.
func (p *Publisher) Subscribe(ctx context.Context, jobID string) (<-chan Event, error) {
	done, err := p.jobs.Done(jobID)
	if err != nil {
		return nil, err
	}

	// буфер 1: горутина не зависнет, если подписчик ушёл
	events := make(chan Event, 1)
	go func() {
		defer close(events)

		select {
		case <-done:
		case <-ctx.Done():
			return
		}

		job, err := p.jobs.Get(jobID)
		if err != nil {
			events <- Event{Status: StatusError, Message: FailureMessage}
			return
		}
		events <- EventFor(job)
	}()

	return events, nil
}

// EventFor maps a terminal job to its event.
func EventFor(job jobs.Job) Event {
	if job.Status == jobs.StatusDone {
		return Event{Status: StatusDone, ImageURL: job.ResultURL}
	}
	return Event{Status: StatusError, Message: FailureMessage}
}
