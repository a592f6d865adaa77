package tools

import (
	"sync/atomic"
	"time"
)

// BreakerState is the state of a Breaker.
type BreakerState int32

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker stops calling a collaborator after threshold consecutive failures
// and lets a single probe through once cooldown has passed.
type Breaker struct {
	state     atomic.Int32
	failures  atomic.Int32
	lastFail  atomic.Int64
	probing   atomic.Int32
	threshold int32
	cooldown  time.Duration
}

// NewBreaker returns a closed breaker. Zero values fall back to 5 failures / 30s.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{threshold: int32(threshold), cooldown: cooldown}
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() bool {
	for {
		switch BreakerState(b.state.Load()) {
		case BreakerClosed:
			return true

		case BreakerOpen:
			if time.Since(time.Unix(0, b.lastFail.Load())) <= b.cooldown {
				return false
			}
			if !b.state.CompareAndSwap(int32(BreakerOpen), int32(BreakerHalfOpen)) {
				continue
			}
			b.probing.Store(0)
			return b.probing.CompareAndSwap(0, 1)

		case BreakerHalfOpen:
			return b.probing.CompareAndSwap(0, 1)
		}
	}
}

// RecordSuccess closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.failures.Store(0)
	b.probing.Store(0)
	b.state.Store(int32(BreakerClosed))
}

// RecordFailure counts a failure and opens the breaker at the threshold.
// A failed probe reopens it immediately.
func (b *Breaker) RecordFailure() {
	b.failures.Add(1)
	b.lastFail.Store(time.Now().UnixNano())

	if BreakerState(b.state.Load()) == BreakerHalfOpen {
		b.state.Store(int32(BreakerOpen))
		return
	}
	if b.failures.Load() >= b.threshold {
		b.state.CompareAndSwap(int32(BreakerClosed), int32(BreakerOpen))
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	return BreakerState(b.state.Load())
}
