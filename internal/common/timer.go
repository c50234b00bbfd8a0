// Package common provides shared timing utilities.
package common

import (
	"fmt"
	"time"
)

// Timer provides timing utilities for instrumentation with optional naming.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// NewNamedTimer creates a new timer with the given name.
func NewNamedTimer(name string) *Timer {
	return &Timer{
		name:  name,
		start: time.Now(),
	}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Elapsed returns the time since the timer was started without stopping it.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Name returns the timer name (empty string if unnamed).
func (t *Timer) Name() string {
	return t.name
}

// String returns a formatted string representation of the timer.
func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.duration)
	}
	return fmt.Sprintf("%v", t.duration)
}

// ETA estimates time remaining for a fixed number of uniform steps.
// It assumes steps take roughly constant time, which holds well enough for
// frame-by-frame extraction where every step decodes and reads one frame.
type ETA struct {
	start time.Time
	total int64
}

// NewETA creates an estimator for total steps starting now.
func NewETA(total int64) *ETA {
	return &ETA{start: time.Now(), total: total}
}

// Remaining returns the estimated time left after done steps.
// It returns zero until at least one step has completed.
func (e *ETA) Remaining(done int64) time.Duration {
	if done <= 0 || e.total <= 0 {
		return 0
	}
	if done >= e.total {
		return 0
	}
	elapsed := time.Since(e.start)
	perStep := elapsed / time.Duration(done)
	return perStep * time.Duration(e.total-done)
}

// Elapsed returns the time since the estimator was created.
func (e *ETA) Elapsed() time.Duration {
	return time.Since(e.start)
}
