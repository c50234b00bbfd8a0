package server

import (
	"fmt"
	"sync"
)

// DefaultMaxExtractions caps concurrent extraction runs when the
// configuration does not say otherwise.
const DefaultMaxExtractions = 2

// ExtractionLimiter caps the number of extraction runs in flight. Decoding
// and OCR saturate every core, so surplus requests are refused immediately
// instead of queueing behind a long video.
type ExtractionLimiter struct {
	mu     sync.Mutex
	limit  int
	active int
}

// NewExtractionLimiter creates a limiter allowing limit concurrent runs.
// Values below 1 fall back to DefaultMaxExtractions.
func NewExtractionLimiter(limit int) *ExtractionLimiter {
	if limit < 1 {
		limit = DefaultMaxExtractions
	}
	return &ExtractionLimiter{limit: limit}
}

// Acquire claims an extraction slot. It returns a *BusyError when all slots
// are taken.
func (l *ExtractionLimiter) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active >= l.limit {
		return &BusyError{Active: l.active, Limit: l.limit}
	}
	l.active++
	return nil
}

// Release returns a slot claimed by Acquire.
func (l *ExtractionLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active > 0 {
		l.active--
	}
}

// Active returns the number of extractions currently holding a slot.
func (l *ExtractionLimiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// BusyError reports that every extraction slot is in use.
type BusyError struct {
	Active int
	Limit  int
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("server busy: %d of %d extraction slots in use", e.Active, e.Limit)
}
