// Package ledger is the per-phase failure bookkeeping: blacklisted dates,
// per-date venue failure counters, the failed pairs reported at the end
// of a run, and the retry queue for the next phase.
package ledger

import (
	"bsp/finder/internal/domain"
	"bsp/finder/internal/queue"
)

// FailurePair identifies something that was never successfully resolved:
// a date plus either the venue name or a failure reason label.
type FailurePair struct {
	Date   string
	Reason string
}

type Ledger struct {
	badDates      map[string]struct{}
	venueFailures map[string]int
	pairs         []FailurePair
	pairSeen      map[FailurePair]struct{}
	retry         *queue.RetryQueue
}

func New() *Ledger {
	return &Ledger{
		badDates:      map[string]struct{}{},
		venueFailures: map[string]int{},
		pairSeen:      map[FailurePair]struct{}{},
		retry:         queue.NewRetryQueue(),
	}
}

// MarkBadDate blacklists a date for the rest of the phase: no further
// navigation is attempted for it.
func (l *Ledger) MarkBadDate(date string) {
	l.badDates[date] = struct{}{}
}

func (l *Ledger) IsBadDate(date string) bool {
	_, ok := l.badDates[date]
	return ok
}

// VenueFailure bumps the date's venue failure counter and blacklists the
// date once the threshold is crossed. Repeated venue trouble on a date is
// treated as the date itself being unreliable. The counter only grows
// within a date; a fresh date starts at zero because counters are keyed
// per date.
func (l *Ledger) VenueFailure(date string, threshold int) int {
	l.venueFailures[date]++
	n := l.venueFailures[date]
	if threshold > 0 && n >= threshold {
		l.MarkBadDate(date)
	}
	return n
}

// RecordFailure remembers a (date, venue-or-reason) pair for the end-of-run
// report. Duplicates collapse.
func (l *Ledger) RecordFailure(date, reason string) {
	p := FailurePair{Date: date, Reason: reason}
	if _, ok := l.pairSeen[p]; ok {
		return
	}
	l.pairSeen[p] = struct{}{}
	l.pairs = append(l.pairs, p)
}

func (l *Ledger) FailedPairs() []FailurePair {
	return l.pairs
}

// Enqueue adds a task to the retry queue (deduplicated by identity).
func (l *Ledger) Enqueue(t domain.Task) bool {
	return l.retry.Add(t)
}

func (l *Ledger) RetryTasks() []domain.Task {
	return l.retry.Tasks()
}
