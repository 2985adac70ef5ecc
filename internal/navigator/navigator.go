// Package navigator defines the capability interface the orchestrator
// drives the results page through. Every operation is blocking and
// single-threaded; internal waits are bounded, so an operation either
// succeeds or returns a typed failure, never hanging.
package navigator

import (
	"context"
	"time"
)

// Scope is an opaque handle to the currently active venue/meeting panel.
// It is only valid until the next structural page change; consumers must
// revalidate it before race/runner lookups.
type Scope interface{}

type Navigator interface {
	// Open navigates to the results hub and waits for the page shell.
	Open(ctx context.Context) error

	// SelectDate drives the calendar widget to the target date, then waits
	// for the data-loading indicator to clear. Transient stale handles
	// during its own paging are retried internally; a final failure is
	// returned as *DateError.
	SelectDate(ctx context.Context, date time.Time) error

	// WaitVenuesLoaded verifies the venue filter list populated after a
	// date change, with a longer timeout than the click itself. Failure is
	// returned as *DataLoadError and is considered possibly transient.
	WaitVenuesLoaded(ctx context.Context) error

	// SelectCode activates a race discipline category by its web-facing id.
	SelectCode(ctx context.Context, categoryID string) error

	// FindAndSelectVenue matches the target against the visible venue
	// labels (exact pass, then the fuzzy pass when enabled), clicks the
	// match and returns the handle of the now-active meeting panel.
	// An ambiguous fuzzy match is a *VenueError with KindAmbiguous.
	FindAndSelectVenue(ctx context.Context, venue string, fuzzy bool) (Scope, error)

	// RevalidateScope re-acquires the active meeting panel. A failure is a
	// *ScopeLostError.
	RevalidateScope(ctx context.Context) (Scope, error)

	// SelectRace activates the race-number tab inside the scope and waits
	// (bounded, tolerantly) for the runner rows.
	SelectRace(ctx context.Context, scope Scope, raceNo string) error

	// ReadRunnerPrices extracts the win and place price text for one
	// runner number. Empty text is a legitimate result, not an error.
	ReadRunnerPrices(ctx context.Context, scope Scope, runnerNo string) (win, place string, err error)

	Close() error
}

// Factory creates a fresh navigator (one browser session) for a phase.
// The phase owns the session exclusively and releases it on every exit
// path.
type Factory func(ctx context.Context) (Navigator, error)
