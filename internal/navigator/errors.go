package navigator

import (
	"fmt"
	"strings"
)

// DateError: the calendar interaction itself failed (paging, day click).
type DateError struct {
	Date string
	Err  error
}

func (e *DateError) Error() string {
	return fmt.Sprintf("select date %s: %v", e.Date, e.Err)
}

func (e *DateError) Unwrap() error { return e.Err }

// DataLoadError: the date was selected but the venue list never populated.
type DataLoadError struct {
	Date string
	Err  error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("data for date %s did not load: %v", e.Date, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// CodeError: the category filter button could not be activated.
type CodeError struct {
	CategoryID string
	Err        error
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("select code %s: %v", e.CategoryID, e.Err)
}

func (e *CodeError) Unwrap() error { return e.Err }

type VenueErrorKind int

const (
	VenueNotFound VenueErrorKind = iota
	VenueAmbiguous
)

// VenueError: no label matched the target, or the fuzzy pass matched more
// than one label. Ambiguity is deliberate failure, never a guess.
type VenueError struct {
	Kind       VenueErrorKind
	Target     string
	Candidates []string
}

func (e *VenueError) Error() string {
	if e.Kind == VenueAmbiguous {
		return fmt.Sprintf("ambiguous fuzzy match for venue %q: %s", e.Target, strings.Join(e.Candidates, ", "))
	}
	return fmt.Sprintf("venue %q not found", e.Target)
}

type RaceErrorKind int

const (
	RaceTimeout RaceErrorKind = iota
	RaceMissing
	RaceStale
	RaceFailed
)

// RaceError: locating or activating the race tab / runners container
// failed. Race-level: every task for the race number gets the same label.
type RaceError struct {
	Kind   RaceErrorKind
	RaceNo string
	Err    error
}

func (e *RaceError) Error() string {
	return fmt.Sprintf("race %s: %v", e.RaceNo, e.Err)
}

func (e *RaceError) Unwrap() error { return e.Err }

type RunnerErrorKind int

const (
	RunnerNotFound RunnerErrorKind = iota
	RunnerStale
	RunnerScrapeFailed
)

// RunnerError: one runner's row could not be read. Runners are
// independent; this never affects siblings.
type RunnerError struct {
	Kind     RunnerErrorKind
	RunnerNo string
	Err      error
}

func (e *RunnerError) Error() string {
	return fmt.Sprintf("runner %s: %v", e.RunnerNo, e.Err)
}

func (e *RunnerError) Unwrap() error { return e.Err }

// ScopeLostError: the active meeting panel is gone from the page.
type ScopeLostError struct {
	Err error
}

func (e *ScopeLostError) Error() string {
	return fmt.Sprintf("active meeting panel lost: %v", e.Err)
}

func (e *ScopeLostError) Unwrap() error { return e.Err }
