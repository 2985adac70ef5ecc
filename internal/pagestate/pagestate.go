// Package pagestate holds the orchestrator's belief about what the page
// currently shows. Pure state, no I/O.
package pagestate

// Error markers are distinct from any real date/code/venue value, so the
// next group's comparison is guaranteed to see a change and re-attempt the
// transition instead of assuming continuity.
const (
	dateErrorMarker  = "\x00date-error"
	codeErrorMarker  = "\x00code-error"
	venueErrorMarker = "\x00venue-error"
)

// Tracker records the active date, category and venue, and whether the
// scope handle for the active venue panel is still believed valid.
// Changing an upstream field invalidates everything downstream of it.
type Tracker struct {
	date       string
	code       string
	venue      string
	scopeValid bool
}

func New() *Tracker {
	return &Tracker{}
}

func (t *Tracker) NeedsDate(target string) bool {
	return t.date != target
}

// SetDate is called only after a date transition succeeded. It resets
// code, venue and scope.
func (t *Tracker) SetDate(date string) {
	t.date = date
	t.code = ""
	t.venue = ""
	t.scopeValid = false
}

func (t *Tracker) MarkDateError() {
	t.date = dateErrorMarker
	t.code = ""
	t.venue = ""
	t.scopeValid = false
}

func (t *Tracker) NeedsCode(target string) bool {
	return t.code != target
}

func (t *Tracker) SetCode(code string) {
	t.code = code
	t.venue = ""
	t.scopeValid = false
}

func (t *Tracker) MarkCodeError() {
	t.code = codeErrorMarker
	t.venue = ""
	t.scopeValid = false
}

// NeedsVenue is true when the venue differs or the scope handle is no
// longer trusted; either way the venue must be re-selected.
func (t *Tracker) NeedsVenue(target string) bool {
	return t.venue != target || !t.scopeValid
}

func (t *Tracker) SetVenue(venue string) {
	t.venue = venue
	t.scopeValid = true
}

func (t *Tracker) MarkVenueError() {
	t.venue = venueErrorMarker
	t.scopeValid = false
}

func (t *Tracker) InvalidateScope() {
	t.scopeValid = false
}

func (t *Tracker) ScopeValid() bool {
	return t.scopeValid
}
