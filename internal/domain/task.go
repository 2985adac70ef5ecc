package domain

import "strings"

// Task is one unit of scraping work: look up the settled BSP prices for a
// single runner in a single race at a venue on a date. The identifying
// fields are never mutated after parsing; BSPWin/BSPPlace are the only
// output fields and are written exactly once per processing attempt.
type Task struct {
	Time       string
	Venue      string
	Code       string
	RaceNo     string
	RunnerNo   string
	RunnerName string

	// Extra holds passthrough input columns (type, market, bookie, odds, ...)
	// keyed by lowercased column name. Never mutated after parsing.
	Extra map[string]string

	BSPWin   string
	BSPPlace string
}

// Key returns the task identity used for deduplication across input rows,
// retry queues and output merging.
func (t Task) Key() string {
	return strings.ToLower(strings.Join([]string{
		t.Time, t.Venue, t.Code, t.RaceNo, t.RunnerNo, t.RunnerName,
	}, "|"))
}

// Field returns the task's value for a lowercased input column name.
func (t Task) Field(name string) string {
	switch name {
	case "time", "date":
		return t.Time
	case "venue":
		return t.Venue
	case "code":
		return t.Code
	case "raceno":
		return t.RaceNo
	case "runnerno":
		return t.RunnerNo
	case "runnername":
		return t.RunnerName
	default:
		return t.Extra[name]
	}
}

// WithOutcome returns a copy of the task with both price fields set to the
// given failure label.
func (t Task) WithOutcome(o Outcome) Task {
	t.BSPWin = string(o)
	t.BSPPlace = string(o)
	return t
}

// WithPrices returns a copy of the task carrying scraped prices. An empty
// price text means the page genuinely showed no price and is recorded as
// the literal "N/A", which is distinct from every failure label.
func (t Task) WithPrices(win, place string) Task {
	t.BSPWin = orNA(win)
	t.BSPPlace = orNA(place)
	return t
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NoPrice
	}
	return strings.TrimSpace(s)
}

// DedupeByKey removes duplicate tasks keeping the first occurrence,
// preserving order. Returns the removed count.
func DedupeByKey(tasks []Task) ([]Task, int) {
	seen := make(map[string]struct{}, len(tasks))
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		k := t.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out, len(tasks) - len(out)
}
