// Package grouper arranges the task list into the iteration order the
// orchestrator walks: date, then code, then venue, then race number.
// Group order follows first appearance in the input, never sorting:
// reordering would multiply redundant page navigation.
package grouper

import (
	"time"

	"bsp/finder/internal/domain"
)

// RaceGroup holds the tasks of one race number within a venue group.
type RaceGroup struct {
	RaceNo string
	Tasks  []domain.Task
}

// Group is one (date, code, venue) navigation target.
type Group struct {
	Date    time.Time // normalized calendar date
	DateKey string    // FormatDate(Date), the bad-date/blacklist key
	Code    string    // raw code column value
	Venue   string    // raw venue column value
	Races   []RaceGroup
}

// Size returns the number of tasks across all races in the group.
func (g *Group) Size() int {
	n := 0
	for _, r := range g.Races {
		n += len(r.Tasks)
	}
	return n
}

// Result of grouping: the ordered groups plus the tasks whose date could
// not be normalized. Dropped tasks are reported, never silently lost.
type Result struct {
	Groups  []*Group
	Dropped []domain.Task
}

// GroupTasks is deterministic: the same input always yields the same
// group sequence and membership.
func GroupTasks(tasks []domain.Task) Result {
	var res Result
	index := make(map[string]*Group)

	for _, t := range tasks {
		d, err := domain.NormalizeDate(t.Time)
		if err != nil {
			res.Dropped = append(res.Dropped, t)
			continue
		}
		dateKey := domain.FormatDate(d)
		key := dateKey + "\x00" + t.Code + "\x00" + t.Venue
		g, ok := index[key]
		if !ok {
			g = &Group{Date: d, DateKey: dateKey, Code: t.Code, Venue: t.Venue}
			index[key] = g
			res.Groups = append(res.Groups, g)
		}
		addToRace(g, t)
	}
	return res
}

func addToRace(g *Group, t domain.Task) {
	for i := range g.Races {
		if g.Races[i].RaceNo == t.RaceNo {
			g.Races[i].Tasks = append(g.Races[i].Tasks, t)
			return
		}
	}
	g.Races = append(g.Races, RaceGroup{RaceNo: t.RaceNo, Tasks: []domain.Task{t}})
}
