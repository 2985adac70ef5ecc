// Package scraper drives the results page through date, code, venue and
// race transitions for every task group, classifying each failure and
// escalating repeated venue trouble into date-level blacklists. The walk
// is strictly sequential: one browser session, every action depending on
// the side effects of the previous one.
package scraper

import (
	"context"
	"errors"
	"strings"

	"bsp/finder/internal/domain"
	"bsp/finder/internal/grouper"
	"bsp/finder/internal/ledger"
	"bsp/finder/internal/navigator"
	"bsp/finder/internal/pagestate"
	"bsp/finder/internal/state"

	log "github.com/sirupsen/logrus"
)

type Service struct {
	factory   navigator.Factory
	threshold int    // venue failures per date before the date is blacklisted
	dedupe    string // DedupeKeepLast or DedupeKeepAll
	state     state.Manager
}

// NewService builds the two-phase scrape runner. st may be nil to disable
// progress reporting.
func NewService(factory navigator.Factory, venueFailureThreshold int, dedupeMode string, st state.Manager) *Service {
	return &Service{
		factory:   factory,
		threshold: venueFailureThreshold,
		dedupe:    dedupeMode,
		state:     st,
	}
}

// PhaseResult is the outcome of one full pass over a task set.
type PhaseResult struct {
	Results     []domain.Task
	Retry       []domain.Task
	FailedPairs []ledger.FailurePair
}

func (s *Service) runPhase(ctx context.Context, name string, fuzzy bool, tasks []domain.Task) PhaseResult {
	log.Infof("[%s] Starting scraping for %d tasks (fuzzy venue matching: %v)", name, len(tasks), fuzzy)
	var res PhaseResult
	if len(tasks) == 0 {
		log.Warnf("[%s] No input tasks", name)
		return res
	}

	nav, err := s.factory(ctx)
	if err != nil {
		log.Errorf("[%s] Browser session setup failed: %v. Phase cannot proceed.", name, err)
		for _, t := range tasks {
			res.Results = append(res.Results, t.WithOutcome(domain.OutcomeDriverSetupErrorPhase))
		}
		return res
	}
	defer func() {
		if cerr := nav.Close(); cerr != nil {
			log.Warnf("[%s] Error closing browser session: %v", name, cerr)
		} else {
			log.Infof("[%s] Browser session closed", name)
		}
	}()

	grouped := grouper.GroupTasks(tasks)
	if n := len(grouped.Dropped); n > 0 {
		log.Warnf("[%s] Dropped %d tasks with unparseable dates", name, n)
		for _, t := range grouped.Dropped {
			res.Results = append(res.Results, t.WithOutcome(domain.OutcomeDateParseErrorForGrouping))
		}
	}
	if len(grouped.Groups) == 0 {
		log.Warnf("[%s] No groups to process", name)
		return res
	}
	log.Infof("[%s] Tasks grouped into %d [date, code, venue] groups", name, len(grouped.Groups))

	if err := nav.Open(ctx); err != nil {
		// The page shell never loaded; nothing can be navigated. Tasks not
		// reached get no outcome in this phase.
		log.Errorf("[%s] CRITICAL: could not open results hub: %v. Aborting phase.", name, err)
		return res
	}

	if s.state != nil {
		if err := s.state.ClearPhase(ctx, name); err != nil {
			log.Warnf("[%s] Could not clear phase progress: %v", name, err)
		}
	}

	led := ledger.New()
	tracker := pagestate.New()
	var scope navigator.Scope
	venueLoadMarked := map[string]struct{}{}

	for i, g := range grouped.Groups {
		if ctx.Err() != nil {
			log.Errorf("[%s] CRITICAL: %v with %d groups unprocessed. Aborting phase.",
				name, ctx.Err(), len(grouped.Groups)-i)
			break
		}
		s.processGroup(ctx, name, fuzzy, nav, tracker, led, g, &scope, venueLoadMarked, &res)
		if s.state != nil {
			if err := s.state.SetPhaseProgress(ctx, name, i+1); err != nil {
				log.Warnf("[%s] Progress update failed: %v", name, err)
			}
		}
	}

	res.Retry = led.RetryTasks()
	res.FailedPairs = led.FailedPairs()
	log.Infof("[%s] Finished: %d result rows, %d unique tasks for retry", name, len(res.Results), len(res.Retry))
	return res
}

func (s *Service) processGroup(
	ctx context.Context,
	name string,
	fuzzy bool,
	nav navigator.Navigator,
	tracker *pagestate.Tracker,
	led *ledger.Ledger,
	g *grouper.Group,
	scope *navigator.Scope,
	venueLoadMarked map[string]struct{},
	res *PhaseResult,
) {
	log.Infof("[%s] Group: date=%s code=%s venue=%s (%d tasks)",
		name, g.DateKey, strings.ToUpper(g.Code), g.Venue, g.Size())

	if led.IsBadDate(g.DateKey) {
		log.Warnf("[%s] Date %s previously failed this phase. Skipping group.", name, g.DateKey)
		markGroup(res, g, domain.OutcomeDatePreviouslyFailed)
		return
	}

	if tracker.NeedsDate(g.DateKey) {
		log.Infof("[%s] DATE CHANGE -> %s", name, g.DateKey)
		if err := nav.SelectDate(ctx, g.Date); err != nil {
			log.Errorf("[%s] DATE FAILURE for %s: %v", name, g.DateKey, err)
			led.MarkBadDate(g.DateKey)
			led.RecordFailure(g.DateKey, string(domain.OutcomeDateSelectionError))
			markGroup(res, g, domain.OutcomeDateSelectionError)
			tracker.MarkDateError()
			*scope = nil
			return
		}
		if err := nav.WaitVenuesLoaded(ctx); err != nil {
			// The click landed but the data never arrived: possibly
			// transient, so these tasks also go to the retry queue.
			log.Errorf("[%s] DATE DATA NOT LOADED for %s: %v. Collecting for retry.", name, g.DateKey, err)
			led.MarkBadDate(g.DateKey)
			led.RecordFailure(g.DateKey, string(domain.OutcomeDateDataNotLoaded))
			for _, r := range g.Races {
				for _, t := range r.Tasks {
					res.Results = append(res.Results, t.WithOutcome(domain.OutcomeDateDataNotLoaded))
					led.Enqueue(t)
				}
			}
			tracker.MarkDateError()
			*scope = nil
			return
		}
		log.Infof("[%s] Venue list populated for %s", name, g.DateKey)
		tracker.SetDate(g.DateKey)
		*scope = nil
	}

	categoryID, ok := domain.CategoryID(g.Code)
	if !ok {
		log.Errorf("[%s] CODE UNKNOWN: %q. Skipping group.", name, g.Code)
		led.RecordFailure(g.DateKey, string(domain.OutcomeUnknownRaceCode))
		markGroup(res, g, domain.OutcomeUnknownRaceCode)
		return
	}

	if tracker.NeedsCode(categoryID) {
		log.Infof("[%s] CODE CHANGE -> %s", name, categoryID)
		if err := nav.SelectCode(ctx, categoryID); err != nil {
			log.Errorf("[%s] CODE CHANGE ERROR for %s: %v. Skipping group.", name, categoryID, err)
			led.RecordFailure(g.DateKey, string(domain.OutcomeCodeSelectionError))
			markGroup(res, g, domain.OutcomeCodeSelectionError)
			tracker.MarkCodeError()
			*scope = nil
			return
		}
		tracker.SetCode(categoryID)
		*scope = nil
	}

	if tracker.NeedsVenue(g.Venue) {
		log.Infof("[%s] VENUE CHANGE -> %s", name, g.Venue)
		sc, err := nav.FindAndSelectVenue(ctx, g.Venue, fuzzy)
		if err != nil {
			outcome := domain.OutcomeVenueLoadError
			var ve *navigator.VenueError
			if errors.As(err, &ve) && ve.Kind == navigator.VenueAmbiguous {
				outcome = domain.OutcomeAmbiguousFuzzyMatch
			}
			log.Errorf("[%s] VENUE ERROR for %q: %s (%v)", name, g.Venue, outcome, err)
			for _, r := range g.Races {
				for _, t := range r.Tasks {
					res.Results = append(res.Results, t.WithOutcome(outcome))
					if outcome.Retryable() {
						venueLoadMarked[t.Key()] = struct{}{}
						led.Enqueue(t)
					}
				}
			}
			count := led.VenueFailure(g.DateKey, s.threshold)
			if led.IsBadDate(g.DateKey) {
				log.Warnf("[%s] %d venue failures on %s. Marking date bad.", name, count, g.DateKey)
			}
			led.RecordFailure(g.DateKey, g.Venue)
			tracker.MarkVenueError()
			*scope = nil
			return
		}
		tracker.SetVenue(g.Venue)
		*scope = sc
	}

	if *scope == nil {
		// Defensive fallback: the venue is nominally selected but there is
		// no panel handle. Tasks already labeled VenueLoadError in this
		// phase are not re-marked.
		log.Errorf("[%s] No active meeting panel for %q. Marking group.", name, g.Venue)
		for _, r := range g.Races {
			for _, t := range r.Tasks {
				if _, done := venueLoadMarked[t.Key()]; done {
					continue
				}
				res.Results = append(res.Results, t.WithOutcome(domain.OutcomeVenueDataUnavailable))
			}
		}
		return
	}

	for _, race := range g.Races {
		s.processRace(ctx, name, nav, tracker, g, race, scope, res)
	}
}

// processRace fetches BSP prices for every task of one race number. The
// scope handle is revalidated first; a failure while activating the tab or
// locating the runners container fails the whole race with one label, while
// each runner read stays independent.
func (s *Service) processRace(
	ctx context.Context,
	name string,
	nav navigator.Navigator,
	tracker *pagestate.Tracker,
	g *grouper.Group,
	race grouper.RaceGroup,
	scope *navigator.Scope,
	res *PhaseResult,
) {
	log.Infof("[%s] Race R%s (%s): processing %d task(s)", name, race.RaceNo, g.Venue, len(race.Tasks))

	sc, err := nav.RevalidateScope(ctx)
	if err != nil {
		log.Errorf("[%s] Active meeting panel lost before R%s (%s): %v", name, race.RaceNo, g.Venue, err)
		tracker.InvalidateScope()
		*scope = nil
		for _, t := range race.Tasks {
			res.Results = append(res.Results, t.WithOutcome(domain.OutcomeVenueElementErrorMidRace))
		}
		return
	}
	*scope = sc

	if err := nav.SelectRace(ctx, sc, race.RaceNo); err != nil {
		outcome := classifyRaceError(err)
		log.Errorf("[%s] %s at race level for R%s (%s): %v", name, outcome, race.RaceNo, g.Venue, err)
		for _, t := range race.Tasks {
			res.Results = append(res.Results, t.WithOutcome(outcome))
		}
		return
	}

	scraped := 0
	for _, t := range race.Tasks {
		win, place, err := nav.ReadRunnerPrices(ctx, sc, t.RunnerNo)
		if err != nil {
			outcome := classifyRunnerError(err)
			log.Warnf("[%s] Runner %s (%q) in R%s FAILED: %s", name, t.RunnerNo, t.RunnerName, race.RaceNo, outcome)
			res.Results = append(res.Results, t.WithOutcome(outcome))
			continue
		}
		res.Results = append(res.Results, t.WithPrices(win, place))
		scraped++
	}
	log.Infof("[%s] Race R%s (%s): scraped %d/%d runners", name, race.RaceNo, g.Venue, scraped, len(race.Tasks))
}

func markGroup(res *PhaseResult, g *grouper.Group, o domain.Outcome) {
	for _, r := range g.Races {
		for _, t := range r.Tasks {
			res.Results = append(res.Results, t.WithOutcome(o))
		}
	}
}

func classifyRaceError(err error) domain.Outcome {
	var re *navigator.RaceError
	if errors.As(err, &re) {
		switch re.Kind {
		case navigator.RaceTimeout:
			return domain.OutcomeRaceTimeout
		case navigator.RaceMissing:
			return domain.OutcomeRaceElementMissing
		case navigator.RaceStale:
			return domain.OutcomeRaceStaleElement
		}
	}
	return domain.OutcomeRaceError
}

func classifyRunnerError(err error) domain.Outcome {
	var re *navigator.RunnerError
	if errors.As(err, &re) {
		switch re.Kind {
		case navigator.RunnerNotFound:
			return domain.OutcomeRunnerNotFoundOnPage
		case navigator.RunnerStale:
			return domain.OutcomeStaleElement
		}
	}
	return domain.OutcomeScrapeError
}
