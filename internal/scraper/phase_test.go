package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"bsp/finder/internal/domain"
	"bsp/finder/internal/navigator"

	"github.com/stretchr/testify/require"
)

// stubNav records every navigation call and delegates to optional hooks.
// Hooks left nil succeed.
type stubNav struct {
	calls []string

	selectDate  func(date time.Time) error
	waitVenues  func() error
	selectCode  func(id string) error
	selectVenue func(venue string, fuzzy bool) (navigator.Scope, error)
	revalidate  func() (navigator.Scope, error)
	selectRace  func(raceNo string) error
	readRunner  func(runnerNo string) (string, string, error)
}

func (n *stubNav) Open(ctx context.Context) error {
	n.calls = append(n.calls, "open")
	return nil
}

func (n *stubNav) SelectDate(ctx context.Context, date time.Time) error {
	n.calls = append(n.calls, "date:"+domain.FormatDate(date))
	if n.selectDate != nil {
		return n.selectDate(date)
	}
	return nil
}

func (n *stubNav) WaitVenuesLoaded(ctx context.Context) error {
	n.calls = append(n.calls, "wait-venues")
	if n.waitVenues != nil {
		return n.waitVenues()
	}
	return nil
}

func (n *stubNav) SelectCode(ctx context.Context, id string) error {
	n.calls = append(n.calls, "code:"+id)
	if n.selectCode != nil {
		return n.selectCode(id)
	}
	return nil
}

func (n *stubNav) FindAndSelectVenue(ctx context.Context, venue string, fuzzy bool) (navigator.Scope, error) {
	n.calls = append(n.calls, fmt.Sprintf("venue:%s fuzzy=%v", venue, fuzzy))
	if n.selectVenue != nil {
		return n.selectVenue(venue, fuzzy)
	}
	return "panel", nil
}

func (n *stubNav) RevalidateScope(ctx context.Context) (navigator.Scope, error) {
	n.calls = append(n.calls, "revalidate")
	if n.revalidate != nil {
		return n.revalidate()
	}
	return "panel", nil
}

func (n *stubNav) SelectRace(ctx context.Context, _ navigator.Scope, raceNo string) error {
	n.calls = append(n.calls, "race:"+raceNo)
	if n.selectRace != nil {
		return n.selectRace(raceNo)
	}
	return nil
}

func (n *stubNav) ReadRunnerPrices(ctx context.Context, _ navigator.Scope, runnerNo string) (string, string, error) {
	n.calls = append(n.calls, "runner:"+runnerNo)
	if n.readRunner != nil {
		return n.readRunner(runnerNo)
	}
	return "2.50", "1.10", nil
}

func (n *stubNav) Close() error {
	n.calls = append(n.calls, "close")
	return nil
}

func fixedFactory(n *stubNav) navigator.Factory {
	return func(ctx context.Context) (navigator.Navigator, error) { return n, nil }
}

func task(t, venue, code, raceNo, runnerNo, name string) domain.Task {
	return domain.Task{Time: t, Venue: venue, Code: code, RaceNo: raceNo, RunnerNo: runnerNo, RunnerName: name}
}

func countPrefix(calls []string, prefix string) int {
	n := 0
	for _, c := range calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func TestPhaseHappyPath(t *testing.T) {
	nav := &stubNav{}
	s := NewService(fixedFactory(nav), 2, DedupeKeepLast, nil)

	res := s.runPhase(context.Background(), "test", false, []domain.Task{
		task("13/06/2025 14:30", "Warragul", "g", "5", "2", "Fast Dog"),
	})

	require.Len(t, res.Results, 1)
	require.Equal(t, "2.50", res.Results[0].BSPWin)
	require.Equal(t, "1.10", res.Results[0].BSPPlace)
	require.Empty(t, res.Retry)
	require.Empty(t, res.FailedPairs)
	require.Equal(t, []string{
		"open",
		"date:13/06/2025",
		"wait-venues",
		"code:greyhound",
		"venue:Warragul fuzzy=false",
		"revalidate",
		"race:5",
		"runner:2",
		"close",
	}, nav.calls)
}

func TestPhaseEmptyPricesBecomeNA(t *testing.T) {
	nav := &stubNav{
		readRunner: func(string) (string, string, error) { return "", "  ", nil },
	}
	s := NewService(fixedFactory(nav), 2, DedupeKeepLast, nil)

	res := s.runPhase(context.Background(), "test", false, []domain.Task{
		task("13/06/2025 14:30", "Warragul", "g", "5", "2", "Fast Dog"),
	})

	require.Len(t, res.Results, 1)
	require.Equal(t, domain.NoPrice, res.Results[0].BSPWin)
	require.Equal(t, domain.NoPrice, res.Results[0].BSPPlace)
	require.False(t, domain.IsFailureLabel(res.Results[0].BSPWin))
}

func TestPhaseDateSelectionErrorBlacklistsDate(t *testing.T) {
	nav := &stubNav{
		selectDate: func(time.Time) error { return errors.New("calendar widget gone") },
	}
	s := NewService(fixedFactory(nav), 2, DedupeKeepLast, nil)

	res := s.runPhase(context.Background(), "test", false, []domain.Task{
		task("13/06/2025 14:30", "Warragul", "g", "5", "2", "Fast Dog"),
		task("13/06/2025 15:00", "Bendigo", "r", "1", "3", "Quick Horse"),
	})

	require.Len(t, res.Results, 2)
	require.Equal(t, string(domain.OutcomeDateSelectionError), res.Results[0].BSPWin)
	require.Equal(t, string(domain.OutcomeDatePreviouslyFailed), res.Results[1].BSPWin)

	// Only the first group touched the page; the blacklisted date short-circuits.
	require.Equal(t, 1, countPrefix(nav.calls, "date:"))
	require.Equal(t, 0, countPrefix(nav.calls, "code:"))
	require.Empty(t, res.Retry)
	require.Equal(t, "13/06/2025", res.FailedPairs[0].Date)
	require.Equal(t, string(domain.OutcomeDateSelectionError), res.FailedPairs[0].Reason)
}

func TestPhaseDateDataNotLoadedQueuedForRetry(t *testing.T) {
	nav := &stubNav{
		waitVenues: func() error { return errors.New("venue list empty") },
	}
	s := NewService(fixedFactory(nav), 2, DedupeKeepLast, nil)

	in := task("13/06/2025 14:30", "Warragul", "g", "5", "2", "Fast Dog")
	res := s.runPhase(context.Background(), "test", false, []domain.Task{in})

	require.Len(t, res.Results, 1)
	require.Equal(t, string(domain.OutcomeDateDataNotLoaded), res.Results[0].BSPWin)
	require.Len(t, res.Retry, 1)
	require.Equal(t, in.Key(), res.Retry[0].Key())
	require.Empty(t, res.Retry[0].BSPWin)
}

func TestPhaseUnknownRaceCode(t *testing.T) {
	nav := &stubNav{}
	s := NewService(fixedFactory(nav), 2, DedupeKeepLast, nil)

	res := s.runPhase(context.Background(), "test", false, []domain.Task{
		task("13/06/2025 14:30", "Warragul", "camel", "5", "2", "Fast Dog"),
	})

	require.Len(t, res.Results, 1)
	require.Equal(t, string(domain.OutcomeUnknownRaceCode), res.Results[0].BSPWin)
	require.Equal(t, 0, countPrefix(nav.calls, "code:"))
	require.Empty(t, res.Retry)
}

func TestPhaseVenueFailureEscalation(t *testing.T) {
	nav := &stubNav{
		selectVenue: func(venue string, fuzzy bool) (navigator.Scope, error) {
			return nil, &navigator.VenueError{Kind: navigator.VenueNotFound, Target: venue}
		},
	}
	s := NewService(fixedFactory(nav), 2, DedupeKeepLast, nil)

	res := s.runPhase(context.Background(), "test", false, []domain.Task{
		task("13/06/2025 14:30", "Warragul", "g", "5", "2", "Fast Dog"),
		task("13/06/2025 15:00", "Bendigo", "g", "1", "3", "Other Dog"),
		task("13/06/2025 15:30", "Ballarat", "g", "2", "1", "Third Dog"),
	})

	require.Len(t, res.Results, 3)
	require.Equal(t, string(domain.OutcomeVenueLoadError), res.Results[0].BSPWin)
	require.Equal(t, string(domain.OutcomeVenueLoadError), res.Results[1].BSPWin)
	// Second venue failure on the date crossed the threshold of 2.
	require.Equal(t, string(domain.OutcomeDatePreviouslyFailed), res.Results[2].BSPWin)
	require.Equal(t, 2, countPrefix(nav.calls, "venue:"))
	require.Len(t, res.Retry, 2)
}

func TestPhaseAmbiguousFuzzyMatchNeverRetried(t *testing.T) {
	nav := &stubNav{
		selectVenue: func(venue string, fuzzy bool) (navigator.Scope, error) {
			return nil, &navigator.VenueError{
				Kind:       navigator.VenueAmbiguous,
				Target:     venue,
				Candidates: []string{"Sandown Park", "Sandown Greyhounds"},
			}
		},
	}
	s := NewService(fixedFactory(nav), 2, DedupeKeepLast, nil)

	res := s.runPhase(context.Background(), "test", true, []domain.Task{
		task("13/06/2025 14:30", "Sandown", "g", "5", "2", "Fast Dog"),
	})

	require.Len(t, res.Results, 1)
	require.Equal(t, string(domain.OutcomeAmbiguousFuzzyMatch), res.Results[0].BSPWin)
	require.Empty(t, res.Retry)
}

func TestPhaseNavigationSkippedWhenStateUnchanged(t *testing.T) {
	nav := &stubNav{}
	s := NewService(fixedFactory(nav), 2, DedupeKeepLast, nil)

	res := s.runPhase(context.Background(), "test", false, []domain.Task{
		task("13/06/2025 14:30", "Warragul", "g", "5", "2", "Fast Dog"),
		task("13/06/2025 15:00", "Bendigo", "g", "1", "3", "Other Dog"),
	})

	require.Len(t, res.Results, 2)
	require.Equal(t, 1, countPrefix(nav.calls, "date:"))
	require.Equal(t, 1, countPrefix(nav.calls, "code:"))
	require.Equal(t, 2, countPrefix(nav.calls, "venue:"))
}

func TestPhaseScopeLostMidRace(t *testing.T) {
	nav := &stubNav{
		revalidate: func() (navigator.Scope, error) {
			return nil, &navigator.ScopeLostError{Err: errors.New("panel detached")}
		},
	}
	s := NewService(fixedFactory(nav), 2, DedupeKeepLast, nil)

	res := s.runPhase(context.Background(), "test", false, []domain.Task{
		task("13/06/2025 14:30", "Warragul", "g", "5", "2", "Fast Dog"),
	})

	require.Len(t, res.Results, 1)
	require.Equal(t, string(domain.OutcomeVenueElementErrorMidRace), res.Results[0].BSPWin)
	require.Equal(t, 0, countPrefix(nav.calls, "race:"))
	require.Empty(t, res.Retry)
}

func TestPhaseRaceErrorClassification(t *testing.T) {
	cases := []struct {
		kind navigator.RaceErrorKind
		want domain.Outcome
	}{
		{navigator.RaceTimeout, domain.OutcomeRaceTimeout},
		{navigator.RaceMissing, domain.OutcomeRaceElementMissing},
		{navigator.RaceStale, domain.OutcomeRaceStaleElement},
		{navigator.RaceFailed, domain.OutcomeRaceError},
	}
	for _, c := range cases {
		nav := &stubNav{
			selectRace: func(raceNo string) error {
				return &navigator.RaceError{Kind: c.kind, RaceNo: raceNo, Err: errors.New("boom")}
			},
		}
		s := NewService(fixedFactory(nav), 2, DedupeKeepLast, nil)
		res := s.runPhase(context.Background(), "test", false, []domain.Task{
			task("13/06/2025 14:30", "Warragul", "g", "5", "2", "Fast Dog"),
			task("13/06/2025 14:30", "Warragul", "g", "5", "3", "Slow Dog"),
		})
		require.Len(t, res.Results, 2)
		require.Equal(t, string(c.want), res.Results[0].BSPWin)
		require.Equal(t, string(c.want), res.Results[1].BSPWin)
		// The race failed before any runner read.
		require.Equal(t, 0, countPrefix(nav.calls, "runner:"))
	}
}

func TestPhaseRunnerErrorsAreIndependent(t *testing.T) {
	nav := &stubNav{
		readRunner: func(runnerNo string) (string, string, error) {
			switch runnerNo {
			case "1":
				return "", "", &navigator.RunnerError{Kind: navigator.RunnerNotFound, RunnerNo: runnerNo}
			case "2":
				return "", "", &navigator.RunnerError{Kind: navigator.RunnerStale, RunnerNo: runnerNo}
			case "3":
				return "", "", errors.New("page blew up")
			default:
				return "4.20", "1.50", nil
			}
		},
	}
	s := NewService(fixedFactory(nav), 2, DedupeKeepLast, nil)

	res := s.runPhase(context.Background(), "test", false, []domain.Task{
		task("13/06/2025 14:30", "Warragul", "g", "5", "1", "A"),
		task("13/06/2025 14:30", "Warragul", "g", "5", "2", "B"),
		task("13/06/2025 14:30", "Warragul", "g", "5", "3", "C"),
		task("13/06/2025 14:30", "Warragul", "g", "5", "4", "D"),
	})

	require.Len(t, res.Results, 4)
	require.Equal(t, string(domain.OutcomeRunnerNotFoundOnPage), res.Results[0].BSPWin)
	require.Equal(t, string(domain.OutcomeStaleElement), res.Results[1].BSPWin)
	require.Equal(t, string(domain.OutcomeScrapeError), res.Results[2].BSPWin)
	require.Equal(t, "4.20", res.Results[3].BSPWin)
}

func TestPhaseDriverSetupFailure(t *testing.T) {
	factory := func(ctx context.Context) (navigator.Navigator, error) {
		return nil, errors.New("browser would not start")
	}
	s := NewService(factory, 2, DedupeKeepLast, nil)

	res := s.runPhase(context.Background(), "test", false, []domain.Task{
		task("13/06/2025 14:30", "Warragul", "g", "5", "2", "Fast Dog"),
		task("garbage", "Bendigo", "g", "1", "3", "Other Dog"),
	})

	require.Len(t, res.Results, 2)
	for _, r := range res.Results {
		require.Equal(t, string(domain.OutcomeDriverSetupErrorPhase), r.BSPWin)
	}
	require.Empty(t, res.Retry)
}

func TestPhaseUnparseableDatesLabeled(t *testing.T) {
	nav := &stubNav{}
	s := NewService(fixedFactory(nav), 2, DedupeKeepLast, nil)

	res := s.runPhase(context.Background(), "test", false, []domain.Task{
		task("not a date", "Warragul", "g", "5", "2", "Fast Dog"),
		task("13/06/2025 14:30", "Bendigo", "g", "1", "3", "Other Dog"),
	})

	require.Len(t, res.Results, 2)
	require.Equal(t, string(domain.OutcomeDateParseErrorForGrouping), res.Results[0].BSPWin)
	require.Equal(t, "2.50", res.Results[1].BSPWin)
}
