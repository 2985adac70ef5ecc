package scraper

import (
	"context"
	"fmt"
	"strings"

	"bsp/finder/internal/domain"
	"bsp/finder/internal/ledger"

	log "github.com/sirupsen/logrus"
)

const (
	PhaseExact = "Phase 1 (Exact Venue)"
	PhaseFuzzy = "Phase 2 (Fuzzy Venue)"

	// DedupeKeepLast keeps only the final attempt for a retried task;
	// DedupeKeepAll keeps every attempt row.
	DedupeKeepLast = "keep_last"
	DedupeKeepAll  = "keep_all"
)

// Summary describes a full two-phase run.
type Summary struct {
	InputTasks        int
	Rows              int
	Succeeded         int
	Failed            int
	PermanentlyFailed int // still retryable after the fuzzy phase, not retried further
	FailedPairs       []ledger.FailurePair
}

func (s Summary) String() string {
	return fmt.Sprintf("input=%d rows=%d succeeded=%d failed=%d permanently_failed=%d failed_pairs=%d",
		s.InputTasks, s.Rows, s.Succeeded, s.Failed, s.PermanentlyFailed, len(s.FailedPairs))
}

// Log prints the run summary block.
func (s Summary) Log() {
	log.Info("================ RUN SUMMARY ================")
	log.Infof("Input tasks:        %d", s.InputTasks)
	log.Infof("Output rows:        %d", s.Rows)
	log.Infof("Prices scraped:     %d", s.Succeeded)
	log.Infof("Failures:           %d", s.Failed)
	if s.PermanentlyFailed > 0 {
		log.Warnf("Permanently failed: %d (exhausted both phases)", s.PermanentlyFailed)
	}
	if len(s.FailedPairs) > 0 {
		reasons := make([]string, 0, len(s.FailedPairs))
		for _, p := range s.FailedPairs {
			reasons = append(reasons, fmt.Sprintf("%s (%s)", p.Date, p.Reason))
		}
		log.Warnf("Dates with failures: %s", strings.Join(reasons, "; "))
	}
	log.Info("=============================================")
}

// Run executes the exact-match phase over all tasks, then the fuzzy phase
// over only the tasks the first phase queued for retry. Each phase gets a
// fresh browser session and fresh per-phase state.
func (s *Service) Run(ctx context.Context, tasks []domain.Task) ([]domain.Task, Summary) {
	p1 := s.runPhase(ctx, PhaseExact, false, tasks)
	log.Infof("--- %s complete: %d rows, %d retry candidates ---", PhaseExact, len(p1.Results), len(p1.Retry))

	combined := p1.Results
	pairs := p1.FailedPairs
	permanent := 0

	if len(p1.Retry) > 0 {
		log.Infof("--- Starting %s for %d tasks ---", PhaseFuzzy, len(p1.Retry))
		p2 := s.runPhase(ctx, PhaseFuzzy, true, p1.Retry)
		combined = append(combined, p2.Results...)
		pairs = append(pairs, p2.FailedPairs...)
		if permanent = len(p2.Retry); permanent > 0 {
			log.Warnf("%d tasks still failing after %s. Not retrying further.", permanent, PhaseFuzzy)
		}
	} else {
		log.Info("No tasks queued for the retry phase")
	}

	final := combined
	if s.dedupe != DedupeKeepAll {
		var dropped int
		final, dropped = dedupeKeepLast(combined)
		if dropped > 0 {
			log.Infof("Dropped %d superseded first-phase rows for retried tasks", dropped)
		}
	}

	summary := Summary{
		InputTasks:        len(tasks),
		Rows:              len(final),
		PermanentlyFailed: permanent,
		FailedPairs:       pairs,
	}
	for _, t := range final {
		if domain.IsFailureLabel(t.BSPWin) {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return final, summary
}

// dedupeKeepLast keeps the last row per task key, ordered by the position
// of that last occurrence.
func dedupeKeepLast(tasks []domain.Task) ([]domain.Task, int) {
	last := make(map[string]int, len(tasks))
	for i, t := range tasks {
		last[t.Key()] = i
	}
	out := make([]domain.Task, 0, len(last))
	for i, t := range tasks {
		if last[t.Key()] == i {
			out = append(out, t)
		}
	}
	return out, len(tasks) - len(out)
}
