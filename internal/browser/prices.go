package browser

import (
	"context"
	"fmt"
	"strings"

	"bsp/finder/internal/navigator"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
)

// ReadRunnerPrices locates the runner's row inside the active meeting's
// runners container and extracts the win/place price texts from a snapshot
// of its HTML. Lookups are immediate: after SelectRace the row either
// exists or it does not, and waiting would only slow the whole run down.
func (s *Session) ReadRunnerPrices(ctx context.Context, scope navigator.Scope, runnerNo string) (string, string, error) {
	ms, ok := scope.(*meetingScope)
	if !ok || ms == nil {
		return "", "", &navigator.RunnerError{Kind: navigator.RunnerScrapeFailed, RunnerNo: runnerNo, Err: fmt.Errorf("no meeting panel handle")}
	}

	container, err := ms.el.Sleeper(rod.NotFoundSleeper).ElementX(runnersContainerXPath)
	if err != nil {
		return "", "", s.runnerError(runnerNo, fmt.Errorf("runners container: %w", err))
	}

	rowXPath := fmt.Sprintf(
		`.//div[@class='runner-info' and .//div[@class='number' and normalize-space(text())='%s']]/ancestor::div[@class='runner']`,
		runnerNo)
	row, err := container.Sleeper(rod.NotFoundSleeper).ElementX(rowXPath)
	if err != nil {
		if isNotFound(err) {
			return "", "", &navigator.RunnerError{Kind: navigator.RunnerNotFound, RunnerNo: runnerNo, Err: err}
		}
		return "", "", s.runnerError(runnerNo, fmt.Errorf("runner row: %w", err))
	}

	html, err := row.HTML()
	if err != nil {
		return "", "", s.runnerError(runnerNo, fmt.Errorf("runner row html: %w", err))
	}

	win, place, err := extractPrices(html)
	if err != nil {
		return "", "", &navigator.RunnerError{Kind: navigator.RunnerNotFound, RunnerNo: runnerNo, Err: err}
	}
	return win, place, nil
}

func (s *Session) runnerError(runnerNo string, err error) error {
	kind := navigator.RunnerScrapeFailed
	if isStale(err) {
		kind = navigator.RunnerStale
	}
	return &navigator.RunnerError{Kind: kind, RunnerNo: runnerNo, Err: err}
}

// extractPrices pulls the win and place price texts out of a runner row
// HTML snapshot. Empty text is a valid result; missing price cells are not.
func extractPrices(html string) (win, place string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("parse runner row: %w", err)
	}

	winSel := doc.Find("div.price.win")
	placeSel := doc.Find("div.price.place")
	if winSel.Length() == 0 || placeSel.Length() == 0 {
		return "", "", fmt.Errorf("price cells missing from runner row")
	}
	return strings.TrimSpace(winSel.First().Text()), strings.TrimSpace(placeSel.First().Text()), nil
}
