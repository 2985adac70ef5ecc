package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bsp/finder/internal/domain"
	"bsp/finder/internal/navigator"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	log "github.com/sirupsen/logrus"
)

const (
	pageShellSelector     = ".pb-6"
	filterPanelSelector   = ".filter-panel"
	venueFilterSelector   = `div.filters-list div.filter:not([style*='display: none'])`
	spinnerSelector       = `img.loading[style*='display: block'], img.loading:not([style*='display: none'])`
	calendarIconSelector  = ".calendar-image"
	calendarSelector      = ".flatpickr-calendar"
	curMonthSelector      = ".cur-month"
	curYearSelector       = ".numInput.cur-year"
	popupCloseSelector    = "div#imClose > button"
	activeMeetingXPath    = `//div[@class='meetings-list']/div[@class='meeting' and not(contains(@style, 'display: none'))]`
	raceTabsXPath         = activeMeetingXPath + `//div[contains(@class, 'race-tab')]`
	runnersLoadedXPath    = `.//div[@class='races']/div[contains(@class, 'betfair-url') and not(contains(@style,'display: none'))]//div[@class='runners']/div[@class='runner']`
	runnersContainerXPath = `.//div[@class='races']/div[contains(@class, 'betfair-url') and not(contains(@style,'display: none'))]//div[@class='runners']`

	// The calendar pages one month per click; three years of history is the
	// hard bound before giving up.
	maxCalendarPages = 36
	popupTimeout     = 3 * time.Second
	spinnerTimeout   = 15 * time.Second
)

func (s *Session) Open(ctx context.Context) error {
	log.Infof("Navigating to %s", s.baseURL)
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: s.baseURL})
	if err != nil {
		return fmt.Errorf("open results page: %w", err)
	}
	s.page = page
	if _, err := page.Timeout(s.actionTimeout).Element(pageShellSelector); err != nil {
		return fmt.Errorf("results page shell did not load: %w", err)
	}
	log.Info("Results page loaded")
	return nil
}

func (s *Session) SelectDate(ctx context.Context, date time.Time) error {
	dateKey := domain.FormatDate(date)
	s.lastDate = dateKey
	log.Infof("Calendar: selecting date %s", dateKey)

	s.dismissPopups()
	s.limiter.Take()

	icon, err := s.page.Timeout(s.actionTimeout).Element(calendarIconSelector)
	if err != nil {
		return &navigator.DateError{Date: dateKey, Err: fmt.Errorf("calendar icon: %w", err)}
	}
	if err := icon.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return &navigator.DateError{Date: dateKey, Err: fmt.Errorf("open calendar: %w", err)}
	}

	reached := false
	for i := 0; i < maxCalendarPages; i++ {
		shown, widget, err := s.readCalendarHeader()
		if err != nil {
			return &navigator.DateError{Date: dateKey, Err: fmt.Errorf("read calendar header: %w", err)}
		}
		if shown.Year() == date.Year() && shown.Month() == date.Month() {
			reached = true
			break
		}
		nav := ".flatpickr-next-month"
		if date.Before(shown) {
			nav = ".flatpickr-prev-month"
		}
		btn, err := widget.Element(nav)
		if err != nil {
			return &navigator.DateError{Date: dateKey, Err: fmt.Errorf("calendar paging button: %w", err)}
		}
		if _, err := btn.Eval(`() => this.click()`); err != nil {
			return &navigator.DateError{Date: dateKey, Err: fmt.Errorf("page calendar: %w", err)}
		}
		time.Sleep(400 * time.Millisecond)
	}
	if !reached {
		return &navigator.DateError{
			Date: dateKey,
			Err:  fmt.Errorf("month %s not reached within %d calendar pages", date.Format("January 2006"), maxCalendarPages),
		}
	}

	dayXPath := fmt.Sprintf(
		`//span[contains(@class, 'flatpickr-day') and not(contains(@class, 'prevMonthDay')) and not(contains(@class, 'nextMonthDay')) and normalize-space()='%d']`,
		date.Day())
	day, err := s.page.Timeout(s.actionTimeout).ElementX(dayXPath)
	if err != nil {
		return &navigator.DateError{Date: dateKey, Err: fmt.Errorf("day %d cell: %w", date.Day(), err)}
	}
	if err := day.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return &navigator.DateError{Date: dateKey, Err: fmt.Errorf("click day %d: %w", date.Day(), err)}
	}
	log.Infof("Calendar: day %d selected, waiting for spinner", date.Day())

	s.waitSpinnerGone(spinnerTimeout, s.actionTimeout)
	return nil
}

// readCalendarHeader reads the month/year the calendar currently displays.
// The flatpickr widget re-renders on paging, so stale reads are retried
// against a freshly located widget.
func (s *Session) readCalendarHeader() (time.Time, *rod.Element, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		widget, err := s.page.Timeout(s.actionTimeout).Element(calendarSelector)
		if err != nil {
			return time.Time{}, nil, err
		}
		shown, err := readHeaderOnce(widget)
		if err == nil {
			return shown, widget, nil
		}
		if !isStale(err) {
			return time.Time{}, nil, err
		}
		log.Debugf("Calendar: stale month/year elements, retrying (%d/3)", attempt+1)
		lastErr = err
		time.Sleep(300 * time.Millisecond)
	}
	return time.Time{}, nil, lastErr
}

func readHeaderOnce(widget *rod.Element) (time.Time, error) {
	monthEl, err := widget.Sleeper(rod.NotFoundSleeper).Element(curMonthSelector)
	if err != nil {
		return time.Time{}, err
	}
	yearEl, err := widget.Sleeper(rod.NotFoundSleeper).Element(curYearSelector)
	if err != nil {
		return time.Time{}, err
	}
	month, err := monthEl.Text()
	if err != nil {
		return time.Time{}, err
	}
	year, err := yearEl.Property("value")
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse("January 2006", strings.TrimSpace(month)+" "+year.Str())
}

func (s *Session) WaitVenuesLoaded(ctx context.Context) error {
	if _, err := s.page.Timeout(s.actionTimeout).Element(filterPanelSelector); err != nil {
		return &navigator.DataLoadError{Date: s.lastDate, Err: fmt.Errorf("filter panel: %w", err)}
	}
	// The venue list can take a long time to populate after a date change.
	if _, err := s.page.Timeout(s.dateLoadTimeout).Element(venueFilterSelector); err != nil {
		return &navigator.DataLoadError{Date: s.lastDate, Err: fmt.Errorf("venue filters: %w", err)}
	}
	return nil
}

func (s *Session) SelectCode(ctx context.Context, categoryID string) error {
	log.Infof("Switching discipline filter to %s", categoryID)
	s.limiter.Take()

	btn, err := s.page.Timeout(s.actionTimeout).Element("#" + categoryID)
	if err != nil {
		return &navigator.CodeError{CategoryID: categoryID, Err: err}
	}
	if err := btn.ScrollIntoView(); err != nil {
		return &navigator.CodeError{CategoryID: categoryID, Err: fmt.Errorf("scroll to button: %w", err)}
	}
	time.Sleep(300 * time.Millisecond)
	if _, err := btn.Eval(`() => this.click()`); err != nil {
		return &navigator.CodeError{CategoryID: categoryID, Err: fmt.Errorf("click button: %w", err)}
	}

	s.waitSpinnerGone(s.shortTimeout, s.actionTimeout)

	if _, err := s.page.Timeout(s.actionTimeout).Element(venueFilterSelector); err != nil {
		return &navigator.CodeError{CategoryID: categoryID, Err: fmt.Errorf("filters after switch: %w", err)}
	}
	return nil
}

func (s *Session) FindAndSelectVenue(ctx context.Context, venue string, fuzzy bool) (navigator.Scope, error) {
	if _, err := s.page.Timeout(s.actionTimeout).Element(venueFilterSelector); err != nil {
		return nil, fmt.Errorf("venue filters not visible: %w", err)
	}
	els, err := s.page.Elements(venueFilterSelector)
	if err != nil {
		return nil, fmt.Errorf("list venue filters: %w", err)
	}

	labels := make([]string, len(els))
	for i, el := range els {
		text, terr := el.Text()
		if terr != nil {
			if isStale(terr) {
				log.Warnf("Stale venue filter while reading labels, skipping one")
				continue
			}
			return nil, fmt.Errorf("read venue label: %w", terr)
		}
		labels[i] = strings.TrimSpace(text)
	}
	log.Debugf("Found %d venue filters, searching for %q", len(labels), venue)

	idx, err := navigator.MatchVenue(labels, venue, fuzzy)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(labels[idx], venue) {
		log.Warnf("Using fuzzy venue match %q for %q", labels[idx], venue)
	}

	s.limiter.Take()
	target := els[idx]
	if err := target.ScrollIntoView(); err != nil {
		return nil, fmt.Errorf("scroll to venue %q: %w", venue, err)
	}
	time.Sleep(500 * time.Millisecond)
	if err := target.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, fmt.Errorf("click venue %q: %w", venue, err)
	}

	s.waitSpinnerGone(s.shortTimeout, s.actionTimeout)
	return s.acquireMeeting()
}

func (s *Session) acquireMeeting() (navigator.Scope, error) {
	el, err := s.page.Timeout(s.actionTimeout).ElementX(activeMeetingXPath)
	if err != nil {
		return nil, fmt.Errorf("active meeting panel: %w", err)
	}
	if _, err := s.page.Timeout(s.actionTimeout).ElementX(raceTabsXPath); err != nil {
		return nil, fmt.Errorf("race tabs in meeting panel: %w", err)
	}
	return &meetingScope{el: el}, nil
}

func (s *Session) RevalidateScope(ctx context.Context) (navigator.Scope, error) {
	el, err := s.page.Sleeper(rod.NotFoundSleeper).ElementX(activeMeetingXPath)
	if err != nil {
		return nil, &navigator.ScopeLostError{Err: err}
	}
	return &meetingScope{el: el}, nil
}

func (s *Session) SelectRace(ctx context.Context, scope navigator.Scope, raceNo string) error {
	ms, ok := scope.(*meetingScope)
	if !ok || ms == nil {
		return &navigator.RaceError{Kind: navigator.RaceFailed, RaceNo: raceNo, Err: fmt.Errorf("no meeting panel handle")}
	}

	tabXPath := fmt.Sprintf(
		`.//div[contains(@class, 'race-tab') and div[@class='race-number' and normalize-space(text())='%s']]`,
		raceNo)
	tab, err := ms.el.Timeout(s.actionTimeout).ElementX(tabXPath)
	if err != nil {
		return s.raceError(raceNo, fmt.Errorf("race tab: %w", err))
	}

	class, err := tab.Attribute("class")
	if err != nil {
		return s.raceError(raceNo, fmt.Errorf("read tab class: %w", err))
	}
	if class == nil || !strings.Contains(*class, "active-grad") {
		log.Debugf("Race R%s: activating tab", raceNo)
		s.limiter.Take()
		if err := tab.ScrollIntoView(); err != nil {
			return s.raceError(raceNo, fmt.Errorf("scroll to tab: %w", err))
		}
		time.Sleep(300 * time.Millisecond)
		if _, err := tab.Eval(`() => this.click()`); err != nil {
			return s.raceError(raceNo, fmt.Errorf("click tab: %w", err))
		}
		// Runner rows often lag the tab switch. A miss here is logged only;
		// the container check below decides whether the race failed.
		if _, err := ms.el.Timeout(s.runnerRowsTimeout).ElementX(runnersLoadedXPath); err != nil {
			log.Warnf("Race R%s: runners did not appear within %s after tab click", raceNo, s.runnerRowsTimeout)
		}
		time.Sleep(time.Second)
	} else {
		log.Debugf("Race R%s: tab already active", raceNo)
		time.Sleep(500 * time.Millisecond)
	}

	if _, err := ms.el.Timeout(s.actionTimeout).ElementX(runnersContainerXPath); err != nil {
		return s.raceError(raceNo, fmt.Errorf("runners container: %w", err))
	}
	return nil
}

func (s *Session) raceError(raceNo string, err error) error {
	kind := navigator.RaceFailed
	switch {
	case isTimeout(err):
		kind = navigator.RaceTimeout
	case isStale(err):
		kind = navigator.RaceStale
	case isNotFound(err):
		kind = navigator.RaceMissing
	}
	return &navigator.RaceError{Kind: kind, RaceNo: raceNo, Err: err}
}

// dismissPopups closes the feedback survey overlay when present; it steals
// clicks aimed at the calendar.
func (s *Session) dismissPopups() {
	btn, err := s.page.Timeout(popupTimeout).Element(popupCloseSelector)
	if err != nil {
		return
	}
	log.Info("Closing feedback survey popup")
	if _, err := btn.Eval(`() => this.click()`); err != nil {
		log.Warnf("Could not close popup: %v", err)
		return
	}
	time.Sleep(time.Second)
}

// waitSpinnerGone waits for the loading spinner to appear within `appear`
// and then clear within `vanish`. Both waits are best-effort: a spinner
// that never shows usually means the data was already cached.
func (s *Session) waitSpinnerGone(appear, vanish time.Duration) {
	spinner, err := s.page.Timeout(appear).Element(spinnerSelector)
	if err != nil {
		log.Debug("Loading spinner not detected, proceeding")
		return
	}
	if err := spinner.CancelTimeout().Timeout(vanish).WaitInvisible(); err != nil {
		log.Warnf("Loading spinner still visible after %s: %v", vanish, err)
	}
}
