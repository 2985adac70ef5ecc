// Package browser is the go-rod implementation of the page navigator: one
// headless Chrome session driving the racing results hub through calendar,
// discipline filter, venue filter, race tab and runner row interactions.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bsp/finder/internal/config"
	"bsp/finder/internal/navigator"
	"bsp/finder/internal/proxy"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	limiter  ratelimit.Limiter

	baseURL  string
	lastDate string

	actionTimeout     time.Duration
	dateLoadTimeout   time.Duration
	shortTimeout      time.Duration
	runnerRowsTimeout time.Duration
}

// meetingScope wraps the active meeting panel element. It is handed out as
// navigator.Scope and becomes invalid on any structural page change.
type meetingScope struct {
	el *rod.Element
}

// NewSession launches a Chrome instance and connects to it. The session
// implements navigator.Navigator; one session serves exactly one phase.
func NewSession(ctx context.Context, cfg *config.Config, proxies proxy.Supplier) (navigator.Navigator, error) {
	bin := cfg.Browser.BinPath
	if bin == "" {
		log.Info("No browser binary specified, downloading default...")
		path, err := launcher.NewBrowser().Get()
		if err != nil {
			return nil, fmt.Errorf("download browser: %w", err)
		}
		bin = path
	}

	l := launcher.New().
		Headless(cfg.Browser.Headless).
		Bin(bin).
		NoSandbox(true).
		Set("disable-dev-shm-usage", "true").
		Set("disable-gpu", "true").
		Set("start-maximized", "true")

	if proxies != nil {
		if server := proxies.Get(); server != "" {
			log.Infof("Launching browser behind proxy %s", server)
			l = l.Proxy(server)
		}
	}

	wsURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().Context(ctx).ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	rps := cfg.Browser.MaxActionsPerSecond
	if rps <= 0 {
		rps = 4
	}

	log.Infof("Browser session started (headless: %v)", cfg.Browser.Headless)
	return &Session{
		browser:           browser,
		launcher:          l,
		limiter:           ratelimit.New(rps),
		baseURL:           cfg.Scraper.BaseURL,
		actionTimeout:     cfg.Timeouts.Action(),
		dateLoadTimeout:   cfg.Timeouts.DateLoad(),
		shortTimeout:      cfg.Timeouts.Short(),
		runnerRowsTimeout: cfg.Timeouts.RunnerRows(),
	}, nil
}

func (s *Session) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Kill()
	}
	return err
}

// isStale reports whether an element handle no longer points at a live DOM
// node. Chrome signals this through protocol errors, not a dedicated type.
func isStale(err error) bool {
	var cdpErr *cdp.Error
	if errors.As(err, &cdpErr) {
		return strings.Contains(cdpErr.Message, "Could not find node") ||
			strings.Contains(cdpErr.Message, "Cannot find context")
	}
	var objErr *rod.ObjectNotFoundError
	return errors.As(err, &objErr)
}

func isNotFound(err error) bool {
	var notFound *rod.ElementNotFoundError
	return errors.As(err, &notFound)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
