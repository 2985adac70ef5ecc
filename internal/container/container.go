package container

import (
	"context"
	"fmt"
	"time"

	"bsp/finder/internal/browser"
	"bsp/finder/internal/config"
	"bsp/finder/internal/csvio"
	"bsp/finder/internal/domain"
	"bsp/finder/internal/navigator"
	"bsp/finder/internal/proxy"
	"bsp/finder/internal/repository"
	"bsp/finder/internal/scraper"
	"bsp/finder/internal/state"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config       *config.Config
	Scraper      *scraper.Service
	Repository   repository.ResultRepository
	StateManager state.Manager

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	proxySupplier, err := proxy.NewSupplier(context.Background(), cfg.Browser.Proxies, cfg.Scraper.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize proxy supplier: %w", err)
	}

	if cfg.Database.Enabled {
		db, err := pgxpool.New(context.Background(),
			fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
				cfg.Database.Host,
				cfg.Database.Port,
				cfg.Database.User,
				cfg.Database.Password,
				cfg.Database.Name,
			))
		if err != nil {
			return nil, err
		}
		container.db = db
		container.Repository = repository.NewResultRepository(db)
		log.Info("✅ Result archive database enabled")
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis successfully")
		container.redis = rdb
		container.StateManager = state.NewRedisManager(rdb)
	}

	// Each phase launches its own browser session through this factory.
	factory := navigator.Factory(func(ctx context.Context) (navigator.Navigator, error) {
		return browser.NewSession(ctx, cfg, proxySupplier)
	})

	container.Scraper = scraper.NewService(
		factory,
		cfg.Scraper.VenueFailureThreshold,
		cfg.Output.DedupeMode,
		container.StateManager,
	)

	return container, nil
}

// Run executes one full scrape: read tasks, filter, run both phases, write
// the enriched CSV and archive the run when the optional stores are on.
func (c *Container) Run(ctx context.Context) error {
	in, err := csvio.ReadTasks(c.Config.Input.File)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	log.Infof("Read %d tasks from '%s'", len(in.Tasks), c.Config.Input.File)

	tasks, removed := domain.DedupeByKey(in.Tasks)
	if removed > 0 {
		log.Infof("Removed %d duplicate input rows", removed)
	}

	days := c.Config.Scraper.RetryWindowDays
	kept, outside, unparseable := domain.FilterWindow(tasks, days, time.Now())
	if outside > 0 {
		log.Infof("Date filter: %d tasks were outside the %d-day window and removed", outside, days)
	}
	if unparseable > 0 {
		log.Warnf("Date filter: %d tasks with unparseable dates removed", unparseable)
	}
	log.Infof("Date filter: %d tasks remain", len(kept))

	if len(kept) == 0 {
		log.Warn("No tasks remain after filtering. Writing header-only output.")
		return csvio.WriteResults(c.Config.Output.File, in.Header, nil)
	}

	results, summary := c.Scraper.Run(ctx, kept)
	summary.Log()

	if err := csvio.WriteResults(c.Config.Output.File, in.Header, results); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	runID := time.Now().Format("20060102-150405")
	if c.Repository != nil {
		if err := c.Repository.SaveResults(ctx, runID, results); err != nil {
			log.Errorf("Could not archive results to database: %v", err)
		} else {
			log.Infof("Results archived to database (run %s)", runID)
		}
	}
	if c.StateManager != nil {
		if err := c.StateManager.SaveRunSummary(ctx, runID, summary.String()); err != nil {
			log.Warnf("Could not save run summary: %v", err)
		}
	}

	return nil
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Warnf("Error closing Redis connection: %v", err)
		}
	}

	log.Info("Container shut down successfully")
	return nil
}
