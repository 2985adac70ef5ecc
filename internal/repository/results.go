// Package repository archives scrape runs to Postgres. The archive is
// optional; the CSV output is always the primary artifact.
package repository

import (
	"context"
	"fmt"

	"bsp/finder/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

type ResultRepository interface {
	SaveResults(ctx context.Context, runID string, results []domain.Task) error
}

type resultRepository struct {
	db *pgxpool.Pool
}

func NewResultRepository(db *pgxpool.Pool) ResultRepository {
	return &resultRepository{
		db: db,
	}
}

// SaveResults upserts one row per result keyed by (run_id, task_key), so
// re-archiving the same run is idempotent.
func (r *resultRepository) SaveResults(ctx context.Context, runID string, results []domain.Task) error {
	query := `
	INSERT INTO scrape_results (run_id, task_key, race_time, venue, code, race_no, runner_no, runner_name, bsp_win, bsp_place)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (run_id, task_key)
	DO UPDATE SET bsp_win = $9, bsp_place = $10`

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, t := range results {
		t := t
		g.Go(func() error {
			_, err := r.db.Exec(ctx, query,
				runID, t.Key(), t.Time, t.Venue, t.Code, t.RaceNo, t.RunnerNo, t.RunnerName, t.BSPWin, t.BSPPlace)
			if err != nil {
				return fmt.Errorf("failed to save result %s: %w", t.Key(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
