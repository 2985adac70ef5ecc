// Package state tracks scrape progress in Redis so a long run can be
// watched from outside: which group a phase is up to, and the final
// summary of a run. Optional; a nil Manager disables it.
package state

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Manager interface {
	SetPhaseProgress(ctx context.Context, phase string, group int) error
	GetPhaseProgress(ctx context.Context, phase string) (int, error)
	ClearPhase(ctx context.Context, phase string) error
	SaveRunSummary(ctx context.Context, runID, summary string) error
}

type redisManager struct {
	redisClient *redis.Client
	keyPrefix   string
}

func NewRedisManager(redisClient *redis.Client) Manager {
	return &redisManager{
		redisClient: redisClient,
		keyPrefix:   "bspfinder:",
	}
}

func (m *redisManager) progressKey(phase string) string {
	return m.keyPrefix + "progress:phase:" + phase
}

func (m *redisManager) SetPhaseProgress(ctx context.Context, phase string, group int) error {
	if err := m.redisClient.Set(ctx, m.progressKey(phase), group, 0).Err(); err != nil {
		return fmt.Errorf("failed to set progress for phase %s: %w", phase, err)
	}
	return nil
}

func (m *redisManager) GetPhaseProgress(ctx context.Context, phase string) (int, error) {
	val, err := m.redisClient.Get(ctx, m.progressKey(phase)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil // no progress recorded yet
		}
		return 0, fmt.Errorf("failed to get progress for phase %s: %w", phase, err)
	}
	group, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("failed to parse progress for phase %s: %w", phase, err)
	}
	return group, nil
}

func (m *redisManager) ClearPhase(ctx context.Context, phase string) error {
	if err := m.redisClient.Del(ctx, m.progressKey(phase)).Err(); err != nil {
		return fmt.Errorf("failed to clear progress for phase %s: %w", phase, err)
	}
	return nil
}

func (m *redisManager) SaveRunSummary(ctx context.Context, runID, summary string) error {
	key := m.keyPrefix + "summary:" + runID
	if err := m.redisClient.Set(ctx, key, summary, 30*24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to save summary for run %s: %w", runID, err)
	}
	return nil
}
