// Package queue provides the bounded retry queue carried from the strict
// phase into the fuzzy-matching phase.
package queue

import "bsp/finder/internal/domain"

// RetryQueue is an ordered set of tasks keyed by task identity. Adding a
// duplicate keeps the first occurrence, so a task that failed in several
// groups (or appeared as a duplicate input row) is retried exactly once.
type RetryQueue struct {
	seen  map[string]struct{}
	tasks []domain.Task
}

func NewRetryQueue() *RetryQueue {
	return &RetryQueue{seen: map[string]struct{}{}}
}

// Add enqueues a task for retry. Returns false when the task identity is
// already queued.
func (q *RetryQueue) Add(t domain.Task) bool {
	k := t.Key()
	if _, ok := q.seen[k]; ok {
		return false
	}
	q.seen[k] = struct{}{}
	// retry the clean task, not the failure-labeled copy
	t.BSPWin = ""
	t.BSPPlace = ""
	q.tasks = append(q.tasks, t)
	return true
}

func (q *RetryQueue) Len() int {
	return len(q.tasks)
}

// Tasks returns the queued tasks in insertion order.
func (q *RetryQueue) Tasks() []domain.Task {
	return q.tasks
}
