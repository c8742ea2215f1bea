package taskstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"exposure/types"
)

// MemoryStore is the default in-process task store, guarded by a RWMutex.
// It also serves as the test double for the Redis-backed store.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*types.AnalysisTask

	// fresh maps cache key -> most recent completed task id
	fresh map[string]freshEntry
}

type freshEntry struct {
	taskID      string
	completedAt time.Time
}

// NewMemoryStore creates an empty in-memory task store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]*types.AnalysisTask),
		fresh: make(map[string]freshEntry),
	}
}

// Create stores a new task record
func (s *MemoryStore) Create(ctx context.Context, task *types.AnalysisTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}

	stored := cloneTask(task)
	s.tasks[task.ID] = stored
	if stored.Status == types.TaskCompleted {
		s.recordFreshLocked(stored)
	}
	return nil
}

// Get returns a snapshot of the task; repeated reads of a terminal task
// always return identical payloads.
func (s *MemoryStore) Get(ctx context.Context, id string) (*types.AnalysisTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	return cloneTask(task), nil
}

// SetProgress moves the task to running with a monotone progress value
func (s *MemoryStore) SetProgress(ctx context.Context, id string, progress int, stage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	if task.Status.Terminal() {
		return fmt.Errorf("task %s is terminal (%s)", id, task.Status)
	}
	if progress < task.Progress {
		return fmt.Errorf("task %s: progress %d < %d", id, progress, task.Progress)
	}
	if progress > 100 {
		progress = 100
	}

	task.Status = types.TaskRunning
	task.Progress = progress
	task.Stage = stage
	return nil
}

// Complete marks the task completed and records it for freshness reuse
func (s *MemoryStore) Complete(ctx context.Context, id string, result *types.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	if task.Status.Terminal() {
		return fmt.Errorf("task %s is terminal (%s)", id, task.Status)
	}

	now := time.Now()
	task.Status = types.TaskCompleted
	task.Progress = 100
	task.Stage = ""
	task.Result = result
	task.CompletedAt = &now
	s.recordFreshLocked(task)
	return nil
}

// Fail marks the task failed with a structured error
func (s *MemoryStore) Fail(ctx context.Context, id string, taskErr *types.AnalysisError) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	if task.Status.Terminal() {
		return fmt.Errorf("task %s is terminal (%s)", id, task.Status)
	}

	now := time.Now()
	task.Status = types.TaskFailed
	task.Error = taskErr.Error()
	task.CompletedAt = &now
	return nil
}

// FindFresh returns a completed task for the cache key within the window
func (s *MemoryStore) FindFresh(ctx context.Context, cacheKey string, window time.Duration) (*types.AnalysisTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.fresh[cacheKey]
	if !ok || time.Since(entry.completedAt) > window {
		return nil, types.ErrNotFound
	}
	task, ok := s.tasks[entry.taskID]
	if !ok || task.Status != types.TaskCompleted {
		return nil, types.ErrNotFound
	}
	return cloneTask(task), nil
}

// Sweep drops terminal tasks older than maxAge and returns how many were
// removed. Called from the cron janitor.
func (s *MemoryStore) Sweep(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, task := range s.tasks {
		if task.Status.Terminal() && task.CompletedAt != nil && time.Since(*task.CompletedAt) > maxAge {
			delete(s.tasks, id)
			removed++
		}
	}
	for key, entry := range s.fresh {
		if _, ok := s.tasks[entry.taskID]; !ok {
			delete(s.fresh, key)
		}
	}
	return removed
}

func (s *MemoryStore) recordFreshLocked(task *types.AnalysisTask) {
	completedAt := time.Now()
	if task.CompletedAt != nil {
		completedAt = *task.CompletedAt
	}
	s.fresh[CacheKey(task.InputURL)] = freshEntry{taskID: task.ID, completedAt: completedAt}
}

func cloneTask(t *types.AnalysisTask) *types.AnalysisTask {
	c := *t
	if t.Result != nil {
		r := *t.Result
		c.Result = &r
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		c.CompletedAt = &ts
	}
	return &c
}
