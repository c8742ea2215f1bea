package taskstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"exposure/types"
)

const (
	taskKeyPrefix  = "exposure:task:"
	freshKeyPrefix = "exposure:fresh:"

	// terminal tasks stay readable for a day so late pollers still resolve
	taskTTL = 24 * time.Hour
)

// RedisStore persists tasks as JSON values in Redis. The freshness index is
// a separate key per normalized URL whose TTL is the freshness window.
type RedisStore struct {
	client *redis.Client
}

// RedisConfig configures the Redis connection
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects and verifies the Redis backend
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisStore{client: client}, nil
}

// Close closes the underlying Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Create stores a new task record
func (s *RedisStore) Create(ctx context.Context, task *types.AnalysisTask) error {
	if err := s.write(ctx, task); err != nil {
		return err
	}
	if task.Status == types.TaskCompleted {
		return s.recordFresh(ctx, task, taskTTL)
	}
	return nil
}

// Get loads a task by id
func (s *RedisStore) Get(ctx context.Context, id string) (*types.AnalysisTask, error) {
	raw, err := s.client.Get(ctx, taskKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get task %s: %w", id, err)
	}

	var task types.AnalysisTask
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	return &task, nil
}

// SetProgress moves the task to running with a monotone progress value
func (s *RedisStore) SetProgress(ctx context.Context, id string, progress int, stage string) error {
	return s.mutate(ctx, id, func(task *types.AnalysisTask) error {
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
	})
}

// Complete marks the task completed and indexes it for freshness reuse
func (s *RedisStore) Complete(ctx context.Context, id string, result *types.AnalysisResult) error {
	var completed *types.AnalysisTask
	err := s.mutate(ctx, id, func(task *types.AnalysisTask) error {
		now := time.Now()
		task.Status = types.TaskCompleted
		task.Progress = 100
		task.Stage = ""
		task.Result = result
		task.CompletedAt = &now
		completed = task
		return nil
	})
	if err != nil {
		return err
	}
	return s.recordFresh(ctx, completed, taskTTL)
}

// Fail marks the task failed
func (s *RedisStore) Fail(ctx context.Context, id string, taskErr *types.AnalysisError) error {
	return s.mutate(ctx, id, func(task *types.AnalysisTask) error {
		now := time.Now()
		task.Status = types.TaskFailed
		task.Error = taskErr.Error()
		task.CompletedAt = &now
		return nil
	})
}

// FindFresh resolves the freshness index for the cache key. The index key
// carries the window as its TTL, so Redis does the expiry for us; window is
// still checked against CompletedAt in case the index was written with a
// longer TTL.
func (s *RedisStore) FindFresh(ctx context.Context, cacheKey string, window time.Duration) (*types.AnalysisTask, error) {
	taskID, err := s.client.Get(ctx, freshKeyPrefix+cacheKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get fresh %s: %w", cacheKey, err)
	}

	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, types.ErrNotFound
	}
	if task.Status != types.TaskCompleted || task.CompletedAt == nil || time.Since(*task.CompletedAt) > window {
		return nil, types.ErrNotFound
	}
	return task, nil
}

func (s *RedisStore) mutate(ctx context.Context, id string, fn func(*types.AnalysisTask) error) error {
	task, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if task.Status.Terminal() {
		return fmt.Errorf("task %s is terminal (%s)", id, task.Status)
	}
	if err := fn(task); err != nil {
		return err
	}
	return s.write(ctx, task)
}

func (s *RedisStore) write(ctx context.Context, task *types.AnalysisTask) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", task.ID, err)
	}
	if err := s.client.Set(ctx, taskKeyPrefix+task.ID, raw, taskTTL).Err(); err != nil {
		return fmt.Errorf("redis set task %s: %w", task.ID, err)
	}
	return nil
}

func (s *RedisStore) recordFresh(ctx context.Context, task *types.AnalysisTask, ttl time.Duration) error {
	key := freshKeyPrefix + CacheKey(task.InputURL)
	if err := s.client.Set(ctx, key, task.ID, ttl).Err(); err != nil {
		return fmt.Errorf("redis set fresh index: %w", err)
	}
	return nil
}
