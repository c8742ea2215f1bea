package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"exposure/taskstore"
	"exposure/types"
)

// Service owns task creation and the background analysis workers. The task
// store is the only synchronization point between a worker and its poller.
type Service struct {
	store     taskstore.Store
	scraper   Scraper
	freshness time.Duration

	mu       sync.Mutex
	inflight map[string]string // cache key -> task id of a non-terminal run

	sem chan struct{}
}

// NewService creates the analyzer service with a bounded worker pool
func NewService(store taskstore.Store, scraper Scraper, freshness time.Duration, workers int) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		store:     store,
		scraper:   scraper,
		freshness: freshness,
		inflight:  make(map[string]string),
		sem:       make(chan struct{}, workers),
	}
}

// Submit creates a task for the URL. Three outcomes:
//   - a sufficiently recent completed analysis exists: a new task is created
//     already completed carrying the cached result;
//   - an analysis for the same normalized URL is in flight: that task is
//     returned so concurrent submitters converge on one run;
//   - otherwise a queued task is created and a background worker picks it up.
func (s *Service) Submit(ctx context.Context, rawURL string) (*types.AnalysisTask, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	key := taskstore.CacheKey(rawURL)

	if cached, err := s.store.FindFresh(ctx, key, s.freshness); err == nil {
		task := &types.AnalysisTask{
			ID:          uuid.NewString(),
			InputURL:    rawURL,
			Status:      types.TaskCompleted,
			Progress:    100,
			Result:      cached.Result,
			CreatedAt:   time.Now(),
			CompletedAt: cached.CompletedAt,
		}
		if err := s.store.Create(ctx, task); err != nil {
			return nil, err
		}
		log.Printf("analyzer: cache hit for %s, task %s created completed", rawURL, task.ID)
		return task, nil
	} else if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	s.mu.Lock()
	if existingID, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		if existing, err := s.store.Get(ctx, existingID); err == nil && !existing.Status.Terminal() {
			return existing, nil
		}
		s.mu.Lock()
	}

	task := &types.AnalysisTask{
		ID:        uuid.NewString(),
		InputURL:  rawURL,
		Status:    types.TaskQueued,
		CreatedAt: time.Now(),
	}
	s.inflight[key] = task.ID
	s.mu.Unlock()

	if err := s.store.Create(ctx, task); err != nil {
		s.clearInflight(key)
		return nil, err
	}

	go s.run(task.ID, rawURL, key)

	return task, nil
}

// run executes one analysis out of band. Poller abandonment has no effect
// here: the task finishes and its result is recorded regardless.
func (s *Service) run(taskID, rawURL, key string) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()
	defer s.clearInflight(key)

	ctx := context.Background()

	report := func(progress int, stage string) {
		if err := s.store.SetProgress(ctx, taskID, progress, stage); err != nil {
			log.Printf("analyzer: progress update for task %s: %v", taskID, err)
		}
	}
	report(0, "starting")

	result, err := s.scraper.Analyze(ctx, rawURL, report)
	if err != nil {
		var analysisErr *types.AnalysisError
		if !errors.As(err, &analysisErr) {
			analysisErr = &types.AnalysisError{Kind: "internal", Message: err.Error()}
		}
		if storeErr := s.store.Fail(ctx, taskID, analysisErr); storeErr != nil {
			log.Printf("analyzer: recording failure for task %s: %v", taskID, storeErr)
		}
		log.Printf("analyzer: task %s failed: %v", taskID, analysisErr)
		return
	}

	if err := s.store.Complete(ctx, taskID, result); err != nil {
		log.Printf("analyzer: completing task %s: %v", taskID, err)
		return
	}
	log.Printf("analyzer: task %s completed for %s (brand=%s)", taskID, rawURL, result.BrandName)
}

func (s *Service) clearInflight(key string) {
	s.mu.Lock()
	delete(s.inflight, key)
	s.mu.Unlock()
}

func validateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &types.ValidationError{Field: "url", Reason: "required"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &types.ValidationError{Field: "url", Reason: fmt.Sprintf("unparseable: %v", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &types.ValidationError{Field: "url", Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return &types.ValidationError{Field: "url", Reason: "missing host"}
	}
	return nil
}
