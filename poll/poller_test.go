package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"exposure/types"
)

// scriptedFetcher plays back a fixed sequence of task states, then repeats
// the last one forever.
type scriptedFetcher struct {
	states  []types.AnalysisTask
	fetches int
}

func (f *scriptedFetcher) FetchTask(ctx context.Context, taskID string) (*types.AnalysisTask, error) {
	i := f.fetches
	if i >= len(f.states) {
		i = len(f.states) - 1
	}
	f.fetches++
	task := f.states[i]
	task.ID = taskID
	return &task, nil
}

// fakeClock gives the poller a clock that only advances when sleep is
// called, so tests never wait on real time.
func fakeClock(p *Poller) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	p.sleep = func(ctx context.Context, d time.Duration) error {
		now = now.Add(d)
		return ctx.Err()
	}
}

func TestPollUntilCompleted(t *testing.T) {
	fetcher := &scriptedFetcher{states: []types.AnalysisTask{
		{Status: types.TaskQueued, Progress: 0},
		{Status: types.TaskRunning, Progress: 35, Stage: "extracting brand"},
		{Status: types.TaskRunning, Progress: 90, Stage: "selecting images"},
		{Status: types.TaskCompleted, Progress: 100, Result: &types.AnalysisResult{BrandName: "Example Co"}},
	}}
	p := NewPoller(fetcher, 2*time.Second, time.Minute)
	fakeClock(p)

	var updates []int
	result, err := p.Poll(context.Background(), "task-1", func(progress int, stage string) {
		updates = append(updates, progress)
	})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if result == nil || result.BrandName != "Example Co" {
		t.Fatalf("result = %+v", result)
	}
	if fetcher.fetches != 4 {
		t.Errorf("fetches = %d, want 4", fetcher.fetches)
	}
	// one callback per fetch, unchanged values included
	want := []int{0, 35, 90, 100}
	if len(updates) != len(want) {
		t.Fatalf("progress updates = %v, want %v", updates, want)
	}
	for i := range want {
		if updates[i] != want[i] {
			t.Fatalf("progress updates = %v, want %v", updates, want)
		}
	}
}

func TestPollTaskFailure(t *testing.T) {
	fetcher := &scriptedFetcher{states: []types.AnalysisTask{
		{Status: types.TaskRunning, Progress: 10},
		{Status: types.TaskFailed, Progress: 10, Error: "site unreachable"},
	}}
	p := NewPoller(fetcher, 2*time.Second, time.Minute)
	fakeClock(p)

	_, err := p.Poll(context.Background(), "task-1", nil)
	var analysisErr *types.AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Fatalf("expected AnalysisError, got %v", err)
	}
	if analysisErr.Message != "site unreachable" {
		t.Errorf("message = %q", analysisErr.Message)
	}
}

// A task that never settles must surface a timeout, never a task failure:
// the server may still finish it after the client gives up.
func TestPollTimeoutIsNotFailure(t *testing.T) {
	fetcher := &scriptedFetcher{states: []types.AnalysisTask{
		{Status: types.TaskRunning, Progress: 50, Stage: "collecting products"},
	}}
	p := NewPoller(fetcher, 2*time.Second, 10*time.Second)
	fakeClock(p)

	_, err := p.Poll(context.Background(), "task-1", nil)
	var timeout *types.PollTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected PollTimeoutError, got %v", err)
	}
	var analysisErr *types.AnalysisError
	if errors.As(err, &analysisErr) {
		t.Error("timeout must not be an AnalysisError")
	}
	if timeout.TaskID != "task-1" {
		t.Errorf("task id = %q", timeout.TaskID)
	}
}

func TestPollAbandoned(t *testing.T) {
	fetcher := &scriptedFetcher{states: []types.AnalysisTask{
		{Status: types.TaskRunning, Progress: 10},
	}}
	p := NewPoller(fetcher, 2*time.Second, time.Minute)
	fakeClock(p)

	ctx, cancel := context.WithCancel(context.Background())
	fetches := 0
	_, err := p.Poll(ctx, "task-1", func(int, string) {
		fetches++
		if fetches == 3 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if fetcher.fetches > 3 {
		t.Errorf("poll kept fetching after cancel: %d fetches", fetcher.fetches)
	}
}

func TestPollFetchErrorPropagates(t *testing.T) {
	p := NewPoller(failingFetcher{}, time.Second, time.Minute)
	fakeClock(p)

	_, err := p.Poll(context.Background(), "task-1", nil)
	if err == nil || err.Error() != "connection refused" {
		t.Fatalf("err = %v", err)
	}
}

type failingFetcher struct{}

func (failingFetcher) FetchTask(ctx context.Context, taskID string) (*types.AnalysisTask, error) {
	return nil, errors.New("connection refused")
}
