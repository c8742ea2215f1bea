// Package poll implements the client side of the analysis task protocol:
// a cancellable loop that watches a task until it settles or a deadline
// passes. The server is never told about abandonment; the task finishes on
// its own either way.
package poll

import (
	"context"
	"time"

	"exposure/types"
)

// TaskFetcher reads task state. Satisfied by the HTTP API client and, in
// tests, by scripted fakes.
type TaskFetcher interface {
	FetchTask(ctx context.Context, taskID string) (*types.AnalysisTask, error)
}

// ProgressFunc is invoked exactly once per fetch, unchanged values included
type ProgressFunc func(progress int, stage string)

// state of one poll loop
type state int

const (
	stateIdle state = iota
	statePolling
	stateSettled
)

// Poller runs poll loops against a fetcher. Interval and timeout apply to
// every Poll call; clock hooks exist so tests never wait on real time.
type Poller struct {
	fetcher  TaskFetcher
	interval time.Duration
	timeout  time.Duration

	// test seams; defaulted by NewPoller
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller creates a poller with the given cadence and overall deadline
func NewPoller(fetcher TaskFetcher, interval, timeout time.Duration) *Poller {
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Poll fetches the task at the configured cadence until it settles.
// Returns the result on completion; a *types.AnalysisError when the task
// reports failure; a *types.PollTimeoutError when the deadline passes with
// the task still non-terminal; ctx.Err() when the caller abandons the loop.
func (p *Poller) Poll(ctx context.Context, taskID string, onProgress ProgressFunc) (*types.AnalysisResult, error) {
	st := statePolling
	deadline := p.now().Add(p.timeout)

	for st == statePolling {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		task, err := p.fetcher.FetchTask(ctx, taskID)
		if err != nil {
			return nil, err
		}

		if onProgress != nil {
			onProgress(task.Progress, task.Stage)
		}

		switch task.Status {
		case types.TaskCompleted:
			st = stateSettled
			return task.Result, nil
		case types.TaskFailed:
			st = stateSettled
			return nil, &types.AnalysisError{Kind: "reported", Message: task.Error}
		}

		if p.now().After(deadline) {
			st = stateSettled
			return nil, &types.PollTimeoutError{TaskID: taskID, Elapsed: p.timeout.String()}
		}

		if err := p.sleep(ctx, p.interval); err != nil {
			return nil, err
		}
	}

	return nil, nil // unreachable
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
