package taskstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"exposure/types"
)

func newTask(id, url string) *types.AnalysisTask {
	return &types.AnalysisTask{
		ID:        id,
		InputURL:  url,
		Status:    types.TaskQueued,
		CreatedAt: time.Now(),
	}
}

func TestProgressIsMonotone(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.Create(ctx, newTask("t1", "https://example.com")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.SetProgress(ctx, "t1", 35, "extracting brand"); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	got, _ := store.Get(ctx, "t1")
	if got.Status != types.TaskRunning || got.Progress != 35 {
		t.Fatalf("task = %s/%d", got.Status, got.Progress)
	}

	// same value is allowed, lower is not
	if err := store.SetProgress(ctx, "t1", 35, "extracting brand"); err != nil {
		t.Errorf("repeating progress should be allowed: %v", err)
	}
	if err := store.SetProgress(ctx, "t1", 10, "fetching page"); err == nil {
		t.Error("progress decrease was accepted")
	}

	// values above 100 are clamped
	if err := store.SetProgress(ctx, "t1", 150, "done"); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	got, _ = store.Get(ctx, "t1")
	if got.Progress != 100 {
		t.Errorf("progress = %d, want 100", got.Progress)
	}
}

func TestTerminalTasksAreImmutable(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Create(ctx, newTask("t1", "https://example.com"))

	result := &types.AnalysisResult{BrandName: "Example Co"}
	if err := store.Complete(ctx, "t1", result); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if err := store.SetProgress(ctx, "t1", 99, "late"); err == nil {
		t.Error("progress accepted on a completed task")
	}
	if err := store.Complete(ctx, "t1", result); err == nil {
		t.Error("second Complete accepted")
	}
	if err := store.Fail(ctx, "t1", &types.AnalysisError{Kind: "parse", Message: "x"}); err == nil {
		t.Error("Fail accepted on a completed task")
	}

	// repeated reads return identical payloads
	a, _ := store.Get(ctx, "t1")
	b, _ := store.Get(ctx, "t1")
	if a.Progress != b.Progress || a.Result.BrandName != b.Result.BrandName || !a.CompletedAt.Equal(*b.CompletedAt) {
		t.Error("terminal task reads differ")
	}

	// reads are snapshots, not aliases
	a.Result.BrandName = "mutated"
	c, _ := store.Get(ctx, "t1")
	if c.Result.BrandName != "Example Co" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestFindFreshWindow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	url := "https://example.com/shop"
	store.Create(ctx, newTask("t1", url))
	store.Complete(ctx, "t1", &types.AnalysisResult{BrandName: "Example Co"})

	got, err := store.FindFresh(ctx, CacheKey(url), 15*time.Minute)
	if err != nil {
		t.Fatalf("FindFresh: %v", err)
	}
	if got.ID != "t1" {
		t.Errorf("task = %s", got.ID)
	}

	// a URL variant that normalizes the same hits the same entry
	if _, err := store.FindFresh(ctx, CacheKey("http://WWW.example.com/shop/"), 15*time.Minute); err != nil {
		t.Errorf("normalized variant missed the cache: %v", err)
	}

	// outside the window nothing is returned
	if _, err := store.FindFresh(ctx, CacheKey(url), 0); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound outside window, got %v", err)
	}

	// failed tasks are never reused
	store.Create(ctx, newTask("t2", "https://other.com"))
	store.Fail(ctx, "t2", &types.AnalysisError{Kind: "unreachable", Message: "down"})
	if _, err := store.FindFresh(ctx, CacheKey("https://other.com"), 15*time.Minute); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("failed task served from cache: %v", err)
	}
}

func TestCacheKeyNormalization(t *testing.T) {
	base := CacheKey("https://example.com/shop")

	same := []string{
		"http://example.com/shop",
		"https://www.example.com/shop",
		"https://EXAMPLE.com/shop/",
		"https://example.com/shop#reviews",
	}
	for _, url := range same {
		if CacheKey(url) != base {
			t.Errorf("CacheKey(%q) should match the base", url)
		}
	}

	different := []string{
		"https://example.com/other",
		"https://example.com/shop?page=2",
		"https://shop.example.com/shop",
	}
	for _, url := range different {
		if CacheKey(url) == base {
			t.Errorf("CacheKey(%q) should differ from the base", url)
		}
	}
}

func TestSweepDropsOldTerminalTasks(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Create(ctx, newTask("old", "https://a.com"))
	store.Complete(ctx, "old", &types.AnalysisResult{})
	old := time.Now().Add(-48 * time.Hour)
	store.tasks["old"].CompletedAt = &old

	store.Create(ctx, newTask("live", "https://b.com"))

	if removed := store.Sweep(24 * time.Hour); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := store.Get(ctx, "old"); !errors.Is(err, types.ErrNotFound) {
		t.Error("old terminal task survived the sweep")
	}
	if _, err := store.Get(ctx, "live"); err != nil {
		t.Errorf("non-terminal task was swept: %v", err)
	}
	// the freshness index must not point at swept tasks
	if _, err := store.FindFresh(ctx, CacheKey("https://a.com"), 72*time.Hour); !errors.Is(err, types.ErrNotFound) {
		t.Error("freshness index still serves a swept task")
	}
}
