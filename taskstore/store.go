package taskstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"exposure/types"
)

// Store persists analysis task records. The analyzer worker is the only
// writer after creation; terminal tasks are immutable.
type Store interface {
	Create(ctx context.Context, task *types.AnalysisTask) error
	Get(ctx context.Context, id string) (*types.AnalysisTask, error)

	// SetProgress moves the task to running and updates progress/stage.
	// Progress never decreases; a lower value is an error.
	SetProgress(ctx context.Context, id string, progress int, stage string) error

	// Complete marks the task terminal with its result
	Complete(ctx context.Context, id string, result *types.AnalysisResult) error

	// Fail marks the task terminal with a structured error
	Fail(ctx context.Context, id string, taskErr *types.AnalysisError) error

	// FindFresh returns a completed task for the same cache key created
	// within the freshness window, or ErrNotFound
	FindFresh(ctx context.Context, cacheKey string, window time.Duration) (*types.AnalysisTask, error)
}

// CacheKey derives a stable dedupe key from a merchant URL. Scheme and
// trivial variations (trailing slash, www, fragment) must not defeat reuse.
func CacheKey(rawURL string) string {
	normalized := normalizeURL(rawURL)
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])[:16]
}

func normalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	path := strings.TrimSuffix(u.Path, "/")
	s := host + path
	if u.RawQuery != "" {
		s += "?" + u.RawQuery
	}
	return s
}
