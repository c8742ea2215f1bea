package config

import "time"

// Analysis Constants
const (
	// AnalyzerWorkers limits concurrent merchant analyses
	AnalyzerWorkers = 3

	// ExtractTimeout bounds a single page fetch+extraction
	ExtractTimeout = 30 * time.Second

	// ResultFreshness is the window within which a completed analysis for the
	// same normalized URL is reused instead of re-running
	ResultFreshness = 15 * time.Minute

	// MaxImageCandidates caps images collected per analysis
	MaxImageCandidates = 8

	// MaxProducts caps products collected per analysis
	MaxProducts = 12
)

// Polling Constants
const (
	// PollInterval is the cadence of client status fetches
	PollInterval = 2 * time.Second

	// PollTimeout is the overall client-side deadline for one analysis
	PollTimeout = 180 * time.Second
)

// Image Resolution Constants
const (
	// ImageFetchTimeout bounds a single image fetch attempt
	ImageFetchTimeout = 10 * time.Second

	// ImageRetries is how many times each resolver step is retried
	// before falling through to the next one
	ImageRetries = 1
)

// Publish Constants
const (
	// PublishTimeout bounds one commit against the content store
	PublishTimeout = 60 * time.Second

	// ContentBasePath is the key prefix for committed articles
	ContentBasePath = "articles"
)
