package types

import "time"

// TaskStatus represents the lifecycle state of an analysis task
type TaskStatus string

const (
	TaskQueued    TaskStatus = "queued"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Terminal reports whether the task can no longer change
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// AnalysisTask is one merchant-URL analysis attempt.
// Mutated only by the analyzer worker; immutable once terminal.
type AnalysisTask struct {
	ID          string          `json:"id"`
	InputURL    string          `json:"input_url"`
	Status      TaskStatus      `json:"status"`
	Progress    int             `json:"progress"`
	Stage       string          `json:"stage,omitempty"`
	Result      *AnalysisResult `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// AnalysisResult is the structured analyzer output for a merchant site
type AnalysisResult struct {
	BrandName   string           `json:"brand_name"`
	Description string           `json:"description"`
	ProductType string           `json:"product_type"`
	Promotions  []string         `json:"promotions,omitempty"`
	Products    []ProductInfo    `json:"products,omitempty"`
	Images      []ImageCandidate `json:"images,omitempty"`
	SourceURL   string           `json:"source_url"`
}

// ProductInfo describes one product discovered on the merchant page
type ProductInfo struct {
	Name        string `json:"name"`
	Price       string `json:"price,omitempty"`
	Description string `json:"description,omitempty"`
}

// ImageCandidate is an image discovered during analysis, before resolution
type ImageCandidate struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}
