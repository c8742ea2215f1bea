// Package client is the typed HTTP client for the exposure API, used by the
// operator console.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"exposure/article"
	"exposure/publish"
	"exposure/types"
)

// Client talks to the exposure service API
type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client
}

// New creates an API client
func New(baseURL, userID string) *Client {
	if baseURL == "" {
		baseURL = getEnvOrDefault("EXPOSURE_API_URL", "http://localhost:8080")
	}
	if userID == "" {
		userID = getEnvOrDefault("EXPOSURE_USER", "console")
	}
	return &Client{
		baseURL:    baseURL,
		userID:     userID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateTask submits a URL for analysis
func (c *Client) CreateTask(ctx context.Context, url string) (taskID string, status types.TaskStatus, err error) {
	var resp struct {
		TaskID string           `json:"task_id"`
		Status types.TaskStatus `json:"status"`
	}
	err = c.doJSON(ctx, http.MethodPost, "/analyze", map[string]string{"url": url}, &resp)
	return resp.TaskID, resp.Status, err
}

// FetchTask reads task state; satisfies poll.TaskFetcher
func (c *Client) FetchTask(ctx context.Context, taskID string) (*types.AnalysisTask, error) {
	var task types.AnalysisTask
	if err := c.doJSON(ctx, http.MethodGet, "/analyze/"+taskID, nil, &task); err != nil {
		return nil, err
	}
	task.ID = taskID
	return &task, nil
}

// Generate composes a draft payload from an analysis result
func (c *Client) Generate(ctx context.Context, result *types.AnalysisResult, cfg article.GenerationConfig) (*types.Article, error) {
	payload := map[string]any{"analyzer_result": result, "config": cfg}
	var draft types.Article
	if err := c.doJSON(ctx, http.MethodPost, "/articles/generate", payload, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

// CreateArticle persists a draft
func (c *Client) CreateArticle(ctx context.Context, draft *types.Article) (*types.Article, error) {
	var created types.Article
	if err := c.doJSON(ctx, http.MethodPost, "/articles", draft, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListArticles returns all articles
func (c *Client) ListArticles(ctx context.Context) ([]*types.Article, error) {
	var list []*types.Article
	if err := c.doJSON(ctx, http.MethodGet, "/articles", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Transition invokes one lifecycle action (submit, self-check, approve)
func (c *Client) Transition(ctx context.Context, articleID, action string) error {
	path := fmt.Sprintf("/articles/%s/%s", articleID, action)
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

// Reject sends a pending article back with a reason
func (c *Client) Reject(ctx context.Context, articleID, reason string) error {
	path := fmt.Sprintf("/articles/%s/reject", articleID)
	return c.doJSON(ctx, http.MethodPost, path, map[string]string{"reason": reason}, nil)
}

// Publish runs the publish pipeline
func (c *Client) Publish(ctx context.Context, articleID string) (*publish.Result, error) {
	var result publish.Result
	path := fmt.Sprintf("/articles/%s/publish", articleID)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListVersions returns an article's history
func (c *Client) ListVersions(ctx context.Context, articleID string) ([]types.ArticleVersion, error) {
	var versions []types.ArticleVersion
	path := fmt.Sprintf("/articles/%s/versions", articleID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// Restore rolls an article's content back to a historical version
func (c *Client) Restore(ctx context.Context, articleID string, versionNumber int) (*types.Article, error) {
	var a types.Article
	path := fmt.Sprintf("/articles/%s/restore/%d", articleID, versionNumber)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// UnreadCount returns the caller's unread notification count
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/notifications/unread-count", nil, &resp)
	return resp.Count, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, result any) error {
	url := c.baseURL + path

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-User-ID", c.userID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
