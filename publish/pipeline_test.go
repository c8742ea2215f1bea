package publish

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"exposure/article"
	"exposure/images"
	"exposure/types"
)

// flakyStore fails a configurable number of Commit calls before delegating
// to a real LocalStore.
type flakyStore struct {
	inner    *LocalStore
	failures int
	calls    int
}

func (s *flakyStore) Commit(ctx context.Context, key string, body []byte, idempotencyKey string) (string, error) {
	s.calls++
	if s.calls <= s.failures {
		return "", errors.New("503 upstream unavailable")
	}
	return s.inner.Commit(ctx, key, body, idempotencyKey)
}

func readyArticle(t *testing.T, repo *article.Repository) *types.Article {
	t.Helper()
	ctx := context.Background()

	a, err := repo.Create(ctx, &types.Article{
		Title:   "Spring promotions at Example Co",
		Content: "<p>body</p>",
	}, "author-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a, err = repo.Submit(ctx, a.ID, a.Version, "author-1"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if a, err = repo.Approve(ctx, a.ID, a.Version, "reviewer-1"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	return a
}

func TestPublishSuccess(t *testing.T) {
	repo := article.NewRepository(article.NewMemoryStore(), nil, nil)
	store := NewLocalStore()
	pipeline := NewPipeline(repo, store, "https://content.example.com")
	a := readyArticle(t, repo)

	result, err := pipeline.Publish(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !result.Success || result.CommitSHA == "" {
		t.Fatalf("result = %+v", result)
	}
	if !strings.HasPrefix(result.ArticleURL, "https://content.example.com/articles/") {
		t.Errorf("url = %q", result.ArticleURL)
	}

	got, _ := repo.Get(context.Background(), a.ID)
	if got.Status != types.StatusPublished {
		t.Errorf("status = %s", got.Status)
	}
	if got.CommitSHA != result.CommitSHA {
		t.Errorf("commit sha %q != result sha %q", got.CommitSHA, result.CommitSHA)
	}
	if got.PublishedAt == nil {
		t.Error("published_at not set")
	}

	body, ok := store.Object("articles/" + a.Slug + ".html")
	if !ok {
		t.Fatal("rendered document missing from store")
	}
	if !bytes.Contains(body, []byte(a.Title)) {
		t.Error("rendered document does not contain the title")
	}
}

// A failed publish leaves the article ready and uncommitted; the retry then
// succeeds without writing a duplicate.
func TestPublishFailureThenRetry(t *testing.T) {
	repo := article.NewRepository(article.NewMemoryStore(), nil, nil)
	store := &flakyStore{inner: NewLocalStore(), failures: 1}
	pipeline := NewPipeline(repo, store, "https://content.example.com")
	a := readyArticle(t, repo)
	versionBefore := a.Version

	_, err := pipeline.Publish(context.Background(), a.ID)
	var pubErr *types.PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("expected PublishError, got %v", err)
	}

	got, _ := repo.Get(context.Background(), a.ID)
	if got.Status != types.StatusReady {
		t.Fatalf("status after failure = %s, want ready", got.Status)
	}
	if got.Version != versionBefore {
		t.Errorf("version changed by failed publish: %d -> %d", versionBefore, got.Version)
	}
	if got.CommitSHA != "" {
		t.Errorf("commit sha set by failed publish: %q", got.CommitSHA)
	}

	result, err := pipeline.Publish(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !result.Success {
		t.Fatalf("retry result = %+v", result)
	}
	if store.inner.CommitCount() != 1 {
		t.Errorf("commits = %d, want 1", store.inner.CommitCount())
	}
}

func TestPublishNonReadyNeverContactsStore(t *testing.T) {
	repo := article.NewRepository(article.NewMemoryStore(), nil, nil)
	store := &flakyStore{inner: NewLocalStore()}
	pipeline := NewPipeline(repo, store, "https://content.example.com")

	a, err := repo.Create(context.Background(), &types.Article{Title: "t", Content: "c"}, "author-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = pipeline.Publish(context.Background(), a.ID)
	var conflict *types.StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected StateConflictError, got %v", err)
	}
	if store.calls != 0 {
		t.Errorf("store contacted %d times for a draft", store.calls)
	}
}

func TestPublishAlreadyPublishedConflicts(t *testing.T) {
	repo := article.NewRepository(article.NewMemoryStore(), nil, nil)
	store := NewLocalStore()
	pipeline := NewPipeline(repo, store, "https://content.example.com")
	a := readyArticle(t, repo)

	if _, err := pipeline.Publish(context.Background(), a.ID); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	_, err := pipeline.Publish(context.Background(), a.ID)
	var conflict *types.StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected StateConflictError, got %v", err)
	}
	if store.CommitCount() != 1 {
		t.Errorf("commits = %d, want 1", store.CommitCount())
	}
}

func TestIdempotencyKeyStability(t *testing.T) {
	body := []byte("<html>doc</html>")

	a := IdempotencyKey("id-1", 3, body)
	if a != IdempotencyKey("id-1", 3, body) {
		t.Error("same inputs must map to the same key")
	}
	if len(a) != 40 {
		t.Errorf("key length = %d, want 40", len(a))
	}
	if a == IdempotencyKey("id-1", 4, body) {
		t.Error("version change must change the key")
	}
	if a == IdempotencyKey("id-1", 3, []byte("<html>other</html>")) {
		t.Error("content change must change the key")
	}
	if a == IdempotencyKey("id-2", 3, body) {
		t.Error("article change must change the key")
	}
}

type recordingNotifier struct {
	events []types.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n types.Notification) {
	r.events = append(r.events, n)
}

// An unreachable image degrades to a placeholder and alerts the author; the
// publish itself still succeeds.
func TestPublishResolvesImages(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "good.png") {
			w.Write([]byte("png"))
			return
		}
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer origin.Close()

	notifier := &recordingNotifier{}
	repo := article.NewRepository(article.NewMemoryStore(), notifier, nil)
	store := NewLocalStore()
	pipeline := NewPipeline(repo, store, "https://content.example.com").
		WithImageResolver(images.NewChain("", nil), notifier)

	ctx := context.Background()
	a, err := repo.Create(ctx, &types.Article{
		Title:   "Image handling",
		Content: "<p>body</p>",
		Images: types.ArticleImages{
			Hero:    &types.ArticleImage{URL: origin.URL + "/good.png", Source: types.ImageSourceAI},
			Content: []types.ArticleImage{{URL: origin.URL + "/dead.png", Source: types.ImageSourceAI}},
		},
	}, "author-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a, err = repo.Submit(ctx, a.ID, a.Version, "author-1"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if a, err = repo.Approve(ctx, a.ID, a.Version, "reviewer-1"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	notifier.events = nil

	result, err := pipeline.Publish(ctx, a.ID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}

	var alerts int
	for _, n := range notifier.events {
		if n.Type == types.NotifyImageAlert {
			alerts++
			if n.UserID != "author-1" || n.RelatedID != a.ID {
				t.Errorf("alert = %+v", n)
			}
		}
	}
	if alerts != 1 {
		t.Errorf("image alerts = %d, want 1 (only the dead image)", alerts)
	}

	// the placeholder still links the original so the page renders
	body, _ := store.Object("articles/" + a.Slug + ".html")
	if !bytes.Contains(body, []byte(origin.URL+"/dead.png")) {
		t.Error("placeholder image lost its original link")
	}
}

func TestPublishUnknownArticle(t *testing.T) {
	repo := article.NewRepository(article.NewMemoryStore(), nil, nil)
	pipeline := NewPipeline(repo, NewLocalStore(), "https://content.example.com")

	_, err := pipeline.Publish(context.Background(), "missing")
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
