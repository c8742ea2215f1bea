package article

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"exposure/types"
)

// Store persists articles and their append-only version history. Update is a
// compare-and-swap on the article's version: it must fail when the stored
// version differs from expectedVersion, and must write the article and the
// version record (when given) atomically so version numbers never collide.
type Store interface {
	Insert(ctx context.Context, a *types.Article, v *types.ArticleVersion) error
	Get(ctx context.Context, id string) (*types.Article, error)
	List(ctx context.Context) ([]*types.Article, error)
	Update(ctx context.Context, a *types.Article, expectedVersion int, v *types.ArticleVersion) error
	ListVersions(ctx context.Context, articleID string) ([]types.ArticleVersion, error)
	GetVersion(ctx context.Context, articleID string, number int) (*types.ArticleVersion, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore is the default article store, a RWMutex-guarded map. Versions
// are owned by their article and dropped with it.
type MemoryStore struct {
	mu       sync.RWMutex
	articles map[string]*types.Article
	versions map[string][]types.ArticleVersion
}

// NewMemoryStore creates an empty in-memory article store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		articles: make(map[string]*types.Article),
		versions: make(map[string][]types.ArticleVersion),
	}
}

// Insert stores a new article with its create version record
func (s *MemoryStore) Insert(ctx context.Context, a *types.Article, v *types.ArticleVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.articles[a.ID]; exists {
		return fmt.Errorf("article %s already exists", a.ID)
	}

	s.articles[a.ID] = cloneArticle(a)
	if v != nil {
		s.versions[a.ID] = append(s.versions[a.ID], *v)
	}
	return nil
}

// Get returns a copy of the article
func (s *MemoryStore) Get(ctx context.Context, id string) (*types.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.articles[id]
	if !ok {
		return nil, fmt.Errorf("article %s: %w", id, types.ErrNotFound)
	}
	return cloneArticle(a), nil
}

// List returns all articles ordered by creation time, newest first
func (s *MemoryStore) List(ctx context.Context) ([]*types.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Article, 0, len(s.articles))
	for _, a := range s.articles {
		out = append(out, cloneArticle(a))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Update replaces the article iff its stored version equals expectedVersion
func (s *MemoryStore) Update(ctx context.Context, a *types.Article, expectedVersion int, v *types.ArticleVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.articles[a.ID]
	if !ok {
		return fmt.Errorf("article %s: %w", a.ID, types.ErrNotFound)
	}
	if stored.Version != expectedVersion {
		return &types.StaleVersionError{Expected: expectedVersion, Actual: stored.Version}
	}

	s.articles[a.ID] = cloneArticle(a)
	if v != nil {
		s.versions[a.ID] = append(s.versions[a.ID], *v)
	}
	return nil
}

// ListVersions returns the article's history, version numbers ascending
func (s *MemoryStore) ListVersions(ctx context.Context, articleID string) ([]types.ArticleVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.articles[articleID]; !ok {
		return nil, fmt.Errorf("article %s: %w", articleID, types.ErrNotFound)
	}

	versions := append([]types.ArticleVersion{}, s.versions[articleID]...)
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].VersionNumber < versions[j].VersionNumber
	})
	return versions, nil
}

// GetVersion returns one historical version record
func (s *MemoryStore) GetVersion(ctx context.Context, articleID string, number int) (*types.ArticleVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.versions[articleID] {
		if v.VersionNumber == number {
			cp := v
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("article %s version %d: %w", articleID, number, types.ErrNotFound)
}

// Delete removes the article and cascades its versions
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.articles[id]; !ok {
		return fmt.Errorf("article %s: %w", id, types.ErrNotFound)
	}
	delete(s.articles, id)
	delete(s.versions, id)
	return nil
}

func cloneArticle(a *types.Article) *types.Article {
	c := *a
	if a.PublishDate != nil {
		t := *a.PublishDate
		c.PublishDate = &t
	}
	if a.PublishedAt != nil {
		t := *a.PublishedAt
		c.PublishedAt = &t
	}
	if a.Images.Hero != nil {
		h := *a.Images.Hero
		c.Images.Hero = &h
	}
	c.Images.Content = append([]types.ArticleImage(nil), a.Images.Content...)
	c.Products = append([]types.ProductInfo(nil), a.Products...)
	return &c
}
