// Package publish commits ready articles to the external content store.
// A publish either fully succeeds (article becomes published with a commit
// sha) or leaves the article exactly as it was; retries are idempotent.
package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"exposure/article"
	"exposure/config"
	"exposure/images"
	"exposure/types"
)

// ContentStore is the external version-controlled store. Committing the same
// idempotency key again must return the original commit sha without writing
// a second object.
type ContentStore interface {
	Commit(ctx context.Context, key string, body []byte, idempotencyKey string) (sha string, err error)
}

// Result is the caller-facing outcome of one publish attempt
type Result struct {
	Success    bool   `json:"success"`
	CommitSHA  string `json:"commit_sha,omitempty"`
	ArticleURL string `json:"article_url,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Pipeline renders and commits articles
type Pipeline struct {
	repo       *article.Repository
	store      ContentStore
	publicBase string

	resolver *images.Chain    // optional; nil skips image resolution
	notifier article.Notifier // image alerts; may be nil
}

// NewPipeline wires the publish pipeline
func NewPipeline(repo *article.Repository, store ContentStore, publicBase string) *Pipeline {
	return &Pipeline{repo: repo, store: store, publicBase: publicBase}
}

// WithImageResolver attaches the image fallback chain run before rendering.
// Images that degrade to a placeholder raise an alert for the author.
func (p *Pipeline) WithImageResolver(chain *images.Chain, notifier article.Notifier) *Pipeline {
	p.resolver = chain
	p.notifier = notifier
	return p
}

// Publish commits the article's rendered content. Preconditions are checked
// before the content store is ever contacted; upstream failures come back as
// *types.PublishError with the article untouched and still ready.
func (p *Pipeline) Publish(ctx context.Context, articleID string) (*Result, error) {
	a, err := p.repo.Get(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if a.Status != types.StatusReady {
		return nil, &types.StateConflictError{Current: string(a.Status), Attempted: "publish"}
	}

	if p.resolver != nil {
		p.resolveImages(ctx, a)
	}

	body := Render(a)
	key := fmt.Sprintf("%s/%s.html", config.ContentBasePath, a.Slug)
	idemKey := IdempotencyKey(a.ID, a.Version, body)

	commitCtx, cancel := context.WithTimeout(ctx, config.PublishTimeout)
	defer cancel()

	sha, err := p.store.Commit(commitCtx, key, body, idemKey)
	if err != nil {
		pubErr := &types.PublishError{Message: "content store commit", Err: err}
		var existing *types.PublishError
		if errors.As(err, &existing) {
			pubErr = existing
		}
		log.Printf("publish: article %s commit failed: %v", articleID, err)
		return nil, pubErr
	}

	updated, err := p.repo.MarkPublished(ctx, articleID, sha, time.Now())
	if err != nil {
		// The commit landed but the article moved underneath us (e.g. a
		// concurrent publish won). Surface the conflict; the commit is
		// idempotent so nothing was duplicated.
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/%s", p.publicBase, config.ContentBasePath, updated.Slug)
	log.Printf("publish: article %s committed as %s", articleID, sha)

	return &Result{Success: true, CommitSHA: sha, ArticleURL: url}, nil
}

// resolveImages runs each article image through the fallback chain and
// rewrites its src to whatever resolved. A placeholder outcome still renders
// (linking the original), but the author is alerted to fix it.
func (p *Pipeline) resolveImages(ctx context.Context, a *types.Article) {
	fix := func(img *types.ArticleImage) {
		resolved, err := p.resolver.Resolve(ctx, images.Ref{URL: img.URL, Source: img.Source})
		if err != nil {
			log.Printf("publish: resolve image %s: %v", img.URL, err)
			return
		}
		if resolved.URL != "" {
			img.URL = resolved.URL
		}
		if resolved.Placeholder && p.notifier != nil {
			p.notifier.Notify(ctx, types.Notification{
				UserID:      a.AuthorID,
				Type:        types.NotifyImageAlert,
				Message:     fmt.Sprintf("image could not be fetched for %q, published with a placeholder: %s", a.Title, img.URL),
				RelatedType: "article",
				RelatedID:   a.ID,
			})
		}
	}

	if a.Images.Hero != nil {
		fix(a.Images.Hero)
	}
	for i := range a.Images.Content {
		fix(&a.Images.Content[i])
	}
}

// IdempotencyKey derives the duplicate-commit guard from the article id,
// version and rendered content. Unchanged content retried after an ambiguous
// failure maps to the same key, so the store can collapse the commits.
func IdempotencyKey(articleID string, version int, body []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s:%d:", articleID, version)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))[:40]
}
