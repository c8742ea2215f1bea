// Package images resolves article image references through an ordered
// fallback chain: inline bytes, proxy fetch, direct fetch, placeholder.
// Each step is independently retried once before falling through; the first
// success wins.
package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"exposure/config"
	"exposure/types"
)

// Ref is one image reference to resolve
type Ref struct {
	URL    string
	Inline []byte // pre-encoded bytes from the image service, if any
	Source types.ImageSource
}

// Resolved is the outcome of resolution. Either Data carries the bytes or
// URL points at something fetchable; Placeholder marks the last-resort link.
type Resolved struct {
	Data        []byte
	URL         string
	ContentType string
	Placeholder bool
}

// Resolver is a single strategy in the chain
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, ref Ref) (*Resolved, error)
}

// Chain evaluates resolvers in priority order
type Chain struct {
	resolvers []Resolver
	retries   int
}

// NewChain builds the standard chain. Uploaded images skip the proxy and
// direct fetch steps at resolve time since they are already same-origin.
func NewChain(proxyBase string, client *http.Client) *Chain {
	if client == nil {
		client = &http.Client{Timeout: config.ImageFetchTimeout}
	}
	return &Chain{
		resolvers: []Resolver{
			&inlineResolver{},
			&proxyResolver{base: proxyBase, client: client},
			&directResolver{client: client},
			&placeholderResolver{},
		},
		retries: config.ImageRetries,
	}
}

// Resolve walks the chain for one reference
func (c *Chain) Resolve(ctx context.Context, ref Ref) (*Resolved, error) {
	var lastErr error

	for _, r := range c.resolvers {
		if ref.Source == types.ImageSourceUpload && skipForUpload(r) {
			continue
		}

		for attempt := 0; attempt <= c.retries; attempt++ {
			resolved, err := r.Resolve(ctx, ref)
			if err == nil {
				return resolved, nil
			}
			if err == errNotApplicable {
				break // no point retrying an inapplicable step
			}
			lastErr = fmt.Errorf("%s: %w", r.Name(), err)
		}
	}

	return nil, fmt.Errorf("image %s: all resolvers exhausted: %w", ref.URL, lastErr)
}

func skipForUpload(r Resolver) bool {
	switch r.(type) {
	case *proxyResolver, *directResolver:
		return true
	}
	return false
}

// errNotApplicable means the step cannot serve this reference at all
var errNotApplicable = fmt.Errorf("not applicable")

type inlineResolver struct{}

func (*inlineResolver) Name() string { return "inline" }

func (*inlineResolver) Resolve(ctx context.Context, ref Ref) (*Resolved, error) {
	if len(ref.Inline) == 0 {
		return nil, errNotApplicable
	}
	return &Resolved{Data: ref.Inline, ContentType: http.DetectContentType(ref.Inline)}, nil
}

type proxyResolver struct {
	base   string
	client *http.Client
}

func (*proxyResolver) Name() string { return "proxy" }

func (r *proxyResolver) Resolve(ctx context.Context, ref Ref) (*Resolved, error) {
	if r.base == "" || ref.URL == "" {
		return nil, errNotApplicable
	}
	proxied := fmt.Sprintf("%s?url=%s", r.base, url.QueryEscape(ref.URL))
	return fetch(ctx, r.client, proxied)
}

type directResolver struct {
	client *http.Client
}

func (*directResolver) Name() string { return "direct" }

func (r *directResolver) Resolve(ctx context.Context, ref Ref) (*Resolved, error) {
	if ref.URL == "" {
		return nil, errNotApplicable
	}
	return fetch(ctx, r.client, ref.URL)
}

// placeholderResolver always succeeds: a non-fetchable image degrades to a
// placeholder linking the original
type placeholderResolver struct{}

func (*placeholderResolver) Name() string { return "placeholder" }

func (*placeholderResolver) Resolve(ctx context.Context, ref Ref) (*Resolved, error) {
	return &Resolved{URL: ref.URL, Placeholder: true}, nil
}

func fetch(ctx context.Context, client *http.Client, rawURL string) (*Resolved, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &Resolved{Data: data, URL: rawURL, ContentType: contentType}, nil
}
