package analyzer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

const polishModel = "command-r-08-2024"

// Polisher rewrites a raw meta description into a short brand blurb using the
// Cohere chat API. Analysis works without it; construct with an empty key to
// get nil and skip the call entirely.
type Polisher struct {
	client *cohereclient.Client
}

// NewPolisher returns nil when no API key is configured
func NewPolisher(apiKey string) *Polisher {
	if apiKey == "" {
		return nil
	}

	// Force HTTP/1.1: the Cohere endpoint intermittently resets HTTP/2 streams
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}

	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &Polisher{client: client}
}

// Polish returns a cleaned-up one-paragraph brand description
func (p *Polisher) Polish(ctx context.Context, brand, description string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	prompt := fmt.Sprintf(
		"Rewrite this merchant description for the brand %q as one clear paragraph under 60 words. Keep facts, drop marketing filler:\n\n%s",
		brand, description,
	)

	resp, err := p.client.V2.Chat(ctx, &cohere.V2ChatRequest{
		Model: polishModel,
		Messages: cohere.ChatMessages{
			{
				Role: "user",
				User: &cohere.UserMessageV2{Content: &cohere.UserMessageV2Content{String: prompt}},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("cohere chat: %w", err)
	}

	if resp.Message == nil || len(resp.Message.Content) == 0 {
		return "", fmt.Errorf("cohere chat: empty response")
	}

	var out strings.Builder
	for _, block := range resp.Message.Content {
		if block.Text != nil {
			out.WriteString(block.Text.Text)
		}
	}
	return strings.TrimSpace(out.String()), nil
}
