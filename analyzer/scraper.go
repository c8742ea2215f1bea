package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"

	"exposure/config"
	"exposure/types"
)

// ProgressFunc receives stage updates while an analysis runs
type ProgressFunc func(progress int, stage string)

// Scraper produces merchant metadata for a URL. The worker calls it once per
// task; it never retries on its own.
type Scraper interface {
	Analyze(ctx context.Context, rawURL string, report ProgressFunc) (*types.AnalysisResult, error)
}

// MerchantScraper extracts brand, product and image metadata from a merchant
// site using readability for the main content and goquery for structure.
type MerchantScraper struct {
	httpClient *http.Client
	feedParser *gofeed.Parser
	polisher   *Polisher // optional description rewrite, nil to skip
}

// NewMerchantScraper creates a scraper; polisher may be nil
func NewMerchantScraper(polisher *Polisher) *MerchantScraper {
	return &MerchantScraper{
		httpClient: &http.Client{Timeout: config.ExtractTimeout},
		feedParser: gofeed.NewParser(),
		polisher:   polisher,
	}
}

var priceRe = regexp.MustCompile(`(?:[$€£¥]|USD|SGD)\s?\d{1,6}(?:[.,]\d{2})?`)

// Analyze fetches the merchant page and assembles the analysis result
func (s *MerchantScraper) Analyze(ctx context.Context, rawURL string, report ProgressFunc) (*types.AnalysisResult, error) {
	report(10, "fetching page")

	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, &types.AnalysisError{Kind: "parse", Message: fmt.Sprintf("invalid url: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &types.AnalysisError{Kind: "parse", Message: err.Error()}
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &types.AnalysisError{Kind: "unreachable", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &types.AnalysisError{Kind: "rate_limited", Message: "merchant returned 429"}
	}
	if resp.StatusCode >= 400 {
		return nil, &types.AnalysisError{Kind: "unreachable", Message: fmt.Sprintf("merchant returned %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &types.AnalysisError{Kind: "parse", Message: fmt.Sprintf("html parse: %v", err)}
	}

	report(35, "extracting brand")
	result := &types.AnalysisResult{SourceURL: rawURL}
	result.BrandName = extractBrand(doc, pageURL)
	result.Description = extractDescription(doc)
	result.ProductType = extractProductType(doc)

	report(60, "collecting products")
	result.Products = extractProducts(doc, config.MaxProducts)

	report(75, "scanning promotions")
	result.Promotions = s.scanPromotions(ctx, doc, pageURL)

	report(90, "selecting images")
	result.Images = extractImages(doc, pageURL, config.MaxImageCandidates)

	// Fall back to readability's excerpt when the page has no usable
	// meta description
	if result.Description == "" {
		html, _ := doc.Html()
		if article, err := readability.FromReader(strings.NewReader(html), pageURL); err == nil {
			result.Description = article.Excerpt
		}
	}

	if s.polisher != nil && result.Description != "" {
		if polished, err := s.polisher.Polish(ctx, result.BrandName, result.Description); err == nil && polished != "" {
			result.Description = polished
		}
	}

	return result, nil
}

func extractBrand(doc *goquery.Document, pageURL *url.URL) string {
	if name, ok := doc.Find(`meta[property="og:site_name"]`).Attr("content"); ok && name != "" {
		return strings.TrimSpace(name)
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		// "Example Co | Home" -> "Example Co"
		for _, sep := range []string{" | ", " – ", " - "} {
			if idx := strings.Index(title, sep); idx > 0 {
				return title[:idx]
			}
		}
		return title
	}
	host := strings.TrimPrefix(pageURL.Hostname(), "www.")
	if idx := strings.Index(host, "."); idx > 0 {
		host = host[:idx]
	}
	if host == "" {
		return ""
	}
	return strings.ToUpper(host[:1]) + host[1:]
}

func extractDescription(doc *goquery.Document) string {
	for _, sel := range []string{`meta[property="og:description"]`, `meta[name="description"]`} {
		if desc, ok := doc.Find(sel).Attr("content"); ok {
			if d := strings.TrimSpace(desc); d != "" {
				return d
			}
		}
	}
	return ""
}

func extractProductType(doc *goquery.Document) string {
	if t, ok := doc.Find(`meta[property="og:type"]`).Attr("content"); ok && strings.Contains(t, "product") {
		return "product"
	}
	if kw, ok := doc.Find(`meta[name="keywords"]`).Attr("content"); ok {
		parts := strings.Split(kw, ",")
		if len(parts) > 0 && strings.TrimSpace(parts[0]) != "" {
			return strings.ToLower(strings.TrimSpace(parts[0]))
		}
	}
	return "general"
}

func extractProducts(doc *goquery.Document, max int) []types.ProductInfo {
	var products []types.ProductInfo
	seen := make(map[string]bool)

	doc.Find(`[itemtype*="schema.org/Product"], .product, .product-card, .product-item`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		name := strings.TrimSpace(sel.Find(`[itemprop="name"], .product-title, .product-name, h2, h3`).First().Text())
		if name == "" || seen[name] {
			return true
		}
		seen[name] = true

		product := types.ProductInfo{Name: name}
		if price := priceRe.FindString(sel.Text()); price != "" {
			product.Price = price
		}
		if desc := strings.TrimSpace(sel.Find(`[itemprop="description"], .product-description, p`).First().Text()); desc != "" {
			if len(desc) > 200 {
				desc = desc[:200]
			}
			product.Description = desc
		}

		products = append(products, product)
		return len(products) < max
	})

	return products
}

// scanPromotions looks for promotion-flavored headlines on the page and, when
// the merchant exposes a feed, in its recent entries
func (s *MerchantScraper) scanPromotions(ctx context.Context, doc *goquery.Document, pageURL *url.URL) []string {
	var promos []string
	seen := make(map[string]bool)

	add := func(text string) {
		text = strings.TrimSpace(text)
		if text == "" || seen[text] || len(promos) >= 10 {
			return
		}
		if looksPromotional(text) {
			seen[text] = true
			promos = append(promos, text)
		}
	}

	doc.Find(".promo, .banner, .sale, .offer, h1, h2").Each(func(_ int, sel *goquery.Selection) {
		add(sel.Text())
	})

	for _, feedURL := range discoverFeeds(doc, pageURL) {
		feed, err := s.feedParser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			continue
		}
		for _, item := range feed.Items {
			add(item.Title)
		}
		break
	}

	return promos
}

func discoverFeeds(doc *goquery.Document, pageURL *url.URL) []string {
	var feeds []string
	doc.Find(`link[type="application/rss+xml"], link[type="application/atom+xml"]`).Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			if u, err := pageURL.Parse(href); err == nil {
				feeds = append(feeds, u.String())
			}
		}
	})
	return feeds
}

func looksPromotional(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range []string{"% off", "sale", "discount", "free shipping", "deal", "promo", "clearance", "limited"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func extractImages(doc *goquery.Document, pageURL *url.URL, max int) []types.ImageCandidate {
	var images []types.ImageCandidate
	seen := make(map[string]bool)

	add := func(src, alt string) {
		if src == "" || len(images) >= max {
			return
		}
		abs, err := pageURL.Parse(src)
		if err != nil || (abs.Scheme != "http" && abs.Scheme != "https") {
			return
		}
		key := abs.String()
		if seen[key] {
			return
		}
		seen[key] = true
		images = append(images, types.ImageCandidate{URL: key, Alt: strings.TrimSpace(alt)})
	}

	// og:image first: merchants put their best shot there
	doc.Find(`meta[property="og:image"]`).Each(func(_ int, sel *goquery.Selection) {
		if content, ok := sel.Attr("content"); ok {
			add(content, "")
		}
	})
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		alt, _ := sel.Attr("alt")
		add(src, alt)
	})

	return images
}
