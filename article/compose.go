package article

import (
	"fmt"
	"regexp"
	"strings"

	"exposure/types"
)

// GenerationConfig carries the user's choices for composing a draft from an
// analysis result
type GenerationConfig struct {
	Category     string `json:"category,omitempty"`
	TrackingLink string `json:"tracking_link,omitempty"`
	KeywordCount int    `json:"keyword_count,omitempty"`

	// HeroImage indexes into the analysis image candidates; -1 means none.
	// ContentImages lists further candidate indexes in display order.
	HeroImage     int   `json:"hero_image"`
	ContentImages []int `json:"content_images,omitempty"`
}

// Compose deterministically builds a draft article from an analysis result
// and the user's choices. No storage, no IDs: the same inputs always yield
// the same payload.
func Compose(result *types.AnalysisResult, cfg GenerationConfig) (*types.Article, error) {
	if result == nil {
		return nil, &types.ValidationError{Field: "analyzer_result", Reason: "required"}
	}
	if result.BrandName == "" {
		return nil, &types.ValidationError{Field: "analyzer_result.brand_name", Reason: "required"}
	}

	title := composeTitle(result)
	a := &types.Article{
		Title:        title,
		Slug:         Slugify(title),
		Category:     cfg.Category,
		Excerpt:      excerptOf(result.Description),
		Content:      composeBody(result, cfg),
		Products:     append([]types.ProductInfo(nil), result.Products...),
		TrackingLink: cfg.TrackingLink,
		MerchantURL:  result.SourceURL,
		BrandName:    result.BrandName,
		KeywordCount: cfg.KeywordCount,
	}

	if cfg.HeroImage >= 0 && cfg.HeroImage < len(result.Images) {
		a.Images.Hero = candidateImage(result.Images[cfg.HeroImage], result.BrandName)
	}
	for _, idx := range cfg.ContentImages {
		if idx >= 0 && idx < len(result.Images) && idx != cfg.HeroImage {
			a.Images.Content = append(a.Images.Content, *candidateImage(result.Images[idx], result.BrandName))
		}
	}

	return a, nil
}

func composeTitle(result *types.AnalysisResult) string {
	if result.ProductType != "" && result.ProductType != "general" {
		return fmt.Sprintf("%s: %s worth a look", result.BrandName, result.ProductType)
	}
	return fmt.Sprintf("A closer look at %s", result.BrandName)
}

func composeBody(result *types.AnalysisResult, cfg GenerationConfig) string {
	var b strings.Builder

	b.WriteString("<p>")
	b.WriteString(htmlEscape(result.Description))
	b.WriteString("</p>\n")

	if len(result.Products) > 0 {
		b.WriteString("<h2>Highlights</h2>\n<ul>\n")
		for _, p := range result.Products {
			b.WriteString("<li><strong>")
			b.WriteString(htmlEscape(p.Name))
			b.WriteString("</strong>")
			if p.Price != "" {
				b.WriteString(" — ")
				b.WriteString(htmlEscape(p.Price))
			}
			if p.Description != "" {
				b.WriteString("<br>")
				b.WriteString(htmlEscape(p.Description))
			}
			b.WriteString("</li>\n")
		}
		b.WriteString("</ul>\n")
	}

	if len(result.Promotions) > 0 {
		b.WriteString("<h2>Current offers</h2>\n<ul>\n")
		for _, promo := range result.Promotions {
			b.WriteString("<li>")
			b.WriteString(htmlEscape(promo))
			b.WriteString("</li>\n")
		}
		b.WriteString("</ul>\n")
	}

	link := cfg.TrackingLink
	if link == "" {
		link = result.SourceURL
	}
	b.WriteString(fmt.Sprintf("<p><a href=%q>Visit %s</a></p>\n", link, htmlEscape(result.BrandName)))

	return b.String()
}

func candidateImage(c types.ImageCandidate, brand string) *types.ArticleImage {
	alt := c.Alt
	if alt == "" {
		alt = brand
	}
	return &types.ArticleImage{URL: c.URL, Alt: alt, Source: types.ImageSourceAI}
}

func excerptOf(description string) string {
	const max = 160
	if len(description) <= max {
		return description
	}
	cut := description[:max]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases a title into a URL-safe slug
func Slugify(title string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
