package publish

import (
	"fmt"
	"html"
	"strings"

	"exposure/types"
)

// Render produces the external representation of an article: a standalone
// HTML document. The body content is already rendered HTML; metadata and
// images are wrapped around it.
func Render(a *types.Article) []byte {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	fmt.Fprintf(&b, "<meta charset=\"utf-8\">\n<title>%s</title>\n", html.EscapeString(a.Title))
	if a.Excerpt != "" {
		fmt.Fprintf(&b, "<meta name=\"description\" content=%q>\n", a.Excerpt)
	}
	if a.Category != "" {
		fmt.Fprintf(&b, "<meta name=\"category\" content=%q>\n", a.Category)
	}
	fmt.Fprintf(&b, "<meta name=\"brand\" content=%q>\n", a.BrandName)
	b.WriteString("</head>\n<body>\n<article>\n")

	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(a.Title))
	if a.Images.Hero != nil {
		fmt.Fprintf(&b, "<img src=%q alt=%q class=\"hero\">\n", a.Images.Hero.URL, a.Images.Hero.Alt)
	}

	b.WriteString(a.Content)
	b.WriteString("\n")

	for _, img := range a.Images.Content {
		fmt.Fprintf(&b, "<img src=%q alt=%q>\n", img.URL, img.Alt)
	}

	b.WriteString("</article>\n</body>\n</html>\n")
	return []byte(b.String())
}
