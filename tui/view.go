package tui

import (
	"fmt"
	"strings"
)

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("📰 Exposure Console"))
	b.WriteString("\n\n")

	switch m.State {
	case StateInput:
		b.WriteString(HighlightStyle.Render("Merchant URL"))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("> %s█\n\n", m.Input))
		b.WriteString(InfoStyle.Render("Enter to analyze | esc for articles | Ctrl+C to quit"))

	case StateAnalyzing:
		b.WriteString(StatusStyle.Render(fmt.Sprintf("⏳ Analyzing... %d%%", m.Progress)))
		b.WriteString("\n")
		if m.Stage != "" {
			b.WriteString(InfoStyle.Render("   stage: " + m.Stage))
			b.WriteString("\n")
		}
		b.WriteString(renderProgressBar(m.Progress))
		b.WriteString("\n\n")
		b.WriteString(InfoStyle.Render("Press 'q' to abandon (the analysis keeps running server-side)"))

	case StateResult:
		b.WriteString(BoxStyle.Render(m.formatResult()))
		b.WriteString("\n\n")
		b.WriteString(InfoStyle.Render("'g' generate draft | 'n' new analysis | 'q' quit"))

	case StateArticles:
		b.WriteString(m.formatArticles())
		b.WriteString("\n")
		b.WriteString(InfoStyle.Render("j/k select | s submit | c self-check | a approve | x reject | p publish | r refresh | n new | q quit"))

	case StateError:
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("❌ %v", m.Err)))
		b.WriteString("\n\n")
		b.WriteString(InfoStyle.Render("'n' to start over | 'q' to quit"))
	}

	if len(m.Logs) > 0 {
		b.WriteString("\n\n")
		b.WriteString(InfoStyle.Render("📝 Recent Activity:"))
		b.WriteString("\n")
		for _, entry := range m.Logs {
			b.WriteString(InfoStyle.Render("   " + entry))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m Model) formatResult() string {
	var b strings.Builder
	r := m.Result

	b.WriteString(HighlightStyle.Render("Analysis Result"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Brand: %s\n", StatusStyle.Render(r.BrandName)))
	b.WriteString(fmt.Sprintf("Type:  %s\n", r.ProductType))
	if r.Description != "" {
		desc := r.Description
		if len(desc) > 200 {
			desc = desc[:200] + "..."
		}
		b.WriteString(fmt.Sprintf("\n%s\n", InfoStyle.Render(desc)))
	}
	b.WriteString(fmt.Sprintf("\nProducts: %d | Promotions: %d | Images: %d\n",
		len(r.Products), len(r.Promotions), len(r.Images)))

	return b.String()
}

func (m Model) formatArticles() string {
	if len(m.Articles) == 0 {
		return InfoStyle.Render("No articles yet. Press 'n' to analyze a merchant URL.")
	}

	var b strings.Builder
	b.WriteString(HighlightStyle.Render(fmt.Sprintf(" Articles (%d) ", len(m.Articles))))
	b.WriteString("\n\n")

	for i, a := range m.Articles {
		line := fmt.Sprintf("%-9s v%-2d  %s", a.Status, a.Version, a.Title)
		if a.CommitSHA != "" {
			line += fmt.Sprintf("  [%s]", a.CommitSHA[:8])
		}
		if i == m.Selected {
			b.WriteString(SelectedStyle.Render("▶ " + line))
		} else {
			b.WriteString(InfoStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderProgressBar(progress int) string {
	const width = 40
	filled := progress * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return StatusStyle.Render("   " + bar)
}
