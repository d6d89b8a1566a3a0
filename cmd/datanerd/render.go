package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"datanerd/internal/analysis"
	"datanerd/internal/session"
	"datanerd/internal/tools"
)

// Visual styling for terminal output.
var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2196F3"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e53935"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4db6ac"))
)

// newMarkdownRenderer builds the glamour renderer used for answers.
func newMarkdownRenderer() *glamour.TermRenderer {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil
	}
	return renderer
}

// renderMarkdown renders with panic recovery; glamour chokes on some
// inputs and plain text is an acceptable fallback.
func renderMarkdown(renderer *glamour.TermRenderer, content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()

	if renderer != nil && content != "" {
		if rendered, err := renderer.Render(content); err == nil {
			return rendered
		}
	}
	return content
}

// printExchange writes the full exchange outcome: answer, charts,
// saved images and a call summary footer.
func printExchange(renderer *glamour.TermRenderer, result *session.ExchangeResult) {
	fmt.Print(renderMarkdown(renderer, result.Answer))

	for _, chart := range result.Charts {
		fmt.Println(renderChart(chart))
	}

	if len(result.Images) > 0 {
		paths, err := saveImages(result.ID, result.Images)
		if err != nil {
			fmt.Println(errorStyle.Render("Could not save images: " + err.Error()))
		} else {
			for _, p := range paths {
				fmt.Println(mutedStyle.Render("Image saved: " + p))
			}
		}
	}

	if len(result.Calls) > 0 {
		var names []string
		for _, call := range result.Calls {
			names = append(names, call.Tool)
		}
		footer := fmt.Sprintf("%d round(s): %s", result.Rounds, strings.Join(names, " -> "))
		if result.HaltedAtLimit {
			footer += " (halted at round limit)"
		}
		fmt.Println(mutedStyle.Render(footer))
	}
}

// renderChart draws a chart as labeled horizontal bars. All points are
// drawn; truncation only ever applies to the model-facing copy.
func renderChart(chart *analysis.Chart) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(titleStyle.Render(chart.Title))
	b.WriteString("\n")

	maxValue := 0.0
	labelWidth := 0
	for _, p := range chart.Data {
		if p.Value > maxValue {
			maxValue = p.Value
		}
		if len(p.Label) > labelWidth {
			labelWidth = len(p.Label)
		}
	}
	if labelWidth > 24 {
		labelWidth = 24
	}

	const barWidth = 40
	for _, p := range chart.Data {
		label := p.Label
		if len(label) > labelWidth {
			label = label[:labelWidth]
		}
		width := 0
		if maxValue > 0 {
			width = int(p.Value / maxValue * barWidth)
		}
		fmt.Fprintf(&b, "%-*s %s %v\n", labelWidth, label, barStyle.Render(strings.Repeat("█", width)), p.Value)
	}
	return b.String()
}

// saveImages writes generated images under .datanerd/images/.
func saveImages(exchangeID string, images []*tools.ImageResult) ([]string, error) {
	dir := filepath.Join(flagWorkspace, ".datanerd", "images")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	var paths []string
	for i, img := range images {
		path := filepath.Join(dir, fmt.Sprintf("%s_%d.png", exchangeID, i))
		if err := os.WriteFile(path, img.Data, 0644); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
