// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/marcus/brand-panel/internal/metrics"
	"github.com/marcus/brand-panel/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintBrandProfile outputs a human-readable summary of the researched brand.
func (p *Printer) PrintBrandProfile(profile *types.BrandProfile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:      %s\n", profile.Name))
	sb.WriteString(fmt.Sprintf("Category:  %s\n", profile.Category))
	sb.WriteString(fmt.Sprintf("Tone:      %s\n", strings.Join(profile.Tone, ", ")))
	sb.WriteString(fmt.Sprintf("Audience:  %s\n", profile.TargetAudience))
	if len(profile.Competitors) > 0 {
		sb.WriteString(fmt.Sprintf("Competes:  %s\n", strings.Join(truncateList(profile.Competitors), ", ")))
	}
	if len(profile.USPs) > 0 {
		sb.WriteString("USPs:\n")
		for _, usp := range truncateList(profile.USPs) {
			sb.WriteString(fmt.Sprintf("  - %s\n", usp))
		}
	}

	p.printBox("Brand Profile", strings.TrimRight(sb.String(), "\n"))
}

// PrintPersonas outputs a one-line summary per recruited persona.
func (p *Printer) PrintPersonas(panel []types.Persona) {
	var sb strings.Builder
	for i, persona := range panel {
		sb.WriteString(fmt.Sprintf("%d. %s (%d, %s)\n", i+1, persona.Name, persona.Age, persona.Occupation))
	}

	p.printBox(fmt.Sprintf("Panel (%d personas)", len(panel)), strings.TrimRight(sb.String(), "\n"))
}

// PrintJudgments outputs each persona's score and verdict.
func (p *Printer) PrintJudgments(panel []types.Persona, judgments []types.Judgment) {
	names := make(map[string]string, len(panel))
	for _, persona := range panel {
		names[persona.ID] = persona.Name
	}

	var sb strings.Builder
	for _, j := range judgments {
		name := names[j.PersonaID]
		if name == "" {
			name = j.PersonaID
		}
		sb.WriteString(fmt.Sprintf("%s: %d/100 (%s)\n", name, j.Score, j.Verdict))
		sb.WriteString(fmt.Sprintf("  \"%s\"\n", j.Quote))
	}

	p.printBox("Judgments", strings.TrimRight(sb.String(), "\n"))
}

// PrintMetricsSummary outputs the aggregate metrics block.
func (p *Printer) PrintMetricsSummary(summary metrics.Summary) {
	p.printBox("Metrics", summary.String())
}

// truncateList limits a list to maxItemsToShow entries.
func truncateList(items []string) []string {
	if len(items) <= maxItemsToShow {
		return items
	}
	return items[:maxItemsToShow]
}
