// Package observability provides formatted output for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/application-assistant/internal/generation"
	"github.com/jonathan/application-assistant/internal/types"
	"github.com/jonathan/application-assistant/internal/usage"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// previewLines is how many lines of each output are shown
	previewLines = 3
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

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(line string, width int) string {
	if utf8.RuneCountInString(line) <= width {
		return line
	}
	return string([]rune(line)[:width-3]) + "..."
}

// PrintOutcome summarizes a generated package: a short preview of every
// output followed by the failed tools and their reasons.
func (p *Printer) PrintOutcome(outcome types.PackageOutcome) {
	var sb strings.Builder

	for _, tool := range types.AllTools {
		text, ok := outcome.Outputs[tool]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("✓ %s (%d chars)\n", tool.Label(), utf8.RuneCountInString(text)))
		lines := strings.Split(strings.TrimSpace(text), "\n")
		for i := 0; i < min(len(lines), previewLines); i++ {
			sb.WriteString("    " + lines[i] + "\n")
		}
		if len(lines) > previewLines {
			sb.WriteString(fmt.Sprintf("    ... %d more lines\n", len(lines)-previewLines))
		}
	}

	for _, tool := range types.AllTools {
		if reason, ok := outcome.Errors[tool]; ok {
			sb.WriteString(fmt.Sprintf("✗ %s: %s\n", tool.Label(), reason))
		}
	}

	if sb.Len() == 0 {
		sb.WriteString("No tools were run\n")
	}
	p.printBox("APPLICATION PACKAGE", sb.String())
}

// PrintProgress prints one line per tool state change.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(event generation.ProgressEvent) {
	switch event.State {
	case generation.StateGenerating:
		fmt.Fprintf(p.out, "  … %s\n", event.Tool.Label())
	case generation.StateSucceeded:
		fmt.Fprintf(p.out, "  ✓ %s\n", event.Tool.Label())
	case generation.StateFailed:
		fmt.Fprintf(p.out, "  ✗ %s: %s\n", event.Tool.Label(), event.Message)
	}
}

// PrintRecord outputs a human-readable summary of a stored application.
func (p *Printer) PrintRecord(record *types.ApplicationRecord) {
	if record == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ID:       %s\n", record.ID))
	sb.WriteString(fmt.Sprintf("Company:  %s\n", record.Company))
	sb.WriteString(fmt.Sprintf("Role:     %s\n", record.JobTitle))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", record.Status))
	if !record.DateApplied.IsZero() {
		sb.WriteString(fmt.Sprintf("Applied:  %s\n", record.DateApplied.Format("2006-01-02")))
	}

	labels := make([]string, 0, len(record.ToolsSelected))
	for _, tool := range record.ToolsSelected {
		if _, ok := record.Outputs[tool]; ok {
			labels = append(labels, tool.Label())
		} else {
			labels = append(labels, tool.Label()+" (missing)")
		}
	}
	if len(labels) > 0 {
		sb.WriteString("Tools:    " + strings.Join(labels, ", ") + "\n")
	}

	p.printBox("APPLICATION", sb.String())
}

// PrintDecision outputs the usage decision for a user.
func (p *Printer) PrintDecision(decision usage.Decision) {
	status := "allowed"
	if !decision.Allowed {
		status = "blocked"
	}
	content := fmt.Sprintf("Tier:     %s\nStatus:   %s (%s)\nUsed:     %d of %d this month\n",
		decision.Tier, status, decision.Reason, decision.Used, decision.Limit)
	p.printBox("USAGE", content)
}
