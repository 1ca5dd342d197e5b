package export

import (
	"regexp"
	"strings"
	"time"

	"github.com/jonathan/application-assistant/internal/rendering"
	"github.com/jonathan/application-assistant/internal/types"
)

// sectionLayout fixes the order of tool sections after the job description.
var sectionLayout = []struct {
	tool    types.ToolName
	newPage bool
}{
	{types.ToolResume, false},
	{types.ToolCoverLetter, true},
	{types.ToolInterviewPrep, true},
	{types.ToolLinkedIn, true},
	{types.ToolJobAnalyzer, true},
}

var (
	questionLabel = regexp.MustCompile(`^(?i)(\*\*)?(question\s+\d+\s*:)(\*\*)?\s*`)
	answerLabel   = regexp.MustCompile(`^(?i)(\*\*)?(answer\s*:)(\*\*)?\s*`)
)

// BuildDocument lays out a record as a renderable document.
// Sections whose content is absent or blank are skipped.
func BuildDocument(record *types.ApplicationRecord, generatedAt time.Time) *rendering.Document {
	doc := &rendering.Document{
		Title:       record.Company + " - " + record.JobTitle,
		Employer:    record.Company,
		Role:        record.JobTitle,
		DateApplied: formatDate(record.DateApplied),
		GeneratedAt: generatedAt,
	}

	if blocks := paragraphs(record.JobDescription); len(blocks) > 0 {
		doc.Sections = append(doc.Sections, rendering.Section{
			ID:     "job-description",
			Title:  "Job Description",
			Blocks: blocks,
		})
	}

	for _, layout := range sectionLayout {
		text := record.Outputs[layout.tool]
		var blocks []rendering.Block
		if layout.tool == types.ToolInterviewPrep {
			blocks = interviewBlocks(text)
		} else {
			blocks = paragraphs(text)
		}
		if len(blocks) == 0 {
			continue
		}
		doc.Sections = append(doc.Sections, rendering.Section{
			ID:      string(layout.tool),
			Title:   layout.tool.Label(),
			NewPage: layout.newPage,
			Blocks:  blocks,
		})
	}
	return doc
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("January 2, 2006")
}

// paragraphs splits text on blank lines.
func paragraphs(text string) []rendering.Block {
	var blocks []rendering.Block
	for _, p := range strings.Split(normalizeNewlines(text), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			blocks = append(blocks, rendering.Block{Text: p})
		}
	}
	return blocks
}

// interviewBlocks turns "Question N:" and "Answer:" lines into labelled blocks.
// Lines that follow a label continue that block.
func interviewBlocks(text string) []rendering.Block {
	var blocks []rendering.Block
	current := -1

	for _, line := range strings.Split(normalizeNewlines(text), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			current = -1
			continue
		}

		if m := questionLabel.FindStringSubmatch(trimmed); m != nil {
			blocks = append(blocks, rendering.Block{Label: capitalize(m[2]), Text: trimmed[len(m[0]):]})
			current = len(blocks) - 1
			continue
		}
		if m := answerLabel.FindStringSubmatch(trimmed); m != nil {
			blocks = append(blocks, rendering.Block{Label: "Answer:", Text: trimmed[len(m[0]):]})
			current = len(blocks) - 1
			continue
		}

		if current >= 0 {
			if blocks[current].Text == "" {
				blocks[current].Text = trimmed
			} else {
				blocks[current].Text += "\n" + trimmed
			}
			continue
		}
		blocks = append(blocks, rendering.Block{Text: trimmed})
		current = len(blocks) - 1
	}
	return blocks
}

// capitalize normalizes "QUESTION 3 :" to "Question 3:".
func capitalize(label string) string {
	fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(label), ":"))
	if len(fields) == 0 {
		return label
	}
	fields[0] = "Question"
	return strings.Join(fields, " ") + ":"
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
