package export

import (
	"testing"

	"github.com/jonathan/application-assistant/internal/rendering"
	"github.com/jonathan/application-assistant/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sectionIDs(doc *rendering.Document) []string {
	ids := make([]string, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestBuildDocument_SectionOrder(t *testing.T) {
	record := sampleRecord()
	record.Outputs[types.ToolLinkedIn] = "Headline"
	record.Outputs[types.ToolJobAnalyzer] = "APPLICATION STRATEGY\nApply early."

	doc := BuildDocument(record, generatedAt)

	assert.Equal(t, []string{"job-description", "resume", "coverLetter", "interviewPrep", "linkedin", "jobAnalyzer"}, sectionIDs(doc))
	assert.Equal(t, "Acme Corp - Senior Engineer", doc.Title)
	assert.Equal(t, "June 1, 2026", doc.DateApplied)

	newPage := map[string]bool{}
	for _, s := range doc.Sections {
		newPage[s.ID] = s.NewPage
	}
	assert.False(t, newPage["job-description"])
	assert.False(t, newPage["resume"])
	assert.True(t, newPage["coverLetter"])
	assert.True(t, newPage["interviewPrep"])
	assert.True(t, newPage["linkedin"])
	assert.True(t, newPage["jobAnalyzer"])
}

func TestBuildDocument_SkipsAbsentSections(t *testing.T) {
	record := sampleRecord()
	record.JobDescription = "  "
	record.Outputs = types.Outputs{types.ToolCoverLetter: "Dear team,", types.ToolResume: "\n\n"}

	doc := BuildDocument(record, generatedAt)
	assert.Equal(t, []string{"coverLetter"}, sectionIDs(doc))
}

func TestBuildDocument_JobDescriptionParagraphs(t *testing.T) {
	doc := BuildDocument(sampleRecord(), generatedAt)
	require.NotEmpty(t, doc.Sections)
	assert.Equal(t, []rendering.Block{{Text: "Build APIs."}, {Text: "Own reliability."}}, doc.Sections[0].Blocks)
}

func TestInterviewBlocks(t *testing.T) {
	text := "Here are your questions.\n\n" +
		"Question 1: Tell me about yourself.\n" +
		"Answer: Start with your current role.\n" +
		"Then connect it to the job.\n\n" +
		"**QUESTION 2:** Why this team?\r\n" +
		"answer: Mention the product."

	blocks := interviewBlocks(text)

	assert.Equal(t, []rendering.Block{
		{Text: "Here are your questions."},
		{Label: "Question 1:", Text: "Tell me about yourself."},
		{Label: "Answer:", Text: "Start with your current role.\nThen connect it to the job."},
		{Label: "Question 2:", Text: "Why this team?"},
		{Label: "Answer:", Text: "Mention the product."},
	}, blocks)
}

func TestBuildDocument_MissingDate(t *testing.T) {
	record := sampleRecord()
	record.DateApplied = record.CreatedAt
	assert.Equal(t, "-", BuildDocument(record, generatedAt).DateApplied)
}
