package generation

import "github.com/jonathan/application-assistant/internal/types"

// Token budgets per generation call.
const (
	DefaultMaxTokens       = 2000
	InterviewPrepMaxTokens = 2500
)

// ToolSpec holds the fixed per-tool generation settings.
type ToolSpec struct {
	MaxTokens int
	// FailureReason is the user-facing message recorded when the tool fails.
	FailureReason string
}

var toolSpecs = map[types.ToolName]ToolSpec{
	types.ToolResume:        {MaxTokens: DefaultMaxTokens, FailureReason: "Failed to optimize resume"},
	types.ToolCoverLetter:   {MaxTokens: DefaultMaxTokens, FailureReason: "Failed to generate cover letter"},
	types.ToolInterviewPrep: {MaxTokens: InterviewPrepMaxTokens, FailureReason: "Failed to generate interview prep"},
	types.ToolLinkedIn:      {MaxTokens: DefaultMaxTokens, FailureReason: "Failed to optimize LinkedIn profile"},
	types.ToolJobAnalyzer:   {MaxTokens: DefaultMaxTokens, FailureReason: "Failed to analyze job description"},
}

// SpecFor returns the settings for a tool. Unknown tools get the default budget.
func SpecFor(tool types.ToolName) ToolSpec {
	if spec, ok := toolSpecs[tool]; ok {
		return spec
	}
	return ToolSpec{MaxTokens: DefaultMaxTokens, FailureReason: "Failed to generate " + string(tool)}
}
