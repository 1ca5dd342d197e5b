package types

import (
	"strings"
)

// GenerationRequest is the input to one package generation run.
type GenerationRequest struct {
	JobDescription string
	Resume         string
	Tools          []ToolName
}

// NewGenerationRequest validates the inputs and returns a request with deduplicated tools.
func NewGenerationRequest(jobDescription, resume string, tools []ToolName) (GenerationRequest, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return GenerationRequest{}, &ValidationError{Field: "jobDescription", Message: "is required"}
	}
	if strings.TrimSpace(resume) == "" {
		return GenerationRequest{}, &ValidationError{Field: "resume", Message: "is required"}
	}
	if len(tools) == 0 {
		return GenerationRequest{}, &ValidationError{Field: "tools", Message: "at least one tool is required"}
	}

	seen := make(map[ToolName]bool, len(tools))
	deduped := make([]ToolName, 0, len(tools))
	for _, t := range tools {
		if !t.Valid() {
			return GenerationRequest{}, &ValidationError{Field: "tools", Message: "unknown tool " + string(t)}
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		deduped = append(deduped, t)
	}

	return GenerationRequest{
		JobDescription: jobDescription,
		Resume:         resume,
		Tools:          deduped,
	}, nil
}

// Outputs maps each successful tool to its generated text.
type Outputs map[ToolName]string

// PackageOutcome is the partitioned result of a generation run.
// Errors is nil when no tool failed.
type PackageOutcome struct {
	Outputs Outputs             `json:"outputs"`
	Errors  map[ToolName]string `json:"errors"`
}

// Failed reports whether any tool failed.
func (p PackageOutcome) Failed() bool {
	return len(p.Errors) > 0
}

// Tools returns the set of tools that have a result, successful or not.
func (p PackageOutcome) Tools() []ToolName {
	var tools []ToolName
	for _, t := range AllTools {
		if _, ok := p.Outputs[t]; ok {
			tools = append(tools, t)
			continue
		}
		if _, ok := p.Errors[t]; ok {
			tools = append(tools, t)
		}
	}
	return tools
}
