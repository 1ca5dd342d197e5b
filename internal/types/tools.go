// Package types provides type definitions for structured data used throughout the application assistant.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"
)

// ToolName identifies one of the independent generation capabilities.
// The string values are the wire names used by clients and persisted documents.
type ToolName string

// Tool constants
const (
	ToolResume        ToolName = "resume"
	ToolCoverLetter   ToolName = "coverLetter"
	ToolInterviewPrep ToolName = "interviewPrep"
	ToolLinkedIn      ToolName = "linkedin"
	ToolJobAnalyzer   ToolName = "jobAnalyzer"
)

// AllTools lists every tool in canonical order.
var AllTools = []ToolName{
	ToolResume,
	ToolCoverLetter,
	ToolInterviewPrep,
	ToolLinkedIn,
	ToolJobAnalyzer,
}

// Valid reports whether t is a known tool.
func (t ToolName) Valid() bool {
	for _, known := range AllTools {
		if t == known {
			return true
		}
	}
	return false
}

// Label returns the human-readable tool name.
func (t ToolName) Label() string {
	switch t {
	case ToolResume:
		return "Optimized Resume"
	case ToolCoverLetter:
		return "Cover Letter"
	case ToolInterviewPrep:
		return "Interview Prep"
	case ToolLinkedIn:
		return "LinkedIn Content"
	case ToolJobAnalyzer:
		return "Job Analysis"
	default:
		return string(t)
	}
}

// ParseToolName parses a wire tool name.
func ParseToolName(s string) (ToolName, error) {
	t := ToolName(strings.TrimSpace(s))
	if !t.Valid() {
		return "", &ValidationError{Field: "tools", Message: fmt.Sprintf("unknown tool %q", s)}
	}
	return t, nil
}

// ParseTools parses and deduplicates a list of wire tool names, preserving first occurrence order.
func ParseTools(names []string) ([]ToolName, error) {
	if len(names) == 0 {
		return nil, &ValidationError{Field: "tools", Message: "at least one tool is required"}
	}
	seen := make(map[ToolName]bool, len(names))
	tools := make([]ToolName, 0, len(names))
	for _, name := range names {
		t, err := ParseToolName(name)
		if err != nil {
			return nil, err
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		tools = append(tools, t)
	}
	return tools, nil
}
