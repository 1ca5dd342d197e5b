package prompts

import (
	"fmt"

	"github.com/jonathan/application-assistant/internal/types"
)

// render fills a tools.json template. Inputs are inserted verbatim.
func render(key string, data map[string]string) string {
	if data == nil {
		data = make(map[string]string, 2)
	}
	data["Guardrails"] = mustLookup("guardrails")
	data["OutputDirective"] = mustLookup("output-directive")
	return Format(mustLookup(key), data)
}

// Resume builds the job-aware résumé optimization prompt used in packages.
func Resume(jobDescription, resume string) string {
	return render("resume", map[string]string{
		"JobDescription": jobDescription,
		"Resume":         resume,
	})
}

// OptimizeResume builds the standalone résumé optimization prompt.
func OptimizeResume(resume string) string {
	return render("optimize-resume", map[string]string{"Resume": resume})
}

// CoverLetter builds the cover letter prompt.
func CoverLetter(jobDescription, resume string) string {
	return render("cover-letter", map[string]string{
		"JobDescription": jobDescription,
		"Resume":         resume,
	})
}

// InterviewPrep builds the prompt for ten tailored questions with answer frameworks,
// formatted as "Question N:" / "Answer:" pairs.
func InterviewPrep(jobDescription, resume string) string {
	return render("interview-prep", map[string]string{
		"JobDescription": jobDescription,
		"Resume":         resume,
	})
}

// JobAnalyzer builds the job description analysis prompt.
func JobAnalyzer(jobDescription string) string {
	return render("job-analyzer", map[string]string{"JobDescription": jobDescription})
}

// LinkedIn builds the job-aware LinkedIn content prompt used in packages.
func LinkedIn(jobDescription, resume string) string {
	return render("linkedin", map[string]string{
		"JobDescription": jobDescription,
		"Resume":         resume,
	})
}

// OptimizeLinkedIn builds the standalone LinkedIn profile optimization prompt.
func OptimizeLinkedIn(profile string) string {
	return render("optimize-linkedin", map[string]string{"Profile": profile})
}

// ForTool returns the package prompt for a tool.
func ForTool(tool types.ToolName, jobDescription, resume string) (string, error) {
	switch tool {
	case types.ToolResume:
		return Resume(jobDescription, resume), nil
	case types.ToolCoverLetter:
		return CoverLetter(jobDescription, resume), nil
	case types.ToolInterviewPrep:
		return InterviewPrep(jobDescription, resume), nil
	case types.ToolLinkedIn:
		return LinkedIn(jobDescription, resume), nil
	case types.ToolJobAnalyzer:
		return JobAnalyzer(jobDescription), nil
	default:
		return "", &types.ValidationError{Field: "tools", Message: fmt.Sprintf("no prompt for tool %q", tool)}
	}
}
