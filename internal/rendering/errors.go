// Package rendering turns application documents into HTML and PDF.
package rendering

import "fmt"

// Stage names the rendering step that failed.
type Stage string

const (
	StageTemplate Stage = "template"
	StagePDF      Stage = "pdf"
)

// RenderError reports a failure while producing HTML or printing the PDF.
type RenderError struct {
	Stage   Stage
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render error (%s): %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("render error (%s): %s", e.Stage, e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
