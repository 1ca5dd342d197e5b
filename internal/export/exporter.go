// Package export renders a stored application package as a downloadable PDF.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/application-assistant/internal/rendering"
	"github.com/jonathan/application-assistant/internal/schemas"
	"github.com/jonathan/application-assistant/internal/types"
	"github.com/sirupsen/logrus"
)

// ContentTypePDF is the content type of every Artifact.
const ContentTypePDF = "application/pdf"

// Artifact is a rendered export ready to be streamed to the user.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportError is returned when a document cannot be rendered.
// The user may retry the export.
type ExportError struct {
	Message string
	Cause   error
}

func (e *ExportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("export failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("export failed: %s", e.Message)
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}

// Exporter turns application records into PDF artifacts.
type Exporter struct {
	renderer rendering.Renderer
	now      func() time.Time
	logger   logrus.FieldLogger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock overrides the clock used for the "Generated" footer timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// WithLogger sets the exporter's logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Exporter) { e.logger = logger }
}

// NewExporter creates an exporter backed by renderer.
func NewExporter(renderer rendering.Renderer, opts ...Option) *Exporter {
	e := &Exporter{
		renderer: renderer,
		now:      time.Now,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render produces the PDF for a record.
func (e *Exporter) Render(ctx context.Context, record *types.ApplicationRecord) (*Artifact, error) {
	if record == nil {
		return nil, &ExportError{Message: "no application to export"}
	}

	generatedAt := e.now()
	doc := BuildDocument(record, generatedAt)

	html, err := rendering.RenderHTML(doc)
	if err != nil {
		return nil, &ExportError{Message: "failed to build document", Cause: err}
	}

	data, err := e.renderer.RenderHTMLToPDF(ctx, html, rendering.FooterHTML(generatedAt))
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"application_id": record.ID.String(),
			"error":          err.Error(),
		}).Error("PDF rendering failed")
		return nil, &ExportError{Message: "failed to render PDF", Cause: err}
	}

	e.logger.WithFields(logrus.Fields{
		"application_id": record.ID.String(),
		"sections":       len(doc.Sections),
		"bytes":          len(data),
	}).Info("Exported application package")

	return &Artifact{
		Filename:    Filename(record),
		ContentType: ContentTypePDF,
		Data:        data,
	}, nil
}

// RenderDocument renders a raw JSON application document, such as one
// exported from an older version of the store. Outputs nested one level under
// an "outputs" key are unwrapped before rendering.
func (e *Exporter) RenderDocument(ctx context.Context, raw []byte) (*Artifact, error) {
	record, err := DecodeRecord(raw)
	if err != nil {
		return nil, err
	}
	return e.Render(ctx, record)
}

// rawRecord mirrors types.ApplicationRecord with outputs left undecoded.
type rawRecord struct {
	types.ApplicationRecord
	Outputs json.RawMessage `json:"outputs"`
}

// DecodeRecord parses and validates a raw JSON application document.
func DecodeRecord(raw []byte) (*types.ApplicationRecord, error) {
	if err := schemas.Validate(schemas.ApplicationRecordSchema, raw); err != nil {
		return nil, err
	}

	var doc rawRecord
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &schemas.ValidationError{
			Schema: schemas.ApplicationRecordSchema,
			Errors: []schemas.FieldError{{Field: "(root)", Message: err.Error()}},
		}
	}

	outputs, _, err := schemas.DecodeOutputs(doc.Outputs)
	if err != nil {
		return nil, err
	}

	record := doc.ApplicationRecord
	record.Outputs = outputs
	return &record, nil
}

// Filename returns "<employer>-<role>-<YYYY-MM-DD>.pdf" with both names slugged.
func Filename(record *types.ApplicationRecord) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{record.Company, record.JobTitle} {
		if slug := slugify(s); slug != "" {
			parts = append(parts, slug)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "application")
	}

	date := record.DateApplied
	if date.IsZero() {
		date = record.CreatedAt
	}
	if !date.IsZero() {
		parts = append(parts, date.Format("2006-01-02"))
	}
	return strings.Join(parts, "-") + ".pdf"
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
