package rendering

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sync"
	"time"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Document is a paginated, multi-section export.
type Document struct {
	Title       string
	Employer    string
	Role        string
	DateApplied string
	GeneratedAt time.Time
	Sections    []Section
}

// Section is one titled part of a Document.
type Section struct {
	ID      string
	Title   string
	NewPage bool
	Blocks  []Block
}

// Block is a paragraph with an optional bold inline label.
type Block struct {
	Label string
	Text  string
}

var (
	packageTmpl     *template.Template
	packageTmplErr  error
	packageTmplOnce sync.Once
)

func parseTemplate() (*template.Template, error) {
	packageTmplOnce.Do(func() {
		packageTmpl, packageTmplErr = template.ParseFS(templateFiles, "templates/package.html")
	})
	if packageTmplErr != nil {
		return nil, &RenderError{Stage: StageTemplate, Message: "failed to parse template", Cause: packageTmplErr}
	}
	return packageTmpl, nil
}

// RenderHTML renders the document body. All text is HTML-escaped.
func RenderHTML(doc *Document) (string, error) {
	tmpl, err := parseTemplate()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, doc); err != nil {
		return "", &RenderError{Stage: StageTemplate, Message: "failed to execute template", Cause: err}
	}
	return buf.String(), nil
}

// FooterHTML renders the running footer printed on every page.
// pageNumber and totalPages are filled in by the browser at print time.
func FooterHTML(generatedAt time.Time) string {
	return fmt.Sprintf(
		`<div style="width:100%%;font-size:8pt;color:#6b7280;text-align:center;font-family:Arial,sans-serif;">`+
			`Page <span class="pageNumber"></span> of <span class="totalPages"></span> · Generated %s</div>`,
		template.HTMLEscapeString(generatedAt.UTC().Format("2006-01-02 15:04 UTC")),
	)
}
