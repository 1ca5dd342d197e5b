package fetch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MinContentLength is the shortest extracted text treated as a complete
// page. Anything shorter is likely a client-rendered shell.
const MinContentLength = 500

var (
	spaceRun     = regexp.MustCompile(`[ \t\f\v]+`)
	blankLineRun = regexp.MustCompile(`\n{3,}`)
)

// baseNoise is removed from every page before extraction.
const baseNoise = "nav, footer, header, script, style, noscript, svg, iframe, .ad, .advertisement, .ads, .sidebar, .cookie-banner, .popup"

// ShouldUseBrowser reports whether extracted text is too short to be the
// real posting.
func ShouldUseBrowser(text string) bool {
	return len(strings.TrimSpace(text)) < MinContentLength
}

// ExtractText parses html and returns the text of the first element that
// matches the platform's content selectors, or of the body when none match.
// Block elements become line breaks.
func ExtractText(html string, platform Platform) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(baseNoise).Remove()
	doc.Find(strings.Join(NoiseSelectors(platform), ", ")).Remove()

	var content *goquery.Selection
	for _, selector := range ContentSelectors(platform) {
		if sel := doc.Find(selector); sel.Length() > 0 {
			content = sel.First()
			break
		}
	}
	if content == nil {
		content = doc.Find("body")
	}

	content.Find("br").ReplaceWithHtml("\n")
	content.Find("p, div, li, h1, h2, h3, h4, h5, h6, tr, section").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "li" {
			s.PrependHtml("- ")
		}
		s.AppendHtml("\n")
	})

	return content.Text(), nil
}

// CleanText normalizes line endings and whitespace. Markdown headings and
// bullets keep their markers, runs of spaces collapse, and no more than one
// blank line separates paragraphs.
func CleanText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = spaceRun.ReplaceAllString(strings.TrimSpace(line), " ")
	}

	content = strings.Join(lines, "\n")
	content = blankLineRun.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
