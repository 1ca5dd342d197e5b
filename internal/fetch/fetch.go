// Package fetch retrieves job postings from the web and reduces them to
// plain text suitable for a generation request.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; ApplicationAssistant/1.0)"

// maxBodyBytes caps how much of a page is read.
const maxBodyBytes = 5 << 20

// Error represents an error during URL fetching.
type Error struct {
	URL        string
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// PageRenderer renders a page in a real browser and returns its HTML.
type PageRenderer interface {
	RenderPage(ctx context.Context, url string) (string, error)
}

// Posting is a fetched and cleaned job posting.
type Posting struct {
	URL      string   `json:"url"`
	Platform Platform `json:"platform"`
	Text     string   `json:"text"`
	Hash     string   `json:"hash"`
	Rendered bool     `json:"rendered"`
}

// Fetcher downloads job postings.
type Fetcher struct {
	client    *http.Client
	userAgent string
	browser   PageRenderer
	logger    *logrus.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithBrowser enables the headless browser fallback for pages whose
// content is rendered client-side.
func WithBrowser(r PageRenderer) Option {
	return func(f *Fetcher) { f.browser = r }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logrus.New()
		f.logger.SetOutput(io.Discard)
	}
	return f
}

// JobPosting fetches rawURL and extracts the posting text using selectors
// for the detected job board. When the extracted text is too short and a
// browser is configured, the page is rendered and extracted again.
func (f *Fetcher) JobPosting(ctx context.Context, rawURL string) (*Posting, error) {
	platform := DetectPlatform(rawURL)
	log := f.logger.WithFields(logrus.Fields{"url": rawURL, "platform": platform})

	html, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	log.WithField("bytes", len(html)).Debug("Fetched page")

	text, err := ExtractText(html, platform)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "content extraction failed", Cause: err}
	}

	rendered := false
	if f.browser != nil && ShouldUseBrowser(text) {
		log.WithField("chars", len(text)).Info("Page content too short, rendering in browser")
		browserHTML, err := f.browser.RenderPage(ctx, rawURL)
		if err != nil {
			log.WithError(err).Warn("Browser rendering failed, using HTTP content")
		} else if browserText, err := ExtractText(browserHTML, platform); err == nil && len(browserText) > len(text) {
			text = browserText
			rendered = true
		}
	}

	text = CleanText(text)
	if text == "" {
		return nil, &Error{URL: rawURL, Message: "no job description text found"}
	}

	return &Posting{
		URL:      rawURL,
		Platform: platform,
		Text:     text,
		Hash:     hashText(text),
		Rendered: rendered,
	}, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", &Error{URL: rawURL, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &Error{URL: rawURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &Error{URL: rawURL, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			URL:        rawURL,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &Error{URL: rawURL, Message: "failed to read response body", Cause: err}
	}
	return string(body), nil
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
