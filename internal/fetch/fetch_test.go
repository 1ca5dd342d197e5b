package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var longRequirements = strings.Repeat("Design and operate distributed Go services. ", 15)

func servePage(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type stubBrowser struct {
	html  string
	err   error
	calls int
}

func (b *stubBrowser) RenderPage(_ context.Context, _ string) (string, error) {
	b.calls++
	return b.html, b.err
}

func TestJobPosting_Success(t *testing.T) {
	srv := servePage(t, http.StatusOK, `<html><body>
		<nav>Home | Jobs</nav>
		<div class="job-description">
			<h2>Senior Backend Engineer</h2>
			<p>We   build   payments.</p>
			<ul><li>5 years of Go</li><li>PostgreSQL</li></ul>
		</div>
		<form>Apply now</form>
	</body></html>`)

	posting, err := New().JobPosting(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, srv.URL, posting.URL)
	assert.Equal(t, PlatformUnknown, posting.Platform)
	assert.Contains(t, posting.Text, "Senior Backend Engineer")
	assert.Contains(t, posting.Text, "We build payments.")
	assert.Contains(t, posting.Text, "- 5 years of Go")
	assert.NotContains(t, posting.Text, "Home | Jobs")
	assert.NotContains(t, posting.Text, "Apply now")
	assert.Len(t, posting.Hash, 64)
	assert.False(t, posting.Rendered)
}

func TestJobPosting_InvalidURL(t *testing.T) {
	for _, raw := range []string{"not-a-url", "ftp://example.com/job", "https://"} {
		_, err := New().JobPosting(context.Background(), raw)
		var fetchErr *Error
		require.ErrorAs(t, err, &fetchErr, raw)
		assert.Equal(t, "invalid URL", fetchErr.Message)
	}
}

func TestJobPosting_HTTPStatus(t *testing.T) {
	srv := servePage(t, http.StatusNotFound, "gone")

	_, err := New().JobPosting(context.Background(), srv.URL)
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Contains(t, err.Error(), "404")
}

func TestJobPosting_EmptyPage(t *testing.T) {
	srv := servePage(t, http.StatusOK, `<html><body><script>render()</script></body></html>`)

	_, err := New().JobPosting(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "no job description text found")
}

func TestJobPosting_BrowserFallback(t *testing.T) {
	srv := servePage(t, http.StatusOK, `<html><body><div id="app">Loading</div></body></html>`)
	browser := &stubBrowser{html: `<html><body><main><p>` + longRequirements + `</p></main></body></html>`}

	posting, err := New(WithBrowser(browser)).JobPosting(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, 1, browser.calls)
	assert.True(t, posting.Rendered)
	assert.Contains(t, posting.Text, "distributed Go services")
	assert.NotContains(t, posting.Text, "Loading")
}

func TestJobPosting_BrowserFailureKeepsHTTPText(t *testing.T) {
	srv := servePage(t, http.StatusOK, `<html><body><main>Short teaser</main></body></html>`)
	browser := &stubBrowser{err: errors.New("chrome not found")}

	posting, err := New(WithBrowser(browser)).JobPosting(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, 1, browser.calls)
	assert.False(t, posting.Rendered)
	assert.Equal(t, "Short teaser", posting.Text)
}

func TestJobPosting_LongPageSkipsBrowser(t *testing.T) {
	srv := servePage(t, http.StatusOK, `<html><body><main>`+longRequirements+`</main></body></html>`)
	browser := &stubBrowser{}

	_, err := New(WithBrowser(browser)).JobPosting(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Zero(t, browser.calls)
}

func TestExtractText_PlatformSelectors(t *testing.T) {
	html := `<html><body>
		<div class="job__description body"><p>Greenhouse body</p></div>
		<div class="voluntary-self-id">Self identification</div>
		<div class="job-description">Generic body</div>
	</body></html>`

	text, err := ExtractText(html, PlatformGreenhouse)
	require.NoError(t, err)
	assert.Contains(t, text, "Greenhouse body")
	assert.NotContains(t, text, "Generic body")
	assert.NotContains(t, text, "Self identification")
}

func TestExtractText_FallsBackToBody(t *testing.T) {
	text, err := ExtractText(`<html><body><span>Just a span</span><style>.x{}</style></body></html>`, PlatformUnknown)
	require.NoError(t, err)
	assert.Equal(t, "Just a span", strings.TrimSpace(text))
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \n\t\n ", ""},
		{"line endings", "a\r\nb\rc", "a\nb\nc"},
		{"collapses spaces", "Go   and\t\tSQL", "Go and SQL"},
		{"keeps markers", "## Role\n- build things", "## Role\n- build things"},
		{"blank runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"trims lines", "   indented   \nnext", "indented\nnext"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanText(tt.input))
		})
	}
}

func TestShouldUseBrowser(t *testing.T) {
	assert.True(t, ShouldUseBrowser("   short   "))
	assert.False(t, ShouldUseBrowser(longRequirements))
}
