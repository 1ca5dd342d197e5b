package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromedpBrowser renders pages with headless Chrome.
type ChromedpBrowser struct {
	// ExecPath overrides the Chrome binary. Empty means chromedp's lookup.
	ExecPath string
	Timeout  time.Duration
	// Settle is how long to wait after the body is ready for scripts to
	// populate the page.
	Settle time.Duration
}

// NewChromedpBrowser creates a browser with default timings.
func NewChromedpBrowser(execPath string) *ChromedpBrowser {
	return &ChromedpBrowser{ExecPath: execPath, Timeout: 30 * time.Second, Settle: 3 * time.Second}
}

// RenderPage implements PageRenderer.
func (b *ChromedpBrowser) RenderPage(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if b.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	browserCtx, cancel = context.WithTimeout(browserCtx, b.Timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(b.Settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}
	return html, nil
}
