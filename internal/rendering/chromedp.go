package rendering

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Renderer converts an HTML document to PDF bytes.
type Renderer interface {
	RenderHTMLToPDF(ctx context.Context, html, footerHTML string) ([]byte, error)
}

// A4 in inches.
const (
	a4Width  = 8.27
	a4Height = 11.69
)

// ChromedpRenderer prints HTML to PDF with headless Chrome.
type ChromedpRenderer struct {
	// ExecPath overrides the Chrome binary. Empty means chromedp's lookup.
	ExecPath string
	Timeout  time.Duration
}

// NewChromedpRenderer creates a renderer with a 60s timeout.
func NewChromedpRenderer(execPath string) *ChromedpRenderer {
	return &ChromedpRenderer{ExecPath: execPath, Timeout: 60 * time.Second}
}

// RenderHTMLToPDF loads html into a blank page and prints it as A4 with the
// given footer on every page.
func (r *ChromedpRenderer) RenderHTMLToPDF(ctx context.Context, html, footerHTML string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithPreferCSSPageSize(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate("<span></span>").
				WithFooterTemplate(footerHTML).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, &RenderError{Stage: StagePDF, Message: "chrome failed to print PDF", Cause: err}
	}
	return pdf, nil
}
