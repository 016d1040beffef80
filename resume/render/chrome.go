// Package render prints HTML documents to PDF with headless Chrome.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"smartcv-backend/internal/shared/telemetry"
)

// A4 in inches with 15mm margins.
const (
	paperWidthIn  = 8.27
	paperHeightIn = 11.69
	marginIn      = 0.5906
)

var pdfMagic = []byte("%PDF-")

// ErrNotPDF is returned when the browser produced something that is not a PDF.
var ErrNotPDF = errors.New("renderer returned non-PDF output")

// Renderer converts a self-contained HTML document into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// Options configures the Chrome renderer.
type Options struct {
	ChromePath string
	Timeout    time.Duration
	// TempDir is where per-render page directories are created. Empty uses os.TempDir.
	TempDir string
}

// ChromeRenderer launches a fresh browser for every Render call.
type ChromeRenderer struct {
	opts Options
}

// NewChromeRenderer builds a ChromeRenderer.
func NewChromeRenderer(opts Options) *ChromeRenderer {
	return &ChromeRenderer{opts: opts}
}

// Render writes html to a temp file, loads it over file:// and prints it.
// The browser is torn down before Render returns, on every path.
func (r *ChromeRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	start := time.Now()
	pageURL, cleanup, err := writePage(r.opts.TempDir, html)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(r.opts.ChromePath)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = printParams().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome print: %w", err)
	}
	if err := checkPDF(pdf); err != nil {
		return nil, err
	}

	telemetry.Info("render.complete", map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
		"bytes":       len(pdf),
	})
	return pdf, nil
}

func allocatorOptions(chromePath string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}
	return opts
}

func printParams() *page.PrintToPDFParams {
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(paperWidthIn).
		WithPaperHeight(paperHeightIn).
		WithMarginTop(marginIn).
		WithMarginBottom(marginIn).
		WithMarginLeft(marginIn).
		WithMarginRight(marginIn)
}

// writePage stores html as index.html in a fresh directory and returns its file URL.
func writePage(baseDir, html string) (string, func(), error) {
	dir, err := os.MkdirTemp(baseDir, "smartcv-render-")
	if err != nil {
		return "", func() {}, fmt.Errorf("create render dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	path := filepath.Join(dir, "index.html")
	if err := os.WriteFile(path, []byte(html), 0o600); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("write render page: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		cleanup()
		return "", func() {}, err
	}
	return "file://" + filepath.ToSlash(abs), cleanup, nil
}

func checkPDF(b []byte) error {
	if !bytes.HasPrefix(b, pdfMagic) {
		return ErrNotPDF
	}
	return nil
}
