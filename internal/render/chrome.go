package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-billing/internal/invoice"
	"github.com/noah-isme/backend-billing/internal/obs"
)

// A4 paper dimensions in inches, 10mm margins all around.
const (
	paperWidthInches  = 210.0 / 25.4
	paperHeightInches = 297.0 / 25.4
	marginInches      = 10.0 / 25.4

	defaultTimeout = 30 * time.Second
)

// ChromeConfig configures the headless Chrome PDF engine.
type ChromeConfig struct {
	// RemoteURL points at an already running Chrome instance. When empty a
	// local browser process is launched per renderer.
	RemoteURL string
	// Timeout bounds a single render.
	Timeout time.Duration
	// NoSandbox is required when Chrome runs as root in a container.
	NoSandbox bool
	Logger    zerolog.Logger
}

// ChromeRenderer renders invoices to PDF through the Chrome DevTools
// protocol. Safe for concurrent use; each render gets its own tab.
type ChromeRenderer struct {
	template    *HTMLTemplate
	timeout     time.Duration
	log         zerolog.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromeRenderer builds a renderer around the given template.
func NewChromeRenderer(tmpl *HTMLTemplate, cfg ChromeConfig) *ChromeRenderer {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	r := &ChromeRenderer{template: tmpl, timeout: timeout, log: cfg.Logger}

	if cfg.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		return r
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return r
}

// RenderInvoice produces the PDF bytes for one invoice.
func (r *ChromeRenderer) RenderInvoice(ctx context.Context, inv invoice.Invoice) ([]byte, error) {
	html, err := r.template.Render(inv)
	if err != nil {
		countRender("template_error")
		return nil, err
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx)
	defer browserCancel()

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidthInches).
				WithPaperHeight(paperHeightInches).
				WithMarginTop(marginInches).
				WithMarginRight(marginInches).
				WithMarginBottom(marginInches).
				WithMarginLeft(marginInches).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		countRender("error")
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("pdf render timed out after %v: %w", r.timeout, err)
		}
		r.log.Error().Err(err).Str("invoice", inv.InvoiceNumber).Msg("pdf render failed")
		return nil, fmt.Errorf("pdf render: %w", err)
	}
	if len(pdf) == 0 {
		countRender("error")
		return nil, errors.New("pdf render produced no output")
	}

	countRender("ok")
	if obs.PDFRenderLatency != nil {
		obs.PDFRenderLatency.Observe(obs.DurationMillis(time.Since(start)))
	}
	r.log.Debug().
		Str("invoice", inv.InvoiceNumber).
		Int("bytes", len(pdf)).
		Dur("duration", time.Since(start)).
		Msg("pdf rendered")
	return pdf, nil
}

// Close releases the browser allocator.
func (r *ChromeRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

func countRender(result string) {
	if obs.PDFRenderTotal != nil {
		obs.PDFRenderTotal.WithLabelValues(result).Inc()
	}
}

var _ invoice.Renderer = (*ChromeRenderer)(nil)
