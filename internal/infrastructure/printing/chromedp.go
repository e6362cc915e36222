package printing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/madrasa/backend/internal/application/fee"
	"github.com/madrasa/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// A5 portrait, in inches
const (
	a5Width  = 5.83
	a5Height = 8.27
	margin   = 0.4
)

// ErrRenderTimeout is returned when Chrome does not finish in time
var ErrRenderTimeout = errors.New("receipt rendering timed out")

// ChromeRenderer prints receipts with a shared headless Chrome. At most
// MaxConcurrent tabs render at once.
type ChromeRenderer struct {
	template    *ReceiptTemplate
	timeout     time.Duration
	slots       chan struct{}
	allocCtx    context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// NewChromeRenderer starts an exec allocator. Chrome itself is launched
// lazily on the first render.
func NewChromeRenderer(cfg config.PrintingConfig, logger *zap.Logger) (*ChromeRenderer, error) {
	tmpl, err := NewReceiptTemplate()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RenderTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	concurrent := cfg.MaxConcurrent
	if concurrent <= 0 {
		concurrent = 2
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromeRenderer{
		template:    tmpl,
		timeout:     timeout,
		slots:       make(chan struct{}, concurrent),
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// RenderReceipt implements fee.ReceiptRenderer
func (r *ChromeRenderer) RenderReceipt(ctx context.Context, doc *fee.ReceiptDocument) ([]byte, error) {
	html, err := r.template.Render(doc)
	if err != nil {
		return nil, err
	}

	select {
	case r.slots <- struct{}{}:
		defer func() { <-r.slots }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	start := time.Now()
	pdf, err := r.print(ctx, html)
	if err != nil {
		r.logger.Error("Receipt rendering failed", zap.String("receipt_number", doc.ReceiptNumber), zap.Error(err))
		return nil, err
	}
	r.logger.Info("Receipt rendered",
		zap.String("receipt_number", doc.ReceiptNumber),
		zap.Int("bytes", len(pdf)),
		zap.Duration("duration", time.Since(start)),
	)
	return pdf, nil
}

func (r *ChromeRenderer) print(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tabCtx, tabCancel := chromedp.NewContext(r.allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		r.logger.Debug(fmt.Sprintf(format, args...))
	}))
	defer tabCancel()

	// tie the tab to the caller's deadline
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a5Width).
				WithPaperHeight(a5Height).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithMarginRight(margin).
				Do(ctx)
			pdf = data
			return err
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrRenderTimeout, r.timeout)
		}
		return nil, fmt.Errorf("chrome failed to print receipt: %w", err)
	}
	if len(pdf) == 0 {
		return nil, errors.New("chrome produced an empty PDF")
	}
	return pdf, nil
}

// Close shuts down Chrome
func (r *ChromeRenderer) Close() error {
	r.allocCancel()
	return nil
}

var _ fee.ReceiptRenderer = (*ChromeRenderer)(nil)
