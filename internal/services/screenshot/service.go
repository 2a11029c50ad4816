package screenshot

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

const (
	viewportWidth  = 1920
	viewportHeight = 1080

	// maxCaptureHeight clamps full-page captures. Infinite-scroll pages can
	// produce PNGs large enough to be rejected as vision input.
	maxCaptureHeight = 6000

	// settleDelay gives late-loading dynamic content a chance to render
	// before the capture.
	settleDelay = 2 * time.Second
)

// Service captures full-page screenshots with a headless browser. One
// browser process is shared across captures; captures themselves run one at
// a time per tab context.
type Service struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
	userAgent   string
	logger      arbor.ILogger
}

// NewService launches the headless browser. Launch failure is returned, not
// fatal to the caller; the pipeline runs without vision when no
// screenshotter is available.
func NewService(userAgent string, logger arbor.ILogger) (*Service, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserStop := chromedp.NewContext(allocCtx)

	// Prove the browser actually starts before handing the service out.
	startCtx, cancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer cancel()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		browserStop()
		allocCancel()
		return nil, fmt.Errorf("failed to start headless browser: %w", err)
	}

	logger.Debug().Msg("Screenshot service initialized")

	return &Service{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		browserStop: browserStop,
		userAgent:   userAgent,
		logger:      logger,
	}, nil
}

// Capture renders url at a desktop viewport and returns a full-page PNG.
func (s *Service) Capture(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	tabCtx, closeTab := chromedp.NewContext(s.browserCtx)
	defer closeTab()

	runCtx, cancel := context.WithTimeout(tabCtx, timeout+settleDelay)
	defer cancel()

	// Stop early if the caller's context ends first.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	start := time.Now()
	var buf []byte
	err := chromedp.Run(runCtx,
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
		chromedp.Navigate(url),
		chromedp.Sleep(settleDelay),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, _, contentSize, _, _, _, err := page.GetLayoutMetrics().Do(ctx)
			if err != nil {
				return err
			}
			width := contentSize.Width
			height := contentSize.Height
			if height > maxCaptureHeight {
				height = maxCaptureHeight
			}
			buf, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithCaptureBeyondViewport(true).
				WithClip(&page.Viewport{X: 0, Y: 0, Width: width, Height: height, Scale: 1}).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("screenshot capture failed for %s: %w", url, err)
	}

	s.logger.Debug().
		Str("url", url).
		Int("bytes", len(buf)).
		Dur("duration", time.Since(start)).
		Msg("Screenshot captured")

	return buf, nil
}

func (s *Service) Close() error {
	s.logger.Debug().Msg("Closing screenshot service")
	s.browserStop()
	s.allocCancel()
	return nil
}
