package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/corpintel/dbd-cli/internal/resilience"
)

// userAgent is a realistic desktop UA; the registry serves a degraded page
// to obvious automation.
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config controls Chrome process and per-operation behavior.
type Config struct {
	// Headless runs Chrome without a visible window.
	Headless bool
	// Timeout bounds each page-interaction operation.
	Timeout time.Duration
	// PageLoadWait is applied after every navigation before reading.
	PageLoadWait time.Duration
}

// ChromeFactory launches one Chrome process and hands out one tab per
// session.
type ChromeFactory struct {
	cfg         Config
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromeFactory creates the Chrome allocator with the flag set the
// registry tolerates (old-style headless, automation fingerprint disabled).
func NewChromeFactory(cfg Config) (*ChromeFactory, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("window-size", "1920,1080"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("use-automation-extension", false),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromeFactory{
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// NewSession opens a fresh tab and applies the user-agent override.
func (f *ChromeFactory) NewSession(ctx context.Context) (Session, error) {
	tabCtx, tabCancel := chromedp.NewContext(f.allocCtx)

	s := &chromeSession{
		ctx:          tabCtx,
		cancel:       tabCancel,
		timeout:      f.cfg.Timeout,
		pageLoadWait: f.cfg.PageLoadWait,
	}

	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return emulation.SetUserAgentOverride(userAgent).Do(ctx)
	}))
	if err != nil {
		tabCancel()
		return nil, eris.Wrap(err, "browser: start session")
	}

	zap.L().Debug("browser session started")
	return s, nil
}

// Close shuts the Chrome process down. All sessions become invalid.
func (f *ChromeFactory) Close() error {
	f.allocCancel()
	return nil
}

type chromeSession struct {
	ctx          context.Context
	cancel       context.CancelFunc
	timeout      time.Duration
	pageLoadWait time.Duration
}

// run executes actions against the tab under the per-operation timeout and
// types failures as transient.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, opCancel := context.WithTimeout(s.ctx, s.timeout)
	defer opCancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(opCtx, actions...) }()

	select {
	case <-ctx.Done():
		opCancel()
		<-done
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return resilience.NewTransientError(err)
		}
		return nil
	}
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return eris.Wrapf(err, "browser: navigate %s", url)
	}
	return resilience.Sleep(ctx, s.pageLoadWait)
}

func (s *chromeSession) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", eris.Wrap(err, "browser: current url")
	}
	return loc, nil
}

func (s *chromeSession) BodyText(ctx context.Context) (string, error) {
	var text string
	if err := s.run(ctx, chromedp.Text("body", &text, chromedp.ByQuery)); err != nil {
		return "", eris.Wrap(err, "browser: body text")
	}
	return text, nil
}

func (s *chromeSession) BodyHTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("body", &html, chromedp.ByQuery)); err != nil {
		return "", eris.Wrap(err, "browser: body html")
	}
	return html, nil
}

func (s *chromeSession) ClickText(ctx context.Context, text string) error {
	sel := fmt.Sprintf(`//*[contains(text(), "%s")]`, text)
	if err := s.run(ctx, chromedp.Click(sel, chromedp.BySearch)); err != nil {
		return eris.Wrapf(err, "browser: click %q", text)
	}
	return nil
}

func (s *chromeSession) EnterPageNumber(ctx context.Context, page int) error {
	err := s.run(ctx,
		chromedp.SetValue(`input[type="number"]`, fmt.Sprintf("%d", page), chromedp.ByQuery),
		chromedp.SendKeys(`input[type="number"]`, "\r", chromedp.ByQuery),
	)
	if err != nil {
		return eris.Wrapf(err, "browser: go to page %d", page)
	}
	return nil
}

func (s *chromeSession) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return eris.Wrap(err, "browser: screenshot")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "browser: screenshot dir")
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return eris.Wrapf(err, "browser: write screenshot %s", path)
	}
	return nil
}

func (s *chromeSession) Close() error {
	s.cancel()
	return nil
}
