package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"

	"veritas/internal/logging"
)

// BrowserFetcher renders pages in headless Chrome with stealth patches applied.
// It is for sites that refuse plain HTTP clients. The browser is started on
// first use and shared by all fetches.
type BrowserFetcher struct {
	controlURL string
	config     Config
	logger     *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewBrowserFetcher connects to controlURL, or launches a local Chrome when it is empty.
func NewBrowserFetcher(controlURL string, cfg Config, logger *zap.Logger) *BrowserFetcher {
	cfg.defaults()
	return &BrowserFetcher{
		controlURL: controlURL,
		config:     cfg,
		logger:     logging.OrNop(logger),
	}
}

func (f *BrowserFetcher) connect() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return f.browser, nil
	}

	wsURL := f.controlURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		wsURL = u
		f.lnch = l
		f.logger.Info("launched local chrome", zap.String("control_url", wsURL))
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect chrome: %w", err)
	}
	f.browser = b
	return b, nil
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	b, err := f.connect()
	if err != nil {
		return nil, networkError(err)
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, networkError(fmt.Errorf("open tab: %w", err))
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      f.config.UserAgents.Pick(),
		AcceptLanguage: "en-US,en;q=0.5",
	}); err != nil {
		f.logger.Warn("set user agent failed", zap.Error(err))
	}

	status := 0
	waitDocument := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type == proto.NetworkResourceTypeDocument {
			status = e.Response.Status
			return true
		}
		return false
	})

	if err := page.Navigate(url); err != nil {
		return nil, browserError(ctx, err)
	}
	waitDocument()
	if err := page.WaitLoad(); err != nil {
		return nil, browserError(ctx, err)
	}

	if status != 0 && (status < 200 || status >= 300) {
		return nil, statusError(status, "")
	}

	html, err := page.HTML()
	if err != nil {
		return nil, browserError(ctx, err)
	}

	finalURL := url
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}
	if status == 0 {
		status = 200
	}

	body := []byte(html)
	if int64(len(body)) > f.config.MaxBodyBytes {
		return nil, networkError(errBodyTooLarge(f.config.MaxBodyBytes))
	}

	f.logger.Debug("rendered", zap.String("url", url), zap.String("final_url", finalURL), zap.Int("size", len(body)))

	return &Response{StatusCode: status, Body: body, FinalURL: finalURL}, nil
}

// Close shuts down the browser and any Chrome process this fetcher launched.
func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var err error
	if f.browser != nil {
		err = f.browser.Close()
		f.browser = nil
	}
	if f.lnch != nil {
		f.lnch.Cleanup()
		f.lnch = nil
	}
	return err
}

func browserError(ctx context.Context, err error) *FetchError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return timeoutError(err)
	}
	return classify(err)
}
