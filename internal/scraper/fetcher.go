// Package scraper fetches remote documents and reduces their markup to
// normalized text.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"go.uber.org/zap"

	"veritas/internal/logging"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 10 << 20
	maxRedirects        = 10
)

// Response is a successful fetch.
type Response struct {
	StatusCode int
	Body       []byte
	FinalURL   string
}

// Fetcher retrieves the markup behind a URL. Failures are *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

type Config struct {
	Timeout      time.Duration // Default: 30s.
	MaxBodyBytes int64         // Default: 10MB.
	UserAgents   UserAgentPicker
	// Transport overrides the HTTP transport, mostly for tests.
	Transport http.RoundTripper
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.UserAgents == nil {
		c.UserAgents = NewRandomPicker(0)
	}
}

// HTTPFetcher performs a single GET per call with browser-like headers.
// It never retries.
type HTTPFetcher struct {
	client *http.Client
	config Config
	logger *zap.Logger
}

func NewHTTPFetcher(cfg Config, logger *zap.Logger) *HTTPFetcher {
	cfg.defaults()
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		config: cfg,
		logger: logging.OrNop(logger),
	}
}

// Headers returns the request headers for one fetch.
func (f *HTTPFetcher) Headers() http.Header {
	h := make(http.Header)
	h.Set("User-Agent", f.config.UserAgents.Pick())
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Accept-Encoding", "gzip, deflate")
	h.Set("Connection", "keep-alive")
	return h
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, networkError(err)
	}
	req.Header = f.Headers()

	resp, err := f.client.Do(req)
	if err != nil {
		fe := classify(err)
		f.logger.Warn("fetch failed", zap.String("url", url), zap.String("kind", string(fe.Kind)), zap.Error(err))
		return nil, fe
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fe := statusError(resp.StatusCode, reasonPhrase(resp))
		f.logger.Warn("fetch failed", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return nil, fe
	}

	body, err := f.readBody(resp)
	if err != nil {
		fe := classify(err)
		f.logger.Warn("fetch body read failed", zap.String("url", url), zap.Error(err))
		return nil, fe
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	f.logger.Debug("fetched",
		zap.String("url", url),
		zap.String("final_url", finalURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("size", len(body)))

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		FinalURL:   finalURL,
	}, nil
}

// readBody undoes the Content-Encoding. Accept-Encoding is set by hand, so
// net/http leaves decoding to us. A body over MaxBodyBytes, raw or decoded,
// is an error rather than truncated.
func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	raw, err := readLimited(resp.Body, f.config.MaxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var r io.Reader
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return raw, nil
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		defer gz.Close()
		r = gz
	case "deflate":
		// Servers disagree on whether deflate means zlib-wrapped or raw.
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer zr.Close()
			r = zr
		} else {
			fr := flate.NewReader(bytes.NewReader(raw))
			defer fr.Close()
			r = fr
		}
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}

	body, err := readLimited(r, f.config.MaxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return body, nil
}

// readLimited reads one byte past limit so an oversized body is detected
// instead of cut.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge(limit)
	}
	return data, nil
}

func classify(err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutError(err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return timeoutError(err)
	}
	return networkError(err)
}

func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}
