package scraper

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAgent = "veritas-test/1.0"

func newTestFetcher(timeout time.Duration) *HTTPFetcher {
	return NewHTTPFetcher(Config{Timeout: timeout, UserAgents: FixedPicker(testAgent)}, nil)
}

func TestHTTPFetcher_Headers(t *testing.T) {
	f := newTestFetcher(0)

	h := f.Headers()

	assert.Equal(t, testAgent, h.Get("User-Agent"))
	assert.Equal(t, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8", h.Get("Accept"))
	assert.Equal(t, "en-US,en;q=0.5", h.Get("Accept-Language"))
	assert.Equal(t, "gzip, deflate", h.Get("Accept-Encoding"))
	assert.Equal(t, "keep-alive", h.Get("Connection"))
}

func TestHTTPFetcher_Success(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<p>hello</p>"))
	}))
	defer srv.Close()

	resp, err := newTestFetcher(time.Second).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<p>hello</p>", string(resp.Body))
	assert.Equal(t, srv.URL, resp.FinalURL)
	assert.Equal(t, testAgent, got.Get("User-Agent"))
	assert.Equal(t, "en-US,en;q=0.5", got.Get("Accept-Language"))
	assert.Equal(t, "gzip, deflate", got.Get("Accept-Encoding"))
}

func TestHTTPFetcher_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newTestFetcher(time.Second).Fetch(context.Background(), srv.URL)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindHTTPStatus, fe.Kind)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Equal(t, "HTTP 404: Not Found", fe.Error())
}

func TestHTTPFetcher_TooManyRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestFetcher(time.Second).Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Equal(t, "HTTP 429: Too Many Requests", err.Error())
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := newTestFetcher(50*time.Millisecond).Fetch(context.Background(), srv.URL)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindTimeout, fe.Kind)
	assert.Equal(t, "Request timeout", fe.Error())
}

func TestHTTPFetcher_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestFetcher(time.Second).Fetch(context.Background(), url)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindNetwork, fe.Kind)
	assert.NotEmpty(t, fe.Error())
	assert.NotNil(t, fe.Unwrap())
}

func TestHTTPFetcher_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("moved"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := newTestFetcher(time.Second).Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)

	assert.Equal(t, "moved", string(resp.Body))
	assert.Equal(t, srv.URL+"/new", resp.FinalURL)
}

func TestHTTPFetcher_DecodesGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte("<p>compressed</p>"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	resp, err := newTestFetcher(time.Second).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "<p>compressed</p>", string(resp.Body))
}

func TestHTTPFetcher_BodyLimit(t *testing.T) {
	page := "<p>" + strings.Repeat("clause ", 30) + "FINAL CLAUSE</p>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Config{Timeout: time.Second, MaxBodyBytes: 64, UserAgents: FixedPicker(testAgent)}, nil)
	resp, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Nil(t, resp)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindNetwork, fe.Kind)
	assert.Contains(t, fe.Message, "response body exceeds 64 bytes")

	f = NewHTTPFetcher(Config{Timeout: time.Second, MaxBodyBytes: int64(len(page)), UserAgents: FixedPicker(testAgent)}, nil)
	resp, err = f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, page, string(resp.Body))
}

func TestHTTPFetcher_DecodedBodyLimit(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(strings.Repeat("a", 1000)))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.Less(t, buf.Len(), 200)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Config{Timeout: time.Second, MaxBodyBytes: 200, UserAgents: FixedPicker(testAgent)}, nil)
	_, err = f.Fetch(context.Background(), srv.URL)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Message, "response body exceeds 200 bytes")
}
