package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"veritas/internal/domain"
	"veritas/internal/scraper"
	"veritas/internal/service/cas"
)

// fakeFetcher serves canned pages. A URL with several pages returns them in
// order and then keeps returning the last one.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string][]string
	errs    map[string]error
	panicOn string
	calls   map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: map[string][]string{},
		errs:  map[string]error{},
		calls: map[string]int{},
	}
}

func (f *fakeFetcher) page(url string, markup ...string) *fakeFetcher {
	f.pages[url] = append(f.pages[url], markup...)
	return f
}

func (f *fakeFetcher) fail(url string, err error) *fakeFetcher {
	f.errs[url] = err
	return f
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*scraper.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if url == f.panicOn {
		panic("boom")
	}
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	pages := f.pages[url]
	if len(pages) == 0 {
		return nil, &scraper.FetchError{Kind: scraper.KindNetwork, Message: "no such host"}
	}
	n := f.calls[url]
	f.calls[url] = n + 1
	if n >= len(pages) {
		n = len(pages) - 1
	}
	return &scraper.Response{StatusCode: 200, Body: []byte(pages[n]), FinalURL: url}, nil
}

type fakeStore struct {
	*cas.LocalStore
	putErr error
	pinErr error

	mu     sync.Mutex
	pinned []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{LocalStore: cas.NewLocalStore()}
}

func (s *fakeStore) Put(ctx context.Context, data []byte, name string) (*cas.PutResult, error) {
	if s.putErr != nil {
		return nil, s.putErr
	}
	return s.LocalStore.Put(ctx, data, name)
}

func (s *fakeStore) Pin(_ context.Context, contentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinned = append(s.pinned, contentID)
	return s.pinErr
}

type fakeCompanies map[int64]*domain.Company

func (f fakeCompanies) GetByID(_ context.Context, id int64) (*domain.Company, error) {
	c, ok := f[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return c, nil
}

type writerFunc func(ctx context.Context, snapshot *domain.Snapshot, checksum string) (*domain.ArchiveEntry, error)

func (f writerFunc) Record(ctx context.Context, snapshot *domain.Snapshot, checksum string) (*domain.ArchiveEntry, error) {
	return f(ctx, snapshot, checksum)
}

func statusErr(code int, reason string) error {
	return &scraper.FetchError{Kind: scraper.KindHTTPStatus, StatusCode: code, Message: fmt.Sprintf("HTTP %d: %s", code, reason)}
}
