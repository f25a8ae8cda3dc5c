package cas

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"veritas/internal/config"
	"veritas/internal/service/s3"
)

type memObject struct {
	io.Reader
	size int64
	meta map[string]string
}

func (o *memObject) Close() error                { return nil }
func (o *memObject) ContentLength() int64        { return o.size }
func (o *memObject) ContentType() string         { return "application/octet-stream" }
func (o *memObject) Metadata() map[string]string { return o.meta }

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]map[string]string
	tags    map[string]map[string]string
	uploads int
	failAll error
}

func newMemStorage() *memStorage {
	return &memStorage{
		objects: map[string][]byte{},
		meta:    map[string]map[string]string{},
		tags:    map[string]map[string]string{},
	}
}

func (m *memStorage) UploadBytes(_ context.Context, key string, data []byte, meta map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	m.uploads++
	m.objects[key] = append([]byte(nil), data...)
	m.meta[key] = meta
	return nil
}

func (m *memStorage) GetObject(_ context.Context, key string) (s3.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, s3.ErrObjectNotFound
	}
	return &memObject{Reader: bytes.NewReader(data), size: int64(len(data)), meta: m.meta[key]}, nil
}

func (m *memStorage) ObjectExists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return false, m.failAll
	}
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStorage) TagObject(_ context.Context, key string, tags map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	if _, ok := m.objects[key]; !ok {
		return s3.ErrObjectNotFound
	}
	m.tags[key] = tags
	return nil
}

func newTestNetworkStore(t *testing.T) (*NetworkStore, *memStorage) {
	t.Helper()
	mem := newMemStorage()
	store, err := NewNetworkStore(mem, zaptest.NewLogger(t))
	require.NoError(t, err)
	return store, mem
}

func TestSum_KnownVector(t *testing.T) {
	// BLAKE3 of the empty input.
	assert.Equal(t, "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262", Sum(nil))
	assert.Equal(t, Sum([]byte("abc")), Sum([]byte("abc")))
	assert.NotEqual(t, Sum([]byte("abc")), Sum([]byte("abd")))
}

func TestNetworkStore_PutGet(t *testing.T) {
	store, mem := newTestNetworkStore(t)
	ctx := context.Background()
	data := bytes.Repeat([]byte("terms of service "), 100)

	res, err := store.Put(ctx, data, "acme_terms_1.txt")
	require.NoError(t, err)

	assert.Equal(t, "b3:"+Sum(data), res.ContentID)
	assert.Equal(t, int64(len(data)), res.Size)
	assert.Equal(t, "acme_terms_1.txt", res.Name)

	key := objectKey(Sum(data))
	require.Contains(t, mem.objects, key)
	assert.Less(t, len(mem.objects[key]), len(data))
	assert.Equal(t, "zstd", mem.meta[key]["encoding"])
	assert.Equal(t, "acme_terms_1.txt", mem.meta[key]["name"])

	got, err := store.Get(ctx, res.ContentID)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestNetworkStore_PutIsIdempotent(t *testing.T) {
	store, mem := newTestNetworkStore(t)
	ctx := context.Background()

	first, err := store.Put(ctx, []byte("same"), "a.txt")
	require.NoError(t, err)
	second, err := store.Put(ctx, []byte("same"), "b.txt")
	require.NoError(t, err)

	assert.Equal(t, first.ContentID, second.ContentID)
	assert.Equal(t, 1, mem.uploads)
}

func TestNetworkStore_GetRejectsTampered(t *testing.T) {
	store, mem := newTestNetworkStore(t)
	ctx := context.Background()

	res, err := store.Put(ctx, []byte("original"), "x.txt")
	require.NoError(t, err)

	key := objectKey(Sum([]byte("original")))
	mem.objects[key] = store.encoder.EncodeAll([]byte("forged"), nil)

	_, err = store.Get(ctx, res.ContentID)
	var se *StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, KindCorrupt, se.Kind)
}

func TestNetworkStore_GetMissing(t *testing.T) {
	store, _ := newTestNetworkStore(t)

	_, err := store.Get(context.Background(), "b3:"+Sum([]byte("never stored")))

	assert.ErrorIs(t, err, &StoreError{Kind: KindNotFound})
}

func TestNetworkStore_GetLocalID(t *testing.T) {
	store, _ := newTestNetworkStore(t)

	_, err := store.Get(context.Background(), "local:"+Sum([]byte("x")))

	assert.ErrorIs(t, err, &StoreError{Kind: KindNotFound})
}

func TestNetworkStore_Pin(t *testing.T) {
	store, mem := newTestNetworkStore(t)
	ctx := context.Background()

	res, err := store.Put(ctx, []byte("pin me"), "p.txt")
	require.NoError(t, err)
	require.NoError(t, store.Pin(ctx, res.ContentID))

	assert.Equal(t, "true", mem.tags[objectKey(Sum([]byte("pin me")))]["pinned"])
}

func TestNetworkStore_BackendErrors(t *testing.T) {
	store, mem := newTestNetworkStore(t)
	mem.failAll = errors.New("connection refused")
	ctx := context.Background()

	_, err := store.Put(ctx, []byte("x"), "x.txt")
	assert.ErrorIs(t, err, &StoreError{Kind: KindBackendUnavailable})
	assert.Contains(t, err.Error(), "connection refused")

	err = store.Pin(ctx, "b3:"+Sum([]byte("x")))
	assert.ErrorIs(t, err, &StoreError{Kind: KindWriteFailed})
}

func TestLocalStore(t *testing.T) {
	store := NewLocalStore()
	ctx := context.Background()

	a, err := store.Put(ctx, []byte("text"), "a.txt")
	require.NoError(t, err)
	b, err := store.Put(ctx, []byte("text"), "b.txt")
	require.NoError(t, err)

	assert.Equal(t, "local:"+Sum([]byte("text")), a.ContentID)
	assert.Equal(t, a.ContentID, b.ContentID)
	assert.Equal(t, ModeDegraded, store.Mode())
	assert.NoError(t, store.Pin(ctx, a.ContentID))

	_, err = store.Get(ctx, a.ContentID)
	require.Error(t, err)
	assert.Equal(t, "content store backend not available", err.Error())
	assert.ErrorIs(t, err, &StoreError{Kind: KindBackendUnavailable})
}

func TestNew_FallsBackToLocal(t *testing.T) {
	ctx := context.Background()

	store := New(ctx, config.StoreConfig{Enabled: false}, zaptest.NewLogger(t))
	assert.Equal(t, ModeDegraded, store.Mode())

	store = New(ctx, config.StoreConfig{Enabled: true, Bucket: "b"}, zaptest.NewLogger(t))
	assert.Equal(t, ModeDegraded, store.Mode())
}

func TestGatewayURL(t *testing.T) {
	digest := Sum([]byte("doc"))
	key := "objects/" + digest[:2] + "/" + digest

	assert.Equal(t, "https://archive.s3.example/"+key, GatewayURL("https://archive.s3.example/", "b3:"+digest))
	assert.Equal(t, "https://cdn.example/veritas/"+key, GatewayURL("https://cdn.example/veritas", "b3:"+digest))
	assert.Empty(t, GatewayURL("https://cdn.example", "local:"+digest))
	assert.Empty(t, GatewayURL("https://cdn.example", "garbage"))
	assert.Empty(t, GatewayURL("", "b3:"+digest))
}

func TestGatewayURL_PointsAtStoredObject(t *testing.T) {
	ctx := context.Background()
	store, storage := newTestNetworkStore(t)

	res, err := store.Put(ctx, []byte("doc"), "terms.txt")
	require.NoError(t, err)

	link := GatewayURL("https://archive.s3.example", res.ContentID)
	key := strings.TrimPrefix(link, "https://archive.s3.example/")
	exists, err := storage.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)
}
