package cas

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"veritas/internal/logging"
	"veritas/internal/service/s3"
)

const (
	objectPrefix = "objects/"
	encodingZstd = "zstd"
)

// NetworkStore keeps zstd-compressed content in a bucket, keyed by digest.
type NetworkStore struct {
	storage s3.Storage
	logger  *zap.Logger
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewNetworkStore(storage s3.Storage, logger *zap.Logger) (*NetworkStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &NetworkStore{
		storage: storage,
		logger:  logging.OrNop(logger),
		encoder: encoder,
		decoder: decoder,
	}, nil
}

func objectKey(digest string) string {
	return objectPrefix + digest[:2] + "/" + digest
}

func (s *NetworkStore) Put(ctx context.Context, data []byte, name string) (*PutResult, error) {
	digest := Sum(data)
	result := &PutResult{
		ContentID: networkPrefix + digest,
		Size:      int64(len(data)),
		Name:      name,
	}
	key := objectKey(digest)

	exists, err := s.storage.ObjectExists(ctx, key)
	if err != nil {
		return nil, &StoreError{Kind: KindBackendUnavailable, Message: "content store unreachable", Err: err}
	}
	if exists {
		s.logger.Debug("content already stored", zap.String("content_id", result.ContentID))
		return result, nil
	}

	meta := map[string]string{
		"name":     name,
		s3.MetaEncoding: encodingZstd,
		"size":     strconv.Itoa(len(data)),
	}
	if err := s.storage.UploadBytes(ctx, key, s.encoder.EncodeAll(data, nil), meta); err != nil {
		return nil, &StoreError{Kind: KindWriteFailed, Message: "failed to write content", Err: err}
	}

	s.logger.Debug("content stored",
		zap.String("content_id", result.ContentID),
		zap.Int64("size", result.Size))
	return result, nil
}

// Get returns the original bytes and verifies them against contentID.
func (s *NetworkStore) Get(ctx context.Context, contentID string) ([]byte, error) {
	digest, network, err := splitID(contentID)
	if err != nil {
		return nil, &StoreError{Kind: KindNotFound, Message: "unknown content", Err: err}
	}
	if !network {
		// Recorded while the store was degraded; the bytes were never uploaded.
		return nil, &StoreError{Kind: KindNotFound, Message: "content was archived without a store", Err: fmt.Errorf("%s", contentID)}
	}

	obj, err := s.storage.GetObject(ctx, objectKey(digest))
	if err != nil {
		if errors.Is(err, s3.ErrObjectNotFound) {
			return nil, &StoreError{Kind: KindNotFound, Message: "content not found", Err: err}
		}
		return nil, &StoreError{Kind: KindBackendUnavailable, Message: "content store unreachable", Err: err}
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		return nil, &StoreError{Kind: KindBackendUnavailable, Message: "failed to read content", Err: err}
	}

	data := raw
	if obj.Metadata()[s3.MetaEncoding] == encodingZstd {
		data, err = s.decoder.DecodeAll(raw, nil)
		if err != nil {
			return nil, &StoreError{Kind: KindCorrupt, Message: "failed to decompress content", Err: err}
		}
	}

	if got := Sum(data); got != digest {
		return nil, &StoreError{
			Kind:    KindCorrupt,
			Message: "content does not match its id",
			Err:     fmt.Errorf("expected %s, got %s", digest, got),
		}
	}
	return data, nil
}

// Pin marks the object for retention.
func (s *NetworkStore) Pin(ctx context.Context, contentID string) error {
	digest, network, err := splitID(contentID)
	if err != nil || !network {
		return &StoreError{Kind: KindNotFound, Message: "unknown content", Err: fmt.Errorf("%s", contentID)}
	}
	if err := s.storage.TagObject(ctx, objectKey(digest), map[string]string{"pinned": "true"}); err != nil {
		return &StoreError{Kind: KindWriteFailed, Message: "failed to pin content", Err: err}
	}
	return nil
}

func (s *NetworkStore) Mode() Mode {
	return ModeNetwork
}
