// Package cas stores archived text by content address. A NetworkStore keeps
// compressed objects in an S3-compatible bucket; a LocalStore only derives
// ids and is used when no bucket is reachable.
package cas

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"veritas/internal/config"
	"veritas/internal/logging"
	"veritas/internal/service/s3"
)

type Mode string

const (
	ModeNetwork  Mode = "network"
	ModeDegraded Mode = "degraded"
)

const (
	networkPrefix = "b3:"
	localPrefix   = "local:"
)

// PutResult describes stored content.
type PutResult struct {
	ContentID string `json:"content_id"`
	Size      int64  `json:"size"`
	Name      string `json:"name"`
}

// Store is a content-addressed blob store. Identical bytes always get the
// same ContentID from a given implementation.
type Store interface {
	Put(ctx context.Context, data []byte, name string) (*PutResult, error)
	Get(ctx context.Context, contentID string) ([]byte, error)
	Pin(ctx context.Context, contentID string) error
	Mode() Mode
}

// Sum returns the hex BLAKE3-256 digest of data.
func Sum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// splitID returns the digest part of a content id and whether it is a network id.
func splitID(contentID string) (digest string, network bool, err error) {
	switch {
	case strings.HasPrefix(contentID, networkPrefix):
		digest, network = strings.TrimPrefix(contentID, networkPrefix), true
	case strings.HasPrefix(contentID, localPrefix):
		digest = strings.TrimPrefix(contentID, localPrefix)
	default:
		return "", false, fmt.Errorf("malformed content id %q", contentID)
	}
	if len(digest) != 64 {
		return "", false, fmt.Errorf("malformed content id %q", contentID)
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", false, fmt.Errorf("malformed content id %q", contentID)
	}
	return digest, network, nil
}

// GatewayURL links a network content id to its object under base, the public
// address of the bucket. Degraded ids and an empty base have no public
// location and yield "".
func GatewayURL(base, contentID string) string {
	digest, network, err := splitID(contentID)
	if err != nil || !network || base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + objectKey(digest)
}

// New picks the store implementation once. Any reason the bucket cannot be
// used yields a LocalStore and a warning.
func New(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) Store {
	logger = logging.OrNop(logger)

	if !cfg.Enabled {
		logger.Warn("content store disabled, using local content ids")
		return NewLocalStore()
	}

	client, err := s3.NewClient(ctx, s3.FromStoreConfig(cfg))
	if err != nil {
		logger.Warn("content store unavailable, using local content ids", zap.Error(err))
		return NewLocalStore()
	}

	store, err := NewNetworkStore(client, logger)
	if err != nil {
		logger.Warn("content store unavailable, using local content ids", zap.Error(err))
		return NewLocalStore()
	}

	logger.Info("content store connected",
		zap.String("bucket", client.Bucket()),
		zap.String("endpoint", cfg.Endpoint))
	return store
}
