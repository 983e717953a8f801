package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
)

// hashBufferSize is the read size for streaming hash computation. Memory
// use per hash is bounded by this buffer regardless of file size.
const hashBufferSize = 64 * 1024

// HashedFunc receives each computed hash as soon as it is available,
// along with a monotonically increasing completion fraction in [0,1].
// hash is empty for items that could not be read.
type HashedFunc func(identifier, hash string, fraction float64)

// FileHasher computes streaming SHA-256 digests over library items.
type FileHasher struct {
	library *Library
	logger  *slog.Logger

	// computed counts successful single-item hash computations, exposed
	// for tests asserting that cached fingerprints are not re-hashed.
	computed atomic.Int64
}

// NewFileHasher creates a hasher reading from the given library.
func NewFileHasher(library *Library, logger *slog.Logger) *FileHasher {
	return &FileHasher{
		library: library,
		logger:  logger,
	}
}

// ComputeHash computes the SHA-256 digest of one item as a hex string.
// The context is checked once per buffer read; on cancellation the call
// returns ctx.Err(), which callers classify as a deliberate early exit
// rather than a failure.
func (h *FileHasher) ComputeHash(ctx context.Context, identifier string) (string, error) {
	f, err := h.library.Open(identifier)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", identifier, err)
	}
	defer f.Close()

	digest := sha256.New()
	buf := make([]byte, hashBufferSize)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := f.Read(buf)
		if n > 0 {
			digest.Write(buf[:n])
		}

		if err == io.EOF {
			break
		}

		if err != nil {
			return "", fmt.Errorf("reading %s: %w", identifier, err)
		}
	}

	h.computed.Add(1)

	return hex.EncodeToString(digest.Sum(nil)), nil
}

// ComputeHashes hashes the given items sequentially. Items that fail to
// read (unreadable, vanished) are logged and omitted from the result map
// rather than aborting the batch. onHashed, if non-nil, is invoked after
// each item with its hash (empty on failure) and the completion fraction.
// Returns a non-nil error only when the context is cancelled.
func (h *FileHasher) ComputeHashes(ctx context.Context, items []LocalItem, onHashed HashedFunc) (map[string]string, error) {
	result := make(map[string]string, len(items))
	total := len(items)

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		hash, err := h.ComputeHash(ctx, item.Identifier)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return result, err
			}

			h.logger.Warn("hashing failed, item skipped",
				slog.String("identifier", item.Identifier),
				slog.String("error", err.Error()),
			)
		} else {
			result[item.Identifier] = hash
		}

		if onHashed != nil {
			onHashed(item.Identifier, result[item.Identifier], float64(i+1)/float64(total))
		}
	}

	return result, nil
}

// HashCount returns the number of single-item hashes computed so far.
func (h *FileHasher) HashCount() int64 {
	return h.computed.Load()
}
