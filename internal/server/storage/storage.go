// Package storage persists uploaded bytes and signing artifacts. The local
// backend is the working store of the pipeline; the S3 archive keeps sealed
// artifacts of completed envelopes.
package storage

import (
	"context"
	"io"
	"time"
)

// Storage is the byte persistence capability consumed by the signing core:
// durable writes under a content path, retrieval, and time-based cleanup.
type Storage interface {
	// Persist durably stores the stream under a unique name derived from
	// name and returns a stable path reference.
	Persist(ctx context.Context, r io.Reader, name string) (string, error)

	// Open returns a reader for a previously persisted path.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// PurgeOlderThan deletes every stored file older than the retention
	// window, regardless of references, and reports how many were removed.
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
