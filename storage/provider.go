// Package storage defines the object-store publisher contract the pipeline
// depends on, plus the OSS, local-disk, and in-memory providers.
package storage

import (
	"context"
	"time"
)

// Store is the durable blob-store contract. Put has overwrite semantics:
// re-publishing a key replaces its content, and "key already exists" is
// never an error. Implementations surface network/auth failures as errors.
type Store interface {
	// Put writes data under key with the given content type and returns the
	// stable public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Delete removes the object under key.
	Delete(ctx context.Context, key string) error

	// List returns up to maxKeys objects under prefix, for audit/cleanup
	// flows. maxKeys <= 0 means the provider default.
	List(ctx context.Context, prefix string, maxKeys int) ([]ObjectInfo, error)
}

// ObjectInfo describes one stored object in a listing.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}
