// Package storage defines the key-addressed object store used for note images.
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for object storage operations.
type Provider interface {
	// Put stores the contents of r under key, replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader) (*ObjectInfo, error)
	// URL resolves key to a URL the browser can fetch.
	URL(ctx context.Context, key string) (string, error)
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Stat returns metadata for key.
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
}
