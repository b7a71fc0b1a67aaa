// Package storage contains the uniform backend contract for document bytes
// plus key generation utilities. Implementations rely on streaming I/O and
// carry no retry policy; transient failures surface to the caller.
package storage

import (
	"context"
	"io"
	"time"
)

// SaveOptions define optional parameters for storing objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
// ContentType and Metadata are optional.
type SaveOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Backend is the uniform storage contract every backend must satisfy.
// Backend choice is a one-time factory decision at wiring time, not per call.
type Backend interface {
	// Name identifies the backend implementation for logging.
	Name() string
	// Save stores an object under the given key and returns the final key.
	Save(ctx context.Context, key string, r io.Reader, opt SaveOptions) (string, error)
	// Read retrieves an object's content as a streaming reader alongside its info.
	Read(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error
	// Exists reports whether an object is present under the key.
	Exists(ctx context.Context, key string) (bool, error)
	// List returns up to maxKeys object keys under the given prefix.
	List(ctx context.Context, prefix string, maxKeys int) ([]string, error)
	// Copy duplicates an object from srcKey to dstKey and returns the destination key.
	Copy(ctx context.Context, srcKey, dstKey string) (string, error)
	// PresignGet returns a time-limited URL that can be used to download the object without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
