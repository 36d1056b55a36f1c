package metadata

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrStoreUnavailable = errors.New("object store unavailable")
	ErrObjectNotFound   = errors.New("object not found")
)

// ObjectStore is a place metadata documents and images can be hosted.
type ObjectStore interface {
	// Probe returns an error when the store isn't reachable.
	Probe(ctx context.Context) error

	// Put uploads data to path and returns the public URL it is served from.
	Put(ctx context.Context, path, contentType string, data []byte) (string, error)
}
