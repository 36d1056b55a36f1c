package registry

import (
	"context"
	"errors"
)

var (
	ErrAssetNotFound  = errors.New("asset not found")
	ErrInvalidCreator = errors.New("invalid creator address")
)

type Store interface {
	// UpsertAsset creates or replaces the asset with the same mint. The
	// original creation time is preserved on replace.
	UpsertAsset(ctx context.Context, asset *Asset) error

	// GetAsset gets an asset by mint. ErrAssetNotFound is returned if no
	// record exists.
	GetAsset(ctx context.Context, mint string) (*Asset, error)

	// ListAssets returns every asset in creation order.
	ListAssets(ctx context.Context) ([]*Asset, error)

	// CountAssets returns the number of registered assets.
	CountAssets(ctx context.Context) (uint64, error)

	// AppendCreator adds an address to the creator set. Adding an address
	// that's already present is a no-op.
	AppendCreator(ctx context.Context, address string) error

	// ListCreators returns the creator set in first-seen order.
	ListCreators(ctx context.Context) ([]string, error)
}
