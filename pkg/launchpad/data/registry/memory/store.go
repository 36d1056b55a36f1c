package memory

import (
	"context"
	"sync"
	"time"

	"github.com/code-payments/code-launchpad/pkg/launchpad/common"
	"github.com/code-payments/code-launchpad/pkg/launchpad/data/registry"
)

type store struct {
	mu       sync.Mutex
	assets   []*registry.Asset
	creators []string
	last     uint64
}

// New returns a new in memory registry.Store
func New() registry.Store {
	return &store{}
}

// UpsertAsset implements registry.Store.UpsertAsset
func (s *store) UpsertAsset(_ context.Context, asset *registry.Asset) error {
	if err := asset.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findByMint(asset.Mint); item != nil {
		asset.Id = item.Id
		asset.CreatedAt = item.CreatedAt
		asset.CopyTo(item)
		return nil
	}

	s.last++
	asset.Id = s.last
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now()
	}

	cloned := asset.Clone()
	s.assets = append(s.assets, &cloned)
	return nil
}

// GetAsset implements registry.Store.GetAsset
func (s *store) GetAsset(_ context.Context, mint string) (*registry.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findByMint(mint)
	if item == nil {
		return nil, registry.ErrAssetNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

// ListAssets implements registry.Store.ListAssets
func (s *store) ListAssets(_ context.Context) ([]*registry.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]*registry.Asset, len(s.assets))
	for i, item := range s.assets {
		cloned := item.Clone()
		res[i] = &cloned
	}
	return res, nil
}

// CountAssets implements registry.Store.CountAssets
func (s *store) CountAssets(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return uint64(len(s.assets)), nil
}

// AppendCreator implements registry.Store.AppendCreator
func (s *store) AppendCreator(_ context.Context, address string) error {
	if _, err := common.NewAccountFromPublicKeyString(address); err != nil {
		return registry.ErrInvalidCreator
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, creator := range s.creators {
		if creator == address {
			return nil
		}
	}
	s.creators = append(s.creators, address)
	return nil
}

// ListCreators implements registry.Store.ListCreators
func (s *store) ListCreators(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.creators...), nil
}

func (s *store) findByMint(mint string) *registry.Asset {
	for _, item := range s.assets {
		if item.Mint == mint {
			return item
		}
	}
	return nil
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assets = nil
	s.creators = nil
	s.last = 0
}
