package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/code-launchpad/pkg/launchpad/common"
	"github.com/code-payments/code-launchpad/pkg/launchpad/data/registry"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres registry.Store
func New(db *sql.DB) registry.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// UpsertAsset implements registry.Store.UpsertAsset
func (s *store) UpsertAsset(ctx context.Context, asset *registry.Asset) error {
	m, err := toAssetModel(asset)
	if err != nil {
		return err
	}

	if err := m.dbSave(ctx, s.db); err != nil {
		return err
	}

	res, err := fromAssetModel(m)
	if err != nil {
		return err
	}
	res.CopyTo(asset)

	return nil
}

// GetAsset implements registry.Store.GetAsset
func (s *store) GetAsset(ctx context.Context, mint string) (*registry.Asset, error) {
	m, err := dbGetAsset(ctx, s.db, mint)
	if err != nil {
		return nil, err
	}
	return fromAssetModel(m)
}

// ListAssets implements registry.Store.ListAssets
func (s *store) ListAssets(ctx context.Context) ([]*registry.Asset, error) {
	models, err := dbListAssets(ctx, s.db)
	if err != nil {
		return nil, err
	}

	res := make([]*registry.Asset, len(models))
	for i, m := range models {
		res[i], err = fromAssetModel(m)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// CountAssets implements registry.Store.CountAssets
func (s *store) CountAssets(ctx context.Context) (uint64, error) {
	return dbCountAssets(ctx, s.db)
}

// AppendCreator implements registry.Store.AppendCreator
func (s *store) AppendCreator(ctx context.Context, address string) error {
	if _, err := common.NewAccountFromPublicKeyString(address); err != nil {
		return registry.ErrInvalidCreator
	}

	m := &creatorModel{Address: address}
	return m.dbSave(ctx, s.db)
}

// ListCreators implements registry.Store.ListCreators
func (s *store) ListCreators(ctx context.Context) ([]string, error) {
	models, err := dbListCreators(ctx, s.db)
	if err != nil {
		return nil, err
	}

	res := make([]string, len(models))
	for i, m := range models {
		res[i] = m.Address
	}
	return res, nil
}
