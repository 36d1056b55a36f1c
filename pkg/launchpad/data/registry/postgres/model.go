package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	pgutil "github.com/code-payments/code-launchpad/pkg/database/postgres"
	"github.com/code-payments/code-launchpad/pkg/launchpad/data/registry"
)

const (
	assetTableName   = "launchpad__core_asset"
	creatorTableName = "launchpad__core_creator"

	assetColumns = "id, mint, creator, name, symbol, decimals, supply, image_uri, metadata_uri, metadata_tier, transaction_id, created_at"
)

type assetModel struct {
	Id            sql.NullInt64 `db:"id"`
	Mint          string        `db:"mint"`
	Creator       string        `db:"creator"`
	Name          string        `db:"name"`
	Symbol        string        `db:"symbol"`
	Decimals      int           `db:"decimals"`
	Supply        string        `db:"supply"`
	ImageURI      string        `db:"image_uri"`
	MetadataURI   string        `db:"metadata_uri"`
	MetadataTier  string        `db:"metadata_tier"`
	TransactionID string        `db:"transaction_id"`
	CreatedAt     time.Time     `db:"created_at"`
}

type creatorModel struct {
	Id        sql.NullInt64 `db:"id"`
	Address   string        `db:"address"`
	CreatedAt time.Time     `db:"created_at"`
}

func toAssetModel(obj *registry.Asset) (*assetModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	createdAt := obj.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &assetModel{
		Mint:          obj.Mint,
		Creator:       obj.Creator,
		Name:          obj.Name,
		Symbol:        obj.Symbol,
		Decimals:      int(obj.Decimals),
		Supply:        strconv.FormatUint(obj.Supply, 10),
		ImageURI:      obj.ImageURI,
		MetadataURI:   obj.MetadataURI,
		MetadataTier:  obj.MetadataTier,
		TransactionID: obj.TransactionID,
		CreatedAt:     createdAt,
	}, nil
}

func fromAssetModel(obj *assetModel) (*registry.Asset, error) {
	supply, err := strconv.ParseUint(obj.Supply, 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "invalid supply")
	}

	return &registry.Asset{
		Id:            uint64(obj.Id.Int64),
		Mint:          obj.Mint,
		Creator:       obj.Creator,
		Name:          obj.Name,
		Symbol:        obj.Symbol,
		Decimals:      uint8(obj.Decimals),
		Supply:        supply,
		ImageURI:      obj.ImageURI,
		MetadataURI:   obj.MetadataURI,
		MetadataTier:  obj.MetadataTier,
		TransactionID: obj.TransactionID,
		CreatedAt:     obj.CreatedAt,
	}, nil
}

func (m *assetModel) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + assetTableName + `
			(mint, creator, name, symbol, decimals, supply, image_uri, metadata_uri, metadata_tier, transaction_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)

			ON CONFLICT (mint)
			DO UPDATE
				SET creator = $2, name = $3, symbol = $4, decimals = $5, supply = $6, image_uri = $7,
					metadata_uri = $8, metadata_tier = $9, transaction_id = $10
				WHERE ` + assetTableName + `.mint = $1

			RETURNING ` + assetColumns

		return tx.QueryRowxContext(
			ctx,
			query,
			m.Mint,
			m.Creator,
			m.Name,
			m.Symbol,
			m.Decimals,
			m.Supply,
			m.ImageURI,
			m.MetadataURI,
			m.MetadataTier,
			m.TransactionID,
			m.CreatedAt.UTC(),
		).StructScan(m)
	})
}

func (m *creatorModel) dbSave(ctx context.Context, db *sqlx.DB) error {
	query := `INSERT INTO ` + creatorTableName + `
		(address, created_at)
		VALUES ($1, $2)

		ON CONFLICT (address)
		DO NOTHING
	`

	m.CreatedAt = time.Now()

	_, err := db.ExecContext(ctx, query, m.Address, m.CreatedAt.UTC())
	return err
}

func dbGetAsset(ctx context.Context, db *sqlx.DB, mint string) (*assetModel, error) {
	res := &assetModel{}

	query := `SELECT ` + assetColumns + ` FROM ` + assetTableName + `
		WHERE mint = $1`

	err := db.GetContext(ctx, res, query, mint)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, registry.ErrAssetNotFound)
	}
	return res, nil
}

func dbListAssets(ctx context.Context, db *sqlx.DB) ([]*assetModel, error) {
	res := []*assetModel{}

	query := `SELECT ` + assetColumns + ` FROM ` + assetTableName + `
		ORDER BY id ASC`

	err := db.SelectContext(ctx, &res, query)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func dbCountAssets(ctx context.Context, db *sqlx.DB) (uint64, error) {
	var res uint64

	query := `SELECT COUNT(*) FROM ` + assetTableName

	err := db.GetContext(ctx, &res, query)
	if err != nil {
		return 0, err
	}
	return res, nil
}

func dbListCreators(ctx context.Context, db *sqlx.DB) ([]*creatorModel, error) {
	res := []*creatorModel{}

	query := `SELECT id, address, created_at FROM ` + creatorTableName + `
		ORDER BY id ASC`

	err := db.SelectContext(ctx, &res, query)
	if err != nil {
		return nil, err
	}
	return res, nil
}
