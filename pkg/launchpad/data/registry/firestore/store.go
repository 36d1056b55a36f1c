package firestore

import (
	"context"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/code-payments/code-launchpad/pkg/launchpad/common"
	"github.com/code-payments/code-launchpad/pkg/launchpad/data/registry"
	"github.com/code-payments/code-launchpad/pkg/retry"
	"github.com/code-payments/code-launchpad/pkg/retry/backoff"
)

const (
	assetCollection   = "assets"
	creatorCollection = "creators"
	counterCollection = "counters"

	maxAttempts = 3
)

type assetDoc struct {
	Id            int64     `firestore:"id"`
	Mint          string    `firestore:"mint"`
	Creator       string    `firestore:"creator"`
	Name          string    `firestore:"name"`
	Symbol        string    `firestore:"symbol"`
	Decimals      int64     `firestore:"decimals"`
	Supply        string    `firestore:"supply"`
	ImageURI      string    `firestore:"image_uri"`
	MetadataURI   string    `firestore:"metadata_uri"`
	MetadataTier  string    `firestore:"metadata_tier"`
	TransactionID string    `firestore:"transaction_id"`
	CreatedAt     time.Time `firestore:"created_at"`
}

type creatorDoc struct {
	Sequence  int64     `firestore:"sequence"`
	Address   string    `firestore:"address"`
	CreatedAt time.Time `firestore:"created_at"`
}

type counterDoc struct {
	Value int64 `firestore:"value"`
}

type store struct {
	client *firestore.Client
}

// New returns a new firestore registry.Store. Assets are keyed by mint and
// creators by address.
func New(client *firestore.Client) registry.Store {
	return &store{
		client: client,
	}
}

// UpsertAsset implements registry.Store.UpsertAsset
func (s *store) UpsertAsset(ctx context.Context, asset *registry.Asset) error {
	if err := asset.Validate(); err != nil {
		return err
	}

	doc := toAssetDoc(asset)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	assetRef := s.client.Collection(assetCollection).Doc(asset.Mint)
	counterRef := s.client.Collection(counterCollection).Doc(assetCollection)

	err := withRetry(func() error {
		return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			existing, err := getAssetDoc(tx, assetRef)
			if err != nil && !errors.Is(err, registry.ErrAssetNotFound) {
				return err
			}

			if existing != nil {
				doc.Id = existing.Id
				doc.CreatedAt = existing.CreatedAt
				return tx.Set(assetRef, doc)
			}

			next, err := nextSequence(tx, counterRef)
			if err != nil {
				return err
			}
			doc.Id = next
			if err := tx.Set(counterRef, counterDoc{Value: next}); err != nil {
				return err
			}
			return tx.Create(assetRef, doc)
		})
	})
	if err != nil {
		return errors.Wrap(err, "error upserting asset")
	}

	res, err := fromAssetDoc(doc)
	if err != nil {
		return err
	}
	res.CopyTo(asset)
	return nil
}

// GetAsset implements registry.Store.GetAsset
func (s *store) GetAsset(ctx context.Context, mint string) (*registry.Asset, error) {
	var doc *assetDoc
	err := withRetry(func() error {
		snapshot, err := s.client.Collection(assetCollection).Doc(mint).Get(ctx)
		if status.Code(err) == codes.NotFound {
			return registry.ErrAssetNotFound
		} else if err != nil {
			return err
		}

		doc = &assetDoc{}
		return snapshot.DataTo(doc)
	})
	if err != nil {
		return nil, err
	}
	return fromAssetDoc(doc)
}

// ListAssets implements registry.Store.ListAssets
func (s *store) ListAssets(ctx context.Context) ([]*registry.Asset, error) {
	var res []*registry.Asset
	err := withRetry(func() error {
		res = nil

		iter := s.client.Collection(assetCollection).OrderBy("id", firestore.Asc).Documents(ctx)
		defer iter.Stop()

		for {
			snapshot, err := iter.Next()
			if err == iterator.Done {
				return nil
			} else if err != nil {
				return err
			}

			var doc assetDoc
			if err := snapshot.DataTo(&doc); err != nil {
				return err
			}

			asset, err := fromAssetDoc(&doc)
			if err != nil {
				return err
			}
			res = append(res, asset)
		}
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CountAssets implements registry.Store.CountAssets
func (s *store) CountAssets(ctx context.Context) (uint64, error) {
	var count uint64
	err := withRetry(func() error {
		snapshot, err := s.client.Collection(counterCollection).Doc(assetCollection).Get(ctx)
		if status.Code(err) == codes.NotFound {
			count = 0
			return nil
		} else if err != nil {
			return err
		}

		var doc counterDoc
		if err := snapshot.DataTo(&doc); err != nil {
			return err
		}
		count = uint64(doc.Value)
		return nil
	})
	return count, err
}

// AppendCreator implements registry.Store.AppendCreator
func (s *store) AppendCreator(ctx context.Context, address string) error {
	if _, err := common.NewAccountFromPublicKeyString(address); err != nil {
		return registry.ErrInvalidCreator
	}

	creatorRef := s.client.Collection(creatorCollection).Doc(address)
	counterRef := s.client.Collection(counterCollection).Doc(creatorCollection)

	err := withRetry(func() error {
		return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			_, err := tx.Get(creatorRef)
			if err == nil {
				return nil
			} else if status.Code(err) != codes.NotFound {
				return err
			}

			next, err := nextSequence(tx, counterRef)
			if err != nil {
				return err
			}
			if err := tx.Set(counterRef, counterDoc{Value: next}); err != nil {
				return err
			}
			return tx.Create(creatorRef, creatorDoc{
				Sequence:  next,
				Address:   address,
				CreatedAt: time.Now(),
			})
		})
	})
	if err != nil {
		return errors.Wrap(err, "error appending creator")
	}
	return nil
}

// ListCreators implements registry.Store.ListCreators
func (s *store) ListCreators(ctx context.Context) ([]string, error) {
	var res []string
	err := withRetry(func() error {
		res = []string{}

		iter := s.client.Collection(creatorCollection).OrderBy("sequence", firestore.Asc).Documents(ctx)
		defer iter.Stop()

		for {
			snapshot, err := iter.Next()
			if err == iterator.Done {
				return nil
			} else if err != nil {
				return err
			}

			var doc creatorDoc
			if err := snapshot.DataTo(&doc); err != nil {
				return err
			}
			res = append(res, doc.Address)
		}
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func getAssetDoc(tx *firestore.Transaction, ref *firestore.DocumentRef) (*assetDoc, error) {
	snapshot, err := tx.Get(ref)
	if status.Code(err) == codes.NotFound {
		return nil, registry.ErrAssetNotFound
	} else if err != nil {
		return nil, err
	}

	var doc assetDoc
	if err := snapshot.DataTo(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func nextSequence(tx *firestore.Transaction, ref *firestore.DocumentRef) (int64, error) {
	snapshot, err := tx.Get(ref)
	if status.Code(err) == codes.NotFound {
		return 1, nil
	} else if err != nil {
		return 0, err
	}

	var doc counterDoc
	if err := snapshot.DataTo(&doc); err != nil {
		return 0, err
	}
	return doc.Value + 1, nil
}

func toAssetDoc(asset *registry.Asset) *assetDoc {
	return &assetDoc{
		Id:            int64(asset.Id),
		Mint:          asset.Mint,
		Creator:       asset.Creator,
		Name:          asset.Name,
		Symbol:        asset.Symbol,
		Decimals:      int64(asset.Decimals),
		Supply:        strconv.FormatUint(asset.Supply, 10),
		ImageURI:      asset.ImageURI,
		MetadataURI:   asset.MetadataURI,
		MetadataTier:  asset.MetadataTier,
		TransactionID: asset.TransactionID,
		CreatedAt:     asset.CreatedAt,
	}
}

func fromAssetDoc(doc *assetDoc) (*registry.Asset, error) {
	supply, err := strconv.ParseUint(doc.Supply, 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "invalid supply")
	}

	return &registry.Asset{
		Id:            uint64(doc.Id),
		Mint:          doc.Mint,
		Creator:       doc.Creator,
		Name:          doc.Name,
		Symbol:        doc.Symbol,
		Decimals:      uint8(doc.Decimals),
		Supply:        supply,
		ImageURI:      doc.ImageURI,
		MetadataURI:   doc.MetadataURI,
		MetadataTier:  doc.MetadataTier,
		TransactionID: doc.TransactionID,
		CreatedAt:     doc.CreatedAt,
	}, nil
}

func withRetry(fn func() error) error {
	_, err := retry.Retry(
		fn,
		retry.RetriableGRPCCodes(codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted),
		retry.Limit(maxAttempts),
		retry.Backoff(backoff.BinaryExponential(100*time.Millisecond), time.Second),
	)
	return err
}
