package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-launchpad/pkg/launchpad/data/registry"
	"github.com/code-payments/code-launchpad/pkg/testutil"
)

func RunTests(t *testing.T, s registry.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s registry.Store){
		testAssetRoundTrip,
		testAssetUpsert,
		testListAndCountAssets,
		testCreators,
		testInvalidRecords,
	} {
		tf(t, s)
		teardown()
	}
}

func testAssetRoundTrip(t *testing.T, s registry.Store) {
	t.Run("testAssetRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		expected := newAsset(t)

		_, err := s.GetAsset(ctx, expected.Mint)
		assert.Equal(t, registry.ErrAssetNotFound, err)

		start := time.Now()
		time.Sleep(time.Millisecond)

		cloned := expected.Clone()
		require.NoError(t, s.UpsertAsset(ctx, expected))
		assert.True(t, expected.Id > 0)
		assert.False(t, expected.CreatedAt.Before(start.Add(-time.Second)))

		actual, err := s.GetAsset(ctx, expected.Mint)
		require.NoError(t, err)
		assertEquivalentAssets(t, &cloned, actual)
		assert.Equal(t, expected.Id, actual.Id)
	})
}

func testAssetUpsert(t *testing.T, s registry.Store) {
	t.Run("testAssetUpsert", func(t *testing.T) {
		ctx := context.Background()

		asset := newAsset(t)
		require.NoError(t, s.UpsertAsset(ctx, asset))

		original, err := s.GetAsset(ctx, asset.Mint)
		require.NoError(t, err)

		updated := asset.Clone()
		updated.Id = 0
		updated.MetadataURI = "https://example.com/updated.json"
		updated.MetadataTier = "alternate"
		updated.CreatedAt = original.CreatedAt.Add(time.Hour)
		require.NoError(t, s.UpsertAsset(ctx, &updated))
		assert.Equal(t, original.Id, updated.Id)

		actual, err := s.GetAsset(ctx, asset.Mint)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/updated.json", actual.MetadataURI)
		assert.Equal(t, "alternate", actual.MetadataTier)
		assert.Equal(t, original.CreatedAt.Unix(), actual.CreatedAt.Unix())

		count, err := s.CountAssets(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})
}

func testListAndCountAssets(t *testing.T, s registry.Store) {
	t.Run("testListAndCountAssets", func(t *testing.T) {
		ctx := context.Background()

		count, err := s.CountAssets(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		assets, err := s.ListAssets(ctx)
		require.NoError(t, err)
		assert.Empty(t, assets)

		var expected []*registry.Asset
		for i := 0; i < 5; i++ {
			asset := newAsset(t)
			asset.Name = fmt.Sprintf("Token %d", i)
			asset.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
			require.NoError(t, s.UpsertAsset(ctx, asset))
			expected = append(expected, asset)
		}

		count, err = s.CountAssets(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 5, count)

		assets, err = s.ListAssets(ctx)
		require.NoError(t, err)
		require.Len(t, assets, 5)
		for i, actual := range assets {
			assertEquivalentAssets(t, expected[i], actual)
		}
	})
}

func testCreators(t *testing.T, s registry.Store) {
	t.Run("testCreators", func(t *testing.T) {
		ctx := context.Background()

		creators, err := s.ListCreators(ctx)
		require.NoError(t, err)
		assert.Empty(t, creators)

		addresses := testutil.NewRandomAddresses(t, 3)
		for _, address := range addresses {
			require.NoError(t, s.AppendCreator(ctx, address))
			time.Sleep(time.Millisecond)
		}

		// Duplicates are suppressed and don't change ordering
		require.NoError(t, s.AppendCreator(ctx, addresses[0]))
		require.NoError(t, s.AppendCreator(ctx, addresses[2]))

		creators, err = s.ListCreators(ctx)
		require.NoError(t, err)
		assert.Equal(t, addresses, creators)

		assert.Error(t, s.AppendCreator(ctx, "not-an-address"))
	})
}

func testInvalidRecords(t *testing.T, s registry.Store) {
	t.Run("testInvalidRecords", func(t *testing.T) {
		ctx := context.Background()

		for _, mutate := range []func(a *registry.Asset){
			func(a *registry.Asset) { a.Mint = "" },
			func(a *registry.Asset) { a.Creator = "invalid" },
			func(a *registry.Asset) { a.Name = "" },
			func(a *registry.Asset) { a.Symbol = "" },
			func(a *registry.Asset) { a.Supply = 0 },
			func(a *registry.Asset) { a.MetadataURI = "" },
			func(a *registry.Asset) { a.TransactionID = "" },
		} {
			asset := newAsset(t)
			mutate(asset)
			assert.Error(t, s.UpsertAsset(ctx, asset))
		}

		count, err := s.CountAssets(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)
	})
}

func newAsset(t *testing.T) *registry.Asset {
	addresses := testutil.NewRandomAddresses(t, 2)
	return &registry.Asset{
		Mint:          addresses[0],
		Creator:       addresses[1],
		Name:          "Launch Token",
		Symbol:        "LAUNCH",
		Decimals:      6,
		Supply:        1_000_000_000_000_000,
		ImageURI:      "https://example.com/image.png",
		MetadataURI:   "https://example.com/metadata.json",
		MetadataTier:  "primary",
		TransactionID: "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
		CreatedAt:     time.Now(),
	}
}

func assertEquivalentAssets(t *testing.T, obj1, obj2 *registry.Asset) {
	assert.Equal(t, obj1.Mint, obj2.Mint)
	assert.Equal(t, obj1.Creator, obj2.Creator)
	assert.Equal(t, obj1.Name, obj2.Name)
	assert.Equal(t, obj1.Symbol, obj2.Symbol)
	assert.Equal(t, obj1.Decimals, obj2.Decimals)
	assert.Equal(t, obj1.Supply, obj2.Supply)
	assert.Equal(t, obj1.ImageURI, obj2.ImageURI)
	assert.Equal(t, obj1.MetadataURI, obj2.MetadataURI)
	assert.Equal(t, obj1.MetadataTier, obj2.MetadataTier)
	assert.Equal(t, obj1.TransactionID, obj2.TransactionID)
	assert.Equal(t, obj1.CreatedAt.Unix(), obj2.CreatedAt.Unix())
}
