package issuance

import (
	"context"
	"testing"
	"time"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-launchpad/pkg/launchpad/common"
	"github.com/code-payments/code-launchpad/pkg/launchpad/confirm"
	"github.com/code-payments/code-launchpad/pkg/launchpad/data/registry"
	registry_memory "github.com/code-payments/code-launchpad/pkg/launchpad/data/registry/memory"
	"github.com/code-payments/code-launchpad/pkg/launchpad/event"
	event_memory "github.com/code-payments/code-launchpad/pkg/launchpad/event/memory"
	"github.com/code-payments/code-launchpad/pkg/launchpad/metadata"
	metadata_memory "github.com/code-payments/code-launchpad/pkg/launchpad/metadata/storage/memory"
	"github.com/code-payments/code-launchpad/pkg/launchpad/vault"
	"github.com/code-payments/code-launchpad/pkg/solana"
	"github.com/code-payments/code-launchpad/pkg/solana/solanatest"
	"github.com/code-payments/code-launchpad/pkg/testutil"
)

type serviceTestEnv struct {
	ctx      context.Context
	sc       *solanatest.Client
	store    registry.Store
	events   *event_memory.Publisher
	objects  *metadata_memory.Store
	service  *Service
	creator  *common.Account
	signer   *KeypairSigner
	explorer solana.Cluster
}

func setupService(t *testing.T) *serviceTestEnv {
	env := &serviceTestEnv{
		ctx:      context.Background(),
		sc:       solanatest.NewClient(),
		store:    registry_memory.New(),
		events:   event_memory.New(),
		objects:  metadata_memory.New("https://objects.example.com"),
		creator:  testutil.NewRandomAccount(t),
		explorer: solana.ClusterDevnet,
	}
	env.sc.AutoFinalize = true

	deriver, err := vault.NewDeriver("service-test-seed")
	require.NoError(t, err)

	publisher, err := metadata.NewPublisher(
		"https://launchpad.example.com/tokens",
		metadata.DefaultStrategies(env.objects, nil, "https://launchpad.example.com/tokens")...,
	)
	require.NoError(t, err)

	confirmConfig := confirm.DefaultConfig()
	confirmConfig.WaitTimeout = 0
	confirmConfig.InitialBackoff = time.Millisecond
	confirmConfig.WidenedBackoff = time.Millisecond
	confirmConfig.Cluster = env.explorer
	engine := confirm.NewEngine(env.sc, nil, func() confirm.Config { return confirmConfig })

	env.service = NewService(env.sc, deriver, publisher, engine, registry.NewWriter(env.store), env.events)

	env.signer, err = NewKeypairSigner(env.creator)
	require.NoError(t, err)

	return env
}

func TestIssue_HappyPath(t *testing.T) {
	env := setupService(t)
	params := newTestParams()
	params.Website = "https://example.com"

	result, err := env.service.Issue(env.ctx, env.creator, params, env.signer)
	require.NoError(t, err)
	assert.True(t, result.Ok())
	assert.Equal(t, "asset issued", result.Reason())
	assert.Equal(t, StateConfirmed, result.State)
	assert.False(t, result.ProbablyConfirmed)
	assert.Equal(t, metadata.TierPrimary, result.MetadataTier)
	assert.Equal(t, ComputeSplit(1_000_000_000_000_000), result.Allocation)

	submitted := env.sc.Submitted()
	require.Len(t, submitted, 1)
	txn := submitted[0]
	require.NoError(t, VerifySignatures(&txn))
	sig := txn.Signature()
	assert.Equal(t, sig.String(), result.TransactionID)
	assert.Equal(t, result.Mint, base58.Encode(txn.RequiredSigners()[1]))

	asset, err := env.store.GetAsset(env.ctx, result.Mint)
	require.NoError(t, err)
	assert.Equal(t, env.creator.PublicKey().ToBase58(), asset.Creator)
	assert.Equal(t, params.Name, asset.Name)
	assert.EqualValues(t, 1_000_000_000_000_000, asset.Supply)
	assert.Equal(t, result.MetadataURI, asset.MetadataURI)
	assert.Equal(t, result.TransactionID, asset.TransactionID)

	creators, err := env.store.ListCreators(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{env.creator.PublicKey().ToBase58()}, creators)

	messages := env.events.Messages()
	require.Len(t, messages, 1)
	issued, ok := messages[0].(*event.AssetIssued)
	require.True(t, ok)
	assert.Equal(t, result.Mint, issued.Mint)
	assert.Equal(t, result.TransactionID, issued.TransactionID)
}

func TestIssue_InvalidInput(t *testing.T) {
	env := setupService(t)
	params := newTestParams()
	params.TotalSupply = 0

	result, err := env.service.Issue(env.ctx, env.creator, params, env.signer)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, ResultInvalidInput, result.Code)
	assert.NotEmpty(t, result.Reason())
	assert.Zero(t, env.objects.Puts())
	assert.Empty(t, env.sc.Submitted())

	_, err = env.service.Issue(env.ctx, env.creator, newTestParams(), nil)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestIssue_MissingCreatorSignature(t *testing.T) {
	env := setupService(t)

	noop := WalletSignerFunc(func(context.Context, *solana.Transaction) error { return nil })

	result, err := env.service.Issue(env.ctx, env.creator, newTestParams(), noop)
	require.Error(t, err)
	assert.Equal(t, ResultMissingSignatures, result.Code)
	assert.Equal(t, StateFailed, result.State)

	var missingErr *MissingSignaturesError
	require.True(t, errors.As(err, &missingErr))
	assert.Equal(t, []string{env.creator.PublicKey().ToBase58()}, missingErr.Missing)
	assert.Contains(t, result.Reason(), env.creator.PublicKey().ToBase58())

	assert.Empty(t, env.sc.Submitted())
	assert.Zero(t, env.sc.Calls("SubmitTransaction"))
}

func TestIssue_WalletRejects(t *testing.T) {
	env := setupService(t)

	rejecting := WalletSignerFunc(func(context.Context, *solana.Transaction) error {
		return errors.New("user rejected the request")
	})

	result, err := env.service.Issue(env.ctx, env.creator, newTestParams(), rejecting)
	require.Error(t, err)
	assert.Equal(t, ResultSigningFailed, result.Code)
	assert.Zero(t, env.sc.Calls("SubmitTransaction"))
}

func TestIssue_TransactionRejected(t *testing.T) {
	env := setupService(t)
	env.sc.OnSubmit = func(*solanatest.Client, solana.Transaction) error {
		return solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee)
	}

	result, err := env.service.Issue(env.ctx, env.creator, newTestParams(), env.signer)
	require.Error(t, err)
	assert.Equal(t, ResultTransactionFailed, result.Code)
	assert.Equal(t, StateFailed, result.State)
	assert.Zero(t, env.sc.Calls("GetSignatureStatuses"))

	count, err := env.store.CountAssets(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, env.events.Messages())
}

func TestIssue_LedgerFailure(t *testing.T) {
	env := setupService(t)
	env.sc.AutoFinalize = false
	env.sc.OnSubmit = func(c *solanatest.Client, txn solana.Transaction) error {
		c.SetSignatureStatus(txn.Signature(), &solana.SignatureStatus{
			ErrorResult: solana.NewInstructionTransactionError(8, solana.CustomError(1)),
		})
		return nil
	}

	result, err := env.service.Issue(env.ctx, env.creator, newTestParams(), env.signer)
	require.Error(t, err)
	assert.Equal(t, ResultTransactionFailed, result.Code)
	assert.Equal(t, StateFailed, result.State)

	var txErr *solana.TransactionError
	assert.True(t, errors.As(err, &txErr))
}

func TestIssue_TimeoutWithReconciliation(t *testing.T) {
	env := setupService(t)
	env.sc.AutoFinalize = false
	env.sc.OnSubmit = func(c *solanatest.Client, txn solana.Transaction) error {
		// The ledger applied it, but status lookups never report it.
		c.SetAccount(txn.RequiredSigners()[1], solana.AccountInfo{Lamports: 1461600})
		return nil
	}

	result, err := env.service.Issue(env.ctx, env.creator, newTestParams(), env.signer)
	require.NoError(t, err)
	assert.True(t, result.Ok())
	assert.True(t, result.ProbablyConfirmed)
	assert.Equal(t, StateConfirmed, result.State)
	assert.Contains(t, result.Reason(), result.Mint)
	assert.Equal(t, confirm.IssuanceMaxAttempts, env.sc.Calls("GetSignatureStatuses"))

	_, err = env.store.GetAsset(env.ctx, result.Mint)
	assert.NoError(t, err)

	messages := env.events.Messages()
	require.Len(t, messages, 1)
	assert.True(t, messages[0].(*event.AssetIssued).ProbablyConfirmed)
}

func TestIssue_TimedOut(t *testing.T) {
	env := setupService(t)
	env.sc.AutoFinalize = false

	result, err := env.service.Issue(env.ctx, env.creator, newTestParams(), env.signer)
	require.Error(t, err)
	assert.True(t, confirm.IsTimeout(err))
	assert.Equal(t, ResultTimedOut, result.Code)
	assert.Equal(t, StateUnknown, result.State)
	assert.Equal(t, solana.ExplorerURL(env.sc.Submitted()[0].Signature(), env.explorer), result.ExplorerURL)
	assert.Contains(t, result.Reason(), result.ExplorerURL)

	count, err := env.store.CountAssets(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIssue_AmbiguousSubmitStillConfirms(t *testing.T) {
	env := setupService(t)
	env.sc.OnSubmit = func(c *solanatest.Client, txn solana.Transaction) error {
		c.SetSignatureStatus(txn.Signature(), &solana.SignatureStatus{ConfirmationStatus: "finalized"})
		return errors.New("connection reset by peer")
	}

	result, err := env.service.Issue(env.ctx, env.creator, newTestParams(), env.signer)
	require.NoError(t, err)
	assert.True(t, result.Ok())
	assert.Equal(t, StateConfirmed, result.State)
}

func TestIssue_RegistryAndEventsAreBestEffort(t *testing.T) {
	env := setupService(t)
	env.events.SetError(errors.New("broker down"))

	result, err := env.service.Issue(env.ctx, env.creator, newTestParams(), env.signer)
	require.NoError(t, err)
	assert.True(t, result.Ok())
	assert.Empty(t, env.events.Messages())
}

func TestIssue_MetadataFallsBackToInline(t *testing.T) {
	env := setupService(t)
	env.objects.SetProbeError(errors.New("unreachable"))

	result, err := env.service.Issue(env.ctx, env.creator, newTestParams(), env.signer)
	require.NoError(t, err)
	assert.Equal(t, metadata.TierInline, result.MetadataTier)
	assert.LessOrEqual(t, len(result.MetadataURI), metadata.MaxURILength)
}
