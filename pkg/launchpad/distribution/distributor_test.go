package distribution

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-launchpad/pkg/launchpad/common"
	"github.com/code-payments/code-launchpad/pkg/launchpad/confirm"
	"github.com/code-payments/code-launchpad/pkg/launchpad/data/registry"
	registry_memory "github.com/code-payments/code-launchpad/pkg/launchpad/data/registry/memory"
	"github.com/code-payments/code-launchpad/pkg/launchpad/event"
	event_memory "github.com/code-payments/code-launchpad/pkg/launchpad/event/memory"
	"github.com/code-payments/code-launchpad/pkg/launchpad/vault"
	"github.com/code-payments/code-launchpad/pkg/solana"
	"github.com/code-payments/code-launchpad/pkg/solana/solanatest"
	"github.com/code-payments/code-launchpad/pkg/solana/token"
	"github.com/code-payments/code-launchpad/pkg/testutil"
)

type testEnv struct {
	ctx         context.Context
	sc          *solanatest.Client
	store       registry.Store
	events      *event_memory.Publisher
	distributor *Distributor

	mint      *common.Account
	feePayer  *common.Account
	community *common.Account
	source    ed25519.PublicKey
}

func setup(t *testing.T) *testEnv {
	env := &testEnv{
		ctx:      context.Background(),
		sc:       solanatest.NewClient(),
		store:    registry_memory.New(),
		events:   event_memory.New(),
		mint:     testutil.NewRandomAccount(t),
		feePayer: testutil.NewRandomAccount(t),
	}
	env.sc.AutoFinalize = true

	deriver, err := vault.NewDeriver("distribution-test-seed")
	require.NoError(t, err)

	env.community, err = deriver.Derive(vault.PurposeCommunity, env.mint)
	require.NoError(t, err)

	env.source, err = token.GetAssociatedAccount(env.community.PublicKey().ToBytes(), env.mint.PublicKey().ToBytes())
	require.NoError(t, err)

	confirmConfig := confirm.DefaultConfig()
	confirmConfig.WaitTimeout = 0
	confirmConfig.InitialBackoff = time.Millisecond
	confirmConfig.WidenedBackoff = time.Millisecond
	engine := confirm.NewEngine(env.sc, nil, func() confirm.Config { return confirmConfig })

	env.distributor = NewDistributor(env.sc, env.feePayer, deriver, engine, env.store, env.events)
	return env
}

func (e *testEnv) addCreators(t *testing.T, n int) []string {
	addresses := testutil.NewRandomAddresses(t, n)
	for _, address := range addresses {
		require.NoError(t, e.store.AppendCreator(e.ctx, address))
	}
	return addresses
}

func TestRun_EvenSplitExcludingCreator(t *testing.T) {
	env := setup(t)
	creators := env.addCreators(t, 3)
	env.sc.SetTokenBalance(env.source, 100)

	// The second recipient already holds a token account.
	existing, err := token.GetAssociatedAccount(mustDecode(t, creators[2]), env.mint.PublicKey().ToBytes())
	require.NoError(t, err)
	env.sc.SetAccount(existing, solana.AccountInfo{Owner: token.ProgramKey})

	summary, err := env.distributor.Run(env.ctx, env.mint.PublicKey().ToBase58(), creators[0])
	require.NoError(t, err)
	assert.Equal(t, 2, summary.RecipientsPaid)
	assert.EqualValues(t, 100, summary.TotalAmount)
	assert.EqualValues(t, 100, summary.Pooled)
	assert.Equal(t, 1, summary.BatchesSubmitted)
	assert.Zero(t, summary.BatchesFailed)
	assert.Equal(t, "paid 2 recipients", summary.Reason())

	submitted := env.sc.Submitted()
	require.Len(t, submitted, 1)
	txn := submitted[0]
	require.Len(t, txn.Message.Instructions, 3)
	// The fee payer funds the transaction, and the vault signs only as the
	// owner of the source account.
	assert.EqualValues(t, env.feePayer.PublicKey().ToBytes(), txn.Message.Accounts[0])
	assert.EqualValues(t, 2, txn.Message.Header.NumSignatures)
	assert.True(t, txn.IsSignedBy(env.feePayer.PublicKey().ToBytes()))
	assert.True(t, txn.IsSignedBy(env.community.PublicKey().ToBytes()))
	assert.Equal(t, env.sc.Blockhash, txn.Message.RecentBlockhash)

	create, err := token.DecompileCreateAssociatedAccount(txn.Message, 0)
	require.NoError(t, err)
	assert.EqualValues(t, env.feePayer.PublicKey().ToBytes(), create.Subsidizer)
	assert.EqualValues(t, mustDecode(t, creators[1]), create.Owner)

	for i, index := range []int{1, 2} {
		transfer, err := token.DecompileTransfer(txn.Message, index)
		require.NoError(t, err)
		assert.EqualValues(t, env.source, transfer.Source)
		assert.EqualValues(t, env.community.PublicKey().ToBytes(), transfer.Owner)
		assert.EqualValues(t, 50, transfer.Amount)

		expected, err := token.GetAssociatedAccount(mustDecode(t, creators[1+i]), env.mint.PublicKey().ToBytes())
		require.NoError(t, err)
		assert.EqualValues(t, expected, transfer.Destination)
	}

	sig := txn.Signature()
	assert.Equal(t, []string{sig.String()}, summary.Signatures)

	messages := env.events.Messages()
	require.Len(t, messages, 1)
	distributed, ok := messages[0].(*event.FeesDistributed)
	require.True(t, ok)
	assert.Equal(t, env.mint.PublicKey().ToBase58(), distributed.Mint)
	assert.Equal(t, 2, distributed.RecipientsPaid)
}

func TestRun_Batches(t *testing.T) {
	env := setup(t)
	env.addCreators(t, 25)
	env.sc.SetTokenBalance(env.source, 1_000_003)

	summary, err := env.distributor.Run(env.ctx, env.mint.PublicKey().ToBase58(), "")
	require.NoError(t, err)
	assert.Equal(t, 25, summary.RecipientsPaid)
	assert.EqualValues(t, 1_000_003, summary.TotalAmount)
	assert.Equal(t, 3, summary.BatchesSubmitted)
	assert.Len(t, summary.Signatures, 3)

	submitted := env.sc.Submitted()
	require.Len(t, submitted, 3)

	var total uint64
	for i, txn := range submitted {
		expectedRecipients := 10
		if i == 2 {
			expectedRecipients = 5
		}
		// Every recipient needs a token account created first.
		require.Len(t, txn.Message.Instructions, 2*expectedRecipients)

		for j := 1; j < len(txn.Message.Instructions); j += 2 {
			transfer, err := token.DecompileTransfer(txn.Message, j)
			require.NoError(t, err)
			total += transfer.Amount
		}
	}
	assert.EqualValues(t, 1_000_003, total)
}

func TestRun_FailedBatchIsSkipped(t *testing.T) {
	env := setup(t)
	env.addCreators(t, 15)
	env.sc.SetTokenBalance(env.source, 150)

	var submissions int
	env.sc.OnSubmit = func(*solanatest.Client, solana.Transaction) error {
		submissions++
		if submissions == 1 {
			return solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee)
		}
		return nil
	}

	summary, err := env.distributor.Run(env.ctx, env.mint.PublicKey().ToBase58(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BatchesFailed)
	assert.Equal(t, 1, summary.BatchesSubmitted)
	assert.Equal(t, 5, summary.RecipientsPaid)
	assert.EqualValues(t, 50, summary.TotalAmount)
	assert.Equal(t, "paid 5 recipients, 1 of 2 batches failed", summary.Reason())

	require.Len(t, env.events.Messages(), 1)
}

func TestRun_LedgerFailureIsSkipped(t *testing.T) {
	env := setup(t)
	env.addCreators(t, 2)
	env.sc.SetTokenBalance(env.source, 10)
	env.sc.AutoFinalize = false
	env.sc.OnSubmit = func(c *solanatest.Client, txn solana.Transaction) error {
		c.SetSignatureStatus(txn.Signature(), &solana.SignatureStatus{
			ErrorResult: solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee),
		})
		return nil
	}

	summary, err := env.distributor.Run(env.ctx, env.mint.PublicKey().ToBase58(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BatchesFailed)
	assert.Zero(t, summary.RecipientsPaid)
	assert.Empty(t, env.events.Messages())
}

func TestRun_NothingToDistribute(t *testing.T) {
	env := setup(t)
	creators := env.addCreators(t, 1)

	// No token account for the vault
	summary, err := env.distributor.Run(env.ctx, env.mint.PublicKey().ToBase58(), "")
	require.NoError(t, err)
	assert.Zero(t, summary.RecipientsPaid)
	assert.Equal(t, "community vault has no token account", summary.Reason())

	// Empty vault
	env.sc.SetTokenBalance(env.source, 0)
	summary, err = env.distributor.Run(env.ctx, env.mint.PublicKey().ToBase58(), "")
	require.NoError(t, err)
	assert.Equal(t, "nothing to distribute", summary.Reason())

	// Only the excluded creator is registered
	env.sc.SetTokenBalance(env.source, 100)
	summary, err = env.distributor.Run(env.ctx, env.mint.PublicKey().ToBase58(), creators[0])
	require.NoError(t, err)
	assert.Equal(t, "nothing to distribute", summary.Reason())

	assert.Zero(t, env.sc.Calls("SubmitTransaction"))
	assert.Empty(t, env.events.Messages())
}

func TestRun_Errors(t *testing.T) {
	env := setup(t)
	env.addCreators(t, 2)

	_, err := env.distributor.Run(env.ctx, "not-a-mint", "")
	assert.True(t, errors.Is(err, ErrInvalidMint))

	env.sc.SetError("GetTokenAccountBalance", errors.New("unavailable"))
	_, err = env.distributor.Run(env.ctx, env.mint.PublicKey().ToBase58(), "")
	assert.Error(t, err)
	assert.Equal(t, maxRequestAttempts, env.sc.Calls("GetTokenAccountBalance"))
	assert.Zero(t, env.sc.Calls("SubmitTransaction"))
}

func TestRun_RequiresFeePayer(t *testing.T) {
	env := setup(t)
	env.addCreators(t, 2)
	env.sc.SetTokenBalance(env.source, 10)

	publicOnly, err := common.NewAccountFromPublicKey(env.feePayer.PublicKey())
	require.NoError(t, err)

	for _, feePayer := range []*common.Account{nil, publicOnly} {
		env.distributor.feePayer = feePayer

		_, err := env.distributor.Run(env.ctx, env.mint.PublicKey().ToBase58(), "")
		assert.Equal(t, ErrNoFeePayer, err)
	}
	assert.Zero(t, env.sc.Calls("SubmitTransaction"))
}

func TestRun_UnknownAccountUsesIdempotentCreate(t *testing.T) {
	env := setup(t)
	env.addCreators(t, 1)
	env.sc.SetTokenBalance(env.source, 10)
	env.sc.SetError("GetAccountInfo", errors.New("unavailable"))

	summary, err := env.distributor.Run(env.ctx, env.mint.PublicKey().ToBase58(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.RecipientsPaid)

	submitted := env.sc.Submitted()
	require.Len(t, submitted, 1)
	_, err = token.DecompileCreateAssociatedAccountIdempotent(submitted[0].Message, 0)
	assert.NoError(t, err)
}

func mustDecode(t *testing.T, address string) ed25519.PublicKey {
	account, err := common.NewAccountFromPublicKeyString(address)
	require.NoError(t, err)
	return account.PublicKey().ToBytes()
}

func TestRun_RemembersExistingTokenAccounts(t *testing.T) {
	env := setup(t)
	env.addCreators(t, 2)
	env.sc.SetTokenBalance(env.source, 10)

	_, err := env.distributor.Run(env.ctx, env.mint.PublicKey().ToBase58(), "")
	require.NoError(t, err)
	lookups := env.sc.Calls("GetAccountInfo")
	assert.Equal(t, 2, lookups)

	env.sc.SetTokenBalance(env.source, 10)

	summary, err := env.distributor.Run(env.ctx, env.mint.PublicKey().ToBase58(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.RecipientsPaid)

	submitted := env.sc.Submitted()
	require.Len(t, submitted, 2)

	// The accounts created by the first run are not looked up or created
	// again.
	assert.Len(t, submitted[1].Message.Instructions, 2)
	assert.Equal(t, lookups, env.sc.Calls("GetAccountInfo"))
}
