package issuance

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-launchpad/pkg/launchpad/common"
	"github.com/code-payments/code-launchpad/pkg/launchpad/vault"
	"github.com/code-payments/code-launchpad/pkg/metrics"
	"github.com/code-payments/code-launchpad/pkg/retry"
	"github.com/code-payments/code-launchpad/pkg/retry/backoff"
	"github.com/code-payments/code-launchpad/pkg/solana"
	solana_metadata "github.com/code-payments/code-launchpad/pkg/solana/metadata"
	"github.com/code-payments/code-launchpad/pkg/solana/system"
	"github.com/code-payments/code-launchpad/pkg/solana/token"
)

const (
	// InstructionCount is the number of instructions in an issuance
	// transaction.
	InstructionCount = 10

	defaultRequestTimeout = 10 * time.Second
	maxRequestAttempts    = 3
)

// Built is an issuance transaction signed by the mint and awaiting the
// creator's signature.
type Built struct {
	Transaction solana.Transaction

	Creator    *common.Account
	Mint       *common.Account
	Vaults     *vault.Vaults
	Allocation Allocation
	RawSupply  uint64
	URI        string

	State State

	// ProbablyConfirmed is set when the confirmed state was inferred from
	// the mint account existing rather than a ledger status.
	ProbablyConfirmed bool
}

// Builder assembles issuance transactions.
type Builder struct {
	log     *logrus.Entry
	sc      solana.Client
	deriver *vault.Deriver
	policy  SplitPolicy

	requestTimeout time.Duration
}

func NewBuilder(sc solana.Client, deriver *vault.Deriver) *Builder {
	return &Builder{
		log:            logrus.StandardLogger().WithField("type", "issuance/builder"),
		sc:             sc,
		deriver:        deriver,
		policy:         RemainderToCreator,
		requestTimeout: defaultRequestTimeout,
	}
}

// Build generates a fresh mint and builds its issuance transaction.
func (b *Builder) Build(ctx context.Context, creator *common.Account, params *Params, uri string) (*Built, error) {
	mint, err := common.NewRandomAccount()
	if err != nil {
		return nil, errors.Wrap(err, "error generating mint keypair")
	}

	vaults, err := b.deriver.DeriveAll(mint)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving vaults")
	}

	return b.BuildForMint(ctx, creator, mint, vaults, params, uri)
}

// BuildForMint builds the issuance transaction for a mint keypair whose
// vaults are already derived. The creator pays for and authorizes
// everything, and the mint authority is revoked in the final instruction.
func (b *Builder) BuildForMint(
	ctx context.Context,
	creator *common.Account,
	mint *common.Account,
	vaults *vault.Vaults,
	params *Params,
	uri string,
) (*Built, error) {
	tracer := metrics.TraceMethodCall(ctx, "issuance.builder", "BuildForMint")
	defer tracer.End()

	built, err := func() (*Built, error) {
		if err := params.Validate(); err != nil {
			return nil, err
		}
		if err := creator.Validate(); err != nil {
			return nil, errors.Wrap(ErrInvalidInput, err.Error())
		}
		if mint.PrivateKey() == nil {
			return nil, errors.New("mint private key is required")
		}
		if vaults == nil {
			return nil, errors.New("vaults are required")
		}
		if len(uri) > solana_metadata.MaxURILength {
			return nil, errors.Wrap(ErrInvalidInput, "metadata uri too long")
		}

		rawSupply, err := params.RawSupply()
		if err != nil {
			return nil, err
		}
		allocation := b.policy.Compute(rawSupply)

		rent, err := b.getRentExemption(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "error getting mint rent exemption")
		}

		blockhash, err := b.getBlockhash(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "error getting recent blockhash")
		}

		instructions, err := makeInstructions(creator, mint, vaults, params, allocation, rent, uri)
		if err != nil {
			return nil, err
		}

		txn := solana.NewTransaction(creator.PublicKey().ToBytes(), instructions...)
		txn.SetBlockhash(blockhash)

		if err := mint.SignTransaction(&txn); err != nil {
			return nil, errors.Wrap(err, "error signing with mint")
		}

		built := &Built{
			Transaction: txn,
			Creator:     creator,
			Mint:        mint,
			Vaults:      vaults,
			Allocation:  allocation,
			RawSupply:   rawSupply,
			URI:         uri,
		}
		if err := built.Transition(StateBuilt); err != nil {
			return nil, err
		}
		return built, nil
	}()
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	b.log.WithFields(logrus.Fields{
		"method":  "BuildForMint",
		"mint":    mint.PublicKey().ToBase58(),
		"creator": creator.PublicKey().ToBase58(),
	}).Debug("built issuance transaction")

	return built, nil
}

func makeInstructions(
	creator, mint *common.Account,
	vaults *vault.Vaults,
	params *Params,
	allocation Allocation,
	rent uint64,
	uri string,
) ([]solana.Instruction, error) {
	creatorKey := creator.PublicKey().ToBytes()
	mintKey := mint.PublicKey().ToBytes()

	instructions := []solana.Instruction{
		system.CreateAccount(creatorKey, mintKey, token.ProgramKey, rent, token.MintSize),
		token.InitializeMint(mintKey, creatorKey, nil, params.Decimals),
	}

	recipients := []struct {
		owner  *common.Account
		amount uint64
	}{
		{creator, allocation.Creator},
		{vaults.Liquidity, allocation.Liquidity},
		{vaults.Community, allocation.Community},
	}

	destinations := make([][]byte, len(recipients))
	for i, recipient := range recipients {
		instruction, ata, err := token.CreateAssociatedTokenAccount(creatorKey, recipient.owner.PublicKey().ToBytes(), mintKey)
		if err != nil {
			return nil, errors.Wrap(err, "error making associated token account instruction")
		}
		instructions = append(instructions, instruction)
		destinations[i] = ata
	}

	for i, recipient := range recipients {
		instructions = append(instructions, token.MintTo(mintKey, destinations[i], creatorKey, recipient.amount))
	}

	metadataAccount, err := mint.ToMetadataAccount()
	if err != nil {
		return nil, err
	}

	createMetadata, err := solana_metadata.NewCreateMetadataAccountV3Instruction(
		&solana_metadata.CreateMetadataAccountV3InstructionAccounts{
			Metadata:        metadataAccount.PublicKey().ToBytes(),
			Mint:            mintKey,
			MintAuthority:   creatorKey,
			Payer:           creatorKey,
			UpdateAuthority: creatorKey,
		},
		&solana_metadata.CreateMetadataAccountV3InstructionArgs{
			Data: solana_metadata.DataV2{
				Name:   params.OnLedgerName(),
				Symbol: params.OnLedgerSymbol(),
				URI:    uri,
			},
			IsMutable: true,
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "error making create metadata instruction")
	}
	instructions = append(instructions, createMetadata)

	instructions = append(instructions, token.SetAuthority(mintKey, creatorKey, nil, token.AuthorityTypeMintTokens))

	return instructions, nil
}

func (b *Builder) getRentExemption(ctx context.Context) (uint64, error) {
	var rent uint64
	_, err := retry.Retry(
		func() error {
			reqCtx, cancel := context.WithTimeout(ctx, b.requestTimeout)
			defer cancel()

			var err error
			rent, err = b.sc.GetMinimumBalanceForRentExemption(reqCtx, token.MintSize)
			return err
		},
		retry.Context(ctx),
		retry.Limit(maxRequestAttempts),
		retry.Backoff(backoff.Constant(250*time.Millisecond), time.Second),
	)
	return rent, err
}

func (b *Builder) getBlockhash(ctx context.Context) (solana.Blockhash, error) {
	var blockhash solana.Blockhash
	_, err := retry.Retry(
		func() error {
			reqCtx, cancel := context.WithTimeout(ctx, b.requestTimeout)
			defer cancel()

			var err error
			blockhash, err = b.sc.GetLatestBlockhash(reqCtx)
			return err
		},
		retry.Context(ctx),
		retry.Limit(maxRequestAttempts),
		retry.Backoff(backoff.Constant(250*time.Millisecond), time.Second),
	)
	return blockhash, err
}
