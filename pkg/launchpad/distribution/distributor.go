package distribution

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-launchpad/pkg/cache"
	"github.com/code-payments/code-launchpad/pkg/launchpad/common"
	"github.com/code-payments/code-launchpad/pkg/launchpad/confirm"
	"github.com/code-payments/code-launchpad/pkg/launchpad/data/registry"
	"github.com/code-payments/code-launchpad/pkg/launchpad/event"
	"github.com/code-payments/code-launchpad/pkg/launchpad/vault"
	"github.com/code-payments/code-launchpad/pkg/metrics"
	"github.com/code-payments/code-launchpad/pkg/retry"
	"github.com/code-payments/code-launchpad/pkg/retry/backoff"
	"github.com/code-payments/code-launchpad/pkg/solana"
	"github.com/code-payments/code-launchpad/pkg/solana/token"
	"github.com/code-payments/code-launchpad/pkg/sync"
)

const (
	metricsStructName = "distribution.distributor"

	feesDistributedEventName = "FeesDistributed"

	defaultRequestTimeout = 10 * time.Second
	submitTimeout         = 30 * time.Second
	maxRequestAttempts    = 3

	mintLockStripes     = 64
	knownAccountsBudget = 100_000
)

var (
	ErrInvalidMint = errors.New("invalid mint")
	ErrNoFeePayer  = errors.New("fee payer keypair is required")
)

// Summary is the result of a distribution run.
type Summary struct {
	Mint string

	// Pooled is the community vault balance at the start of the run.
	Pooled uint64

	RecipientsPaid int
	TotalAmount    uint64

	// BatchesSubmitted counts batches confirmed on the ledger, and
	// BatchesFailed counts batches that were skipped.
	BatchesSubmitted int
	BatchesFailed    int

	Signatures []string

	reason string
}

// Reason is a human readable explanation of the summary.
func (s *Summary) Reason() string {
	if len(s.reason) > 0 {
		return s.reason
	}
	if s.BatchesFailed > 0 {
		return fmt.Sprintf("paid %d recipients, %d of %d batches failed", s.RecipientsPaid, s.BatchesFailed, s.BatchesSubmitted+s.BatchesFailed)
	}
	return fmt.Sprintf("paid %d recipients", s.RecipientsPaid)
}

// Distributor pays a mint's community vault balance out to the registered
// creators.
type Distributor struct {
	log       *logrus.Entry
	sc        solana.Client
	deriver   *vault.Deriver
	engine    *confirm.Engine
	creators  registry.Store
	events    event.Publisher
	batchSize int

	// feePayer funds transaction fees and the rent of recipient token
	// accounts. The community vault only holds tokens.
	feePayer *common.Account

	// mintLocks serializes runs for the same mint within the process.
	mintLocks *sync.StripedLock

	// knownAccounts holds recipient token accounts observed to exist, so
	// later runs skip the lookup.
	knownAccounts cache.Cache

	requestTimeout time.Duration
}

func NewDistributor(
	sc solana.Client,
	feePayer *common.Account,
	deriver *vault.Deriver,
	engine *confirm.Engine,
	store registry.Store,
	events event.Publisher,
) *Distributor {
	if events == nil {
		events = event.NewNoopPublisher()
	}

	return &Distributor{
		log:            logrus.StandardLogger().WithField("type", "distribution/distributor"),
		sc:             sc,
		feePayer:       feePayer,
		deriver:        deriver,
		engine:         engine,
		creators:       store,
		events:         events,
		batchSize:      DefaultBatchSize,
		mintLocks:      sync.NewStripedLock(mintLockStripes),
		knownAccounts:  cache.NewCache(knownAccountsBudget),
		requestTimeout: defaultRequestTimeout,
	}
}

// Run distributes the community vault of mint evenly across every
// registered creator except exclude. Batches are paid sequentially, and a
// failed batch is skipped rather than aborting the run. Concurrent runs for
// the same mint are serialized.
func (d *Distributor) Run(ctx context.Context, mint string, exclude string) (*Summary, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Run")
	defer tracer.End()

	mu := d.mintLocks.Get(mint)
	mu.Lock()
	defer mu.Unlock()

	log := d.log.WithFields(logrus.Fields{
		"method": "Run",
		"mint":   mint,
	})

	summary, err := d.run(ctx, log, mint, exclude)
	if err != nil {
		tracer.OnError(err)
		log.WithError(err).Warn("failure distributing fees")
		return summary, err
	}

	tracer.AddAttribute("recipients_paid", summary.RecipientsPaid)
	tracer.AddAttribute("batches_failed", summary.BatchesFailed)

	log.WithFields(logrus.Fields{
		"recipients_paid":   summary.RecipientsPaid,
		"total_amount":      summary.TotalAmount,
		"batches_submitted": summary.BatchesSubmitted,
		"batches_failed":    summary.BatchesFailed,
	}).Info(summary.Reason())

	return summary, nil
}

func (d *Distributor) run(ctx context.Context, log *logrus.Entry, mint, exclude string) (*Summary, error) {
	summary := &Summary{Mint: mint}

	if d.feePayer == nil || d.feePayer.PrivateKey() == nil {
		return summary, ErrNoFeePayer
	}

	mintAccount, err := common.NewAccountFromPublicKeyString(mint)
	if err != nil {
		return summary, errors.Wrapf(ErrInvalidMint, "%q: %v", mint, err)
	}

	community, err := d.deriver.Derive(vault.PurposeCommunity, mintAccount)
	if err != nil {
		return summary, errors.Wrap(err, "error deriving community vault")
	}

	source, err := token.GetAssociatedAccount(community.PublicKey().ToBytes(), mintAccount.PublicKey().ToBytes())
	if err != nil {
		return summary, errors.Wrap(err, "error getting community vault token account")
	}

	pooled, err := d.getBalance(ctx, source)
	if errors.Is(err, solana.ErrNoBalance) {
		summary.reason = "community vault has no token account"
		return summary, nil
	} else if err != nil {
		return summary, errors.Wrap(err, "error getting community vault balance")
	}
	summary.Pooled = pooled

	creators, err := d.creators.ListCreators(ctx)
	if err != nil {
		return summary, errors.Wrap(err, "error listing creators")
	}

	payouts := Calculate(pooled, creators, exclude)
	if len(payouts) == 0 {
		summary.reason = "nothing to distribute"
		return summary, nil
	}

	for i, batch := range Batch(payouts, d.batchSize) {
		batchLog := log.WithFields(logrus.Fields{
			"batch":      i,
			"recipients": len(batch),
		})

		sig, err := d.payBatch(ctx, batchLog, mintAccount, community, source, batch)
		if err != nil {
			batchLog.WithError(err).Warn("failure paying batch, skipping")
			summary.BatchesFailed++
			continue
		}

		summary.BatchesSubmitted++
		summary.RecipientsPaid += len(batch)
		summary.TotalAmount += Total(batch)
		summary.Signatures = append(summary.Signatures, sig)
	}

	if summary.BatchesSubmitted > 0 {
		err = d.events.Publish(ctx, &event.FeesDistributed{
			Mint:             mint,
			RecipientsPaid:   summary.RecipientsPaid,
			TotalAmount:      summary.TotalAmount,
			BatchesSubmitted: summary.BatchesSubmitted,
			BatchesFailed:    summary.BatchesFailed,
			Signatures:       summary.Signatures,
			DistributedAt:    time.Now(),
		})
		if err != nil {
			log.WithError(err).Warn("failure publishing fees distributed event")
		}
	}

	metrics.RecordEvent(ctx, feesDistributedEventName, map[string]interface{}{
		"recipients_paid": summary.RecipientsPaid,
		"batches_failed":  summary.BatchesFailed,
	})

	return summary, nil
}

// payBatch transfers a batch from the community vault and waits for the
// outcome. The fee payer pays fees and token account rent, and the vault
// co-signs as owner of the source account.
func (d *Distributor) payBatch(
	ctx context.Context,
	log *logrus.Entry,
	mint, community *common.Account,
	source ed25519.PublicKey,
	batch []Payout,
) (string, error) {
	payer := d.feePayer.PublicKey().ToBytes()
	owner := community.PublicKey().ToBytes()
	mintKey := mint.PublicKey().ToBytes()

	var instructions []solana.Instruction
	destinations := make([]ed25519.PublicKey, 0, len(batch))
	for _, payout := range batch {
		recipient, err := base58.Decode(payout.Recipient)
		if err != nil || len(recipient) != ed25519.PublicKeySize {
			return "", errors.Errorf("invalid recipient %q", payout.Recipient)
		}

		destination, err := token.GetAssociatedAccount(recipient, mintKey)
		if err != nil {
			return "", errors.Wrapf(err, "error getting token account for %s", payout.Recipient)
		}

		destinations = append(destinations, destination)

		create, err := d.createInstruction(ctx, payer, recipient, mintKey, destination)
		if err != nil {
			return "", err
		}
		if create != nil {
			instructions = append(instructions, *create)
		}

		instructions = append(instructions, token.Transfer(source, destination, owner, payout.Amount))
	}

	blockhash, err := d.getBlockhash(ctx)
	if err != nil {
		return "", errors.Wrap(err, "error getting recent blockhash")
	}

	txn := solana.NewTransaction(payer, instructions...)
	txn.SetBlockhash(blockhash)
	if err := d.feePayer.SignTransaction(&txn); err != nil {
		return "", errors.Wrap(err, "error signing with fee payer")
	}
	if err := community.SignTransaction(&txn); err != nil {
		return "", errors.Wrap(err, "error signing with community vault")
	}

	sig := txn.Signature()
	encoded := base58.Encode(sig[:])
	log = log.WithField("signature", encoded)

	// Once submitted, the batch must be resolved before moving on.
	ctx = context.WithoutCancel(ctx)

	submitCtx, cancel := context.WithTimeout(ctx, submitTimeout)
	_, err = d.sc.SubmitTransaction(submitCtx, txn, solana.CommitmentConfirmed)
	cancel()

	var txErr *solana.TransactionError
	if errors.As(err, &txErr) {
		return encoded, errors.Wrap(txErr, "transaction rejected")
	} else if err != nil {
		log.WithError(err).Warn("submission outcome unknown, confirming anyway")
	}

	outcome := d.engine.Confirm(ctx, sig, confirm.Options{MaxAttempts: confirm.IssuanceMaxAttempts})
	if !outcome.Succeeded() {
		return encoded, outcome.Err()
	}

	for _, destination := range destinations {
		d.knownAccounts.Insert(base58.Encode(destination), struct{}{}, 1)
	}
	return encoded, nil
}

// createInstruction returns the instruction creating the recipient's token
// account, or nil when it already exists. If existence cannot be
// determined, the idempotent variant is used.
func (d *Distributor) createInstruction(ctx context.Context, payer, owner, mint, destination ed25519.PublicKey) (*solana.Instruction, error) {
	address := base58.Encode(destination)
	if _, ok := d.knownAccounts.Retrieve(address); ok {
		return nil, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, d.requestTimeout)
	_, err := d.sc.GetAccountInfo(reqCtx, destination, solana.CommitmentConfirmed)
	cancel()

	var instruction solana.Instruction
	switch {
	case err == nil:
		d.knownAccounts.Insert(address, struct{}{}, 1)
		return nil, nil
	case errors.Is(err, solana.ErrNoAccountInfo):
		instruction, _, err = token.CreateAssociatedTokenAccount(payer, owner, mint)
	default:
		instruction, _, err = token.CreateAssociatedTokenAccountIdempotent(payer, owner, mint)
	}
	if err != nil {
		return nil, errors.Wrap(err, "error making associated token account instruction")
	}
	return &instruction, nil
}

// getBalance returns solana.ErrNoBalance when the account does not exist.
// Other failures are retried.
func (d *Distributor) getBalance(ctx context.Context, account ed25519.PublicKey) (uint64, error) {
	var balance uint64
	_, err := retry.Retry(
		func() error {
			reqCtx, cancel := context.WithTimeout(ctx, d.requestTimeout)
			defer cancel()

			var err error
			balance, err = d.sc.GetTokenAccountBalance(reqCtx, account)
			if errors.Is(err, solana.ErrNoBalance) {
				return retry.Permanent(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Limit(maxRequestAttempts),
		retry.Backoff(backoff.Constant(250*time.Millisecond), time.Second),
	)
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (d *Distributor) getBlockhash(ctx context.Context) (solana.Blockhash, error) {
	var blockhash solana.Blockhash
	_, err := retry.Retry(
		func() error {
			reqCtx, cancel := context.WithTimeout(ctx, d.requestTimeout)
			defer cancel()

			var err error
			blockhash, err = d.sc.GetLatestBlockhash(reqCtx)
			return err
		},
		retry.Context(ctx),
		retry.Limit(maxRequestAttempts),
		retry.Backoff(backoff.Constant(250*time.Millisecond), time.Second),
	)
	return blockhash, err
}
