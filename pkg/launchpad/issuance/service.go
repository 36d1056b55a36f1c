package issuance

import (
	"context"
	"fmt"
	"time"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-launchpad/pkg/launchpad/common"
	"github.com/code-payments/code-launchpad/pkg/launchpad/confirm"
	"github.com/code-payments/code-launchpad/pkg/launchpad/data/registry"
	"github.com/code-payments/code-launchpad/pkg/launchpad/event"
	"github.com/code-payments/code-launchpad/pkg/launchpad/metadata"
	"github.com/code-payments/code-launchpad/pkg/launchpad/vault"
	"github.com/code-payments/code-launchpad/pkg/metrics"
	"github.com/code-payments/code-launchpad/pkg/solana"
)

const (
	metricsStructName = "issuance.service"

	assetIssuedEventName = "AssetIssued"

	submitTimeout = 30 * time.Second
)

type ResultCode uint8

const (
	ResultOk ResultCode = iota
	ResultInvalidInput
	ResultBuildFailed
	ResultSigningFailed
	ResultMissingSignatures
	ResultSubmitFailed
	ResultTransactionFailed
	ResultTimedOut
)

func (c ResultCode) String() string {
	switch c {
	case ResultOk:
		return "ok"
	case ResultInvalidInput:
		return "invalid_input"
	case ResultBuildFailed:
		return "build_failed"
	case ResultSigningFailed:
		return "signing_failed"
	case ResultMissingSignatures:
		return "missing_signatures"
	case ResultSubmitFailed:
		return "submit_failed"
	case ResultTransactionFailed:
		return "transaction_failed"
	case ResultTimedOut:
		return "timed_out"
	}
	return "unknown"
}

// Result is the tagged outcome of an issuance.
type Result struct {
	Code ResultCode

	Mint          string
	TransactionID string

	MetadataURI  string
	MetadataTier metadata.Tier

	Allocation        Allocation
	State             State
	ProbablyConfirmed bool

	// ExplorerURL is set when the outcome is ambiguous.
	ExplorerURL string

	reason string
}

func (r *Result) Ok() bool {
	return r.Code == ResultOk
}

// Reason is a human readable explanation of the result.
func (r *Result) Reason() string {
	if len(r.reason) > 0 {
		return r.reason
	}
	if r.Code == ResultOk {
		return "asset issued"
	}
	return r.Code.String()
}

// Service orchestrates the issuance of a fixed supply token.
type Service struct {
	log       *logrus.Entry
	sc        solana.Client
	deriver   *vault.Deriver
	publisher *metadata.Publisher
	builder   *Builder
	engine    *confirm.Engine
	registry  *registry.Writer
	events    event.Publisher
}

func NewService(
	sc solana.Client,
	deriver *vault.Deriver,
	publisher *metadata.Publisher,
	engine *confirm.Engine,
	registryWriter *registry.Writer,
	events event.Publisher,
) *Service {
	if events == nil {
		events = event.NewNoopPublisher()
	}

	return &Service{
		log:       logrus.StandardLogger().WithField("type", "issuance/service"),
		sc:        sc,
		deriver:   deriver,
		publisher: publisher,
		builder:   NewBuilder(sc, deriver),
		engine:    engine,
		registry:  registryWriter,
		events:    events,
	}
}

// Issue creates a token with a fixed supply split between the creator and
// two derived vaults, and revokes the mint authority, in one transaction.
//
// The returned error is non-nil whenever the result is not ResultOk. Once
// the transaction is submitted, cancelling ctx no longer interrupts the
// flow.
func (s *Service) Issue(ctx context.Context, creator *common.Account, params *Params, signer WalletSigner) (*Result, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Issue")
	defer tracer.End()

	log := s.log.WithField("method", "Issue")
	if creator != nil && creator.PublicKey() != nil {
		log = log.WithField("creator", creator.PublicKey().ToBase58())
	}

	result, err := s.issue(ctx, log, creator, params, signer)
	tracer.AddAttribute("result", result.Code.String())
	if err != nil {
		tracer.OnError(err)
		log.WithError(err).WithField("result", result.Code.String()).Info("issuance unsuccessful")
		return result, err
	}
	return result, nil
}

func (s *Service) issue(ctx context.Context, log *logrus.Entry, creator *common.Account, params *Params, signer WalletSigner) (*Result, error) {
	result := &Result{}

	fail := func(code ResultCode, err error) (*Result, error) {
		result.Code = code
		result.reason = err.Error()
		return result, err
	}

	if err := params.Validate(); err != nil {
		return fail(ResultInvalidInput, err)
	}
	if err := creator.Validate(); err != nil {
		return fail(ResultInvalidInput, errors.Wrap(ErrInvalidInput, err.Error()))
	}
	if signer == nil {
		return fail(ResultInvalidInput, errors.Wrap(ErrInvalidInput, "wallet signer is required"))
	}

	mint, err := common.NewRandomAccount()
	if err != nil {
		return fail(ResultBuildFailed, errors.Wrap(err, "error generating mint keypair"))
	}
	result.Mint = mint.PublicKey().ToBase58()
	log = log.WithField("mint", result.Mint)

	vaults, err := s.deriver.DeriveAll(mint)
	if err != nil {
		return fail(ResultBuildFailed, errors.Wrap(err, "error deriving vaults"))
	}

	ref := s.publisher.Publish(ctx, newMetadataRequest(params))
	result.MetadataURI = ref.URI
	result.MetadataTier = ref.Tier
	log = log.WithField("metadata_tier", ref.Tier)

	built, err := s.builder.BuildForMint(ctx, creator, mint, vaults, params, ref.URI)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return fail(ResultInvalidInput, err)
		}
		return fail(ResultBuildFailed, errors.Wrap(err, "error building issuance transaction"))
	}
	result.Allocation = built.Allocation
	result.State = built.State

	if err := signer.SignTransaction(ctx, &built.Transaction); err != nil {
		built.Transition(StateFailed)
		result.State = built.State
		return fail(ResultSigningFailed, errors.Wrap(err, "error signing with wallet"))
	}

	if err := VerifySignatures(&built.Transaction); err != nil {
		built.Transition(StateFailed)
		result.State = built.State
		return fail(ResultMissingSignatures, err)
	}
	if err := built.Transition(StateSignatureVerified); err != nil {
		return fail(ResultBuildFailed, err)
	}

	sig := built.Transaction.Signature()
	result.TransactionID = base58.Encode(sig[:])
	log = log.WithField("signature", result.TransactionID)

	// Past this point the transaction may land, so the remaining steps must
	// run to completion.
	ctx = context.WithoutCancel(ctx)

	submitCtx, cancel := context.WithTimeout(ctx, submitTimeout)
	_, err = s.sc.SubmitTransaction(submitCtx, built.Transaction, solana.CommitmentConfirmed)
	cancel()

	var txErr *solana.TransactionError
	if errors.As(err, &txErr) {
		built.Transition(StateFailed)
		result.State = built.State
		return fail(ResultTransactionFailed, errors.Wrap(txErr, "transaction rejected"))
	} else if err != nil {
		log.WithError(err).Warn("submission outcome unknown, confirming anyway")
	}
	if err := built.Transition(StateSubmitted); err != nil {
		return fail(ResultSubmitFailed, err)
	}

	outcome := s.engine.Confirm(ctx, sig, confirm.Options{
		MaxAttempts:      confirm.IssuanceMaxAttempts,
		ReconcileAccount: mint.PublicKey().ToBytes(),
	})
	switch outcome.Kind {
	case confirm.OutcomeConfirmed, confirm.OutcomeProbablyConfirmed:
		built.Transition(StateConfirmed)
		built.ProbablyConfirmed = outcome.Kind == confirm.OutcomeProbablyConfirmed
	case confirm.OutcomeFailed:
		built.Transition(StateFailed)
	default:
		built.Transition(StateUnknown)
	}
	result.State = built.State
	result.ProbablyConfirmed = built.ProbablyConfirmed

	switch built.State {
	case StateFailed:
		return fail(ResultTransactionFailed, outcome.Err())
	case StateUnknown:
		result.ExplorerURL = outcome.ExplorerURL
		return fail(ResultTimedOut, outcome.Err())
	}

	asset := &registry.Asset{
		Mint:          result.Mint,
		Creator:       creator.PublicKey().ToBase58(),
		Name:          params.Name,
		Symbol:        params.Symbol,
		Decimals:      params.Decimals,
		Supply:        built.RawSupply,
		ImageURI:      params.ImageURI,
		MetadataURI:   ref.URI,
		MetadataTier:  string(ref.Tier),
		TransactionID: result.TransactionID,
		CreatedAt:     time.Now(),
	}
	if err := s.registry.Record(ctx, asset); err != nil {
		log.WithError(err).Warn("failure recording asset in registry")
	}

	err = s.events.Publish(ctx, &event.AssetIssued{
		Mint:              asset.Mint,
		Creator:           asset.Creator,
		Name:              asset.Name,
		Symbol:            asset.Symbol,
		Decimals:          asset.Decimals,
		Supply:            asset.Supply,
		MetadataURI:       asset.MetadataURI,
		MetadataTier:      asset.MetadataTier,
		TransactionID:     asset.TransactionID,
		ProbablyConfirmed: built.ProbablyConfirmed,
		IssuedAt:          asset.CreatedAt,
	})
	if err != nil {
		log.WithError(err).Warn("failure publishing asset issued event")
	}

	metrics.RecordEvent(ctx, assetIssuedEventName, map[string]interface{}{
		"metadata_tier":      string(ref.Tier),
		"probably_confirmed": built.ProbablyConfirmed,
	})

	result.Code = ResultOk
	if built.ProbablyConfirmed {
		result.reason = fmt.Sprintf("asset issued, confirmation inferred from mint account %s", result.Mint)
	}

	log.Info("asset issued")
	return result, nil
}

func newMetadataRequest(params *Params) *metadata.Request {
	doc := &metadata.Document{
		Name:        params.Name,
		Symbol:      params.Symbol,
		Description: params.Description,
		ExternalURL: params.Website,
	}
	if len(params.Website) > 0 || len(params.Twitter) > 0 || len(params.Telegram) > 0 {
		doc.Extensions = &metadata.Extensions{
			Website:  params.Website,
			Twitter:  params.Twitter,
			Telegram: params.Telegram,
		}
	}

	return &metadata.Request{
		Document:         doc,
		Image:            params.Image,
		ImageContentType: params.ImageContentType,
		ImageURI:         params.ImageURI,
	}
}
