package confirm

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-launchpad/pkg/metrics"
	"github.com/code-payments/code-launchpad/pkg/retry"
	"github.com/code-payments/code-launchpad/pkg/retry/backoff"
	"github.com/code-payments/code-launchpad/pkg/solana"
)

const (
	metricsStructName = "confirm.engine"

	outcomeEventName = "ConfirmationOutcome"
)

var errInconclusive = errors.New("confirmation inconclusive")

// Options are per call confirmation settings.
type Options struct {
	// MaxAttempts bounds the number of poll rounds. Zero means
	// IssuanceMaxAttempts.
	MaxAttempts uint

	// ReconcileAccount, when set, is an account the transaction creates. If
	// polling is inconclusive and the account exists, the outcome is
	// OutcomeProbablyConfirmed.
	ReconcileAccount ed25519.PublicKey
}

// Engine determines the fate of submitted transactions by combining a
// built-in wait, status polling with history search, direct transaction
// lookup and account reconciliation.
type Engine struct {
	log    *logrus.Entry
	sc     solana.Client
	waiter solana.SignatureWaiter
	conf   Config

	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine returns a confirmation engine. The waiter is optional.
func NewEngine(sc solana.Client, waiter solana.SignatureWaiter, configProvider ConfigProvider) *Engine {
	return &Engine{
		log:    logrus.StandardLogger().WithField("type", "launchpad/confirm"),
		sc:     sc,
		waiter: waiter,
		conf:   configProvider(),
		sleep:  sleepWithContext,
	}
}

// Confirm blocks until the outcome of sig is known, attempts are exhausted,
// or ctx is done. Transient RPC failures never abort confirmation.
func (e *Engine) Confirm(ctx context.Context, sig solana.Signature, opts Options) Outcome {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Confirm")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method":    "Confirm",
		"signature": base58.Encode(sig[:]),
	})

	outcome := e.confirm(ctx, log, sig, opts)
	outcome.Signature = sig
	if outcome.Kind == OutcomeTimedOut {
		outcome.ExplorerURL = solana.ExplorerURL(sig, e.conf.Cluster)
	}

	tracer.AddAttribute("outcome", outcome.Kind.String())
	tracer.AddAttribute("source", string(outcome.Source))
	metrics.RecordEvent(ctx, outcomeEventName, map[string]interface{}{
		"outcome":  outcome.Kind.String(),
		"source":   string(outcome.Source),
		"attempts": outcome.Attempts,
	})

	log = log.WithFields(logrus.Fields{
		"outcome":  outcome.Kind.String(),
		"source":   outcome.Source,
		"attempts": outcome.Attempts,
	})
	switch outcome.Kind {
	case OutcomeConfirmed:
		log.Debug("transaction confirmed")
	case OutcomeProbablyConfirmed:
		log.Info("transaction probably confirmed")
	case OutcomeFailed:
		log.WithError(outcome.TransactionError).Info("transaction failed")
	default:
		log.WithField("explorer", outcome.ExplorerURL).Warn("transaction confirmation timed out")
	}

	return outcome
}

func (e *Engine) confirm(ctx context.Context, log *logrus.Entry, sig solana.Signature, opts Options) Outcome {
	if outcome, ok := e.wait(ctx, log, sig); ok {
		return outcome
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = IssuanceMaxAttempts
	}

	var outcome Outcome
	attempts, err := retry.Retry(
		func() error {
			var ok bool
			outcome, ok = e.poll(ctx, log, sig, outcome.Attempts+1)
			if ok {
				return nil
			}
			return errInconclusive
		},
		retry.Context(ctx),
		retry.Limit(maxAttempts),
		e.backoff(ctx),
	)
	if err == nil {
		outcome.Attempts = attempts
		return outcome
	}

	outcome = Outcome{Kind: OutcomeTimedOut, Source: SourceNone, Attempts: attempts}

	if len(opts.ReconcileAccount) > 0 && e.reconcile(ctx, log, opts.ReconcileAccount) {
		outcome.Kind = OutcomeProbablyConfirmed
		outcome.Source = SourceReconcile
	}

	return outcome
}

// wait uses the built-in wait, then re-checks the status so a wait that
// resolves on an errored transaction is not reported as confirmed.
func (e *Engine) wait(ctx context.Context, log *logrus.Entry, sig solana.Signature) (Outcome, bool) {
	if e.waiter == nil || e.conf.WaitTimeout <= 0 {
		return Outcome{}, false
	}

	waitCtx, cancel := context.WithTimeout(ctx, e.conf.WaitTimeout)
	err := e.waiter.WaitForSignature(waitCtx, sig, e.conf.Commitment)
	cancel()

	var txErr *solana.TransactionError
	switch {
	case err == nil:
	case errors.As(err, &txErr):
		return Outcome{Kind: OutcomeFailed, Source: SourceWait, TransactionError: txErr}, true
	default:
		if errors.Is(err, solana.ErrWaitUnsupported) {
			log.WithError(err).Debug("built-in wait unavailable, falling back to polling")
		} else {
			log.WithError(err).Debug("built-in wait inconclusive, falling back to polling")
		}
		return Outcome{}, false
	}

	status, err := e.getStatus(ctx, sig, false)
	if err != nil {
		log.WithError(err).Debug("failure re-checking status after wait")
		return Outcome{Kind: OutcomeConfirmed, Source: SourceWait}, true
	}
	if status != nil && status.ErrorResult != nil {
		return Outcome{Kind: OutcomeFailed, Source: SourceStatus, TransactionError: status.ErrorResult}, true
	}
	return Outcome{Kind: OutcomeConfirmed, Source: SourceWait}, true
}

// poll runs a single round of status and transaction lookups.
func (e *Engine) poll(ctx context.Context, log *logrus.Entry, sig solana.Signature, attempt uint) (Outcome, bool) {
	searchHistory := attempt <= e.conf.HistoryAttempts

	status, err := e.getStatus(ctx, sig, searchHistory)
	if err != nil {
		log.WithError(err).WithField("attempt", attempt).Debug("failure getting signature status")
	} else if status != nil {
		if status.ErrorResult != nil {
			return Outcome{Kind: OutcomeFailed, Source: SourceStatus, TransactionError: status.ErrorResult, Attempts: attempt}, true
		}
		if status.Confirmed() {
			return Outcome{Kind: OutcomeConfirmed, Source: SourceStatus, Attempts: attempt}, true
		}
		return Outcome{Attempts: attempt}, false
	}

	reqCtx, cancel := e.requestContext(ctx)
	defer cancel()

	txn, err := e.sc.GetTransaction(reqCtx, sig, e.conf.Commitment)
	switch {
	case err == nil:
		if txn.Err != nil {
			return Outcome{Kind: OutcomeFailed, Source: SourceTransaction, TransactionError: txn.Err, Attempts: attempt}, true
		}
		return Outcome{Kind: OutcomeConfirmed, Source: SourceTransaction, Attempts: attempt}, true
	case errors.Is(err, solana.ErrSignatureNotFound):
	default:
		log.WithError(err).WithField("attempt", attempt).Debug("failure getting transaction")
	}

	return Outcome{Attempts: attempt}, false
}

func (e *Engine) reconcile(ctx context.Context, log *logrus.Entry, account ed25519.PublicKey) bool {
	reqCtx, cancel := e.requestContext(ctx)
	defer cancel()

	_, err := e.sc.GetAccountInfo(reqCtx, account, e.conf.Commitment)
	switch {
	case err == nil:
		return true
	case errors.Is(err, solana.ErrNoAccountInfo):
	default:
		log.WithError(err).Debug("failure reconciling account")
	}
	return false
}

func (e *Engine) getStatus(ctx context.Context, sig solana.Signature, searchHistory bool) (*solana.SignatureStatus, error) {
	reqCtx, cancel := e.requestContext(ctx)
	defer cancel()

	statuses, err := e.sc.GetSignatureStatuses(reqCtx, []solana.Signature{sig}, searchHistory)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, nil
	}
	return statuses[0], nil
}

func (e *Engine) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.conf.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.conf.RequestTimeout)
}

// backoff returns a retry strategy that sleeps per a stepped backoff. It
// stops early if ctx is cancelled while sleeping.
func (e *Engine) backoff(ctx context.Context) retry.Strategy {
	delayFor := backoff.Stepped(e.conf.InitialBackoff, e.conf.WidenBackoffAfter, e.conf.WidenedBackoff)
	return func(attempts uint, _ error) bool {
		return e.sleep(ctx, delayFor(attempts)) == nil
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
