package confirm

import (
	"fmt"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/code-launchpad/pkg/solana"
)

type OutcomeKind uint8

const (
	OutcomeTimedOut OutcomeKind = iota
	OutcomeConfirmed
	OutcomeProbablyConfirmed
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeProbablyConfirmed:
		return "probably_confirmed"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Source names the strategy that concluded a confirmation.
type Source string

const (
	SourceWait        Source = "wait"
	SourceStatus      Source = "status"
	SourceTransaction Source = "transaction"
	SourceReconcile   Source = "reconcile"
	SourceNone        Source = "none"
)

// Outcome is the result of confirming a signature.
type Outcome struct {
	Kind      OutcomeKind
	Source    Source
	Signature solana.Signature
	Attempts  uint

	// TransactionError is set for OutcomeFailed.
	TransactionError *solana.TransactionError

	// ExplorerURL lets a human resolve an ambiguous outcome.
	ExplorerURL string
}

// Succeeded reports whether the transaction is considered applied, which
// includes the reconciliation heuristic.
func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeConfirmed || o.Kind == OutcomeProbablyConfirmed
}

// Err maps the outcome onto the error taxonomy: nil on success, the ledger's
// *solana.TransactionError on failure and *TimeoutError otherwise.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeConfirmed, OutcomeProbablyConfirmed:
		return nil
	case OutcomeFailed:
		if o.TransactionError != nil {
			return o.TransactionError
		}
		return errors.New("transaction failed")
	default:
		return &TimeoutError{
			Signature:   o.Signature,
			ExplorerURL: o.ExplorerURL,
			Attempts:    o.Attempts,
		}
	}
}

// TimeoutError is an ambiguous outcome: the transaction may or may not have
// been applied. Retrying without resolving it can double apply.
type TimeoutError struct {
	Signature   solana.Signature
	ExplorerURL string
	Attempts    uint
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("confirmation of %s timed out after %d attempts, check %s", base58.Encode(e.Signature[:]), e.Attempts, e.ExplorerURL)
}

// IsTimeout reports whether err is, or wraps, a *TimeoutError.
func IsTimeout(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr)
}
