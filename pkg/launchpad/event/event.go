// Package event publishes launchpad lifecycle events. Publishing is best
// effort: a failure never changes the outcome of the operation that
// produced the event.
package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindAssetIssued     Kind = "asset_issued"
	KindFeesDistributed Kind = "fees_distributed"
)

// Message is an event payload. Key orders messages, and is the mint for
// every launchpad event.
type Message interface {
	Kind() Kind
	Key() string
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// AssetIssued is published once an issuance transaction is confirmed.
type AssetIssued struct {
	Mint              string    `json:"mint"`
	Creator           string    `json:"creator"`
	Name              string    `json:"name"`
	Symbol            string    `json:"symbol"`
	Decimals          uint8     `json:"decimals"`
	Supply            uint64    `json:"supply"`
	MetadataURI       string    `json:"metadata_uri"`
	MetadataTier      string    `json:"metadata_tier"`
	TransactionID     string    `json:"transaction_id"`
	ProbablyConfirmed bool      `json:"probably_confirmed,omitempty"`
	IssuedAt          time.Time `json:"issued_at"`
}

func (e *AssetIssued) Kind() Kind  { return KindAssetIssued }
func (e *AssetIssued) Key() string { return e.Mint }

// FeesDistributed is published after a distribution run that paid at least
// one batch.
type FeesDistributed struct {
	Mint             string    `json:"mint"`
	RecipientsPaid   int       `json:"recipients_paid"`
	TotalAmount      uint64    `json:"total_amount"`
	BatchesSubmitted int       `json:"batches_submitted"`
	BatchesFailed    int       `json:"batches_failed"`
	Signatures       []string  `json:"signatures,omitempty"`
	DistributedAt    time.Time `json:"distributed_at"`
}

func (e *FeesDistributed) Kind() Kind  { return KindFeesDistributed }
func (e *FeesDistributed) Key() string { return e.Mint }

type envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Encode serializes msg as a JSON envelope tagged with its kind.
func Encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "error marshalling payload")
	}
	return json.Marshal(&envelope{Kind: msg.Kind(), Payload: payload})
}

// Decode is the inverse of Encode.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling envelope")
	}

	var msg Message
	switch env.Kind {
	case KindAssetIssued:
		msg = &AssetIssued{}
	case KindFeesDistributed:
		msg = &FeesDistributed{}
	default:
		return nil, errors.Errorf("unknown event kind: %q", env.Kind)
	}

	if err := json.Unmarshal(env.Payload, msg); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling payload")
	}
	return msg, nil
}

type noopPublisher struct{}

// NewNoopPublisher returns a Publisher that drops every message.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, Message) error { return nil }
func (noopPublisher) Close() error                           { return nil }
