package solana

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrWaitUnsupported is returned when the waiter cannot subscribe to
// signature notifications at all.
var ErrWaitUnsupported = errors.New("signature wait unsupported")

// SignatureWaiter blocks until a signature reaches a commitment level.
type SignatureWaiter interface {
	// WaitForSignature returns nil once sig reaches commitment, or a
	// *TransactionError if the ledger processed it with an error.
	WaitForSignature(ctx context.Context, sig Signature, commitment Commitment) error
}

type wsWaiter struct {
	log              *logrus.Entry
	endpoint         string
	handshakeTimeout time.Duration
}

// NewSignatureWaiter returns a SignatureWaiter backed by the websocket
// signatureSubscribe method. An empty endpoint yields a waiter that always
// returns ErrWaitUnsupported.
func NewSignatureWaiter(endpoint string) SignatureWaiter {
	return &wsWaiter{
		log:              logrus.StandardLogger().WithField("type", "solana/ws"),
		endpoint:         endpoint,
		handshakeTimeout: 10 * time.Second,
	}
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type wsMessage struct {
	ID     *uint64         `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Params *struct {
		Result struct {
			Value struct {
				Err interface{} `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

func (w *wsWaiter) WaitForSignature(ctx context.Context, sig Signature, commitment Commitment) error {
	if w.endpoint == "" {
		return ErrWaitUnsupported
	}

	log := w.log.WithField("signature", sig.String())

	dialer := websocket.Dialer{HandshakeTimeout: w.handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, w.endpoint, nil)
	if err != nil {
		log.WithError(err).Debug("failed to dial websocket endpoint")
		return errors.Wrap(ErrWaitUnsupported, err.Error())
	}
	defer conn.Close()

	// Unblock the read below when the caller gives up.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
		conn.SetReadDeadline(deadline)
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "signatureSubscribe",
		Params: []interface{}{
			sig.String(),
			commitment,
		},
	}
	if err := conn.WriteJSON(req); err != nil {
		return errors.Wrap(err, "failed to write subscription request")
	}

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "failed to read notification")
		}

		if msg.Error != nil {
			return errors.Wrapf(ErrWaitUnsupported, "subscription rejected: %s", msg.Error.Message)
		}

		if msg.Method != "signatureNotification" || msg.Params == nil {
			continue
		}

		txErr, err := ParseTransactionError(msg.Params.Result.Value.Err)
		if err != nil {
			return errors.Wrap(err, "failed to parse transaction result")
		}
		if txErr != nil {
			return txErr
		}
		return nil
	}
}
