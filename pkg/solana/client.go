package solana

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/code-launchpad/pkg/rate"
	"github.com/code-payments/code-launchpad/pkg/retry"
	"github.com/code-payments/code-launchpad/pkg/retry/backoff"
)

const (
	// Reference: https://github.com/solana-labs/solana/blob/71e9958e061493d7545bd28d4ac7a85aaed6ffbb/client/src/rpc_custom_error.rs#L11
	rpcNodeUnhealthyCode = -32005

	invalidParamCode = -32602
)

type Commitment struct {
	Commitment string `json:"commitment"`
}

const (
	confirmationStatusProcessed = "processed"
	confirmationStatusConfirmed = "confirmed"
	confirmationStatusFinalized = "finalized"
)

var (
	CommitmentProcessed = Commitment{Commitment: confirmationStatusProcessed}
	CommitmentConfirmed = Commitment{Commitment: confirmationStatusConfirmed}
	CommitmentFinalized = Commitment{Commitment: confirmationStatusFinalized}
)

var (
	ErrNoAccountInfo     = errors.New("no account info")
	ErrSignatureNotFound = errors.New("signature not found")
	ErrNoBalance         = errors.New("no balance")
)

// AccountInfo contains the Solana account information (not to be confused with a TokenAccount)
type AccountInfo struct {
	Data       []byte
	Owner      ed25519.PublicKey
	Lamports   uint64
	Executable bool
}

type SignatureStatus struct {
	Slot        uint64
	ErrorResult *TransactionError

	// Confirmations will be nil if the transaction has been rooted.
	Confirmations      *int
	ConfirmationStatus string
}

func (s SignatureStatus) Confirmed() bool {
	if s.Finalized() {
		return true
	}

	if s.ConfirmationStatus == confirmationStatusConfirmed {
		return true
	}

	return s.Confirmations != nil && *s.Confirmations >= 1
}

func (s SignatureStatus) Finalized() bool {
	return s.Confirmations == nil || s.ConfirmationStatus == confirmationStatusFinalized
}

type ConfirmedTransaction struct {
	Slot        uint64
	BlockTime   *time.Time
	Transaction Transaction
	Err         *TransactionError
}

// Client provides an interaction with the Solana JSON RPC API.
//
// Every call is bounded by the configured request timeout.
//
// Reference: https://docs.solana.com/apps/jsonrpc-api
type Client interface {
	GetAccountInfo(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (AccountInfo, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (lamports uint64, err error)
	GetLatestBlockhash(ctx context.Context) (Blockhash, error)
	GetSignatureStatuses(ctx context.Context, sigs []Signature, searchTransactionHistory bool) ([]*SignatureStatus, error)
	GetTransaction(ctx context.Context, sig Signature, commitment Commitment) (ConfirmedTransaction, error)
	GetTokenAccountBalance(ctx context.Context, account ed25519.PublicKey) (uint64, error)
	SubmitTransaction(ctx context.Context, txn Transaction, commitment Commitment) (Signature, error)
}

// ClientConfig configures the RPC client.
type ClientConfig struct {
	// RequestTimeout bounds every individual RPC request.
	RequestTimeout time.Duration

	// RequestsPerSecond limits the rate of requests per RPC method. Zero
	// disables limiting.
	RequestsPerSecond float64
}

// DefaultClientConfig returns the default RPC client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		RequestTimeout:    10 * time.Second,
		RequestsPerSecond: 10,
	}
}

var (
	errRateLimited  = errors.New("rate limited")
	errServiceError = errors.New("service error")
)

type client struct {
	log     *logrus.Entry
	client  jsonrpc.RPCClient
	limiter rate.Limiter

	blockMu   sync.RWMutex
	blockhash Blockhash
	lastWrite time.Time
}

// New returns a client using the specified endpoint.
func New(endpoint string, conf ClientConfig) Client {
	if conf.RequestTimeout <= 0 {
		conf.RequestTimeout = DefaultClientConfig().RequestTimeout
	}

	var limiter rate.Limiter = &rate.NoLimiter{}
	if conf.RequestsPerSecond > 0 {
		limiter = rate.NewLocalRateLimiter(xrate.Limit(conf.RequestsPerSecond))
	}

	return &client{
		log: logrus.StandardLogger().WithField("type", "solana/client"),
		client: jsonrpc.NewClientWithOpts(endpoint, &jsonrpc.RPCClientOpts{
			HTTPClient: &http.Client{Timeout: conf.RequestTimeout},
		}),
		limiter: limiter,
	}
}

func (c *client) call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	_, err := retry.Retry(func() error {
		if err := c.limiter.Wait(ctx, method); err != nil {
			return err
		}

		err := c.client.CallFor(out, method, params...)
		if err == nil {
			return nil
		}

		return c.handleRpcError(method, err)
	},
		retry.Context(ctx),
		retry.RetriableErrors(errRateLimited, errServiceError),
		retry.Limit(3),
		retry.BackoffWithJitter(backoff.BinaryExponential(time.Second), 10*time.Second, 0.1),
	)

	return err
}

func (c *client) handleRpcError(method string, err error) error {
	if httpErr, ok := err.(*jsonrpc.HTTPError); ok {
		if httpErr.Code == http.StatusTooManyRequests {
			c.log.WithField("method", method).Warn("rate limited")
			return errRateLimited
		}
		if httpErr.Code >= 500 {
			return errServiceError
		}
		return err
	}

	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return err
	}
	if rpcErr.Code == http.StatusTooManyRequests {
		c.log.WithField("method", method).Warn("rate limited")
		return errRateLimited
	}
	if rpcErr.Code >= 500 || rpcErr.Code == rpcNodeUnhealthyCode {
		return errServiceError
	}

	return err
}

func (c *client) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (lamports uint64, err error) {
	if err := c.call(ctx, &lamports, "getMinimumBalanceForRentExemption", dataSize); err != nil {
		return 0, errors.Wrapf(err, "getMinimumBalanceForRentExemption() failed to send request")
	}

	return lamports, nil
}

func (c *client) GetLatestBlockhash(ctx context.Context) (hash Blockhash, err error) {
	// Randomize the refresh window so concurrent callers don't all refresh
	// on the same tick.
	window := time.Duration(float64(2*time.Second) * (0.8 + rand.Float64()))

	c.blockMu.RLock()
	if time.Since(c.lastWrite) < window {
		hash = c.blockhash
	}
	c.blockMu.RUnlock()

	if hash != (Blockhash{}) {
		return hash, nil
	}

	type response struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}

	var resp response
	if err := c.call(ctx, &resp, "getLatestBlockhash", CommitmentFinalized); err != nil {
		return hash, errors.Wrapf(err, "getLatestBlockhash() failed to send request")
	}

	hashBytes, err := base58.Decode(resp.Value.Blockhash)
	if err != nil {
		return hash, errors.Wrap(err, "invalid base58 encoded hash in response")
	}

	copy(hash[:], hashBytes)

	c.blockMu.Lock()
	c.blockhash = hash
	c.lastWrite = time.Now()
	c.blockMu.Unlock()

	return hash, nil
}

func (c *client) GetTransaction(ctx context.Context, sig Signature, commitment Commitment) (ConfirmedTransaction, error) {
	type rpcResponse struct {
		Slot        uint64   `json:"slot"`
		BlockTime   *int64   `json:"blockTime"`
		Transaction []string `json:"transaction"` // [val, encoding]
		Meta        *struct {
			Err interface{} `json:"err"`
		} `json:"meta"`
	}

	config := struct {
		Commitment string `json:"commitment"`
		Encoding   string `json:"encoding"`
	}{
		Commitment: commitment.Commitment,
		Encoding:   "base64",
	}

	var resp *rpcResponse
	if err := c.call(ctx, &resp, "getTransaction", base58.Encode(sig[:]), config); err != nil {
		return ConfirmedTransaction{}, errors.Wrap(err, "getTransaction() failed to send request")
	}

	if resp == nil {
		return ConfirmedTransaction{}, ErrSignatureNotFound
	}

	txn := ConfirmedTransaction{
		Slot: resp.Slot,
	}

	if resp.BlockTime != nil {
		txTime := time.Unix(*resp.BlockTime, 0)
		txn.BlockTime = &txTime
	}

	if len(resp.Transaction) > 0 {
		rawTxn, err := base64.StdEncoding.DecodeString(resp.Transaction[0])
		if err != nil {
			return txn, errors.Wrap(err, "failed to decode transaction")
		}
		if err := txn.Transaction.Unmarshal(rawTxn); err != nil {
			return txn, errors.Wrap(err, "failed to unmarshal transaction")
		}
	}

	if resp.Meta != nil {
		var err error
		txn.Err, err = ParseTransactionError(resp.Meta.Err)
		if err != nil {
			return txn, errors.Wrap(err, "failed to parse transaction result")
		}
	}

	return txn, nil
}

func (c *client) GetTokenAccountBalance(ctx context.Context, account ed25519.PublicKey) (uint64, error) {
	var resp struct {
		Value struct {
			Amount string `json:"amount"`
		} `json:"value"`
	}
	if err := c.call(ctx, &resp, "getTokenAccountBalance", base58.Encode(account[:]), CommitmentFinalized); err != nil {
		jsonRPCErr, ok := errors.Cause(err).(*jsonrpc.RPCError)
		if ok && jsonRPCErr.Code == invalidParamCode {
			return 0, ErrNoBalance
		}

		return 0, errors.Wrapf(err, "getTokenAccountBalance() failed to send request")
	}

	quarks, err := strconv.ParseUint(resp.Value.Amount, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid value in response")
	}

	return quarks, nil
}

func (c *client) SubmitTransaction(ctx context.Context, txn Transaction, commitment Commitment) (Signature, error) {
	sig := txn.Signature()
	txnBytes := txn.Marshal()

	config := struct {
		SkipPreflight       bool   `json:"skipPreflight"`
		PreflightCommitment string `json:"preflightCommitment"`
	}{
		SkipPreflight:       true,
		PreflightCommitment: commitment.Commitment,
	}

	var sigStr string
	err := c.call(ctx, &sigStr, "sendTransaction", base58.Encode(txnBytes), config)
	if err == nil {
		return sig, nil
	}

	jsonRPCErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return sig, errors.Wrapf(err, "sendTransaction() failed to send request")
	}

	txResult, parseErr := ParseRPCError(jsonRPCErr)
	if parseErr != nil || txResult == nil {
		return sig, errors.Wrap(err, "sendTransaction() rejected")
	}

	return sig, txResult
}

func (c *client) GetAccountInfo(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (accountInfo AccountInfo, err error) {
	type rpcResponse struct {
		Value *struct {
			Lamports   uint64   `json:"lamports"`
			Owner      string   `json:"owner"`
			Data       []string `json:"data"`
			Executable bool     `json:"executable"`
		} `json:"value"`
	}

	rpcConfig := struct {
		Commitment string `json:"commitment"`
		Encoding   string `json:"encoding"`
	}{
		Commitment: commitment.Commitment,
		Encoding:   "base64",
	}

	var resp rpcResponse
	if err := c.call(ctx, &resp, "getAccountInfo", base58.Encode(account[:]), rpcConfig); err != nil {
		return accountInfo, errors.Wrap(err, "getAccountInfo() failed to send request")
	}

	if resp.Value == nil {
		return accountInfo, ErrNoAccountInfo
	}

	accountInfo.Owner, err = base58.Decode(resp.Value.Owner)
	if err != nil {
		return accountInfo, errors.Wrap(err, "invalid base58 encoded owner")
	}

	if len(resp.Value.Data) > 0 {
		accountInfo.Data, err = base64.StdEncoding.DecodeString(resp.Value.Data[0])
		if err != nil {
			return accountInfo, errors.Wrap(err, "invalid base64 encoded data")
		}
	}

	accountInfo.Lamports = resp.Value.Lamports
	accountInfo.Executable = resp.Value.Executable

	return accountInfo, nil
}

func (c *client) GetSignatureStatuses(ctx context.Context, sigs []Signature, searchTransactionHistory bool) ([]*SignatureStatus, error) {
	b58Sigs := make([]string, len(sigs))
	for i := range sigs {
		b58Sigs[i] = base58.Encode(sigs[i][:])
	}

	req := struct {
		SearchTransactionHistory bool `json:"searchTransactionHistory"`
	}{
		SearchTransactionHistory: searchTransactionHistory,
	}

	type signatureStatus struct {
		Slot               uint64          `json:"slot"`
		Confirmations      *int            `json:"confirmations"`
		ConfirmationStatus string          `json:"confirmationStatus"`
		Err                json.RawMessage `json:"err"`
	}

	type rpcResp struct {
		Value []*signatureStatus `json:"value"`
	}

	var resp rpcResp
	if err := c.call(ctx, &resp, "getSignatureStatuses", b58Sigs, req); err != nil {
		return nil, errors.Wrap(err, "getSignatureStatuses() failed to send request")
	}

	statuses := make([]*SignatureStatus, len(sigs))
	for i, v := range resp.Value {
		if v == nil || i >= len(statuses) {
			continue
		}

		statuses[i] = &SignatureStatus{
			Slot:               v.Slot,
			Confirmations:      v.Confirmations,
			ConfirmationStatus: v.ConfirmationStatus,
		}

		if len(v.Err) > 0 && !bytes.Equal(v.Err, []byte("null")) {
			var txError interface{}
			if err := json.NewDecoder(bytes.NewBuffer(v.Err)).Decode(&txError); err != nil {
				return nil, errors.Wrap(err, "failed to parse transaction result")
			}

			var err error
			statuses[i].ErrorResult, err = ParseTransactionError(txError)
			if err != nil {
				return nil, errors.Wrap(err, "failed to parse transaction result")
			}
		}
	}

	return statuses, nil
}
