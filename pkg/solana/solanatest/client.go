// Package solanatest provides an in-memory solana.Client for tests.
package solanatest

import (
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/mr-tron/base58/base58"

	"github.com/code-payments/code-launchpad/pkg/solana"
)

// Client is an in-memory solana.Client. The zero value is not usable, use
// NewClient.
type Client struct {
	sync.Mutex

	// OnSubmit, when set, is invoked for every submitted transaction and its
	// error is returned to the submitter. It is called without the lock held.
	OnSubmit func(c *Client, txn solana.Transaction) error

	// AutoFinalize marks every accepted submission as finalized.
	AutoFinalize bool

	Blockhash    solana.Blockhash
	RentLamports uint64

	accounts     map[string]solana.AccountInfo
	balances     map[string]uint64
	statuses     map[solana.Signature]*solana.SignatureStatus
	transactions map[solana.Signature]solana.ConfirmedTransaction
	errors       map[string]error
	calls        map[string]int
	submitted    []solana.Transaction
}

var _ solana.Client = (*Client)(nil)

func NewClient() *Client {
	return &Client{
		Blockhash:    solana.Blockhash{1, 2, 3},
		RentLamports: 1461600,
		accounts:     make(map[string]solana.AccountInfo),
		balances:     make(map[string]uint64),
		statuses:     make(map[solana.Signature]*solana.SignatureStatus),
		transactions: make(map[solana.Signature]solana.ConfirmedTransaction),
		errors:       make(map[string]error),
		calls:        make(map[string]int),
	}
}

// SetError makes every call to method fail with err. A nil err clears it.
func (c *Client) SetError(method string, err error) {
	c.Lock()
	defer c.Unlock()

	if err == nil {
		delete(c.errors, method)
		return
	}
	c.errors[method] = err
}

func (c *Client) SetAccount(account ed25519.PublicKey, info solana.AccountInfo) {
	c.Lock()
	defer c.Unlock()

	c.accounts[base58.Encode(account)] = info
}

func (c *Client) SetTokenBalance(account ed25519.PublicKey, balance uint64) {
	c.Lock()
	defer c.Unlock()

	c.balances[base58.Encode(account)] = balance
}

func (c *Client) SetSignatureStatus(sig solana.Signature, status *solana.SignatureStatus) {
	c.Lock()
	defer c.Unlock()

	if status == nil {
		delete(c.statuses, sig)
		return
	}
	c.statuses[sig] = status
}

func (c *Client) SetTransaction(sig solana.Signature, txn solana.ConfirmedTransaction) {
	c.Lock()
	defer c.Unlock()

	c.transactions[sig] = txn
}

// Submitted returns every transaction accepted by SubmitTransaction.
func (c *Client) Submitted() []solana.Transaction {
	c.Lock()
	defer c.Unlock()

	res := make([]solana.Transaction, len(c.submitted))
	copy(res, c.submitted)
	return res
}

// Calls returns the number of times method was invoked.
func (c *Client) Calls(method string) int {
	c.Lock()
	defer c.Unlock()

	return c.calls[method]
}

func (c *Client) begin(ctx context.Context, method string) error {
	c.calls[method]++

	if err := ctx.Err(); err != nil {
		return err
	}
	return c.errors[method]
}

func (c *Client) GetAccountInfo(ctx context.Context, account ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	c.Lock()
	defer c.Unlock()

	if err := c.begin(ctx, "GetAccountInfo"); err != nil {
		return solana.AccountInfo{}, err
	}

	info, ok := c.accounts[base58.Encode(account)]
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}
	return info, nil
}

func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, _ uint64) (uint64, error) {
	c.Lock()
	defer c.Unlock()

	if err := c.begin(ctx, "GetMinimumBalanceForRentExemption"); err != nil {
		return 0, err
	}
	return c.RentLamports, nil
}

func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Blockhash, error) {
	c.Lock()
	defer c.Unlock()

	if err := c.begin(ctx, "GetLatestBlockhash"); err != nil {
		return solana.Blockhash{}, err
	}
	return c.Blockhash, nil
}

func (c *Client) GetSignatureStatuses(ctx context.Context, sigs []solana.Signature, _ bool) ([]*solana.SignatureStatus, error) {
	c.Lock()
	defer c.Unlock()

	if err := c.begin(ctx, "GetSignatureStatuses"); err != nil {
		return nil, err
	}

	res := make([]*solana.SignatureStatus, len(sigs))
	for i, sig := range sigs {
		if status, ok := c.statuses[sig]; ok {
			cloned := *status
			res[i] = &cloned
		}
	}
	return res, nil
}

func (c *Client) GetTransaction(ctx context.Context, sig solana.Signature, _ solana.Commitment) (solana.ConfirmedTransaction, error) {
	c.Lock()
	defer c.Unlock()

	if err := c.begin(ctx, "GetTransaction"); err != nil {
		return solana.ConfirmedTransaction{}, err
	}

	txn, ok := c.transactions[sig]
	if !ok {
		return solana.ConfirmedTransaction{}, solana.ErrSignatureNotFound
	}
	return txn, nil
}

func (c *Client) GetTokenAccountBalance(ctx context.Context, account ed25519.PublicKey) (uint64, error) {
	c.Lock()
	defer c.Unlock()

	if err := c.begin(ctx, "GetTokenAccountBalance"); err != nil {
		return 0, err
	}

	balance, ok := c.balances[base58.Encode(account)]
	if !ok {
		return 0, solana.ErrNoBalance
	}
	return balance, nil
}

func (c *Client) SubmitTransaction(ctx context.Context, txn solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	c.Lock()
	if err := c.begin(ctx, "SubmitTransaction"); err != nil {
		c.Unlock()
		return txn.Signature(), err
	}
	onSubmit := c.OnSubmit
	c.Unlock()

	if onSubmit != nil {
		if err := onSubmit(c, txn); err != nil {
			return txn.Signature(), err
		}
	}

	c.Lock()
	defer c.Unlock()

	c.submitted = append(c.submitted, txn)
	if c.AutoFinalize {
		c.statuses[txn.Signature()] = &solana.SignatureStatus{
			ConfirmationStatus: "finalized",
		}
	}
	return txn.Signature(), nil
}

// Waiter is a solana.SignatureWaiter that returns Err after consulting the
// optional Func.
type Waiter struct {
	sync.Mutex

	Err   error
	Func  func(ctx context.Context, sig solana.Signature) error
	calls int
}

var _ solana.SignatureWaiter = (*Waiter)(nil)

func (w *Waiter) WaitForSignature(ctx context.Context, sig solana.Signature, _ solana.Commitment) error {
	w.Lock()
	w.calls++
	fn, err := w.Func, w.Err
	w.Unlock()

	if fn != nil {
		return fn(ctx, sig)
	}
	return err
}

func (w *Waiter) Calls() int {
	w.Lock()
	defer w.Unlock()

	return w.calls
}
