package issuance

import (
	"context"

	"github.com/pkg/errors"

	"github.com/code-payments/code-launchpad/pkg/launchpad/common"
	"github.com/code-payments/code-launchpad/pkg/solana"
)

// WalletSigner adds the creator's signature to a transaction. It is the
// capability of an external wallet.
type WalletSigner interface {
	SignTransaction(ctx context.Context, txn *solana.Transaction) error
}

// WalletSignerFunc adapts a function to WalletSigner.
type WalletSignerFunc func(ctx context.Context, txn *solana.Transaction) error

func (f WalletSignerFunc) SignTransaction(ctx context.Context, txn *solana.Transaction) error {
	return f(ctx, txn)
}

// KeypairSigner signs with a locally held private key.
type KeypairSigner struct {
	account *common.Account
}

func NewKeypairSigner(account *common.Account) (*KeypairSigner, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}
	if account.PrivateKey() == nil {
		return nil, errors.New("keypair signer requires a private key")
	}
	return &KeypairSigner{account: account}, nil
}

func (s *KeypairSigner) Account() *common.Account {
	return s.account
}

func (s *KeypairSigner) SignTransaction(ctx context.Context, txn *solana.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.account.SignTransaction(txn)
}
