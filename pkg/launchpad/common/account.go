package common

import (
	"crypto/ed25519"

	"filippo.io/edwards25519"
	"github.com/pkg/errors"

	"github.com/code-payments/code-launchpad/pkg/solana"
	"github.com/code-payments/code-launchpad/pkg/solana/metadata"
	"github.com/code-payments/code-launchpad/pkg/solana/token"
)

// Account is a ledger address, optionally holding the private key that
// controls it.
type Account struct {
	publicKey  *Key
	privateKey *Key // Optional
}

func NewAccountFromPublicKey(publicKey *Key) (*Account, error) {
	account := &Account{
		publicKey: publicKey,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

func NewAccountFromPublicKeyBytes(publicKey []byte) (*Account, error) {
	key, err := NewKeyFromBytes(publicKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPublicKey(key)
}

func NewAccountFromPublicKeyString(publicKey string) (*Account, error) {
	key, err := NewKeyFromString(publicKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPublicKey(key)
}

func NewAccountFromPrivateKey(privateKey *Key) (*Account, error) {
	if privateKey.IsPublic() {
		return nil, errors.New("private key isn't private")
	}

	publicKey, err := privateKey.Public()
	if err != nil {
		return nil, errors.Wrap(err, "error creating public key from private key")
	}

	account := &Account{
		publicKey:  publicKey,
		privateKey: privateKey,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

func NewAccountFromPrivateKeyBytes(privateKey []byte) (*Account, error) {
	key, err := NewKeyFromBytes(privateKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPrivateKey(key)
}

func NewAccountFromPrivateKeyString(privateKey string) (*Account, error) {
	key, err := NewKeyFromString(privateKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPrivateKey(key)
}

// NewAccountFromSeed deterministically derives a keypair from a 32 byte seed.
func NewAccountFromSeed(seed []byte) (*Account, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.Errorf("seed must be %d bytes", ed25519.SeedSize)
	}

	return NewAccountFromPrivateKeyBytes(ed25519.NewKeyFromSeed(seed))
}

func NewRandomAccount() (*Account, error) {
	key, err := NewRandomKey()
	if err != nil {
		return nil, err
	}

	account, err := NewAccountFromPrivateKey(key)
	if err != nil {
		return nil, errors.Wrap(err, "invalid account")
	}

	return account, nil
}

func (a *Account) PublicKey() *Key {
	return a.publicKey
}

func (a *Account) PrivateKey() *Key {
	return a.privateKey
}

// Signer returns the private key in the form consumed by solana.Transaction.Sign.
func (a *Account) Signer() (ed25519.PrivateKey, error) {
	if a.privateKey == nil {
		return nil, errors.New("private key not available")
	}
	return ed25519.PrivateKey(a.privateKey.ToBytes()), nil
}

func (a *Account) Sign(message []byte) ([]byte, error) {
	signer, err := a.Signer()
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(signer, message), nil
}

// SignTransaction adds this account's signature to txn.
func (a *Account) SignTransaction(txn *solana.Transaction) error {
	signer, err := a.Signer()
	if err != nil {
		return err
	}
	return txn.Sign(signer)
}

func (a *Account) ToAssociatedTokenAccount(mint *Account) (*Account, error) {
	if err := a.Validate(); err != nil {
		return nil, errors.Wrap(err, "error validating owner account")
	}

	ata, err := token.GetAssociatedAccount(a.PublicKey().ToBytes(), mint.PublicKey().ToBytes())
	if err != nil {
		return nil, errors.Wrap(err, "error getting associated token account")
	}

	return NewAccountFromPublicKeyBytes(ata)
}

// ToMetadataAccount returns the token metadata address of a mint.
func (a *Account) ToMetadataAccount() (*Account, error) {
	address, err := metadata.GetMetadataAddress(a.PublicKey().ToBytes())
	if err != nil {
		return nil, errors.Wrap(err, "error getting metadata address")
	}

	return NewAccountFromPublicKeyBytes(address)
}

// IsOnCurve reports whether the public key is a valid ed25519 point, which is
// true for wallets and false for program derived addresses.
func (a *Account) IsOnCurve() bool {
	return isOnCurve(a.PublicKey().ToBytes())
}

func (a *Account) Validate() error {
	if a == nil {
		return errors.New("account is nil")
	}

	if err := a.PublicKey().Validate(); err != nil {
		return errors.Wrap(err, "error validating public key")
	}

	if !a.PublicKey().IsPublic() {
		return errors.New("public key isn't public")
	}

	// Private keys are optional
	if a.privateKey == nil {
		return nil
	}

	if err := a.privateKey.Validate(); err != nil {
		return errors.Wrap(err, "error validating private key")
	}

	if a.privateKey.IsPublic() {
		return errors.New("private key isn't private")
	}

	expectedPublicKey, err := a.privateKey.Public()
	if err != nil {
		return errors.Wrap(err, "error deriving public key")
	}
	if !a.PublicKey().Equal(expectedPublicKey) {
		return errors.New("private key doesn't map to public key")
	}

	return nil
}

func (a *Account) String() string {
	return a.PublicKey().ToBase58()
}

func isOnCurve(pubKey ed25519.PublicKey) bool {
	if len(pubKey) != ed25519.PublicKeySize {
		return false
	}

	_, err := new(edwards25519.Point).SetBytes(pubKey)
	return err == nil
}
