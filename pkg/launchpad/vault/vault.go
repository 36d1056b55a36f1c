// Package vault derives the deterministic liquidity and community vaults of
// a mint.
package vault

import (
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/pkg/errors"

	"github.com/code-payments/code-launchpad/pkg/launchpad/common"
)

type Purpose string

const (
	PurposeLiquidity Purpose = "liquidity"
	PurposeCommunity Purpose = "community"
)

var (
	ErrEmptySeed      = errors.New("vault seed is empty")
	ErrInvalidPurpose = errors.New("invalid vault purpose")
	ErrInvalidMint    = errors.New("invalid mint address")
)

// Validate returns ErrInvalidPurpose for unknown purposes.
func (p Purpose) Validate() error {
	switch p {
	case PurposeLiquidity, PurposeCommunity:
		return nil
	default:
		return errors.Wrapf(ErrInvalidPurpose, "purpose %q", string(p))
	}
}

// Deriver reproduces vault keypairs from a seed that is fixed for the
// lifetime of the process.
type Deriver struct {
	seed string
}

func NewDeriver(seed string) (*Deriver, error) {
	if len(seed) == 0 {
		return nil, ErrEmptySeed
	}
	return &Deriver{seed: seed}, nil
}

// Derive returns the vault for the purpose and mint, including its private
// key. The key material is sha256("<seed>:<purpose>:<base58 mint>").
func (d *Deriver) Derive(purpose Purpose, mint *common.Account) (*common.Account, error) {
	if err := purpose.Validate(); err != nil {
		return nil, err
	}

	if mint == nil || len(mint.PublicKey().ToBytes()) != ed25519.PublicKeySize {
		return nil, ErrInvalidMint
	}

	material := sha256.Sum256([]byte(d.seed + ":" + string(purpose) + ":" + mint.PublicKey().ToBase58()))

	account, err := common.NewAccountFromSeed(material[:])
	if err != nil {
		return nil, errors.Wrap(err, "error deriving vault keypair")
	}
	return account, nil
}

// DeriveFromAddress is Derive for a base58 encoded mint.
func (d *Deriver) DeriveFromAddress(purpose Purpose, mint string) (*common.Account, error) {
	account, err := common.NewAccountFromPublicKeyString(mint)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidMint, "%q: %v", mint, err)
	}
	return d.Derive(purpose, account)
}

// Vaults are the two derived vaults of a mint.
type Vaults struct {
	Liquidity *common.Account
	Community *common.Account
}

// DeriveAll derives every vault of a mint.
func (d *Deriver) DeriveAll(mint *common.Account) (*Vaults, error) {
	liquidity, err := d.Derive(PurposeLiquidity, mint)
	if err != nil {
		return nil, err
	}

	community, err := d.Derive(PurposeCommunity, mint)
	if err != nil {
		return nil, err
	}

	return &Vaults{
		Liquidity: liquidity,
		Community: community,
	}, nil
}
