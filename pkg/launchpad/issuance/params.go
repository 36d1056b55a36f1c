package issuance

import (
	"math/bits"
	"unicode/utf8"

	"github.com/pkg/errors"

	solana_metadata "github.com/code-payments/code-launchpad/pkg/solana/metadata"
)

const MaxDecimals = 9

var ErrInvalidInput = errors.New("invalid input")

// Params describe a token to issue. TotalSupply is in whole units.
type Params struct {
	Name        string
	Symbol      string
	Description string

	Image            []byte
	ImageContentType string
	ImageURI         string

	Decimals    uint8
	TotalSupply uint64

	Website  string
	Twitter  string
	Telegram string
}

// Validate returns an error wrapping ErrInvalidInput when the params can't
// produce a valid token.
func (p *Params) Validate() error {
	if p == nil {
		return errors.Wrap(ErrInvalidInput, "params are nil")
	}

	if len(p.Name) == 0 {
		return errors.Wrap(ErrInvalidInput, "name is required")
	}
	if !utf8.ValidString(p.Name) {
		return errors.Wrap(ErrInvalidInput, "name is not valid utf-8")
	}

	if len(p.Symbol) == 0 {
		return errors.Wrap(ErrInvalidInput, "symbol is required")
	}
	if !utf8.ValidString(p.Symbol) {
		return errors.Wrap(ErrInvalidInput, "symbol is not valid utf-8")
	}

	if p.Decimals > MaxDecimals {
		return errors.Wrapf(ErrInvalidInput, "decimals exceed %d", MaxDecimals)
	}

	if p.TotalSupply == 0 {
		return errors.Wrap(ErrInvalidInput, "total supply must be positive")
	}
	if _, err := p.RawSupply(); err != nil {
		return err
	}

	return nil
}

// OnLedgerName is the name carried by the metadata account, capped at the
// program's limit. The off-ledger document keeps the full name.
func (p *Params) OnLedgerName() string {
	return capUTF8(p.Name, solana_metadata.MaxNameLength)
}

// OnLedgerSymbol is the symbol carried by the metadata account, capped at
// the program's limit.
func (p *Params) OnLedgerSymbol() string {
	return capUTF8(p.Symbol, solana_metadata.MaxSymbolLength)
}

// capUTF8 cuts s to at most maxBytes without splitting a character.
func capUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}

// RawSupply is the total supply in base units, TotalSupply * 10^Decimals.
func (p *Params) RawSupply() (uint64, error) {
	raw := p.TotalSupply
	for i := uint8(0); i < p.Decimals; i++ {
		hi, lo := bits.Mul64(raw, 10)
		if hi != 0 {
			return 0, errors.Wrap(ErrInvalidInput, "raw supply overflows u64")
		}
		raw = lo
	}
	return raw, nil
}
