package metadata

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/code-launchpad/pkg/solana"
)

// ProgramKey is the address of the Metaplex token metadata program.
//
// Current key: metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s
var ProgramKey = ed25519.PublicKey(mustBase58Decode("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"))

// Field limits enforced by the metadata program.
//
// Reference: https://github.com/metaplex-foundation/mpl-token-metadata/blob/main/programs/token-metadata/program/src/state/mod.rs
const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
)

var (
	ErrNameTooLong   = errors.New("metadata name too long")
	ErrSymbolTooLong = errors.New("metadata symbol too long")
	ErrURITooLong    = errors.New("metadata uri too long")
)

var metadataPrefix = []byte("metadata")

// GetMetadataAddress returns the metadata account for a mint.
func GetMetadataAddress(mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	address, _, err := GetMetadataAddressAndBump(mint)
	return address, err
}

func GetMetadataAddressAndBump(mint ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		ProgramKey,
		metadataPrefix,
		ProgramKey,
		mint,
	)
}

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
