package issuance

import (
	"fmt"
	"strings"

	"github.com/mr-tron/base58/base58"

	"github.com/code-payments/code-launchpad/pkg/solana"
)

// MissingSignaturesError lists required signers whose signature is absent
// or does not verify. It is fatal and never retried.
type MissingSignaturesError struct {
	Missing []string
	Invalid []string
}

func (e *MissingSignaturesError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing signatures for [%s]", strings.Join(e.Missing, ", ")))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, fmt.Sprintf("invalid signatures for [%s]", strings.Join(e.Invalid, ", ")))
	}
	return strings.Join(parts, "; ")
}

// VerifySignatures checks that every account the message marks as a signer
// has a non-zero signature that verifies against the message.
func VerifySignatures(txn *solana.Transaction) error {
	var missing, invalid []string
	for i, signer := range txn.RequiredSigners() {
		address := base58.Encode(signer)

		if i >= len(txn.Signatures) || txn.Signatures[i].IsZero() {
			missing = append(missing, address)
			continue
		}

		if !txn.VerifySignature(i) {
			invalid = append(invalid, address)
		}
	}

	if len(missing) > 0 || len(invalid) > 0 {
		return &MissingSignaturesError{
			Missing: missing,
			Invalid: invalid,
		}
	}
	return nil
}
