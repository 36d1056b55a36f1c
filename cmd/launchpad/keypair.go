package main

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/code-payments/code-launchpad/pkg/app"
	"github.com/code-payments/code-launchpad/pkg/launchpad/common"
)

// loadKeypair reads a keypair file in either the solana-keygen JSON byte
// array format or as a base58 private key.
func loadKeypair(fileURL string) (*common.Account, error) {
	data, err := app.LoadFile(fileURL)
	if err != nil {
		return nil, errors.Wrap(err, "error reading keypair")
	}
	return parseKeypair(data)
}

func parseKeypair(data []byte) (*common.Account, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("keypair is empty")
	}

	if data[0] == '[' {
		var values []int
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, errors.Wrap(err, "invalid keypair json")
		}
		if len(values) != ed25519.PrivateKeySize {
			return nil, errors.Errorf("keypair has %d bytes, expected %d", len(values), ed25519.PrivateKeySize)
		}

		raw := make([]byte, len(values))
		for i, v := range values {
			if v < 0 || v > 255 {
				return nil, errors.Errorf("keypair byte %d is out of range", i)
			}
			raw[i] = byte(v)
		}
		return common.NewAccountFromPrivateKeyBytes(raw)
	}

	return common.NewAccountFromPrivateKeyString(string(data))
}
