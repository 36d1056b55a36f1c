package token

import (
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-launchpad/pkg/solana"
	"github.com/code-payments/code-launchpad/pkg/solana/system"
)

func TestGetAssociatedAccount(t *testing.T) {
	// Reference values from the spl-associated-token-account program.
	wallet := mustDecode(t, "4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM")
	mint := mustDecode(t, "8opHzTAnfzRpPEx21XtnrVTX28YQuCpAjcn1PczScKh")
	expected := mustDecode(t, "H7MQwEzt97tUJryocn3qaEoy2ymWstwyEk1i9Yv3EmuZ")

	actual, err := GetAssociatedAccount(wallet, mint)
	require.NoError(t, err)
	assert.EqualValues(t, expected, actual)

	// Derivation is per mint.
	other, err := GetAssociatedAccount(wallet, wallet)
	require.NoError(t, err)
	assert.NotEqualValues(t, expected, other)
}

func TestCreateAssociatedAccount_Variants(t *testing.T) {
	for _, tc := range []struct {
		name      string
		command   byte
		create    func(subsidizer, wallet, mint []byte) (solana.Instruction, []byte, error)
		decompile func(solana.Message, int) (*DecompiledCreateAssociatedAccount, error)
	}{
		{
			name:    "create",
			command: commandCreate,
			create: func(s, w, m []byte) (solana.Instruction, []byte, error) {
				return CreateAssociatedTokenAccount(s, w, m)
			},
			decompile: DecompileCreateAssociatedAccount,
		},
		{
			name:    "idempotent",
			command: commandCreateIdempotent,
			create: func(s, w, m []byte) (solana.Instruction, []byte, error) {
				return CreateAssociatedTokenAccountIdempotent(s, w, m)
			},
			decompile: DecompileCreateAssociatedAccountIdempotent,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			keys := generateKeys(t, 3)
			payer, wallet, mint := keys[0], keys[1], keys[2]

			expectedAddr, err := GetAssociatedAccount(wallet, mint)
			require.NoError(t, err)

			instruction, addr, err := tc.create(payer, wallet, mint)
			require.NoError(t, err)
			assert.EqualValues(t, expectedAddr, addr)
			assert.Equal(t, []byte{tc.command}, instruction.Data)

			require.Len(t, instruction.Accounts, 7)
			assert.EqualValues(t, payer, instruction.Accounts[0].PublicKey)
			assert.True(t, instruction.Accounts[0].IsSigner)
			assert.True(t, instruction.Accounts[0].IsWritable)
			assert.EqualValues(t, expectedAddr, instruction.Accounts[1].PublicKey)
			assert.True(t, instruction.Accounts[1].IsWritable)
			for _, meta := range instruction.Accounts[2:] {
				assert.False(t, meta.IsSigner)
				assert.False(t, meta.IsWritable)
			}
			assert.EqualValues(t, system.ProgramKey[:], instruction.Accounts[4].PublicKey)
			assert.EqualValues(t, ProgramKey, instruction.Accounts[5].PublicKey)
			assert.EqualValues(t, system.RentSysVar, instruction.Accounts[6].PublicKey)

			decompiled, err := tc.decompile(solana.NewTransaction(payer, instruction).Message, 0)
			require.NoError(t, err)
			assert.EqualValues(t, payer, decompiled.Subsidizer)
			assert.EqualValues(t, wallet, decompiled.Owner)
			assert.EqualValues(t, mint, decompiled.Mint)
		})
	}
}

func TestDecompileCreateAssociatedAccount_WrongCommand(t *testing.T) {
	keys := generateKeys(t, 3)

	instruction, _, err := CreateAssociatedTokenAccount(keys[0], keys[1], keys[2])
	require.NoError(t, err)

	_, err = DecompileCreateAssociatedAccountIdempotent(solana.NewTransaction(keys[0], instruction).Message, 0)
	assert.Error(t, err)
}

func mustDecode(t *testing.T, s string) []byte {
	b, err := base58.Decode(s)
	require.NoError(t, err)
	return b
}
