package common

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-launchpad/pkg/solana"
	"github.com/code-payments/code-launchpad/pkg/solana/metadata"
	"github.com/code-payments/code-launchpad/pkg/solana/system"
	"github.com/code-payments/code-launchpad/pkg/solana/token"
)

func TestAccountWithPublicKey(t *testing.T) {
	publicKey, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	fromBytes, err := NewAccountFromPublicKeyBytes(publicKey)
	require.NoError(t, err)

	fromString, err := NewAccountFromPublicKeyString(base58.Encode(publicKey))
	require.NoError(t, err)

	for _, account := range []*Account{fromBytes, fromString} {
		assert.EqualValues(t, publicKey, account.PublicKey().ToBytes())
		assert.Nil(t, account.PrivateKey())
		assert.Equal(t, base58.Encode(publicKey), account.String())

		_, err = account.Sign([]byte("message"))
		assert.Error(t, err)

		_, err = account.Signer()
		assert.Error(t, err)
	}
}

func TestAccountWithPrivateKey(t *testing.T) {
	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	fromBytes, err := NewAccountFromPrivateKeyBytes(privateKey)
	require.NoError(t, err)

	fromString, err := NewAccountFromPrivateKeyString(base58.Encode(privateKey))
	require.NoError(t, err)

	for _, account := range []*Account{fromBytes, fromString} {
		assert.EqualValues(t, publicKey, account.PublicKey().ToBytes())
		assert.EqualValues(t, privateKey, account.PrivateKey().ToBytes())

		message := []byte("message")
		signature, err := account.Sign(message)
		require.NoError(t, err)
		assert.Equal(t, ed25519.Sign(privateKey, message), signature)
	}
}

func TestAccountFromSeed(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 1

	a, err := NewAccountFromSeed(seed)
	require.NoError(t, err)
	b, err := NewAccountFromSeed(seed)
	require.NoError(t, err)
	assert.Equal(t, a.PublicKey().ToBase58(), b.PublicKey().ToBase58())
	assert.EqualValues(t, ed25519.NewKeyFromSeed(seed), a.PrivateKey().ToBytes())

	_, err = NewAccountFromSeed(seed[:16])
	assert.Error(t, err)
}

func TestInvalidAccount(t *testing.T) {
	stringValue := "invalid-account"
	bytesValue := []byte(stringValue)

	_, err := NewAccountFromPublicKeyBytes(bytesValue)
	assert.Error(t, err)

	_, err = NewAccountFromPublicKeyString(stringValue)
	assert.Error(t, err)

	_, err = NewAccountFromPrivateKeyBytes(bytesValue)
	assert.Error(t, err)

	_, err = NewAccountFromPrivateKeyString(stringValue)
	assert.Error(t, err)

	publicKey, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, err = NewAccountFromPrivateKeyBytes(publicKey)
	assert.Error(t, err)
}

func TestSignTransaction(t *testing.T) {
	payer := newRandomTestAccount(t)
	other := newRandomTestAccount(t)

	txn := solana.NewTransaction(
		payer.PublicKey().ToBytes(),
		system.Transfer(payer.PublicKey().ToBytes(), other.PublicKey().ToBytes(), 10),
	)
	require.NoError(t, payer.SignTransaction(&txn))
	assert.True(t, txn.IsSignedBy(payer.PublicKey().ToBytes()))
	assert.True(t, txn.VerifySignature(0))

	publicOnly, err := NewAccountFromPublicKey(other.PublicKey())
	require.NoError(t, err)
	assert.Error(t, publicOnly.SignTransaction(&txn))
}

func TestConvertToAssociatedTokenAccount(t *testing.T) {
	ownerAccount := newRandomTestAccount(t)
	mintAccount := newRandomTestAccount(t)

	expected, err := token.GetAssociatedAccount(ownerAccount.PublicKey().ToBytes(), mintAccount.PublicKey().ToBytes())
	require.NoError(t, err)

	actual, err := ownerAccount.ToAssociatedTokenAccount(mintAccount)
	require.NoError(t, err)
	assert.EqualValues(t, expected, actual.PublicKey().ToBytes())
	assert.False(t, actual.IsOnCurve())
}

func TestConvertToMetadataAccount(t *testing.T) {
	mintAccount := newRandomTestAccount(t)

	expected, err := metadata.GetMetadataAddress(mintAccount.PublicKey().ToBytes())
	require.NoError(t, err)

	actual, err := mintAccount.ToMetadataAccount()
	require.NoError(t, err)
	assert.EqualValues(t, expected, actual.PublicKey().ToBytes())
}

func TestIsOnCurve(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.True(t, newRandomTestAccount(t).IsOnCurve())
	}

	pda, err := solana.FindProgramAddress(token.ProgramKey, []byte("launchpad"))
	require.NoError(t, err)

	account, err := NewAccountFromPublicKeyBytes(pda)
	require.NoError(t, err)
	assert.False(t, account.IsOnCurve())
}

func newRandomTestAccount(t *testing.T) *Account {
	account, err := NewRandomAccount()
	require.NoError(t, err)
	return account
}
