package middleware

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyWalletSignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())

	digest := accounts.TextHash([]byte(LoginMessagePrefix + address))
	sig, err := crypto.Sign(digest, key)
	require.NoError(t, err)
	// Wallets report V as 27/28.
	sig[64] += 27
	sigHex := "0x" + hex.EncodeToString(sig)

	t.Run("valid signature recovers the address", func(t *testing.T) {
		wallet, err := VerifyWalletSignature(address, sigHex)
		require.NoError(t, err)
		assert.Equal(t, address, wallet)
	})

	t.Run("checksum casing of the claim is accepted", func(t *testing.T) {
		wallet, err := VerifyWalletSignature(crypto.PubkeyToAddress(key.PublicKey).Hex(), sigHex)
		require.NoError(t, err)
		assert.Equal(t, address, wallet)
	})

	t.Run("claiming someone else's address fails", func(t *testing.T) {
		other, err := crypto.GenerateKey()
		require.NoError(t, err)
		otherAddr := strings.ToLower(crypto.PubkeyToAddress(other.PublicKey).Hex())

		_, err = VerifyWalletSignature(otherAddr, sigHex)
		assert.Error(t, err)
	})

	t.Run("malformed signature fails", func(t *testing.T) {
		_, err := VerifyWalletSignature(address, "0xdead")
		assert.Error(t, err)

		_, err = VerifyWalletSignature(address, "not-hex")
		assert.Error(t, err)
	})
}
