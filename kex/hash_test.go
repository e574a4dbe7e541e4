package kex

import (
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveKeyLengthAndDistinctSlots(t *testing.T) {
	secret := big.NewInt(424242)
	h := []byte("exchange-hash")
	sessionID := []byte("session-id")

	keyA := DeriveKey(sha256.New, secret, h, SlotEncryptionKeyClientToServer, sessionID, 32)
	keyB := DeriveKey(sha256.New, secret, h, SlotEncryptionKeyServerToClient, sessionID, 32)

	require.Len(t, keyA, 32)
	require.Len(t, keyB, 32)
	require.NotEqual(t, keyA, keyB)
}

func TestDeriveKeyExtendsPastOneHashBlock(t *testing.T) {
	secret := big.NewInt(1)
	h := []byte("h")
	sessionID := []byte("sid")
	// sha256 produces 32 bytes per round; ask for more than that.
	key := DeriveKey(sha256.New, secret, h, SlotIntegrityKeyClientToServer, sessionID, 64)
	require.Len(t, key, 64)
}
