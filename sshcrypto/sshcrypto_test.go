package sshcrypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	for _, name := range CipherNames() {
		spec, err := Spec(name)
		require.NoError(t, err)
		key := make([]byte, spec.KeySize)
		iv := make([]byte, spec.IVSize)
		for i := range key {
			key[i] = byte(i)
		}
		enc, err := NewCipher(name, key, iv)
		require.NoError(t, err)
		dec, err := NewCipher(name, key, iv)
		require.NoError(t, err)

		plain := []byte("the quick brown fox jumps over the lazy dog....")
		cipherText := make([]byte, len(plain))
		enc.XORKeyStream(cipherText, plain)
		decoded := make([]byte, len(plain))
		dec.XORKeyStream(decoded, cipherText)
		require.Equal(t, plain, decoded, "cipher %s round trip", name)
	}
}

func TestMACRoundTrip(t *testing.T) {
	for _, name := range MACNames() {
		key := []byte("01234567890123456789012345678901234567890123456789012345678901")
		data := []byte("packet contents")
		size, err := MACSize(name)
		require.NoError(t, err)

		var tag []byte
		if name != "none" {
			h, err := NewMAC(name, key)
			require.NoError(t, err)
			h.Write(data)
			tag = h.Sum(nil)
			require.Len(t, tag, size)
		}

		ok, err := VerifyMAC(name, key, data, tag)
		require.NoError(t, err)
		require.True(t, ok)

		if name != "none" {
			tampered := append([]byte{}, tag...)
			tampered[0] ^= 0xFF
			ok, err = VerifyMAC(name, key, data, tampered)
			require.NoError(t, err)
			require.False(t, ok)
		}
	}
}

func TestEd25519SignVerify(t *testing.T) {
	signer, err := GenerateEd25519Signer()
	require.NoError(t, err)

	data := []byte("exchange hash H")
	sig, err := signer.Sign(data)
	require.NoError(t, err)

	ok, err := VerifySignature(signer.PublicKeyBlob(), data, sig)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifySignature(signer.PublicKeyBlob(), []byte("tampered"), sig)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRSASignVerify(t *testing.T) {
	signer, err := GenerateRSASigner(2048)
	require.NoError(t, err)

	data := []byte("exchange hash H")
	sig, err := signer.Sign(data)
	require.NoError(t, err)

	ok, err := VerifySignature(signer.PublicKeyBlob(), data, sig)
	require.NoError(t, err)
	require.True(t, ok)
}
