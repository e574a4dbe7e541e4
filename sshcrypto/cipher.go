// Package sshcrypto wires together the concrete cryptographic
// algorithms a negotiated SSH session may use: ciphers, MACs, host-key
// signers, and KEX primitives. Algorithm selection is a plain switch on
// the IANA-registered name, the same shape xsnet used to pick a stream
// cipher from a numeric option field.
package sshcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

// ErrUnknownCipher is returned by NewCipher for an unrecognized name.
var ErrUnknownCipher = errors.New("sshcrypto: unknown cipher algorithm")

// CipherSpec describes a negotiated cipher's key/IV/block requirements.
type CipherSpec struct {
	KeySize   int
	IVSize    int
	BlockSize int
}

var cipherSpecs = map[string]CipherSpec{
	"aes128-ctr": {KeySize: 16, IVSize: aes.BlockSize, BlockSize: aes.BlockSize},
	"aes192-ctr": {KeySize: 24, IVSize: aes.BlockSize, BlockSize: aes.BlockSize},
	"aes256-ctr": {KeySize: 32, IVSize: aes.BlockSize, BlockSize: aes.BlockSize},
	"none":       {KeySize: 0, IVSize: 0, BlockSize: 8},
}

// CipherNames lists every cipher algorithm this package supports, in
// the order a server should prefer them (strongest first, "none" last).
func CipherNames() []string {
	return []string{"aes256-ctr", "aes192-ctr", "aes128-ctr", "none"}
}

// Spec returns the key/IV/block sizing for a named cipher.
func Spec(name string) (CipherSpec, error) {
	spec, ok := cipherSpecs[name]
	if !ok {
		return CipherSpec{}, ErrUnknownCipher
	}
	return spec, nil
}

// NewCipher constructs a cipher.Stream for the named algorithm, keyed
// and IV'd from the supplied key-derivation output. "none" returns a
// passthrough stream (valid only before the first rekey completes, and
// only when the negotiation explicitly agreed to it).
func NewCipher(name string, key, iv []byte) (cipher.Stream, error) {
	switch name {
	case "aes128-ctr", "aes192-ctr", "aes256-ctr":
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewCTR(block, iv), nil
	case "none":
		return noneStream{}, nil
	default:
		return nil, ErrUnknownCipher
	}
}

// noneStream implements cipher.Stream as a no-op, for the "none" cipher.
type noneStream struct{}

func (noneStream) XORKeyStream(dst, src []byte) {
	copy(dst, src)
}
