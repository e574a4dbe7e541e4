package kex

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"math/big"

	"blitter.com/go/sshd/wire"
)

// HashFunc returns the hash constructor named by a KEX algorithm's
// "-shaN" suffix.
func HashFunc(kexAlgorithm string) func() hash.Hash {
	switch {
	case hasSuffix(kexAlgorithm, "sha512"):
		return sha512.New
	case hasSuffix(kexAlgorithm, "sha256"):
		return sha256.New
	default:
		return sha1.New
	}
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// ExchangeHashInput collects every field the exchange-hash formula
// concatenates. GEX-only fields are left zero for non-GEX families.
type ExchangeHashInput struct {
	ClientVersion       []byte
	ServerVersion       []byte
	ClientKexInitPayload []byte
	ServerKexInitPayload []byte
	ServerHostPublicKey []byte

	// GEX-only; Min/Max are included only when GEXOldStyle is false.
	GEXMin, GEXN, GEXMax uint32
	GEXOldStyle          bool
	GEXActive            bool
	P, G                 *big.Int

	ClientPublic []byte // e or Q_C
	ServerPublic []byte // f or Q_S
	SharedSecret *big.Int
}

// ComputeExchangeHash builds H per RFC 4253 §8 / RFC 4419's field order.
func ComputeExchangeHash(newHash func() hash.Hash, in ExchangeHashInput) []byte {
	h := newHash()
	var buf []byte
	buf = wire.PutString(buf, in.ClientVersion)
	buf = wire.PutString(buf, in.ServerVersion)
	buf = wire.PutString(buf, in.ClientKexInitPayload)
	buf = wire.PutString(buf, in.ServerKexInitPayload)
	buf = wire.PutString(buf, in.ServerHostPublicKey)

	if in.GEXActive {
		if in.GEXOldStyle {
			buf = wire.PutUint32(buf, in.GEXN)
		} else {
			buf = wire.PutUint32(buf, in.GEXMin)
			buf = wire.PutUint32(buf, in.GEXN)
			buf = wire.PutUint32(buf, in.GEXMax)
		}
		buf = wire.PutMpint(buf, in.P)
		buf = wire.PutMpint(buf, in.G)
	}

	buf = wire.PutString(buf, in.ClientPublic)
	buf = wire.PutString(buf, in.ServerPublic)
	buf = wire.PutMpint(buf, in.SharedSecret)

	h.Write(buf)
	return h.Sum(nil)
}

// DerivationSlot names one of the six key-derivation outputs defined
// by RFC 4253 §7.2.
type DerivationSlot byte

const (
	SlotInitialIVClientToServer DerivationSlot = 'A'
	SlotInitialIVServerToClient DerivationSlot = 'B'
	SlotEncryptionKeyClientToServer DerivationSlot = 'C'
	SlotEncryptionKeyServerToClient DerivationSlot = 'D'
	SlotIntegrityKeyClientToServer DerivationSlot = 'E'
	SlotIntegrityKeyServerToClient DerivationSlot = 'F'
)

// DeriveKey implements the K1/Ki recursion of RFC 4253 §7.2, returning
// at least length bytes for the requested slot.
func DeriveKey(newHash func() hash.Hash, sharedSecret *big.Int, exchangeHash []byte, slot DerivationSlot, sessionID []byte, length int) []byte {
	var kBuf []byte
	kBuf = wire.PutMpint(kBuf, sharedSecret)

	k1Input := append(append(append(append([]byte{}, kBuf...), exchangeHash...), byte(slot)), sessionID...)
	h := newHash()
	h.Write(k1Input)
	out := h.Sum(nil)

	for len(out) < length {
		input := append(append([]byte{}, kBuf...), exchangeHash...)
		input = append(input, out...)
		h := newHash()
		h.Write(input)
		out = append(out, h.Sum(nil)...)
	}
	return out[:length]
}
