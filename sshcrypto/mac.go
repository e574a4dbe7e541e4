package sshcrypto

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"hash"
)

// ErrUnknownMAC is returned by NewMAC for an unrecognized name.
var ErrUnknownMAC = errors.New("sshcrypto: unknown MAC algorithm")

var macSizes = map[string]int{
	"hmac-sha1":    20,
	"hmac-sha2-256": 32,
	"hmac-sha2-512": 64,
	"none":         0,
}

// MACNames lists every MAC algorithm this package supports, strongest
// first, "none" last.
func MACNames() []string {
	return []string{"hmac-sha2-512", "hmac-sha2-256", "hmac-sha1", "none"}
}

// MACSize returns the tag length in bytes for a named MAC algorithm.
func MACSize(name string) (int, error) {
	size, ok := macSizes[name]
	if !ok {
		return 0, ErrUnknownMAC
	}
	return size, nil
}

// NewMAC returns a keyed hash.Hash computing the named MAC. "none"
// returns nil; callers must special-case it rather than call Sum.
func NewMAC(name string, key []byte) (hash.Hash, error) {
	switch name {
	case "hmac-sha1":
		return hmac.New(sha1.New, key), nil
	case "hmac-sha2-256":
		return hmac.New(sha256.New, key), nil
	case "hmac-sha2-512":
		return hmac.New(sha512.New, key), nil
	case "none":
		return nil, nil
	default:
		return nil, ErrUnknownMAC
	}
}

// VerifyMAC reports whether tag matches the MAC of data under the given
// algorithm/key, using a constant-time comparison so the runner never
// leaks timing information about how many leading bytes matched.
func VerifyMAC(name string, key, data, tag []byte) (bool, error) {
	if name == "none" {
		return len(tag) == 0, nil
	}
	h, err := NewMAC(name, key)
	if err != nil {
		return false, err
	}
	h.Write(data)
	expected := h.Sum(nil)
	return hmac.Equal(expected, tag), nil
}
