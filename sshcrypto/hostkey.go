package sshcrypto

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"errors"
	"math/big"

	"blitter.com/go/sshd/wire"
)

// ErrUnknownHostKeyAlgorithm is returned when a requested host-key
// algorithm name has no implementation in this package.
var ErrUnknownHostKeyAlgorithm = errors.New("sshcrypto: unknown host key algorithm")

// Signer is implemented by every host-key type this package supports.
// PublicKeyBlob and Sign both return data in the exact wire encoding
// RFC 4253 §6.6 specifies for the key's algorithm.
type Signer interface {
	Algorithm() string
	PublicKeyBlob() []byte
	Sign(data []byte) ([]byte, error)
}

// HostKeyNames lists every host-key algorithm this package supports.
func HostKeyNames() []string {
	return []string{"ssh-ed25519", "ssh-rsa"}
}

// ed25519Signer implements Signer for "ssh-ed25519".
type ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewEd25519Signer wraps an Ed25519 private key as a Signer.
func NewEd25519Signer(priv ed25519.PrivateKey) Signer {
	return &ed25519Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey)}
}

// GenerateEd25519Signer creates a fresh Ed25519 host key, for use when
// no persistent host key file is supplied.
func GenerateEd25519Signer() (Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &ed25519Signer{priv: priv, pub: pub}, nil
}

func (s *ed25519Signer) Algorithm() string { return "ssh-ed25519" }

func (s *ed25519Signer) PublicKeyBlob() []byte {
	var buf []byte
	buf = wire.PutStringFromText(buf, "ssh-ed25519")
	buf = wire.PutString(buf, s.pub)
	return buf
}

func (s *ed25519Signer) Sign(data []byte) ([]byte, error) {
	sig := ed25519.Sign(s.priv, data)
	var buf []byte
	buf = wire.PutStringFromText(buf, "ssh-ed25519")
	buf = wire.PutString(buf, sig)
	return buf, nil
}

// rsaSigner implements Signer for "ssh-rsa" (RSASSA-PKCS1-v1_5 / SHA-1,
// per the algorithm name's historical binding in RFC 4253 §6.6).
type rsaSigner struct {
	priv *rsa.PrivateKey
}

// NewRSASigner wraps an RSA private key as a Signer.
func NewRSASigner(priv *rsa.PrivateKey) Signer {
	return &rsaSigner{priv: priv}
}

// GenerateRSASigner creates a fresh RSA host key of the given bit size.
func GenerateRSASigner(bits int) (Signer, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return &rsaSigner{priv: priv}, nil
}

func (s *rsaSigner) Algorithm() string { return "ssh-rsa" }

func (s *rsaSigner) PublicKeyBlob() []byte {
	var buf []byte
	buf = wire.PutStringFromText(buf, "ssh-rsa")
	buf = wire.PutMpint(buf, big.NewInt(int64(s.priv.PublicKey.E)))
	buf = wire.PutMpint(buf, s.priv.PublicKey.N)
	return buf
}

func (s *rsaSigner) Sign(data []byte) ([]byte, error) {
	digest := sha1.Sum(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.priv, crypto.SHA1, digest[:])
	if err != nil {
		return nil, err
	}
	var buf []byte
	buf = wire.PutStringFromText(buf, "ssh-rsa")
	buf = wire.PutString(buf, sig)
	return buf, nil
}
