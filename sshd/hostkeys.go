package sshd

import (
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"

	"blitter.com/go/sshd/sshcrypto"
)

// ErrNoPEMBlock is returned when a host-key file contains no PEM data.
var ErrNoPEMBlock = errors.New("sshd: no PEM block found in host key file")

// LoadHostKeyFile parses a PEM-encoded private key file (PKCS#8, or
// PKCS#1 for RSA) into the matching sshcrypto.Signer. OpenSSH's own
// "OPENSSH PRIVATE KEY" armor is not parsed here: hosts that keep keys
// in that format should convert them once with `ssh-keygen -p -m pem`,
// since decoding that container format is orthogonal to the transport
// engine this package implements.
func LoadHostKeyFile(path string) (sshcrypto.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrNoPEMBlock
	}

	switch block.Type {
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		return signerFromKey(key)
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		return sshcrypto.NewRSASigner(key), nil
	default:
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		return signerFromKey(key)
	}
}

func signerFromKey(key interface{}) (sshcrypto.Signer, error) {
	switch k := key.(type) {
	case ed25519.PrivateKey:
		return sshcrypto.NewEd25519Signer(k), nil
	case *rsa.PrivateKey:
		return sshcrypto.NewRSASigner(k), nil
	default:
		return nil, errors.New("sshd: unsupported private key type in host key file")
	}
}

// GenerateHostKeys creates a fresh Ed25519 and RSA host key pair, for
// use when no persistent host key file is configured.
func GenerateHostKeys() (*HostKeySet, error) {
	set := NewHostKeySet()
	ed, err := sshcrypto.GenerateEd25519Signer()
	if err != nil {
		return nil, err
	}
	set.Add(ed)
	rsaKey, err := sshcrypto.GenerateRSASigner(2048)
	if err != nil {
		return nil, err
	}
	set.Add(rsaKey)
	return set, nil
}
