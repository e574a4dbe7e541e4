package sshcrypto

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha1"
	"errors"

	"blitter.com/go/sshd/wire"
)

// ErrBadSignature is returned by VerifySignature when the public key or
// signature blob is malformed. A well-formed signature that does not
// validate is reported as (false, nil) instead.
var ErrBadSignature = errors.New("sshcrypto: signature verification failed")

// VerifySignature checks a wire-encoded signature blob (as produced by
// Signer.Sign) against a wire-encoded public key blob (as produced by
// Signer.PublicKeyBlob) over data, for publickey/hostbased
// authentication requests. It never returns a partial/"probably" result:
// any malformed input is treated as a failed verification.
func VerifySignature(pubKeyBlob, data, sigBlob []byte) (bool, error) {
	algorithm, rest, err := wire.Text(pubKeyBlob)
	if err != nil {
		return false, err
	}
	sigAlgorithm, sigRest, err := wire.Text(sigBlob)
	if err != nil {
		return false, err
	}
	if sigAlgorithm != algorithm {
		return false, nil
	}

	switch algorithm {
	case "ssh-ed25519":
		pub, _, err := wire.String(rest)
		if err != nil || len(pub) != ed25519.PublicKeySize {
			return false, ErrBadSignature
		}
		sig, _, err := wire.String(sigRest)
		if err != nil || len(sig) != ed25519.SignatureSize {
			return false, ErrBadSignature
		}
		return ed25519.Verify(ed25519.PublicKey(pub), data, sig), nil

	case "ssh-rsa":
		eBig, rest2, err := wire.Mpint(rest)
		if err != nil {
			return false, ErrBadSignature
		}
		nBig, _, err := wire.Mpint(rest2)
		if err != nil {
			return false, ErrBadSignature
		}
		sig, _, err := wire.String(sigRest)
		if err != nil {
			return false, ErrBadSignature
		}
		pub := &rsa.PublicKey{N: nBig, E: int(eBig.Int64())}
		digest := sha1.Sum(data)
		err = rsa.VerifyPKCS1v15(pub, crypto.SHA1, digest[:], sig)
		return err == nil, nil

	default:
		return false, ErrUnknownHostKeyAlgorithm
	}
}
