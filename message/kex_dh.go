package message

import "blitter.com/go/sshd/wire"

// NewKeys signals the sender has switched to the freshly derived keys.
type NewKeys struct{}

func (m NewKeys) MsgID() byte     { return MsgNewKeys }
func (m NewKeys) Marshal() []byte { return header(MsgNewKeys) }

// KexDHInit carries the client's ephemeral public key share, used by
// both plain Diffie-Hellman groups and the curve25519 method (where
// the field holds the client's Curve25519 point instead of an mpint).
type KexDHInit struct {
	E []byte
}

func (m KexDHInit) MsgID() byte { return MsgKexdhInit }
func (m KexDHInit) Marshal() []byte {
	return wire.PutString(header(MsgKexdhInit), m.E)
}

func unmarshalKexDHInit(body []byte) (Message, error) {
	e, _, err := wire.String(body)
	if err != nil {
		return nil, err
	}
	return KexDHInit{E: e}, nil
}

// KexDHReply carries the server's host key, ephemeral public key
// share, and exchange-hash signature.
type KexDHReply struct {
	HostKeyBlob []byte
	F           []byte
	Signature   []byte
}

func (m KexDHReply) MsgID() byte { return 31 }
func (m KexDHReply) Marshal() []byte {
	buf := header(31)
	buf = wire.PutString(buf, m.HostKeyBlob)
	buf = wire.PutString(buf, m.F)
	buf = wire.PutString(buf, m.Signature)
	return buf
}

func unmarshalKexDHReply(body []byte) (Message, error) {
	hostKey, rest, err := wire.String(body)
	if err != nil {
		return nil, err
	}
	f, rest, err := wire.String(rest)
	if err != nil {
		return nil, err
	}
	sig, _, err := wire.String(rest)
	if err != nil {
		return nil, err
	}
	return KexDHReply{HostKeyBlob: hostKey, F: f, Signature: sig}, nil
}
