package message

import "blitter.com/go/sshd/wire"

// KexDHGexRequest asks the server to pick a DH group within the given
// bit-length bounds (RFC 4419).
type KexDHGexRequest struct {
	Min, Preferred, Max uint32
}

func (m KexDHGexRequest) MsgID() byte { return MsgKexDHGexRequest }
func (m KexDHGexRequest) Marshal() []byte {
	buf := header(MsgKexDHGexRequest)
	buf = wire.PutUint32(buf, m.Min)
	buf = wire.PutUint32(buf, m.Preferred)
	buf = wire.PutUint32(buf, m.Max)
	return buf
}

func unmarshalKexDHGexRequest(body []byte) (Message, error) {
	min, rest, err := wire.Uint32(body)
	if err != nil {
		return nil, err
	}
	pref, rest, err := wire.Uint32(rest)
	if err != nil {
		return nil, err
	}
	max, _, err := wire.Uint32(rest)
	if err != nil {
		return nil, err
	}
	return KexDHGexRequest{Min: min, Preferred: pref, Max: max}, nil
}

// unmarshalKexDHGexRequestOld parses the legacy KEX_DH_GEX_REQUEST_OLD
// body (RFC 4419 §5): a single uint32 naming the preferred group size,
// with no min/max bounds. It decodes under message id 30, the same id
// KEXDH_INIT uses outside a GEX exchange; VocabDHGEX is what tells
// Decode which shape applies. Min and Max are left zero, which is how
// the engine recognizes an old-style request.
func unmarshalKexDHGexRequestOld(body []byte) (Message, error) {
	n, _, err := wire.Uint32(body)
	if err != nil {
		return nil, err
	}
	return KexDHGexRequest{Preferred: n}, nil
}

// KexDHGexGroup announces the chosen DH group's prime and generator.
type KexDHGexGroup struct {
	P, G []byte // mpint-encoded bytes, as read; see wire.Mpint for decoding
}

func (m KexDHGexGroup) MsgID() byte { return 31 }
func (m KexDHGexGroup) Marshal() []byte {
	buf := header(31)
	buf = wire.PutString(buf, m.P)
	buf = wire.PutString(buf, m.G)
	return buf
}

func unmarshalKexDHGexGroup(body []byte) (Message, error) {
	p, rest, err := wire.String(body)
	if err != nil {
		return nil, err
	}
	g, _, err := wire.String(rest)
	if err != nil {
		return nil, err
	}
	return KexDHGexGroup{P: p, G: g}, nil
}

// KexDHGexInit carries the client's ephemeral public key share for a
// DH-GEX exchange.
type KexDHGexInit struct {
	E []byte
}

func (m KexDHGexInit) MsgID() byte { return MsgKexDHGexInit }
func (m KexDHGexInit) Marshal() []byte {
	return wire.PutString(header(MsgKexDHGexInit), m.E)
}

func unmarshalKexDHGexInit(body []byte) (Message, error) {
	e, _, err := wire.String(body)
	if err != nil {
		return nil, err
	}
	return KexDHGexInit{E: e}, nil
}

// KexDHGexReply carries the server's host key, ephemeral public key
// share, and exchange-hash signature for a DH-GEX exchange.
type KexDHGexReply struct {
	HostKeyBlob []byte
	F           []byte
	Signature   []byte
}

func (m KexDHGexReply) MsgID() byte { return MsgKexDHGexReply }
func (m KexDHGexReply) Marshal() []byte {
	buf := header(MsgKexDHGexReply)
	buf = wire.PutString(buf, m.HostKeyBlob)
	buf = wire.PutString(buf, m.F)
	buf = wire.PutString(buf, m.Signature)
	return buf
}

func unmarshalKexDHGexReply(body []byte) (Message, error) {
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
	return KexDHGexReply{HostKeyBlob: hostKey, F: f, Signature: sig}, nil
}
