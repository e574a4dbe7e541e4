package message

import "blitter.com/go/sshd/wire"

// KexInit announces one side's algorithm preferences and begins a key
// exchange (or rekey).
type KexInit struct {
	Cookie                  [16]byte
	KexAlgorithms           []string
	ServerHostKeyAlgorithms []string
	CiphersClientToServer   []string
	CiphersServerToClient   []string
	MACsClientToServer      []string
	MACsServerToClient      []string
	CompressionClientToServer []string
	CompressionServerToClient []string
	LanguagesClientToServer []string
	LanguagesServerToClient []string
	FirstKexPacketFollows  bool
}

func (m KexInit) MsgID() byte { return MsgKexInit }

func (m KexInit) Marshal() []byte {
	buf := header(MsgKexInit)
	buf = append(buf, m.Cookie[:]...)
	buf = wire.PutNameList(buf, m.KexAlgorithms)
	buf = wire.PutNameList(buf, m.ServerHostKeyAlgorithms)
	buf = wire.PutNameList(buf, m.CiphersClientToServer)
	buf = wire.PutNameList(buf, m.CiphersServerToClient)
	buf = wire.PutNameList(buf, m.MACsClientToServer)
	buf = wire.PutNameList(buf, m.MACsServerToClient)
	buf = wire.PutNameList(buf, m.CompressionClientToServer)
	buf = wire.PutNameList(buf, m.CompressionServerToClient)
	buf = wire.PutNameList(buf, m.LanguagesClientToServer)
	buf = wire.PutNameList(buf, m.LanguagesServerToClient)
	buf = wire.PutBoolean(buf, m.FirstKexPacketFollows)
	buf = wire.PutUint32(buf, 0) // reserved
	return buf
}

func unmarshalKexInit(body []byte) (Message, error) {
	var m KexInit
	if len(body) < 16 {
		return nil, wire.ErrShortBuffer
	}
	copy(m.Cookie[:], body[:16])
	rest := body[16:]

	var err error
	fields := []*[]string{
		&m.KexAlgorithms, &m.ServerHostKeyAlgorithms,
		&m.CiphersClientToServer, &m.CiphersServerToClient,
		&m.MACsClientToServer, &m.MACsServerToClient,
		&m.CompressionClientToServer, &m.CompressionServerToClient,
		&m.LanguagesClientToServer, &m.LanguagesServerToClient,
	}
	for _, f := range fields {
		*f, rest, err = wire.NameList(rest)
		if err != nil {
			return nil, err
		}
	}
	m.FirstKexPacketFollows, rest, err = wire.Boolean(rest)
	if err != nil {
		return nil, err
	}
	_, _, err = wire.Uint32(rest)
	if err != nil {
		return nil, err
	}
	return m, nil
}
