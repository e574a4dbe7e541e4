package message

import "blitter.com/go/sshd/wire"

// Disconnect notifies the peer the connection is ending and why.
type Disconnect struct {
	ReasonCode   uint32
	Description  string
	LanguageTag  string
}

func (m Disconnect) MsgID() byte { return MsgDisconnect }
func (m Disconnect) Marshal() []byte {
	buf := header(MsgDisconnect)
	buf = wire.PutUint32(buf, m.ReasonCode)
	buf = wire.PutStringFromText(buf, m.Description)
	buf = wire.PutStringFromText(buf, m.LanguageTag)
	return buf
}

func unmarshalDisconnect(body []byte) (Message, error) {
	code, rest, err := wire.Uint32(body)
	if err != nil {
		return nil, err
	}
	desc, rest, err := wire.Text(rest)
	if err != nil {
		return nil, err
	}
	lang, _, err := wire.Text(rest)
	if err != nil {
		return nil, err
	}
	return Disconnect{ReasonCode: code, Description: desc, LanguageTag: lang}, nil
}

// Ignore carries opaque filler data the receiver must discard.
type Ignore struct {
	Data []byte
}

func (m Ignore) MsgID() byte { return MsgIgnore }
func (m Ignore) Marshal() []byte {
	buf := header(MsgIgnore)
	return wire.PutString(buf, m.Data)
}

func unmarshalIgnore(body []byte) (Message, error) {
	data, _, err := wire.String(body)
	if err != nil {
		return nil, err
	}
	return Ignore{Data: data}, nil
}

// Unimplemented echoes back the sequence number of a message the
// receiver could not handle.
type Unimplemented struct {
	SequenceNumber uint32
}

func (m Unimplemented) MsgID() byte { return MsgUnimplemented }
func (m Unimplemented) Marshal() []byte {
	return wire.PutUint32(header(MsgUnimplemented), m.SequenceNumber)
}

func unmarshalUnimplemented(body []byte) (Message, error) {
	n, _, err := wire.Uint32(body)
	if err != nil {
		return nil, err
	}
	return Unimplemented{SequenceNumber: n}, nil
}

// Debug carries a human-readable diagnostic string.
type Debug struct {
	AlwaysDisplay bool
	Text          string
	LanguageTag   string
}

func (m Debug) MsgID() byte { return MsgDebug }
func (m Debug) Marshal() []byte {
	buf := header(MsgDebug)
	buf = wire.PutBoolean(buf, m.AlwaysDisplay)
	buf = wire.PutStringFromText(buf, m.Text)
	buf = wire.PutStringFromText(buf, m.LanguageTag)
	return buf
}

func unmarshalDebug(body []byte) (Message, error) {
	always, rest, err := wire.Boolean(body)
	if err != nil {
		return nil, err
	}
	text, rest, err := wire.Text(rest)
	if err != nil {
		return nil, err
	}
	lang, _, err := wire.Text(rest)
	if err != nil {
		return nil, err
	}
	return Debug{AlwaysDisplay: always, Text: text, LanguageTag: lang}, nil
}

// ServiceRequest asks the peer to start a named service (e.g.
// "ssh-userauth", "ssh-connection").
type ServiceRequest struct {
	ServiceName string
}

func (m ServiceRequest) MsgID() byte { return MsgServiceRequest }
func (m ServiceRequest) Marshal() []byte {
	return wire.PutStringFromText(header(MsgServiceRequest), m.ServiceName)
}

func unmarshalServiceRequest(body []byte) (Message, error) {
	name, _, err := wire.Text(body)
	if err != nil {
		return nil, err
	}
	return ServiceRequest{ServiceName: name}, nil
}

// ServiceAccept confirms the requested service has started.
type ServiceAccept struct {
	ServiceName string
}

func (m ServiceAccept) MsgID() byte { return MsgServiceAccept }
func (m ServiceAccept) Marshal() []byte {
	return wire.PutStringFromText(header(MsgServiceAccept), m.ServiceName)
}

func unmarshalServiceAccept(body []byte) (Message, error) {
	name, _, err := wire.Text(body)
	if err != nil {
		return nil, err
	}
	return ServiceAccept{ServiceName: name}, nil
}
