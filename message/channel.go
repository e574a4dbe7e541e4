package message

import "blitter.com/go/sshd/wire"

// ChannelOpen requests a new channel of the named type.
type ChannelOpen struct {
	ChannelType       string
	SenderChannel     uint32
	InitialWindowSize uint32
	MaximumPacketSize uint32
	TypeSpecificData  []byte
}

func (m ChannelOpen) MsgID() byte { return MsgChannelOpen }
func (m ChannelOpen) Marshal() []byte {
	buf := header(MsgChannelOpen)
	buf = wire.PutStringFromText(buf, m.ChannelType)
	buf = wire.PutUint32(buf, m.SenderChannel)
	buf = wire.PutUint32(buf, m.InitialWindowSize)
	buf = wire.PutUint32(buf, m.MaximumPacketSize)
	buf = append(buf, m.TypeSpecificData...)
	return buf
}

func unmarshalChannelOpen(body []byte) (Message, error) {
	typ, rest, err := wire.Text(body)
	if err != nil {
		return nil, err
	}
	sender, rest, err := wire.Uint32(rest)
	if err != nil {
		return nil, err
	}
	winSize, rest, err := wire.Uint32(rest)
	if err != nil {
		return nil, err
	}
	maxPkt, rest, err := wire.Uint32(rest)
	if err != nil {
		return nil, err
	}
	return ChannelOpen{ChannelType: typ, SenderChannel: sender, InitialWindowSize: winSize, MaximumPacketSize: maxPkt, TypeSpecificData: rest}, nil
}

// DirectTCPIPData is the decoded TypeSpecificData for ChannelType=="direct-tcpip".
type DirectTCPIPData struct {
	HostToConnect    string
	PortToConnect    uint32
	OriginatorAddr   string
	OriginatorPort   uint32
}

func ParseDirectTCPIPData(data []byte) (DirectTCPIPData, error) {
	host, rest, err := wire.Text(data)
	if err != nil {
		return DirectTCPIPData{}, err
	}
	port, rest, err := wire.Uint32(rest)
	if err != nil {
		return DirectTCPIPData{}, err
	}
	origAddr, rest, err := wire.Text(rest)
	if err != nil {
		return DirectTCPIPData{}, err
	}
	origPort, _, err := wire.Uint32(rest)
	if err != nil {
		return DirectTCPIPData{}, err
	}
	return DirectTCPIPData{HostToConnect: host, PortToConnect: port, OriginatorAddr: origAddr, OriginatorPort: origPort}, nil
}

// ChannelOpenConfirmation accepts a ChannelOpen request.
type ChannelOpenConfirmation struct {
	RecipientChannel  uint32
	SenderChannel     uint32
	InitialWindowSize uint32
	MaximumPacketSize uint32
}

func (m ChannelOpenConfirmation) MsgID() byte { return MsgChannelOpenConfirmation }
func (m ChannelOpenConfirmation) Marshal() []byte {
	buf := header(MsgChannelOpenConfirmation)
	buf = wire.PutUint32(buf, m.RecipientChannel)
	buf = wire.PutUint32(buf, m.SenderChannel)
	buf = wire.PutUint32(buf, m.InitialWindowSize)
	buf = wire.PutUint32(buf, m.MaximumPacketSize)
	return buf
}

func unmarshalChannelOpenConfirmation(body []byte) (Message, error) {
	recipient, rest, err := wire.Uint32(body)
	if err != nil {
		return nil, err
	}
	sender, rest, err := wire.Uint32(rest)
	if err != nil {
		return nil, err
	}
	winSize, rest, err := wire.Uint32(rest)
	if err != nil {
		return nil, err
	}
	maxPkt, _, err := wire.Uint32(rest)
	if err != nil {
		return nil, err
	}
	return ChannelOpenConfirmation{RecipientChannel: recipient, SenderChannel: sender, InitialWindowSize: winSize, MaximumPacketSize: maxPkt}, nil
}

// Channel open failure reason codes, RFC 4254 §5.1.
const (
	OpenAdministrativelyProhibited = 1
	OpenConnectFailed              = 2
	OpenUnknownChannelType         = 3
	OpenResourceShortage           = 4
)

// ChannelOpenFailure rejects a ChannelOpen request.
type ChannelOpenFailure struct {
	RecipientChannel uint32
	ReasonCode       uint32
	Description      string
	LanguageTag      string
}

func (m ChannelOpenFailure) MsgID() byte { return MsgChannelOpenFailure }
func (m ChannelOpenFailure) Marshal() []byte {
	buf := header(MsgChannelOpenFailure)
	buf = wire.PutUint32(buf, m.RecipientChannel)
	buf = wire.PutUint32(buf, m.ReasonCode)
	buf = wire.PutStringFromText(buf, m.Description)
	buf = wire.PutStringFromText(buf, m.LanguageTag)
	return buf
}

func unmarshalChannelOpenFailure(body []byte) (Message, error) {
	recipient, rest, err := wire.Uint32(body)
	if err != nil {
		return nil, err
	}
	code, rest, err := wire.Uint32(rest)
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
	return ChannelOpenFailure{RecipientChannel: recipient, ReasonCode: code, Description: desc, LanguageTag: lang}, nil
}

// ChannelWindowAdjust grows the sender's view of the receive window.
type ChannelWindowAdjust struct {
	RecipientChannel uint32
	BytesToAdd       uint32
}

func (m ChannelWindowAdjust) MsgID() byte { return MsgChannelWindowAdjust }
func (m ChannelWindowAdjust) Marshal() []byte {
	buf := header(MsgChannelWindowAdjust)
	buf = wire.PutUint32(buf, m.RecipientChannel)
	buf = wire.PutUint32(buf, m.BytesToAdd)
	return buf
}

func unmarshalChannelWindowAdjust(body []byte) (Message, error) {
	recipient, rest, err := wire.Uint32(body)
	if err != nil {
		return nil, err
	}
	bytes, _, err := wire.Uint32(rest)
	if err != nil {
		return nil, err
	}
	return ChannelWindowAdjust{RecipientChannel: recipient, BytesToAdd: bytes}, nil
}

// ChannelData carries channel payload bytes.
type ChannelData struct {
	RecipientChannel uint32
	Data             []byte
}

func (m ChannelData) MsgID() byte { return MsgChannelData }
func (m ChannelData) Marshal() []byte {
	buf := header(MsgChannelData)
	buf = wire.PutUint32(buf, m.RecipientChannel)
	buf = wire.PutString(buf, m.Data)
	return buf
}

func unmarshalChannelData(body []byte) (Message, error) {
	recipient, rest, err := wire.Uint32(body)
	if err != nil {
		return nil, err
	}
	data, _, err := wire.String(rest)
	if err != nil {
		return nil, err
	}
	return ChannelData{RecipientChannel: recipient, Data: data}, nil
}

// Extended data type codes, RFC 4254 §5.2.
const ExtendedDataStderr = 1

// ChannelExtendedData carries out-of-band channel payload (stderr).
type ChannelExtendedData struct {
	RecipientChannel uint32
	DataTypeCode     uint32
	Data             []byte
}

func (m ChannelExtendedData) MsgID() byte { return MsgChannelExtendedData }
func (m ChannelExtendedData) Marshal() []byte {
	buf := header(MsgChannelExtendedData)
	buf = wire.PutUint32(buf, m.RecipientChannel)
	buf = wire.PutUint32(buf, m.DataTypeCode)
	buf = wire.PutString(buf, m.Data)
	return buf
}

func unmarshalChannelExtendedData(body []byte) (Message, error) {
	recipient, rest, err := wire.Uint32(body)
	if err != nil {
		return nil, err
	}
	code, rest, err := wire.Uint32(rest)
	if err != nil {
		return nil, err
	}
	data, _, err := wire.String(rest)
	if err != nil {
		return nil, err
	}
	return ChannelExtendedData{RecipientChannel: recipient, DataTypeCode: code, Data: data}, nil
}

// ChannelEOF signals the sender will send no more data on this channel.
type ChannelEOF struct {
	RecipientChannel uint32
}

func (m ChannelEOF) MsgID() byte { return MsgChannelEOF }
func (m ChannelEOF) Marshal() []byte {
	return wire.PutUint32(header(MsgChannelEOF), m.RecipientChannel)
}

func unmarshalChannelEOF(body []byte) (Message, error) {
	recipient, _, err := wire.Uint32(body)
	if err != nil {
		return nil, err
	}
	return ChannelEOF{RecipientChannel: recipient}, nil
}

// ChannelClose signals the sender's half of the channel is closing.
type ChannelClose struct {
	RecipientChannel uint32
}

func (m ChannelClose) MsgID() byte { return MsgChannelClose }
func (m ChannelClose) Marshal() []byte {
	return wire.PutUint32(header(MsgChannelClose), m.RecipientChannel)
}

func unmarshalChannelClose(body []byte) (Message, error) {
	recipient, _, err := wire.Uint32(body)
	if err != nil {
		return nil, err
	}
	return ChannelClose{RecipientChannel: recipient}, nil
}

// ChannelRequest asks for a channel-specific operation (shell, exec,
// pty-req, env, window-change, signal, exit-status, ...).
type ChannelRequest struct {
	RecipientChannel uint32
	RequestType      string
	WantReply        bool
	RequestData      []byte
}

func (m ChannelRequest) MsgID() byte { return MsgChannelRequest }
func (m ChannelRequest) Marshal() []byte {
	buf := header(MsgChannelRequest)
	buf = wire.PutUint32(buf, m.RecipientChannel)
	buf = wire.PutStringFromText(buf, m.RequestType)
	buf = wire.PutBoolean(buf, m.WantReply)
	buf = append(buf, m.RequestData...)
	return buf
}

func unmarshalChannelRequest(body []byte) (Message, error) {
	recipient, rest, err := wire.Uint32(body)
	if err != nil {
		return nil, err
	}
	typ, rest, err := wire.Text(rest)
	if err != nil {
		return nil, err
	}
	wantReply, rest, err := wire.Boolean(rest)
	if err != nil {
		return nil, err
	}
	return ChannelRequest{RecipientChannel: recipient, RequestType: typ, WantReply: wantReply, RequestData: rest}, nil
}

// PtyRequestData is the decoded RequestData for RequestType=="pty-req".
type PtyRequestData struct {
	Term                               string
	WidthChars, HeightChars            uint32
	WidthPixels, HeightPixels          uint32
	Modes                              []byte
}

func ParsePtyRequestData(data []byte) (PtyRequestData, error) {
	term, rest, err := wire.Text(data)
	if err != nil {
		return PtyRequestData{}, err
	}
	wc, rest, err := wire.Uint32(rest)
	if err != nil {
		return PtyRequestData{}, err
	}
	hc, rest, err := wire.Uint32(rest)
	if err != nil {
		return PtyRequestData{}, err
	}
	wp, rest, err := wire.Uint32(rest)
	if err != nil {
		return PtyRequestData{}, err
	}
	hp, rest, err := wire.Uint32(rest)
	if err != nil {
		return PtyRequestData{}, err
	}
	modes, _, err := wire.String(rest)
	if err != nil {
		return PtyRequestData{}, err
	}
	return PtyRequestData{Term: term, WidthChars: wc, HeightChars: hc, WidthPixels: wp, HeightPixels: hp, Modes: modes}, nil
}

// WindowChangeData is the decoded RequestData for RequestType=="window-change".
type WindowChangeData struct {
	WidthChars, HeightChars   uint32
	WidthPixels, HeightPixels uint32
}

func ParseWindowChangeData(data []byte) (WindowChangeData, error) {
	wc, rest, err := wire.Uint32(data)
	if err != nil {
		return WindowChangeData{}, err
	}
	hc, rest, err := wire.Uint32(rest)
	if err != nil {
		return WindowChangeData{}, err
	}
	wp, rest, err := wire.Uint32(rest)
	if err != nil {
		return WindowChangeData{}, err
	}
	hp, _, err := wire.Uint32(rest)
	if err != nil {
		return WindowChangeData{}, err
	}
	return WindowChangeData{WidthChars: wc, HeightChars: hc, WidthPixels: wp, HeightPixels: hp}, nil
}

// ExecRequestData is the decoded RequestData for RequestType=="exec".
type ExecRequestData struct {
	Command string
}

func ParseExecRequestData(data []byte) (ExecRequestData, error) {
	cmd, _, err := wire.Text(data)
	if err != nil {
		return ExecRequestData{}, err
	}
	return ExecRequestData{Command: cmd}, nil
}

// EnvRequestData is the decoded RequestData for RequestType=="env".
type EnvRequestData struct {
	Name, Value string
}

func ParseEnvRequestData(data []byte) (EnvRequestData, error) {
	name, rest, err := wire.Text(data)
	if err != nil {
		return EnvRequestData{}, err
	}
	value, _, err := wire.Text(rest)
	if err != nil {
		return EnvRequestData{}, err
	}
	return EnvRequestData{Name: name, Value: value}, nil
}

// SignalRequestData is the decoded RequestData for RequestType=="signal".
type SignalRequestData struct {
	SignalName string
}

func ParseSignalRequestData(data []byte) (SignalRequestData, error) {
	name, _, err := wire.Text(data)
	if err != nil {
		return SignalRequestData{}, err
	}
	return SignalRequestData{SignalName: name}, nil
}

// ExitStatusRequestData is the decoded RequestData for RequestType=="exit-status".
type ExitStatusRequestData struct {
	ExitStatus uint32
}

func ParseExitStatusRequestData(data []byte) (ExitStatusRequestData, error) {
	status, _, err := wire.Uint32(data)
	if err != nil {
		return ExitStatusRequestData{}, err
	}
	return ExitStatusRequestData{ExitStatus: status}, nil
}

// MarshalExitStatusRequestData encodes the RequestData for an
// "exit-status" ChannelRequest sent by the server to the client.
func MarshalExitStatusRequestData(status uint32) []byte {
	return wire.PutUint32(nil, status)
}

// ChannelSuccess confirms a ChannelRequest with WantReply==true.
type ChannelSuccess struct {
	RecipientChannel uint32
}

func (m ChannelSuccess) MsgID() byte { return MsgChannelSuccess }
func (m ChannelSuccess) Marshal() []byte {
	return wire.PutUint32(header(MsgChannelSuccess), m.RecipientChannel)
}

func unmarshalChannelSuccess(body []byte) (Message, error) {
	recipient, _, err := wire.Uint32(body)
	if err != nil {
		return nil, err
	}
	return ChannelSuccess{RecipientChannel: recipient}, nil
}

// ChannelFailure rejects a ChannelRequest with WantReply==true.
type ChannelFailure struct {
	RecipientChannel uint32
}

func (m ChannelFailure) MsgID() byte { return MsgChannelFailure }
func (m ChannelFailure) Marshal() []byte {
	return wire.PutUint32(header(MsgChannelFailure), m.RecipientChannel)
}

func unmarshalChannelFailure(body []byte) (Message, error) {
	recipient, _, err := wire.Uint32(body)
	if err != nil {
		return nil, err
	}
	return ChannelFailure{RecipientChannel: recipient}, nil
}
