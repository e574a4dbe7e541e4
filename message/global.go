package message

import "blitter.com/go/sshd/wire"

// GlobalRequest is a connection-wide request not tied to any channel
// (e.g. "tcpip-forward").
type GlobalRequest struct {
	RequestName string
	WantReply   bool
	RequestData []byte
}

func (m GlobalRequest) MsgID() byte { return MsgGlobalRequest }
func (m GlobalRequest) Marshal() []byte {
	buf := header(MsgGlobalRequest)
	buf = wire.PutStringFromText(buf, m.RequestName)
	buf = wire.PutBoolean(buf, m.WantReply)
	buf = append(buf, m.RequestData...)
	return buf
}

func unmarshalGlobalRequest(body []byte) (Message, error) {
	name, rest, err := wire.Text(body)
	if err != nil {
		return nil, err
	}
	wantReply, rest, err := wire.Boolean(rest)
	if err != nil {
		return nil, err
	}
	return GlobalRequest{RequestName: name, WantReply: wantReply, RequestData: rest}, nil
}

// TcpipForwardRequestData is the decoded RequestData for
// RequestName=="tcpip-forward".
type TcpipForwardRequestData struct {
	AddressToBind string
	PortToBind    uint32
}

func ParseTcpipForwardRequestData(data []byte) (TcpipForwardRequestData, error) {
	addr, rest, err := wire.Text(data)
	if err != nil {
		return TcpipForwardRequestData{}, err
	}
	port, _, err := wire.Uint32(rest)
	if err != nil {
		return TcpipForwardRequestData{}, err
	}
	return TcpipForwardRequestData{AddressToBind: addr, PortToBind: port}, nil
}

// RequestSuccess replies affirmatively to a GlobalRequest. ResponseData
// is only populated for requests whose RFC defines a reply payload
// (e.g. tcpip-forward with a dynamically allocated port).
type RequestSuccess struct {
	ResponseData []byte
}

func (m RequestSuccess) MsgID() byte { return MsgRequestSuccess }
func (m RequestSuccess) Marshal() []byte {
	return append(header(MsgRequestSuccess), m.ResponseData...)
}

func unmarshalRequestSuccess(body []byte) (Message, error) {
	return RequestSuccess{ResponseData: body}, nil
}

// RequestFailure replies negatively to a GlobalRequest.
type RequestFailure struct{}

func (m RequestFailure) MsgID() byte     { return MsgRequestFailure }
func (m RequestFailure) Marshal() []byte { return header(MsgRequestFailure) }
