// Package message implements the SSH transport, authentication, and
// connection protocol messages (RFC 4253/4252/4254) as concrete Go
// structs, one per message type, each able to marshal itself to and
// unmarshal itself from a packet payload.
package message

import (
	"fmt"

	"blitter.com/go/sshd/wire"
)

// Message IDs, per RFC 4253 §12, RFC 4252 §6, RFC 4254 §8.
const (
	MsgDisconnect              = 1
	MsgIgnore                  = 2
	MsgUnimplemented           = 3
	MsgDebug                   = 4
	MsgServiceRequest          = 5
	MsgServiceAccept           = 6
	MsgKexInit                = 20
	MsgNewKeys                 = 21
	MsgKexdhInit               = 30
	MsgKexdhReply              = 31
	MsgKexDHGexRequest         = 34
	MsgKexDHGexGroup           = 31 // context-sensitive with MsgKexdhReply; see Vocabulary
	MsgKexDHGexInit            = 32
	MsgKexDHGexReply           = 33
	MsgUserauthRequest         = 50
	MsgUserauthFailure         = 51
	MsgUserauthSuccess         = 52
	MsgUserauthBanner          = 53
	MsgUserauthPasswdChangereq = 60
	MsgUserauthPKOK            = 60 // context-sensitive with the above; see Vocabulary
	MsgGlobalRequest           = 80
	MsgRequestSuccess          = 81
	MsgRequestFailure          = 82
	MsgChannelOpen             = 90
	MsgChannelOpenConfirmation = 91
	MsgChannelOpenFailure      = 92
	MsgChannelWindowAdjust     = 93
	MsgChannelData             = 94
	MsgChannelExtendedData     = 95
	MsgChannelEOF              = 96
	MsgChannelClose            = 97
	MsgChannelRequest          = 98
	MsgChannelSuccess          = 99
	MsgChannelFailure          = 100
)

// Message is implemented by every concrete message type in this
// package, plus Unknown for messages this package does not model.
type Message interface {
	MsgID() byte
	Marshal() []byte
}

// Vocabulary selects how to interpret message IDs that the protocol
// reuses across contexts (30/31 during plain DH vs during DH-GEX, and
// 60 during pubkey vs password authentication). The runner and the kex
// engine track which vocabulary is active and pass it to Decode.
type Vocabulary int

const (
	// VocabDefault covers everything outside an active DH-GEX exchange
	// and outside a PK_OK-eligible userauth request.
	VocabDefault Vocabulary = iota
	// VocabDHGEX is active from the moment a group-exchange method is
	// negotiated (right after the client's KEXINIT) until the server's
	// KEX_DH_GEX_REPLY.
	VocabDHGEX
	// VocabPubkeyQuery is active only for the single reply to a
	// publickey userauth request with has_signature=false.
	VocabPubkeyQuery
)

// Unknown wraps a payload this package has no concrete type for, so
// the runner can still reply UNIMPLEMENTED or forward it verbatim.
type Unknown struct {
	ID      byte
	Payload []byte
}

func (m Unknown) MsgID() byte { return m.ID }
func (m Unknown) Marshal() []byte {
	return append([]byte{m.ID}, m.Payload...)
}

// ErrUnhandledID is returned by Decode for a message ID this package
// does not recognize under the given vocabulary.
type ErrUnhandledID struct {
	ID byte
}

func (e ErrUnhandledID) Error() string {
	return fmt.Sprintf("message: unhandled message id %d", e.ID)
}

// Decode parses a packet payload (ID byte + body) into a concrete
// Message, choosing among context-sensitive IDs via vocab.
func Decode(vocab Vocabulary, payload []byte) (Message, error) {
	if len(payload) < 1 {
		return nil, ErrUnhandledID{}
	}
	id, body := payload[0], payload[1:]

	switch id {
	case MsgDisconnect:
		return unmarshalDisconnect(body)
	case MsgIgnore:
		return unmarshalIgnore(body)
	case MsgUnimplemented:
		return unmarshalUnimplemented(body)
	case MsgDebug:
		return unmarshalDebug(body)
	case MsgServiceRequest:
		return unmarshalServiceRequest(body)
	case MsgServiceAccept:
		return unmarshalServiceAccept(body)
	case MsgKexInit:
		return unmarshalKexInit(body)
	case MsgNewKeys:
		return NewKeys{}, nil
	case MsgKexdhInit:
		if vocab == VocabDHGEX {
			return unmarshalKexDHGexRequestOld(body)
		}
		return unmarshalKexDHInit(body)
	case 31:
		if vocab == VocabDHGEX {
			return unmarshalKexDHGexGroup(body)
		}
		return unmarshalKexDHReply(body)
	case MsgKexDHGexRequest:
		return unmarshalKexDHGexRequest(body)
	case MsgKexDHGexInit:
		return unmarshalKexDHGexInit(body)
	case MsgKexDHGexReply:
		return unmarshalKexDHGexReply(body)
	case MsgUserauthRequest:
		return unmarshalUserauthRequest(body)
	case MsgUserauthFailure:
		return unmarshalUserauthFailure(body)
	case MsgUserauthSuccess:
		return UserauthSuccess{}, nil
	case MsgUserauthBanner:
		return unmarshalUserauthBanner(body)
	case 60:
		if vocab == VocabPubkeyQuery {
			return unmarshalUserauthPKOK(body)
		}
		return unmarshalUserauthPasswdChangereq(body)
	case MsgGlobalRequest:
		return unmarshalGlobalRequest(body)
	case MsgRequestSuccess:
		return unmarshalRequestSuccess(body)
	case MsgRequestFailure:
		return RequestFailure{}, nil
	case MsgChannelOpen:
		return unmarshalChannelOpen(body)
	case MsgChannelOpenConfirmation:
		return unmarshalChannelOpenConfirmation(body)
	case MsgChannelOpenFailure:
		return unmarshalChannelOpenFailure(body)
	case MsgChannelWindowAdjust:
		return unmarshalChannelWindowAdjust(body)
	case MsgChannelData:
		return unmarshalChannelData(body)
	case MsgChannelExtendedData:
		return unmarshalChannelExtendedData(body)
	case MsgChannelEOF:
		return unmarshalChannelEOF(body)
	case MsgChannelClose:
		return unmarshalChannelClose(body)
	case MsgChannelRequest:
		return unmarshalChannelRequest(body)
	case MsgChannelSuccess:
		return unmarshalChannelSuccess(body)
	case MsgChannelFailure:
		return unmarshalChannelFailure(body)
	default:
		return Unknown{ID: id, Payload: body}, nil
	}
}

func header(id byte) []byte {
	return []byte{id}
}

func putUint32Field(buf []byte, v uint32) []byte { return wire.PutUint32(buf, v) }
