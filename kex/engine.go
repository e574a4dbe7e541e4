// Package kex drives the SSH key-exchange state machine: negotiation
// of a KEX family, the family-specific exchange, exchange-hash
// computation, host-key signing, and the six-slot key derivation of
// RFC 4253 §7.2/§8, plus Diffie-Hellman Group Exchange (RFC 4419).
package kex

import (
	"crypto/rand"
	"errors"
	"math/big"

	"blitter.com/go/sshd/message"
	"blitter.com/go/sshd/negotiate"
	"blitter.com/go/sshd/sshcrypto"
	"golang.org/x/crypto/curve25519"
)

// Stage names the engine's position in the RFC 4253 §7.1 state machine.
type Stage int

const (
	StageIdle Stage = iota
	StageAwaitClientKexInit
	StageAwaitReply
	StageAwaitClientInit  // server-side mirror: waiting for KEXDH_INIT/KEXDH_GEX_INIT
	StageAwaitGexRequest
	StageAwaitGexInit
	StageAwaitNewKeys
	StageDone
)

// ErrUnexpectedMessage is returned when Step receives a message that
// does not fit the engine's current stage.
var ErrUnexpectedMessage = errors.New("kex: unexpected message for current stage")

// Result is returned by Engine once the exchange completes: the
// negotiated algorithms, the exchange hash H, the shared secret K, and
// (on the very first KEX of a connection) the session_id.
type Result struct {
	Algorithms   negotiate.Algorithms
	ExchangeHash []byte
	SharedSecret *big.Int
	SessionID    []byte
}

// Engine runs one key exchange (initial or rekey) for the server side
// of a connection.
type Engine struct {
	hostKeys map[string]sshcrypto.Signer

	serverPreference negotiate.Preference
	clientVersion    []byte
	serverVersion    []byte

	existingSessionID []byte

	stage Stage

	negotiated          negotiate.Algorithms
	clientKexInitPayload []byte
	serverKexInitPayload []byte

	// curve25519/DH ephemeral state
	ephemeralPriv []byte // curve25519 scalar, or DH private exponent bytes
	ephemeralY    *big.Int

	// GEX state
	gexMin, gexN, gexMax uint32
	gexOldStyle          bool
	gexP, gexG           *big.Int

	result *Result
}

// NewEngine constructs a kex.Engine for one exchange. existingSessionID
// is nil on the first KEX of a connection and the previously fixed
// session id on every rekey.
func NewEngine(hostKeys map[string]sshcrypto.Signer, serverPreference negotiate.Preference, clientVersion, serverVersion, existingSessionID []byte) *Engine {
	return &Engine{
		hostKeys:          hostKeys,
		serverPreference:  serverPreference,
		clientVersion:     clientVersion,
		serverVersion:     serverVersion,
		existingSessionID: existingSessionID,
		stage:             StageIdle,
	}
}

// ServerKexInit builds the server's KEXINIT message; the runner sends
// this immediately on connection establishment (and again to start a
// rekey) before calling Step with the client's KEXINIT.
func (e *Engine) ServerKexInit() message.KexInit {
	var cookie [16]byte
	_, _ = rand.Read(cookie[:])
	m := message.KexInit{
		Cookie:                    cookie,
		KexAlgorithms:             e.serverPreference.KexAlgorithms,
		ServerHostKeyAlgorithms:   e.serverPreference.ServerHostKeyAlgorithms,
		CiphersClientToServer:     e.serverPreference.CiphersClientToServer,
		CiphersServerToClient:     e.serverPreference.CiphersServerToClient,
		MACsClientToServer:        e.serverPreference.MACsClientToServer,
		MACsServerToClient:        e.serverPreference.MACsServerToClient,
		CompressionClientToServer: e.serverPreference.CompressionClientToServer,
		CompressionServerToClient: e.serverPreference.CompressionServerToClient,
		LanguagesClientToServer:   []string{},
		LanguagesServerToClient:   []string{},
	}
	e.serverKexInitPayload = m.Marshal()
	e.stage = StageAwaitClientKexInit
	return m
}

// Step feeds one received message into the engine. out is zero or more
// messages the runner must send in reply; done is true once the
// exchange has produced a Result (the runner must still wait for
// NEWKEYS to install keys — see Result()).
func (e *Engine) Step(vocab message.Vocabulary, msg message.Message) (out []message.Message, nextVocab message.Vocabulary, done bool, err error) {
	switch e.stage {
	case StageAwaitClientKexInit:
		init, ok := msg.(message.KexInit)
		if !ok {
			return nil, vocab, false, ErrUnexpectedMessage
		}
		return e.onClientKexInit(init)

	case StageAwaitClientInit:
		return e.onClientInit(msg)

	case StageAwaitGexRequest:
		req, ok := msg.(message.KexDHGexRequest)
		if !ok {
			return nil, vocab, false, ErrUnexpectedMessage
		}
		return e.onGexRequest(req)

	case StageAwaitGexInit:
		init, ok := msg.(message.KexDHGexInit)
		if !ok {
			return nil, vocab, false, ErrUnexpectedMessage
		}
		return e.onGexInit(init)

	default:
		return nil, vocab, false, ErrUnexpectedMessage
	}
}

func (e *Engine) onClientKexInit(init message.KexInit) ([]message.Message, message.Vocabulary, bool, error) {
	e.clientKexInitPayload = init.Marshal()

	clientPref := negotiate.Preference{
		KexAlgorithms:             init.KexAlgorithms,
		ServerHostKeyAlgorithms:   init.ServerHostKeyAlgorithms,
		CiphersClientToServer:     init.CiphersClientToServer,
		CiphersServerToClient:     init.CiphersServerToClient,
		MACsClientToServer:        init.MACsClientToServer,
		MACsServerToClient:        init.MACsServerToClient,
		CompressionClientToServer: init.CompressionClientToServer,
		CompressionServerToClient: init.CompressionServerToClient,
	}
	negotiated, err := negotiate.Negotiate(clientPref, e.serverPreference)
	if err != nil {
		return nil, message.VocabDefault, false, err
	}
	e.negotiated = negotiated

	if negotiated.Kex == "diffie-hellman-group-exchange-sha1" || negotiated.Kex == "diffie-hellman-group-exchange-sha256" {
		e.stage = StageAwaitGexRequest
		return nil, message.VocabDHGEX, false, nil
	}
	e.stage = StageAwaitClientInit
	return nil, message.VocabDefault, false, nil
}

func (e *Engine) onGexRequest(req message.KexDHGexRequest) ([]message.Message, message.Vocabulary, bool, error) {
	e.gexMin, e.gexN, e.gexMax = req.Min, req.Preferred, req.Max
	e.gexOldStyle = req.Min == 0 && req.Max == 0

	searchMin, searchMax := e.gexMin, e.gexMax
	if e.gexOldStyle {
		// No bounds were sent; pick any fixed group up to the client's
		// preferred size.
		searchMin, searchMax = 0, e.gexN
	}
	p, g, ok := GroupForRange(searchMin, searchMax)
	if !ok {
		return nil, message.VocabDHGEX, false, errors.New("kex: no fixed group within requested range")
	}
	e.gexP, e.gexG = p, g
	e.stage = StageAwaitGexInit
	group := message.KexDHGexGroup{P: bigToMpintBytes(p), G: bigToMpintBytes(g)}
	return []message.Message{group}, message.VocabDHGEX, false, nil
}

func (e *Engine) onGexInit(init message.KexDHGexInit) ([]message.Message, message.Vocabulary, bool, error) {
	reply, result, err := e.completeDH(e.gexP, e.gexG, init.E, true)
	if err != nil {
		return nil, message.VocabDHGEX, false, err
	}
	e.result = result
	e.stage = StageAwaitNewKeys
	gexReply := message.KexDHGexReply{HostKeyBlob: reply.hostKeyBlob, F: reply.f, Signature: reply.sig}
	return []message.Message{gexReply}, message.VocabDefault, true, nil
}

func (e *Engine) onClientInit(msg message.Message) ([]message.Message, message.Vocabulary, bool, error) {
	init, ok := msg.(message.KexDHInit)
	if !ok {
		return nil, message.VocabDefault, false, ErrUnexpectedMessage
	}

	if e.negotiated.Kex == "curve25519-sha256" {
		reply, result, err := e.completeCurve25519(init.E)
		if err != nil {
			return nil, message.VocabDefault, false, err
		}
		e.result = result
		e.stage = StageAwaitNewKeys
		m := message.KexDHReply{HostKeyBlob: reply.hostKeyBlob, F: reply.f, Signature: reply.sig}
		return []message.Message{m}, message.VocabDefault, true, nil
	}

	p, g, ok := FixedGroup(e.negotiated.Kex)
	if !ok {
		return nil, message.VocabDefault, false, errors.New("kex: unsupported kex algorithm " + e.negotiated.Kex)
	}
	reply, result, err := e.completeDH(p, g, init.E, false)
	if err != nil {
		return nil, message.VocabDefault, false, err
	}
	e.result = result
	e.stage = StageAwaitNewKeys
	m := message.KexDHReply{HostKeyBlob: reply.hostKeyBlob, F: reply.f, Signature: reply.sig}
	return []message.Message{m}, message.VocabDefault, true, nil
}

type replyFields struct {
	hostKeyBlob []byte
	f           []byte
	sig         []byte
}

func (e *Engine) hostKeySigner() (sshcrypto.Signer, error) {
	signer, ok := e.hostKeys[e.negotiated.ServerHostKey]
	if !ok {
		return nil, errors.New("kex: no host key available for " + e.negotiated.ServerHostKey)
	}
	return signer, nil
}

func (e *Engine) sessionID(h []byte) []byte {
	if e.existingSessionID != nil {
		return e.existingSessionID
	}
	return h
}

func (e *Engine) completeCurve25519(qc []byte) (replyFields, *Result, error) {
	if len(qc) != 32 {
		return replyFields{}, nil, errors.New("kex: invalid curve25519 client public value")
	}
	var serverPriv [32]byte
	if _, err := rand.Read(serverPriv[:]); err != nil {
		return replyFields{}, nil, err
	}
	serverPub, err := curve25519.X25519(serverPriv[:], curve25519.Basepoint)
	if err != nil {
		return replyFields{}, nil, err
	}
	shared, err := curve25519.X25519(serverPriv[:], qc)
	if err != nil {
		return replyFields{}, nil, err
	}
	sharedSecret := new(big.Int).SetBytes(shared)

	signer, err := e.hostKeySigner()
	if err != nil {
		return replyFields{}, nil, err
	}
	hostKeyBlob := signer.PublicKeyBlob()

	h := ComputeExchangeHash(HashFunc(e.negotiated.Kex), ExchangeHashInput{
		ClientVersion:        e.clientVersion,
		ServerVersion:        e.serverVersion,
		ClientKexInitPayload: e.clientKexInitPayload,
		ServerKexInitPayload: e.serverKexInitPayload,
		ServerHostPublicKey:  hostKeyBlob,
		ClientPublic:         qc,
		ServerPublic:         serverPub,
		SharedSecret:         sharedSecret,
	})

	sig, err := signer.Sign(h)
	if err != nil {
		return replyFields{}, nil, err
	}

	result := &Result{
		Algorithms:   e.negotiated,
		ExchangeHash: h,
		SharedSecret: sharedSecret,
		SessionID:    e.sessionID(h),
	}
	return replyFields{hostKeyBlob: hostKeyBlob, f: serverPub, sig: sig}, result, nil
}

func (e *Engine) completeDH(p, g *big.Int, clientPublicBytes []byte, gexActive bool) (replyFields, *Result, error) {
	e_ := new(big.Int).SetBytes(clientPublicBytes)
	if e_.Sign() <= 0 || e_.Cmp(p) >= 0 {
		return replyFields{}, nil, errors.New("kex: client public value out of range")
	}

	y, err := randExponent(p)
	if err != nil {
		return replyFields{}, nil, err
	}
	f := new(big.Int).Exp(g, y, p)
	shared := new(big.Int).Exp(e_, y, p)

	signer, err := e.hostKeySigner()
	if err != nil {
		return replyFields{}, nil, err
	}
	hostKeyBlob := signer.PublicKeyBlob()

	h := ComputeExchangeHash(HashFunc(e.negotiated.Kex), ExchangeHashInput{
		ClientVersion:        e.clientVersion,
		ServerVersion:        e.serverVersion,
		ClientKexInitPayload: e.clientKexInitPayload,
		ServerKexInitPayload: e.serverKexInitPayload,
		ServerHostPublicKey:  hostKeyBlob,
		GEXActive:            gexActive,
		GEXOldStyle:          e.gexOldStyle,
		GEXMin:               e.gexMin,
		GEXN:                 e.gexN,
		GEXMax:               e.gexMax,
		P:                    p,
		G:                    g,
		ClientPublic:         clientPublicBytes,
		ServerPublic:         bigToMpintBytes(f),
		SharedSecret:         shared,
	})

	sig, err := signer.Sign(h)
	if err != nil {
		return replyFields{}, nil, err
	}

	result := &Result{
		Algorithms:   e.negotiated,
		ExchangeHash: h,
		SharedSecret: shared,
		SessionID:    e.sessionID(h),
	}
	return replyFields{hostKeyBlob: hostKeyBlob, f: bigToMpintBytes(f), sig: sig}, result, nil
}

// Result returns the completed exchange's Result, or nil if Step has
// not yet produced one.
func (e *Engine) Result() *Result { return e.result }

// MarkNewKeysReceived transitions the engine to Done once the runner
// has observed both sides' NEWKEYS.
func (e *Engine) MarkNewKeysReceived() { e.stage = StageDone }

// randExponent draws the DH private exponent y as a 160-bit positive
// integer, per RFC 4253 §8's guidance (sized for the largest subgroup
// order any of this engine's fixed groups effectively uses, not for p's
// own bit length).
func randExponent(p *big.Int) (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 160)
	for {
		y, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return nil, err
		}
		if y.Sign() > 0 && y.Cmp(p) < 0 {
			return y, nil
		}
	}
}

func bigToMpintBytes(v *big.Int) []byte {
	if v.Sign() == 0 {
		return nil
	}
	b := v.Bytes()
	if len(b) > 0 && b[0]&0x80 != 0 {
		padded := make([]byte, len(b)+1)
		copy(padded[1:], b)
		return padded
	}
	return b
}
