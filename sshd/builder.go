package sshd

import (
	"context"
	"errors"
	"io"
	"net"

	"blitter.com/go/sshd/banner"
	"blitter.com/go/sshd/bpp"
	"blitter.com/go/sshd/kex"
	"blitter.com/go/sshd/message"
	"blitter.com/go/sshd/session"
	"blitter.com/go/sshd/sshcrypto"
)

// ServerBuilder assembles a Preference step by step before producing an
// immutable Server. Start from NewServerBuilder: the zero value has
// empty algorithm lists, so nothing would ever negotiate.
type ServerBuilder struct {
	pref Preference
	err  error
}

// NewServerBuilder starts from the engine's full default algorithm
// preference (every kex/cipher/MAC/host-key algorithm this package
// implements, in its preferred order).
func NewServerBuilder() *ServerBuilder {
	return &ServerBuilder{pref: defaultPreference()}
}

// WithName sets the suffix sent after "SSH-2.0-" in the version banner.
func (b *ServerBuilder) WithName(name string) *ServerBuilder {
	b.pref.Name = name
	return b
}

// WithIdleTimeoutSeconds bounds how long the runner waits for any
// traffic before disconnecting with SSH_DISCONNECT_CONNECTION_LOST.
func (b *ServerBuilder) WithIdleTimeoutSeconds(seconds int) *ServerBuilder {
	b.pref.IdleTimeoutSeconds = seconds
	return b
}

// WithKexAlgorithms overrides the server's kex_algorithms list.
func (b *ServerBuilder) WithKexAlgorithms(names []string) *ServerBuilder {
	b.pref.KexAlgorithms = names
	return b
}

// WithCiphers overrides both cipher direction lists identically.
func (b *ServerBuilder) WithCiphers(names []string) *ServerBuilder {
	b.pref.CiphersClientToServer = names
	b.pref.CiphersServerToClient = names
	return b
}

// WithMACs overrides both MAC direction lists identically.
func (b *ServerBuilder) WithMACs(names []string) *ServerBuilder {
	b.pref.MACsClientToServer = names
	b.pref.MACsServerToClient = names
	return b
}

// WithCompression overrides both compression direction lists identically.
func (b *ServerBuilder) WithCompression(names []string) *ServerBuilder {
	b.pref.CompressionClientToServer = names
	b.pref.CompressionServerToClient = names
	return b
}

// WithHostKeyFile loads one PEM-encoded host key and adds it to the set.
func (b *ServerBuilder) WithHostKeyFile(path string) *ServerBuilder {
	if b.err != nil {
		return b
	}
	signer, err := LoadHostKeyFile(path)
	if err != nil {
		b.err = err
		return b
	}
	if b.pref.HostKeys == nil {
		b.pref.HostKeys = NewHostKeySet()
	}
	b.pref.HostKeys.Add(signer)
	return b
}

// WithGeneratedHostKeys creates a fresh ephemeral Ed25519+RSA host key
// pair, for demos and tests that do not need a persistent identity.
func (b *ServerBuilder) WithGeneratedHostKeys() *ServerBuilder {
	if b.err != nil {
		return b
	}
	set, err := GenerateHostKeys()
	if err != nil {
		b.err = err
		return b
	}
	b.pref.HostKeys = set
	return b
}

// Build validates accumulated settings and returns a Server.
func (b *ServerBuilder) Build() (*Server, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.pref.HostKeys == nil || len(b.pref.HostKeys.Algorithms()) == 0 {
		return nil, errors.New("sshd: server requires at least one host key")
	}
	if b.pref.Name == "" {
		b.pref.Name = "sshd_1.0"
	}
	hostKeyAlgos := b.pref.HostKeys.Algorithms()
	b.pref.ServerHostKeyAlgorithms = hostKeyAlgos
	return &Server{pref: b.pref}, nil
}

// Server holds an immutable, validated configuration ready to accept
// connections.
type Server struct {
	pref Preference
}

// Accept begins serving one already-accepted net.Conn.
func (s *Server) Accept(conn net.Conn) *Accept {
	return &Accept{server: s, conn: conn}
}

// Accept drives the version exchange and initial key exchange for one
// connection, before the caller hands off to Run.
type Accept struct {
	server *Server
	conn   net.Conn
}

type connReadWriter struct {
	r io.Reader
	w io.Writer
}

func (c connReadWriter) Read(p []byte) (int, error)  { return c.r.Read(p) }
func (c connReadWriter) Write(p []byte) (int, error) { return c.w.Write(p) }

// Handshake performs the version-string exchange and the initial key
// exchange, blocking until keys are installed in both directions. On
// success it returns an Established ready for Run.
func (a *Accept) Handshake(ctx context.Context) (*Established, error) {
	bannerResult, err := banner.Exchange(a.conn, a.server.pref.Name)
	if err != nil {
		return nil, NewError(kindForBannerErr(err), "version exchange failed", err)
	}

	state := session.New()
	rw := connReadWriter{r: bannerResult.Reader, w: a.conn}
	transport := bpp.New(rw, state)

	serverVersion := []byte("SSH-2.0-" + a.server.pref.Name)
	engine := kex.NewEngine(a.server.pref.HostKeys.Map(), a.server.pref.toNegotiatePreference(),
		bannerResult.PeerID, serverVersion, nil)

	serverInit := engine.ServerKexInit()
	if err := transport.WritePacket(serverInit.Marshal()); err != nil {
		return nil, NewError(KindIoError, "writing server KEXINIT", err)
	}

	result, err := runKexToCompletion(transport, engine, state, message.VocabDefault)
	if err != nil {
		return nil, err
	}

	return &Established{
		server:        a.server,
		conn:          a.conn,
		transport:     transport,
		state:         state,
		sessionID:     result.SessionID,
		clientVersion: bannerResult.PeerID,
		serverVersion: serverVersion,
	}, nil
}

func kindForBannerErr(err error) ErrorKind {
	switch {
	case errors.Is(err, banner.ErrInvalidVersion):
		return KindInvalidVersion
	case errors.Is(err, banner.ErrLineTooLong):
		return KindVersionTooLong
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return KindVersionUnexpectedEOF
	default:
		return KindIoError
	}
}

// runKexToCompletion drives one kex.Engine through Step calls against
// transport until it produces a Result and both sides' NEWKEYS have
// been exchanged, installing the derived keys into state. It is used
// both for the initial handshake and for a later rekey.
func runKexToCompletion(transport *bpp.Transport, engine *kex.Engine, state *session.State, vocab message.Vocabulary) (*kex.Result, error) {
	sentNewKeys := false
	recvNewKeys := false

	for {
		payload, err := transport.ReadPacket()
		if err != nil {
			return nil, NewError(KindIoError, "reading kex packet", err)
		}
		msg, err := message.Decode(vocab, payload)
		if err != nil {
			return nil, NewError(KindUnpackError, "decoding kex packet", err)
		}

		if _, ok := msg.(message.NewKeys); ok {
			recvNewKeys = true
			if engine.Result() != nil {
				installInbound(state, engine.Result())
			}
			if sentNewKeys && recvNewKeys {
				engine.MarkNewKeysReceived()
				return engine.Result(), nil
			}
			continue
		}

		switch msg.(type) {
		case message.Disconnect:
			return nil, NewError(KindIoError, "peer disconnected during kex", io.EOF)
		case message.Ignore, message.Debug, message.Unimplemented:
			continue
		}

		out, nextVocab, done, err := engine.Step(vocab, msg)
		if err != nil {
			return nil, NewError(KindKexError, "kex step failed", err)
		}
		vocab = nextVocab
		for _, m := range out {
			if err := transport.WritePacket(m.Marshal()); err != nil {
				return nil, NewError(KindIoError, "writing kex reply", err)
			}
		}
		if done {
			if err := transport.WritePacket(message.NewKeys{}.Marshal()); err != nil {
				return nil, NewError(KindIoError, "writing NEWKEYS", err)
			}
			installOutbound(state, engine.Result())
			sentNewKeys = true
			if recvNewKeys {
				engine.MarkNewKeysReceived()
				return engine.Result(), nil
			}
		}
	}
}

func installInbound(state *session.State, result *kex.Result) {
	newHash := kex.HashFunc(result.Algorithms.Kex)
	cipherName := result.Algorithms.CipherClientToServer
	macName := result.Algorithms.MACClientToServer
	spec, _ := sshcrypto.Spec(cipherName)
	macLen, _ := sshcrypto.MACSize(macName)
	ivBytes := kex.DeriveKey(newHash, result.SharedSecret, result.ExchangeHash, kex.SlotInitialIVClientToServer, result.SessionID, spec.IVSize)
	keyBytes := kex.DeriveKey(newHash, result.SharedSecret, result.ExchangeHash, kex.SlotEncryptionKeyClientToServer, result.SessionID, spec.KeySize)
	macKey := kex.DeriveKey(newHash, result.SharedSecret, result.ExchangeHash, kex.SlotIntegrityKeyClientToServer, result.SessionID, macLen)

	stream, _ := sshcrypto.NewCipher(cipherName, keyBytes, ivBytes)
	state.SessionID = result.SessionID
	state.SwitchInbound(cipherName, stream, macName, macKey, result.Algorithms.CompressionClientToServer)
}

func installOutbound(state *session.State, result *kex.Result) {
	newHash := kex.HashFunc(result.Algorithms.Kex)
	cipherName := result.Algorithms.CipherServerToClient
	macName := result.Algorithms.MACServerToClient
	spec, _ := sshcrypto.Spec(cipherName)
	macLen, _ := sshcrypto.MACSize(macName)
	ivBytes := kex.DeriveKey(newHash, result.SharedSecret, result.ExchangeHash, kex.SlotInitialIVServerToClient, result.SessionID, spec.IVSize)
	keyBytes := kex.DeriveKey(newHash, result.SharedSecret, result.ExchangeHash, kex.SlotEncryptionKeyServerToClient, result.SessionID, spec.KeySize)
	macKey := kex.DeriveKey(newHash, result.SharedSecret, result.ExchangeHash, kex.SlotIntegrityKeyServerToClient, result.SessionID, macLen)

	stream, _ := sshcrypto.NewCipher(cipherName, keyBytes, ivBytes)
	state.SessionID = result.SessionID
	state.SwitchOutbound(cipherName, stream, macName, macKey, result.Algorithms.CompressionServerToClient)
}
