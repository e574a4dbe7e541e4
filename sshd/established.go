package sshd

import (
	"context"
	"net"
	"sync"
	"time"

	"blitter.com/go/sshd/bpp"
	"blitter.com/go/sshd/channel"
	"blitter.com/go/sshd/kex"
	"blitter.com/go/sshd/message"
	"blitter.com/go/sshd/session"
)

// Established is a connection that has completed the version exchange
// and the initial key exchange. Run drives it for the rest of its
// lifetime: authentication, then channel multiplexing, until the peer
// disconnects or a protocol error forces a close.
type Established struct {
	server    *Server
	conn      net.Conn
	transport *bpp.Transport
	state     *session.State
	sessionID []byte

	clientVersion []byte
	serverVersion []byte

	mu                 sync.Mutex
	channels           map[uint32]*channel.Channel
	extras             map[uint32]*channelExtra
	nextLocalChannelID uint32

	outbound chan message.Message
}

// Run authenticates the connection and then services channel requests
// until the connection ends, using handlers to decide every
// authentication and channel-open/request outcome. It always returns
// once the connection is done; a nil error means the peer disconnected
// cleanly.
func Run[E any](ctx context.Context, e *Established, handlers Handlers[E]) error {
	embedder, err := runUserauth(e, handlers)
	if err != nil {
		e.disconnect(err)
		return err
	}

	e.channels = make(map[uint32]*channel.Channel)
	e.outbound = make(chan message.Message, 64)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for m := range e.outbound {
			if werr := e.transport.WritePacket(m.Marshal()); werr != nil {
				return
			}
		}
	}()

	runErr := pump(ctx, e, handlers, embedder)

	close(e.outbound)
	<-writerDone

	e.mu.Lock()
	for _, ch := range e.channels {
		ch.Shutdown()
	}
	e.mu.Unlock()

	if runErr != nil {
		e.disconnect(runErr)
	}
	return runErr
}

func (e *Established) disconnect(err error) {
	kind := KindIoError
	if se, ok := err.(*Error); ok {
		kind = se.Kind
	}
	msg := message.Disconnect{ReasonCode: kind.ReasonCode(), Description: "error occurred"}
	_ = e.transport.WritePacket(msg.Marshal())
}

func pump[E any](ctx context.Context, e *Established, handlers Handlers[E], embedder E) error {
	idleTimeout := time.Duration(e.server.pref.IdleTimeoutSeconds) * time.Second

	for {
		if idleTimeout > 0 {
			_ = e.conn.SetReadDeadline(time.Now().Add(idleTimeout))
		}
		select {
		case <-ctx.Done():
			return NewError(KindTimeout, "context cancelled", ctx.Err())
		default:
		}

		payload, err := e.transport.ReadPacket()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return NewError(KindTimeout, "idle timeout", err)
			}
			return NewError(KindIoError, "reading packet", err)
		}

		msg, err := message.Decode(message.VocabDefault, payload)
		if err != nil {
			return NewError(KindUnpackError, "decoding packet", err)
		}

		switch m := msg.(type) {
		case message.Disconnect:
			return nil
		case message.Ignore:
			// nothing to do
		case message.Debug:
			// nothing to do
		case message.Unimplemented:
			// nothing to do
		case message.KexInit:
			if err := e.runRekey(m); err != nil {
				return err
			}
		case message.GlobalRequest:
			e.handleGlobalRequest(m)
		case message.ChannelOpen:
			dispatchChannelOpen(e, handlers, embedder, m)
		case message.ChannelData:
			e.handleChannelData(m)
		case message.ChannelExtendedData:
			// clients do not normally send extended data to the server;
			// accept and discard rather than treat as a protocol error.
		case message.ChannelWindowAdjust:
			e.handleWindowAdjust(m)
		case message.ChannelEOF:
			e.handleChannelEOF(m)
		case message.ChannelClose:
			e.handleChannelClose(m)
		case message.ChannelRequest:
			dispatchChannelRequest(e, handlers, embedder, m)
		default:
			e.send(message.Unimplemented{SequenceNumber: e.state.Inbound.SequenceNumber - 1})
		}
	}
}

func (e *Established) send(m message.Message) {
	e.outbound <- m
}

func (e *Established) runRekey(clientInit message.KexInit) error {
	engine := kex.NewEngine(e.server.pref.HostKeys.Map(), e.server.pref.toNegotiatePreference(),
		e.clientVersion, e.serverVersion, e.sessionID)
	serverInit := engine.ServerKexInit()
	if err := e.transport.WritePacket(serverInit.Marshal()); err != nil {
		return NewError(KindIoError, "writing rekey server KEXINIT", err)
	}

	out, nextVocab, done, err := engine.Step(message.VocabDefault, clientInit)
	if err != nil {
		return NewError(KindKexError, "rekey step failed", err)
	}
	for _, m := range out {
		if err := e.transport.WritePacket(m.Marshal()); err != nil {
			return NewError(KindIoError, "writing rekey reply", err)
		}
	}
	vocab := nextVocab
	sentNewKeys := false
	recvNewKeys := false
	if done {
		if err := e.transport.WritePacket(message.NewKeys{}.Marshal()); err != nil {
			return NewError(KindIoError, "writing rekey NEWKEYS", err)
		}
		installOutbound(e.state, engine.Result())
		sentNewKeys = true
	}

	for !(sentNewKeys && recvNewKeys) {
		payload, err := e.transport.ReadPacket()
		if err != nil {
			return NewError(KindIoError, "reading rekey packet", err)
		}
		msg, err := message.Decode(vocab, payload)
		if err != nil {
			return NewError(KindUnpackError, "decoding rekey packet", err)
		}
		if _, ok := msg.(message.NewKeys); ok {
			recvNewKeys = true
			if engine.Result() != nil {
				installInbound(e.state, engine.Result())
			}
			continue
		}
		switch msg.(type) {
		case message.Disconnect:
			return nil
		case message.Ignore, message.Debug, message.Unimplemented:
			continue
		}
		out, nextVocab, done, err := engine.Step(vocab, msg)
		if err != nil {
			return NewError(KindKexError, "rekey step failed", err)
		}
		vocab = nextVocab
		for _, m := range out {
			if err := e.transport.WritePacket(m.Marshal()); err != nil {
				return NewError(KindIoError, "writing rekey reply", err)
			}
		}
		if done && !sentNewKeys {
			if err := e.transport.WritePacket(message.NewKeys{}.Marshal()); err != nil {
				return NewError(KindIoError, "writing rekey NEWKEYS", err)
			}
			installOutbound(e.state, engine.Result())
			sentNewKeys = true
		}
	}
	engine.MarkNewKeysReceived()
	// session_id never changes across a rekey.
	return nil
}

func (e *Established) handleGlobalRequest(m message.GlobalRequest) {
	if m.RequestName == "tcpip-forward" {
		if m.WantReply {
			e.send(message.RequestFailure{})
		}
		return
	}
	if m.WantReply {
		e.send(message.RequestFailure{})
	}
}

func (e *Established) handleChannelData(m message.ChannelData) {
	ch := e.lookupChannel(m.RecipientChannel)
	if ch == nil {
		return
	}
	_, _ = ch.StdinWriteEnd.Write(m.Data)
}

func (e *Established) handleWindowAdjust(m message.ChannelWindowAdjust) {
	ch := e.lookupChannel(m.RecipientChannel)
	if ch == nil {
		return
	}
	ch.PeerWindow += m.BytesToAdd
	// No per-byte window accounting is tracked on our side, so a peer
	// topping up its window is echoed back symmetrically to keep its
	// advertised window from running dry on long transfers.
	e.send(message.ChannelWindowAdjust{RecipientChannel: ch.PeerID, BytesToAdd: m.BytesToAdd})
}

func (e *Established) handleChannelEOF(m message.ChannelEOF) {
	ch := e.lookupChannel(m.RecipientChannel)
	if ch == nil {
		return
	}
	_ = ch.CloseInbound()
}

func (e *Established) handleChannelClose(m message.ChannelClose) {
	ch := e.lookupChannel(m.RecipientChannel)
	if ch == nil {
		return
	}
	ch.Shutdown()
	e.send(message.ChannelClose{RecipientChannel: ch.PeerID})
	e.mu.Lock()
	delete(e.channels, m.RecipientChannel)
	e.mu.Unlock()
}

func (e *Established) lookupChannel(id uint32) *channel.Channel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channels[id]
}

func (e *Established) allocateChannel(peerID uint32, typ channel.Type, peerWindow, maxPacketSize uint32) *channel.Channel {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextLocalChannelID
	e.nextLocalChannelID++
	ch := channel.New(id, peerID, typ, peerWindow, maxPacketSize)
	e.channels[id] = ch
	return ch
}

// sendChannelEOF sends CHANNEL_EOF for ch without tearing it down; used
// so callers can interleave a CHANNEL_REQUEST between EOF and CLOSE.
func (e *Established) sendChannelEOF(ch *channel.Channel) {
	e.send(message.ChannelEOF{RecipientChannel: ch.PeerID})
}

func (e *Established) closeChannel(ch *channel.Channel) {
	ch.Shutdown()
	e.mu.Lock()
	_, live := e.channels[ch.ID]
	delete(e.channels, ch.ID)
	e.mu.Unlock()
	// handleChannelClose may already have answered the peer's CLOSE and
	// removed the channel; send ours only while it is still in the table.
	if live {
		e.send(message.ChannelClose{RecipientChannel: ch.PeerID})
	}
}
