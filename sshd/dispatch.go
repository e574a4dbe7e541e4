package sshd

import (
	"blitter.com/go/sshd/channel"
	"blitter.com/go/sshd/message"
)

// channelExtra carries per-channel bookkeeping that channel.Channel
// itself does not need to know about (pty geometry, exit status once
// the handler sets one).
type channelExtra struct {
	pty        *PtyInfo
	exitStatus *uint32
}

func (e *Established) extraFor(id uint32) *channelExtra {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.extras == nil {
		e.extras = make(map[uint32]*channelExtra)
	}
	ex, ok := e.extras[id]
	if !ok {
		ex = &channelExtra{}
		e.extras[id] = ex
	}
	return ex
}

func dispatchChannelOpen[E any](e *Established, handlers Handlers[E], embedder E, m message.ChannelOpen) {
	switch m.ChannelType {
	case "session":
		ch := e.allocateChannel(m.SenderChannel, channel.TypeSession, m.InitialWindowSize, m.MaximumPacketSize)
		e.send(message.ChannelOpenConfirmation{
			RecipientChannel:  m.SenderChannel,
			SenderChannel:     ch.ID,
			InitialWindowSize: channel.ServerWindowSize(),
			MaximumPacketSize: m.MaximumPacketSize,
		})

	case "direct-tcpip":
		if handlers.OnChannelDirectTCPIP == nil {
			e.send(message.ChannelOpenFailure{
				RecipientChannel: m.SenderChannel,
				ReasonCode:       message.OpenAdministrativelyProhibited,
				Description:      "direct-tcpip not supported",
			})
			return
		}
		data, err := message.ParseDirectTCPIPData(m.TypeSpecificData)
		if err != nil {
			e.send(message.ChannelOpenFailure{RecipientChannel: m.SenderChannel, ReasonCode: message.OpenConnectFailed, Description: "malformed direct-tcpip data"})
			return
		}
		ch := e.allocateChannel(m.SenderChannel, channel.TypeDirectTCPIP, m.InitialWindowSize, m.MaximumPacketSize)
		e.send(message.ChannelOpenConfirmation{
			RecipientChannel:  m.SenderChannel,
			SenderChannel:     ch.ID,
			InitialWindowSize: channel.ServerWindowSize(),
			MaximumPacketSize: m.MaximumPacketSize,
		})
		go runDirectTCPIP(e, handlers, embedder, ch, data)

	default:
		e.send(message.ChannelOpenFailure{
			RecipientChannel: m.SenderChannel,
			ReasonCode:       message.OpenUnknownChannelType,
			Description:      "unsupported channel type " + m.ChannelType,
		})
	}
}

func dispatchChannelRequest[E any](e *Established, handlers Handlers[E], embedder E, m message.ChannelRequest) {
	ch := e.lookupChannel(m.RecipientChannel)
	if ch == nil {
		if m.WantReply {
			e.send(message.ChannelFailure{RecipientChannel: m.RecipientChannel})
		}
		return
	}

	switch m.RequestType {
	case "env":
		data, err := message.ParseEnvRequestData(m.RequestData)
		if err != nil {
			e.replyChannelRequest(m, false)
			return
		}
		ch.Env.Set(data.Name, data.Value)
		e.replyChannelRequest(m, true)

	case "pty-req":
		data, err := message.ParsePtyRequestData(m.RequestData)
		if err != nil {
			e.replyChannelRequest(m, false)
			return
		}
		e.extraFor(ch.ID).pty = &PtyInfo{
			TermEnv:       data.Term,
			WidthChars:    data.WidthChars,
			HeightRows:    data.HeightChars,
			WidthPixels:   data.WidthPixels,
			HeightPixels:  data.HeightPixels,
			TerminalModes: data.Modes,
		}
		e.replyChannelRequest(m, true)

	case "window-change":
		// Geometry is available to a handler only at session start in
		// this engine; live resizes are acknowledged but not re-delivered.
		e.replyChannelRequest(m, true)

	case "signal":
		// No reply is ever sent for "signal" per RFC 4254 §6.9.

	case "shell":
		if handlers.OnChannelShell == nil {
			e.replyChannelRequest(m, false)
			return
		}
		e.replyChannelRequest(m, true)
		go runShell(e, handlers, embedder, ch)

	case "exec":
		if handlers.OnChannelExec == nil {
			e.replyChannelRequest(m, false)
			return
		}
		data, err := message.ParseExecRequestData(m.RequestData)
		if err != nil {
			e.replyChannelRequest(m, false)
			return
		}
		e.replyChannelRequest(m, true)
		go runExec(e, handlers, embedder, ch, data.Command)

	default:
		e.replyChannelRequest(m, false)
	}
}

func (e *Established) replyChannelRequest(m message.ChannelRequest, ok bool) {
	if !m.WantReply {
		return
	}
	if ok {
		e.send(message.ChannelSuccess{RecipientChannel: m.RecipientChannel})
	} else {
		e.send(message.ChannelFailure{RecipientChannel: m.RecipientChannel})
	}
}

func runShell[E any](e *Established, handlers Handlers[E], embedder E, ch *channel.Channel) {
	bridgeDone := make(chan struct{})
	go func() {
		channel.Bridge(ch, e.outbound)
		close(bridgeDone)
	}()

	ex := e.extraFor(ch.ID)
	ctx := &ShellContext{
		Stdin:  ch.StdinReadEnd,
		Stdout: ch.StdoutWriteEnd,
		Stderr: ch.StderrWriteEnd,
		Env:    ch.Env.Pairs(),
		Pty:    ex.pty,
		ExitStatus: func(code uint32) {
			v := code
			ex.exitStatus = &v
		},
	}

	err := handlers.OnChannelShell(embedder, ctx)
	e.finishChannelHandler(ch, ex, bridgeDone, err)
}

func runExec[E any](e *Established, handlers Handlers[E], embedder E, ch *channel.Channel, command string) {
	bridgeDone := make(chan struct{})
	go func() {
		channel.Bridge(ch, e.outbound)
		close(bridgeDone)
	}()

	ex := e.extraFor(ch.ID)
	ctx := &ExecContext{
		Prog:   command,
		Stdin:  ch.StdinReadEnd,
		Stdout: ch.StdoutWriteEnd,
		Stderr: ch.StderrWriteEnd,
		Env:    ch.Env.Pairs(),
		Pty:    ex.pty,
		ExitStatus: func(code uint32) {
			v := code
			ex.exitStatus = &v
		},
	}

	err := handlers.OnChannelExec(embedder, ctx)
	e.finishChannelHandler(ch, ex, bridgeDone, err)
}

func runDirectTCPIP[E any](e *Established, handlers Handlers[E], embedder E, ch *channel.Channel, data message.DirectTCPIPData) {
	ctx := &DirectTCPIPContext{
		HostToConnect:  data.HostToConnect,
		PortToConnect:  data.PortToConnect,
		OriginatorHost: data.OriginatorAddr,
		OriginatorPort: data.OriginatorPort,
		Ingress:        ch.StdinReadEnd,
		Egress:         ch.StdoutWriteEnd,
	}
	bridgeDone := make(chan struct{})
	go func() {
		channel.Bridge(ch, e.outbound)
		close(bridgeDone)
	}()

	_ = handlers.OnChannelDirectTCPIP(embedder, ctx)
	e.finishChannelHandler(ch, e.extraFor(ch.ID), bridgeDone, nil)
}

// finishChannelHandler closes the channel's write ends so the bridge
// observes EOF, waits for draining to finish, then sends CHANNEL_EOF,
// exit-status, and CHANNEL_CLOSE in that wire order. The exit-status is
// the handler's own value, or 0 when it returned nil without setting
// one; a handler that returned an error gets no exit-status.
func (e *Established) finishChannelHandler(ch *channel.Channel, ex *channelExtra, bridgeDone <-chan struct{}, handlerErr error) {
	_ = ch.StdoutWriteEnd.Close()
	_ = ch.StderrWriteEnd.Close()
	<-bridgeDone

	e.sendChannelEOF(ch)

	if handlerErr == nil && ex.exitStatus != nil {
		e.send(message.ChannelRequest{
			RecipientChannel: ch.PeerID,
			RequestType:      "exit-status",
			WantReply:        false,
			RequestData:      message.MarshalExitStatusRequestData(*ex.exitStatus),
		})
	} else if handlerErr == nil {
		e.send(message.ChannelRequest{
			RecipientChannel: ch.PeerID,
			RequestType:      "exit-status",
			WantReply:        false,
			RequestData:      message.MarshalExitStatusRequestData(0),
		})
	}

	e.closeChannel(ch)
}
