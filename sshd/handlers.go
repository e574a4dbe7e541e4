package sshd

import (
	"io"

	"blitter.com/go/sshd/channel"
)

// PasswordResult is the outcome a password-auth handler returns.
type PasswordResult struct {
	kind    passwordResultKind
	message string
}

type passwordResultKind int

const (
	passwordOK passwordResultKind = iota
	passwordChangeRequired
	passwordFailure
)

// PasswordOK accepts the password.
func PasswordOK() PasswordResult { return PasswordResult{kind: passwordOK} }

// PasswordChangeRequired rejects the password but tells the client a
// change is required, carrying the SSH_MSG_USERAUTH_PASSWD_CHANGEREQ
// prompt text.
func PasswordChangeRequired(message string) PasswordResult {
	return PasswordResult{kind: passwordChangeRequired, message: message}
}

// PasswordFailure rejects the password outright.
func PasswordFailure() PasswordResult { return PasswordResult{kind: passwordFailure} }

func (r PasswordResult) Accepted() bool        { return r.kind == passwordOK }
func (r PasswordResult) ChangeRequired() bool  { return r.kind == passwordChangeRequired }
func (r PasswordResult) ChangeMessage() string { return r.message }

// ShellContext is handed to a handler serving a "shell" channel
// request: a plain interactive session with no program name.
type ShellContext struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Env    []channel.EnvPair

	// Pty carries terminal geometry if a "pty-req" preceded "shell",
	// nil otherwise.
	Pty *PtyInfo

	// ExitStatus, once set by a handler that then returns nil, becomes
	// the channel's "exit-status" request. Handlers that never set it
	// are reported with status 0 on a clean return. When the handler
	// returns an error no exit-status is sent, whether or not it was
	// set; the channel is simply closed.
	ExitStatus func(code uint32)
}

// ExecContext is handed to a handler serving an "exec" channel
// request.
type ExecContext struct {
	Prog   string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Env    []channel.EnvPair
	Pty    *PtyInfo

	ExitStatus func(code uint32)
}

// DirectTCPIPContext is handed to a handler serving a "direct-tcpip"
// channel open: a client-requested TCP forward through the server.
type DirectTCPIPContext struct {
	HostToConnect  string
	PortToConnect  uint32
	OriginatorHost string
	OriginatorPort uint32

	// Ingress carries bytes arriving from the SSH client, toward the
	// forwarded destination. Egress carries bytes the reverse way.
	Ingress io.Reader
	Egress  io.Writer
}

// PtyInfo is the terminal geometry and mode a "pty-req" carried.
type PtyInfo struct {
	TermEnv       string
	WidthChars    uint32
	HeightRows    uint32
	WidthPixels   uint32
	HeightPixels  uint32
	TerminalModes []byte
}

// Handlers bundles the callbacks an embedder supplies to customize
// authentication and channel behavior. E is the embedder's own
// per-connection context type (e.g. holding an authenticated username,
// a database handle, whatever the embedding application needs to carry
// from auth success through to channel handling); Run is generic over
// it.
type Handlers[E any] struct {
	// Auth callbacks. A nil callback rejects that method outright (as
	// if it were absent from the "method name" list advertised in
	// SSH_MSG_USERAUTH_FAILURE).
	OnAuthNone           func(username string) (E, bool)
	OnAuthPublicKey      func(username, algorithm string, blob []byte) (E, bool)
	OnAuthPassword       func(username, password string) (E, PasswordResult)
	OnAuthChangePassword func(username, oldPassword, newPassword string) (E, PasswordResult)
	OnAuthHostBased      func(username, algorithm string, blob []byte, clientHostname, clientUsername string) (E, bool)

	// Channel callbacks. A nil callback fails that channel-request or
	// channel-open with the corresponding wire-level failure message.
	OnChannelShell       func(embedder E, ctx *ShellContext) error
	OnChannelExec        func(embedder E, ctx *ExecContext) error
	OnChannelDirectTCPIP func(embedder E, ctx *DirectTCPIPContext) error
}
