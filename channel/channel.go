// Package channel models one multiplexed SSH channel (RFC 4254 §5) as
// a set of in-process pipes: the runner writes inbound CHANNEL_DATA
// into Stdin and drains Stdout/Stderr to wrap as outbound CHANNEL_DATA/
// CHANNEL_EXTENDED_DATA, while a handler goroutine reads Stdin and
// writes Stdout/Stderr exactly like any other io.Reader/io.Writer.
package channel

import (
	"io"
	"sync"
)

// Type distinguishes the channel variants this engine opens.
type Type int

const (
	TypeSession Type = iota
	TypeDirectTCPIP
)

// simplifiedWindow is the fixed advertised window size this engine
// uses for every channel; no dynamic window tracking is implemented.
const simplifiedWindow = 1 << 20 // 1 MiB

// orderedEnv preserves the order "env" requests arrived in, since a
// plain map would scramble it and some shells are sensitive to PATH
// composition order.
type orderedEnv struct {
	mu     sync.Mutex
	keys   []string
	values map[string]string
}

func newOrderedEnv() *orderedEnv {
	return &orderedEnv{values: make(map[string]string)}
}

func (e *orderedEnv) Set(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.values[name]; !exists {
		e.keys = append(e.keys, name)
	}
	e.values[name] = value
}

// Pairs returns a snapshot as an insertion-ordered slice of key/value
// pairs, since Go maps have no defined iteration order.
func (e *orderedEnv) Pairs() []EnvPair {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]EnvPair, len(e.keys))
	for i, k := range e.keys {
		out[i] = EnvPair{Name: k, Value: e.values[k]}
	}
	return out
}

// EnvPair is one "env" channel request, in arrival order.
type EnvPair struct {
	Name, Value string
}

// Channel is the server-side bookkeeping for one open channel: the
// pipe endpoints a handler uses for I/O, plus enough request state to
// answer shell/exec/pty-req/window-change.
type Channel struct {
	ID            uint32
	PeerID        uint32
	Type          Type
	Env           *orderedEnv
	PeerWindow    uint32 // our view of the peer's receive window
	MaxPacketSize uint32

	// handler-facing pipe ends
	StdinWriteEnd  io.WriteCloser // runner writes inbound CHANNEL_DATA here
	StdinReadEnd   io.ReadCloser  // handler reads stdin from here
	StdoutWriteEnd io.WriteCloser // handler writes stdout here
	StdoutReadEnd  io.ReadCloser  // drain reads stdout from here
	StderrWriteEnd io.WriteCloser // handler writes stderr here
	StderrReadEnd  io.ReadCloser  // drain reads stderr from here

	closeOnce sync.Once
	closed    chan struct{}
}

// New allocates a Channel with fresh pipe endpoints.
func New(id, peerID uint32, typ Type, peerWindow, maxPacketSize uint32) *Channel {
	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	return &Channel{
		ID:             id,
		PeerID:         peerID,
		Type:           typ,
		Env:            newOrderedEnv(),
		PeerWindow:     peerWindow,
		MaxPacketSize:  maxPacketSize,
		StdinWriteEnd:  stdinW,
		StdinReadEnd:   stdinR,
		StdoutWriteEnd: stdoutW,
		StdoutReadEnd:  stdoutR,
		StderrWriteEnd: stderrW,
		StderrReadEnd:  stderrR,
		closed:         make(chan struct{}),
	}
}

// ServerWindowSize is the fixed window this engine advertises when
// opening or confirming a channel.
func ServerWindowSize() uint32 { return simplifiedWindow }

// CloseInbound closes the stdin sink so the handler observes EOF; used
// on receiving CHANNEL_EOF from the peer (a peer's CHANNEL_CLOSE goes
// through Shutdown instead).
func (c *Channel) CloseInbound() error {
	return c.StdinWriteEnd.Close()
}

// Shutdown tears down every pipe endpoint this channel owns, so any
// bridging goroutines still reading/writing them unblock with EOF or a
// closed-pipe error. Safe to call more than once.
func (c *Channel) Shutdown() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.StdinWriteEnd.Close()
		_ = c.StdinReadEnd.Close()
		_ = c.StdoutWriteEnd.Close()
		_ = c.StdoutReadEnd.Close()
		_ = c.StderrWriteEnd.Close()
		_ = c.StderrReadEnd.Close()
	})
}

// Done reports a channel closed for cancellation purposes (e.g. a
// handler goroutine selecting on it to stop early).
func (c *Channel) Done() <-chan struct{} { return c.closed }
