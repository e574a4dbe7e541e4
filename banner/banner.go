// Package banner implements the SSH version-exchange line of RFC 4253
// §4.2: a single "SSH-2.0-..." line sent and received once at the start
// of every connection, before binary-packet framing begins.
package banner

import (
	"bufio"
	"errors"
	"io"
)

// MaxLineLength is the hard cap on the received identification line,
// including the terminator.
const MaxLineLength = 255

// ErrInvalidVersion is returned when the peer's line does not start
// with the required "SSH-2.0-" prefix.
var ErrInvalidVersion = errors.New("banner: identification line is not SSH-2.0")

// ErrLineTooLong is returned when no line terminator appears within
// MaxLineLength bytes.
var ErrLineTooLong = errors.New("banner: identification line exceeds maximum length")

// Result carries the peer's raw identification string and a reader
// positioned just past the banner line, ready to be handed to a
// bpp.Transport for binary-packet framing.
type Result struct {
	PeerID []byte
	Reader *bufio.Reader
}

// Exchange sends the local identification line and reads the peer's,
// concurrently, per RFC 4253 §4.2. serverID is the suffix after
// "SSH-2.0-" (e.g. "sshd_8.1"); the trailing "\r\n" is added here.
func Exchange(rw io.ReadWriter, serverID string) (Result, error) {
	errCh := make(chan error, 1)
	go func() {
		_, err := rw.Write([]byte("SSH-2.0-" + serverID + "\r\n"))
		errCh <- err
	}()

	reader := bufio.NewReader(rw)
	line, err := readLine(reader)
	writeErr := <-errCh
	if err != nil {
		return Result{}, err
	}
	if writeErr != nil {
		return Result{}, writeErr
	}
	if len(line) < 8 || string(line[:8]) != "SSH-2.0-" {
		return Result{}, ErrInvalidVersion
	}
	return Result{PeerID: line, Reader: reader}, nil
}

func readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		if len(line) >= MaxLineLength {
			return nil, ErrLineTooLong
		}
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == '\n' {
			if n := len(line); n > 0 && line[n-1] == '\r' {
				line = line[:n-1]
			}
			return line, nil
		}
		line = append(line, b)
	}
}
