package banner

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// loopback lets both sides of Exchange run against in-memory buffers.
type loopback struct {
	readFrom *bytes.Buffer
	writeTo  *bytes.Buffer
}

func (l *loopback) Read(p []byte) (int, error)  { return l.readFrom.Read(p) }
func (l *loopback) Write(p []byte) (int, error) { return l.writeTo.Write(p) }

func TestExchangeHappyPath(t *testing.T) {
	clientLine := bytes.NewBufferString("SSH-2.0-OpenSSH_8.9\r\n")
	serverOut := &bytes.Buffer{}
	conn := &loopback{readFrom: clientLine, writeTo: serverOut}

	result, err := Exchange(conn, "sshd_1.0")
	require.NoError(t, err)
	require.Equal(t, "SSH-2.0-OpenSSH_8.9", string(result.PeerID))
	require.Equal(t, "SSH-2.0-sshd_1.0\r\n", serverOut.String())
}

func TestExchangeAcceptsBareNewline(t *testing.T) {
	clientLine := bytes.NewBufferString("SSH-2.0-legacy\n")
	conn := &loopback{readFrom: clientLine, writeTo: &bytes.Buffer{}}

	result, err := Exchange(conn, "sshd_1.0")
	require.NoError(t, err)
	require.Equal(t, "SSH-2.0-legacy", string(result.PeerID))
}

func TestExchangeRejectsInvalidVersion(t *testing.T) {
	clientLine := bytes.NewBufferString("HELO not ssh\r\n")
	conn := &loopback{readFrom: clientLine, writeTo: &bytes.Buffer{}}

	_, err := Exchange(conn, "sshd_1.0")
	require.ErrorIs(t, err, ErrInvalidVersion)
}

func TestExchangeRejectsOverlongLine(t *testing.T) {
	clientLine := bytes.NewBuffer(bytes.Repeat([]byte{'A'}, MaxLineLength+10))
	conn := &loopback{readFrom: clientLine, writeTo: &bytes.Buffer{}}

	_, err := Exchange(conn, "sshd_1.0")
	require.ErrorIs(t, err, ErrLineTooLong)
}

func TestLeftoverBytesGoToReader(t *testing.T) {
	clientLine := bytes.NewBufferString("SSH-2.0-OpenSSH_8.9\r\nKEXINIT-PAYLOAD")
	conn := &loopback{readFrom: clientLine, writeTo: &bytes.Buffer{}}

	result, err := Exchange(conn, "sshd_1.0")
	require.NoError(t, err)
	remainder, err := io.ReadAll(result.Reader)
	require.NoError(t, err)
	require.Equal(t, "KEXINIT-PAYLOAD", string(remainder))
}
