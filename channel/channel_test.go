package channel

import (
	"io"
	"testing"
	"time"

	"blitter.com/go/sshd/message"
	"github.com/stretchr/testify/require"
)

func TestStdinWriteReadRoundTrip(t *testing.T) {
	ch := New(1, 2, TypeSession, ServerWindowSize(), 32768)
	defer ch.Shutdown()

	go func() {
		_, _ = ch.StdinWriteEnd.Write([]byte("hello"))
		_ = ch.StdinWriteEnd.Close()
	}()

	data, err := io.ReadAll(ch.StdinReadEnd)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestBridgeEmitsDataAndExtendedData(t *testing.T) {
	ch := New(1, 2, TypeSession, ServerWindowSize(), 32768)
	out := make(chan message.Message, 16)

	done := make(chan struct{})
	go func() {
		Bridge(ch, out)
		close(done)
	}()

	_, _ = ch.StdoutWriteEnd.Write([]byte("stdout-bytes"))
	_ = ch.StdoutWriteEnd.Close()
	_, _ = ch.StderrWriteEnd.Write([]byte("stderr-bytes"))
	_ = ch.StderrWriteEnd.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not finish draining")
	}
	close(out)

	var sawData, sawExtended bool
	for m := range out {
		switch v := m.(type) {
		case message.ChannelData:
			require.Equal(t, "stdout-bytes", string(v.Data))
			sawData = true
		case message.ChannelExtendedData:
			require.Equal(t, "stderr-bytes", string(v.Data))
			require.Equal(t, uint32(message.ExtendedDataStderr), v.DataTypeCode)
			sawExtended = true
		}
	}
	require.True(t, sawData)
	require.True(t, sawExtended)
}

func TestOrderedEnvPreservesInsertionOrder(t *testing.T) {
	env := newOrderedEnv()
	env.Set("PATH", "/usr/bin")
	env.Set("LANG", "C")
	env.Set("PATH", "/usr/local/bin:/usr/bin")

	pairs := env.Pairs()
	require.Equal(t, []EnvPair{{Name: "PATH", Value: "/usr/local/bin:/usr/bin"}, {Name: "LANG", Value: "C"}}, pairs)
}
