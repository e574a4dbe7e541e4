package authorizedkeys

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAndContains(t *testing.T) {
	blob := []byte("fake-ed25519-blob-bytes")
	encoded := base64.StdEncoding.EncodeToString(blob)
	data := "# a comment\n\nssh-ed25519 " + encoded + " user@host\n"

	set, err := ParseBytes([]byte(data))
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	require.True(t, set.Contains("ssh-ed25519", blob))
	require.False(t, set.Contains("ssh-rsa", blob))
}

func TestParseSkipsUnknownAlgorithm(t *testing.T) {
	data := "ecdsa-sha2-nistp256 " + base64.StdEncoding.EncodeToString([]byte("x")) + "\n"
	set, err := ParseBytes([]byte(data))
	require.NoError(t, err)
	require.Equal(t, 0, set.Len())
}

func TestParseFromReader(t *testing.T) {
	blob := []byte("another-blob")
	line := "ssh-rsa " + base64.StdEncoding.EncodeToString(blob) + "\n"
	set, err := Parse(strings.NewReader(line))
	require.NoError(t, err)
	require.True(t, set.Contains("ssh-rsa", blob))
}
