package negotiate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func basePreference() Preference {
	return Preference{
		KexAlgorithms:           []string{"curve25519-sha256", "diffie-hellman-group14-sha256"},
		ServerHostKeyAlgorithms: []string{"ssh-ed25519", "ssh-rsa"},
		CiphersClientToServer:   []string{"aes256-ctr", "aes128-ctr"},
		CiphersServerToClient:   []string{"aes256-ctr", "aes128-ctr"},
		MACsClientToServer:      []string{"hmac-sha2-256"},
		MACsServerToClient:      []string{"hmac-sha2-256"},
		CompressionClientToServer: []string{"none"},
		CompressionServerToClient: []string{"none"},
	}
}

func TestNegotiateFirstClientChoiceWins(t *testing.T) {
	client := basePreference()
	server := basePreference()
	server.KexAlgorithms = []string{"diffie-hellman-group14-sha256", "curve25519-sha256"}

	got, err := Negotiate(client, server)
	require.NoError(t, err)
	require.Equal(t, "curve25519-sha256", got.Kex)
}

func TestNegotiateNoOverlap(t *testing.T) {
	client := basePreference()
	client.KexAlgorithms = []string{"diffie-hellman-group1-sha1"}
	server := basePreference()
	server.KexAlgorithms = []string{"curve25519-sha256"}

	_, err := Negotiate(client, server)
	require.Error(t, err)
	var notMatched ErrNotMatched
	require.ErrorAs(t, err, &notMatched)
	require.Equal(t, "kex_algorithms", notMatched.Slot)
}

func TestNegotiateDisjointCiphersEachDirection(t *testing.T) {
	client := basePreference()
	client.CiphersClientToServer = []string{"aes128-ctr"}
	client.CiphersServerToClient = []string{"aes256-ctr"}
	server := basePreference()

	got, err := Negotiate(client, server)
	require.NoError(t, err)
	require.Equal(t, "aes128-ctr", got.CipherClientToServer)
	require.Equal(t, "aes256-ctr", got.CipherServerToClient)
}
