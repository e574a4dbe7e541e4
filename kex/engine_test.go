package kex

import (
	"testing"

	"blitter.com/go/sshd/message"
	"blitter.com/go/sshd/negotiate"
	"blitter.com/go/sshd/sshcrypto"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/curve25519"
)

func serverPreference() negotiate.Preference {
	return negotiate.Preference{
		KexAlgorithms:             []string{"curve25519-sha256", "diffie-hellman-group14-sha256", "diffie-hellman-group-exchange-sha256"},
		ServerHostKeyAlgorithms:   []string{"ssh-ed25519"},
		CiphersClientToServer:     sshcrypto.CipherNames(),
		CiphersServerToClient:     sshcrypto.CipherNames(),
		MACsClientToServer:        sshcrypto.MACNames(),
		MACsServerToClient:        sshcrypto.MACNames(),
		CompressionClientToServer: []string{"none"},
		CompressionServerToClient: []string{"none"},
	}
}

func clientKexInit(kexAlg string) message.KexInit {
	return message.KexInit{
		KexAlgorithms:             []string{kexAlg},
		ServerHostKeyAlgorithms:   []string{"ssh-ed25519"},
		CiphersClientToServer:     []string{"aes256-ctr"},
		CiphersServerToClient:     []string{"aes256-ctr"},
		MACsClientToServer:        []string{"hmac-sha2-256"},
		MACsServerToClient:        []string{"hmac-sha2-256"},
		CompressionClientToServer: []string{"none"},
		CompressionServerToClient: []string{"none"},
		LanguagesClientToServer:   []string{},
		LanguagesServerToClient:   []string{},
	}
}

func newEngineWithHostKey(t *testing.T) (*Engine, map[string]sshcrypto.Signer) {
	signer, err := sshcrypto.GenerateEd25519Signer()
	require.NoError(t, err)
	keys := map[string]sshcrypto.Signer{"ssh-ed25519": signer}
	e := NewEngine(keys, serverPreference(), []byte("SSH-2.0-client"), []byte("SSH-2.0-server"), nil)
	return e, keys
}

func TestCurve25519HappyPath(t *testing.T) {
	e, _ := newEngineWithHostKey(t)
	e.ServerKexInit()

	_, vocab, done, err := e.Step(message.VocabDefault, clientKexInit("curve25519-sha256"))
	require.NoError(t, err)
	require.False(t, done)

	var clientPriv [32]byte
	clientPriv[0] = 7
	clientPub, err := curve25519.X25519(clientPriv[:], curve25519.Basepoint)
	require.NoError(t, err)

	out, _, done, err := e.Step(vocab, message.KexDHInit{E: clientPub})
	require.NoError(t, err)
	require.True(t, done)
	require.Len(t, out, 1)

	reply, ok := out[0].(message.KexDHReply)
	require.True(t, ok)

	serverShared, err := curve25519.X25519(clientPriv[:], reply.F)
	require.NoError(t, err)

	result := e.Result()
	require.NotNil(t, result)
	require.Equal(t, serverShared, result.SharedSecret.Bytes())

	ok2, err := sshcrypto.VerifySignature(reply.HostKeyBlob, result.ExchangeHash, reply.Signature)
	require.NoError(t, err)
	require.True(t, ok2)

	require.Equal(t, result.ExchangeHash, result.SessionID, "session_id must equal H on first kex")
}

func TestDHGroup14HappyPath(t *testing.T) {
	e, _ := newEngineWithHostKey(t)
	e.ServerKexInit()

	_, vocab, _, err := e.Step(message.VocabDefault, clientKexInit("diffie-hellman-group14-sha256"))
	require.NoError(t, err)

	p, g, ok := FixedGroup("diffie-hellman-group14-sha256")
	require.True(t, ok)

	clientY := newTestScalar()
	clientE := modExp(g, clientY, p)

	out, _, done, err := e.Step(vocab, message.KexDHInit{E: clientE.Bytes()})
	require.NoError(t, err)
	require.True(t, done)

	reply := out[0].(message.KexDHReply)
	f := newBig(reply.F)
	serverShared := modExp(f, clientY, p)

	require.Equal(t, serverShared.Bytes(), e.Result().SharedSecret.Bytes())
}

func TestGexHappyPath(t *testing.T) {
	e, _ := newEngineWithHostKey(t)
	e.ServerKexInit()

	_, vocab, _, err := e.Step(message.VocabDefault, clientKexInit("diffie-hellman-group-exchange-sha256"))
	require.NoError(t, err)
	require.Equal(t, message.VocabDHGEX, vocab)

	out, vocab, done, err := e.Step(vocab, message.KexDHGexRequest{Min: 2048, Preferred: 2048, Max: 8192})
	require.NoError(t, err)
	require.False(t, done)
	group := out[0].(message.KexDHGexGroup)

	p := newBig(group.P)
	g := newBig(group.G)
	clientY := newTestScalar()
	clientE := modExp(g, clientY, p)

	out, _, done, err = e.Step(vocab, message.KexDHGexInit{E: clientE.Bytes()})
	require.NoError(t, err)
	require.True(t, done)
	reply := out[0].(message.KexDHGexReply)
	f := newBig(reply.F)
	serverShared := modExp(f, clientY, p)
	require.Equal(t, serverShared.Bytes(), e.Result().SharedSecret.Bytes())
}

func TestRekeyKeepsSessionID(t *testing.T) {
	e, keys := newEngineWithHostKey(t)
	e.ServerKexInit()
	_, vocab, _, err := e.Step(message.VocabDefault, clientKexInit("curve25519-sha256"))
	require.NoError(t, err)
	var clientPriv [32]byte
	clientPriv[0] = 9
	clientPub, _ := curve25519.X25519(clientPriv[:], curve25519.Basepoint)
	_, _, _, err = e.Step(vocab, message.KexDHInit{E: clientPub})
	require.NoError(t, err)
	firstSessionID := e.Result().SessionID

	e2 := NewEngine(keys, serverPreference(), []byte("SSH-2.0-client"), []byte("SSH-2.0-server"), firstSessionID)
	e2.ServerKexInit()
	_, vocab2, _, err := e2.Step(message.VocabDefault, clientKexInit("curve25519-sha256"))
	require.NoError(t, err)
	var clientPriv2 [32]byte
	clientPriv2[0] = 11
	clientPub2, _ := curve25519.X25519(clientPriv2[:], curve25519.Basepoint)
	_, _, _, err = e2.Step(vocab2, message.KexDHInit{E: clientPub2})
	require.NoError(t, err)

	require.Equal(t, firstSessionID, e2.Result().SessionID)
	require.NotEqual(t, e2.Result().ExchangeHash, e2.Result().SessionID)
}
