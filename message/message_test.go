package message

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelDataRoundTrip(t *testing.T) {
	m := ChannelData{RecipientChannel: 7, Data: []byte("hello")}
	decoded, err := Decode(VocabDefault, m.Marshal())
	require.NoError(t, err)
	require.Equal(t, m, decoded)
}

func TestKexInitRoundTrip(t *testing.T) {
	m := KexInit{
		KexAlgorithms:           []string{"curve25519-sha256"},
		ServerHostKeyAlgorithms: []string{"ssh-ed25519"},
		CiphersClientToServer:   []string{"aes256-ctr"},
		CiphersServerToClient:   []string{"aes256-ctr"},
		MACsClientToServer:      []string{"hmac-sha2-256"},
		MACsServerToClient:      []string{"hmac-sha2-256"},
		CompressionClientToServer: []string{"none"},
		CompressionServerToClient: []string{"none"},
		LanguagesClientToServer: []string{},
		LanguagesServerToClient: []string{},
	}
	decoded, err := Decode(VocabDefault, m.Marshal())
	require.NoError(t, err)
	got, ok := decoded.(KexInit)
	require.True(t, ok)
	require.Equal(t, m.KexAlgorithms, got.KexAlgorithms)
	require.Equal(t, m.CiphersClientToServer, got.CiphersClientToServer)
}

func TestVocabularyDisambiguatesID31(t *testing.T) {
	reply := KexDHReply{HostKeyBlob: []byte("hk"), F: []byte("f"), Signature: []byte("sig")}
	decoded, err := Decode(VocabDefault, reply.Marshal())
	require.NoError(t, err)
	_, ok := decoded.(KexDHReply)
	require.True(t, ok)

	group := KexDHGexGroup{P: []byte{0x7f}, G: []byte{0x02}}
	decoded, err = Decode(VocabDHGEX, group.Marshal())
	require.NoError(t, err)
	_, ok = decoded.(KexDHGexGroup)
	require.True(t, ok)
}

func TestUnknownMessage(t *testing.T) {
	decoded, err := Decode(VocabDefault, []byte{200, 1, 2, 3})
	require.NoError(t, err)
	unk, ok := decoded.(Unknown)
	require.True(t, ok)
	require.Equal(t, byte(200), unk.ID)
}

func TestChannelRequestMethodData(t *testing.T) {
	data := []byte{0, 0, 0, 2, 'h', 'i'}
	var buf []byte
	buf = append(buf, data...)
	got, err := ParseExecRequestData(buf)
	require.NoError(t, err)
	require.Equal(t, "hi", got.Command)
}
