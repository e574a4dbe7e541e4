package bpp

import (
	"bytes"
	"testing"

	"blitter.com/go/sshd/session"
	"blitter.com/go/sshd/sshcrypto"
	"github.com/stretchr/testify/require"
)

func pairedState(t *testing.T, cipherName, macName string) (*session.State, *session.State) {
	spec, err := sshcrypto.Spec(cipherName)
	require.NoError(t, err)
	key := bytes.Repeat([]byte{0x11}, spec.KeySize)
	iv := bytes.Repeat([]byte{0x22}, spec.IVSize)
	macKey := bytes.Repeat([]byte{0x33}, 64)

	sender := session.New()
	receiver := session.New()

	senderStream, err := sshcrypto.NewCipher(cipherName, key, iv)
	require.NoError(t, err)
	receiverStream, err := sshcrypto.NewCipher(cipherName, key, iv)
	require.NoError(t, err)

	sender.SwitchOutbound(cipherName, senderStream, macName, macKey, "none")
	receiver.SwitchInbound(cipherName, receiverStream, macName, macKey, "none")
	return sender, receiver
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, cipherName := range sshcrypto.CipherNames() {
		for _, macName := range sshcrypto.MACNames() {
			sender, receiver := pairedState(t, cipherName, macName)
			var buf bytes.Buffer
			writer := New(&buf, sender)
			reader := New(&buf, receiver)

			payload := []byte{20, 'h', 'e', 'l', 'l', 'o'}
			require.NoError(t, writer.WritePacket(payload))
			got, err := reader.ReadPacket()
			require.NoError(t, err, "cipher=%s mac=%s", cipherName, macName)
			require.Equal(t, payload, got)
		}
	}
}

func TestTamperedMACRejected(t *testing.T) {
	sender, receiver := pairedState(t, "aes128-ctr", "hmac-sha2-256")
	var buf bytes.Buffer
	writer := New(&buf, sender)
	require.NoError(t, writer.WritePacket([]byte{20, 1, 2, 3}))

	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xFF

	reader := New(bytes.NewReader(raw), receiver)
	_, err := reader.ReadPacket()
	require.ErrorIs(t, err, ErrMacMismatch)
}

func TestTooLargePacketRejectedOnWrite(t *testing.T) {
	sender, _ := pairedState(t, "aes128-ctr", "hmac-sha2-256")
	var buf bytes.Buffer
	writer := New(&buf, sender)
	huge := make([]byte, MaxPacketSize+1)
	err := writer.WritePacket(huge)
	require.ErrorIs(t, err, ErrTooLargePacket)
}

func TestPaddingInvariants(t *testing.T) {
	sender, _ := pairedState(t, "aes256-ctr", "hmac-sha2-256")
	var buf bytes.Buffer
	writer := New(&buf, sender)
	require.NoError(t, writer.WritePacket([]byte{20, 1, 2, 3, 4, 5, 6, 7}))

	macSize, _ := sshcrypto.MACSize("hmac-sha2-256")
	raw := buf.Bytes()
	body := raw[:len(raw)-macSize]

	bs := 16
	require.Zero(t, len(body)%bs, "4+packet_length must be a multiple of block size")
	paddingLength := body[4]
	require.GreaterOrEqual(t, int(paddingLength), 4)
}
