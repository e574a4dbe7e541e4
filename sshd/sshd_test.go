package sshd

import (
	"testing"

	"blitter.com/go/sshd/message"
	"blitter.com/go/sshd/sshcrypto"
	"github.com/stretchr/testify/require"
)

func TestPasswordResultOutcomes(t *testing.T) {
	ok := PasswordOK()
	require.True(t, ok.Accepted())
	require.False(t, ok.ChangeRequired())

	change := PasswordChangeRequired("please change your password")
	require.False(t, change.Accepted())
	require.True(t, change.ChangeRequired())
	require.Equal(t, "please change your password", change.ChangeMessage())

	fail := PasswordFailure()
	require.False(t, fail.Accepted())
	require.False(t, fail.ChangeRequired())
}

func TestAvailableMethodsReflectsSetHandlers(t *testing.T) {
	h := Handlers[int]{
		OnAuthPassword: func(string, string) (int, PasswordResult) { return 0, PasswordFailure() },
		OnAuthNone:     func(string) (int, bool) { return 0, false },
	}
	methods := availableMethods(h)
	require.Contains(t, methods, "password")
	require.Contains(t, methods, "none")
	require.NotContains(t, methods, "publickey")
	require.NotContains(t, methods, "hostbased")
}

func TestPublicKeySignedBlobFieldOrder(t *testing.T) {
	sessionID := []byte{1, 2, 3, 4}
	blob := publicKeySignedBlob(sessionID, "alice", "ssh-connection", "ssh-ed25519", []byte("keydata"))

	// string(session_id) + byte(SSH_MSG_USERAUTH_REQUEST) + string(user) +
	// string(service) + string("publickey") + boolean(true) +
	// string(algorithm) + string(key blob)
	require.Equal(t, uint32(len(sessionID)), beUint32(blob[0:4]))
	offset := 4 + len(sessionID)
	require.Equal(t, byte(message.MsgUserauthRequest), blob[offset])
	offset++

	user, offset := readString(t, blob, offset)
	require.Equal(t, "alice", user)
	service, offset := readString(t, blob, offset)
	require.Equal(t, "ssh-connection", service)
	method, offset := readString(t, blob, offset)
	require.Equal(t, "publickey", method)
	require.Equal(t, byte(1), blob[offset])
	offset++
	algo, offset := readString(t, blob, offset)
	require.Equal(t, "ssh-ed25519", algo)
	key, offset := readString(t, blob, offset)
	require.Equal(t, "keydata", key)
	require.Equal(t, len(blob), offset)
}

func TestHostBasedSignedBlobFieldOrder(t *testing.T) {
	sessionID := []byte{9, 9}
	blob := hostBasedSignedBlob(sessionID, "bob", "ssh-connection", "ssh-rsa", []byte("k"), "client.example", "bob")

	offset := 4 + len(sessionID) + 1 // session_id string + message number
	_, offset = readString(t, blob, offset)      // username
	_, offset = readString(t, blob, offset)      // service
	method, offset := readString(t, blob, offset) // method name, no boolean field for hostbased
	require.Equal(t, "hostbased", method)
	_, offset = readString(t, blob, offset) // algorithm
	_, offset = readString(t, blob, offset) // key blob
	host, offset := readString(t, blob, offset)
	require.Equal(t, "client.example", host)
	user, offset := readString(t, blob, offset)
	require.Equal(t, "bob", user)
	require.Equal(t, len(blob), offset)
}

func TestErrorKindReasonCodeMapping(t *testing.T) {
	require.Equal(t, uint32(ReasonKeyExchangeFailed), KindKexError.ReasonCode())
	require.Equal(t, uint32(ReasonMacError), KindMacError.ReasonCode())
	require.Equal(t, uint32(ReasonConnectionLost), KindTimeout.ReasonCode())
	require.Equal(t, uint32(ReasonByApplication), KindHandlerError.ReasonCode())
}

func TestHostKeySetPreservesInsertionOrder(t *testing.T) {
	set := NewHostKeySet()
	ed, err := sshcrypto.GenerateEd25519Signer()
	require.NoError(t, err)
	rsaKey, err := sshcrypto.GenerateRSASigner(2048)
	require.NoError(t, err)

	set.Add(ed)
	set.Add(rsaKey)
	algos := set.Algorithms()
	require.Len(t, algos, 2)
	require.Equal(t, ed.Algorithm(), algos[0])
	require.Equal(t, rsaKey.Algorithm(), algos[1])
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func readString(t *testing.T, buf []byte, offset int) (string, int) {
	t.Helper()
	n := int(beUint32(buf[offset : offset+4]))
	offset += 4
	s := string(buf[offset : offset+n])
	return s, offset + n
}
