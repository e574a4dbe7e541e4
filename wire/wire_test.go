package wire

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint32RoundTrip(t *testing.T) {
	buf := PutUint32(nil, 0xDEADBEEF)
	v, rest, err := Uint32(buf)
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), v)
	require.Empty(t, rest)
}

func TestStringRoundTrip(t *testing.T) {
	buf := PutStringFromText(nil, "ssh-rsa")
	s, rest, err := Text(buf)
	require.NoError(t, err)
	require.Equal(t, "ssh-rsa", s)
	require.Empty(t, rest)
}

func TestNameListRoundTrip(t *testing.T) {
	names := []string{"curve25519-sha256", "diffie-hellman-group14-sha256"}
	buf := PutNameList(nil, names)
	got, rest, err := NameList(buf)
	require.NoError(t, err)
	require.Equal(t, names, got)
	require.Empty(t, rest)
}

func TestNameListEmpty(t *testing.T) {
	buf := PutNameList(nil, nil)
	got, _, err := NameList(buf)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestMpintZero(t *testing.T) {
	buf := PutMpint(nil, big.NewInt(0))
	require.Equal(t, []byte{0, 0, 0, 0}, buf)
	v, _, err := Mpint(buf)
	require.NoError(t, err)
	require.Equal(t, 0, v.Sign())
}

func TestMpintHighBitPadding(t *testing.T) {
	// 0x80 alone would look negative without a leading zero byte.
	v := big.NewInt(0x80)
	buf := PutMpint(nil, v)
	require.Equal(t, []byte{0, 0, 0, 2, 0, 0x80}, buf)
	got, _, err := Mpint(buf)
	require.NoError(t, err)
	require.Equal(t, 0, v.Cmp(got))
}

func TestMpintRoundTripLarge(t *testing.T) {
	v := new(big.Int)
	v.SetString("affe0000deadbeef1234567890abcdef", 16)
	buf := PutMpint(nil, v)
	got, rest, err := Mpint(buf)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.Equal(t, 0, v.Cmp(got))
}

func TestShortBuffer(t *testing.T) {
	_, _, err := Uint32([]byte{1, 2})
	require.ErrorIs(t, err, ErrShortBuffer)

	_, _, err = String([]byte{0, 0, 0, 5, 'a'})
	require.ErrorIs(t, err, ErrShortBuffer)
}
