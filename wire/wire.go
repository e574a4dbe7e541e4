// Package wire implements the primitive SSH data-type encodings of
// RFC 4251 §5: byte, boolean, uint32, uint64, string, mpint, name-list.
//
// Every decode function takes the remaining buffer and returns the
// decoded value plus whatever bytes were left, so callers can chain
// reads without tracking an offset by hand.
package wire

import (
	"encoding/binary"
	"errors"
	"math/big"
)

// ErrShortBuffer is returned when a decode function is handed fewer
// bytes than the value it is decoding requires.
var ErrShortBuffer = errors.New("wire: buffer too short")

// PutByte appends a single byte.
func PutByte(buf []byte, b byte) []byte {
	return append(buf, b)
}

// Byte decodes a single byte.
func Byte(buf []byte) (byte, []byte, error) {
	if len(buf) < 1 {
		return 0, buf, ErrShortBuffer
	}
	return buf[0], buf[1:], nil
}

// PutBoolean appends a boolean as a single 0/1 byte.
func PutBoolean(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

// Boolean decodes a boolean; any nonzero byte is true.
func Boolean(buf []byte) (bool, []byte, error) {
	b, rest, err := Byte(buf)
	if err != nil {
		return false, buf, err
	}
	return b != 0, rest, nil
}

// PutUint32 appends a big-endian uint32.
func PutUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// Uint32 decodes a big-endian uint32.
func Uint32(buf []byte) (uint32, []byte, error) {
	if len(buf) < 4 {
		return 0, buf, ErrShortBuffer
	}
	return binary.BigEndian.Uint32(buf), buf[4:], nil
}

// PutUint64 appends a big-endian uint64.
func PutUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// Uint64 decodes a big-endian uint64.
func Uint64(buf []byte) (uint64, []byte, error) {
	if len(buf) < 8 {
		return 0, buf, ErrShortBuffer
	}
	return binary.BigEndian.Uint64(buf), buf[8:], nil
}

// PutString appends a length-prefixed byte string.
func PutString(buf []byte, s []byte) []byte {
	buf = PutUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// PutStringFromText appends a length-prefixed UTF-8 string.
func PutStringFromText(buf []byte, s string) []byte {
	return PutString(buf, []byte(s))
}

// String decodes a length-prefixed byte string.
func String(buf []byte) ([]byte, []byte, error) {
	n, rest, err := Uint32(buf)
	if err != nil {
		return nil, buf, err
	}
	if uint64(len(rest)) < uint64(n) {
		return nil, buf, ErrShortBuffer
	}
	return rest[:n], rest[n:], nil
}

// Text decodes a length-prefixed string as text.
func Text(buf []byte) (string, []byte, error) {
	s, rest, err := String(buf)
	if err != nil {
		return "", buf, err
	}
	return string(s), rest, nil
}

// PutNameList appends a comma-separated name-list.
func PutNameList(buf []byte, names []string) []byte {
	joined := joinComma(names)
	return PutStringFromText(buf, joined)
}

// NameList decodes a comma-separated name-list. An empty list decodes
// to a non-nil, zero-length slice.
func NameList(buf []byte) ([]string, []byte, error) {
	s, rest, err := Text(buf)
	if err != nil {
		return nil, buf, err
	}
	if s == "" {
		return []string{}, rest, nil
	}
	return splitComma(s), rest, nil
}

// PutMpint appends a multiple precision integer per RFC 4251 §5: two's
// complement, minimal length, with a leading zero byte inserted when the
// high bit of the first magnitude byte would otherwise be set.
func PutMpint(buf []byte, v *big.Int) []byte {
	if v == nil || v.Sign() == 0 {
		return PutUint32(buf, 0)
	}
	if v.Sign() < 0 {
		// Negative mpints are not used anywhere in this protocol's
		// defined messages; encode via two's complement anyway for
		// completeness.
		bitLen := v.BitLen()
		nBytes := bitLen/8 + 1
		twos := new(big.Int).Add(v, new(big.Int).Lsh(big.NewInt(1), uint(nBytes*8)))
		b := twos.Bytes()
		return PutString(buf, b)
	}
	b := v.Bytes()
	if len(b) > 0 && b[0]&0x80 != 0 {
		padded := make([]byte, len(b)+1)
		copy(padded[1:], b)
		b = padded
	}
	return PutString(buf, b)
}

// Mpint decodes a multiple precision integer.
func Mpint(buf []byte) (*big.Int, []byte, error) {
	b, rest, err := String(buf)
	if err != nil {
		return nil, buf, err
	}
	v := new(big.Int)
	if len(b) == 0 {
		return v, rest, nil
	}
	if b[0]&0x80 != 0 {
		// Negative: two's complement.
		tmp := new(big.Int).SetBytes(b)
		mod := new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8))
		tmp.Sub(tmp, mod)
		return tmp, rest, nil
	}
	v.SetBytes(b)
	return v, rest, nil
}

func joinComma(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ","
		}
		out += n
	}
	return out
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
