// Package bpp implements the SSH Binary Packet Protocol: RFC 4253 §6
// framing with a MAC taken over the sequence number and the plaintext
// packet before it is encrypted, the size ceilings of §6.1, and the
// block-alignment rule of §6.3.
package bpp

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"

	"blitter.com/go/sshd/session"
	"blitter.com/go/sshd/sshcrypto"
)

// MaxPacketSize is the hard ceiling on packet_length+4+mac_len.
const MaxPacketSize = 35000

// ErrTooLargePacket is returned when a packet would exceed MaxPacketSize,
// either on read (malicious/corrupt length field) or on write (caller
// attempted to send too much payload).
var ErrTooLargePacket = errors.New("bpp: packet exceeds maximum size")

// ErrMacMismatch is returned by ReadPacket when MAC verification fails.
var ErrMacMismatch = errors.New("bpp: MAC verification failed")

// Transport frames payloads over an underlying byte stream using a
// session.State's current per-direction algorithms. The same Transport
// is reused across rekeys: the runner calls session.State.SwitchInbound/
// SwitchOutbound to install new keys, and Transport always reads the
// live Direction values.
type Transport struct {
	rw    io.ReadWriter
	state *session.State
}

// New wraps rw, framing packets according to state's current algorithms.
func New(rw io.ReadWriter, state *session.State) *Transport {
	return &Transport{rw: rw, state: state}
}

func blockSize(cipherName string) int {
	spec, err := sshcrypto.Spec(cipherName)
	if err != nil || spec.BlockSize < 8 {
		return 8
	}
	return spec.BlockSize
}

// ReadPacket reads, decrypts, verifies, and decompresses the next
// packet, returning its payload (message ID byte + body). It advances
// the inbound sequence counter exactly once for each packet it reads in
// full or rejects by its length field, including a packet that fails
// MAC verification; when a read from the underlying stream fails, the
// counter is left unchanged.
func (t *Transport) ReadPacket() ([]byte, error) {
	dir := &t.state.Inbound
	bs := blockSize(dir.CipherName)
	macSize, err := sshcrypto.MACSize(dir.MACName)
	if err != nil {
		return nil, err
	}

	first := make([]byte, bs)
	if _, err := io.ReadFull(t.rw, first); err != nil {
		return nil, err
	}
	if dir.Cipher != nil {
		dir.Cipher.XORKeyStream(first, first)
	}

	packetLength := binary.BigEndian.Uint32(first[:4])
	if uint64(packetLength)+4+uint64(macSize) > MaxPacketSize {
		dir.NextSequenceNumber()
		return nil, ErrTooLargePacket
	}
	if packetLength+4 < uint32(bs) {
		dir.NextSequenceNumber()
		return nil, errors.New("bpp: packet shorter than one cipher block")
	}

	remaining := int(packetLength) + 4 - bs
	rest := make([]byte, remaining+macSize)
	if _, err := io.ReadFull(t.rw, rest); err != nil {
		return nil, err
	}
	body := rest[:remaining]
	mac := rest[remaining:]

	plaintext := make([]byte, 0, bs+remaining)
	plaintext = append(plaintext, first...)
	if dir.Cipher != nil {
		decrypted := make([]byte, len(body))
		dir.Cipher.XORKeyStream(decrypted, body)
		plaintext = append(plaintext, decrypted...)
	} else {
		plaintext = append(plaintext, body...)
	}

	seq := dir.NextSequenceNumber()
	if dir.MACName != "none" {
		var seqBuf [4]byte
		binary.BigEndian.PutUint32(seqBuf[:], seq)
		signed := append(append([]byte{}, seqBuf[:]...), plaintext...)
		ok, err := sshcrypto.VerifyMAC(dir.MACName, dir.MACKey, signed, mac)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrMacMismatch
		}
	}

	paddingLength := plaintext[4]
	payloadLen := int(packetLength) - 1 - int(paddingLength)
	if payloadLen < 0 || 5+payloadLen > len(plaintext) {
		return nil, errors.New("bpp: invalid padding length")
	}
	payload := plaintext[5 : 5+payloadLen]
	return decompress(dir.CompressionName, payload)
}

// WritePacket compresses, frames, MACs, and encrypts payload, writing
// the resulting packet (and trailing MAC) to the underlying stream. It
// advances the outbound sequence counter exactly once.
func (t *Transport) WritePacket(payload []byte) error {
	dir := &t.state.Outbound
	bs := blockSize(dir.CipherName)

	compressed, err := compress(dir.CompressionName, payload)
	if err != nil {
		return err
	}

	// 4 (packet_length) + 1 (padding_length byte) + len(compressed) +
	// padding must be a multiple of bs, with padding >= 4.
	unpaddedLen := 5 + len(compressed)
	paddingLength := bs - (unpaddedLen % bs)
	if paddingLength < 4 {
		paddingLength += bs
	}

	packetLength := 1 + len(compressed) + paddingLength
	macSize, err := sshcrypto.MACSize(dir.MACName)
	if err != nil {
		return err
	}
	if uint64(packetLength)+4+uint64(macSize) > MaxPacketSize {
		return ErrTooLargePacket
	}

	padding := make([]byte, paddingLength)
	if _, err := rand.Read(padding); err != nil {
		return err
	}

	plaintext := make([]byte, 0, 4+packetLength)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(packetLength))
	plaintext = append(plaintext, lenBuf[:]...)
	plaintext = append(plaintext, byte(paddingLength))
	plaintext = append(plaintext, compressed...)
	plaintext = append(plaintext, padding...)

	seq := dir.NextSequenceNumber()
	var mac []byte
	if dir.MACName != "none" {
		var seqBuf [4]byte
		binary.BigEndian.PutUint32(seqBuf[:], seq)
		signed := append(append([]byte{}, seqBuf[:]...), plaintext...)
		h, err := sshcrypto.NewMAC(dir.MACName, dir.MACKey)
		if err != nil {
			return err
		}
		h.Write(signed)
		mac = h.Sum(nil)
	}

	encrypted := make([]byte, len(plaintext))
	if dir.Cipher != nil {
		dir.Cipher.XORKeyStream(encrypted, plaintext)
	} else {
		copy(encrypted, plaintext)
	}

	if _, err := t.rw.Write(encrypted); err != nil {
		return err
	}
	if len(mac) > 0 {
		if _, err := t.rw.Write(mac); err != nil {
			return err
		}
	}
	return nil
}

func compress(name string, payload []byte) ([]byte, error) {
	if name == "none" {
		return payload, nil
	}
	return nil, errors.New("bpp: unsupported compression algorithm " + name)
}

func decompress(name string, payload []byte) ([]byte, error) {
	if name == "none" {
		return payload, nil
	}
	return nil, errors.New("bpp: unsupported compression algorithm " + name)
}
