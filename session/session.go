// Package session holds the per-direction and per-connection mutable
// state a negotiated SSH session needs to frame packets: sequence
// numbers, active cipher/MAC, and the session identifier used by every
// rekey's exchange hash.
package session

import (
	"crypto/cipher"
	"hash"

	"blitter.com/go/sshd/sshcrypto"
)

// Direction holds the live algorithm state for one traffic direction
// (client-to-server or server-to-client).
type Direction struct {
	SequenceNumber uint32
	CipherName     string
	Cipher         cipher.Stream
	MACName        string
	MACKey         []byte
	CompressionName string
}

// NextSequenceNumber returns the current sequence number and then
// increments it, wrapping per RFC 4253 §6.4 (mod 2^32, never reset).
func (d *Direction) NextSequenceNumber() uint32 {
	n := d.SequenceNumber
	d.SequenceNumber++
	return n
}

// NewMAC constructs a fresh hash.Hash for this direction's MAC
// algorithm and key, or nil if the direction uses "none".
func (d *Direction) NewMAC() (hash.Hash, error) {
	return sshcrypto.NewMAC(d.MACName, d.MACKey)
}

// State is the full mutable state of an established connection: both
// directions, plus the session identifier fixed at the first key
// exchange and reused, unmodified, by every subsequent rekey.
type State struct {
	SessionID []byte
	Inbound   Direction
	Outbound  Direction
}

// New returns a State with both directions in their initial
// (pre-NEWKEYS) configuration: no cipher, no MAC, sequence numbers at
// zero.
func New() *State {
	return &State{
		Inbound:  Direction{CipherName: "none", MACName: "none", CompressionName: "none"},
		Outbound: Direction{CipherName: "none", MACName: "none", CompressionName: "none"},
	}
}

// SwitchInbound installs newly derived keys for the inbound direction.
// Called by the runner the instant it receives the peer's NEWKEYS.
func (s *State) SwitchInbound(cipherName string, str cipher.Stream, macName string, macKey []byte, compressionName string) {
	s.Inbound.CipherName = cipherName
	s.Inbound.Cipher = str
	s.Inbound.MACName = macName
	s.Inbound.MACKey = macKey
	s.Inbound.CompressionName = compressionName
}

// SwitchOutbound installs newly derived keys for the outbound
// direction. Called by the runner immediately after it finishes
// writing its own NEWKEYS.
func (s *State) SwitchOutbound(cipherName string, str cipher.Stream, macName string, macKey []byte, compressionName string) {
	s.Outbound.CipherName = cipherName
	s.Outbound.Cipher = str
	s.Outbound.MACName = macName
	s.Outbound.MACKey = macKey
	s.Outbound.CompressionName = compressionName
}
