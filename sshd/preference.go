package sshd

import (
	"blitter.com/go/sshd/negotiate"
	"blitter.com/go/sshd/sshcrypto"
)

// Preference holds one side's ordered algorithm-name lists, server
// banner name, idle timeout, and host-key set. The zero value is not
// usable; build one with ServerBuilder.
type Preference struct {
	Name                      string
	IdleTimeoutSeconds        int
	KexAlgorithms             []string
	ServerHostKeyAlgorithms   []string
	CiphersClientToServer     []string
	CiphersServerToClient     []string
	MACsClientToServer        []string
	MACsServerToClient        []string
	CompressionClientToServer []string
	CompressionServerToClient []string
	HostKeys                  *HostKeySet
}

func (p Preference) toNegotiatePreference() negotiate.Preference {
	return negotiate.Preference{
		KexAlgorithms:             p.KexAlgorithms,
		ServerHostKeyAlgorithms:   p.ServerHostKeyAlgorithms,
		CiphersClientToServer:     p.CiphersClientToServer,
		CiphersServerToClient:     p.CiphersServerToClient,
		MACsClientToServer:        p.MACsClientToServer,
		MACsServerToClient:        p.MACsServerToClient,
		CompressionClientToServer: p.CompressionClientToServer,
		CompressionServerToClient: p.CompressionServerToClient,
	}
}

// defaultPreference lists every algorithm this engine implements, in
// the server's preferred order.
func defaultPreference() Preference {
	return Preference{
		Name:                      "sshd_1.0",
		KexAlgorithms:             []string{"curve25519-sha256", "diffie-hellman-group14-sha256", "diffie-hellman-group14-sha1", "diffie-hellman-group16-sha512", "diffie-hellman-group18-sha512", "diffie-hellman-group-exchange-sha256", "diffie-hellman-group-exchange-sha1"},
		ServerHostKeyAlgorithms:   sshcrypto.HostKeyNames(),
		CiphersClientToServer:     sshcrypto.CipherNames(),
		CiphersServerToClient:     sshcrypto.CipherNames(),
		MACsClientToServer:        sshcrypto.MACNames(),
		MACsServerToClient:        sshcrypto.MACNames(),
		CompressionClientToServer: []string{"none"},
		CompressionServerToClient: []string{"none"},
	}
}

// HostKeySet holds the server's available host keys, indexed by
// algorithm name, preserving the order they should be offered in.
type HostKeySet struct {
	order map[string]int
	keys  map[string]sshcrypto.Signer
}

// NewHostKeySet returns an empty HostKeySet.
func NewHostKeySet() *HostKeySet {
	return &HostKeySet{order: make(map[string]int), keys: make(map[string]sshcrypto.Signer)}
}

// Add registers a host key under its own algorithm name.
func (s *HostKeySet) Add(signer sshcrypto.Signer) {
	if _, exists := s.keys[signer.Algorithm()]; !exists {
		s.order[signer.Algorithm()] = len(s.order)
	}
	s.keys[signer.Algorithm()] = signer
}

// Algorithms returns the algorithm names this set has keys for, in
// insertion order.
func (s *HostKeySet) Algorithms() []string {
	names := make([]string, len(s.order))
	for name, idx := range s.order {
		names[idx] = name
	}
	return names
}

// Map returns the underlying algorithm→signer lookup, for handing to
// the kex engine.
func (s *HostKeySet) Map() map[string]sshcrypto.Signer {
	return s.keys
}
