// Package negotiate implements the SSH algorithm-negotiation rule of
// RFC 4253 §7.1: for each of the eight algorithm slots, the first name
// in the client's preference list that also appears anywhere in the
// server's list wins.
package negotiate

import "fmt"

// Preference is one side's ordered algorithm name-lists.
type Preference struct {
	KexAlgorithms           []string
	ServerHostKeyAlgorithms []string
	CiphersClientToServer   []string
	CiphersServerToClient   []string
	MACsClientToServer      []string
	MACsServerToClient      []string
	CompressionClientToServer []string
	CompressionServerToClient []string
}

// Algorithms is the result of a successful negotiation: one concrete
// algorithm name per slot.
type Algorithms struct {
	Kex                string
	ServerHostKey      string
	CipherClientToServer string
	CipherServerToClient string
	MACClientToServer    string
	MACServerToClient    string
	CompressionClientToServer string
	CompressionServerToClient string
}

// ErrNotMatched is returned when no algorithm in a slot is common to
// both sides' lists.
type ErrNotMatched struct {
	Slot       string
	ClientList []string
}

func (e ErrNotMatched) Error() string {
	return fmt.Sprintf("negotiate: no match for %s (client offered %v)", e.Slot, e.ClientList)
}

// Negotiate runs the client-preference-order matching rule for all
// eight slots and returns the combined result, or the first ErrNotMatched
// encountered.
func Negotiate(client, server Preference) (Algorithms, error) {
	var out Algorithms
	var err error

	if out.Kex, err = pick("kex_algorithms", client.KexAlgorithms, server.KexAlgorithms); err != nil {
		return Algorithms{}, err
	}
	if out.ServerHostKey, err = pick("server_host_key_algorithms", client.ServerHostKeyAlgorithms, server.ServerHostKeyAlgorithms); err != nil {
		return Algorithms{}, err
	}
	if out.CipherClientToServer, err = pick("encryption_algorithms_client_to_server", client.CiphersClientToServer, server.CiphersClientToServer); err != nil {
		return Algorithms{}, err
	}
	if out.CipherServerToClient, err = pick("encryption_algorithms_server_to_client", client.CiphersServerToClient, server.CiphersServerToClient); err != nil {
		return Algorithms{}, err
	}
	if out.MACClientToServer, err = pick("mac_algorithms_client_to_server", client.MACsClientToServer, server.MACsClientToServer); err != nil {
		return Algorithms{}, err
	}
	if out.MACServerToClient, err = pick("mac_algorithms_server_to_client", client.MACsServerToClient, server.MACsServerToClient); err != nil {
		return Algorithms{}, err
	}
	if out.CompressionClientToServer, err = pick("compression_algorithms_client_to_server", client.CompressionClientToServer, server.CompressionClientToServer); err != nil {
		return Algorithms{}, err
	}
	if out.CompressionServerToClient, err = pick("compression_algorithms_server_to_client", client.CompressionServerToClient, server.CompressionServerToClient); err != nil {
		return Algorithms{}, err
	}
	return out, nil
}

func pick(slot string, clientList, serverList []string) (string, error) {
	serverSet := make(map[string]bool, len(serverList))
	for _, s := range serverList {
		serverSet[s] = true
	}
	for _, c := range clientList {
		if serverSet[c] {
			return c, nil
		}
	}
	return "", ErrNotMatched{Slot: slot, ClientList: clientList}
}
