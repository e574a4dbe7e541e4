// Package authorizedkeys parses OpenSSH authorized_keys-format files
// into a lookup set usable from an sshd.Handlers OnAuthPublicKey
// callback. This package never reads a file itself: it parses whatever
// []byte or io.Reader the embedding host supplies, so a host backed by
// a database or a config map can still reuse the parsing/lookup logic.
package authorizedkeys

import (
	"bufio"
	"bytes"
	"crypto/subtle"
	"encoding/base64"
	"io"
	"strings"
)

// Entry is one parsed authorized_keys line.
type Entry struct {
	Algorithm string
	Blob      []byte
	Comment   string
}

// Set is a lookup table of authorized public keys, keyed by algorithm
// so OnAuthPublicKey can narrow the search to the offered algorithm
// before doing any blob comparison.
type Set struct {
	byAlgorithm map[string][]Entry
}

// Parse reads authorized_keys-format lines from r. Blank lines and
// lines starting with '#' are skipped; option strings preceding the
// algorithm field are not supported (an unrecognized first field
// causes that line to be skipped, not an error for the whole file).
func Parse(r io.Reader) (*Set, error) {
	set := &Set{byAlgorithm: make(map[string][]Entry)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		algorithm := fields[0]
		blob, err := base64.StdEncoding.DecodeString(fields[1])
		if err != nil || !knownAlgorithm(algorithm) {
			continue
		}
		comment := ""
		if len(fields) > 2 {
			comment = strings.Join(fields[2:], " ")
		}
		set.byAlgorithm[algorithm] = append(set.byAlgorithm[algorithm], Entry{
			Algorithm: algorithm,
			Blob:      blob,
			Comment:   comment,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

func knownAlgorithm(name string) bool {
	switch name {
	case "ssh-ed25519", "ssh-rsa":
		return true
	default:
		return false
	}
}

// Contains reports whether blob is authorized under algorithm, using a
// constant-time comparison once a same-length candidate is found (key
// blobs are public, but matching via non-constant-time comparison
// would still leak the length of the stored prefix that matched).
func (s *Set) Contains(algorithm string, blob []byte) bool {
	for _, e := range s.byAlgorithm[algorithm] {
		if len(e.Blob) != len(blob) {
			continue
		}
		if subtle.ConstantTimeCompare(e.Blob, blob) == 1 {
			return true
		}
	}
	return false
}

// Len reports how many entries are loaded, across all algorithms.
func (s *Set) Len() int {
	n := 0
	for _, entries := range s.byAlgorithm {
		n += len(entries)
	}
	return n
}

// ParseBytes is a convenience wrapper around Parse for callers already
// holding the file contents in memory.
func ParseBytes(data []byte) (*Set, error) {
	return Parse(bytes.NewReader(data))
}
