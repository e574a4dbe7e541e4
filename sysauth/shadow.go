// Package sysauth provides an optional system-password authenticator for
// use as an sshd.Handlers OnAuthPassword callback, checking credentials
// against the host's own /etc/shadow (or /etc/master.passwd on BSD).
//
// It is entirely optional: the sshd package itself never reads local
// system account databases, since an embedding host may want its own
// user store instead.
package sysauth

import (
	"errors"
	"io/ioutil"
	"runtime"
	"strings"

	passlib "gopkg.in/hlandau/passlib.v1"
)

// Ctx holds the injectable dependencies of a Shadow verifier, so tests
// can substitute an in-memory shadow file instead of touching /etc.
type Ctx struct {
	reader func(string) ([]byte, error) // eg. ioutil.ReadFile
}

// NewCtx returns a Ctx wired to the real filesystem.
func NewCtx() *Ctx {
	return &Ctx{reader: ioutil.ReadFile}
}

// VerifyPassword checks a username/password pair against the system
// shadow database. Expiry fields are not inspected.
func (ctx *Ctx) VerifyPassword(username, password string) (bool, error) {
	if ctx.reader == nil {
		ctx.reader = ioutil.ReadFile
	}
	passlib.UseDefaults(passlib.Defaults20180601)

	var pwFileName string
	switch runtime.GOOS {
	case "linux":
		pwFileName = "/etc/shadow"
	case "freebsd":
		pwFileName = "/etc/master.passwd"
	default:
		return false, errors.New("sysauth: unsupported OS for shadow verification")
	}

	data, err := ctx.reader(pwFileName)
	if err != nil {
		return false, err
	}

	lines := strings.Split(string(data), "\n")
	var hash string
	for _, line := range lines {
		fields := strings.Split(line, ":")
		if len(fields) >= 2 && fields[0] == username {
			hash = fields[1]
			break
		}
	}
	if hash == "" {
		// Run the hash comparison anyway against a dummy record, so a
		// missing user takes the same time as a present one.
		_ = passlib.VerifyNoUpgrade(password, "$2a$12$l0coBlRDNEJeQVl6GdEPbUC/xmuOANvqgmrMVum6S4i.EXPgnTXy6")
		return false, nil
	}
	if err := passlib.VerifyNoUpgrade(password, hash); err != nil {
		return false, nil
	}
	return true, nil
}
