// sshd-demo is a minimal interactive shell server built on blitter.com/go/sshd.
//
// It authenticates against the host's own shadow database (or any public
// key in a user's authorized_keys) and spawns an interactive /bin/bash
// session, with utmp/lastlog accounting, for every channel that issues a
// "shell" request.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net"
	"os/exec"
	"os/user"
	"strconv"
	"sync"
	"syscall"
	"unsafe"

	"blitter.com/go/goutmp"
	"blitter.com/go/sshd"
	"blitter.com/go/sshd/authorizedkeys"
	"blitter.com/go/sshd/logger"
	"blitter.com/go/sshd/sysauth"
	"github.com/kr/pty"
)

var (
	laddr       string
	hostKeyPath string
	useSysLogin bool
	dbg         bool

	// Log is the syslog writer used when not running with -d.
	Log *logger.Writer
)

// principal is the embedder type threaded from a successful
// authentication through to channel handling: everything a shell or
// exec handler needs to know about who it's running as.
type principal struct {
	username string
	hostname string
}

func ioctl(fd, request, argp uintptr) error {
	if _, _, e := syscall.Syscall6(syscall.SYS_IOCTL, fd, request, argp, 0, 0, 0); e != 0 {
		return e
	}
	return nil
}

func ptsName(fd uintptr) (string, error) {
	var n uintptr
	if err := ioctl(fd, syscall.TIOCGPTN, uintptr(unsafe.Pointer(&n))); err != nil {
		return "", err
	}
	return fmt.Sprintf("/dev/pts/%d", n), nil
}

func remoteHost(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}

// runInteractiveShell starts an interactive /bin/bash as p.username,
// bridging ctx's stdin and stdout through a pty (the shell's stderr
// reaches ctx.Stdout through the same pty), and records the session via
// utmp/lastlog for the duration.
func runInteractiveShell(p principal, ctx *sshd.ShellContext) error {
	u, err := user.Lookup(p.username)
	if err != nil {
		return err
	}
	uid, _ := strconv.Atoi(u.Uid)
	gid, _ := strconv.Atoi(u.Gid)

	c := exec.Command("/bin/bash", "-i", "-l") // nolint: gosec
	c.Dir = u.HomeDir
	c.SysProcAttr = &syscall.SysProcAttr{
		Credential: &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)},
	}
	for _, e := range ctx.Env {
		c.Env = append(c.Env, e.Name+"="+e.Value)
	}
	if ctx.Pty != nil && ctx.Pty.TermEnv != "" {
		c.Env = append(c.Env, "TERM="+ctx.Pty.TermEnv)
	}

	ptmx, err := pty.Start(c)
	if err != nil {
		logger.LogErr(fmt.Sprintf("[pty.Start failed for %s@%s: %v]", p.username, p.hostname, err))
		return err
	}
	defer ptmx.Close() // nolint: errcheck

	if ctx.Pty != nil {
		pty.Setsize(ptmx, &pty.Winsize{Rows: uint16(ctx.Pty.HeightRows), Cols: uint16(ctx.Pty.WidthChars)}) // nolint: errcheck
	}

	pts, err := ptsName(ptmx.Fd())
	if err != nil {
		return err
	}
	utmpx := goutmp.Put_utmp(p.username, pts, p.hostname)
	defer goutmp.Unput_utmp(utmpx)
	goutmp.Put_lastlog_entry("sshd-demo", p.username, pts, p.hostname)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		_, _ = io.Copy(ptmx, ctx.Stdin)
	}()
	go func() {
		defer wg.Done()
		_, _ = io.Copy(ctx.Stdout, ptmx)
	}()

	waitErr := c.Wait()
	wg.Wait()

	exitStatus := uint32(0)
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
				exitStatus = uint32(status.ExitStatus())
			}
		}
	}
	ctx.ExitStatus(exitStatus)
	return nil
}

func main() {
	flag.StringVar(&laddr, "l", ":2022", "interface[:port] to listen")
	flag.StringVar(&hostKeyPath, "k", "", "path to PEM-encoded host key (generated ephemerally if unset)")
	flag.BoolVar(&useSysLogin, "L", true, "authenticate against the system shadow database")
	flag.BoolVar(&dbg, "d", false, "debug logging to stderr instead of syslog")
	flag.Parse()

	if !dbg {
		Log, _ = logger.New(logger.LOG_DAEMON|logger.LOG_DEBUG|logger.LOG_NOTICE|logger.LOG_ERR, "sshd-demo") // nolint: gosec
		if Log != nil {
			log.SetOutput(Log)
		}
	}

	builder := sshd.NewServerBuilder().WithName("sshd-demo_1.0").WithIdleTimeoutSeconds(600)
	if hostKeyPath != "" {
		builder = builder.WithHostKeyFile(hostKeyPath)
	} else {
		builder = builder.WithGeneratedHostKeys()
	}
	server, err := builder.Build()
	if err != nil {
		log.Fatal(err)
	}

	shadowCtx := sysauth.NewCtx()

	listener, err := net.Listen("tcp", laddr)
	if err != nil {
		log.Fatal(err)
	}
	defer listener.Close() // nolint: errcheck
	logger.LogNotice(fmt.Sprintf("Serving on %s", laddr)) // nolint: errcheck
	log.Println("Serving on", laddr)

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Printf("Accept() got error(%v), hanging up.\n", err)
			continue
		}
		host := remoteHost(conn)

		handlers := sshd.Handlers[principal]{
			OnAuthPassword: func(username, password string) (principal, sshd.PasswordResult) {
				if !useSysLogin {
					return principal{}, sshd.PasswordFailure()
				}
				ok, err := shadowCtx.VerifyPassword(username, password)
				if err != nil || !ok {
					return principal{}, sshd.PasswordFailure()
				}
				return principal{username: username, hostname: host}, sshd.PasswordOK()
			},
			OnAuthPublicKey: func(username, algorithm string, blob []byte) (principal, bool) {
				u, err := user.Lookup(username)
				if err != nil {
					return principal{}, false
				}
				data, err := ioutil.ReadFile(u.HomeDir + "/.ssh/authorized_keys")
				if err != nil {
					return principal{}, false
				}
				set, err := authorizedkeys.ParseBytes(data)
				if err != nil {
					return principal{}, false
				}
				if !set.Contains(algorithm, blob) {
					return principal{}, false
				}
				return principal{username: username, hostname: host}, true
			},
			OnChannelShell: func(p principal, ctx *sshd.ShellContext) error {
				return runInteractiveShell(p, ctx)
			},
			OnChannelExec: func(p principal, ctx *sshd.ExecContext) error {
				c := exec.Command("/bin/bash", "-c", ctx.Prog) // nolint: gosec
				c.Stdin = ctx.Stdin
				c.Stdout = ctx.Stdout
				c.Stderr = ctx.Stderr
				err := c.Run()
				status := uint32(0)
				if exitErr, ok := err.(*exec.ExitError); ok {
					if s, ok := exitErr.Sys().(syscall.WaitStatus); ok {
						status = uint32(s.ExitStatus())
					}
				}
				ctx.ExitStatus(status)
				return nil
			},
		}

		go func(c net.Conn) {
			defer c.Close() // nolint: errcheck
			ctx := context.Background()
			established, err := server.Accept(c).Handshake(ctx)
			if err != nil {
				logger.LogNotice(fmt.Sprintf("[handshake failed from %s: %v]", host, err)) // nolint: errcheck
				return
			}
			if err := sshd.Run(ctx, established, handlers); err != nil {
				logger.LogNotice(fmt.Sprintf("[session from %s ended: %v]", host, err)) // nolint: errcheck
			}
		}(conn)
	}
}
