// Package sshd is an embeddable SSH-2 server-side protocol engine: version
// exchange, key exchange (RFC 4253), user authentication (RFC 4252), and
// connection/channel multiplexing (RFC 4254), with RFC 4419 Diffie-Hellman
// group exchange.
//
// It does not spawn shells or manage user accounts itself. Callers supply a
// Handlers value whose callbacks decide every authentication outcome and
// every channel request; the embedder type parameter lets those callbacks
// carry whatever per-connection context (principal, session state, ...) the
// embedding application needs from auth success through to channel handling.
//
// A typical server loop:
//
//	srv, err := sshd.NewServerBuilder().WithGeneratedHostKeys().Build()
//	for {
//	    conn, _ := listener.Accept()
//	    go func() {
//	        established, err := srv.Accept(conn).Handshake(ctx)
//	        if err != nil { return }
//	        sshd.Run(ctx, established, handlers)
//	    }()
//	}
package sshd
