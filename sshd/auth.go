package sshd

import (
	"blitter.com/go/sshd/message"
	"blitter.com/go/sshd/sshcrypto"
	"blitter.com/go/sshd/wire"
)

// runUserauth drives the authentication sub-protocol (RFC 4252) to
// completion: reads USERAUTH_REQUESTs, dispatches to the matching
// Handlers callback, and replies SUCCESS/FAILURE/PK_OK/PASSWD_CHANGEREQ
// until a method succeeds. It returns the embedder value the winning
// callback produced.
func runUserauth[E any](e *Established, handlers Handlers[E]) (E, error) {
	var zero E

	// The client opens authentication with its own SERVICE_REQUEST for
	// "ssh-userauth"; consume and accept that before entering the
	// method loop.
	if err := e.expectServiceRequest("ssh-userauth"); err != nil {
		return zero, err
	}

	methodsAvailable := availableMethods(handlers)
	vocab := message.VocabDefault

	for {
		payload, err := e.transport.ReadPacket()
		if err != nil {
			return zero, NewError(KindIoError, "reading userauth request", err)
		}
		msg, err := message.Decode(vocab, payload)
		if err != nil {
			return zero, NewError(KindUnpackError, "decoding userauth request", err)
		}
		vocab = message.VocabDefault

		req, ok := msg.(message.UserauthRequest)
		if !ok {
			if err := e.replyUnimplemented(); err != nil {
				return zero, err
			}
			continue
		}
		if req.ServiceName != "ssh-connection" {
			if err := e.sendFailure(methodsAvailable, false); err != nil {
				return zero, err
			}
			continue
		}

		switch req.Method {
		case "none":
			if handlers.OnAuthNone == nil {
				if err := e.sendFailure(methodsAvailable, false); err != nil {
					return zero, err
				}
				continue
			}
			embedder, ok := handlers.OnAuthNone(req.Username)
			if !ok {
				if err := e.sendFailure(methodsAvailable, false); err != nil {
					return zero, err
				}
				continue
			}
			return finishAuth(e, embedder)

		case "password":
			if handlers.OnAuthPassword == nil {
				if err := e.sendFailure(methodsAvailable, false); err != nil {
					return zero, err
				}
				continue
			}
			pw, err := message.ParsePasswordMethodData(req.MethodData)
			if err != nil {
				return zero, NewError(KindUnpackError, "decoding password method data", err)
			}
			result, outcome := handlerPasswordResult(handlers, req, pw)
			switch {
			case outcome.Accepted():
				return finishAuth(e, result)
			case outcome.ChangeRequired():
				if err := e.transport.WritePacket((message.UserauthPasswdChangereq{Prompt: outcome.ChangeMessage()}).Marshal()); err != nil {
					return zero, NewError(KindIoError, "writing passwd changereq", err)
				}
			default:
				if err := e.sendFailure(methodsAvailable, false); err != nil {
					return zero, err
				}
			}

		case "publickey":
			pk, err := message.ParsePublicKeyMethodData(req.MethodData)
			if err != nil {
				return zero, NewError(KindUnpackError, "decoding publickey method data", err)
			}
			if handlers.OnAuthPublicKey == nil {
				if err := e.sendFailure(methodsAvailable, false); err != nil {
					return zero, err
				}
				continue
			}
			if !pk.HasSignature {
				embedder, ok := handlers.OnAuthPublicKey(req.Username, pk.Algorithm, pk.Blob)
				_ = embedder
				if ok {
					if err := e.transport.WritePacket((message.UserauthPKOK{Algorithm: pk.Algorithm, Blob: pk.Blob}).Marshal()); err != nil {
						return zero, NewError(KindIoError, "writing PK_OK", err)
					}
					vocab = message.VocabPubkeyQuery
				} else if err := e.sendFailure(methodsAvailable, false); err != nil {
					return zero, err
				}
				continue
			}

			signedBlob := publicKeySignedBlob(e.sessionID, req.Username, req.ServiceName, pk.Algorithm, pk.Blob)
			verified, err := sshcrypto.VerifySignature(pk.Blob, signedBlob, pk.Signature)
			if err != nil || !verified {
				if err := e.sendFailure(methodsAvailable, false); err != nil {
					return zero, err
				}
				continue
			}
			embedder, ok := handlers.OnAuthPublicKey(req.Username, pk.Algorithm, pk.Blob)
			if !ok {
				if err := e.sendFailure(methodsAvailable, false); err != nil {
					return zero, err
				}
				continue
			}
			return finishAuth(e, embedder)

		case "hostbased":
			if handlers.OnAuthHostBased == nil {
				if err := e.sendFailure(methodsAvailable, false); err != nil {
					return zero, err
				}
				continue
			}
			hb, err := message.ParseHostBasedMethodData(req.MethodData)
			if err != nil {
				return zero, NewError(KindUnpackError, "decoding hostbased method data", err)
			}
			signedBlob := hostBasedSignedBlob(e.sessionID, req.Username, req.ServiceName, hb.Algorithm, hb.Blob, hb.Hostname, hb.HostUsername)
			verified, err := sshcrypto.VerifySignature(hb.Blob, signedBlob, hb.Signature)
			if err != nil || !verified {
				if err := e.sendFailure(methodsAvailable, false); err != nil {
					return zero, err
				}
				continue
			}
			embedder, ok := handlers.OnAuthHostBased(req.Username, hb.Algorithm, hb.Blob, hb.Hostname, hb.HostUsername)
			if !ok {
				if err := e.sendFailure(methodsAvailable, false); err != nil {
					return zero, err
				}
				continue
			}
			return finishAuth(e, embedder)

		default:
			if err := e.sendFailure(methodsAvailable, false); err != nil {
				return zero, err
			}
		}
	}
}

func handlerPasswordResult[E any](handlers Handlers[E], req message.UserauthRequest, pw message.PasswordMethodData) (E, PasswordResult) {
	if pw.ChangeRequested {
		if handlers.OnAuthChangePassword == nil {
			var zero E
			return zero, PasswordFailure()
		}
		return handlers.OnAuthChangePassword(req.Username, pw.Password, pw.NewPassword)
	}
	return handlers.OnAuthPassword(req.Username, pw.Password)
}

func finishAuth[E any](e *Established, embedder E) (E, error) {
	var zero E
	if err := e.writeAuthSuccess(); err != nil {
		return zero, err
	}
	return embedder, nil
}

func (e *Established) writeAuthSuccess() error {
	if err := e.transport.WritePacket((message.UserauthSuccess{}).Marshal()); err != nil {
		return NewError(KindIoError, "writing userauth success", err)
	}
	return nil
}

func (e *Established) sendFailure(methods []string, partial bool) error {
	if err := e.transport.WritePacket((message.UserauthFailure{MethodsThatCanContinue: methods, PartialSuccess: partial}).Marshal()); err != nil {
		return NewError(KindIoError, "writing userauth failure", err)
	}
	return nil
}

func (e *Established) replyUnimplemented() error {
	if err := e.transport.WritePacket((message.Unimplemented{}).Marshal()); err != nil {
		return NewError(KindIoError, "writing unimplemented", err)
	}
	return nil
}

func (e *Established) expectServiceRequest(wantService string) error {
	payload, err := e.transport.ReadPacket()
	if err != nil {
		return NewError(KindIoError, "reading service request", err)
	}
	msg, err := message.Decode(message.VocabDefault, payload)
	if err != nil {
		return NewError(KindUnpackError, "decoding service request", err)
	}
	req, ok := msg.(message.ServiceRequest)
	if !ok || req.ServiceName != wantService {
		return NewError(KindUnexpectedMsg, "expected SERVICE_REQUEST for "+wantService, nil)
	}
	if err := e.transport.WritePacket((message.ServiceAccept{ServiceName: wantService}).Marshal()); err != nil {
		return NewError(KindIoError, "writing service accept", err)
	}
	return nil
}

func availableMethods[E any](handlers Handlers[E]) []string {
	var out []string
	if handlers.OnAuthPublicKey != nil {
		out = append(out, "publickey")
	}
	if handlers.OnAuthPassword != nil {
		out = append(out, "password")
	}
	if handlers.OnAuthHostBased != nil {
		out = append(out, "hostbased")
	}
	if handlers.OnAuthNone != nil {
		out = append(out, "none")
	}
	return out
}

// publicKeySignedBlob builds the exact byte string a publickey
// userauth request signs, per RFC 4252 §7.
func publicKeySignedBlob(sessionID []byte, username, service, algorithm string, keyBlob []byte) []byte {
	var buf []byte
	buf = wire.PutString(buf, sessionID)
	buf = append(buf, message.MsgUserauthRequest)
	buf = wire.PutStringFromText(buf, username)
	buf = wire.PutStringFromText(buf, service)
	buf = wire.PutStringFromText(buf, "publickey")
	buf = wire.PutBoolean(buf, true)
	buf = wire.PutStringFromText(buf, algorithm)
	buf = wire.PutString(buf, keyBlob)
	return buf
}

// hostBasedSignedBlob builds the hostbased analogue of the publickey
// signed blob, per RFC 4252 §9.
func hostBasedSignedBlob(sessionID []byte, username, service, algorithm string, keyBlob []byte, clientHostname, clientUsername string) []byte {
	var buf []byte
	buf = wire.PutString(buf, sessionID)
	buf = append(buf, message.MsgUserauthRequest)
	buf = wire.PutStringFromText(buf, username)
	buf = wire.PutStringFromText(buf, service)
	buf = wire.PutStringFromText(buf, "hostbased")
	buf = wire.PutStringFromText(buf, algorithm)
	buf = wire.PutString(buf, keyBlob)
	buf = wire.PutStringFromText(buf, clientHostname)
	buf = wire.PutStringFromText(buf, clientUsername)
	return buf
}
