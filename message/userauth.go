package message

import "blitter.com/go/sshd/wire"

// UserauthRequest is the generic shape of a userauth request; Method
// plus the raw MethodData distinguish none/password/publickey/hostbased.
// Parse* helpers below decode MethodData for each method.
type UserauthRequest struct {
	Username   string
	ServiceName string
	Method     string
	MethodData []byte
}

func (m UserauthRequest) MsgID() byte { return MsgUserauthRequest }
func (m UserauthRequest) Marshal() []byte {
	buf := header(MsgUserauthRequest)
	buf = wire.PutStringFromText(buf, m.Username)
	buf = wire.PutStringFromText(buf, m.ServiceName)
	buf = wire.PutStringFromText(buf, m.Method)
	buf = append(buf, m.MethodData...)
	return buf
}

func unmarshalUserauthRequest(body []byte) (Message, error) {
	user, rest, err := wire.Text(body)
	if err != nil {
		return nil, err
	}
	service, rest, err := wire.Text(rest)
	if err != nil {
		return nil, err
	}
	method, rest, err := wire.Text(rest)
	if err != nil {
		return nil, err
	}
	return UserauthRequest{Username: user, ServiceName: service, Method: method, MethodData: rest}, nil
}

// PasswordMethodData is the decoded MethodData for Method=="password".
type PasswordMethodData struct {
	ChangeRequested bool
	Password        string
	NewPassword     string // only meaningful if ChangeRequested
}

func ParsePasswordMethodData(data []byte) (PasswordMethodData, error) {
	change, rest, err := wire.Boolean(data)
	if err != nil {
		return PasswordMethodData{}, err
	}
	pw, rest, err := wire.Text(rest)
	if err != nil {
		return PasswordMethodData{}, err
	}
	var newPw string
	if change {
		newPw, _, err = wire.Text(rest)
		if err != nil {
			return PasswordMethodData{}, err
		}
	}
	return PasswordMethodData{ChangeRequested: change, Password: pw, NewPassword: newPw}, nil
}

// PublicKeyMethodData is the decoded MethodData for Method=="publickey".
type PublicKeyMethodData struct {
	HasSignature bool
	Algorithm    string
	Blob         []byte
	Signature    []byte // only set if HasSignature
	SignedData   []byte // the blob that was signed, set by the caller
}

func ParsePublicKeyMethodData(data []byte) (PublicKeyMethodData, error) {
	has, rest, err := wire.Boolean(data)
	if err != nil {
		return PublicKeyMethodData{}, err
	}
	alg, rest, err := wire.Text(rest)
	if err != nil {
		return PublicKeyMethodData{}, err
	}
	blob, rest, err := wire.String(rest)
	if err != nil {
		return PublicKeyMethodData{}, err
	}
	var sig []byte
	if has {
		sig, _, err = wire.String(rest)
		if err != nil {
			return PublicKeyMethodData{}, err
		}
	}
	return PublicKeyMethodData{HasSignature: has, Algorithm: alg, Blob: blob, Signature: sig}, nil
}

// HostBasedMethodData is the decoded MethodData for Method=="hostbased".
type HostBasedMethodData struct {
	Algorithm    string
	Blob         []byte
	Hostname     string
	HostUsername string
	Signature    []byte
}

func ParseHostBasedMethodData(data []byte) (HostBasedMethodData, error) {
	alg, rest, err := wire.Text(data)
	if err != nil {
		return HostBasedMethodData{}, err
	}
	blob, rest, err := wire.String(rest)
	if err != nil {
		return HostBasedMethodData{}, err
	}
	hostname, rest, err := wire.Text(rest)
	if err != nil {
		return HostBasedMethodData{}, err
	}
	hostUser, rest, err := wire.Text(rest)
	if err != nil {
		return HostBasedMethodData{}, err
	}
	sig, _, err := wire.String(rest)
	if err != nil {
		return HostBasedMethodData{}, err
	}
	return HostBasedMethodData{Algorithm: alg, Blob: blob, Hostname: hostname, HostUsername: hostUser, Signature: sig}, nil
}

// UserauthFailure lists methods that may still succeed.
type UserauthFailure struct {
	MethodsThatCanContinue []string
	PartialSuccess         bool
}

func (m UserauthFailure) MsgID() byte { return MsgUserauthFailure }
func (m UserauthFailure) Marshal() []byte {
	buf := header(MsgUserauthFailure)
	buf = wire.PutNameList(buf, m.MethodsThatCanContinue)
	buf = wire.PutBoolean(buf, m.PartialSuccess)
	return buf
}

func unmarshalUserauthFailure(body []byte) (Message, error) {
	methods, rest, err := wire.NameList(body)
	if err != nil {
		return nil, err
	}
	partial, _, err := wire.Boolean(rest)
	if err != nil {
		return nil, err
	}
	return UserauthFailure{MethodsThatCanContinue: methods, PartialSuccess: partial}, nil
}

// UserauthSuccess ends the authentication sub-protocol successfully.
type UserauthSuccess struct{}

func (m UserauthSuccess) MsgID() byte     { return MsgUserauthSuccess }
func (m UserauthSuccess) Marshal() []byte { return header(MsgUserauthSuccess) }

// UserauthBanner carries a banner message displayed before auth completes.
type UserauthBanner struct {
	Text        string
	LanguageTag string
}

func (m UserauthBanner) MsgID() byte { return MsgUserauthBanner }
func (m UserauthBanner) Marshal() []byte {
	buf := header(MsgUserauthBanner)
	buf = wire.PutStringFromText(buf, m.Text)
	buf = wire.PutStringFromText(buf, m.LanguageTag)
	return buf
}

func unmarshalUserauthBanner(body []byte) (Message, error) {
	text, rest, err := wire.Text(body)
	if err != nil {
		return nil, err
	}
	lang, _, err := wire.Text(rest)
	if err != nil {
		return nil, err
	}
	return UserauthBanner{Text: text, LanguageTag: lang}, nil
}

// UserauthPasswdChangereq asks the client for a new password.
type UserauthPasswdChangereq struct {
	Prompt      string
	LanguageTag string
}

func (m UserauthPasswdChangereq) MsgID() byte { return MsgUserauthPasswdChangereq }
func (m UserauthPasswdChangereq) Marshal() []byte {
	buf := header(MsgUserauthPasswdChangereq)
	buf = wire.PutStringFromText(buf, m.Prompt)
	buf = wire.PutStringFromText(buf, m.LanguageTag)
	return buf
}

func unmarshalUserauthPasswdChangereq(body []byte) (Message, error) {
	prompt, rest, err := wire.Text(body)
	if err != nil {
		return nil, err
	}
	lang, _, err := wire.Text(rest)
	if err != nil {
		return nil, err
	}
	return UserauthPasswdChangereq{Prompt: prompt, LanguageTag: lang}, nil
}

// UserauthPKOK tells the client its offered public key is acceptable,
// sent in reply to a publickey request with has_signature=false.
type UserauthPKOK struct {
	Algorithm string
	Blob      []byte
}

func (m UserauthPKOK) MsgID() byte { return MsgUserauthPKOK }
func (m UserauthPKOK) Marshal() []byte {
	buf := header(MsgUserauthPKOK)
	buf = wire.PutStringFromText(buf, m.Algorithm)
	buf = wire.PutString(buf, m.Blob)
	return buf
}

func unmarshalUserauthPKOK(body []byte) (Message, error) {
	alg, rest, err := wire.Text(body)
	if err != nil {
		return nil, err
	}
	blob, _, err := wire.String(rest)
	if err != nil {
		return nil, err
	}
	return UserauthPKOK{Algorithm: alg, Blob: blob}, nil
}
