package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"deskbridge/internal/crypto"
	"deskbridge/internal/domain"
)

var (
	// ErrMalformed is returned when a frame is not an envelope.
	ErrMalformed = errors.New("malformed envelope")
	// ErrNoPayload is returned when an envelope has no message to parse.
	ErrNoPayload = errors.New("envelope has no message")
)

// Outer is the envelope on the wire, in both directions.
type Outer struct {
	Command      string          `json:"command,omitempty"`
	AppID        domain.AppID    `json:"appId,omitempty"`
	MessageID    *int64          `json:"messageId,omitempty"`
	SharedSecret string          `json:"sharedSecret,omitempty"`
	Message      json.RawMessage `json:"message,omitempty"`
}

// Kind parses the outer command. Application envelopes report domain.CommandNone.
func (o Outer) Kind() domain.Command { return domain.ParseCommand(o.Command) }

// Flattened is the backwards-compatible object form of an EncString.
type Flattened struct {
	EncryptedString string `json:"encryptedString"`
	EncryptionType  int    `json:"encryptionType"`
	Data            string `json:"data"`
	IV              string `json:"iv"`
	MAC             string `json:"mac,omitempty"`
}

// Flatten spreads e into its constituent fields.
func Flatten(e crypto.EncString) Flattened {
	f := Flattened{
		EncryptedString: e.String(),
		EncryptionType:  int(e.Type),
		Data:            crypto.B64(e.Data),
		IV:              crypto.B64(e.IV),
	}
	if len(e.MAC) > 0 {
		f.MAC = crypto.B64(e.MAC)
	}
	return f
}

// EncString rebuilds the ciphertext, preferring the canonical string.
func (f Flattened) EncString() (crypto.EncString, error) {
	if f.EncryptedString != "" {
		return crypto.ParseEncString(f.EncryptedString)
	}
	var (
		e   = crypto.EncString{Type: crypto.EncType(f.EncryptionType)}
		err error
	)
	if e.IV, err = crypto.FromB64(f.IV); err != nil {
		return crypto.EncString{}, fmt.Errorf("%w: iv: %v", crypto.ErrInvalidEncString, err)
	}
	if e.Data, err = crypto.FromB64(f.Data); err != nil {
		return crypto.EncString{}, fmt.Errorf("%w: data: %v", crypto.ErrInvalidEncString, err)
	}
	if f.MAC != "" {
		if e.MAC, err = crypto.FromB64(f.MAC); err != nil {
			return crypto.EncString{}, fmt.Errorf("%w: mac: %v", crypto.ErrInvalidEncString, err)
		}
	}
	return e, nil
}

// EncodePlain wraps an unencrypted message. Only setupEncryption travels this way.
func EncodePlain(appID domain.AppID, msg domain.ApplicationMessage) (Outer, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return Outer{}, err
	}
	return Outer{AppID: appID, Message: raw}, nil
}

// EncodeEncrypted wraps ciphertext in its flattened form.
func EncodeEncrypted(appID domain.AppID, e crypto.EncString) (Outer, error) {
	raw, err := json.Marshal(Flatten(e))
	if err != nil {
		return Outer{}, err
	}
	return Outer{AppID: appID, Message: raw}, nil
}

// EncodeReply wraps ciphertext the way the companion answers: the canonical
// string plus the request's message id, when it had one.
func EncodeReply(appID domain.AppID, messageID int64, e crypto.EncString) (Outer, error) {
	raw, err := json.Marshal(e.String())
	if err != nil {
		return Outer{}, err
	}
	o := Outer{AppID: appID, Message: raw}
	if messageID != 0 {
		o.MessageID = &messageID
	}
	return o, nil
}

// Control builds a control message such as {"command":"invalidateEncryption","appId":...}.
func Control(cmd domain.Command, appID domain.AppID) Outer {
	return Outer{Command: cmd.String(), AppID: appID}
}

// Decode parses one frame.
func Decode(raw []byte) (Outer, error) {
	var o Outer
	if err := json.Unmarshal(raw, &o); err != nil {
		return Outer{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return o, nil
}

// PayloadKind tells how a message field was encoded.
type PayloadKind int

const (
	PayloadEncString PayloadKind = iota + 1
	PayloadFlattened
	PayloadPlain
)

// Payload is a parsed message field: ciphertext or a plaintext message.
type Payload struct {
	Kind  PayloadKind
	Enc   crypto.EncString
	Plain domain.ApplicationMessage
}

// Encrypted reports whether the payload needs a key to read.
func (p Payload) Encrypted() bool { return p.Kind == PayloadEncString || p.Kind == PayloadFlattened }

// ParsePayload classifies and parses an envelope's message field.
func ParsePayload(raw json.RawMessage) (Payload, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Payload{}, ErrNoPayload
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		e, err := crypto.ParseEncString(s)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Kind: PayloadEncString, Enc: e}, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	_, hasES := probe["encryptedString"]
	_, hasData := probe["data"]
	if hasES || hasData {
		var f Flattened
		if err := json.Unmarshal(raw, &f); err != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		e, err := f.EncString()
		if err != nil {
			return Payload{}, err
		}
		return Payload{Kind: PayloadFlattened, Enc: e}, nil
	}

	var m domain.ApplicationMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Payload{Kind: PayloadPlain, Plain: m}, nil
}
