package types

import "encoding/json"

// ApplicationMessage is the logical payload carried inside an envelope.
// Outbound messages are stamped with Timestamp (epoch millis) at send time.
type ApplicationMessage struct {
	Command   string          `json:"command"`
	MessageID int64           `json:"messageId,omitempty"`
	Timestamp int64           `json:"timestamp"`
	UserID    UserID          `json:"userId,omitempty"`
	PublicKey string          `json:"publicKey,omitempty"`
	Response  json.RawMessage `json:"response,omitempty"`

	KeyB64     string `json:"keyB64,omitempty"`
	UserKeyB64 string `json:"userKeyB64,omitempty"`
}

// Kind parses the command.
func (m ApplicationMessage) Kind() Command { return ParseCommand(m.Command) }

// ResponseString returns the response when it is a JSON string.
func (m ApplicationMessage) ResponseString() (string, bool) {
	var s string
	if len(m.Response) == 0 || json.Unmarshal(m.Response, &s) != nil {
		return "", false
	}
	return s, true
}

// ResponseBool returns the response when it is a JSON boolean.
func (m ApplicationMessage) ResponseBool() (bool, bool) {
	var b bool
	if len(m.Response) == 0 || json.Unmarshal(m.Response, &b) != nil {
		return false, false
	}
	return b, true
}

// WithResponse returns a copy of m carrying v as its response.
func (m ApplicationMessage) WithResponse(v any) ApplicationMessage {
	b, err := json.Marshal(v)
	if err == nil {
		m.Response = b
	}
	return m
}
