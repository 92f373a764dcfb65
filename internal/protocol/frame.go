// Package protocol defines the named-event frame format exchanged over the
// websocket. Every text frame carries one JSON object of the form
//
//	{"event": "chat", "args": [[0, "alice", "hi"]]}
//
// where args is the positional argument list of the event.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound event names.
const (
	EventJoinReq     = "joinReq"
	EventTyping      = "typing"
	EventTextSend    = "textSend"
	EventUnRateLimit = "unRateLimit"
	EventDataSend    = "dataSend"
)

// Outbound event names.
const (
	EventJoinConfirm = "joinConfirm"
	EventJoinFail    = "joinFail"
	EventUserList    = "userList"
	EventNewUser     = "newUser"
	EventGoneUser    = "goneUser"
	EventChat        = "chat"
	EventRateLimit   = "rateLimit"
)

var (
	// ErrMalformedFrame is returned when a frame is not a JSON event object.
	ErrMalformedFrame = errors.New("protocol: malformed frame")
	// ErrMissingArg is returned when an event carries fewer args than required.
	ErrMissingArg = errors.New("protocol: missing argument")
	// ErrArgType is returned when an argument has the wrong JSON type.
	ErrArgType = errors.New("protocol: wrong argument type")
)

// Frame is a decoded event. Args are kept raw so handlers decode only what
// they need and relay opaque payloads untouched.
type Frame struct {
	Event string            `json:"event"`
	Args  []json.RawMessage `json:"args,omitempty"`
}

// Decode parses a raw text frame.
func Decode(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Event == "" {
		return Frame{}, fmt.Errorf("%w: empty event name", ErrMalformedFrame)
	}
	return f, nil
}

// Encode marshals an event with its positional args. A json.RawMessage arg
// is embedded as-is.
func Encode(event string, args ...any) ([]byte, error) {
	f := Frame{Event: event}
	if len(args) > 0 {
		f.Args = make([]json.RawMessage, 0, len(args))
		for i, arg := range args {
			b, err := json.Marshal(arg)
			if err != nil {
				return nil, fmt.Errorf("protocol: encode %s arg %d: %w", event, i, err)
			}
			f.Args = append(f.Args, b)
		}
	}
	return json.Marshal(f)
}

// Raw returns the i-th argument verbatim, or JSON null when absent.
func (f Frame) Raw(i int) json.RawMessage {
	if i < 0 || i >= len(f.Args) {
		return json.RawMessage("null")
	}
	return f.Args[i]
}

// String decodes the i-th argument as a JSON string.
func (f Frame) String(i int) (string, error) {
	if i < 0 || i >= len(f.Args) {
		return "", fmt.Errorf("%w: %s[%d]", ErrMissingArg, f.Event, i)
	}
	var s string
	if err := json.Unmarshal(f.Args[i], &s); err != nil {
		return "", fmt.Errorf("%w: %s[%d] is not a string", ErrArgType, f.Event, i)
	}
	return s, nil
}

// Bool decodes the i-th argument as a JSON boolean.
func (f Frame) Bool(i int) (bool, error) {
	if i < 0 || i >= len(f.Args) {
		return false, fmt.Errorf("%w: %s[%d]", ErrMissingArg, f.Event, i)
	}
	var b bool
	if err := json.Unmarshal(f.Args[i], &b); err != nil {
		return false, fmt.Errorf("%w: %s[%d] is not a boolean", ErrArgType, f.Event, i)
	}
	return b, nil
}
