package livefeed

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message is one parsed inbound frame.
type Message struct {
	Type   string         // value of the "type" field, empty if absent
	Fields map[string]any // the whole decoded object, "type" included

	raw json.RawMessage
}

// Decode unmarshals the original frame into v.
func (m *Message) Decode(v any) error {
	if len(m.raw) == 0 {
		return errors.New("message has no raw frame")
	}
	return json.Unmarshal(m.raw, v)
}

// Raw returns the frame as received.
func (m *Message) Raw() []byte {
	return m.raw
}

// Field returns the named field as a string, or "" if it is missing or not a
// string.
func (m *Message) Field(name string) string {
	s, _ := m.Fields[name].(string)
	return s
}

// heartbeatFrame is the only reserved outbound shape.
var heartbeatFrame = []byte(`{"type":"heartbeat"}`)

// ParseMessage decodes one inbound frame. The frame must be a JSON object;
// "type", when present, must be a string.
func ParseMessage(data []byte) (*Message, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}
	if fields == nil {
		return nil, errors.New("parse frame: null is not an object")
	}

	var msgType string
	if t, ok := fields["type"]; ok {
		s, ok := t.(string)
		if !ok {
			return nil, fmt.Errorf("parse frame: type is %T, want string", t)
		}
		msgType = s
	}

	raw := make(json.RawMessage, len(data))
	copy(raw, data)

	return &Message{
		Type:   msgType,
		Fields: fields,
		raw:    raw,
	}, nil
}

// marshalFrame serializes an outbound frame. Byte slices and raw JSON are
// sent verbatim.
func marshalFrame(frame any) ([]byte, error) {
	switch f := frame.(type) {
	case nil:
		return nil, errors.New("frame is nil")
	case json.RawMessage:
		if !json.Valid(f) {
			return nil, errors.New("frame is not valid JSON")
		}
		return f, nil
	case []byte:
		if !json.Valid(f) {
			return nil, errors.New("frame is not valid JSON")
		}
		return f, nil
	default:
		data, err := json.Marshal(frame)
		if err != nil {
			return nil, fmt.Errorf("marshal frame: %w", err)
		}
		return data, nil
	}
}
