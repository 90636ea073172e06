package push

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/nhle/grievance-desk/internal/crossref"
)

// Payload is the decoded content of one push event.
type Payload struct {
	// Message is the notification text.
	Message string

	// EntityID is the explicit complaint id when the server sent one.
	EntityID string

	// Target is the hub method name when the event used hub framing
	// ({"target": "...", "arguments": [...]}).
	Target string
}

// envelope covers the structured shapes a server may send. Plain text
// payloads never reach it.
type envelope struct {
	Message     *string           `json:"message"`
	ComplaintID json.RawMessage   `json:"complaintId"`
	EntityID    json.RawMessage   `json:"entityId"`
	Target      string            `json:"target"`
	Arguments   []json.RawMessage `json:"arguments"`
}

// ParsePayload decodes an event body. Anything that is not one of the
// recognised JSON shapes is kept verbatim as the message, so decoding
// never fails.
func ParsePayload(data []byte) Payload {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Payload{Message: string(data)}
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return Payload{Message: s}
		}
	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			break
		}
		if env.Target != "" && len(env.Arguments) > 0 {
			p := ParsePayload(env.Arguments[0])
			p.Target = env.Target
			return p
		}
		if env.Message != nil {
			id := rawEntityID(env.ComplaintID)
			if id == "" {
				id = rawEntityID(env.EntityID)
			}
			return Payload{Message: *env.Message, EntityID: id}
		}
	}

	return Payload{Message: string(data)}
}

// rawEntityID accepts a JSON number or string holding a decimal id.
func rawEntityID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil && i >= 0 {
			return strconv.FormatInt(i, 10)
		}
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil && crossref.IsEntityID(s) {
		return s
	}
	return ""
}
