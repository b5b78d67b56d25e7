package proto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Payload is the tagged content of a message body. Type returns the wire
// discriminator that goes into the body's "type" field.
type Payload interface {
	Type() string
}

// Body carries the correlation fields and the payload. Payload fields are
// flattened next to msg_id, in_reply_to and type on the wire.
type Body struct {
	MsgID     *uint64
	InReplyTo *uint64
	Payload   Payload
}

// Envelope is one wire message.
type Envelope struct {
	Src  string `json:"src"`
	Dest string `json:"dest"`
	Body Body   `json:"body"`
}

// ID returns a pointer suitable for Body.MsgID / Body.InReplyTo.
func ID(v uint64) *uint64 { return &v }

// MsgID reports the message id of the envelope, if any.
func (e Envelope) MsgID() (uint64, bool) {
	if e.Body.MsgID == nil {
		return 0, false
	}
	return *e.Body.MsgID, true
}

// InReplyTo reports the id of the message this envelope answers, if any.
func (e Envelope) InReplyTo() (uint64, bool) {
	if e.Body.InReplyTo == nil {
		return 0, false
	}
	return *e.Body.InReplyTo, true
}

// Type returns the payload discriminator, or "" for an empty body.
func (e Envelope) Type() string {
	if e.Body.Payload == nil {
		return ""
	}
	return e.Body.Payload.Type()
}

// MarshalJSON writes msg_id, in_reply_to and type first, followed by the
// payload's own fields.
func (b Body) MarshalJSON() ([]byte, error) {
	if b.Payload == nil {
		return nil, fmt.Errorf("proto: body has no payload")
	}
	fields, err := json.Marshal(b.Payload)
	if err != nil {
		return nil, fmt.Errorf("proto: marshal %s payload: %w", b.Payload.Type(), err)
	}
	fields = bytes.TrimSpace(fields)
	if len(fields) < 2 || fields[0] != '{' || fields[len(fields)-1] != '}' {
		return nil, fmt.Errorf("proto: %s payload does not marshal to an object", b.Payload.Type())
	}
	typ, err := json.Marshal(b.Payload.Type())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(fields) + 48)
	buf.WriteByte('{')
	if b.MsgID != nil {
		buf.WriteString(`"msg_id":`)
		buf.WriteString(strconv.FormatUint(*b.MsgID, 10))
		buf.WriteByte(',')
	}
	if b.InReplyTo != nil {
		buf.WriteString(`"in_reply_to":`)
		buf.WriteString(strconv.FormatUint(*b.InReplyTo, 10))
		buf.WriteByte(',')
	}
	buf.WriteString(`"type":`)
	buf.Write(typ)
	if inner := bytes.TrimSpace(fields[1 : len(fields)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
