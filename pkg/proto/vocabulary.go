package proto

import (
	"encoding/json"
	"maps"
)

// Variant describes how one payload tag is decoded.
type Variant struct {
	decode   func(json.RawMessage) (Payload, error)
	required []string
	reply    bool
}

// IsReply reports whether the variant is only ever originated as a reply.
func (v Variant) IsReply() bool { return v.reply }

// Request registers T as a payload a node may receive and answer. The named
// fields must be present in the body.
func Request[T Payload](required ...string) Variant {
	return Variant{decode: decodeAs[T], required: required}
}

// Reply registers T as a reply-only payload.
func Reply[T Payload](required ...string) Variant {
	return Variant{decode: decodeAs[T], required: required, reply: true}
}

func decodeAs[T Payload](raw json.RawMessage) (Payload, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// Vocabulary is the closed set of payload variants a role understands, keyed
// by wire tag.
type Vocabulary map[string]Variant

// Merge returns a new vocabulary holding every variant of vs. Later
// vocabularies win on duplicate tags.
func Merge(vs ...Vocabulary) Vocabulary {
	out := make(Vocabulary)
	for _, v := range vs {
		maps.Copy(out, v)
	}
	return out
}

// IsReply reports whether tag names a reply-only variant.
func (v Vocabulary) IsReply(tag string) bool {
	variant, ok := v[tag]
	return ok && variant.reply
}
