package node

import "github.com/ryandielhenn/glomers/pkg/proto"

// tracker stamps outgoing envelopes. Every emitted envelope consumes exactly
// one msg_id, whatever its payload.
type tracker struct {
	next     uint64
	requests map[uint64]struct{}
}

func newTracker(first uint64) *tracker {
	return &tracker{next: first, requests: make(map[uint64]struct{})}
}

func (t *tracker) take() uint64 {
	id := t.next
	t.next++
	return id
}

// reply answers in, threading its msg_id into in_reply_to.
func (t *tracker) reply(in proto.Envelope, p proto.Payload) proto.Envelope {
	body := proto.Body{MsgID: proto.ID(t.take()), Payload: p}
	if id, ok := in.MsgID(); ok {
		body.InReplyTo = proto.ID(id)
	}
	return proto.Envelope{Src: in.Dest, Dest: in.Src, Body: body}
}

// request stamps a message this node originates and remembers its id, so
// replies to it can be told apart from replies to anything else.
func (t *tracker) request(src, dest string, p proto.Payload) proto.Envelope {
	id := t.take()
	t.requests[id] = struct{}{}
	return proto.Envelope{
		Src:  src,
		Dest: dest,
		Body: proto.Body{MsgID: proto.ID(id), Payload: p},
	}
}

// requested reports whether id was stamped on a request from this node.
// Ids stamped on replies never qualify.
func (t *tracker) requested(id uint64) bool {
	_, ok := t.requests[id]
	return ok
}
