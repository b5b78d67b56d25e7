package node

import (
	"time"

	"github.com/ryandielhenn/glomers/pkg/proto"
)

// Role is a node's fixed behavior. Handle receives only request-shaped
// payloads from the role's vocabulary; Init is handled by the node itself.
// A nil payload means no reply.
type Role interface {
	Name() string
	Vocabulary() proto.Vocabulary
	Handle(s Sender, env proto.Envelope) (proto.Payload, error)
}

// Sender is the node as seen from a role.
type Sender interface {
	// ID is the node id assigned by init, or "" before init.
	ID() string
	NodeIDs() []string
	// Send emits a request to dest and returns the msg_id it was stamped with.
	Send(dest string, p proto.Payload) (uint64, error)
}

// Initializer is implemented by roles that need the cluster membership.
type Initializer interface {
	Init(nodeID string, nodeIDs []string)
}

// ReplyHandler is implemented by roles that send requests of their own and
// therefore expect replies. env.Body.InReplyTo is guaranteed to name the
// msg_id of a request this node sent through Send.
type ReplyHandler interface {
	HandleReply(s Sender, env proto.Envelope) error
}

// Ticker is implemented by roles with timed work, such as retries. Tick runs
// on the event loop, never concurrently with Handle.
type Ticker interface {
	Tick(s Sender, now time.Time) error
}
