package broadcast

import "github.com/ryandielhenn/glomers/pkg/proto"

type Broadcast struct {
	Message int `json:"message"`
}

func (Broadcast) Type() string { return "broadcast" }

type BroadcastOk struct{}

func (BroadcastOk) Type() string { return "broadcast_ok" }

type Read struct{}

func (Read) Type() string { return "read" }

type ReadOk struct {
	Messages []int `json:"messages"`
}

func (ReadOk) Type() string { return "read_ok" }

// Topology maps every node to its neighbors.
type Topology struct {
	Topology map[string][]string `json:"topology"`
}

func (Topology) Type() string { return "topology" }

type TopologyOk struct{}

func (TopologyOk) Type() string { return "topology_ok" }

var vocabulary = proto.Vocabulary{
	"broadcast":    proto.Request[Broadcast]("message"),
	"broadcast_ok": proto.Reply[BroadcastOk](),
	"read":         proto.Request[Read](),
	"read_ok":      proto.Reply[ReadOk]("messages"),
	"topology":     proto.Request[Topology]("topology"),
	"topology_ok":  proto.Reply[TopologyOk](),
}
