// Package broadcast implements the broadcast role: a grow-only set of
// integers with broadcast, read and topology operations. When gossip is
// enabled every newly accepted value is forwarded to the node's neighbors
// and re-sent until each of them acknowledges it.
package broadcast

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/ryandielhenn/glomers/internal/telemetry"
	"github.com/ryandielhenn/glomers/pkg/gossip"
	"github.com/ryandielhenn/glomers/pkg/kv"
	"github.com/ryandielhenn/glomers/pkg/node"
	"github.com/ryandielhenn/glomers/pkg/proto"
	"github.com/ryandielhenn/glomers/pkg/ring"
)

// Overlay selects where gossip neighbors come from.
type Overlay int

const (
	// OverlayHarness uses this node's entry of the topology message.
	OverlayHarness Overlay = iota
	// OverlayRing ignores the topology message and uses the Fanout
	// successors of this node on a hash ring of the init membership.
	OverlayRing
)

type Options struct {
	// Gossip enables propagation. Without it the role only keeps local state
	// and a value broadcast to one node is never visible on another.
	Gossip  bool
	Overlay Overlay
	Fanout  int
	Retry   gossip.Config
	Logger  *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type Role struct {
	values    *kv.Set
	neighbors []string
	gsp       *gossip.Gossiper
	ring      *ring.HashRing
	overlay   Overlay
	fanout    int
	now       func() time.Time
	base      *zap.Logger
	log       *zap.Logger
}

func New(opts Options) *Role {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Fanout <= 0 {
		opts.Fanout = 2
	}
	r := &Role{
		values:  kv.NewSet(),
		overlay: opts.Overlay,
		fanout:  opts.Fanout,
		now:     opts.Now,
		base:    opts.Logger.Named("broadcast"),
	}
	r.log = r.base
	if opts.Gossip {
		r.gsp = gossip.New(opts.Retry, opts.Logger)
	}
	if opts.Overlay == OverlayRing {
		r.ring = ring.New(1, ring.FNV32a)
	}
	return r
}

func (*Role) Name() string { return "broadcast" }

func (*Role) Vocabulary() proto.Vocabulary { return vocabulary }

// Values returns a sorted snapshot of the set.
func (r *Role) Values() []int { return r.values.Snapshot() }

// Neighbors returns the peers this node gossips to.
func (r *Role) Neighbors() []string { return slices.Clone(r.neighbors) }

// Pending is the number of unacknowledged gossip sends.
func (r *Role) Pending() int {
	if r.gsp == nil {
		return 0
	}
	return r.gsp.Pending()
}

func (r *Role) Init(nodeID string, nodeIDs []string) {
	r.log = r.base.With(zap.String("node_id", nodeID))
	if r.ring == nil {
		return
	}
	// A repeated init replaces the membership wholesale.
	r.ring.Clear()
	for _, id := range nodeIDs {
		r.ring.Add(id)
	}
	if !r.ring.Has(nodeID) {
		r.log.Warn("node missing from its own membership, no ring neighbors", zap.Int("ring_nodes", r.ring.Len()))
		r.setNeighbors(nil, nil)
		return
	}
	r.setNeighbors(nil, r.ring.Successors(nodeID, r.fanout))
}

func (r *Role) Handle(s node.Sender, env proto.Envelope) (proto.Payload, error) {
	switch p := env.Body.Payload.(type) {
	case Broadcast:
		return BroadcastOk{}, r.accept(s, p.Message, env.Src)
	case Read:
		return ReadOk{Messages: r.values.Snapshot()}, nil
	case Topology:
		r.topology(s, env, p)
		return TopologyOk{}, nil
	default:
		return nil, fmt.Errorf("unhandled payload %T", p)
	}
}

// accept inserts v and, if it was new, forwards it to every neighbor but
// the one it came from.
func (r *Role) accept(s node.Sender, v int, from string) error {
	if !r.values.Add(v) {
		return nil
	}
	telemetry.BroadcastValues.Set(float64(r.values.Len()))
	if r.gsp == nil {
		return nil
	}
	if s.ID() == "" {
		r.log.Warn("value accepted before init, not gossiped", zap.Int("value", v))
		return nil
	}
	return r.gsp.Spread(transport(s), v, gossip.NodeID(from), r.now())
}

func (r *Role) topology(s node.Sender, env proto.Envelope, p Topology) {
	if r.overlay != OverlayHarness {
		return
	}
	self := s.ID()
	if self == "" {
		self = env.Dest
	}
	r.setNeighbors(s, p.Topology[self])
}

// setNeighbors installs the neighbor list and catches newcomers up on every
// value already held. s may be nil before the node can send.
func (r *Role) setNeighbors(s node.Sender, ids []string) {
	r.neighbors = slices.Clone(ids)
	r.log.Info("neighbors", zap.Strings("ids", r.neighbors))
	if r.gsp == nil {
		return
	}
	now := r.now()
	added := r.gsp.SetNeighbors(ids, now)
	if s == nil || s.ID() == "" {
		return
	}
	t := transport(s)
	for _, peer := range added {
		for _, v := range r.values.Snapshot() {
			if err := r.gsp.SendTo(t, peer, v, now); err != nil {
				r.log.Error("catch-up send failed", zap.String("peer", string(peer)), zap.Error(err))
				return
			}
		}
	}
}

// HandleReply consumes acknowledgements of gossip sends.
func (r *Role) HandleReply(_ node.Sender, env proto.Envelope) error {
	irt, _ := env.InReplyTo()
	if r.gsp == nil {
		return &node.ProtocolViolationError{Type: env.Type(), Src: env.Src, InReplyTo: env.Body.InReplyTo}
	}
	switch p := env.Body.Payload.(type) {
	case BroadcastOk:
		if !r.gsp.Ack(gossip.NodeID(env.Src), irt, r.now()) {
			r.log.Debug("stale ack", zap.String("src", env.Src), zap.Uint64("in_reply_to", irt))
		}
		return nil
	case proto.Error:
		if r.gsp.Nack(irt) {
			r.log.Info("peer rejected gossip, will retry", zap.String("src", env.Src),
				zap.Uint64("in_reply_to", irt), zap.Error(p.Err()))
		}
		return nil
	default:
		return &node.ProtocolViolationError{Type: env.Type(), Src: env.Src, InReplyTo: env.Body.InReplyTo}
	}
}

func (r *Role) Tick(s node.Sender, now time.Time) error {
	if r.gsp == nil || r.gsp.Pending() == 0 {
		return nil
	}
	return r.gsp.Tick(transport(s), now)
}

// transport sends gossip as ordinary broadcast requests.
func transport(s node.Sender) gossip.Transport {
	return gossip.TransportFunc(func(dest gossip.NodeID, v int) (uint64, error) {
		return s.Send(string(dest), Broadcast{Message: v})
	})
}
