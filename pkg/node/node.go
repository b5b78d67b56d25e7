package node

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/ryandielhenn/glomers/internal/telemetry"
	"github.com/ryandielhenn/glomers/pkg/proto"
)

type Options struct {
	Logger *zap.Logger
	// Tick is the timer period for roles implementing Ticker. Zero disables it.
	Tick time.Duration
	// FirstMsgID is the first msg_id this node emits. Defaults to 1.
	FirstMsgID uint64
}

// Node owns every piece of mutable state of one process: identity,
// membership, the msg_id counter and the role. It is driven by a single
// goroutine; see Run.
type Node struct {
	role    Role
	vocab   proto.Vocabulary
	dec     *proto.Decoder
	enc     *proto.Encoder
	ids     *tracker
	base    *zap.Logger
	log     *zap.Logger
	tick    time.Duration
	id      string
	nodeIDs []string
}

// New builds a node that writes its envelopes to out.
func New(role Role, out io.Writer, opts Options) *Node {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.FirstMsgID == 0 {
		opts.FirstMsgID = 1
	}
	vocab := proto.Merge(proto.Control, role.Vocabulary())
	base := opts.Logger.Named("node").With(zap.String("role", role.Name()))
	return &Node{
		role:  role,
		vocab: vocab,
		dec:   proto.NewDecoder(vocab),
		enc:   proto.NewEncoder(out),
		ids:   newTracker(opts.FirstMsgID),
		base:  base,
		log:   base,
		tick:  opts.Tick,
	}
}

func (n *Node) ID() string {
	return n.id
}

func (n *Node) NodeIDs() []string {
	return slices.Clone(n.nodeIDs)
}

// Send emits a request originated by this node.
func (n *Node) Send(dest string, p proto.Payload) (uint64, error) {
	if n.id == "" {
		return 0, errors.New("node: send before init")
	}
	env := n.ids.request(n.id, dest, p)
	if err := n.write(env); err != nil {
		return 0, err
	}
	return *env.Body.MsgID, nil
}

func (n *Node) write(env proto.Envelope) error {
	if err := n.enc.Encode(env); err != nil {
		return fmt.Errorf("%w: %s to %s: %w", ErrOutput, env.Type(), env.Dest, err)
	}
	telemetry.MessagesSent.WithLabelValues(env.Type()).Inc()
	return nil
}
