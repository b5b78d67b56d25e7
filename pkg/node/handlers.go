package node

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/ryandielhenn/glomers/internal/telemetry"
	"github.com/ryandielhenn/glomers/pkg/proto"
)

// HandleLine decodes and dispatches one input line. Malformed lines are
// logged and skipped; the returned error is always fatal.
func (n *Node) HandleLine(line []byte) error {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}
	env, err := n.dec.Decode(line)
	if err != nil {
		telemetry.Malformed.Inc()
		n.log.Warn("skipping malformed input", zap.Error(err), zap.ByteString("line", truncate(line, 256)))
		return nil
	}
	return telemetry.Instrument(env.Type(), func() error {
		return n.Dispatch(env)
	})
}

// Dispatch routes one decoded envelope and writes the reply, if any.
func (n *Node) Dispatch(env proto.Envelope) error {
	typ := env.Type()
	if n.vocab.IsReply(typ) {
		return n.routeReply(env)
	}

	var (
		reply proto.Payload
		err   error
	)
	switch p := env.Body.Payload.(type) {
	case proto.Init:
		reply = n.init(p)
	default:
		reply, err = n.role.Handle(n, env)
	}
	if errors.Is(err, proto.ErrMalformed) {
		telemetry.Malformed.Inc()
		n.log.Warn("skipping malformed payload", zap.String("type", typ), zap.String("src", env.Src), zap.Error(err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: handle %s from %s: %w", n.role.Name(), typ, env.Src, err)
	}
	if reply == nil {
		return nil
	}
	return n.write(n.ids.reply(env, reply))
}

// init records identity and membership. Repeated inits are answered the
// same way and simply overwrite the previous assignment.
func (n *Node) init(p proto.Init) proto.Payload {
	n.id = p.NodeID
	n.nodeIDs = slices.Clone(p.NodeIDs)
	n.log = n.base.With(zap.String("node_id", n.id))
	n.log.Info("initialized", zap.Strings("node_ids", n.nodeIDs))

	if r, ok := n.role.(Initializer); ok {
		r.Init(n.id, n.NodeIDs())
	}
	return proto.InitOk{}
}

// routeReply accepts a reply only if the role originates requests and the
// reply answers a request this node sent.
func (n *Node) routeReply(env proto.Envelope) error {
	rh, ok := n.role.(ReplyHandler)
	irt, has := env.InReplyTo()
	if !ok || !has || !n.ids.requested(irt) {
		telemetry.ProtocolViolations.Inc()
		return &ProtocolViolationError{Type: env.Type(), Src: env.Src, InReplyTo: env.Body.InReplyTo}
	}
	if e, ok := env.Body.Payload.(proto.Error); ok {
		n.log.Debug("error reply", zap.String("src", env.Src), zap.Uint64("in_reply_to", irt),
			zap.String("code", e.CodeText()), zap.String("text", e.Text))
	}
	err := rh.HandleReply(n, env)
	if errors.Is(err, ErrProtocolViolation) {
		telemetry.ProtocolViolations.Inc()
	}
	return err
}
