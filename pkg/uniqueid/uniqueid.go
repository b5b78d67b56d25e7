// Package uniqueid implements the unique-id role. Identifiers are the
// handling node's id joined with a version 7 UUID, which is time ordered and
// strictly increasing within one process, so no coordination is needed.
package uniqueid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ryandielhenn/glomers/pkg/node"
	"github.com/ryandielhenn/glomers/pkg/proto"
)

type Generate struct{}

func (Generate) Type() string { return "generate" }

type GenerateOk struct {
	ID string `json:"id"`
}

func (GenerateOk) Type() string { return "generate_ok" }

var vocabulary = proto.Vocabulary{
	"generate":    proto.Request[Generate](),
	"generate_ok": proto.Reply[GenerateOk]("id"),
}

type Role struct {
	mint func() (uuid.UUID, error)
}

func New() *Role {
	return &Role{mint: uuid.NewV7}
}

func (*Role) Name() string { return "unique-ids" }

func (*Role) Vocabulary() proto.Vocabulary { return vocabulary }

func (r *Role) Handle(s node.Sender, env proto.Envelope) (proto.Payload, error) {
	switch p := env.Body.Payload.(type) {
	case Generate:
		id, err := r.Mint(prefix(s, env))
		if err != nil {
			return nil, err
		}
		return GenerateOk{ID: id}, nil
	default:
		return nil, fmt.Errorf("unhandled payload %T", p)
	}
}

// Mint returns a fresh identifier scoped to nodeID.
func (r *Role) Mint(nodeID string) (string, error) {
	u, err := r.mint()
	if err != nil {
		return "", fmt.Errorf("mint id: %w", err)
	}
	return nodeID + "-" + u.String(), nil
}

// prefix is the id from init, or the envelope destination before init.
func prefix(s node.Sender, env proto.Envelope) string {
	if id := s.ID(); id != "" {
		return id
	}
	return env.Dest
}
