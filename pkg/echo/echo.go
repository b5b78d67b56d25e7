// Package echo implements the echo role: every echo request is answered
// with its text unchanged.
package echo

import (
	"fmt"

	"github.com/ryandielhenn/glomers/pkg/node"
	"github.com/ryandielhenn/glomers/pkg/proto"
)

type Echo struct {
	Echo string `json:"echo"`
}

func (Echo) Type() string { return "echo" }

type EchoOk struct {
	Echo string `json:"echo"`
}

func (EchoOk) Type() string { return "echo_ok" }

var vocabulary = proto.Vocabulary{
	"echo":    proto.Request[Echo]("echo"),
	"echo_ok": proto.Reply[EchoOk](),
}

type Role struct{}

func New() *Role { return &Role{} }

func (*Role) Name() string { return "echo" }

func (*Role) Vocabulary() proto.Vocabulary { return vocabulary }

func (*Role) Handle(_ node.Sender, env proto.Envelope) (proto.Payload, error) {
	switch p := env.Body.Payload.(type) {
	case Echo:
		return EchoOk{Echo: p.Echo}, nil
	default:
		return nil, fmt.Errorf("unhandled payload %T", p)
	}
}
