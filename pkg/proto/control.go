package proto

import (
	maelstrom "github.com/jepsen-io/maelstrom/demo/go"
)

const (
	TypeInit   = "init"
	TypeInitOk = "init_ok"
	TypeError  = "error"
)

// Init assigns the node its identity and the cluster membership.
type Init struct {
	NodeID  string   `json:"node_id"`
	NodeIDs []string `json:"node_ids"`
}

func (Init) Type() string { return TypeInit }

type InitOk struct{}

func (InitOk) Type() string { return TypeInitOk }

// Error is the harness-wide error reply body.
type Error struct {
	Code int    `json:"code"`
	Text string `json:"text,omitempty"`
}

func (Error) Type() string { return TypeError }

// Err converts the body into a *maelstrom.RPCError.
func (e Error) Err() error {
	return maelstrom.NewRPCError(e.Code, e.Text)
}

// CodeText returns the symbolic name of the error code.
func (e Error) CodeText() string {
	return maelstrom.ErrorCodeText(e.Code)
}

// Control is the vocabulary shared by every role.
var Control = Vocabulary{
	TypeInit:   Request[Init]("node_id", "node_ids"),
	TypeInitOk: Reply[InitOk](),
	TypeError:  Reply[Error]("code"),
}
