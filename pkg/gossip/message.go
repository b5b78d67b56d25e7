package gossip

import "time"

type NodeID string

// Rumor is one value owed to one peer. The outbox holds at most one entry
// per rumor, so a value is never queued twice for the same peer.
type Rumor struct {
	Peer  NodeID
	Value int
}

type entry struct {
	rumor    Rumor
	attempts int
	due      time.Time
	msgIDs   []uint64
}
