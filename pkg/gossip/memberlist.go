package gossip

import (
	"slices"
	"time"
)

// Member is a neighbor as seen by the outbox.
type Member struct {
	ID       NodeID
	LastAck  time.Time
	Unacked  int
	Suspect  bool
	JoinedAt time.Time
}

// MemberList is the ordered neighbor list this node gossips to.
type MemberList struct {
	order   []NodeID
	members map[NodeID]*Member
}

func NewMemberList() *MemberList {
	return &MemberList{members: make(map[NodeID]*Member)}
}

// Set replaces the neighbor list, keeping state for neighbors that stay, and
// returns the neighbors that were not present before.
func (l *MemberList) Set(ids []string, now time.Time) []NodeID {
	next := make(map[NodeID]*Member, len(ids))
	order := make([]NodeID, 0, len(ids))
	var added []NodeID
	for _, raw := range ids {
		id := NodeID(raw)
		if _, dup := next[id]; dup {
			continue
		}
		m, ok := l.members[id]
		if !ok {
			m = &Member{ID: id, JoinedAt: now}
			added = append(added, id)
		}
		next[id] = m
		order = append(order, id)
	}
	l.members = next
	l.order = order
	return added
}

func (l *MemberList) All() []NodeID {
	return slices.Clone(l.order)
}
