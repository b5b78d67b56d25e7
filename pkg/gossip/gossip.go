package gossip

import (
	"cmp"
	"math/rand"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/ryandielhenn/glomers/internal/telemetry"
)

type Config struct {
	Base time.Duration
	Max  time.Duration
	// Jitter is the largest random fraction added to a backoff delay.
	// Negative disables jitter; zero means 0.25.
	Jitter float64
	// SuspectAfter defaults to ten times Max.
	SuspectAfter time.Duration
	// Seed fixes the jitter source; zero seeds from the clock.
	Seed int64
}

// Gossiper is the outbox of unacknowledged rumors plus the neighbor list
// they are addressed to.
type Gossiper struct {
	members  *MemberList
	pending  map[Rumor]*entry
	byMsg    map[uint64]Rumor
	backoff  Backoff
	detector FailureDetector
	log      *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Gossiper {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Max < cfg.Base {
		cfg.Max = cfg.Base
	}
	switch {
	case cfg.Jitter == 0:
		cfg.Jitter = 0.25
	case cfg.Jitter < 0:
		cfg.Jitter = 0
	}
	if cfg.SuspectAfter == 0 {
		cfg.SuspectAfter = 10 * cfg.Max
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Gossiper{
		members: NewMemberList(),
		pending: make(map[Rumor]*entry),
		byMsg:   make(map[uint64]Rumor),
		backoff: Backoff{
			Base:   cfg.Base,
			Max:    cfg.Max,
			Jitter: cfg.Jitter,
			rand:   rand.New(rand.NewSource(seed)),
		},
		detector: FailureDetector{After: cfg.SuspectAfter},
		log:      log.Named("gossip"),
	}
}

// SetNeighbors replaces the neighbor list and returns the newcomers. Rumors
// already queued for dropped neighbors keep being retried.
func (g *Gossiper) SetNeighbors(ids []string, now time.Time) []NodeID {
	added := g.members.Set(ids, now)
	for _, e := range g.pending {
		if m := g.members.members[e.rumor.Peer]; m != nil && slices.Contains(added, m.ID) {
			m.Unacked++
		}
	}
	g.log.Debug("neighbors", zap.Strings("ids", ids))
	return added
}

// Spread queues value for every neighbor except exclude, usually the node
// the value came from, and sends it right away.
func (g *Gossiper) Spread(t Transport, value int, exclude NodeID, now time.Time) error {
	for _, peer := range g.members.All() {
		if peer == exclude {
			continue
		}
		if err := g.SendTo(t, peer, value, now); err != nil {
			return err
		}
	}
	return nil
}

// SendTo queues value for one peer. It is a no-op if that rumor is already
// pending.
func (g *Gossiper) SendTo(t Transport, peer NodeID, value int, now time.Time) error {
	r := Rumor{Peer: peer, Value: value}
	if _, ok := g.pending[r]; ok {
		return nil
	}
	e := &entry{rumor: r}
	g.pending[r] = e
	if m := g.members.members[peer]; m != nil {
		m.Unacked++
	}
	telemetry.GossipPending.Set(float64(len(g.pending)))
	return g.send(t, e, now)
}

func (g *Gossiper) send(t Transport, e *entry, now time.Time) error {
	id, err := t.Send(e.rumor.Peer, e.rumor.Value)
	if err != nil {
		return err
	}
	e.attempts++
	e.msgIDs = append(e.msgIDs, id)
	e.due = now.Add(g.backoff.Next(e.attempts))
	g.byMsg[id] = e.rumor
	return nil
}

// Ack retires the rumor that msgID was sent for. It reports false for
// unknown ids, ids addressed to a different peer, and late duplicates.
func (g *Gossiper) Ack(from NodeID, msgID uint64, now time.Time) bool {
	r, ok := g.byMsg[msgID]
	if !ok || r.Peer != from {
		return false
	}
	e := g.pending[r]
	for _, id := range e.msgIDs {
		delete(g.byMsg, id)
	}
	delete(g.pending, r)
	if m := g.members.members[r.Peer]; m != nil {
		if m.Suspect {
			g.log.Info("peer acknowledging again", zap.String("peer", string(m.ID)))
		}
		g.detector.Observe(m, now)
		m.Unacked--
	}
	telemetry.GossipPending.Set(float64(len(g.pending)))
	return true
}

// Nack records a negative reply. The rumor stays pending and is retried on
// its normal schedule. It reports whether msgID is pending.
func (g *Gossiper) Nack(msgID uint64) bool {
	_, ok := g.byMsg[msgID]
	return ok
}

// Tick re-sends every rumor whose backoff has expired.
func (g *Gossiper) Tick(t Transport, now time.Time) error {
	var due []*entry
	for _, e := range g.pending {
		if !e.due.After(now) {
			due = append(due, e)
		}
	}
	slices.SortFunc(due, func(a, b *entry) int {
		if c := a.due.Compare(b.due); c != 0 {
			return c
		}
		if c := cmp.Compare(a.rumor.Peer, b.rumor.Peer); c != 0 {
			return c
		}
		return cmp.Compare(a.rumor.Value, b.rumor.Value)
	})
	for _, e := range due {
		if err := g.send(t, e, now); err != nil {
			return err
		}
		telemetry.GossipRetries.Inc()
	}

	for _, id := range g.members.order {
		m := g.members.members[id]
		if g.detector.Check(m, now) {
			g.log.Warn("peer suspected", zap.String("peer", string(id)),
				zap.Int("unacked", m.Unacked), zap.Time("last_ack", m.LastAck))
		}
	}
	return nil
}

// Pending is the number of unacknowledged rumors.
func (g *Gossiper) Pending() int {
	return len(g.pending)
}
