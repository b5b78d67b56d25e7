package gossip

import (
	"errors"
	"slices"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type sent struct {
	id    uint64
	dest  NodeID
	value int
}

type fakeTransport struct {
	next uint64
	log  []sent
	err  error
}

func (f *fakeTransport) Send(dest NodeID, value int) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.next++
	f.log = append(f.log, sent{id: f.next, dest: dest, value: value})
	return f.next, nil
}

func (f *fakeTransport) last(dest NodeID) sent {
	for i := len(f.log) - 1; i >= 0; i-- {
		if f.log[i].dest == dest {
			return f.log[i]
		}
	}
	return sent{}
}

var t0 = time.Unix(1_700_000_000, 0)

func newTestGossiper(t *testing.T) *Gossiper {
	return New(Config{Base: 100 * time.Millisecond, Max: 800 * time.Millisecond, Jitter: -1}, zaptest.NewLogger(t))
}

func TestSpreadSkipsSourceAndDedups(t *testing.T) {
	g := newTestGossiper(t)
	tr := &fakeTransport{}
	g.SetNeighbors([]string{"n2", "n3", "n4"}, t0)

	if err := g.Spread(tr, 7, "n3", t0); err != nil {
		t.Fatalf("Spread: %v", err)
	}
	if err := g.Spread(tr, 7, "c1", t0); err != nil {
		t.Fatalf("Spread again: %v", err)
	}

	var dests []NodeID
	for _, s := range tr.log {
		dests = append(dests, s.dest)
	}
	// n2 and n4 from the first spread, n3 from the second; n2/n4 not resent.
	if !slices.Equal(dests, []NodeID{"n2", "n4", "n3"}) {
		t.Fatalf("sends went to %v", dests)
	}
	if g.Pending() != 3 {
		t.Fatalf("Pending = %d, want 3", g.Pending())
	}
}

func TestAckRetiresRumor(t *testing.T) {
	g := newTestGossiper(t)
	tr := &fakeTransport{}
	g.SetNeighbors([]string{"n2"}, t0)
	_ = g.Spread(tr, 1, "", t0)

	id := tr.last("n2").id
	if g.Ack("n3", id, t0) {
		t.Fatalf("Ack from the wrong peer accepted")
	}
	if !g.Ack("n2", id, t0) {
		t.Fatalf("Ack(%d) = false", id)
	}
	if g.Ack("n2", id, t0) {
		t.Fatalf("duplicate Ack accepted")
	}
	if g.Pending() != 0 {
		t.Fatalf("Pending = %d after ack", g.Pending())
	}
	m := g.members.members["n2"]
	if m.Unacked != 0 || !m.LastAck.Equal(t0) {
		t.Fatalf("member after ack = %+v", m)
	}

	// Retired rumors can be queued again.
	_ = g.SendTo(tr, "n2", 1, t0)
	if g.Pending() != 1 {
		t.Fatalf("Pending = %d after re-queue", g.Pending())
	}
}

func TestTickRetriesWithBackoff(t *testing.T) {
	g := newTestGossiper(t)
	tr := &fakeTransport{}
	g.SetNeighbors([]string{"n2"}, t0)
	_ = g.Spread(tr, 9, "", t0)

	// 100ms, 200ms, 400ms, 800ms, 800ms (capped)
	steps := []time.Duration{100, 200, 400, 800, 800}
	now := t0
	for i, step := range steps {
		before := len(tr.log)
		if err := g.Tick(tr, now.Add(step*time.Millisecond-time.Millisecond)); err != nil {
			t.Fatalf("Tick: %v", err)
		}
		if len(tr.log) != before {
			t.Fatalf("attempt %d: resent before backoff expired", i+2)
		}
		now = now.Add(step * time.Millisecond)
		if err := g.Tick(tr, now); err != nil {
			t.Fatalf("Tick: %v", err)
		}
		if len(tr.log) != before+1 {
			t.Fatalf("attempt %d: not resent at %s", i+2, now.Sub(t0))
		}
	}

	// Any of the msg_ids acknowledges the rumor, and all of them are retired.
	first := tr.log[0].id
	if !g.Ack("n2", first, now) {
		t.Fatalf("Ack of first attempt rejected")
	}
	for _, s := range tr.log {
		if g.Nack(s.id) {
			t.Fatalf("msg_id %d still pending after ack", s.id)
		}
	}
	before := len(tr.log)
	_ = g.Tick(tr, now.Add(time.Hour))
	if len(tr.log) != before {
		t.Fatalf("acknowledged rumor resent")
	}
}

func TestNackKeepsPending(t *testing.T) {
	g := newTestGossiper(t)
	tr := &fakeTransport{}
	g.SetNeighbors([]string{"n2"}, t0)
	_ = g.Spread(tr, 3, "", t0)

	if !g.Nack(tr.last("n2").id) {
		t.Fatalf("Nack of pending id = false")
	}
	if g.Nack(12345) {
		t.Fatalf("Nack of unknown id = true")
	}
	if _, ok := g.pending[Rumor{Peer: "n2", Value: 3}]; !ok || g.Pending() != 1 {
		t.Fatalf("pending = %v, want only 3 for n2", g.pending)
	}
}

func TestTransportErrorPropagates(t *testing.T) {
	g := newTestGossiper(t)
	want := errors.New("stdout closed")
	tr := &fakeTransport{err: want}
	g.SetNeighbors([]string{"n2"}, t0)
	if err := g.Spread(tr, 1, "", t0); !errors.Is(err, want) {
		t.Fatalf("Spread = %v, want %v", err, want)
	}
}

func TestSetNeighborsReportsNewcomers(t *testing.T) {
	g := newTestGossiper(t)
	if added := g.SetNeighbors([]string{"n2", "n3", "n2"}, t0); !slices.Equal(added, []NodeID{"n2", "n3"}) {
		t.Fatalf("added = %v", added)
	}
	if added := g.SetNeighbors([]string{"n3", "n4"}, t0); !slices.Equal(added, []NodeID{"n4"}) {
		t.Fatalf("added = %v", added)
	}
	if got := g.members.All(); !slices.Equal(got, []NodeID{"n3", "n4"}) {
		t.Fatalf("members = %v", got)
	}
}

func TestSuspicion(t *testing.T) {
	g := New(Config{Base: 10 * time.Millisecond, Max: 10 * time.Millisecond, SuspectAfter: time.Second, Jitter: -1}, zaptest.NewLogger(t))
	tr := &fakeTransport{}
	g.SetNeighbors([]string{"n2"}, t0)
	_ = g.Spread(tr, 1, "", t0)

	_ = g.Tick(tr, t0.Add(500*time.Millisecond))
	if m := g.members.members["n2"]; m.Suspect {
		t.Fatalf("suspected too early")
	}
	_ = g.Tick(tr, t0.Add(2*time.Second))
	if m := g.members.members["n2"]; !m.Suspect {
		t.Fatalf("not suspected after SuspectAfter")
	}
	if !g.Ack("n2", tr.last("n2").id, t0.Add(3*time.Second)) {
		t.Fatalf("Ack rejected")
	}
	if m := g.members.members["n2"]; m.Suspect {
		t.Fatalf("still suspected after ack")
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	g := New(Config{Base: 100 * time.Millisecond, Max: time.Second, Seed: 42}, nil)
	for attempt := 1; attempt < 8; attempt++ {
		d := g.backoff.Next(attempt)
		base := min(100*time.Millisecond<<(attempt-1), time.Second)
		if d < base || d > base+base/4 {
			t.Fatalf("Next(%d) = %s, want within [%s, %s]", attempt, d, base, base+base/4)
		}
	}
}

func TestTransportFunc(t *testing.T) {
	var got []int
	tf := TransportFunc(func(dest NodeID, v int) (uint64, error) {
		got = append(got, v)
		return uint64(len(got)), nil
	})
	g := newTestGossiper(t)
	g.SetNeighbors([]string{"n2"}, t0)
	_ = g.Spread(tf, 5, "", t0)
	if !slices.Equal(got, []int{5}) {
		t.Fatalf("TransportFunc saw %v", got)
	}
}
