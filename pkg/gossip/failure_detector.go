package gossip

import (
	"math/rand"
	"time"
)

// Backoff computes how long to wait before re-sending an unacknowledged
// rumor: Base doubled per attempt, capped at Max, plus up to Jitter of the
// delay at random.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
	rand   *rand.Rand
}

func (b *Backoff) Next(attempt int) time.Duration {
	d := b.Base
	for i := 1; i < attempt && d < b.Max; i++ {
		d *= 2
	}
	if d > b.Max {
		d = b.Max
	}
	if b.Jitter > 0 && b.rand != nil {
		d += time.Duration(b.rand.Float64() * b.Jitter * float64(d))
	}
	return d
}

// FailureDetector tracks acknowledgements per peer. A peer with pending
// rumors that has not acknowledged anything for After is suspected. The
// outbox keeps retrying suspected peers; suspicion only drives logging.
type FailureDetector struct {
	After time.Duration
}

// Observe records an acknowledgement from m.
func (d FailureDetector) Observe(m *Member, t time.Time) {
	m.LastAck = t
	m.Suspect = false
}

// Check updates m's suspicion and reports whether it just became suspect.
func (d FailureDetector) Check(m *Member, now time.Time) bool {
	if d.After <= 0 || m.Unacked == 0 || m.Suspect {
		return false
	}
	since := m.LastAck
	if since.IsZero() {
		since = m.JoinedAt
	}
	if now.Sub(since) < d.After {
		return false
	}
	m.Suspect = true
	return true
}
