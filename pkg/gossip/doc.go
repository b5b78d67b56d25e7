// Package gossip spreads broadcast values to neighboring nodes and keeps
// re-sending them until each neighbor acknowledges. It defines an abstract
// Transport so it can be driven by the node event loop in production and by
// an in-memory fake in tests.
//
// Typical usage from a role:
//
//	g := gossip.New(gossip.Config{Base: 200 * time.Millisecond, Max: 3 * time.Second}, log)
//	g.SetNeighbors([]string{"n2", "n3"}, now)
//	g.Spread(t, 42, "c1", now) // on a new value
//	g.Ack("n2", msgID, now)    // on broadcast_ok from n2
//	g.Tick(t, now)             // on every event-loop tick
//
// Nothing here is safe for concurrent use; the caller serializes access.
package gossip
