// Package ring places node ids on a consistent hash ring. The broadcast
// role uses it to build a gossip overlay from the init membership when it is
// told to ignore the harness topology.
package ring

import (
	"encoding/binary"
	"hash/fnv"
	"slices"
	"sort"
	"sync"
)

type Hasher func([]byte) uint32

type HashRing struct {
	mu       sync.RWMutex
	replicas int
	hash     Hasher
	points   []uint32          // sorted
	owners   map[uint32]string // point -> nodeID
	nodes    map[string]struct{}
}

func New(replicas int, h Hasher) *HashRing {
	if replicas <= 0 {
		replicas = 128
	}
	if h == nil {
		h = FNV32a
	}
	return &HashRing{
		replicas: replicas,
		hash:     h,
		owners:   make(map[uint32]string),
		nodes:    make(map[string]struct{}),
	}
}

func (r *HashRing) Add(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[nodeID]; ok {
		return
	}
	r.nodes[nodeID] = struct{}{}
	for i := 0; i < r.replicas; i++ {
		pt := r.hash(pointKey(nodeID, i))
		r.owners[pt] = nodeID
		r.points = append(r.points, pt)
	}
	slices.Sort(r.points)
}

// Clear removes every node.
func (r *HashRing) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = r.points[:0]
	clear(r.owners)
	clear(r.nodes)
}

func (r *HashRing) Has(nodeID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.nodes[nodeID]
	return ok
}

func (r *HashRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Successors returns up to n distinct nodes found clockwise from nodeID's
// first point, excluding nodeID itself. With one replica per node, following
// the first successor of every node visits the whole ring.
func (r *HashRing) Successors(nodeID string, n int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.nodes[nodeID]; !ok || n <= 0 {
		return nil
	}
	return r.walk(r.search(r.hash(pointKey(nodeID, 0))), n, nodeID)
}

// search returns the index of the first point >= h, wrapping to 0.
func (r *HashRing) search(h uint32) int {
	idx := sort.Search(len(r.points), func(i int) bool { return r.points[i] >= h })
	if idx == len(r.points) {
		idx = 0
	}
	return idx
}

func (r *HashRing) walk(idx, n int, skip string) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for i := 0; i < len(r.points) && len(out) < n; i++ {
		id := r.owners[r.points[(idx+i)%len(r.points)]]
		if id == skip {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func FNV32a(b []byte) uint32 {
	h := fnv.New32a()
	_, _ = h.Write(b)
	return h.Sum32()
}

func pointKey(nodeID string, i int) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(i))
	return append([]byte(nodeID), buf[:]...)
}
