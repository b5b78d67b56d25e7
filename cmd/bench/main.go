package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ryandielhenn/glomers/internal/config"
	"github.com/ryandielhenn/glomers/internal/logging"
	"github.com/ryandielhenn/glomers/pkg/broadcast"
	"github.com/ryandielhenn/glomers/pkg/gossip"
	"github.com/ryandielhenn/glomers/pkg/node"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	nodes := flag.Int("nodes", 5, "cluster size")
	n := flag.Int("n", 2000, "broadcasts")
	conc := flag.Int("c", 8, "concurrent clients")
	drop := flag.Float64("drop", 0.1, "fraction of node-to-node messages lost")
	topo := flag.String("topology", cfg.Topology, "harness (line) or ring")
	fanout := flag.Int("fanout", cfg.Fanout, "ring successors per node")
	wait := flag.Duration("wait", 30*time.Second, "how long to wait for convergence")
	level := flag.String("log", "warn", "log level")
	flag.Parse()

	cfg.Topology, cfg.Fanout = *topo, *fanout
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, err := logging.New(*level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := newCluster(ctx, cfg, *nodes, *drop, log)

	start := time.Now()
	var next atomic.Int64
	wg := sync.WaitGroup{}
	for w := 0; w < *conc; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			client := c.client(fmt.Sprintf("c%d", w+1))
			for {
				v := int(next.Add(1)) - 1
				if v >= *n {
					return
				}
				dest := c.ids[rand.Intn(len(c.ids))]
				if _, err := client.call(dest, map[string]any{"type": "broadcast", "message": v}); err != nil {
					log.Fatal("broadcast", zap.Error(err))
				}
			}
		}(w)
	}
	wg.Wait()
	dur := time.Since(start)
	fmt.Printf("Completed %d broadcasts in %s (%.2f ops/s)\n", *n, dur, float64(*n)/dur.Seconds())

	reader := c.client("c0")
	deadline := time.Now().Add(*wait)
	for {
		done := true
		for _, id := range c.ids {
			body, err := reader.call(id, map[string]any{"type": "read"})
			if err != nil {
				log.Fatal("read", zap.Error(err))
			}
			if len(body.Messages) != *n {
				done = false
			}
		}
		if done {
			fmt.Printf("Converged on %d nodes after %s (%d node-to-node messages, %d dropped)\n",
				len(c.ids), time.Since(start), c.routed.Load(), c.dropped.Load())
			return
		}
		if time.Now().After(deadline) {
			fmt.Printf("Not converged after %s\n", *wait)
			os.Exit(1)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

type replyBody struct {
	Type      string `json:"type"`
	InReplyTo uint64 `json:"in_reply_to"`
	Messages  []int  `json:"messages"`
}

type wireEnv struct {
	Src  string          `json:"src"`
	Dest string          `json:"dest"`
	Body json.RawMessage `json:"body"`
}

type waiterKey struct {
	client string
	id     uint64
}

// cluster runs broadcast nodes in-process. Node output is parsed and routed
// to the destination node's mailbox, or to a waiting client.
type cluster struct {
	ids     []string
	boxes   map[string]*mailbox
	drop    float64
	log     *zap.Logger
	routed  atomic.Int64
	dropped atomic.Int64

	mu      sync.Mutex
	waiters map[waiterKey]chan replyBody
}

func newCluster(ctx context.Context, cfg config.Config, size int, drop float64, log *zap.Logger) *cluster {
	c := &cluster{
		boxes:   make(map[string]*mailbox),
		drop:    drop,
		log:     log,
		waiters: make(map[waiterKey]chan replyBody),
	}
	for i := 0; i < size; i++ {
		c.ids = append(c.ids, fmt.Sprintf("n%d", i))
	}

	overlay := broadcast.OverlayHarness
	if cfg.Topology == config.TopologyRing {
		overlay = broadcast.OverlayRing
	}
	for _, id := range c.ids {
		inR, inW := io.Pipe()
		outR, outW := io.Pipe()
		role := broadcast.New(broadcast.Options{
			Gossip:  true,
			Overlay: overlay,
			Fanout:  cfg.Fanout,
			Retry:   gossip.Config{Base: cfg.RetryBase, Max: cfg.RetryMax},
			Logger:  log.With(zap.String("node", id)),
		})
		nd := node.New(role, outW, node.Options{Logger: log, Tick: cfg.Tick})
		c.boxes[id] = newMailbox(inW)
		go func(id string) {
			if err := nd.Run(ctx, inR); err != nil && ctx.Err() == nil {
				log.Fatal("node failed", zap.String("node", id), zap.Error(err))
			}
		}(id)
		go c.route(outR)
	}

	admin := c.client("admin")
	topology := map[string][]string{}
	for i, id := range c.ids {
		if i > 0 {
			topology[id] = append(topology[id], c.ids[i-1])
		}
		if i < len(c.ids)-1 {
			topology[id] = append(topology[id], c.ids[i+1])
		}
	}
	for _, id := range c.ids {
		if _, err := admin.call(id, map[string]any{"type": "init", "node_id": id, "node_ids": c.ids}); err != nil {
			log.Fatal("init", zap.Error(err))
		}
		if _, err := admin.call(id, map[string]any{"type": "topology", "topology": topology}); err != nil {
			log.Fatal("topology", zap.Error(err))
		}
	}
	return c
}

func (c *cluster) route(out io.Reader) {
	dec := json.NewDecoder(out)
	for {
		var env wireEnv
		if err := dec.Decode(&env); err != nil {
			return
		}
		if box, ok := c.boxes[env.Dest]; ok {
			if rand.Float64() < c.drop {
				c.dropped.Add(1)
				continue
			}
			c.routed.Add(1)
			line, _ := json.Marshal(env)
			box.push(line)
			continue
		}
		var body replyBody
		if err := json.Unmarshal(env.Body, &body); err != nil {
			c.log.Warn("unparseable reply", zap.Error(err))
			continue
		}
		c.mu.Lock()
		ch, ok := c.waiters[waiterKey{env.Dest, body.InReplyTo}]
		delete(c.waiters, waiterKey{env.Dest, body.InReplyTo})
		c.mu.Unlock()
		if ok {
			ch <- body
		}
	}
}

type client struct {
	c    *cluster
	id   string
	next uint64
}

func (c *cluster) client(id string) *client { return &client{c: c, id: id} }

// call sends one request and blocks for its reply.
func (cl *client) call(dest string, body map[string]any) (replyBody, error) {
	cl.next++
	body["msg_id"] = cl.next
	raw, err := json.Marshal(body)
	if err != nil {
		return replyBody{}, err
	}
	line, err := json.Marshal(wireEnv{Src: cl.id, Dest: dest, Body: raw})
	if err != nil {
		return replyBody{}, err
	}

	ch := make(chan replyBody, 1)
	key := waiterKey{cl.id, cl.next}
	cl.c.mu.Lock()
	cl.c.waiters[key] = ch
	cl.c.mu.Unlock()

	cl.c.boxes[dest].push(line)
	select {
	case r := <-ch:
		if r.Type == "error" {
			return r, fmt.Errorf("%s answered with an error", dest)
		}
		return r, nil
	case <-time.After(5 * time.Second):
		cl.c.mu.Lock()
		delete(cl.c.waiters, key)
		cl.c.mu.Unlock()
		return replyBody{}, fmt.Errorf("%s: no reply to %v", dest, body["type"])
	}
}

// mailbox is an unbounded queue in front of a node's stdin, so routing never
// blocks on a node that is itself blocked writing.
type mailbox struct {
	mu    sync.Mutex
	cond  *sync.Cond
	queue [][]byte
}

func newMailbox(w io.Writer) *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	go func() {
		for {
			m.mu.Lock()
			for len(m.queue) == 0 {
				m.cond.Wait()
			}
			line := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			if _, err := w.Write(append(line, '\n')); err != nil {
				return
			}
		}
	}()
	return m
}

func (m *mailbox) push(line []byte) {
	m.mu.Lock()
	m.queue = append(m.queue, line)
	m.mu.Unlock()
	m.cond.Signal()
}
