package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ryandielhenn/glomers/pkg/proto"
)

// Run reads input until EOF and handles one line at a time. A reader
// goroutine only splits lines; decoding, state changes and timer work all
// happen on the calling goroutine, so roles need no locking. Run returns nil
// on EOF and the fatal error otherwise.
func (n *Node) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		r := proto.NewLineReader(in)
		for {
			line, err := r.Next()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	var tick <-chan time.Time
	ticker, hasTicker := n.role.(Ticker)
	if hasTicker && n.tick > 0 {
		t := time.NewTicker(n.tick)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if errors.Is(err, io.EOF) {
						return nil
					}
					return fmt.Errorf("read input: %w", err)
				default:
					return ctx.Err()
				}
			}
			if err := n.HandleLine(line); err != nil {
				return err
			}
		case now := <-tick:
			if err := ticker.Tick(n, now); err != nil {
				return fmt.Errorf("%s: tick: %w", n.role.Name(), err)
			}
		}
	}
}
