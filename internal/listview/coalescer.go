// internal/listview/coalescer.go
//
// Debounced, cancellable search runs.
//
// Context
//   The live-search box fires a request on every keystroke.  Coalescer
//   groups calls by key (signed-in user + list) and lets only the last call
//   of a burst reach the database:
//
//     1. Each call takes a fresh generation number and cancels the context
//        of the previous call for the same key, waiting or in flight.
//     2. It then waits for the quiet interval.  A newer call arriving in
//        the meantime supersedes it.
//     3. After the wait it runs the query.  If a newer call started while
//        the query was in flight, the result is discarded.
//
//   Superseded callers get ErrSuperseded, so an older, slower response can
//   never overwrite a newer one.
//
//------------------------------------------------------------------------------

package listview

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSuperseded is returned to a caller replaced by a newer call.
var ErrSuperseded = errors.New("listview: superseded by a newer search")

// DefaultDelay is the quiet interval before a search runs.
const DefaultDelay = 300 * time.Millisecond

type slot struct {
	gen    uint64
	cancel context.CancelFunc
}

// Coalescer debounces calls per key.  The zero value is not usable; call
// NewCoalescer.
type Coalescer[T any] struct {
	delay time.Duration

	mu    sync.Mutex
	seq   uint64
	slots map[string]slot
}

// NewCoalescer returns a Coalescer with the given quiet interval.  A
// non-positive delay uses DefaultDelay.
func NewCoalescer[T any](delay time.Duration) *Coalescer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Coalescer[T]{delay: delay, slots: make(map[string]slot)}
}

// Delay reports the quiet interval.
func (c *Coalescer[T]) Delay() time.Duration { return c.delay }

// Do waits for the quiet interval and runs fn unless a newer call for key
// arrives first.  fn's context is cancelled when the caller's is or when a
// newer call starts.
func (c *Coalescer[T]) Do(ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	gen := c.enter(key, cancel)
	defer c.leave(key, gen)

	t := time.NewTimer(c.delay)
	defer t.Stop()
	select {
	case <-runCtx.Done():
		if !c.current(key, gen) {
			return zero, ErrSuperseded
		}
		return zero, ctx.Err()
	case <-t.C:
	}

	res, err := fn(runCtx)
	if !c.current(key, gen) {
		return zero, ErrSuperseded
	}
	return res, err
}

func (c *Coalescer[T]) enter(key string, cancel context.CancelFunc) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.slots[key]; ok {
		prev.cancel()
	}
	c.seq++
	c.slots[key] = slot{gen: c.seq, cancel: cancel}
	return c.seq
}

func (c *Coalescer[T]) current(key string, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slots[key].gen == gen
}

func (c *Coalescer[T]) leave(key string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.slots[key].gen == gen {
		delete(c.slots, key)
	}
}
