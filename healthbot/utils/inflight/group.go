// Package inflight coordinates overlapping requests for the same logical resource.
package inflight

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrSuperseded is returned by Latest when a newer call for the same key started
// before this one finished. Its result was dropped.
var ErrSuperseded = errors.New("inflight: superseded by a newer call")

type call struct {
	id     uint64
	cancel context.CancelFunc
}

// Group is safe for concurrent use. The zero value is ready.
type Group struct {
	mu     sync.Mutex
	seq    uint64
	latest map[string]*call
	sf     singleflight.Group
}

func (g *Group) begin(ctx context.Context, key string) (context.Context, *call) {
	cctx, cancel := context.WithCancel(ctx)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.latest == nil {
		g.latest = map[string]*call{}
	}
	if prev := g.latest[key]; prev != nil {
		prev.cancel()
	}
	g.seq++
	c := &call{id: g.seq, cancel: cancel}
	g.latest[key] = c
	return cctx, c
}

// Latest runs fn and hands its result to apply, unless another Latest call for
// key started in the meantime. Starting a call cancels the context of the one
// it supersedes. apply runs with the group locked and must not call back into g.
func Latest[T any](g *Group, ctx context.Context, key string, fn func(context.Context) (T, error), apply func(T)) error {
	cctx, c := g.begin(ctx, key)
	defer c.cancel()

	v, err := fn(cctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.latest[key] != c {
		return ErrSuperseded
	}
	delete(g.latest, key)
	if err != nil {
		return err
	}
	if apply != nil {
		apply(v)
	}
	return nil
}

// Exclusive runs fn once for all concurrent callers with the same key; late
// arrivals wait for the running call and share its error.
func (g *Group) Exclusive(key string, fn func() error) error {
	_, err, _ := g.sf.Do(key, func() (any, error) {
		return nil, fn()
	})
	return err
}

// Cancel aborts the pending Latest call for key, if any.
func (g *Group) Cancel(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c := g.latest[key]; c != nil {
		c.cancel()
		delete(g.latest, key)
	}
}
