package magic

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pool holds independent handles so detections can run in parallel. Each
// handle still serializes its own calls.
type Pool struct {
	handles chan *Magic
	all     []*Magic

	closeOnce sync.Once
}

// NewPool opens size handles from cfg, loading the configured database
// into each. If any handle fails to open, the others are closed.
func NewPool(size int, cfg Config) (*Pool, error) {
	if size < 1 {
		return nil, argumentError("pool size must be positive, got %d", size)
	}
	cfg.AutoLoad = true

	all := make([]*Magic, size)
	var g errgroup.Group
	for i := range all {
		g.Go(func() error {
			m, err := Open(cfg)
			if err != nil {
				return err
			}
			all[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, m := range all {
			m.Close()
		}
		return nil, err
	}

	p := &Pool{handles: make(chan *Magic, size), all: all}
	for _, m := range all {
		p.handles <- m
	}
	return p, nil
}

// Size returns the number of handles in the pool.
func (p *Pool) Size() int { return len(p.all) }

// Do borrows a handle for the duration of fn. Waiting for a free handle
// honours ctx; fn itself is not interrupted.
func (p *Pool) Do(ctx context.Context, fn func(m *Magic) error) error {
	var m *Magic
	select {
	case m = <-p.handles:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { p.handles <- m }()
	return fn(m)
}

// File classifies target on a free handle.
func (p *Pool) File(ctx context.Context, target any) (string, error) {
	var out string
	err := p.Do(ctx, func(m *Magic) error {
		var err error
		out, err = m.File(target)
		return err
	})
	return out, err
}

// Buffer classifies b on a free handle.
func (p *Pool) Buffer(ctx context.Context, b []byte) (string, error) {
	var out string
	err := p.Do(ctx, func(m *Magic) error {
		var err error
		out, err = m.Buffer(b)
		return err
	})
	return out, err
}

// Close closes every handle. Calls already running finish first; later
// calls fail with ErrClosed.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		var g errgroup.Group
		for _, m := range p.all {
			g.Go(func() error {
				m.Close()
				return nil
			})
		}
		_ = g.Wait()
	})
	return nil
}
