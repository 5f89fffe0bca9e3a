package magic

import (
	"runtime"

	"github.com/hsiuhsiu/magic-go/pkg/magic/internal/backend"
	"github.com/hsiuhsiu/magic-go/pkg/magic/logging"
)

// This file is the only code allowed to read Magic.engine or Magic.cookie.
// Every native call goes through withLock; internalcheck enforces the rule.

type requirement int

const (
	requireNone requirement = iota
	requireOpen
	requireLoaded
)

// newHandle allocates a cookie and wraps it. Nothing is retained when the
// allocation fails.
func newHandle(e Engine, flags Flags, logger logging.Logger) (*Magic, error) {
	c, err := e.Open(int(flags))
	if err == nil && c == 0 {
		err = backend.ErrOpen
	}
	if err != nil {
		return nil, remapError(err)
	}

	m := &Magic{
		engine:  e,
		cookie:  c,
		version: e.Version(),
		logger:  logger,
		warned:  map[string]struct{}{},
	}
	m.open.Store(true)
	runtime.SetFinalizer(m, func(m *Magic) { m.Close() })
	return m, nil
}

// Close releases the native cookie. It reports false when the handle was
// already closed. A Close racing with another call on the same handle
// waits for that call to finish.
func (m *Magic) Close() bool {
	if m == nil {
		return false
	}
	closed := false
	_ = m.withLock(requireNone, func(e Engine, c Cookie) error {
		if !m.open.Load() {
			return nil
		}
		runtime.SetFinalizer(m, nil)
		e.Close(c)
		m.cookie = 0
		m.db = DatabaseInfo{}
		m.loaded.Store(false)
		m.open.Store(false)
		closed = true
		return nil
	})
	if closed {
		m.debug("handle closed")
	}
	return closed
}

// withLock runs fn with exclusive access to the cookie. The lock is
// released on every exit path, including a panic in fn, before the result
// is visible to the caller. req is re-checked under the lock so a
// concurrent Close cannot slip in between the fast check and the call.
func (m *Magic) withLock(req requirement, fn func(e Engine, c Cookie) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(req); err != nil {
		return err
	}
	return fn(m.engine, m.cookie)
}

func (m *Magic) check(req requirement) error {
	switch req {
	case requireOpen:
		return m.checkOpen()
	case requireLoaded:
		return m.checkLoaded()
	default:
		return nil
	}
}

// checkOpen is the lock-free precondition for every operation except
// Open, IsOpen and IsLoaded.
func (m *Magic) checkOpen() error {
	if m == nil || !m.open.Load() {
		return closedError()
	}
	return nil
}

// checkLoaded is the precondition for detection.
func (m *Magic) checkLoaded() error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if !m.loaded.Load() {
		return notLoadedError()
	}
	return nil
}
