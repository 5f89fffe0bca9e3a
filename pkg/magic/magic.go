package magic

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hsiuhsiu/magic-go/pkg/magic/logging"
)

// Magic is a handle to one native engine instance. All methods are safe
// for concurrent use; calls on the same handle are serialized, calls on
// distinct handles run in parallel.
type Magic struct {
	mu     sync.Mutex
	engine Engine
	cookie Cookie
	db     DatabaseInfo // guarded by mu

	open         atomic.Bool
	loaded       atomic.Bool
	stopOnErrors atomic.Bool

	version        int
	logger         logging.Logger
	repeatWarnings bool

	warnMu sync.Mutex
	warned map[string]struct{}
}

// Open allocates a handle configured by cfg. On any failure the native
// cookie is released before the error is returned.
func Open(cfg Config) (*Magic, error) {
	e := cfg.Engine
	if e == nil {
		e = DefaultEngine()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New(nil)
	}
	if err := validateFlags(cfg.Flags, e.Version()); err != nil {
		return nil, err
	}

	m, err := newHandle(e, cfg.Flags, logger)
	if err != nil {
		logger.Debug(context.Background(), "magic: open failed", "error", err)
		return nil, err
	}
	m.stopOnErrors.Store(!cfg.ContinueOnErrors)
	m.repeatWarnings = cfg.RepeatWarnings

	if len(cfg.Parameters) > 0 {
		if err := m.applyParameters(cfg.Parameters); err != nil {
			m.Close()
			return nil, err
		}
	}
	if cfg.AutoLoad {
		target := DefaultDatabase()
		if len(cfg.Database) > 0 {
			target = DatabasePaths(cfg.Database...)
		}
		if err := m.Load(target); err != nil {
			m.Close()
			return nil, err
		}
	}
	m.debug("handle opened", "flags", cfg.Flags.String(), "version", FormatVersion(m.version))
	return m, nil
}

// New opens a handle with the given flags and default settings. The handle
// stops on errors and has no database loaded.
func New(flags Flags) (*Magic, error) {
	return Open(Config{Flags: flags})
}

// IsOpen reports whether the handle still owns a native cookie.
func (m *Magic) IsOpen() bool { return m != nil && m.open.Load() }

// IsLoaded reports whether a database load has succeeded since the handle
// was opened.
func (m *Magic) IsLoaded() bool { return m != nil && m.loaded.Load() }

// StopOnErrors reports whether native warnings are returned as errors.
func (m *Magic) StopOnErrors() bool { return m != nil && m.stopOnErrors.Load() }

// SetStopOnErrors changes the warning policy for later calls. It is a
// no-op on a nil handle.
func (m *Magic) SetStopOnErrors(stop bool) {
	if m != nil {
		m.stopOnErrors.Store(stop)
	}
}

// Version returns the engine version this handle was opened against, in
// libmagic's encoding (545 for 5.45). A nil handle reports 0.
func (m *Magic) Version() int {
	if m == nil {
		return 0
	}
	return m.version
}

func (m *Magic) log() logging.Logger {
	if m.logger == nil {
		return logging.Discard()
	}
	return m.logger
}

func (m *Magic) debug(msg string, args ...any) {
	m.log().Debug(context.Background(), "magic: "+msg, args...)
}

// warn logs a tolerated native diagnostic. Unless repeatWarnings is set a
// given message is logged once per handle.
func (m *Magic) warn(op, diag string) {
	if !m.repeatWarnings {
		m.warnMu.Lock()
		_, seen := m.warned[diag]
		if !seen {
			m.warned[diag] = struct{}{}
		}
		m.warnMu.Unlock()
		if seen {
			return
		}
	}
	m.log().Warn(context.Background(), "magic: "+diag, "op", op)
}
