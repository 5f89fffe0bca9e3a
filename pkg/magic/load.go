package magic

import (
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/hsiuhsiu/magic-go/pkg/magic/logging"
)

// PathListSeparator joins database paths in a LoadTarget and splits the
// engine's default path. It matches the native library's separator.
const PathListSeparator = string(os.PathListSeparator)

// LoadTarget selects the database for Load, Check and Compile.
type LoadTarget struct {
	paths []string
	list  bool
}

// DefaultDatabase selects the engine's compiled-in default database,
// honouring the MAGIC environment variable.
func DefaultDatabase() LoadTarget { return LoadTarget{} }

// DatabasePath selects a single database file.
func DatabasePath(path string) LoadTarget { return LoadTarget{paths: []string{path}} }

// DatabasePaths selects an ordered list of database files. The list must
// not be empty.
func DatabasePaths(paths ...string) LoadTarget {
	return LoadTarget{paths: slices.Clone(paths), list: true}
}

// IsDefault reports whether t selects the default database.
func (t LoadTarget) IsDefault() bool { return !t.list && len(t.paths) == 0 }

// Paths returns the selected files, or nil for the default database.
func (t LoadTarget) Paths() []string { return slices.Clone(t.paths) }

func (t LoadTarget) String() string {
	if t.IsDefault() {
		return "default"
	}
	return strings.Join(t.paths, PathListSeparator)
}

// joined validates t and returns the argument for the native loader; ""
// means the default database.
func (t LoadTarget) joined() (string, error) {
	if t.IsDefault() {
		return "", nil
	}
	if len(t.paths) == 0 {
		return "", argumentError("%s (expected list of database paths)", msgListEmpty)
	}
	for i, p := range t.paths {
		if p == "" {
			return "", argumentError("empty database path at index %d", i)
		}
		if strings.Contains(p, PathListSeparator) {
			return "", argumentError("database path %q at index %d contains %q", p, i, PathListSeparator)
		}
		if strings.IndexByte(p, 0) >= 0 {
			return "", argumentError("database path at index %d contains a NUL byte", i)
		}
	}
	return strings.Join(t.paths, PathListSeparator), nil
}

// DatabaseInfo describes the database of the last successful load.
type DatabaseInfo struct {
	// Paths are the files passed to Load; nil for the default database or
	// a buffer load.
	Paths []string
	// Buffers describe the buffers passed to LoadBuffers.
	Buffers []BufferInfo
	// Default is set when the engine's default database was loaded.
	Default bool
}

// BufferInfo identifies an in-memory database without retaining it.
type BufferInfo struct {
	Size   int
	Digest uint64 // xxhash64
}

// Load loads the database selected by target. A failed load leaves the
// handle unloaded.
func (m *Magic) Load(target LoadTarget) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	joined, err := target.joined()
	if err != nil {
		return err
	}
	err = m.withLock(requireOpen, func(e Engine, c Cookie) error {
		if e.Load(c, joined) < 0 {
			m.loaded.Store(false)
			m.db = DatabaseInfo{}
			return nativeError(e, c)
		}
		m.db = DatabaseInfo{Paths: target.Paths(), Default: target.IsDefault()}
		m.loaded.Store(true)
		return nil
	})
	if err != nil {
		m.debug("load failed", "database", target.String(), "error", err)
		return err
	}
	m.debug("database loaded", "database", target.String())
	return nil
}

// LoadBuffers loads a database from compiled in-memory buffers. The engine
// keeps its own copy of each buffer until the handle is closed.
func (m *Magic) LoadBuffers(buffers ...[]byte) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if len(buffers) == 0 {
		return argumentError("%s (expected list of buffers)", msgListEmpty)
	}
	infos := make([]BufferInfo, len(buffers))
	for i, b := range buffers {
		if len(b) == 0 {
			return argumentError("empty buffer at index %d", i)
		}
		infos[i] = BufferInfo{Size: len(b), Digest: xxhash.Sum64(b)}
	}
	err := m.withLock(requireOpen, func(e Engine, c Cookie) error {
		if e.LoadBuffers(c, buffers) < 0 {
			m.loaded.Store(false)
			m.db = DatabaseInfo{}
			return nativeError(e, c)
		}
		m.db = DatabaseInfo{Buffers: infos}
		m.loaded.Store(true)
		return nil
	})
	if err != nil {
		return err
	}
	args := []any{"count", len(buffers)}
	for i, b := range buffers {
		args = append(args, logging.Buffer("buffer"+strconv.Itoa(i), b))
	}
	m.debug("database loaded from buffers", args...)
	return nil
}

// Paths returns the database files in effect: the ones passed to the last
// successful Load, or the engine's default path list when none were given
// or the MAGIC environment variable overrides them.
func (m *Magic) Paths() ([]string, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	var out []string
	err := m.withLock(requireOpen, func(e Engine, _ Cookie) error {
		if len(m.db.Paths) > 0 && os.Getenv("MAGIC") == "" {
			out = slices.Clone(m.db.Paths)
			return nil
		}
		out = splitPathList(e.Path())
		return nil
	})
	return out, err
}

// Database describes the database of the last successful load.
func (m *Magic) Database() (DatabaseInfo, error) {
	if err := m.checkOpen(); err != nil {
		return DatabaseInfo{}, err
	}
	var out DatabaseInfo
	err := m.withLock(requireOpen, func(Engine, Cookie) error {
		out = DatabaseInfo{
			Paths:   slices.Clone(m.db.Paths),
			Buffers: slices.Clone(m.db.Buffers),
			Default: m.db.Default,
		}
		return nil
	})
	return out, err
}

func splitPathList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, PathListSeparator) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
