package backend

import (
	"errors"
	"os"
	"sync"
)

var (
	// ErrNotBuilt reports that no native binding was compiled into the
	// current binary.
	ErrNotBuilt = errors.New("magic/internal/backend: native bindings not built")

	// ErrLibraryNotFound reports that the shared library could not be
	// located at runtime.
	ErrLibraryNotFound = errors.New("magic/internal/backend: libmagic shared library not found")

	// ErrOpen is returned when magic_open yields a NULL cookie without
	// setting errno.
	ErrOpen = errors.New("magic/internal/backend: magic_open returned NULL")
)

// LibraryEnv names the environment variable that overrides the shared
// library location for the runtime-loaded binding.
const LibraryEnv = "GOMAGIC_LIBRARY"

// registry maps opaque keys to per-cookie native state. T is the binding's
// own cookie type so the C pointer is never exposed as an integer.
type registry[T any] struct {
	mu   sync.Mutex
	next uintptr
	m    map[uintptr]T
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{next: 1, m: map[uintptr]T{}}
}

func (r *registry[T]) put(v T) uintptr {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.next
	r.next++
	r.m[h] = v
	return h
}

func (r *registry[T]) get(h uintptr) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.m[h]
	return v, ok
}

func (r *registry[T]) del(h uintptr) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.m[h]
	delete(r.m, h)
	return v, ok
}

// libraryCandidates lists the names tried by the runtime loader, most
// specific first.
func libraryCandidates(goos string) []string {
	var names []string
	if p := os.Getenv(LibraryEnv); p != "" {
		names = append(names, p)
	}
	switch goos {
	case "darwin":
		names = append(names,
			"libmagic.1.dylib",
			"/opt/homebrew/lib/libmagic.1.dylib",
			"/usr/local/lib/libmagic.1.dylib",
			"/opt/local/lib/libmagic.1.dylib",
		)
	default:
		names = append(names, "libmagic.so.1", "libmagic.so")
	}
	return names
}
