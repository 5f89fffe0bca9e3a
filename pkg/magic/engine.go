package magic

import "github.com/hsiuhsiu/magic-go/pkg/magic/internal/backend"

// Cookie is an opaque reference to one native engine instance. It means
// nothing outside the Engine that issued it; the zero Cookie is invalid.
type Cookie uintptr

// Engine is the native classification library as seen by a Handle. Methods
// that take a Cookie are not safe for concurrent use on the same cookie;
// the Handle serializes them.
//
// Status-returning methods follow the native convention: 0 on success, -1
// on failure, with the diagnostic available through Error and Errno until
// the next call on the same cookie. Classification methods report a hard
// failure with ok == false. A non-empty Error after a successful
// classification is a warning.
type Engine interface {
	Open(flags int) (Cookie, error)
	Close(c Cookie)

	Error(c Cookie) string
	Errno(c Cookie) int

	Flags(c Cookie) int
	SetFlags(c Cookie, flags int) int

	Param(c Cookie, tag int) (value uint64, status int)
	SetParam(c Cookie, tag int, value uint64) int

	// Load loads a PathListSeparator-joined list of database files; ""
	// selects the compiled-in default.
	Load(c Cookie, paths string) int
	LoadBuffers(c Cookie, buffers [][]byte) int
	// Path reports the engine's default database path list.
	Path() string

	File(c Cookie, path string) (result string, ok bool)
	Buffer(c Cookie, b []byte) (result string, ok bool)
	Descriptor(c Cookie, fd int) (result string, ok bool)

	Check(c Cookie, paths string) int
	Compile(c Cookie, paths string) int

	// Version reports the engine version in libmagic's encoding, e.g.
	// 545 for 5.45.
	Version() int
}

// DefaultEngine returns the Engine backed by the system libmagic. In
// builds without a native binding every Open fails with ErrNotBuilt.
func DefaultEngine() Engine { return libmagic{} }

// libmagic adapts the backend functions to Engine.
type libmagic struct{}

func (libmagic) Open(flags int) (Cookie, error) {
	h, err := backend.Open(flags)
	return Cookie(h), err
}

func (libmagic) Close(c Cookie)                   { backend.Close(uintptr(c)) }
func (libmagic) Error(c Cookie) string            { return backend.Error(uintptr(c)) }
func (libmagic) Errno(c Cookie) int               { return backend.Errno(uintptr(c)) }
func (libmagic) Flags(c Cookie) int               { return backend.GetFlags(uintptr(c)) }
func (libmagic) SetFlags(c Cookie, flags int) int { return backend.SetFlags(uintptr(c), flags) }

func (libmagic) Param(c Cookie, tag int) (uint64, int) {
	return backend.GetParam(uintptr(c), tag)
}

func (libmagic) SetParam(c Cookie, tag int, value uint64) int {
	return backend.SetParam(uintptr(c), tag, value)
}

func (libmagic) Load(c Cookie, paths string) int { return backend.Load(uintptr(c), paths) }

func (libmagic) LoadBuffers(c Cookie, buffers [][]byte) int {
	return backend.LoadBuffers(uintptr(c), buffers)
}

func (libmagic) Path() string { return backend.GetPath() }

func (libmagic) File(c Cookie, path string) (string, bool) {
	return backend.File(uintptr(c), path)
}

func (libmagic) Buffer(c Cookie, b []byte) (string, bool) {
	return backend.Buffer(uintptr(c), b)
}

func (libmagic) Descriptor(c Cookie, fd int) (string, bool) {
	return backend.Descriptor(uintptr(c), fd)
}

func (libmagic) Check(c Cookie, paths string) int   { return backend.Check(uintptr(c), paths) }
func (libmagic) Compile(c Cookie, paths string) int { return backend.Compile(uintptr(c), paths) }
func (libmagic) Version() int                       { return backend.Version() }
