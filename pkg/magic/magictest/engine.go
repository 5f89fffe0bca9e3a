package magictest

import (
	"math"
	"os"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/hsiuhsiu/magic-go/pkg/magic"
)

// DefaultVersion is the libmagic version reported when Engine.LibVersion is
// zero.
const DefaultVersion = 545

var paramLimits = [...]struct {
	def, max uint64
}{
	magic.ParamIndirMax:     {50, math.MaxUint16},
	magic.ParamNameMax:      {50, math.MaxUint16},
	magic.ParamElfPhnumMax:  {2048, math.MaxUint16},
	magic.ParamElfShnumMax:  {32768, math.MaxUint16},
	magic.ParamElfNotesMax:  {256, math.MaxUint16},
	magic.ParamRegexMax:     {8192, math.MaxUint16},
	magic.ParamBytesMax:     {7 << 20, math.MaxUint32},
	magic.ParamEncodingMax:  {64 << 10, math.MaxUint32},
	magic.ParamElfShsizeMax: {128 << 20, math.MaxUint32},
	magic.ParamMagwarnMax:   {100, math.MaxUint16},
}

// Engine is an instrumented fake of the native library. Configure the
// exported fields before the first Open; they are not synchronized.
type Engine struct {
	// DefaultPath is the database list used by Load("") and reported by
	// Path. The MAGIC environment variable overrides it, as in libmagic.
	DefaultPath string
	// LibVersion is reported by Version; zero means DefaultVersion.
	LibVersion int
	// NoUtime makes PreserveAtime unsupported, like a build without
	// utime/utimes.
	NoUtime bool
	// FailOpen makes Open return a nil cookie.
	FailOpen bool
	// RejectFlags are flag bits SetFlags refuses with EINVAL.
	RejectFlags magic.Flags
	// RejectParams are tags Param refuses with EINVAL, like an older
	// library that predates them.
	RejectParams []magic.Param
	// Delay is slept inside every call that takes a cookie.
	Delay time.Duration

	mu        sync.Mutex
	next      magic.Cookie
	cookies   map[magic.Cookie]*cookie
	calls     map[string]int
	active    int
	maxActive int
	maxCookie int
}

// cookie is one fake engine instance. Its fields are only touched by the
// call that currently owns it.
type cookie struct {
	flags  magic.Flags
	params [len(paramLimits)]uint64
	sigs   []Signature

	errMsg string
	errno  int

	active int // guarded by Engine.mu
}

// New returns an Engine with no default database.
func New() *Engine {
	return &Engine{
		cookies: make(map[magic.Cookie]*cookie),
		calls:   make(map[string]int),
	}
}

// enter records a call and returns the cookie it targets, or nil when c
// is unknown. The returned func must be called when the call returns.
func (e *Engine) enter(name string, c magic.Cookie) (*cookie, func()) {
	e.mu.Lock()
	if e.calls == nil {
		e.calls = make(map[string]int)
	}
	e.calls[name]++
	ck := e.cookies[c]
	if ck == nil {
		e.mu.Unlock()
		return nil, func() {}
	}
	e.active++
	e.maxActive = max(e.maxActive, e.active)
	ck.active++
	e.maxCookie = max(e.maxCookie, ck.active)
	delay := e.Delay
	e.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return ck, func() {
		e.mu.Lock()
		e.active--
		ck.active--
		e.mu.Unlock()
	}
}

func (e *Engine) count(name string) {
	e.mu.Lock()
	if e.calls == nil {
		e.calls = make(map[string]int)
	}
	e.calls[name]++
	e.mu.Unlock()
}

// Calls returns how many times the named method ("File", "Load", ...) was
// called.
func (e *Engine) Calls(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[name]
}

// TotalCalls returns the number of calls to every method.
func (e *Engine) TotalCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, v := range e.calls {
		n += v
	}
	return n
}

// MaxConcurrent returns the highest number of cookie calls observed in
// flight at once across all cookies.
func (e *Engine) MaxConcurrent() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxActive
}

// MaxConcurrentPerCookie returns the highest number of calls observed in
// flight at once on a single cookie. Anything above 1 is a bug in the
// caller.
func (e *Engine) MaxConcurrentPerCookie() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxCookie
}

// Cookies returns the number of open cookies.
func (e *Engine) Cookies() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cookies)
}

// ResetCounters clears the call and concurrency counters.
func (e *Engine) ResetCounters() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = make(map[string]int)
	e.maxActive = e.active
	e.maxCookie = 0
}

func (e *Engine) Open(flags int) (magic.Cookie, error) {
	e.count("Open")
	if e.FailOpen {
		return 0, nil
	}
	if e.NoUtime && magic.Flags(flags)&magic.PreserveAtime != 0 {
		return 0, syscall.EINVAL
	}
	ck := &cookie{flags: magic.Flags(flags)}
	for i, l := range paramLimits {
		ck.params[i] = l.def
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cookies == nil {
		e.cookies = make(map[magic.Cookie]*cookie)
	}
	e.next++
	e.cookies[e.next] = ck
	return e.next, nil
}

func (e *Engine) Close(c magic.Cookie) {
	_, done := e.enter("Close", c)
	defer done()
	e.mu.Lock()
	delete(e.cookies, c)
	e.mu.Unlock()
}

func (e *Engine) Error(c magic.Cookie) string {
	ck, done := e.enter("Error", c)
	defer done()
	if ck == nil {
		return ""
	}
	return ck.errMsg
}

func (e *Engine) Errno(c magic.Cookie) int {
	ck, done := e.enter("Errno", c)
	defer done()
	if ck == nil {
		return 0
	}
	return ck.errno
}

func (e *Engine) Flags(c magic.Cookie) int {
	ck, done := e.enter("Flags", c)
	defer done()
	if ck == nil {
		return -1
	}
	return int(ck.flags)
}

func (e *Engine) SetFlags(c magic.Cookie, flags int) int {
	ck, done := e.enter("SetFlags", c)
	defer done()
	if ck == nil {
		return -1
	}
	ck.clear()
	if magic.Flags(flags)&e.RejectFlags != 0 {
		return ck.fail("", int(syscall.EINVAL))
	}
	if e.NoUtime && magic.Flags(flags)&magic.PreserveAtime != 0 {
		return ck.fail("", int(syscall.ENOSYS))
	}
	ck.flags = magic.Flags(flags)
	return 0
}

func (e *Engine) Param(c magic.Cookie, tag int) (uint64, int) {
	ck, done := e.enter("Param", c)
	defer done()
	if ck == nil {
		return 0, -1
	}
	if tag < 0 || tag >= len(paramLimits) || slices.Contains(e.RejectParams, magic.Param(tag)) {
		ck.fail("", int(syscall.EINVAL))
		return 0, -1
	}
	return ck.params[tag], 0
}

func (e *Engine) SetParam(c magic.Cookie, tag int, value uint64) int {
	ck, done := e.enter("SetParam", c)
	defer done()
	if ck == nil {
		return -1
	}
	if tag < 0 || tag >= len(paramLimits) {
		return ck.fail("", int(syscall.EINVAL))
	}
	if value > paramLimits[tag].max {
		return ck.fail("", int(syscall.EOVERFLOW))
	}
	ck.params[tag] = value
	return 0
}

func (e *Engine) Path() string {
	e.count("Path")
	return e.defaultPath()
}

func (e *Engine) defaultPath() string {
	if p := os.Getenv("MAGIC"); p != "" {
		return p
	}
	return e.DefaultPath
}

func (e *Engine) Version() int {
	e.count("Version")
	if e.LibVersion != 0 {
		return e.LibVersion
	}
	return DefaultVersion
}

func (ck *cookie) clear() {
	ck.errMsg = ""
	ck.errno = 0
}

// fail records a diagnostic and returns the native failure status.
func (ck *cookie) fail(msg string, errno int) int {
	ck.errMsg = msg
	ck.errno = errno
	return -1
}

var _ magic.Engine = (*Engine)(nil)
