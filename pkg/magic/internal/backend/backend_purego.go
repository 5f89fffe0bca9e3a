//go:build !cgo && (linux || darwin || freebsd)

package backend

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Function table resolved from the shared library. C int maps to int32.
var (
	magicOpen        func(flags int32) uintptr
	magicClose       func(m uintptr)
	magicError       func(m uintptr) string
	magicErrno       func(m uintptr) int32
	magicGetflags    func(m uintptr) int32
	magicSetflags    func(m uintptr, flags int32) int32
	magicGetparam    func(m uintptr, param int32, value *uintptr) int32
	magicSetparam    func(m uintptr, param int32, value *uintptr) int32
	magicLoad        func(m uintptr, path *byte) int32
	magicLoadBuffers func(m uintptr, buffers *unsafe.Pointer, sizes *uintptr, n uintptr) int32
	magicGetpath     func(path *byte, action int32) string
	magicFile        func(m uintptr, path *byte) uintptr
	magicBuffer      func(m uintptr, buf unsafe.Pointer, n uintptr) uintptr
	magicDescriptor  func(m uintptr, fd int32) uintptr
	magicCheck       func(m uintptr, path *byte) int32
	magicCompile     func(m uintptr, path *byte) int32
	magicVersion     func() int32
	libOnce          sync.Once
	libErr           error
	libHandle        uintptr
)

type cookie struct {
	m uintptr
	// pinned keeps buffers handed to magic_load_buffers in place until
	// the cookie is closed.
	pinned  runtime.Pinner
	buffers [][]byte
}

var cookies = newRegistry[*cookie]()

func loadLibrary() error {
	libOnce.Do(func() {
		for _, name := range libraryCandidates(runtime.GOOS) {
			h, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
			if err == nil && h != 0 {
				libHandle = h
				break
			}
		}
		if libHandle == 0 {
			libErr = fmt.Errorf("%w (tried %v)", ErrLibraryNotFound, libraryCandidates(runtime.GOOS))
			return
		}

		purego.RegisterLibFunc(&magicOpen, libHandle, "magic_open")
		purego.RegisterLibFunc(&magicClose, libHandle, "magic_close")
		purego.RegisterLibFunc(&magicError, libHandle, "magic_error")
		purego.RegisterLibFunc(&magicErrno, libHandle, "magic_errno")
		purego.RegisterLibFunc(&magicGetflags, libHandle, "magic_getflags")
		purego.RegisterLibFunc(&magicSetflags, libHandle, "magic_setflags")
		purego.RegisterLibFunc(&magicGetparam, libHandle, "magic_getparam")
		purego.RegisterLibFunc(&magicSetparam, libHandle, "magic_setparam")
		purego.RegisterLibFunc(&magicLoad, libHandle, "magic_load")
		purego.RegisterLibFunc(&magicLoadBuffers, libHandle, "magic_load_buffers")
		purego.RegisterLibFunc(&magicGetpath, libHandle, "magic_getpath")
		purego.RegisterLibFunc(&magicFile, libHandle, "magic_file")
		purego.RegisterLibFunc(&magicBuffer, libHandle, "magic_buffer")
		purego.RegisterLibFunc(&magicDescriptor, libHandle, "magic_descriptor")
		purego.RegisterLibFunc(&magicCheck, libHandle, "magic_check")
		purego.RegisterLibFunc(&magicCompile, libHandle, "magic_compile")
		purego.RegisterLibFunc(&magicVersion, libHandle, "magic_version")
	})
	return libErr
}

// cstring returns a NUL-terminated copy of s, or nil for "".
func cstring(s string) *byte {
	if s == "" {
		return nil
	}
	b := make([]byte, len(s)+1)
	copy(b, s)
	return &b[0]
}

// gostring copies a NUL-terminated C string owned by libmagic.
func gostring(p uintptr) string {
	if p == 0 {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 { //nolint:govet // pointer owned by libmagic
		n++
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(p)), n)) //nolint:govet // pointer owned by libmagic
}

func lookup(h uintptr) uintptr {
	c, ok := cookies.get(h)
	if !ok {
		return 0
	}
	return c.m
}

// Available reports whether the shared library could be loaded.
func Available() error { return loadLibrary() }

func Open(flags int) (uintptr, error) {
	if err := loadLibrary(); err != nil {
		return 0, err
	}
	m := magicOpen(int32(flags))
	if m == 0 {
		return 0, ErrOpen
	}
	return cookies.put(&cookie{m: m}), nil
}

func Close(h uintptr) {
	c, ok := cookies.del(h)
	if !ok {
		return
	}
	magicClose(c.m)
	c.pinned.Unpin()
	c.buffers = nil
}

func Error(h uintptr) string {
	m := lookup(h)
	if m == 0 {
		return ""
	}
	return magicError(m)
}

func Errno(h uintptr) int {
	m := lookup(h)
	if m == 0 {
		return 0
	}
	return int(magicErrno(m))
}

func GetFlags(h uintptr) int {
	m := lookup(h)
	if m == 0 {
		return -1
	}
	return int(magicGetflags(m))
}

func SetFlags(h uintptr, flags int) int {
	m := lookup(h)
	if m == 0 {
		return -1
	}
	return int(magicSetflags(m, int32(flags)))
}

func GetParam(h uintptr, tag int) (uint64, int) {
	m := lookup(h)
	if m == 0 {
		return 0, -1
	}
	var v uintptr
	rc := magicGetparam(m, int32(tag), &v)
	return uint64(v), int(rc)
}

func SetParam(h uintptr, tag int, value uint64) int {
	m := lookup(h)
	if m == 0 {
		return -1
	}
	v := uintptr(value)
	return int(magicSetparam(m, int32(tag), &v))
}

func Load(h uintptr, path string) int {
	m := lookup(h)
	if m == 0 {
		return -1
	}
	return int(magicLoad(m, cstring(path)))
}

// LoadBuffers copies and pins each buffer; libmagic keeps pointers into
// them until the cookie is closed.
func LoadBuffers(h uintptr, buffers [][]byte) int {
	c, ok := cookies.get(h)
	if !ok || len(buffers) == 0 {
		return -1
	}
	ptrs := make([]unsafe.Pointer, len(buffers))
	sizes := make([]uintptr, len(buffers))
	for i, b := range buffers {
		if len(b) == 0 {
			return -1
		}
		cp := make([]byte, len(b))
		copy(cp, b)
		c.pinned.Pin(&cp[0])
		c.buffers = append(c.buffers, cp)
		ptrs[i] = unsafe.Pointer(&cp[0])
		sizes[i] = uintptr(len(cp))
	}
	rc := magicLoadBuffers(c.m, &ptrs[0], &sizes[0], uintptr(len(buffers)))
	runtime.KeepAlive(ptrs)
	runtime.KeepAlive(sizes)
	return int(rc)
}

func GetPath() string {
	if err := loadLibrary(); err != nil {
		return ""
	}
	return magicGetpath(nil, 0)
}

func File(h uintptr, path string) (string, bool) {
	m := lookup(h)
	if m == 0 {
		return "", false
	}
	p := cstring(path)
	r := magicFile(m, p)
	runtime.KeepAlive(p)
	if r == 0 {
		return "", false
	}
	return gostring(r), true
}

func Buffer(h uintptr, b []byte) (string, bool) {
	m := lookup(h)
	if m == 0 {
		return "", false
	}
	var p unsafe.Pointer
	if len(b) > 0 {
		p = unsafe.Pointer(&b[0])
	}
	r := magicBuffer(m, p, uintptr(len(b)))
	runtime.KeepAlive(b)
	if r == 0 {
		return "", false
	}
	return gostring(r), true
}

func Descriptor(h uintptr, fd int) (string, bool) {
	m := lookup(h)
	if m == 0 {
		return "", false
	}
	r := magicDescriptor(m, int32(fd))
	if r == 0 {
		return "", false
	}
	return gostring(r), true
}

func Check(h uintptr, path string) int {
	m := lookup(h)
	if m == 0 {
		return -1
	}
	return int(magicCheck(m, cstring(path)))
}

func Compile(h uintptr, path string) int {
	m := lookup(h)
	if m == 0 {
		return -1
	}
	return int(magicCompile(m, cstring(path)))
}

func Version() int {
	if err := loadLibrary(); err != nil {
		return 0
	}
	return int(magicVersion())
}
