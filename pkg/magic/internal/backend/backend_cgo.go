//go:build cgo && !windows

package backend

/*
#cgo LDFLAGS: -lmagic
#include <stdlib.h>
#include <string.h>
#include <magic.h>
*/
import "C"

import (
	"unsafe"
)

type cookie struct {
	m C.magic_t
	// buffers handed to magic_load_buffers must outlive the cookie.
	buffers []unsafe.Pointer
}

var cookies = newRegistry[*cookie]()

func lookup(h uintptr) C.magic_t {
	c, ok := cookies.get(h)
	if !ok {
		return nil
	}
	return c.m
}

// Available reports whether the binding can be used.
func Available() error { return nil }

// Open allocates a new cookie with the given flags.
func Open(flags int) (uintptr, error) {
	m, err := C.magic_open(C.int(flags))
	if m == nil {
		if err == nil {
			err = ErrOpen
		}
		return 0, err
	}
	return cookies.put(&cookie{m: m}), nil
}

// Close releases the cookie and every buffer loaded into it. Unknown keys
// are ignored.
func Close(h uintptr) {
	c, ok := cookies.del(h)
	if !ok {
		return
	}
	C.magic_close(c.m)
	for _, p := range c.buffers {
		C.free(p)
	}
}

// Error returns the pending diagnostic, or "" when there is none.
func Error(h uintptr) string {
	m := lookup(h)
	if m == nil {
		return ""
	}
	s := C.magic_error(m)
	if s == nil {
		return ""
	}
	return C.GoString(s)
}

// Errno returns the errno recorded with the last failure.
func Errno(h uintptr) int {
	m := lookup(h)
	if m == nil {
		return 0
	}
	return int(C.magic_errno(m))
}

func GetFlags(h uintptr) int {
	m := lookup(h)
	if m == nil {
		return -1
	}
	return int(C.magic_getflags(m))
}

func SetFlags(h uintptr, flags int) int {
	m := lookup(h)
	if m == nil {
		return -1
	}
	return int(C.magic_setflags(m, C.int(flags)))
}

func GetParam(h uintptr, tag int) (uint64, int) {
	m := lookup(h)
	if m == nil {
		return 0, -1
	}
	var v C.size_t
	rc := C.magic_getparam(m, C.int(tag), unsafe.Pointer(&v))
	return uint64(v), int(rc)
}

func SetParam(h uintptr, tag int, value uint64) int {
	m := lookup(h)
	if m == nil {
		return -1
	}
	v := C.size_t(value)
	return int(C.magic_setparam(m, C.int(tag), unsafe.Pointer(&v)))
}

// Load loads a separator-joined list of database files. An empty path
// selects the compiled-in default.
func Load(h uintptr, path string) int {
	m := lookup(h)
	if m == nil {
		return -1
	}
	if path == "" {
		return int(C.magic_load(m, nil))
	}
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))
	return int(C.magic_load(m, cs))
}

// LoadBuffers copies each buffer into C memory and hands the set to
// magic_load_buffers. The copies are freed on Close.
func LoadBuffers(h uintptr, buffers [][]byte) int {
	c, ok := cookies.get(h)
	if !ok || len(buffers) == 0 {
		return -1
	}

	n := len(buffers)
	ptrs := unsafe.Slice((*unsafe.Pointer)(C.malloc(C.size_t(n)*C.size_t(unsafe.Sizeof(unsafe.Pointer(nil))))), n)
	sizes := unsafe.Slice((*C.size_t)(C.malloc(C.size_t(n)*C.size_t(unsafe.Sizeof(C.size_t(0))))), n)
	defer C.free(unsafe.Pointer(&ptrs[0]))
	defer C.free(unsafe.Pointer(&sizes[0]))

	for i, b := range buffers {
		ptrs[i] = C.CBytes(b)
		sizes[i] = C.size_t(len(b))
		c.buffers = append(c.buffers, ptrs[i])
	}

	return int(C.magic_load_buffers(c.m, &ptrs[0], &sizes[0], C.size_t(n)))
}

// GetPath returns the default database path list.
func GetPath() string {
	s := C.magic_getpath(nil, 0)
	if s == nil {
		return ""
	}
	return C.GoString(s)
}

func File(h uintptr, path string) (string, bool) {
	m := lookup(h)
	if m == nil {
		return "", false
	}
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))
	r := C.magic_file(m, cs)
	if r == nil {
		return "", false
	}
	return C.GoString(r), true
}

func Buffer(h uintptr, b []byte) (string, bool) {
	m := lookup(h)
	if m == nil {
		return "", false
	}
	var p unsafe.Pointer
	if len(b) > 0 {
		p = unsafe.Pointer(&b[0])
	}
	r := C.magic_buffer(m, p, C.size_t(len(b)))
	if r == nil {
		return "", false
	}
	return C.GoString(r), true
}

func Descriptor(h uintptr, fd int) (string, bool) {
	m := lookup(h)
	if m == nil {
		return "", false
	}
	r := C.magic_descriptor(m, C.int(fd))
	if r == nil {
		return "", false
	}
	return C.GoString(r), true
}

func Check(h uintptr, path string) int {
	m := lookup(h)
	if m == nil {
		return -1
	}
	if path == "" {
		return int(C.magic_check(m, nil))
	}
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))
	return int(C.magic_check(m, cs))
}

func Compile(h uintptr, path string) int {
	m := lookup(h)
	if m == nil {
		return -1
	}
	if path == "" {
		return int(C.magic_compile(m, nil))
	}
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))
	return int(C.magic_compile(m, cs))
}

// Version returns MAGIC_VERSION of the linked library, e.g. 545.
func Version() int {
	return int(C.magic_version())
}
