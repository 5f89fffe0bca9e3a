package magic

import (
	"fmt"
	"math"
	"os"
	"reflect"
	"strings"
	"syscall"
)

// PathAccessor is implemented by values that refer to a file system path.
type PathAccessor interface {
	Path() string
}

type pathProbe func(v any) (path string, ok bool)

// pathProbes are tried in order; the first match wins.
var pathProbes = []pathProbe{
	probeString,
	probePathAccessor,
	probeStringer,
}

func probeString(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.Kind() == reflect.String {
		if _, isStringer := v.(fmt.Stringer); !isStringer {
			return rv.String(), true
		}
	}
	return "", false
}

// isNilPointer reports whether v is a typed nil pointer. Methods on such a
// value usually dereference the receiver, so probes must not call them.
func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func probePathAccessor(v any) (string, bool) {
	if isNilPointer(v) {
		return "", false
	}
	switch t := v.(type) {
	case PathAccessor:
		return t.Path(), true
	case *os.File:
		return t.Name(), true
	}
	return "", false
}

func probeStringer(v any) (string, bool) {
	if isNilPointer(v) {
		return "", false
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), true
	}
	return "", false
}

// resolvePath turns a detection target into a path: a string, then a path
// accessor (Path() or *os.File), then a fmt.Stringer.
func resolvePath(v any) (string, error) {
	for _, probe := range pathProbes {
		path, ok := probe(v)
		if !ok {
			continue
		}
		if path == "" {
			return "", argumentError("empty path")
		}
		if strings.IndexByte(path, 0) >= 0 {
			return "", argumentError("path %q contains a NUL byte", path)
		}
		return path, nil
	}
	return "", argumentTypeError(v, "string, path accessor or fmt.Stringer")
}

type descriptorProbe func(v any) (fd int64, ok bool, err error)

// descriptorProbes are tried in order; the first match wins.
var descriptorProbes = []descriptorProbe{
	probeInteger,
	probeFd,
	probeSyscallConn,
}

func probeInteger(v any) (int64, bool, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return 0, false, nil
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt32 {
			return 0, true, argumentError("descriptor %d out of range", u)
		}
		return int64(u), true, nil
	}
	return 0, false, nil
}

func probeFd(v any) (int64, bool, error) {
	f, ok := v.(interface{ Fd() uintptr })
	if !ok {
		return 0, false, nil
	}
	if isNilPointer(v) {
		return 0, true, argumentError("nil %T", v)
	}
	fd := f.Fd()
	if fd == ^uintptr(0) {
		return 0, true, argumentError("closed stream")
	}
	return int64(fd), true, nil
}

func probeSyscallConn(v any) (int64, bool, error) {
	c, ok := v.(syscall.Conn)
	if !ok {
		return 0, false, nil
	}
	if isNilPointer(v) {
		return 0, true, argumentError("nil %T", v)
	}
	rc, err := c.SyscallConn()
	if err != nil {
		return 0, true, argumentError("descriptor: %v", err)
	}
	var fd uintptr
	if err := rc.Control(func(raw uintptr) { fd = raw }); err != nil {
		return 0, true, argumentError("closed stream: %v", err)
	}
	return int64(fd), true, nil
}

// resolveDescriptor turns a detection target into a descriptor: an
// integer, then Fd(), then syscall.Conn.
func resolveDescriptor(v any) (int, error) {
	for _, probe := range descriptorProbes {
		fd, ok, err := probe(v)
		if !ok {
			continue
		}
		if err != nil {
			return 0, err
		}
		if fd < 0 {
			return 0, argumentError("negative descriptor %d", fd)
		}
		if fd > math.MaxInt32 {
			return 0, argumentError("descriptor %d out of range", fd)
		}
		return int(fd), nil
	}
	return 0, argumentTypeError(v, "integer descriptor or value with Fd() or SyscallConn()")
}
