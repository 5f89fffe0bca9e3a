package magic

import "io"

// defaultBytesMax is libmagic's default for ParamBytesMax, used by Reader
// when the engine cannot report it.
const defaultBytesMax = 7 * 1024 * 1024

// File classifies the file named by target. See resolvePath for the
// accepted types.
func (m *Magic) File(target any) (string, error) {
	if err := m.checkLoaded(); err != nil {
		return "", err
	}
	path, err := resolvePath(target)
	if err != nil {
		return "", err
	}
	return m.classify("file", func(e Engine, c Cookie) (string, bool) {
		return e.File(c, path)
	})
}

// Buffer classifies the contents of b.
func (m *Magic) Buffer(b []byte) (string, error) {
	if err := m.checkLoaded(); err != nil {
		return "", err
	}
	return m.classify("buffer", func(e Engine, c Cookie) (string, bool) {
		return e.Buffer(c, b)
	})
}

// Descriptor classifies the open file behind target, which may be an
// integer descriptor, an *os.File, a net.Conn or anything else exposing
// Fd or SyscallConn. The descriptor is not closed, and its offset may move.
func (m *Magic) Descriptor(target any) (string, error) {
	if err := m.checkLoaded(); err != nil {
		return "", err
	}
	fd, err := resolveDescriptor(target)
	if err != nil {
		return "", err
	}
	return m.classify("descriptor", func(e Engine, c Cookie) (string, bool) {
		return e.Descriptor(c, fd)
	})
}

// Reader classifies the leading bytes of r, reading at most as many bytes
// as the engine would inspect in a file (ParamBytesMax).
func (m *Magic) Reader(r io.Reader) (string, error) {
	if err := m.checkLoaded(); err != nil {
		return "", err
	}
	if r == nil {
		return "", argumentTypeError(r, "io.Reader")
	}
	limit, err := m.Parameter(ParamBytesMax)
	if err != nil || limit == 0 {
		limit = defaultBytesMax
	}
	b, err := io.ReadAll(io.LimitReader(r, int64(limit)))
	if err != nil {
		return "", readError(err)
	}
	return m.Buffer(b)
}

// Check validates the magic source files selected by target.
func (m *Magic) Check(target LoadTarget) (bool, error) {
	err := m.database("check", target, Engine.Check)
	return err == nil, err
}

// Compile compiles the magic source files selected by target. The native
// engine writes one .mgc file per source, named after its base name.
func (m *Magic) Compile(target LoadTarget) error {
	return m.database("compile", target, Engine.Compile)
}

func (m *Magic) database(op string, target LoadTarget, call func(Engine, Cookie, string) int) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	joined, err := target.joined()
	if err != nil {
		return err
	}
	err = m.withLock(requireOpen, func(e Engine, c Cookie) error {
		if call(e, c, joined) < 0 {
			return nativeError(e, c)
		}
		return nil
	})
	if err == nil {
		m.debug(op+" succeeded", "database", target.String())
	}
	return err
}

// classify runs one detection call inside the Gate and applies the warning
// policy. When the handle stops on errors the call runs with HardErrors
// set, so the engine fails instead of describing the failure in the
// result; the caller's flags are restored before the lock is released.
// A diagnostic left by a successful call is a warning: it becomes an error
// when the handle stops on errors and is logged otherwise.
func (m *Magic) classify(op string, call func(Engine, Cookie) (string, bool)) (string, error) {
	var result, warning string
	err := m.withLock(requireLoaded, func(e Engine, c Cookie) error {
		stop := m.stopOnErrors.Load()
		if stop {
			prev := e.Flags(c)
			if prev >= 0 && Flags(prev)&HardErrors == 0 && e.SetFlags(c, prev|int(HardErrors)) == 0 {
				defer e.SetFlags(c, prev)
			}
		}
		r, ok := call(e, c)
		if !ok {
			return nativeError(e, c)
		}
		if diag := e.Error(c); diag != "" {
			if stop {
				return nativeError(e, c)
			}
			warning = diag
		}
		result = r
		return nil
	})
	if err != nil {
		return "", err
	}
	if warning != "" {
		m.warn(op, warning)
	}
	return result, nil
}
