// Package magic classifies files and byte buffers with the system libmagic.
//
// libmagic is not re-entrant: one native instance (a cookie) must never
// be used by two threads at once, and a cookie must not be used after it
// is freed. A *Magic owns exactly one cookie and serializes every native
// call on it behind a mutex, so a handle can be shared freely between
// goroutines. Distinct handles are independent and run in parallel; use a
// Pool to spread work across several of them.
//
// # Lifecycle
//
//	m, err := magic.New(magic.MimeType)
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//
//	if err := m.Load(magic.DefaultDatabase()); err != nil {
//	    return err
//	}
//	mime, err := m.File("/etc/hosts")
//
// Detection fails with ErrNotLoaded until a Load or LoadBuffers call has
// succeeded, and every call fails with ErrClosed after Close. Close is
// idempotent.
//
// # Errors
//
// Every operation returns *Error. Branch on its Kind, or use errors.Is with
// the sentinels:
//
//	switch {
//	case errors.Is(err, magic.ErrClosed):
//	case errors.Is(err, magic.ErrFlags):
//	case magic.IsKind(err, magic.KindLibrary):
//	}
//
// Argument errors are reported before any native call is made and leave
// the handle unchanged. Library errors carry the native diagnostic and
// errno.
//
// # Warnings
//
// libmagic can return a result together with a diagnostic. By default a
// handle stops on errors and reports such a diagnostic as a KindLibrary
// error. With Config.ContinueOnErrors (or SetStopOnErrors(false)) the
// result is returned and the diagnostic is logged at warn level once per
// handle.
//
// # Builds
//
// With cgo the package links against -lmagic. Without cgo, unix builds
// open libmagic at runtime (override the path with GOMAGIC_LIBRARY). Other
// builds compile, but Open fails with an error wrapping ErrNotBuilt.
package magic
