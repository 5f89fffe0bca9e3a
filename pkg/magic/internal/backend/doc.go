// Package backend contains the native bindings to libmagic.
//
// # Design Principles
//
//  1. Isolation: every call into libmagic lives in this package. Nothing else
//     in the module imports "C" or dlopens the library.
//
//  2. Raw results: functions return what libmagic returns (status codes,
//     nullable strings, errno). Translating them into typed errors is the
//     caller's job.
//
//  3. Opaque cookies: a magic_t never leaves this package. Callers receive a
//     uintptr key into a registry and the C pointer is looked up on each call.
//
// # Builds
//
// With cgo on a unix target the package links against -lmagic. Without cgo on
// linux, darwin and freebsd the library is loaded at runtime through purego.
// Everywhere else every function reports ErrNotBuilt.
//
// # Threading
//
// A libmagic cookie is NOT safe for concurrent use. Callers must serialize
// every call that takes a cookie.
package backend
