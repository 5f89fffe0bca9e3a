// Package magictest provides an in-memory magic.Engine for tests and
// examples.
//
// Engine behaves like libmagic closely enough to exercise every code path
// of package magic without the native library: flags shape the output,
// parameters have libmagic's defaults and bounds, diagnostics persist
// until the next call on the same cookie, and a failed load drops the
// previous database. It is not a signature matcher; a database is a short
// YAML list of byte patterns.
//
// # Features
//
//   - Call counting per method (Calls, TotalCalls)
//   - Concurrent-entry tracking overall and per cookie (MaxConcurrent,
//     MaxConcurrentPerCookie)
//   - Optional per-call Delay to widen race windows
//   - Failure injection (FailOpen, NoUtime)
//   - Live cookie accounting for leak checks (Cookies)
//
// Per-cookie state is deliberately unsynchronized, like the native
// library's, so a caller that lets two calls overlap on one cookie is
// reported by the race detector as well as by MaxConcurrentPerCookie.
//
// # Database Format
//
// A source database is a YAML list of signatures:
//
//	- offset: 0
//	  hex: 89504e470d0a1a0a
//	  description: PNG image data
//	  mime: image/png
//	  extension: png
//	- offset: 0
//	  string: "%PDF-"
//	  description: PDF document
//	  mime: application/pdf
//
// A compiled database is the same document preceded by the line
// "#magictest-compiled". Load accepts both forms, LoadBuffers only the
// compiled one, and Compile turns FILE into FILE.mgc.
//
// # Usage
//
//	eng := magictest.New()
//	m, err := magic.Open(magic.Config{Engine: eng})
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer m.Close()
//
//	_ = m.LoadBuffers(magictest.Compiled(magictest.Database()))
//	desc, _ := m.Buffer(magictest.PNG) // "PNG image data"
package magictest
