package magictest

import (
	"os"
	"path/filepath"
	"testing"
)

// PNG is a complete 1x1 RGBA PNG image.
var PNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// Warned matches the database entry that reports WarningText alongside its
// result.
var Warned = []byte("MAGICTEST-WARN\x00payload")

// WarningText is the diagnostic raised by Warned.
const WarningText = "line 42: warning: magictest entry is truncated"

// Database returns the signatures used throughout the tests.
func Database() []Signature {
	return []Signature{
		{Hex: "89504e470d0a1a0a", Description: "PNG image data", MIME: "image/png", Extension: "png"},
		{String: "GIF87a", Description: "GIF image data, version 87a", MIME: "image/gif", Extension: "gif"},
		{String: "GIF89a", Description: "GIF image data, version 89a", MIME: "image/gif", Extension: "gif"},
		{Hex: "ffd8ff", Description: "JPEG image data", MIME: "image/jpeg", Extension: "jpeg/jpg/jpe/jfif"},
		{String: "%PDF-", Description: "PDF document", MIME: "application/pdf", Extension: "pdf"},
		{Hex: "1f8b", Description: "gzip compressed data", MIME: "application/gzip", Extension: "gz/tgz/tpz/zabw/svgz"},
		{String: "PK\x03\x04", Description: "Zip archive data", MIME: "application/zip", Extension: "zip"},
		{Hex: "7f454c46", Description: "ELF", MIME: "application/x-executable"},
		{String: "#!/bin/sh", Description: "POSIX shell script, ASCII text executable", MIME: "text/x-shellscript", Encoding: "us-ascii"},
		{String: "MAGICTEST-WARN", Description: "magictest warning fixture", MIME: "application/x-magictest", Warning: WarningText},
		{Hex: "89", Description: "high-bit data", MIME: "application/octet-stream"},
	}
}

// WriteSource writes sigs as a source database named name under dir and
// returns its path.
func WriteSource(tb testing.TB, dir, name string, sigs []Signature) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Source(sigs), 0o600); err != nil {
		tb.Fatalf("write database: %v", err)
	}
	return path
}

// WriteCompiled writes sigs as a compiled database named name under dir
// and returns its path.
func WriteCompiled(tb testing.TB, dir, name string, sigs []Signature) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Compiled(sigs), 0o600); err != nil {
		tb.Fatalf("write database: %v", err)
	}
	return path
}
