package magic_test

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsiuhsiu/magic-go/pkg/magic"
	"github.com/hsiuhsiu/magic-go/pkg/magic/logging"
	"github.com/hsiuhsiu/magic-go/pkg/magic/magictest"
)

func writeFile(t *testing.T, name string, b []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

type pathHolder struct{ p string }

func (h pathHolder) Path() string { return h.p }

type stringer struct{ s string }

func (s stringer) String() string { return s.s }

type namedPath string

type pathRef struct{ p string }

func (r *pathRef) Path() string { return r.p }

type stringerRef struct{ s string }

func (r *stringerRef) String() string { return r.s }

func TestFileResolvesPaths(t *testing.T) {
	m, _ := openFake(t, magic.Config{Flags: magic.MimeType})
	path := writeFile(t, "image", magictest.PNG)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	targets := map[string]any{
		"string":   path,
		"named":    namedPath(path),
		"accessor": pathHolder{path},
		"os.File":  f,
		"stringer": stringer{path},
	}
	for name, target := range targets {
		t.Run(name, func(t *testing.T) {
			got, err := m.File(target)
			require.NoError(t, err)
			assert.Equal(t, "image/png", got)
		})
	}
}

func TestFileRejectsBadTargets(t *testing.T) {
	m, eng := openFake(t, magic.Config{})
	before := eng.TotalCalls()

	for _, target := range []any{
		nil, 42, []byte("x"), "", pathHolder{}, "a\x00b",
		(*pathRef)(nil), (*stringerRef)(nil), (*os.File)(nil),
	} {
		_, err := m.File(target)
		require.ErrorIs(t, err, magic.ErrArgument, "%#v", target)
	}
	assert.Equal(t, before, eng.TotalCalls())

	got, err := m.File(&pathRef{writeFile(t, "image", magictest.PNG)})
	require.NoError(t, err)
	assert.Equal(t, "PNG image data", got)
}

func TestFileMissingStopsOnErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	t.Run("default fails", func(t *testing.T) {
		m, _ := openFake(t, magic.Config{Flags: magic.MimeType})
		_, err := m.File(missing)

		var me *magic.Error
		require.True(t, errors.As(err, &me))
		assert.Equal(t, magic.KindLibrary, me.Kind)
		assert.Equal(t, int(syscall.ENOENT), me.Code)
		assert.Contains(t, me.Message, "cannot open")

		flags, err := m.Flags()
		require.NoError(t, err)
		assert.Equal(t, magic.MimeType, flags, "caller flags must be restored")

		got, err := m.File(writeFile(t, "image", magictest.PNG))
		require.NoError(t, err)
		assert.Equal(t, "image/png", got)
	})

	t.Run("continue returns the description", func(t *testing.T) {
		m, _ := openFake(t, magic.Config{ContinueOnErrors: true})
		got, err := m.File(missing)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, "cannot open"), got)
	})
}

func TestFileMissingWithHardErrors(t *testing.T) {
	m, _ := openFake(t, magic.Config{Flags: magic.HardErrors})
	_, err := m.File(filepath.Join(t.TempDir(), "missing"))

	var me *magic.Error
	require.True(t, errors.As(err, &me))
	assert.Equal(t, magic.KindLibrary, me.Kind)
	assert.Equal(t, int(syscall.ENOENT), me.Code)
	assert.Contains(t, me.Message, "cannot open")
}

func TestDescriptorResolves(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("the fake engine reads descriptors with pread")
	}
	m, _ := openFake(t, magic.Config{})
	f, err := os.Open(writeFile(t, "image", magictest.PNG))
	require.NoError(t, err)
	defer f.Close()

	targets := map[string]any{
		"int":     int(f.Fd()),
		"int32":   int32(f.Fd()),
		"uintptr": f.Fd(),
		"os.File": f,
		"conn":    connOnly{f},
	}
	for name, target := range targets {
		t.Run(name, func(t *testing.T) {
			got, err := m.Descriptor(target)
			require.NoError(t, err)
			assert.Equal(t, "PNG image data", got)
		})
	}
}

type connOnly struct{ f *os.File }

func (c connOnly) SyscallConn() (syscall.RawConn, error) { return c.f.SyscallConn() }

func TestDescriptorRejectsBadTargets(t *testing.T) {
	m, eng := openFake(t, magic.Config{})
	f, err := os.Open(writeFile(t, "x", []byte("x")))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	before := eng.TotalCalls()

	for _, target := range []any{-1, int64(-5), uint64(1) << 40, "3", nil, 1.5, f, connOnly{f}} {
		_, err := m.Descriptor(target)
		require.ErrorIs(t, err, magic.ErrArgument, "%#v", target)
	}
	assert.Equal(t, before, eng.TotalCalls())
}

func TestReader(t *testing.T) {
	m, _ := openFake(t, magic.Config{})
	got, err := m.Reader(bytes.NewReader(magictest.PNG))
	require.NoError(t, err)
	assert.Equal(t, "PNG image data", got)

	require.NoError(t, m.SetParameter(magic.ParamBytesMax, 4))
	got, err = m.Reader(strings.NewReader("%PDF-1.7 and more"))
	require.NoError(t, err)
	assert.Equal(t, "ASCII text", got, "only the first four bytes are inspected")

	_, err = m.Reader(nil)
	require.ErrorIs(t, err, magic.ErrArgument)
}

func TestReaderFailure(t *testing.T) {
	m, eng := openFake(t, magic.Config{})
	before := eng.Calls("Buffer")

	_, err := m.Reader(iotest.ErrReader(syscall.EIO))
	require.ErrorIs(t, err, magic.ErrLibrary)
	require.ErrorIs(t, err, syscall.EIO)
	assert.Equal(t, int(syscall.EIO), err.(*magic.Error).Code)
	assert.Equal(t, before, eng.Calls("Buffer"))

	_, err = m.Reader(iotest.ErrReader(errors.New("boom")))
	require.ErrorIs(t, err, magic.ErrLibrary)
	assert.Zero(t, err.(*magic.Error).Code)
}

func TestWarningStopsByDefault(t *testing.T) {
	m, _ := openFake(t, magic.Config{})
	_, err := m.Buffer(magictest.Warned)
	require.True(t, magic.IsKind(err, magic.KindLibrary))
	assert.Contains(t, err.Error(), magictest.WarningText)
}

func TestWarningToleratedAndLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(slog.New(slog.NewTextHandler(&buf, nil)))
	m, _ := openFake(t, magic.Config{ContinueOnErrors: true, Logger: logger})

	for range 3 {
		got, err := m.Buffer(magictest.Warned)
		require.NoError(t, err)
		assert.Equal(t, "magictest warning fixture", got)
	}
	assert.Equal(t, 1, strings.Count(buf.String(), "magictest entry is truncated"))
	assert.Contains(t, buf.String(), "level=WARN")

	m.SetStopOnErrors(true)
	_, err := m.Buffer(magictest.Warned)
	require.Error(t, err)
}

func TestWarningRepeated(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(slog.New(slog.NewTextHandler(&buf, nil)))
	m, _ := openFake(t, magic.Config{ContinueOnErrors: true, RepeatWarnings: true, Logger: logger})

	for range 3 {
		_, err := m.Buffer(magictest.Warned)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, strings.Count(buf.String(), "magictest entry is truncated"))
}

func TestWarningsArePerHandle(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(slog.New(slog.NewTextHandler(&buf, nil)))
	a, _ := openFake(t, magic.Config{ContinueOnErrors: true, Logger: logger})
	b, _ := openFake(t, magic.Config{ContinueOnErrors: true, Logger: logger})

	_, err := a.Buffer(magictest.Warned)
	require.NoError(t, err)
	_, err = b.Buffer(magictest.Warned)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(buf.String(), "magictest entry is truncated"))
}

func TestCheckAndCompile(t *testing.T) {
	dir := t.TempDir()
	src := magictest.WriteSource(t, dir, "images", magictest.Database())
	bad := magictest.WriteSource(t, dir, "bad", []magictest.Signature{{Hex: "zz", Description: "broken"}})

	eng := magictest.New()
	m, err := magic.Open(magic.Config{Engine: eng, Logger: logging.Discard()})
	require.NoError(t, err)
	defer m.Close()

	ok, err := m.Check(magic.DatabasePath(src))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Check(magic.DatabasePath(bad))
	assert.False(t, ok)
	require.True(t, magic.IsKind(err, magic.KindLibrary))
	assert.Contains(t, err.Error(), "bad magic entry")

	require.NoError(t, m.Compile(magic.DatabasePath(src)))
	assert.FileExists(t, src+".mgc")
	assert.False(t, m.IsLoaded(), "compile does not load")

	require.NoError(t, m.Load(magic.DatabasePath(src+".mgc")))
	got, err := m.Buffer(magictest.PNG)
	require.NoError(t, err)
	assert.Equal(t, "PNG image data", got)

	_, err = m.Check(magic.DatabasePaths())
	require.ErrorIs(t, err, magic.ErrArgument)
}

func TestFlagsShapeResults(t *testing.T) {
	m, _ := openFake(t, magic.Config{})
	require.NoError(t, m.SetFlags(magic.Mime))
	got, err := m.Buffer(magictest.PNG)
	require.NoError(t, err)
	assert.Equal(t, "image/png; charset=binary", got)

	require.NoError(t, m.SetFlags(magic.Continue))
	got, err = m.Buffer(magictest.PNG)
	require.NoError(t, err)
	assert.Equal(t, "PNG image data\n- high-bit data", got)
}
