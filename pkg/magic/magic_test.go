package magic_test

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsiuhsiu/magic-go/pkg/magic"
	"github.com/hsiuhsiu/magic-go/pkg/magic/logging"
	"github.com/hsiuhsiu/magic-go/pkg/magic/magictest"
)

// openFake opens a handle on a fresh fake engine with the test database
// loaded from memory.
func openFake(t *testing.T, cfg magic.Config) (*magic.Magic, *magictest.Engine) {
	t.Helper()
	eng := magictest.New()
	cfg.Engine = eng
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	m, err := magic.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	require.NoError(t, m.LoadBuffers(magictest.Compiled(magictest.Database())))
	return m, eng
}

func TestOpenClose(t *testing.T) {
	eng := magictest.New()
	m, err := magic.Open(magic.Config{Engine: eng, Logger: logging.Discard()})
	require.NoError(t, err)

	assert.True(t, m.IsOpen())
	assert.False(t, m.IsLoaded())
	assert.True(t, m.StopOnErrors())
	assert.Equal(t, magictest.DefaultVersion, m.Version())
	assert.Equal(t, 1, eng.Cookies())

	assert.True(t, m.Close())
	assert.False(t, m.Close(), "second Close must report false")
	assert.False(t, m.IsOpen())
	assert.Equal(t, 0, eng.Cookies())
	assert.Equal(t, 1, eng.Calls("Close"))
}

func TestCloseResetsLoaded(t *testing.T) {
	m, _ := openFake(t, magic.Config{})
	require.True(t, m.IsLoaded())
	m.Close()
	assert.False(t, m.IsLoaded())
}

func TestOperationsAfterCloseFail(t *testing.T) {
	m, eng := openFake(t, magic.Config{})
	m.Close()
	before := eng.TotalCalls()

	checks := map[string]func() error{
		"File":         func() error { _, err := m.File("x"); return err },
		"Buffer":       func() error { _, err := m.Buffer(magictest.PNG); return err },
		"Descriptor":   func() error { _, err := m.Descriptor(0); return err },
		"Load":         func() error { return m.Load(magic.DefaultDatabase()) },
		"LoadBuffers":  func() error { return m.LoadBuffers([]byte("x")) },
		"Paths":        func() error { _, err := m.Paths(); return err },
		"Flags":        func() error { _, err := m.Flags(); return err },
		"SetFlags":     func() error { return m.SetFlags(magic.MimeType) },
		"Parameter":    func() error { _, err := m.Parameter(magic.ParamBytesMax); return err },
		"SetParameter": func() error { return m.SetParameter(magic.ParamBytesMax, 1) },
		"Check":        func() error { _, err := m.Check(magic.DefaultDatabase()); return err },
		"Compile":      func() error { return m.Compile(magic.DefaultDatabase()) },
	}
	for name, fn := range checks {
		t.Run(name, func(t *testing.T) {
			err := fn()
			require.ErrorIs(t, err, magic.ErrClosed)
			assert.True(t, magic.IsKind(err, magic.KindLibraryState))
			assert.Equal(t, int(syscall.EFAULT), err.(*magic.Error).Code)
		})
	}
	assert.Equal(t, before, eng.TotalCalls(), "no native call after close")
}

func TestDetectionBeforeLoadFails(t *testing.T) {
	eng := magictest.New()
	m, err := magic.Open(magic.Config{Engine: eng, Logger: logging.Discard()})
	require.NoError(t, err)
	defer m.Close()

	_, err = m.Buffer(magictest.PNG)
	require.ErrorIs(t, err, magic.ErrNotLoaded)
	_, err = m.File("/etc/hosts")
	require.ErrorIs(t, err, magic.ErrNotLoaded)
	_, err = m.Descriptor(0)
	require.ErrorIs(t, err, magic.ErrNotLoaded)
	assert.Zero(t, eng.Calls("Buffer")+eng.Calls("File")+eng.Calls("Descriptor"))
}

func TestOpenFailure(t *testing.T) {
	eng := magictest.New()
	eng.FailOpen = true

	m, err := magic.Open(magic.Config{Engine: eng, Logger: logging.Discard()})
	require.Nil(t, m)
	require.ErrorIs(t, err, magic.ErrInitialization)

	var me *magic.Error
	require.True(t, errors.As(err, &me))
	assert.Equal(t, int(syscall.ENOMEM), me.Code)
	assert.Equal(t, "failed to initialize Magic library", me.Message)
	assert.Equal(t, 0, eng.Cookies())
}

func TestOpenRejectsUnsupportedFlags(t *testing.T) {
	eng := magictest.New()
	eng.LibVersion = 520

	_, err := magic.Open(magic.Config{Engine: eng, Flags: magic.Extension, Logger: logging.Discard()})
	require.ErrorIs(t, err, magic.ErrFlags)
	assert.Equal(t, magic.ReasonNotImplemented, magic.ReasonOf(err))
	assert.Zero(t, eng.Calls("Open"))
}

func TestOpenAutoLoad(t *testing.T) {
	dir := t.TempDir()
	db := magictest.WriteSource(t, dir, "images", magictest.Database())

	eng := magictest.New()
	m, err := magic.Open(magic.Config{
		Engine:   eng,
		Logger:   logging.Discard(),
		AutoLoad: true,
		Database: []string{db},
		Flags:    magic.MimeType,
	})
	require.NoError(t, err)
	defer m.Close()

	assert.True(t, m.IsLoaded())
	got, err := m.Buffer(magictest.PNG)
	require.NoError(t, err)
	assert.Equal(t, "image/png", got)
}

func TestOpenAutoLoadFailureReleasesCookie(t *testing.T) {
	eng := magictest.New()
	m, err := magic.Open(magic.Config{
		Engine:   eng,
		Logger:   logging.Discard(),
		AutoLoad: true,
		Database: []string{"/nonexistent/magic.db"},
	})
	require.Nil(t, m)
	require.True(t, magic.IsKind(err, magic.KindLibrary))
	assert.Equal(t, int(syscall.ENOENT), err.(*magic.Error).Code)
	assert.Equal(t, 0, eng.Cookies())
}

func TestOpenParameters(t *testing.T) {
	m, _ := openFake(t, magic.Config{
		Parameters: map[magic.Param]uint64{
			magic.ParamRegexMax: 4096,
			magic.ParamBytesMax: 1 << 20,
		},
	})
	v, err := m.Parameter(magic.ParamRegexMax)
	require.NoError(t, err)
	assert.EqualValues(t, 4096, v)

	eng := magictest.New()
	_, err = magic.Open(magic.Config{
		Engine:     eng,
		Logger:     logging.Discard(),
		Parameters: map[magic.Param]uint64{magic.ParamIndirMax: 1 << 20},
	})
	require.ErrorIs(t, err, magic.ErrParameter)
	assert.Equal(t, 0, eng.Cookies())
}

func TestStopOnErrorsToggle(t *testing.T) {
	m, _ := openFake(t, magic.Config{ContinueOnErrors: true})
	assert.False(t, m.StopOnErrors())
	m.SetStopOnErrors(true)
	assert.True(t, m.StopOnErrors())
}

func TestNilHandle(t *testing.T) {
	var m *magic.Magic
	assert.False(t, m.IsOpen())
	assert.False(t, m.IsLoaded())
	assert.False(t, m.Close())
	_, err := m.Buffer(nil)
	require.ErrorIs(t, err, magic.ErrClosed)

	_, err = m.Flags()
	require.ErrorIs(t, err, magic.ErrClosed)
	require.ErrorIs(t, m.SetFlags(magic.MimeType), magic.ErrClosed)
	_, err = m.Parameters()
	require.ErrorIs(t, err, magic.ErrClosed)

	assert.False(t, m.StopOnErrors())
	assert.NotPanics(t, func() { m.SetStopOnErrors(true) })
	assert.False(t, m.StopOnErrors())
	assert.Zero(t, m.Version())
}
