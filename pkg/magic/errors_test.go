package magic_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsiuhsiu/magic-go/pkg/magic"
)

func TestErrorMatching(t *testing.T) {
	m, _ := openFake(t, magic.Config{})
	m.Close()
	_, err := m.Buffer(nil)

	wrapped := fmt.Errorf("classify: %w", err)
	assert.ErrorIs(t, wrapped, magic.ErrLibraryState)
	assert.ErrorIs(t, wrapped, magic.ErrClosed)
	assert.NotErrorIs(t, wrapped, magic.ErrNotLoaded)
	assert.NotErrorIs(t, wrapped, magic.ErrArgument)

	var me *magic.Error
	require.True(t, errors.As(wrapped, &me))
	assert.Equal(t, magic.KindLibraryState, me.Kind)
	assert.Equal(t, magic.ReasonClosed, me.Reason)
	assert.Equal(t, "magic: Magic library is not open (errno 14)", me.Error())
}

func TestInitializationErrorUnwraps(t *testing.T) {
	if _, err := magic.LibraryVersion(); err == nil {
		t.Skip("native library available")
	}
	_, err := magic.New(magic.None)
	require.ErrorIs(t, err, magic.ErrInitialization)
	assert.True(t,
		errors.Is(err, magic.ErrNotBuilt) || errors.Is(err, magic.ErrLibraryNotFound),
		"unexpected cause: %v", err)
}

func TestKindAndReasonStrings(t *testing.T) {
	assert.Equal(t, "library state", magic.KindLibraryState.String())
	assert.Equal(t, "not implemented", magic.ReasonNotImplemented.String())
	assert.Equal(t, "kind(99)", magic.Kind(99).String())
	assert.Equal(t, magic.ReasonNone, magic.ReasonOf(errors.New("plain")))
	assert.False(t, magic.IsKind(errors.New("plain"), magic.KindArgument))
}
