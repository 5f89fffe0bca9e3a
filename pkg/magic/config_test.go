package magic_test

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/hsiuhsiu/magic-go/pkg/magic"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("GOMAGIC_FLAGS", "mime_type|symlink")
	t.Setenv("GOMAGIC_DATABASE", "/a.mgc"+magic.PathListSeparator+"/b.mgc")
	t.Setenv("GOMAGIC_AUTO_LOAD", "false")
	t.Setenv("GOMAGIC_CONTINUE_ON_ERRORS", "true")
	t.Setenv("GOMAGIC_REPEAT_WARNINGS", "true")
	t.Setenv("GOMAGIC_PARAMETERS", "bytes_max=1048576, regex_max=4096")

	got, err := magic.ConfigFromEnv()
	require.NoError(t, err)

	want := magic.Config{
		Flags:            magic.MimeType | magic.Symlink,
		Database:         []string{"/a.mgc", "/b.mgc"},
		ContinueOnErrors: true,
		RepeatWarnings:   true,
		Parameters: map[magic.Param]uint64{
			magic.ParamBytesMax: 1 << 20,
			magic.ParamRegexMax: 4096,
		},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(magic.Config{}, "Logger", "Engine")); diff != "" {
		t.Fatalf("ConfigFromEnv mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	for _, k := range []string{
		"GOMAGIC_FLAGS", "GOMAGIC_DATABASE", "GOMAGIC_AUTO_LOAD",
		"GOMAGIC_CONTINUE_ON_ERRORS", "GOMAGIC_REPEAT_WARNINGS", "GOMAGIC_PARAMETERS",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	got, err := magic.ConfigFromEnv()
	require.NoError(t, err)
	require.True(t, got.AutoLoad)
	require.Equal(t, magic.None, got.Flags)
	require.False(t, got.ContinueOnErrors)
	require.Nil(t, got.Parameters)
}

func TestConfigFromEnvReadsOnlyPrefixedNames(t *testing.T) {
	for _, k := range []string{"GOMAGIC_FLAGS", "GOMAGIC_AUTO_LOAD", "BEAVER_FLAGS", "BEAVER_AUTO_LOAD"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("FLAGS", "bogus")
	t.Setenv("BEAVER_FLAGS", "mime_type")
	t.Setenv("BEAVER_AUTO_LOAD", "false")

	got, err := magic.ConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, magic.None, got.Flags)
	require.True(t, got.AutoLoad)

	t.Setenv("GOMAGIC_FLAGS", "mime_encoding")
	got, err = magic.ConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, magic.MimeEncoding, got.Flags)
}

func TestConfigFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv("GOMAGIC_FLAGS", "mime_type|bogus")
	_, err := magic.ConfigFromEnv()
	require.ErrorIs(t, err, magic.ErrFlags)

	t.Setenv("GOMAGIC_FLAGS", "")
	t.Setenv("GOMAGIC_PARAMETERS", "nope=1")
	_, err = magic.ConfigFromEnv()
	require.ErrorIs(t, err, magic.ErrParameter)
}
