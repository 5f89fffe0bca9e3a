package magic

import (
	"fmt"

	"github.com/hsiuhsiu/magic-go/pkg/magic/internal/backend"
)

// Version is the wrapper version, overridden at build time with
// -ldflags "-X github.com/hsiuhsiu/magic-go/pkg/magic.Version=v1.2.3".
var Version = "v0.0.0-dev"

// WrapperVersion returns the version of this package.
func WrapperVersion() string { return Version }

// LibraryVersion returns the version of the system libmagic, e.g. 545.
func LibraryVersion() (int, error) {
	if err := backend.Available(); err != nil {
		return 0, remapError(err)
	}
	return backend.Version(), nil
}

// FormatVersion renders a libmagic version number as "major.minor".
func FormatVersion(v int) string {
	if v <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d.%02d", v/100, v%100)
}
