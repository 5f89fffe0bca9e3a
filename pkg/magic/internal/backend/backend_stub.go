//go:build windows || (!cgo && !linux && !darwin && !freebsd)

package backend

// Stub implementations for targets without a native binding. They allow
// the package to compile; every call reports ErrNotBuilt or a failure
// status.

func Available() error { return ErrNotBuilt }

func Open(int) (uintptr, error) { return 0, ErrNotBuilt }

func Close(uintptr) {}

func Error(uintptr) string { return "" }

func Errno(uintptr) int { return 0 }

func GetFlags(uintptr) int { return -1 }

func SetFlags(uintptr, int) int { return -1 }

func GetParam(uintptr, int) (uint64, int) { return 0, -1 }

func SetParam(uintptr, int, uint64) int { return -1 }

func Load(uintptr, string) int { return -1 }

func LoadBuffers(uintptr, [][]byte) int { return -1 }

func GetPath() string { return "" }

func File(uintptr, string) (string, bool) { return "", false }

func Buffer(uintptr, []byte) (string, bool) { return "", false }

func Descriptor(uintptr, int) (string, bool) { return "", false }

func Check(uintptr, string) int { return -1 }

func Compile(uintptr, string) int { return -1 }

func Version() int { return 0 }
