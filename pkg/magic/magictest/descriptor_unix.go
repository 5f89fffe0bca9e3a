//go:build unix

package magictest

import (
	"errors"

	"golang.org/x/sys/unix"
)

// readDescriptor reads up to limit bytes from fd starting at offset 0,
// falling back to sequential reads for pipes and sockets. The descriptor's
// offset is left alone when it is seekable.
func readDescriptor(fd, limit int) ([]byte, error) {
	var out []byte
	chunk := make([]byte, 32<<10)
	positional := true
	for len(out) < limit {
		want := min(len(chunk), limit-len(out))
		var n int
		var err error
		if positional {
			n, err = unix.Pread(fd, chunk[:want], int64(len(out)))
			if errors.Is(err, unix.ESPIPE) {
				positional = false
				continue
			}
		} else {
			n, err = unix.Read(fd, chunk[:want])
		}
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		out = append(out, chunk[:n]...)
	}
	return out, nil
}
