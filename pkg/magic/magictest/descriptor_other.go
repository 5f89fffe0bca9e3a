//go:build !unix

package magictest

import "errors"

func readDescriptor(int, int) ([]byte, error) {
	return nil, errors.ErrUnsupported
}
