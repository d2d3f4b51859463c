package utils

import (
	"fmt"
	"io"
)

var ErrIOLimitReached = fmt.Errorf("read size limit reached")

// ReadAllLimit reads at most n bytes from r. If r holds more than n bytes, the
// first n are returned together with ErrIOLimitReached.
func ReadAllLimit(r io.Reader, n int64) ([]byte, error) {
	buf, err := io.ReadAll(io.LimitReader(r, n+1))
	if err != nil {
		return buf, err
	}
	if int64(len(buf)) > n {
		return buf[:n], ErrIOLimitReached
	}
	return buf, nil
}
