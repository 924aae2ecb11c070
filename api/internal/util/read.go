package util

import (
	"errors"
	"fmt"
	"io"
)

var ErrTooLarge = errors.New("attachment too large")

// ReadLimited reads all of r, failing with ErrTooLarge instead of truncating
// when r holds more than limit bytes.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return b, nil
}
