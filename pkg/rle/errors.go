package rle

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedStream is matched by every MalformedStreamError.
	ErrMalformedStream = errors.New("malformed run-length stream")
	ErrClosed          = errors.New("the decoder is closed")
)

// MalformedStreamError reports an escape byte with no following control
// byte. Offset is the position of that escape byte in the compressed input.
type MalformedStreamError struct {
	Offset int64
	Escape byte
}

func (e *MalformedStreamError) Error() string {
	return fmt.Sprintf("truncated run-length control byte: escape 0x%02x at offset %d has no count", e.Escape, e.Offset)
}

func (e *MalformedStreamError) Is(target error) bool {
	return target == ErrMalformedStream
}
