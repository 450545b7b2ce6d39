// Package rle expands the escape-byte run-length scheme used for compressed
// CDF content.
//
// The compressed stream is the logical stream except that every occurrence of
// the escape byte V is followed by one control byte n, meaning n more copies
// of V follow the one already present. With V=0 the input
//
//	1 2 3 0 0 4 5 6 0 2
//
// decodes to
//
//	1 2 3 0 4 5 6 0 0 0
//
// Only decoding is provided.
package rle

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/dlindhol/jcdf/pkg/cdfmetrics"
	"github.com/uber-go/tally/v4"
)

// RunState is the only mutable decoding state: the number of escape bytes
// still owed by the current run.
type RunState struct {
	Remaining int
}

// drain hands out one owed escape byte.
func (s RunState) drain() (RunState, bool) {
	if s.Remaining <= 0 {
		return s, false
	}
	return RunState{Remaining: s.Remaining - 1}, true
}

// startRun returns the state after an escape byte with the given control byte.
func startRun(control byte) RunState {
	return RunState{Remaining: int(control)}
}

// Stats counts what a Decoder has processed so far.
type Stats struct {
	CompressedBytes int64 `json:"compressed_bytes"`
	DecodedBytes    int64 `json:"decoded_bytes"`
	Runs            int64 `json:"runs"`
}

// Decoder pulls bytes from a compressed source and expands runs of the escape
// byte. It holds no buffer besides RunState and is not safe for concurrent
// use. Decoded bytes cannot be re-read: there is no seek or rewind.
type Decoder struct {
	src      io.ByteReader
	raw      io.Reader
	escape   byte
	state    RunState
	stats    Stats
	scope    tally.Scope
	closed   bool
	reported bool
	// malformed is returned by every read once the stream was found
	// truncated.
	malformed error
}

type Option func(*Decoder)

// WithMetrics reports decoder counters to scope instead of the process-wide
// "rle" scope.
func WithMetrics(scope tally.Scope) Option {
	return func(d *Decoder) {
		if scope != nil {
			d.scope = scope
		}
	}
}

// NewDecoder wraps src. If src is an io.ByteReader it is used directly,
// otherwise it is read one byte per call.
func NewDecoder(src io.Reader, escape byte, opts ...Option) *Decoder {
	d := &Decoder{
		raw:    src,
		escape: escape,
		scope:  cdfmetrics.Scope("rle"),
	}
	if br, ok := src.(io.ByteReader); ok {
		d.src = br
	} else {
		d.src = &singleByteReader{r: src}
	}

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Escape returns the escape byte V.
func (d *Decoder) Escape() byte {
	return d.escape
}

// State returns the current run state.
func (d *Decoder) State() RunState {
	return d.state
}

func (d *Decoder) Stats() Stats {
	return d.stats
}

// ReadByte returns the next decoded byte, or io.EOF at the end of the source.
// An escape byte that is the last byte of the source yields a
// *MalformedStreamError, and so does every later call.
func (d *Decoder) ReadByte() (byte, error) {
	if d.closed {
		return 0, ErrClosed
	}
	if d.malformed != nil {
		return 0, d.malformed
	}

	if next, ok := d.state.drain(); ok {
		d.state = next
		d.stats.DecodedBytes++
		return d.escape, nil
	}

	b, err := d.src.ReadByte()
	if err != nil {
		return 0, sourceError(err)
	}
	d.stats.CompressedBytes++
	if b != d.escape {
		d.stats.DecodedBytes++
		return b, nil
	}

	c, err := d.src.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			d.scope.Counter("malformed_streams").Inc(1)
			d.malformed = &MalformedStreamError{Offset: d.stats.CompressedBytes - 1, Escape: d.escape}
			return 0, d.malformed
		}
		return 0, sourceError(err)
	}
	d.stats.CompressedBytes++
	d.stats.Runs++
	d.stats.DecodedBytes++
	d.state = startRun(c)
	return d.escape, nil
}

// Read fills p with decoded bytes. It returns io.EOF only when no byte could
// be read.
func (d *Decoder) Read(p []byte) (int, error) {
	for i := range p {
		b, err := d.ReadByte()
		if err != nil {
			if i > 0 && errors.Is(err, io.EOF) {
				return i, nil
			}
			return i, err
		}
		p[i] = b
	}
	return len(p), nil
}

// Available estimates how many decoded bytes can be read without blocking:
// the source's own estimate plus the pending run. It is a lower bound.
func (d *Decoder) Available() int {
	return sourceAvailable(d.raw) + d.state.Remaining
}

// Close closes the source if it is an io.Closer. Every call is passed
// through; counters are reported on the first call only.
func (d *Decoder) Close() error {
	d.closed = true
	if !d.reported {
		d.reported = true
		d.scope.Counter("compressed_bytes").Inc(d.stats.CompressedBytes)
		d.scope.Counter("decoded_bytes").Inc(d.stats.DecodedBytes)
		d.scope.Counter("runs").Inc(d.stats.Runs)
	}

	if c, ok := d.raw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// DecodeAll decodes an in-memory compressed buffer.
func DecodeAll(data []byte, escape byte, opts ...Option) ([]byte, error) {
	d := NewDecoder(bytes.NewReader(data), escape, opts...)
	defer d.Close()

	out := make([]byte, 0, len(data))
	for {
		b, err := d.ReadByte()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
}

func sourceError(err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	return fmt.Errorf("rle: read source: %w", err)
}

func sourceAvailable(r io.Reader) int {
	switch s := r.(type) {
	case interface{ Available() int }:
		return s.Available()
	case interface{ Buffered() int }:
		return s.Buffered()
	case interface{ Len() int }:
		return s.Len()
	}
	return 0
}

// maxEmptyReads bounds retries on a reader that keeps returning 0, nil.
const maxEmptyReads = 100

type singleByteReader struct {
	r   io.Reader
	buf [1]byte
}

func (s *singleByteReader) ReadByte() (byte, error) {
	for range maxEmptyReads {
		n, err := s.r.Read(s.buf[:])
		if n == 1 {
			return s.buf[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
	return 0, io.ErrNoProgress
}

var (
	_ io.ByteReader = (*Decoder)(nil)
	_ io.ReadCloser = (*Decoder)(nil)
)
