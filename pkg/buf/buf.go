// Package buf reads big-endian values from positioned byte sources.
package buf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrOutOfBounds = errors.New("read outside buffer bounds")
	ErrClosed      = errors.New("the buffer is closed")
)

// Buf is a positioned, big-endian byte source. Every read starts at the
// pointer's current offset and advances it by the number of bytes consumed.
type Buf interface {
	Length() int64
	ReadInt(ptr *Pointer) (int32, error)
	ReadLong(ptr *Pointer) (int64, error)
	ReadASCIIString(ptr *Pointer, n int) (string, error)
	// Reader returns a sequential reader starting at offset, suitable for
	// feeding a stream decoder.
	Reader(offset int64) io.Reader
}

// Bytes is a Buf backed by an in-memory slice.
type Bytes struct {
	data []byte
}

func NewBytes(data []byte) *Bytes {
	return &Bytes{data: data}
}

func (b *Bytes) Length() int64 {
	return int64(len(b.data))
}

func (b *Bytes) ReadInt(ptr *Pointer) (int32, error) {
	p, err := b.take(ptr, 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(p)), nil
}

func (b *Bytes) ReadLong(ptr *Pointer) (int64, error) {
	p, err := b.take(ptr, 8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(p)), nil
}

// ReadASCIIString consumes n bytes and returns the text up to the first NUL.
func (b *Bytes) ReadASCIIString(ptr *Pointer, n int) (string, error) {
	p, err := b.take(ptr, n)
	if err != nil {
		return "", err
	}
	return asciiz(p), nil
}

func (b *Bytes) Reader(offset int64) io.Reader {
	if offset < 0 || offset > int64(len(b.data)) {
		offset = int64(len(b.data))
	}
	return io.NewSectionReader(readerAt(b.data), offset, int64(len(b.data))-offset)
}

func (b *Bytes) take(ptr *Pointer, n int) ([]byte, error) {
	return slice(b.data, ptr, n)
}

func slice(data []byte, ptr *Pointer, n int) ([]byte, error) {
	off := ptr.Get()
	if n < 0 || off < 0 || off+int64(n) > int64(len(data)) {
		return nil, fmt.Errorf("%w: offset=%d length=%d size=%d", ErrOutOfBounds, off, n, len(data))
	}
	ptr.Set(off + int64(n))
	return data[off : off+int64(n)], nil
}

func asciiz(p []byte) string {
	for i, c := range p {
		if c == 0 {
			return string(p[:i])
		}
	}
	return string(p)
}

type readerAt []byte

func (r readerAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r)) {
		return 0, io.EOF
	}
	n := copy(p, r[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

var _ Buf = (*Bytes)(nil)
