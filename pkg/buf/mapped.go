package buf

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"
)

// Mapped is a read-only Buf backed by a memory-mapped file.
type Mapped struct {
	path     string
	fd       *os.File
	mmapData mmap.MMap
	closed   atomic.Bool
}

// OpenMapped maps the whole file at path read-only.
func OpenMapped(path string) (*Mapped, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	fi, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, fmt.Errorf("stat error: %w", err)
	}

	m := &Mapped{path: path, fd: fd}
	// zero length files cannot be mapped.
	if fi.Size() == 0 {
		return m, nil
	}

	mmapData, err := mmap.Map(fd, mmap.RDONLY, 0)
	if err != nil {
		fd.Close()
		return nil, fmt.Errorf("mmap error: %w", err)
	}
	m.mmapData = mmapData
	return m, nil
}

func (m *Mapped) Path() string {
	return m.path
}

func (m *Mapped) Length() int64 {
	return int64(len(m.mmapData))
}

func (m *Mapped) ReadInt(ptr *Pointer) (int32, error) {
	p, err := m.take(ptr, 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(p)), nil
}

func (m *Mapped) ReadLong(ptr *Pointer) (int64, error) {
	p, err := m.take(ptr, 8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(p)), nil
}

func (m *Mapped) ReadASCIIString(ptr *Pointer, n int) (string, error) {
	p, err := m.take(ptr, n)
	if err != nil {
		return "", err
	}
	return asciiz(p), nil
}

// Reader exposes the mapping from offset onwards. The reader must not be used
// after Close.
func (m *Mapped) Reader(offset int64) io.Reader {
	size := int64(len(m.mmapData))
	if offset < 0 || offset > size {
		offset = size
	}
	return io.NewSectionReader(readerAt(m.mmapData), offset, size-offset)
}

func (m *Mapped) take(ptr *Pointer, n int) ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	return slice(m.mmapData, ptr, n)
}

func (m *Mapped) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	if m.mmapData != nil {
		if err := m.mmapData.Unmap(); err != nil {
			_ = m.fd.Close()
			return fmt.Errorf("unmap error: %w", err)
		}
	}

	if err := m.fd.Close(); err != nil {
		return fmt.Errorf("file close error: %w", err)
	}
	return nil
}

var _ Buf = (*Mapped)(nil)
