package buf

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = []byte{
	0x00, 0x00, 0x00, 0x2A, // int 42
	0xFF, 0xFF, 0xFF, 0xFE, // int -2
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, // long 256
	'a', 'b', 'c', 0x00, 'x', // "abc" NUL padded
	0x7F,
}

func assertSequentialReads(t *testing.T, b Buf) {
	t.Helper()
	ptr := NewPointer(0)

	v, err := b.ReadInt(ptr)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)

	v, err = b.ReadInt(ptr)
	require.NoError(t, err)
	assert.Equal(t, int32(-2), v)
	assert.Equal(t, int64(8), ptr.Get())

	l, err := b.ReadLong(ptr)
	require.NoError(t, err)
	assert.Equal(t, int64(256), l)

	s, err := b.ReadASCIIString(ptr, 5)
	require.NoError(t, err)
	assert.Equal(t, "abc", s)

	s, err = b.ReadASCIIString(ptr, 1)
	require.NoError(t, err)
	assert.Equal(t, "\x7f", s)
	assert.Equal(t, b.Length(), ptr.Get())

	_, err = b.ReadASCIIString(ptr, 1)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, b.Length(), ptr.Get(), "failed read must not move the pointer")
}

func TestBytes_SequentialReads(t *testing.T) {
	assertSequentialReads(t, NewBytes(sample))
}

func TestBytes_ASCIIStringWithoutTerminator(t *testing.T) {
	s, err := NewBytes([]byte("full")).ReadASCIIString(NewPointer(0), 4)
	require.NoError(t, err)
	assert.Equal(t, "full", s)
}

func TestBytes_OutOfBounds(t *testing.T) {
	b := NewBytes([]byte{1, 2, 3})

	t.Run("int past end", func(t *testing.T) {
		_, err := b.ReadInt(NewPointer(0))
		assert.ErrorIs(t, err, ErrOutOfBounds)
	})

	t.Run("negative offset", func(t *testing.T) {
		_, err := b.ReadInt(NewPointer(-1))
		assert.ErrorIs(t, err, ErrOutOfBounds)
	})

	t.Run("negative length", func(t *testing.T) {
		_, err := b.ReadASCIIString(NewPointer(0), -1)
		assert.ErrorIs(t, err, ErrOutOfBounds)
	})
}

func TestBytes_Reader(t *testing.T) {
	b := NewBytes([]byte("hello world"))

	got, err := io.ReadAll(b.Reader(6))
	require.NoError(t, err)
	assert.Equal(t, "world", string(got))

	got, err = io.ReadAll(b.Reader(100))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPointer_GetAndIncrement(t *testing.T) {
	p := NewPointer(10)
	assert.Equal(t, int64(10), p.GetAndIncrement(4))
	assert.Equal(t, int64(14), p.Get())
	p.Set(2)
	assert.Equal(t, int64(2), p.Get())
}

func TestMapped(t *testing.T) {
	t.Run("reads like Bytes", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sample.cdf")
		require.NoError(t, os.WriteFile(path, sample, 0644))

		m, err := OpenMapped(path)
		require.NoError(t, err)
		defer m.Close()

		assert.Equal(t, path, m.Path())
		assertSequentialReads(t, m)

		got, err := io.ReadAll(m.Reader(16))
		require.NoError(t, err)
		assert.Equal(t, sample[16:], got)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.cdf")
		require.NoError(t, os.WriteFile(path, nil, 0644))

		m, err := OpenMapped(path)
		require.NoError(t, err)
		assert.Equal(t, int64(0), m.Length())

		_, err = m.ReadInt(NewPointer(0))
		assert.ErrorIs(t, err, ErrOutOfBounds)
		require.NoError(t, m.Close())
	})

	t.Run("closed buffer", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "closed.cdf")
		require.NoError(t, os.WriteFile(path, sample, 0644))

		m, err := OpenMapped(path)
		require.NoError(t, err)
		require.NoError(t, m.Close())
		require.NoError(t, m.Close())

		_, err = m.ReadInt(NewPointer(0))
		assert.ErrorIs(t, err, ErrClosed)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := OpenMapped(filepath.Join(t.TempDir(), "nope.cdf"))
		require.Error(t, err)
	})
}
