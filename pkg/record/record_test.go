package record

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/dlindhol/jcdf/pkg/buf"
	"github.com/dlindhol/jcdf/pkg/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appendRecord appends a record header plus payload in v3 (wide) or v2 layout.
func appendRecord(dst []byte, wide bool, typ Type, payload []byte) []byte {
	size := HeaderSize(wide) + int64(len(payload))
	if wide {
		dst = binary.BigEndian.AppendUint64(dst, uint64(size))
	} else {
		dst = binary.BigEndian.AppendUint32(dst, uint32(size))
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(int32(typ)))
	return append(dst, payload...)
}

func TestCheckType(t *testing.T) {
	plan := Plan{Offset: 320, Size: 64, Type: TypeGDR}

	tests := []struct {
		name     string
		accepted []Type
		wantErr  bool
	}{
		{name: "absent set accepts anything", accepted: nil},
		{name: "single match", accepted: []Type{TypeGDR}},
		{name: "single mismatch", accepted: []Type{TypeCDR}, wantErr: true},
		{name: "multi match", accepted: []Type{TypeCDR, TypeGDR}},
		{name: "multi mismatch", accepted: []Type{TypeRVDR, TypeZVDR}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckType(plan, tt.accepted...)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidRecordType)
			var typeErr *InvalidRecordTypeError
			require.ErrorAs(t, err, &typeErr)
			assert.Equal(t, TypeGDR, typeErr.Actual)
			assert.Equal(t, int64(320), typeErr.Offset)
			assert.Equal(t, tt.accepted, typeErr.Expected)
		})
	}
}

func TestCheckType_AbsentSetIgnoresTag(t *testing.T) {
	for _, tag := range []Type{-5, TypeUIR, 0, TypeCDR, 99} {
		assert.NoError(t, CheckType(Plan{Type: tag}))
	}
}

func TestInvalidRecordTypeError_Message(t *testing.T) {
	single := CheckType(Plan{Offset: 8, Type: 2}, TypeCDR)
	require.Error(t, single)
	assert.Equal(t, "incorrect record type (2 != 1) at offset 8", single.Error())

	multi := CheckType(Plan{Offset: 16, Type: 4}, TypeRVDR, TypeZVDR)
	require.Error(t, multi)
	assert.Equal(t, "incorrect record type (4 not in [3, 8]) at offset 16", multi.Error())
}

func TestCheckType_DoesNotAliasAccepted(t *testing.T) {
	accepted := []Type{TypeCDR}
	err := CheckType(Plan{Type: TypeGDR}, accepted...)
	accepted[0] = TypeVXR

	var typeErr *InvalidRecordTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, []Type{TypeCDR}, typeErr.Expected)
}

func TestKind_Accepts(t *testing.T) {
	assert.Nil(t, KindAny.Accepts())
	assert.Equal(t, []Type{TypeRVDR, TypeZVDR}, KindVDR.Accepts())
	assert.Equal(t, []Type{TypeAgrEDR, TypeAzEDR}, KindAEDR.Accepts())
	assert.Equal(t, []Type{TypeUIR}, KindUIR.Accepts())

	got := KindCDR.Accepts()
	got[0] = TypeVVR
	assert.Equal(t, []Type{TypeCDR}, KindCDR.Accepts(), "Accepts must return a copy")
}

func TestKind_Check(t *testing.T) {
	for _, tag := range []Type{TypeRVDR, TypeZVDR} {
		assert.NoError(t, KindVDR.Check(Plan{Type: tag}))
	}
	assert.ErrorIs(t, KindVDR.Check(Plan{Type: TypeADR}), ErrInvalidRecordType)
	assert.NoError(t, KindAny.Check(Plan{Type: 1234}))

	err := Kind(200).Check(Plan{Type: TypeCDR})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidRecordType)
}

func TestKind_EveryKindAcceptsItsOwnTags(t *testing.T) {
	for _, k := range Kinds() {
		for _, tag := range k.Accepts() {
			assert.NoError(t, k.Check(Plan{Type: tag}), "kind %s tag %s", k, tag)
		}
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" VDR ")
	require.NoError(t, err)
	assert.Equal(t, KindVDR, k)

	for _, want := range Kinds() {
		got, err := ParseKind(want.String())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = ParseKind("bogus")
	assert.Error(t, err)
}

func TestType_String(t *testing.T) {
	assert.Equal(t, "zVDR", TypeZVDR.String())
	assert.Equal(t, "UIR", TypeUIR.String())
	assert.Equal(t, "Type(42)", Type(42).String())
	assert.Equal(t, "vdr", KindVDR.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestNewHeader(t *testing.T) {
	t.Run("matching kind", func(t *testing.T) {
		plan := Plan{Offset: 8, Size: 312, Type: TypeCDR, HeaderSize: 12}
		h, err := NewHeader(plan, KindCDR)
		require.NoError(t, err)
		assert.Equal(t, plan, h.Plan())
		assert.Equal(t, KindCDR, h.Kind())
		assert.Equal(t, TypeCDR, h.RecordType())
		assert.Equal(t, int64(20), h.ContentOffset())
	})

	t.Run("mismatch yields no header", func(t *testing.T) {
		h, err := NewHeader(Plan{Offset: 8, Type: TypeGDR}, KindCDR)
		require.ErrorIs(t, err, ErrInvalidRecordType)
		assert.Contains(t, err.Error(), "build cdr at offset 8")
		assert.Equal(t, Header{}, h)
	})
}

// cdrStub stands in for a concrete parser: it must not touch fields when the
// type check fails.
type cdrStub struct {
	Header
	version int32
}

func parseCDRStub(b buf.Buf, plan Plan) (*cdrStub, error) {
	h, err := NewHeader(plan, KindCDR)
	if err != nil {
		return nil, err
	}
	v, err := b.ReadInt(buf.NewPointer(h.ContentOffset()))
	if err != nil {
		return nil, err
	}
	return &cdrStub{Header: h, version: v}, nil
}

type countingBuf struct {
	buf.Buf
	reads int
}

func (c *countingBuf) ReadInt(ptr *buf.Pointer) (int32, error) {
	c.reads++
	return c.Buf.ReadInt(ptr)
}

func TestGuard_RunsBeforeFieldReads(t *testing.T) {
	data := appendRecord(nil, true, TypeGDR, []byte{0, 0, 0, 3})
	b := &countingBuf{Buf: buf.NewBytes(data)}

	plan, err := ReadPlan(buf.NewBytes(data), 0, true)
	require.NoError(t, err)

	_, err = parseCDRStub(b, plan)
	require.ErrorIs(t, err, ErrInvalidRecordType)
	assert.Equal(t, 0, b.reads)

	good := appendRecord(nil, true, TypeCDR, []byte{0, 0, 0, 3})
	plan, err = ReadPlan(buf.NewBytes(good), 0, true)
	require.NoError(t, err)
	rec, err := parseCDRStub(buf.NewBytes(good), plan)
	require.NoError(t, err)
	assert.Equal(t, int32(3), rec.version)
}

func TestReadPlan(t *testing.T) {
	t.Run("wide", func(t *testing.T) {
		data := appendRecord([]byte{0xCD, 0xF3, 0, 1}, true, TypeADR, make([]byte, 20))
		plan, err := ReadPlan(buf.NewBytes(data), 4, true)
		require.NoError(t, err)
		assert.Equal(t, Plan{Offset: 4, Size: 32, Type: TypeADR, HeaderSize: 12}, plan)
		assert.Equal(t, int64(36), plan.End())
		assert.Equal(t, "ADR@4+32", plan.String())
	})

	t.Run("narrow", func(t *testing.T) {
		data := appendRecord(nil, false, TypeUIR, make([]byte, 4))
		plan, err := ReadPlan(buf.NewBytes(data), 0, false)
		require.NoError(t, err)
		assert.Equal(t, Plan{Offset: 0, Size: 12, Type: TypeUIR, HeaderSize: 8}, plan)
	})

	t.Run("size smaller than header", func(t *testing.T) {
		data := binary.BigEndian.AppendUint64(nil, 4)
		data = binary.BigEndian.AppendUint32(data, 1)
		_, err := ReadPlan(buf.NewBytes(data), 0, true)
		assert.ErrorIs(t, err, ErrBadPlan)
	})

	t.Run("runs past end", func(t *testing.T) {
		data := appendRecord(nil, true, TypeCDR, make([]byte, 8))
		_, err := ReadPlan(buf.NewBytes(data[:len(data)-1]), 0, true)
		assert.ErrorIs(t, err, ErrBadPlan)
	})

	t.Run("size overflowing the offset", func(t *testing.T) {
		data := []byte{0xCD, 0xF3, 0, 1, 0, 0, 0xFF, 0xFF}
		data = binary.BigEndian.AppendUint64(data, math.MaxInt64)
		data = binary.BigEndian.AppendUint32(data, uint32(TypeCDR))
		_, err := ReadPlan(buf.NewBytes(data), 8, true)
		assert.ErrorIs(t, err, ErrBadPlan)

		s := NewPlanScanner(buf.NewBytes(data), 8, true)
		assert.False(t, s.Scan())
		assert.ErrorIs(t, s.Err(), ErrBadPlan)
	})

	t.Run("truncated header", func(t *testing.T) {
		_, err := ReadPlan(buf.NewBytes([]byte{0, 0, 0}), 0, false)
		assert.ErrorIs(t, err, buf.ErrOutOfBounds)
	})
}

func TestPlanScanner(t *testing.T) {
	var data []byte
	data = appendRecord(data, true, TypeCDR, make([]byte, 4))
	data = appendRecord(data, true, TypeGDR, make([]byte, 8))
	data = appendRecord(data, true, TypeRVDR, nil)

	t.Run("walks back to back records", func(t *testing.T) {
		s := NewPlanScanner(buf.NewBytes(data), 0, true)
		var types []Type
		var offsets []int64
		for s.Scan() {
			types = append(types, s.Plan().Type)
			offsets = append(offsets, s.Plan().Offset)
		}
		require.NoError(t, s.Err())
		assert.Equal(t, []Type{TypeCDR, TypeGDR, TypeRVDR}, types)
		assert.Equal(t, []int64{0, 16, 36}, offsets)
	})

	t.Run("stops at zero padding", func(t *testing.T) {
		padded := append(append([]byte{}, data...), make([]byte, 32)...)
		s := NewPlanScanner(buf.NewBytes(padded), 0, true)
		n := 0
		for s.Scan() {
			n++
		}
		require.NoError(t, s.Err())
		assert.Equal(t, 3, n)
	})

	t.Run("reports a corrupt size", func(t *testing.T) {
		bad := append(append([]byte{}, data...), 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 1)
		s := NewPlanScanner(buf.NewBytes(bad), 0, true)
		n := 0
		for s.Scan() {
			n++
		}
		assert.Equal(t, 3, n)
		assert.ErrorIs(t, s.Err(), ErrBadPlan)
		assert.False(t, s.Scan())
	})
}

func TestReadIntArray(t *testing.T) {
	var data []byte
	for _, v := range []int32{7, -1, 0, 1 << 30} {
		data = binary.BigEndian.AppendUint32(data, uint32(v))
	}
	b := buf.NewBytes(data)

	t.Run("reads and advances", func(t *testing.T) {
		ptr := buf.NewPointer(4)
		got, err := ReadIntArray(b, ptr, 3)
		require.NoError(t, err)
		assert.Equal(t, []int32{-1, 0, 1 << 30}, got)
		assert.Equal(t, int64(16), ptr.Get())
	})

	t.Run("zero count", func(t *testing.T) {
		got, err := ReadIntArray(b, buf.NewPointer(0), 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("negative count", func(t *testing.T) {
		_, err := ReadIntArray(b, buf.NewPointer(0), -1)
		assert.Error(t, err)
	})

	t.Run("past end", func(t *testing.T) {
		_, err := ReadIntArray(b, buf.NewPointer(8), 3)
		assert.ErrorIs(t, err, buf.ErrOutOfBounds)
	})
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: []string{}},
		{in: "a", want: []string{"a"}},
		{in: "a\nb", want: []string{"a", "b"}},
		{in: "a\nb\n", want: []string{"a", "b"}},
		{in: "\n", want: []string{""}},
		{in: "a\n\nb", want: []string{"a", "", "b"}},
		{in: "a\r\nb", want: []string{"a\r", "b"}},
		{in: "Common Data Format (CDF)\nhttps://cdf.gsfc.nasa.gov\n", want: []string{"Common Data Format (CDF)", "https://cdf.gsfc.nasa.gov"}},
	}

	for _, tt := range tests {
		got := SplitLines(tt.in)
		require.NotNil(t, got)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestCheckConstant(t *testing.T) {
	t.Run("match is silent", func(t *testing.T) {
		c := diag.NewCollector()
		assert.Equal(t, int32(5), CheckConstant(c, "rfuA", 5, 5))
		assert.Equal(t, 0, c.Len())
	})

	t.Run("mismatch reports once and keeps the value", func(t *testing.T) {
		c := diag.NewCollector()
		assert.Equal(t, int32(5), CheckConstant(c, "rfuA", 5, 7))
		require.Equal(t, 1, c.Len())

		d := c.All()[0]
		assert.Equal(t, "rfuA", d.Field)
		assert.Equal(t, int64(5), d.Actual)
		assert.Equal(t, int64(7), d.Expected)
		assert.Equal(t, "unexpected fixed value 5 != 7", d.Message)
	})

	t.Run("nil sink", func(t *testing.T) {
		assert.NotPanics(t, func() {
			assert.Equal(t, int32(-1), CheckConstant(nil, "rfuE", -1, 0))
		})
	})
}

func TestErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrBadPlan, ErrInvalidRecordType))
}

func cdrPayload(wide bool, version, release, rfuA int32, copyright string, crLen int) []byte {
	var p []byte
	if wide {
		p = binary.BigEndian.AppendUint64(p, 312)
	} else {
		p = binary.BigEndian.AppendUint32(p, 312)
	}
	for _, v := range []int32{version, release, 2, 3, rfuA, 0, 1, 0, -1} {
		p = binary.BigEndian.AppendUint32(p, uint32(v))
	}
	text := make([]byte, crLen)
	copy(text, copyright)
	return append(p, text...)
}

func TestReadCDR(t *testing.T) {
	t.Run("v3 descriptor", func(t *testing.T) {
		data := appendRecord(nil, true, TypeCDR, cdrPayload(true, 3, 9, 0, "Common Data Format (CDF)\nNASA\n", 256))
		plan, err := ReadPlan(buf.NewBytes(data), 0, true)
		require.NoError(t, err)
		assert.True(t, plan.Wide())

		collector := diag.NewCollector()
		cdr, err := ReadCDR(buf.NewBytes(data), plan, collector)
		require.NoError(t, err)

		assert.Equal(t, int64(312), cdr.GDROffset)
		assert.Equal(t, "3.9.1", cdr.VersionString())
		assert.Equal(t, int32(2), cdr.Encoding)
		assert.Equal(t, int32(-1), cdr.RfuE)
		assert.Equal(t, KindCDR, cdr.Kind())
		assert.Equal(t, []string{"Common Data Format (CDF)", "NASA"}, cdr.Copyright)
		assert.Zero(t, collector.Len())
	})

	t.Run("reserved field mismatch is reported once", func(t *testing.T) {
		data := appendRecord(nil, true, TypeCDR, cdrPayload(true, 3, 8, 7, "x", 256))
		plan, err := ReadPlan(buf.NewBytes(data), 0, true)
		require.NoError(t, err)

		collector := diag.NewCollector()
		cdr, err := ReadCDR(buf.NewBytes(data), plan, collector)
		require.NoError(t, err)
		assert.Equal(t, int32(7), cdr.RfuA)

		require.Equal(t, 1, collector.Len())
		d := collector.All()[0]
		assert.Equal(t, "rfuA", d.Field)
		assert.Equal(t, int64(7), d.Actual)
		assert.Equal(t, int64(0), d.Expected)
	})

	t.Run("old v2 copyright is clamped to the record", func(t *testing.T) {
		data := appendRecord(nil, false, TypeCDR, cdrPayload(false, 2, 4, 0, "old", 100))
		plan, err := ReadPlan(buf.NewBytes(data), 0, false)
		require.NoError(t, err)
		assert.False(t, plan.Wide())

		cdr, err := ReadCDR(buf.NewBytes(data), plan, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"old"}, cdr.Copyright)
	})

	t.Run("wrong record type fails before any field", func(t *testing.T) {
		data := appendRecord(nil, true, TypeGDR, cdrPayload(true, 3, 9, 0, "", 256))
		plan, err := ReadPlan(buf.NewBytes(data), 0, true)
		require.NoError(t, err)

		src := &countingBuf{Buf: buf.NewBytes(data)}
		_, err = ReadCDR(src, plan, nil)
		assert.ErrorIs(t, err, ErrInvalidRecordType)
		assert.Zero(t, src.reads)
	})
}
