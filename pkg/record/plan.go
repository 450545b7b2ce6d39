package record

import (
	"fmt"

	"github.com/dlindhol/jcdf/pkg/buf"
)

const (
	// v3 files store the record size as int64.
	wideHeaderSize = 8 + 4
	// v2 files store the record size as int32.
	narrowHeaderSize = 4 + 4
)

// Plan locates a record and carries the type tag read from its header. It is
// produced before any record parser runs.
type Plan struct {
	Offset     int64 `json:"offset"`
	Size       int64 `json:"size"`
	Type       Type  `json:"type"`
	HeaderSize int64 `json:"header_size"`
}

func (p Plan) End() int64 {
	return p.Offset + p.Size
}

// Wide reports whether the record uses the v3 layout with 64-bit sizes and
// offsets.
func (p Plan) Wide() bool {
	return p.HeaderSize == wideHeaderSize
}

func (p Plan) String() string {
	return fmt.Sprintf("%s@%d+%d", p.Type, p.Offset, p.Size)
}

// HeaderSize returns the generic record header length.
func HeaderSize(wide bool) int64 {
	if wide {
		return wideHeaderSize
	}
	return narrowHeaderSize
}

// ReadPlan reads the record header at offset: the record size followed by
// the int32 type tag.
func ReadPlan(b buf.Buf, offset int64, wide bool) (Plan, error) {
	ptr := buf.NewPointer(offset)
	size, err := readWord(b, ptr, wide)
	if err != nil {
		return Plan{}, fmt.Errorf("record: read size at offset %d: %w", offset, err)
	}
	tag, err := b.ReadInt(ptr)
	if err != nil {
		return Plan{}, fmt.Errorf("record: read type at offset %d: %w", offset, err)
	}

	plan := Plan{
		Offset:     offset,
		Size:       size,
		Type:       Type(tag),
		HeaderSize: HeaderSize(wide),
	}
	if size < plan.HeaderSize {
		return Plan{}, fmt.Errorf("%w: size %d at offset %d is smaller than its header", ErrBadPlan, size, offset)
	}
	// Compare against the room left so a huge size cannot wrap End.
	if size > b.Length()-offset {
		return Plan{}, fmt.Errorf("%w: record at offset %d of size %d runs past end %d", ErrBadPlan, offset, size, b.Length())
	}
	return plan, nil
}

// readWord reads a size or offset field: int64 in v3 files, int32 before.
func readWord(b buf.Buf, ptr *buf.Pointer, wide bool) (int64, error) {
	if wide {
		return b.ReadLong(ptr)
	}
	v, err := b.ReadInt(ptr)
	return int64(v), err
}

// PlanScanner walks records laid out back to back. It stops without error at
// the end of the buffer, when fewer bytes than a header remain, or at a zero
// size field (padding).
type PlanScanner struct {
	b    buf.Buf
	wide bool
	next int64
	plan Plan
	err  error
}

func NewPlanScanner(b buf.Buf, offset int64, wide bool) *PlanScanner {
	return &PlanScanner{b: b, wide: wide, next: offset}
}

func (s *PlanScanner) Scan() bool {
	if s.err != nil {
		return false
	}
	if s.b.Length()-s.next < HeaderSize(s.wide) {
		return false
	}

	size, err := readWord(s.b, buf.NewPointer(s.next), s.wide)
	if err != nil {
		s.err = err
		return false
	}
	if size == 0 {
		return false
	}

	plan, err := ReadPlan(s.b, s.next, s.wide)
	if err != nil {
		s.err = err
		return false
	}
	s.plan = plan
	s.next = plan.End()
	return true
}

// Plan returns the plan found by the last successful Scan.
func (s *PlanScanner) Plan() Plan {
	return s.plan
}

func (s *PlanScanner) Err() error {
	return s.err
}
