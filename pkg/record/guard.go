package record

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var (
	// ErrInvalidRecordType is matched by every InvalidRecordTypeError.
	ErrInvalidRecordType = errors.New("invalid record type")
	ErrBadPlan           = errors.New("bad record plan")
)

// InvalidRecordTypeError means the tag read from a record header is not one
// the parser for that record accepts. Either the file is corrupt or the
// offset handed to the parser is wrong; no field of the record can be trusted.
type InvalidRecordTypeError struct {
	Offset   int64
	Actual   Type
	Expected []Type
}

func (e *InvalidRecordTypeError) Error() string {
	var b strings.Builder
	b.WriteString("incorrect record type (")
	b.WriteString(strconv.Itoa(int(e.Actual)))
	if len(e.Expected) == 1 {
		b.WriteString(" != ")
		b.WriteString(strconv.Itoa(int(e.Expected[0])))
	} else {
		b.WriteString(" not in [")
		for i, t := range e.Expected {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Itoa(int(t)))
		}
		b.WriteString("]")
	}
	b.WriteString(") at offset ")
	b.WriteString(strconv.FormatInt(e.Offset, 10))
	return b.String()
}

func (e *InvalidRecordTypeError) Is(target error) bool {
	return target == ErrInvalidRecordType
}

// CheckType fails when accepted is non-empty and does not contain the plan's
// tag. No accepted tags means the caller is not committed to a type.
func CheckType(plan Plan, accepted ...Type) error {
	if len(accepted) == 0 || slices.Contains(accepted, plan.Type) {
		return nil
	}
	return &InvalidRecordTypeError{
		Offset:   plan.Offset,
		Actual:   plan.Type,
		Expected: slices.Clone(accepted),
	}
}

// Header is the part every concrete record shares. It can only be obtained
// through NewHeader, so holding one means the type check passed.
type Header struct {
	plan Plan
	kind Kind
}

// NewHeader validates plan against kind before anything else about the
// record is read. Concrete parsers call it first and embed the result.
func NewHeader(plan Plan, kind Kind) (Header, error) {
	if err := kind.Check(plan); err != nil {
		return Header{}, fmt.Errorf("record: build %s at offset %d: %w", kind, plan.Offset, err)
	}
	return Header{plan: plan, kind: kind}, nil
}

func (h Header) Plan() Plan {
	return h.plan
}

func (h Header) Kind() Kind {
	return h.kind
}

func (h Header) RecordType() Type {
	return h.plan.Type
}

// ContentOffset is where the record's fields start, just past the header.
func (h Header) ContentOffset() int64 {
	return h.plan.Offset + h.plan.HeaderSize
}
