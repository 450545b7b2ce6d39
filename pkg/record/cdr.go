package record

import (
	"fmt"

	"github.com/dlindhol/jcdf/pkg/buf"
	"github.com/dlindhol/jcdf/pkg/diag"
)

// Copyright text lengths by format version.
const (
	copyrightLen   = 256
	copyrightLenV2 = 1945
)

// CDR is the CDF descriptor record, the first record of every file.
type CDR struct {
	Header
	GDROffset  int64
	Version    int32
	Release    int32
	Encoding   int32
	Flags      int32
	RfuA       int32
	RfuB       int32
	Increment  int32
	Identifier int32
	RfuE       int32
	// Copyright holds the NUL-terminated copyright text split into lines.
	Copyright []string
}

// ReadCDR parses the descriptor record located by plan. Reserved fields
// holding unexpected values are reported to sink and parsing continues.
func ReadCDR(b buf.Buf, plan Plan, sink diag.Sink) (*CDR, error) {
	h, err := NewHeader(plan, KindCDR)
	if err != nil {
		return nil, err
	}

	cdr := &CDR{Header: h}
	ptr := buf.NewPointer(h.ContentOffset())
	if cdr.GDROffset, err = readWord(b, ptr, plan.Wide()); err != nil {
		return nil, fmt.Errorf("record: CDR GDR offset: %w", err)
	}

	var fields [9]int32
	for i := range fields {
		if fields[i], err = b.ReadInt(ptr); err != nil {
			return nil, fmt.Errorf("record: CDR field %d: %w", i, err)
		}
	}
	cdr.Version = fields[0]
	cdr.Release = fields[1]
	cdr.Encoding = fields[2]
	cdr.Flags = fields[3]
	cdr.RfuA = CheckConstant(sink, "rfuA", fields[4], 0)
	cdr.RfuB = CheckConstant(sink, "rfuB", fields[5], 0)
	cdr.Increment = fields[6]
	cdr.Identifier = fields[7]
	cdr.RfuE = CheckConstant(sink, "rfuE", fields[8], -1)

	n := int64(copyrightLenV2)
	if cdr.Version > 2 || (cdr.Version == 2 && cdr.Release >= 5) {
		n = copyrightLen
	}
	n = min(n, plan.End()-ptr.Get())
	text, err := b.ReadASCIIString(ptr, int(n))
	if err != nil {
		return nil, fmt.Errorf("record: CDR copyright: %w", err)
	}
	cdr.Copyright = SplitLines(text)
	return cdr, nil
}

// VersionString formats the library version that wrote the file.
func (c *CDR) VersionString() string {
	return fmt.Sprintf("%d.%d.%d", c.Version, c.Release, c.Increment)
}
