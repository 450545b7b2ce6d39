package record

import (
	"fmt"
	"strings"

	"github.com/dlindhol/jcdf/pkg/buf"
	"github.com/dlindhol/jcdf/pkg/diag"
)

// IntReader is the part of buf.Buf needed to read integer arrays.
type IntReader interface {
	ReadInt(ptr *buf.Pointer) (int32, error)
}

// ReadIntArray reads count consecutive int32 values starting at ptr.
// Meant for small metadata arrays, not bulk variable data.
func ReadIntArray(src IntReader, ptr *buf.Pointer, count int) ([]int32, error) {
	if count < 0 {
		return nil, fmt.Errorf("record: negative int array length %d", count)
	}
	out := make([]int32, count)
	for i := range out {
		v, err := src.ReadInt(ptr)
		if err != nil {
			return nil, fmt.Errorf("record: read int %d of %d: %w", i, count, err)
		}
		out[i] = v
	}
	return out, nil
}

// SplitLines splits text into 0x0A terminated lines. No other line ending is
// recognised. A trailing fragment without a terminator is kept; a final
// terminator does not produce an empty last line.
func SplitLines(text string) []string {
	lines := make([]string, 0, strings.Count(text, "\n")+1)
	for len(text) > 0 {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:i])
		text = text[i+1:]
	}
	return lines
}

// CheckConstant returns actual unchanged. A field documented to always hold
// expected but holding something else is reported to sink as a warning;
// parsing goes on since real files are known to break these rules.
func CheckConstant(sink diag.Sink, field string, actual, expected int32) int32 {
	if actual != expected {
		if sink == nil {
			sink = diag.Discard
		}
		sink.Report(diag.Diagnostic{
			Field:    field,
			Message:  fmt.Sprintf("unexpected fixed value %d != %d", actual, expected),
			Actual:   int64(actual),
			Expected: int64(expected),
		})
	}
	return actual
}
