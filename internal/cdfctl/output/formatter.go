package output

import (
	"io"

	"github.com/dlindhol/jcdf/pkg/cdfmetrics"
	"github.com/dlindhol/jcdf/pkg/diag"
)

// Format represents the output format type.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// DecodeResult describes one run-length decoded file.
type DecodeResult struct {
	Input           string  `json:"input"`
	Output          string  `json:"output"`
	Escape          uint8   `json:"escape"`
	Offset          int64   `json:"offset"`
	CompressedBytes int64   `json:"compressed_bytes"`
	DecodedBytes    int64   `json:"decoded_bytes"`
	Runs            int64   `json:"runs"`
	Ratio           float64 `json:"ratio"`
}

// RecordInfo is one record plan found by a scan.
type RecordInfo struct {
	Offset   int64  `json:"offset"`
	Size     int64  `json:"size"`
	Type     int32  `json:"type"`
	TypeName string `json:"type_name"`
	Status   string `json:"status"`
	Detail   string `json:"detail,omitempty"`
}

// ScanResult is the outcome of scanning a file for record plans.
type ScanResult struct {
	File        string            `json:"file"`
	Kind        string            `json:"kind,omitempty"`
	Compressed  bool              `json:"compressed"`
	Version     string            `json:"version,omitempty"`
	Copyright   []string          `json:"copyright,omitempty"`
	Records     []RecordInfo      `json:"records"`
	Mismatches  int               `json:"mismatches"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty"`
	StopError   string            `json:"stop_error,omitempty"`
}

// IntArray is a dumped int32 array.
type IntArray struct {
	File   string  `json:"file"`
	Offset int64   `json:"offset"`
	Values []int32 `json:"values"`
}

// Formatter is the interface for output formatting.
type Formatter interface {
	WriteDecodeResults(w io.Writer, results []DecodeResult) error
	WriteScanResult(w io.Writer, result ScanResult) error
	WriteIntArray(w io.Writer, arr IntArray) error
	WriteCounters(w io.Writer, counters []cdfmetrics.Counter) error
}

// NewFormatter creates a new formatter for the given format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	default:
		return &TableFormatter{}
	}
}
