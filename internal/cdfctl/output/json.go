package output

import (
	"encoding/json"
	"io"

	"github.com/dlindhol/jcdf/pkg/cdfmetrics"
)

// JSONFormatter outputs data in JSON format.
type JSONFormatter struct{}

func (f *JSONFormatter) WriteDecodeResults(w io.Writer, results []DecodeResult) error {
	return writeJSON(w, results)
}

func (f *JSONFormatter) WriteScanResult(w io.Writer, result ScanResult) error {
	if result.Records == nil {
		result.Records = []RecordInfo{}
	}
	return writeJSON(w, result)
}

func (f *JSONFormatter) WriteIntArray(w io.Writer, arr IntArray) error {
	if arr.Values == nil {
		arr.Values = []int32{}
	}
	return writeJSON(w, arr)
}

func (f *JSONFormatter) WriteCounters(w io.Writer, counters []cdfmetrics.Counter) error {
	if counters == nil {
		counters = []cdfmetrics.Counter{}
	}
	return writeJSON(w, counters)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
