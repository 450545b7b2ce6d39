package output

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/dlindhol/jcdf/pkg/cdfmetrics"
	"github.com/dustin/go-humanize"
)

// TableFormatter outputs data in human-readable table format.
type TableFormatter struct{}

// maxRecordRows caps the record rows printed for one scan.
const maxRecordRows = 200

func (f *TableFormatter) WriteDecodeResults(w io.Writer, results []DecodeResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INPUT\tOUTPUT\tESCAPE\tCOMPRESSED\tDECODED\tRUNS\tRATIO")

	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t0x%02x\t%s\t%s\t%s\t%.2f\n",
			r.Input,
			r.Output,
			r.Escape,
			humanize.Bytes(uint64(r.CompressedBytes)),
			humanize.Bytes(uint64(r.DecodedBytes)),
			humanize.Comma(r.Runs),
			r.Ratio,
		)
	}

	return tw.Flush()
}

func (f *TableFormatter) WriteScanResult(w io.Writer, result ScanResult) error {
	fmt.Fprintln(w, "Record Scan")
	fmt.Fprintln(w, "===========")
	fmt.Fprintf(w, "File:        %s\n", result.File)
	if result.Kind != "" {
		fmt.Fprintf(w, "Kind:        %s\n", result.Kind)
	}
	fmt.Fprintf(w, "Records:     %s\n", humanize.Comma(int64(len(result.Records))))
	if result.Kind != "" {
		fmt.Fprintf(w, "Mismatches:  %s\n", humanize.Comma(int64(result.Mismatches)))
	}
	if result.Version != "" {
		fmt.Fprintf(w, "Version:     %s\n", result.Version)
	}
	if result.Compressed {
		fmt.Fprintln(w, "Compressed:  yes")
	}
	for i, line := range result.Copyright {
		label := ""
		if i == 0 {
			label = "Copyright:"
		}
		fmt.Fprintf(w, "%-12s %s\n", label, line)
	}
	if result.StopError != "" {
		fmt.Fprintf(w, "Stopped:     %s\n", result.StopError)
	}
	for _, d := range result.Diagnostics {
		fmt.Fprintf(w, "Warning:     %s\n", d)
	}

	if len(result.Records) == 0 {
		return nil
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OFFSET\tSIZE\tTYPE\tNAME\tSTATUS")

	limit := min(len(result.Records), maxRecordRows)
	for i := range limit {
		r := result.Records[i]
		status := r.Status
		if r.Detail != "" {
			status = fmt.Sprintf("%s (%s)", r.Status, r.Detail)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			humanize.Comma(r.Offset),
			humanize.Comma(r.Size),
			r.Type,
			r.TypeName,
			status,
		)
	}
	if len(result.Records) > maxRecordRows {
		fmt.Fprintf(tw, "...\t\t\t\t\n")
	}
	return tw.Flush()
}

func (f *TableFormatter) WriteIntArray(w io.Writer, arr IntArray) error {
	fmt.Fprintf(w, "%s @ %s (%d values)\n", arr.File, humanize.Comma(arr.Offset), len(arr.Values))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tVALUE\tHEX\t")
	for i, v := range arr.Values {
		fmt.Fprintf(tw, "%d\t%d\t0x%08x\t\n", i, v, uint32(v))
	}
	return tw.Flush()
}

func (f *TableFormatter) WriteCounters(w io.Writer, counters []cdfmetrics.Counter) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COUNTER\tTAGS\tVALUE")
	for _, c := range counters {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, formatTags(c.Tags), humanize.Comma(c.Value))
	}
	return tw.Flush()
}

func formatTags(tags map[string]string) string {
	if len(tags) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(tags))
	for _, k := range slices.Sorted(maps.Keys(tags)) {
		parts = append(parts, k+"="+tags[k])
	}
	return strings.Join(parts, ",")
}
