package inspect

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dlindhol/jcdf/internal/cdfctl/output"
	"github.com/dlindhol/jcdf/pkg/buf"
	"github.com/dlindhol/jcdf/pkg/diag"
	"github.com/dlindhol/jcdf/pkg/record"
)

// File magic numbers. The first word gives the format version, the second
// whether the file body is compressed.
const (
	MagicV3           uint32 = 0xCDF30001
	MagicV26          uint32 = 0xCDF26002
	MagicV20          uint32 = 0x0000FFFF
	MagicUncompressed uint32 = 0x0000FFFF
	MagicCompressed   uint32 = 0xCCCC0001
	magicSize                = 8
)

var ErrUnknownMagic = errors.New("not a CDF file: unknown magic number")

// Layout selects how record sizes are stored.
type Layout string

const (
	LayoutAuto Layout = "auto"
	LayoutV3   Layout = "v3"
	LayoutV2   Layout = "v2"
)

// ScanOptions control ScanRecords.
type ScanOptions struct {
	Layout Layout
	// Offset of the first record. Zero means just past the file magic.
	Offset int64
	// Kind, when set, is checked against every record.
	Kind *record.Kind
	// Sink receives soft diagnostics in addition to ScanResult.Diagnostics.
	// Nil logs them as warnings on the default logger.
	Sink diag.Sink
}

// DetectWide reports whether the file uses v3 (64-bit) record sizes.
func DetectWide(b buf.Buf) (bool, error) {
	magic, err := b.ReadInt(buf.NewPointer(0))
	if err != nil {
		return false, fmt.Errorf("read magic: %w", err)
	}
	switch uint32(magic) {
	case MagicV3:
		return true, nil
	case MagicV26, MagicV20:
		return false, nil
	}
	return false, fmt.Errorf("%w 0x%08x", ErrUnknownMagic, uint32(magic))
}

// checkCompression reads the second magic word. Values other than the two
// known ones are reported to sink and treated as uncompressed.
func checkCompression(b buf.Buf, sink diag.Sink) (bool, error) {
	word, err := b.ReadInt(buf.NewPointer(4))
	if err != nil {
		return false, fmt.Errorf("read magic: %w", err)
	}
	if uint32(word) == MagicCompressed {
		return true, nil
	}
	record.CheckConstant(sink, "magic2", word, int32(MagicUncompressed))
	return false, nil
}

func resolveWide(b buf.Buf, layout Layout) (bool, error) {
	switch layout {
	case LayoutV3:
		return true, nil
	case LayoutV2:
		return false, nil
	case LayoutAuto, "":
		return DetectWide(b)
	}
	return false, fmt.Errorf("unknown layout %q", layout)
}

// ScanRecords lists the record plans of path laid out back to back. A plan
// that cannot be read ends the scan; the records found so far are still
// returned along with the reason in StopError.
func ScanRecords(path string, opts ScanOptions) (*output.ScanResult, error) {
	b, err := buf.OpenMapped(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer b.Close()

	wide, err := resolveWide(b, opts.Layout)
	if err != nil {
		return nil, err
	}
	offset := opts.Offset
	if offset == 0 {
		offset = magicSize
	}

	collector := diag.NewCollector()
	report := opts.Sink
	if report == nil {
		report = diag.NewLogSink(slog.Default())
	}
	sink := diag.Tee(collector, report)

	result := &output.ScanResult{File: path, Records: []output.RecordInfo{}}
	if opts.Kind != nil {
		result.Kind = opts.Kind.String()
	}
	if result.Compressed, err = checkCompression(b, sink); err != nil {
		return nil, err
	}

	scanner := record.NewPlanScanner(b, offset, wide)
	for scanner.Scan() {
		plan := scanner.Plan()
		info := output.RecordInfo{
			Offset:   plan.Offset,
			Size:     plan.Size,
			Type:     int32(plan.Type),
			TypeName: plan.Type.String(),
			Status:   "-",
		}
		if opts.Kind != nil {
			info.Status = "ok"
			if _, err := record.NewHeader(plan, *opts.Kind); err != nil {
				info.Status = "mismatch"
				info.Detail = err.Error()
				result.Mismatches++
			}
		}
		if plan.Type == record.TypeCDR && result.Version == "" {
			describeCDR(b, plan, sink, result)
		}
		result.Records = append(result.Records, info)
	}

	if err := scanner.Err(); err != nil {
		slog.Warn("[cdf.inspect] record scan stopped",
			slog.String("event_type", "record.scan.stopped"),
			slog.String("file", path),
			slog.Int("records", len(result.Records)),
			slog.Any("error", err),
		)
		result.StopError = err.Error()
	}
	result.Diagnostics = collector.All()
	return result, nil
}

func describeCDR(b buf.Buf, plan record.Plan, sink diag.Sink, result *output.ScanResult) {
	cdr, err := record.ReadCDR(b, plan, sink)
	if err != nil {
		slog.Warn("[cdf.inspect] descriptor record unreadable",
			slog.String("event_type", "record.cdr.unreadable"),
			slog.String("file", result.File),
			slog.Int64("offset", plan.Offset),
			slog.Any("error", err),
		)
		return
	}
	result.Version = cdr.VersionString()
	result.Copyright = cdr.Copyright
}

// MaxIntCount bounds ReadInts; bulk data has no business going through it.
const MaxIntCount = 1 << 16

// ReadInts dumps count int32 values starting at offset.
func ReadInts(path string, offset int64, count int) (*output.IntArray, error) {
	if count > MaxIntCount {
		return nil, fmt.Errorf("count %d exceeds maximum %d", count, MaxIntCount)
	}
	b, err := buf.OpenMapped(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer b.Close()

	values, err := record.ReadIntArray(b, buf.NewPointer(offset), count)
	if err != nil {
		return nil, err
	}
	return &output.IntArray{File: path, Offset: offset, Values: values}, nil
}
