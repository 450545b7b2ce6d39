package inspect

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dlindhol/jcdf/internal/cdfctl/output"
	"github.com/dlindhol/jcdf/pkg/buf"
	"github.com/dlindhol/jcdf/pkg/rle"
	"github.com/uber-go/tally/v4"
	"golang.org/x/sync/errgroup"
)

// DecodeJob names one compressed input and where its decoded bytes go.
type DecodeJob struct {
	Input  string
	Output string
	// Offset skips that many leading bytes of Input, e.g. a record header.
	Offset int64
}

// JobsForDir builds one job per input, writing <outDir>/<base>.decoded.
func JobsForDir(inputs []string, outDir string, offset int64) []DecodeJob {
	jobs := make([]DecodeJob, 0, len(inputs))
	for _, in := range inputs {
		jobs = append(jobs, DecodeJob{
			Input:  in,
			Output: filepath.Join(outDir, filepath.Base(in)+".decoded"),
			Offset: offset,
		})
	}
	return jobs
}

// DecodeFile expands the run-length stream in job.Input into job.Output.
// A partially written output is removed on failure.
func DecodeFile(job DecodeJob, escape byte, scope tally.Scope) (output.DecodeResult, error) {
	in, err := buf.OpenMapped(job.Input)
	if err != nil {
		return output.DecodeResult{}, fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()
	if job.Offset < 0 || job.Offset > in.Length() {
		return output.DecodeResult{}, fmt.Errorf("offset %d outside %s of %d bytes", job.Offset, job.Input, in.Length())
	}

	out, err := os.Create(job.Output)
	if err != nil {
		return output.DecodeResult{}, fmt.Errorf("failed to create output: %w", err)
	}

	dec := rle.NewDecoder(bufio.NewReader(in.Reader(job.Offset)), escape, rle.WithMetrics(scope))
	bw := bufio.NewWriter(out)
	_, copyErr := io.Copy(bw, dec)
	if copyErr == nil {
		copyErr = bw.Flush()
	}
	closeErr := errors.Join(dec.Close(), out.Close())

	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(job.Output)
		slog.Warn("[cdf.inspect] decode failed",
			slog.String("event_type", "rle.decode.failed"),
			slog.String("input", job.Input),
			slog.Int64("compressed_offset", dec.Stats().CompressedBytes),
			slog.Any("error", err),
		)
		return output.DecodeResult{}, fmt.Errorf("decode %s: %w", job.Input, err)
	}

	stats := dec.Stats()
	result := output.DecodeResult{
		Input:           job.Input,
		Output:          job.Output,
		Escape:          escape,
		Offset:          job.Offset,
		CompressedBytes: stats.CompressedBytes,
		DecodedBytes:    stats.DecodedBytes,
		Runs:            stats.Runs,
	}
	if stats.CompressedBytes > 0 {
		result.Ratio = float64(stats.DecodedBytes) / float64(stats.CompressedBytes)
	}

	slog.Debug("[cdf.inspect] decoded",
		slog.String("event_type", "rle.decode.done"),
		slog.String("input", job.Input),
		slog.Int64("compressed", stats.CompressedBytes),
		slog.Int64("decoded", stats.DecodedBytes),
	)
	return result, nil
}

// DecodeFiles runs DecodeFile for every job with at most parallelism jobs in
// flight. Results keep the order of jobs. The first failure cancels jobs
// that have not started yet.
func DecodeFiles(ctx context.Context, jobs []DecodeJob, escape byte, parallelism int, scope tally.Scope) ([]output.DecodeResult, error) {
	if parallelism < 1 {
		parallelism = 1
	}
	results := make([]output.DecodeResult, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := DecodeFile(job, escape, scope)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
