package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dlindhol/jcdf/cmd/cdfctl/config"
	"github.com/dlindhol/jcdf/internal/cdfctl/inspect"
	"github.com/dlindhol/jcdf/internal/cdfctl/output"
	"github.com/dlindhol/jcdf/pkg/cdfmetrics"
	"github.com/dlindhol/jcdf/pkg/diag"
	"github.com/dlindhol/jcdf/pkg/record"
	"github.com/uber-go/tally/v4"
	"github.com/urfave/cli/v2"
)

var (
	cfg     = config.Default()
	metrics tally.TestScope
)

func getFormatter(c *cli.Context) (output.Formatter, error) {
	format := c.String("format")
	if format != "table" && format != "json" {
		return nil, fmt.Errorf("invalid format %q: must be 'table' or 'json'", format)
	}
	return output.NewFormatter(output.Format(format)), nil
}

func main() {
	app := &cli.App{
		Name:    "cdfctl",
		Usage:   "CDF run-length decoding and record inspection",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "table",
				Usage:   "Output format: table, json",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML config file",
				EnvVars: []string{"CDFCTL_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "Print decoder counters after the command",
			},
		},
		Before: setup,
		After:  printMetrics,
		Commands: []*cli.Command{
			rleCommand(),
			recordCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) error {
	loaded, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	cfg = loaded

	levelName := cfg.LogConfig.LogLevel
	if c.IsSet("log-level") {
		levelName = c.String("log-level")
	}
	level, err := config.ParseLevel(levelName)
	if err != nil {
		return err
	}
	percents, err := config.ParseLevelPercents(cfg.LogConfig)
	if err != nil {
		return err
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(diag.NewSampledLogger(handler, level, percents))

	if c.Bool("metrics") {
		metrics = cdfmetrics.NewSnapshotScope("cdfctl")
		cdfmetrics.Install(metrics)
	}
	return nil
}

func printMetrics(c *cli.Context) error {
	if metrics == nil {
		return nil
	}
	formatter, err := getFormatter(c)
	if err != nil {
		return err
	}
	return formatter.WriteCounters(os.Stdout, cdfmetrics.Counters(metrics))
}

func rleCommand() *cli.Command {
	return &cli.Command{
		Name:  "rle",
		Usage: "Run-length stream commands",
		Subcommands: []*cli.Command{
			{
				Name:      "decode",
				Usage:     "Expand run-length encoded files",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "escape",
						Aliases: []string{"e"},
						Usage:   "Escape byte value (0-255)",
					},
					&cli.StringFlag{
						Name:    "out-dir",
						Aliases: []string{"o"},
						Usage:   "Directory for decoded files",
					},
					&cli.Int64Flag{
						Name:  "skip",
						Usage: "Leading bytes of each file to skip before decoding",
					},
					&cli.IntFlag{
						Name:    "parallelism",
						Aliases: []string{"j"},
						Usage:   "Files decoded at once",
					},
				},
				Action: rleDecodeAction,
			},
		},
	}
}

func recordCommand() *cli.Command {
	kindNames := make([]string, 0)
	for _, k := range record.Kinds() {
		kindNames = append(kindNames, k.String())
	}

	return &cli.Command{
		Name:  "record",
		Usage: "Record inspection commands",
		Subcommands: []*cli.Command{
			{
				Name:      "scan",
				Usage:     "List the records laid out in a file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:  "offset",
						Usage: "Offset of the first record (default: just past the magic)",
					},
					&cli.StringFlag{
						Name:  "layout",
						Usage: "Record size layout: auto, v3, v2",
					},
					&cli.BoolFlag{
						Name:  "narrow",
						Usage: "Shortcut for --layout v2",
					},
					&cli.StringFlag{
						Name:    "kind",
						Aliases: []string{"k"},
						Usage:   "Check every record against a kind: " + strings.Join(kindNames, ", "),
					},
				},
				Action: recordScanAction,
			},
			{
				Name:      "ints",
				Usage:     "Dump big-endian int32 values",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:     "offset",
						Required: true,
						Usage:    "Offset of the first value",
					},
					&cli.IntFlag{
						Name:     "count",
						Aliases:  []string{"n"},
						Required: true,
						Usage:    "Number of values",
					},
				},
				Action: recordIntsAction,
			},
		},
	}
}

func rleDecodeAction(c *cli.Context) error {
	formatter, err := getFormatter(c)
	if err != nil {
		return err
	}
	if c.NArg() == 0 {
		return errors.New("at least one input file is required")
	}

	escape := cfg.Decode.Escape
	if c.IsSet("escape") {
		escape = c.Int("escape")
	}
	if escape < 0 || escape > 255 {
		return fmt.Errorf("escape %d is not a byte value", escape)
	}
	outDir := cfg.Decode.OutDir
	if c.IsSet("out-dir") {
		outDir = c.String("out-dir")
	}
	parallelism := cfg.Decode.Parallelism
	if c.IsSet("parallelism") {
		parallelism = c.Int("parallelism")
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	jobs := inspect.JobsForDir(c.Args().Slice(), outDir, c.Int64("skip"))
	results, err := inspect.DecodeFiles(context.Background(), jobs, byte(escape), parallelism, cdfmetrics.Scope("rle"))
	if err != nil {
		return err
	}

	return formatter.WriteDecodeResults(os.Stdout, results)
}

func recordScanAction(c *cli.Context) error {
	formatter, err := getFormatter(c)
	if err != nil {
		return err
	}
	if c.NArg() != 1 {
		return errors.New("exactly one file is required")
	}

	opts := inspect.ScanOptions{
		Layout: inspect.Layout(cfg.Scan.Layout),
		Offset: cfg.Scan.Offset,
	}
	if c.IsSet("layout") {
		opts.Layout = inspect.Layout(c.String("layout"))
	}
	if c.Bool("narrow") {
		opts.Layout = inspect.LayoutV2
	}
	if c.IsSet("offset") {
		opts.Offset = c.Int64("offset")
	}
	if c.IsSet("kind") {
		kind, err := record.ParseKind(c.String("kind"))
		if err != nil {
			return err
		}
		opts.Kind = &kind
	}

	result, err := inspect.ScanRecords(c.Args().First(), opts)
	if err != nil {
		return err
	}

	return formatter.WriteScanResult(os.Stdout, *result)
}

func recordIntsAction(c *cli.Context) error {
	formatter, err := getFormatter(c)
	if err != nil {
		return err
	}
	if c.NArg() != 1 {
		return errors.New("exactly one file is required")
	}

	arr, err := inspect.ReadInts(c.Args().First(), c.Int64("offset"), c.Int("count"))
	if err != nil {
		return err
	}

	return formatter.WriteIntArray(os.Stdout, *arr)
}
