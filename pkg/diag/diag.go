// Package diag carries non-fatal parse diagnostics.
//
// Parsers never log soft problems through a global logger. They report a
// Diagnostic to a Sink handed to them by the caller, which decides whether
// to collect, log, or drop it.
package diag

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

const (
	// EventTypeKey is the slog attribute naming the kind of event.
	EventTypeKey = "event_type"
	// EventConstantMismatch tags diagnostics emitted by LogSink.
	EventConstantMismatch = "record.constant.mismatch"
	// DiagnosticLevel is the level LogSink logs at.
	DiagnosticLevel = slog.LevelWarn
)

// Diagnostic describes one unexpected but tolerated value.
type Diagnostic struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Actual   int64  `json:"actual"`
	Expected int64  `json:"expected"`
}

func (d Diagnostic) String() string {
	if d.Field == "" {
		return d.Message
	}
	return fmt.Sprintf("%s: %s", d.Field, d.Message)
}

type Sink interface {
	Report(d Diagnostic)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(d Diagnostic)

func (f SinkFunc) Report(d Diagnostic) {
	f(d)
}

// Discard drops every diagnostic.
var Discard Sink = SinkFunc(func(Diagnostic) {})

// Collector keeps diagnostics in report order. Safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	diags []Diagnostic
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diags = append(c.diags, d)
}

// All returns a copy of the collected diagnostics.
func (c *Collector) All() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.diags)
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.diags)
}

func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diags = nil
}

// LogSink emits every diagnostic as a warning on logger.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Report(d Diagnostic) {
	s.logger.LogAttrs(context.Background(), DiagnosticLevel, "[cdf.diag] "+d.Message,
		slog.String(EventTypeKey, EventConstantMismatch),
		slog.String("field", d.Field),
		slog.Int64("actual", d.Actual),
		slog.Int64("expected", d.Expected),
	)
}

// Tee reports to every sink in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(d Diagnostic) {
		for _, s := range sinks {
			if s != nil {
				s.Report(d)
			}
		}
	})
}

var (
	_ Sink = (*Collector)(nil)
	_ Sink = (*LogSink)(nil)
)
