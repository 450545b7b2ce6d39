package diag

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
)

// SampledHandler thins out routine log records while keeping diagnostics.
//
// A record that carries an event_type attribute naming a diagnostic event
// (EventConstantMismatch by default) is always passed on, whatever minLevel
// and the sampling rates say. Every other record is dropped below minLevel
// and then kept with the percentage configured for its level; levels without
// a percentage are kept in full.
type SampledHandler struct {
	next     slog.Handler
	minLevel slog.Level
	rates    levelRates
	keep     []string
	// pinned is set once WithAttrs attached a diagnostic event_type, so
	// every record logged through this handler is a diagnostic.
	pinned bool
}

// levelRates holds the keep probability per level, in [0, 1].
type levelRates map[slog.Level]float64

func newLevelRates(percents map[slog.Level]float64) levelRates {
	rates := make(levelRates, len(percents))
	for level, p := range percents {
		rates[level] = min(max(p, 0), 100) / 100
	}
	return rates
}

func (r levelRates) sample(level slog.Level) bool {
	rate, ok := r[level]
	if !ok || rate >= 1 {
		return true
	}
	return rand.Float64() < rate
}

// HandlerOption configures a SampledHandler.
type HandlerOption func(*SampledHandler)

// WithKeptEvents replaces the event_type values that bypass sampling.
func WithKeptEvents(events ...string) HandlerOption {
	return func(h *SampledHandler) {
		h.keep = slices.Clone(events)
	}
}

func NewSampledHandler(next slog.Handler, minLevel slog.Level, levelPercents map[slog.Level]float64, opts ...HandlerOption) *SampledHandler {
	h := &SampledHandler{
		next:     next,
		minLevel: minLevel,
		rates:    newLevelRates(levelPercents),
		keep:     []string{EventConstantMismatch},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewSampledLogger is a shortcut for slog.New(NewSampledHandler(...)).
func NewSampledLogger(next slog.Handler, minLevel slog.Level, levelPercents map[slog.Level]float64, opts ...HandlerOption) *slog.Logger {
	return slog.New(NewSampledHandler(next, minLevel, levelPercents, opts...))
}

// Enabled cannot see attributes, so it also admits the diagnostic level
// below minLevel; Handle makes the final call.
func (h *SampledHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < h.minLevel && (len(h.keep) == 0 || level < DiagnosticLevel) && !h.pinned {
		return false
	}
	return h.next.Enabled(ctx, level)
}

func (h *SampledHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.pinned || h.isDiagnostic(r) {
		return h.next.Handle(ctx, r)
	}
	if r.Level < h.minLevel || !h.rates.sample(r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *SampledHandler) isDiagnostic(r slog.Record) bool {
	if len(h.keep) == 0 {
		return false
	}
	found := false
	r.Attrs(func(a slog.Attr) bool {
		found = h.keptEvent(a)
		return !found
	})
	return found
}

func (h *SampledHandler) keptEvent(a slog.Attr) bool {
	return a.Key == EventTypeKey && slices.Contains(h.keep, a.Value.String())
}

func (h *SampledHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	clone.pinned = h.pinned || slices.ContainsFunc(attrs, h.keptEvent)
	return &clone
}

func (h *SampledHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.next = h.next.WithGroup(name)
	return &clone
}

var _ slog.Handler = (*SampledHandler)(nil)
