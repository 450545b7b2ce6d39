package cdfmetrics

import (
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/uber-go/tally/v4"
)

var (
	mu     sync.RWMutex
	global tally.Scope = tally.NoopScope
)

// Options configure the process-wide root scope.
type Options struct {
	Prefix         string
	Reporter       tally.StatsReporter
	ReportInterval time.Duration
	CommonTags     map[string]string
}

// Initialize installs a root scope for the process. Only the first call with
// a non-noop registry takes effect; later calls return a nil closer.
func Initialize(opts Options) io.Closer {
	mu.Lock()
	defer mu.Unlock()

	if global != tally.NoopScope {
		return nil
	}

	if opts.CommonTags == nil {
		opts.CommonTags = make(map[string]string)
	}
	scope, closer := tally.NewRootScope(tally.ScopeOptions{
		Prefix:    opts.Prefix,
		Tags:      opts.CommonTags,
		Reporter:  opts.Reporter,
		Separator: "_",
	}, opts.ReportInterval)

	global = scope
	return closer
}

// Install replaces the root scope, e.g. with a tally.TestScope. Passing nil
// restores the noop scope.
func Install(scope tally.Scope) {
	mu.Lock()
	defer mu.Unlock()
	if scope == nil {
		scope = tally.NoopScope
	}
	global = scope
}

// Scope returns the sub scope for a package or component.
//
//nolint:ireturn
func Scope(name string) tally.Scope {
	mu.RLock()
	defer mu.RUnlock()
	return global.SubScope(name)
}

// TaggedScope returns Scope(name) with extra tags.
//
//nolint:ireturn
func TaggedScope(name string, tags map[string]string) tally.Scope {
	return Scope(name).Tagged(tags)
}

// NewSnapshotScope returns an in-memory scope whose counters can be read back
// with Counters. Used for end-of-run summaries.
//
//nolint:ireturn
func NewSnapshotScope(prefix string) tally.TestScope {
	return tally.NewTestScope(prefix, nil)
}

// Counter is a flattened counter value from a snapshot.
type Counter struct {
	Name  string            `json:"name"`
	Tags  map[string]string `json:"tags,omitempty"`
	Value int64             `json:"value"`
}

// Counters flattens the counters of scope, sorted by name then tags.
func Counters(scope tally.TestScope) []Counter {
	snap := scope.Snapshot().Counters()
	out := make([]Counter, 0, len(snap))
	for _, c := range snap {
		out = append(out, Counter{Name: c.Name(), Tags: c.Tags(), Value: c.Value()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return flattenTags(out[i].Tags) < flattenTags(out[j].Tags)
	})
	return out
}

func flattenTags(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(tags[k])
		b.WriteByte(',')
	}
	return b.String()
}
