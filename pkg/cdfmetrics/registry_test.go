package cdfmetrics_test

import (
	"testing"

	"github.com/dlindhol/jcdf/pkg/cdfmetrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
)

func TestScope_DefaultsToNoop(t *testing.T) {
	cdfmetrics.Install(nil)
	scope := cdfmetrics.Scope("rle")
	require.NotNil(t, scope)
	// must not panic without a registry.
	scope.Counter("decoded_bytes").Inc(1)
}

func TestInstall_RoutesSubScopes(t *testing.T) {
	ts := cdfmetrics.NewSnapshotScope("cdf")
	cdfmetrics.Install(ts)
	t.Cleanup(func() { cdfmetrics.Install(nil) })

	cdfmetrics.Scope("rle").Counter("runs").Inc(3)
	cdfmetrics.TaggedScope("rle", map[string]string{"file": "a"}).Counter("runs").Inc(2)

	counters := cdfmetrics.Counters(ts)
	require.Len(t, counters, 2)
	assert.Equal(t, "cdf.rle.runs", counters[0].Name)
	assert.Equal(t, int64(3), counters[0].Value)
	assert.Equal(t, "cdf.rle.runs", counters[1].Name)
	assert.Equal(t, map[string]string{"file": "a"}, counters[1].Tags)
	assert.Equal(t, int64(2), counters[1].Value)
}

func TestCounters_SortedByName(t *testing.T) {
	ts := tally.NewTestScope("x", nil)
	ts.Counter("zeta").Inc(1)
	ts.Counter("alpha").Inc(1)
	ts.Counter("mid").Inc(1)

	counters := cdfmetrics.Counters(ts)
	require.Len(t, counters, 3)
	assert.Equal(t, "x.alpha", counters[0].Name)
	assert.Equal(t, "x.mid", counters[1].Name)
	assert.Equal(t, "x.zeta", counters[2].Name)
}

func TestInitialize_OnlyOnce(t *testing.T) {
	cdfmetrics.Install(nil)
	t.Cleanup(func() { cdfmetrics.Install(nil) })

	closer := cdfmetrics.Initialize(cdfmetrics.Options{Prefix: "cdf"})
	require.NotNil(t, closer)
	defer closer.Close()

	assert.Nil(t, cdfmetrics.Initialize(cdfmetrics.Options{Prefix: "again"}))
}
