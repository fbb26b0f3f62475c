package probe_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/fetchbench/internal/probe"
)

func TestSystemProbeReadsCounters(t *testing.T) {
	p := probe.NewSystemProbe(0)

	snap, err := p.Snapshot(context.Background())
	if err != nil {
		t.Skipf("host counters unavailable: %v", err)
	}

	assert.False(t, snap.At.IsZero())
	assert.Greater(t, snap.MemoryUsedBytes, uint64(0))
	assert.GreaterOrEqual(t, snap.CPUPercent, 0.0)
}

func TestFuncAdapter(t *testing.T) {
	want := probe.Snapshot{At: time.Unix(10, 0), CPUPercent: 12.5, MemoryUsedBytes: 42}
	var p probe.Probe = probe.Func(func(context.Context) (probe.Snapshot, error) {
		return want, nil
	})

	got, err := p.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	failing := probe.Func(func(context.Context) (probe.Snapshot, error) {
		return probe.Snapshot{}, errors.New("unavailable")
	})
	_, err = failing.Snapshot(context.Background())
	assert.Error(t, err)
}

func TestBytesToMB(t *testing.T) {
	assert.InDelta(t, 1.0, probe.BytesToMB(1024*1024), 1e-12)
	assert.InDelta(t, 0.5, probe.BytesToMB(512*1024), 1e-12)
}
