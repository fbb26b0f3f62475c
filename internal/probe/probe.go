// Package probe reads point-in-time resource counters for the host running a benchmark.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
)

// DefaultTimeout bounds a single Snapshot call.
const DefaultTimeout = 2 * time.Second

// Snapshot is one reading of the host counters.
// DiskReadBytes and NetworkBytes are cumulative since boot; rates are derived
// from the difference between two snapshots.
type Snapshot struct {
	At              time.Time `json:"at"`
	CPUPercent      float64   `json:"cpu_percent"`
	MemoryUsedBytes uint64    `json:"memory_used_bytes"`
	DiskReadBytes   uint64    `json:"disk_read_bytes"`
	NetworkBytes    uint64    `json:"network_bytes"`
}

// Probe returns the current resource counters.
type Probe interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Func adapts a function to the Probe interface.
type Func func(ctx context.Context) (Snapshot, error)

func (f Func) Snapshot(ctx context.Context) (Snapshot, error) {
	return f(ctx)
}

// SystemProbe reads host-wide counters through gopsutil.
type SystemProbe struct {
	timeout time.Duration
}

// NewSystemProbe creates a probe whose calls are bounded by timeout.
// A non-positive timeout selects DefaultTimeout.
func NewSystemProbe(timeout time.Duration) *SystemProbe {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SystemProbe{timeout: timeout}
}

// Snapshot reads CPU, memory, disk and network counters.
// CPU percent is measured since the previous call on this process, so the
// first reading after start-up may be zero.
func (p *SystemProbe) Snapshot(ctx context.Context) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	snap := Snapshot{At: time.Now()}

	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Snapshot{}, fmt.Errorf("cpu percent: %w", err)
	}
	if len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("virtual memory: %w", err)
	}
	snap.MemoryUsedBytes = vm.Used

	disks, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("disk counters: %w", err)
	}
	for _, d := range disks {
		snap.DiskReadBytes += d.ReadBytes
	}

	nics, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return Snapshot{}, fmt.Errorf("network counters: %w", err)
	}
	for _, n := range nics {
		snap.NetworkBytes += n.BytesSent + n.BytesRecv
	}

	return snap, nil
}

// BytesToMB converts a byte count to mebibytes.
func BytesToMB(b float64) float64 {
	return b / 1024 / 1024
}
