package utils

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemSnapshot is a point-in-time view of host and process resources
type SystemSnapshot struct {
	CPUPercent     float64
	MemUsedPercent float64
	MemAvailableMB float64
	HeapAllocMB    float64
	Goroutines     int
}

// TakeSystemSnapshot samples CPU and memory usage
func TakeSystemSnapshot() (SystemSnapshot, error) {
	var snap SystemSnapshot

	vm, err := mem.VirtualMemory()
	if err != nil {
		return snap, fmt.Errorf("failed to read memory stats: %w", err)
	}
	snap.MemUsedPercent = vm.UsedPercent
	snap.MemAvailableMB = float64(vm.Available) / 1024 / 1024

	// Zero interval compares against the previous call
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return snap, fmt.Errorf("failed to read cpu stats: %w", err)
	}
	if len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	snap.HeapAllocMB = float64(ms.HeapAlloc) / 1024 / 1024
	snap.Goroutines = runtime.NumGoroutine()

	return snap, nil
}

// Log writes the snapshot at debug level
func (s SystemSnapshot) Log(log zerolog.Logger) {
	log.Debug().
		Float64("cpu_percent", s.CPUPercent).
		Float64("mem_used_percent", s.MemUsedPercent).
		Float64("mem_available_mb", s.MemAvailableMB).
		Float64("heap_alloc_mb", s.HeapAllocMB).
		Int("goroutines", s.Goroutines).
		Msg("System resources")
}
