package buildstate

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Resources is a point-in-time view of host load.
type Resources struct {
	CPUPercent    float64
	MemoryPercent float64
	MemoryUsed    uint64
	MemoryTotal   uint64
	DiskPercent   float64
	DiskUsed      uint64
	DiskTotal     uint64
}

// ReadResources samples CPU, memory, and root filesystem usage. interval
// blocks for the CPU sample; zero compares against the previous call.
func ReadResources(interval time.Duration) (Resources, error) {
	var r Resources

	pct, err := cpu.Percent(interval, false)
	if err != nil {
		return r, fmt.Errorf("reading cpu: %w", err)
	}
	if len(pct) > 0 {
		r.CPUPercent = pct[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return r, fmt.Errorf("reading memory: %w", err)
	}
	r.MemoryPercent = vm.UsedPercent
	r.MemoryUsed = vm.Used
	r.MemoryTotal = vm.Total

	du, err := disk.Usage("/")
	if err != nil {
		return r, fmt.Errorf("reading disk: %w", err)
	}
	r.DiskPercent = du.UsedPercent
	r.DiskUsed = du.Used
	r.DiskTotal = du.Total

	return r, nil
}
