package metrics

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/process"
)

// Resources is a point-in-time usage sample of one daemon.
type Resources struct {
	PID        int32   `json:"pid"`
	CPUPercent float64 `json:"cpu_percent"`
	MemoryRSS  uint64  `json:"memory_rss"`
	MemoryMB   float64 `json:"memory_mb"`
	NumThreads int32   `json:"num_threads"`
}

// Sample reads CPU and memory usage of pid. CPU is the average since the
// process started, as reported by gopsutil.
func Sample(pid int) (Resources, error) {
	if pid <= 0 {
		return Resources{}, fmt.Errorf("invalid pid %d", pid)
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return Resources{}, err
	}
	r := Resources{PID: p.Pid}
	mem, err := p.MemoryInfo()
	if err != nil {
		return Resources{}, fmt.Errorf("memory of pid %d: %w", pid, err)
	}
	r.MemoryRSS = mem.RSS
	r.MemoryMB = float64(mem.RSS) / 1024 / 1024
	if cpu, err := p.CPUPercent(); err == nil {
		r.CPUPercent = cpu
	}
	if n, err := p.NumThreads(); err == nil {
		r.NumThreads = n
	}
	return r, nil
}
