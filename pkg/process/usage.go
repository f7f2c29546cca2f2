package process

import (
	"context"
	"os"
	"runtime"

	gops "github.com/shirou/gopsutil/v4/process"
)

// Usage is a resource snapshot of the current process.
type Usage struct {
	PID        int32   `json:"pid"`
	RSSBytes   uint64  `json:"rss_bytes"`
	VMSBytes   uint64  `json:"vms_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	Threads    int32   `json:"threads"`
	Goroutines int     `json:"goroutines"`
}

// CurrentUsage reports resource usage of the running process. Goroutines
// is always filled in, even when the OS query fails.
func CurrentUsage(ctx context.Context) (Usage, error) {
	u := Usage{PID: int32(os.Getpid()), Goroutines: runtime.NumGoroutine()}

	p, err := gops.NewProcessWithContext(ctx, u.PID)
	if err != nil {
		return u, err
	}
	mem, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return u, err
	}
	u.RSSBytes = mem.RSS
	u.VMSBytes = mem.VMS

	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		u.CPUPercent = cpu
	}
	if threads, err := p.NumThreadsWithContext(ctx); err == nil {
		u.Threads = threads
	}
	return u, nil
}
