package ws

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HealthReport is the /api/health response body. Host metrics are
// best-effort; a probe failure leaves its fields zero rather than failing
// the whole endpoint.
type HealthReport struct {
	Status         string  `json:"status"`
	UptimeSeconds  float64 `json:"uptimeSeconds"`
	Goroutines     int     `json:"goroutines"`
	ActiveSessions int     `json:"activeSessions"`
	WSClients      int     `json:"wsClients"`

	HostUptimeSeconds uint64  `json:"hostUptimeSeconds,omitempty"`
	Load1             float64 `json:"load1,omitempty"`
	MemUsedPercent    float64 `json:"memUsedPercent,omitempty"`
	ProcessRSSBytes   uint64  `json:"processRssBytes,omitempty"`
}

var processStart = time.Now()

func buildHealthReport(activeSessions, wsClients int) HealthReport {
	report := HealthReport{
		Status:         "ok",
		UptimeSeconds:  time.Since(processStart).Seconds(),
		Goroutines:     runtime.NumGoroutine(),
		ActiveSessions: activeSessions,
		WSClients:      wsClients,
	}

	if up, err := host.Uptime(); err == nil {
		report.HostUptimeSeconds = up
	}
	if avg, err := load.Avg(); err == nil {
		report.Load1 = avg.Load1
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		report.MemUsedPercent = vm.UsedPercent
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil && info != nil {
			report.ProcessRSSBytes = info.RSS
		}
	}

	return report
}
