// Package observability samples the server process for the stats endpoint.
package observability

import (
	"os"
	goruntime "runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

type ProcessStats struct {
	RSSBytes   uint64  `json:"rssBytes"`
	CPUPercent float64 `json:"cpuPercent"`
	Goroutines int     `json:"goroutines"`
	Uptime     string  `json:"uptime"`
}

type ProcessSampler struct {
	proc    *process.Process
	started time.Time
}

func NewProcessSampler() (*ProcessSampler, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &ProcessSampler{proc: p, started: time.Now()}, nil
}

// Sample retrieves memory and CPU usage of the current process.
func (s *ProcessSampler) Sample() (ProcessStats, error) {
	memInfo, err := s.proc.MemoryInfo()
	if err != nil {
		return ProcessStats{}, err
	}
	cpuPercent, err := s.proc.CPUPercent()
	if err != nil {
		return ProcessStats{}, err
	}
	return ProcessStats{
		RSSBytes:   memInfo.RSS,
		CPUPercent: cpuPercent,
		Goroutines: goruntime.NumGoroutine(),
		Uptime:     time.Since(s.started).Round(time.Second).String(),
	}, nil
}
