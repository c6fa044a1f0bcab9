package perf

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNoBaseline is returned by CPUPercent until a previous sample exists to
// compute a delta against.
var ErrNoBaseline = errors.New("no prior cpu sample")

// HostSampler reads CPU and memory utilization from the proc filesystem.
// The root is configurable so tests can point it at fixture files.
type HostSampler struct {
	procRoot string
	prevCPU  *cpuSample
}

type cpuSample struct {
	total uint64
	idle  uint64
}

// NewHostSampler creates a sampler rooted at procRoot ("/proc" when empty).
func NewHostSampler(procRoot string) *HostSampler {
	if procRoot == "" {
		procRoot = "/proc"
	}
	return &HostSampler{procRoot: procRoot}
}

// CPUPercent returns utilization since the previous call. The first call
// only establishes the baseline and returns ErrNoBaseline.
func (s *HostSampler) CPUPercent() (float64, error) {
	total, idle, err := s.readCPU()
	if err != nil {
		return 0, err
	}
	prev := s.prevCPU
	s.prevCPU = &cpuSample{total: total, idle: idle}
	if prev == nil {
		return 0, ErrNoBaseline
	}

	deltaTotal := total - prev.total
	deltaIdle := idle - prev.idle
	if deltaTotal == 0 {
		return 0, nil
	}
	return 100 * (1 - float64(deltaIdle)/float64(deltaTotal)), nil
}

// MemoryPercent returns the used fraction of total memory.
func (s *HostSampler) MemoryPercent() (float64, error) {
	total, available, err := s.readMem()
	if err != nil {
		return 0, err
	}
	return 100 * float64(total-available) / float64(total), nil
}

func (s *HostSampler) readCPU() (total, idle uint64, err error) {
	f, err := os.Open(filepath.Join(s.procRoot, "stat"))
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			return 0, 0, errors.New("invalid cpu line")
		}
		vals := make([]uint64, 0, len(fields)-1)
		for _, field := range fields[1:] {
			v, err := strconv.ParseUint(field, 10, 64)
			if err != nil {
				return 0, 0, err
			}
			vals = append(vals, v)
			total += v
		}
		// Idle time is idle plus iowait.
		idle = vals[3]
		if len(vals) > 4 {
			idle += vals[4]
		}
		return total, idle, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, err
	}
	return 0, 0, errors.New("cpu line not found")
}

func (s *HostSampler) readMem() (total, available uint64, err error) {
	f, err := os.Open(filepath.Join(s.procRoot, "meminfo"))
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total, _ = strconv.ParseUint(fields[1], 10, 64)
		case "MemAvailable:":
			available, _ = strconv.ParseUint(fields[1], 10, 64)
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, err
	}
	if total == 0 {
		return 0, 0, fmt.Errorf("meminfo parse failed")
	}
	return total, available, nil
}
