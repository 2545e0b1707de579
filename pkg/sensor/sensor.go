// Package sensor polls process memory and store disk usage so operators
// get early warning before a small deployment fills its volume.
package sensor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"forumdb/pkg/logger"
	"forumdb/pkg/store"
)

// Snapshot is a lightweight view of process and store resources.
// Fields are best-effort and may be zero on unsupported platforms.
type Snapshot struct {
	Timestamp time.Time

	// Memory in bytes, from the Go runtime
	MemTotal uint64
	MemUsed  uint64

	// On-disk size of the store directory
	DiskBytes uint64
}

// Monitor polls resources on an interval and logs watermark
// transitions with hysteresis: a warning above HighBytes, a recovery
// notice only after usage falls below LowBytes.
type Monitor struct {
	interval  time.Duration
	highBytes uint64
	lowBytes  uint64

	mu       sync.RWMutex
	snap     Snapshot
	pressure bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor creates a monitor that polls every interval. A zero
// highBytes disables watermark logging; sampling still runs.
func NewMonitor(interval time.Duration, highBytes, lowBytes uint64) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if lowBytes == 0 || lowBytes > highBytes {
		lowBytes = highBytes * 9 / 10
	}
	return &Monitor{interval: interval, highBytes: highBytes, lowBytes: lowBytes}
}

// Start begins background polling. Call Stop to terminate.
func (m *Monitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		m.sample()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sample()
			}
		}
	}()
}

// Stop stops background polling and waits for the worker to exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// Snapshot returns the most recent sample.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

func (m *Monitor) sample() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	snap := Snapshot{
		Timestamp: time.Now(),
		MemTotal:  memStats.Sys,
		MemUsed:   memStats.Alloc,
		DiskBytes: store.DiskUsage(),
	}

	m.mu.Lock()
	m.snap = snap
	wasPressure := m.pressure
	if m.highBytes > 0 {
		switch {
		case !wasPressure && snap.DiskBytes >= m.highBytes:
			m.pressure = true
		case wasPressure && snap.DiskBytes <= m.lowBytes:
			m.pressure = false
		}
	}
	isPressure := m.pressure
	m.mu.Unlock()

	if isPressure && !wasPressure {
		logger.Warn("store_disk_pressure", "disk_bytes", snap.DiskBytes, "high_water", m.highBytes)
	}
	if !isPressure && wasPressure {
		logger.Info("store_disk_recovered", "disk_bytes", snap.DiskBytes, "low_water", m.lowBytes)
	}
}
