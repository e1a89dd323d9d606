package profiler

import (
	"log"
	"runtime"
	"time"
)

// Profiler tracks synchronization pass rate and memory statistics.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	passCount      int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
}

// SetInterval changes how often Tick logs statistics.
//
// Parameters:
//   - d: the logging interval, ignored when <= 0
func (p *Profiler) SetInterval(d time.Duration) {
	if d > 0 {
		p.updateInterval = d
	}
}

// Tick should be called once per synchronization pass to track pass timing.
// Logs statistics when the update interval has elapsed: pass rate, heap usage,
// allocation rate, and GC activity. The allocation rate matters here because
// the incremental update path is meant to be allocation-light; sustained churn
// usually means something re-binds every pass.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.passCount++
	now := time.Now()
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	rate := float64(p.passCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	heapMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
	}
	gcDelta := gcCount - p.lastGCCount

	log.Printf("[profiler] passes/s: %.2f | heap: %.2f MB | alloc rate: %.2f MB/s | gc: +%d (last pause: %d µs) | sys: %.2f MB",
		rate, heapMB, allocRateMB, gcDelta, lastPauseUs, sysMB)

	p.passCount = 0
	p.lastTime = now
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
