package profiler

import (
	"log"
	"runtime"
	"time"
)

// Stats is one profiler report.
type Stats struct {
	// UpdatesPerSecond is the tick rate over the report window.
	UpdatesPerSecond float64
	// AvgUpdate and MaxUpdate are the mean and worst cost of one tick in the window.
	AvgUpdate time.Duration
	MaxUpdate time.Duration
	// Poses is the number of poses produced in the window.
	Poses int
	// HeapMB is the live heap, SysMB the memory obtained from the OS.
	HeapMB float64
	SysMB  float64
	// AllocRateMB is the heap allocation rate in MB/s over the window.
	AllocRateMB float64
	// GCCount is the total number of collections; LastPauseUs and MaxPauseUs cover the window.
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
}

// Profiler tracks animation tick rate, tick cost and memory statistics.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	updateCount    int
	poseCount      int
	totalCost      time.Duration
	maxCost        time.Duration
	lastTime       time.Time
	updateInterval time.Duration
	now            func() time.Time
	quiet          bool
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: variadic list of ProfilerBuilderOption functions to configure the Profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	runtime.ReadMemStats(&p.memStats)
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return p
}

// Tick should be called once per animation tick with the time the tick took and the number of
// poses it produced. Logs statistics when the update interval has elapsed.
//
// Parameters:
//   - cost: the wall time spent updating animations this tick
//   - poses: the number of poses produced this tick
//
// Returns:
//   - bool: true if stats were reported this tick, false otherwise
func (p *Profiler) Tick(cost time.Duration, poses int) bool {
	p.updateCount++
	p.poseCount += poses
	p.totalCost += cost
	p.maxCost = max(p.maxCost, cost)

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	s := Stats{
		UpdatesPerSecond: float64(p.updateCount) / elapsed.Seconds(),
		AvgUpdate:        p.totalCost / time.Duration(p.updateCount),
		MaxUpdate:        p.maxCost,
		Poses:            p.poseCount,
		HeapMB:           float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:            float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB:      float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:          p.memStats.NumGC,
	}

	gcCount := p.memStats.NumGC
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses.
		s.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			s.MaxPauseUs = max(s.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	if !p.quiet {
		log.Printf("[Profiler] UPS: %.2f | Update: avg %d µs, max %d µs | Poses: %d | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
			s.UpdatesPerSecond, s.AvgUpdate.Microseconds(), s.MaxUpdate.Microseconds(), s.Poses,
			s.HeapMB, s.AllocRateMB, s.GCCount, s.LastPauseUs, s.MaxPauseUs, s.SysMB)
	}

	p.last = s
	p.updateCount = 0
	p.poseCount = 0
	p.totalCost = 0
	p.maxCost = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recent report, or the zero Stats before the first.
func (p *Profiler) Last() Stats {
	return p.last
}
