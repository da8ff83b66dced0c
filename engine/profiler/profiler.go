package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_queue"
)

// Report is one interval of profiling statistics.
type Report struct {
	Frames      int
	FPS         float64
	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64

	// Render holds the render queue counters summed over the interval.
	Render render_queue.Stats
}

// PerFrame returns the interval's render counters averaged over its frames.
func (r Report) PerFrame() render_queue.Stats {
	if r.Frames == 0 {
		return render_queue.Stats{}
	}
	n := r.Frames
	return render_queue.Stats{
		Renderables:     r.Render.Renderables / n,
		DrawCommands:    r.Render.DrawCommands / n,
		DrawRecords:     r.Render.DrawRecords / n,
		InstancedMerges: r.Render.InstancedMerges / n,
		StateChanges:    r.Render.StateChanges / n,
		Commands:        r.Render.Commands / n,
	}
}

// Profiler tracks frame rate, memory and render queue statistics for performance monitoring.
// Outputs stats to the common logger at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	render         render_queue.Stats
	last           Report
	now            func() time.Time
}

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithUpdateInterval sets how often statistics are reported.
// Values <= 0 are treated as the default (1 second).
//
// Parameters:
//   - d: the reporting interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithUpdateInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d <= 0 {
			d = time.Second
		}
		p.updateInterval = d
	}
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Parameters:
//   - opts: variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(opts ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame with the render queue counters of that frame.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory
// and the per-frame draws, instanced merges and state changes.
//
// Parameters:
//   - stats: the frame's render queue counters
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(stats render_queue.Stats) bool {
	p.frameCount++
	p.render = p.render.Add(stats)
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	r := Report{
		Frames:      p.frameCount,
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     p.memStats.NumGC,
		Render:      p.render,
	}

	// PauseNs is a circular buffer of the last 256 GC pauses
	if gcCount := p.memStats.NumGC; gcCount > 0 {
		r.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			r.MaxPauseUs = max(r.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	frame := r.PerFrame()
	common.Logger().Info("profiler",
		"fps", r.FPS,
		"heap_mb", r.HeapMB,
		"alloc_rate_mb", r.AllocRateMB,
		"gc", r.GCCount,
		"gc_last_us", r.LastPauseUs,
		"gc_max_us", r.MaxPauseUs,
		"sys_mb", r.SysMB,
		"renderables", frame.Renderables,
		"draws", frame.DrawCommands,
		"instanced_merges", frame.InstancedMerges,
		"state_changes", frame.StateChanges,
	)

	p.last = r
	p.frameCount = 0
	p.render = render_queue.Stats{}
	p.lastTime = currentTime
	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recently logged report, or the zero Report before the first.
func (p *Profiler) Last() Report {
	return p.last
}
