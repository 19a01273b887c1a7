// Package profiler reports frame rate, memory and draw statistics at a fixed interval.
package profiler

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer"
)

// Report is one interval of profiling data.
type Report struct {
	Elapsed     time.Duration
	FPS         float64
	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64

	// Draw holds the change of the draw statistics over the interval. List lengths are the
	// current values rather than deltas.
	Draw renderer.DrawStats
}

// String formats the report as the single [Profiler] summary line.
func (r Report) String() string {
	var stages strings.Builder
	for i, n := range r.Draw.StageRuns {
		if n == 0 {
			continue
		}
		if stages.Len() > 0 {
			stages.WriteByte(' ')
		}
		fmt.Fprintf(&stages, "%s=%d", renderer.Stage(i), n)
	}
	return fmt.Sprintf("[Profiler] FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB | Draws: %d | Objects: %d/%d/%d | Stages: %s",
		r.FPS, r.HeapMB, r.AllocRateMB, r.GCCount, r.LastPauseUs, r.MaxPauseUs, r.SysMB,
		r.Draw.DrawCalls, r.Draw.OpaqueObjects, r.Draw.TransparentObjects, r.Draw.PickObjects, stages.String())
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	drawStats func() renderer.DrawStats
	lastDraw  renderer.DrawStats
	onReport  func(Report)
	now       func() time.Time
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options
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
	if p.drawStats != nil {
		p.lastDraw = p.drawStats()
	}
	return p
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
//
// Returns:
//   - bool: true if stats were reported this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	r := Report{
		Elapsed: elapsed,
		FPS:     float64(p.frameCount) / elapsed.Seconds(),
	}

	runtime.ReadMemStats(&p.memStats)
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	r.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	r.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses
	r.GCCount = p.memStats.NumGC
	if r.GCCount > 0 {
		r.LastPauseUs = p.memStats.PauseNs[(r.GCCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if r.GCCount-startIdx > 256 {
			startIdx = r.GCCount - 256
		}
		for i := startIdx; i < r.GCCount; i++ {
			r.MaxPauseUs = max(r.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	if p.drawStats != nil {
		current := p.drawStats()
		r.Draw = diff(current, p.lastDraw)
		p.lastDraw = current
	}

	if p.onReport != nil {
		p.onReport(r)
	}
	common.Logger().Info(r.String(),
		slog.Float64("fps", r.FPS),
		slog.Int64("draw_calls", r.Draw.DrawCalls),
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

func diff(current, last renderer.DrawStats) renderer.DrawStats {
	d := current
	for i := range d.StageRuns {
		d.StageRuns[i] -= last.StageRuns[i]
	}
	d.Frames -= last.Frames
	d.Picks -= last.Picks
	d.DrawCalls -= last.DrawCalls
	return d
}
