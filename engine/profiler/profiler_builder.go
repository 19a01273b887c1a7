package profiler

import (
	"time"

	"github.com/Carmen-Shannon/oxy-graph/engine/renderer"
)

// ProfilerBuilderOption is a function that configures a Profiler during construction.
type ProfilerBuilderOption func(*Profiler)

// WithInterval is an option builder that sets how often the profiler reports.
//
// Parameters:
//   - d: the report interval
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval option to a Profiler
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}

// WithDrawStats is an option builder that adds display statistics to each report.
//
// Parameters:
//   - stats: returns the cumulative statistics of a display, such as Display.Stats
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the draw stats option to a Profiler
func WithDrawStats(stats func() renderer.DrawStats) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.drawStats = stats
	}
}

// WithReportFunc is an option builder that receives every report in addition to the log line.
//
// Parameters:
//   - f: the report callback
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the report callback to a Profiler
func WithReportFunc(f func(Report)) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.onReport = f
	}
}

// WithClock is an option builder that replaces the time source.
//
// Parameters:
//   - now: returns the current time
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the clock option to a Profiler
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}
