package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-graph/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickReportsDrawDeltas(t *testing.T) {
	now := time.Unix(0, 0)
	stats := renderer.DrawStats{DrawCalls: 10, Frames: 2}
	stats.StageRuns[renderer.StageImage] = 2

	var reports []Report
	p := NewProfiler(
		WithInterval(time.Second),
		WithClock(func() time.Time { return now }),
		WithDrawStats(func() renderer.DrawStats { return stats }),
		WithReportFunc(func(r Report) { reports = append(reports, r) }),
	)

	for i := 0; i < 24; i++ {
		now = now.Add(40 * time.Millisecond)
		assert.False(t, p.Tick())
	}

	stats.DrawCalls = 70
	stats.Frames = 32
	stats.OpaqueObjects = 4
	stats.StageRuns[renderer.StageImage] = 32
	stats.StageRuns[renderer.StageDrawList] = 1
	now = now.Add(40 * time.Millisecond)
	require.True(t, p.Tick())

	require.Len(t, reports, 1)
	r := reports[0]
	assert.InDelta(t, 25, r.FPS, 0.01)
	assert.Equal(t, int64(60), r.Draw.DrawCalls)
	assert.Equal(t, int64(30), r.Draw.Frames)
	assert.Equal(t, 4, r.Draw.OpaqueObjects)
	assert.Equal(t, int64(30), r.Draw.StageRuns[renderer.StageImage])
	assert.Contains(t, r.String(), "drawList=1 image=30")
	assert.Contains(t, r.String(), "Draws: 60")

	now = now.Add(time.Second / 2)
	assert.False(t, p.Tick())
}
