package renderer

import (
	"fmt"
	"image"
	"image/color"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/chunk"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/pick"
)

func (d *display) stageDone(s Stage) {
	d.dirty &^= 1 << s
	d.stats.StageRuns[s]++
	common.Logger().Debug("display stage", "stage", s.String())
	if d.observer != nil {
		d.observer(s)
	}
}

// prepare runs the dirty stages up to and including the draw list.
func (d *display) prepare() error {
	if d.dirty.Has(StageObjectList) {
		d.buildObjectList()
		d.stageDone(StageObjectList)
		d.markDirty(StageStateOrder)
	}
	if d.dirty.Has(StageStateOrder) {
		d.makeSortKeys()
		d.stageDone(StageStateOrder)
		d.markDirty(StageStateSort)
	}
	if d.dirty.Has(StageStateSort) {
		d.sortObjects()
		d.stageDone(StageStateSort)
		d.markDirty(StageDrawList)
	}
	if d.dirty.Has(StageDrawList) {
		if err := d.buildDrawLists(); err != nil {
			return fmt.Errorf("failed to build draw lists: %w", err)
		}
		d.stageDone(StageDrawList)
		d.markDirty(StageImage)
		common.Logger().Debug("draw lists built",
			"opaque", len(d.opaqueList), "transparent", len(d.transparentList), "pick", len(d.pickList))
	}
	return nil
}

func (d *display) Render(opts RenderOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.render(opts)
}

func (d *display) render(opts RenderOptions) error {
	if d.checkContext() {
		return nil
	}
	if err := d.prepare(); err != nil {
		return err
	}
	if !d.dirty.Has(StageImage) && !opts.Force {
		return nil
	}

	var clearValue *gpu.ClearValue
	if !opts.NoClear {
		clearValue = &gpu.ClearValue{Color: d.canvasClear()}
	}
	if err := d.drawImage(gpu.CanvasTarget, clearValue, opts.OpaqueOnly); err != nil {
		return err
	}
	d.device.Present()
	d.stageDone(StageImage)
	d.stats.Frames++
	d.pickBuf.MarkDirty()
	d.rayBuf.MarkDirty()
	return nil
}

// drawImage runs the opaque list, then the transparent list with blending enabled.
func (d *display) drawImage(target gpu.TargetHandle, clearValue *gpu.ClearValue, opaqueOnly bool) error {
	if err := d.device.BeginPass(target, clearValue); err != nil {
		return fmt.Errorf("failed to begin draw pass: %w", err)
	}
	f := chunk.NewFrame(d.device, gpu.PassDraw, gpu.BlendState{})
	runList(f, d.opaqueList)

	if !opaqueOnly && len(d.transparentList) > 0 {
		f.PassBlend = gpu.DefaultBlend
		f.Raster.Blend = gpu.DefaultBlend
		d.device.SetBlend(gpu.DefaultBlend)
		runList(f, d.transparentList)
		f.PassBlend = gpu.BlendState{}
		f.Raster.Blend = gpu.BlendState{}
		d.device.SetBlend(gpu.BlendState{})
	}
	d.stats.DrawCalls += int64(f.DrawCalls)

	if err := d.device.EndPass(); err != nil {
		return fmt.Errorf("failed to end draw pass: %w", err)
	}
	return nil
}

func runList(f *chunk.Frame, list []*chunk.Chunk) {
	for _, c := range list {
		c.Run(f)
	}
}

// renderPickPass clears buf and runs the pick list into it in the given pass.
func (d *display) renderPickPass(buf *pick.Buffer, pass gpu.Pass) (*chunk.Frame, error) {
	if err := d.device.BeginPass(buf.Target(), &gpu.ClearValue{}); err != nil {
		return nil, fmt.Errorf("failed to begin %s pass: %w", pass, err)
	}
	f := chunk.NewFrame(d.device, pass, gpu.BlendState{})
	runList(f, d.pickList)
	if err := d.device.EndPass(); err != nil {
		return nil, fmt.Errorf("failed to end %s pass: %w", pass, err)
	}
	d.device.Finish()
	buf.MarkClean()
	return f, nil
}

func (d *display) Pick(x, y int, opts PickOptions) (*pick.Hit, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.render(RenderOptions{}); err != nil {
		return nil, err
	}
	if d.lost {
		return nil, nil
	}
	d.stats.Picks++

	if err := d.pickBuf.Touch(); err != nil {
		return nil, err
	}
	if d.pickBuf.State() == pick.StateDirty {
		f, err := d.renderPickPass(d.pickBuf, gpu.PassPick)
		if err != nil {
			return nil, err
		}
		d.pickNames = f.PickNames
	}

	px, err := d.device.ReadPixel(d.pickBuf.Target(), x, y)
	if err != nil {
		return nil, fmt.Errorf("failed to read pick pixel: %w", err)
	}
	index, ok := pick.DecodeIndex([3]uint8{px[0], px[1], px[2]})
	if !ok || index > len(d.pickNames) {
		return nil, nil
	}
	name := d.pickNames[index-1]
	if name == nil {
		return nil, nil
	}
	hit := &pick.Hit{Name: name.Name, Path: name.Path, NodeID: name.NodeID, CanvasPos: [2]int{x, y}}
	if !opts.Ray {
		return hit, nil
	}

	if err := d.rayBuf.Touch(); err != nil {
		return nil, err
	}
	if d.rayBuf.State() == pick.StateDirty {
		if _, err := d.renderPickPass(d.rayBuf, gpu.PassRay); err != nil {
			return nil, err
		}
	}
	dpx, err := d.device.ReadPixel(d.rayBuf.Target(), x, y)
	if err != nil {
		return nil, fmt.Errorf("failed to read ray pixel: %w", err)
	}
	w, h := d.rayBuf.Size()
	pos, err := pick.Unproject(x, y, w, h, name.View, name.Proj, pick.UnpackDepth(dpx))
	if err != nil {
		return nil, fmt.Errorf("failed to unproject pick: %w", err)
	}
	hit.WorldPos = &pos
	return hit, nil
}

func (d *display) ReadPixels(points []image.Point) ([]color.NRGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.checkContext() {
		return nil, gpu.ErrContextLost
	}
	if err := d.prepare(); err != nil {
		return nil, err
	}
	if err := d.readBuf.Touch(); err != nil {
		return nil, err
	}
	if err := d.drawImage(d.readBuf.Target(), &gpu.ClearValue{Color: d.canvasClear()}, false); err != nil {
		return nil, err
	}
	d.device.Finish()
	d.readBuf.MarkClean()

	out := make([]color.NRGBA, len(points))
	for i, p := range points {
		px, err := d.device.ReadPixel(d.readBuf.Target(), p.X, p.Y)
		if err != nil {
			return nil, fmt.Errorf("failed to read pixel %v: %w", p, err)
		}
		out[i] = color.NRGBA{R: px[0], G: px[1], B: px[2], A: px[3]}
	}
	return out, nil
}
