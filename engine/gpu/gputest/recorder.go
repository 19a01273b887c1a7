// Package gputest provides an in-memory gpu.Device that records every call for assertions.
package gputest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

// Op names recorded by the Recorder.
const (
	OpCompileProgram  = "CompileProgram"
	OpDeleteProgram   = "DeleteProgram"
	OpUseProgram      = "UseProgram"
	OpSetMatrix       = "SetMatrix"
	OpSetVector       = "SetVector"
	OpSetScalar       = "SetScalar"
	OpSetShaderParam  = "SetShaderParam"
	OpSetLights       = "SetLights"
	OpSetClipPlanes   = "SetClipPlanes"
	OpCreateBuffer    = "CreateBuffer"
	OpDeleteBuffer    = "DeleteBuffer"
	OpCreateTexture   = "CreateTexture"
	OpDeleteTexture   = "DeleteTexture"
	OpBindTexture     = "BindTexture"
	OpBindGeometry    = "BindGeometry"
	OpBindMorphTarget = "BindMorphTarget"
	OpDraw            = "Draw"
	OpSetBlend        = "SetBlend"
	OpSetDepth        = "SetDepth"
	OpSetCullMode     = "SetCullMode"
	OpSetFrontFace    = "SetFrontFace"
	OpSetColorMask    = "SetColorMask"
	OpSetLineWidth    = "SetLineWidth"
	OpCreateTarget    = "CreateTarget"
	OpDeleteTarget    = "DeleteTarget"
	OpBeginPass       = "BeginPass"
	OpEndPass         = "EndPass"
	OpFinish          = "Finish"
	OpReadPixel       = "ReadPixel"
	OpPresent         = "Present"
)

// Call is one recorded device call.
type Call struct {
	Op     string
	Target gpu.TargetHandle
	Pass   gpu.Pass
	Args   []any
}

// PixelFunc produces the pixel returned by ReadPixel. pass is the last program variant drawn into the target.
type PixelFunc func(target gpu.TargetHandle, pass gpu.Pass, x, y int) [4]uint8

// Recorder is a gpu.Device that records calls instead of rendering.
type Recorder struct {
	mu *sync.Mutex

	width, height int
	lost          bool

	nextHandle uint32
	programs   map[gpu.ProgramHandle]gpu.ProgramSource
	buffers    map[gpu.BufferHandle]int
	textures   map[gpu.TextureHandle]common.TextureStagingData
	targets    map[gpu.TargetHandle][2]int

	calls       []Call
	counts      map[string]int
	failures    map[string]error
	skips       map[string]int
	doubleFrees int

	inPass     bool
	target     gpu.TargetHandle
	pass       gpu.Pass
	pickColor  mgl32.Vec4
	blend      gpu.BlendState
	clears     map[gpu.TargetHandle][]gpu.ClearValue
	lastDrawn  map[gpu.TargetHandle]gpu.Pass
	lastPicked map[gpu.TargetHandle]mgl32.Vec4
	pixelFunc  PixelFunc
}

var _ gpu.Device = &Recorder{}

// NewRecorder creates a Recorder with the given canvas size.
//
// Parameters:
//   - width, height: the canvas size in pixels
//
// Returns:
//   - *Recorder: the recording device
func NewRecorder(width, height int) *Recorder {
	return &Recorder{
		mu:         &sync.Mutex{},
		width:      width,
		height:     height,
		programs:   make(map[gpu.ProgramHandle]gpu.ProgramSource),
		buffers:    make(map[gpu.BufferHandle]int),
		textures:   make(map[gpu.TextureHandle]common.TextureStagingData),
		targets:    make(map[gpu.TargetHandle][2]int),
		counts:     make(map[string]int),
		failures:   make(map[string]error),
		skips:      make(map[string]int),
		clears:     make(map[gpu.TargetHandle][]gpu.ClearValue),
		lastDrawn:  make(map[gpu.TargetHandle]gpu.Pass),
		lastPicked: make(map[gpu.TargetHandle]mgl32.Vec4),
	}
}

func (r *Recorder) record(op string, args ...any) {
	r.calls = append(r.calls, Call{Op: op, Target: r.target, Pass: r.pass, Args: args})
	r.counts[op]++
}

func (r *Recorder) handle() uint32 {
	r.nextHandle++
	return r.nextHandle
}

func (r *Recorder) failure(op string) error {
	err, ok := r.failures[op]
	if !ok {
		return nil
	}
	if r.skips[op] > 0 {
		r.skips[op]--
		return nil
	}
	delete(r.failures, op)
	return err
}

// FailNext makes the next call of op fail with err. Supported ops are the creating calls,
// BeginPass, EndPass and ReadPixel.
//
// Parameters:
//   - op: the Op name to fail
//   - err: the error to return
func (r *Recorder) FailNext(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op] = err
	delete(r.skips, op)
}

// FailAfter lets n calls of op succeed and makes the one after them fail with err.
//
// Parameters:
//   - op: the Op name to fail
//   - n: the number of calls that succeed first
//   - err: the error to return
func (r *Recorder) FailAfter(op string, n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op] = err
	r.skips[op] = n
}

// LoseContext simulates a lost device context. Every live resource is discarded.
func (r *Recorder) LoseContext() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lost = true
	clear(r.programs)
	clear(r.buffers)
	clear(r.textures)
	clear(r.targets)
}

// RestoreContext ends a simulated context loss.
func (r *Recorder) RestoreContext() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lost = false
}

// Resize changes the canvas size.
//
// Parameters:
//   - width, height: the new size in pixels
func (r *Recorder) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.width, r.height = width, height
}

// SetPixelFunc installs the function that answers ReadPixel.
//
// Parameters:
//   - f: the pixel producer, or nil to use the last pick color drawn into the target
func (r *Recorder) SetPixelFunc(f PixelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pixelFunc = f
}

// Count returns how many times op was called since the last Reset.
//
// Parameters:
//   - op: the Op name
//
// Returns:
//   - int: the call count
func (r *Recorder) Count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[op]
}

// Calls returns a copy of the recorded calls since the last Reset.
//
// Returns:
//   - []Call: the recorded calls in order
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallsOf returns the recorded calls of one op.
//
// Parameters:
//   - op: the Op name
//
// Returns:
//   - []Call: the matching calls in order
func (r *Recorder) CallsOf(op string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls and counts. Live resources are kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	clear(r.counts)
	clear(r.clears)
}

// Clears returns the clear values requested for a target since the last Reset.
//
// Parameters:
//   - target: the target handle (gpu.CanvasTarget for the canvas)
//
// Returns:
//   - []gpu.ClearValue: the clears in order
func (r *Recorder) Clears(target gpu.TargetHandle) []gpu.ClearValue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gpu.ClearValue(nil), r.clears[target]...)
}

// LivePrograms returns the number of programs not yet deleted.
func (r *Recorder) LivePrograms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.programs)
}

// LiveBuffers returns the number of buffers not yet deleted.
func (r *Recorder) LiveBuffers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffers)
}

// LiveTargets returns the number of offscreen targets not yet deleted.
func (r *Recorder) LiveTargets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.targets)
}

// DoubleFrees returns how many deletes targeted a handle that was not live.
func (r *Recorder) DoubleFrees() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doubleFrees
}

// Program returns the source a live program was compiled from.
//
// Parameters:
//   - h: the program handle
//
// Returns:
//   - gpu.ProgramSource: the source
//   - bool: false if the program is not live
func (r *Recorder) Program(h gpu.ProgramHandle) (gpu.ProgramSource, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.programs[h]
	return src, ok
}

// Blend returns the current blend state.
func (r *Recorder) Blend() gpu.BlendState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blend
}

func (r *Recorder) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *Recorder) ContextLost() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lost
}

func (r *Recorder) CompileProgram(src gpu.ProgramSource) (gpu.ProgramHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpCompileProgram, src.Hash)
	if r.lost {
		return 0, &gpu.Error{Kind: gpu.KindContextLost, Op: "compile program", Err: gpu.ErrContextLost}
	}
	if err := r.failure(OpCompileProgram); err != nil {
		return 0, &gpu.Error{Kind: gpu.KindShaderCompile, Op: "compile program", Err: err}
	}
	h := gpu.ProgramHandle(r.handle())
	r.programs[h] = src
	return h, nil
}

func (r *Recorder) DeleteProgram(h gpu.ProgramHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpDeleteProgram, h)
	if _, ok := r.programs[h]; !ok {
		if !r.lost {
			r.doubleFrees++
		}
		return
	}
	delete(r.programs, h)
}

func (r *Recorder) UseProgram(h gpu.ProgramHandle, pass gpu.Pass) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pass = pass
	r.record(OpUseProgram, h)
}

func (r *Recorder) SetMatrix(u gpu.Uniform, m mgl32.Mat4) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpSetMatrix, u, m)
}

func (r *Recorder) SetVector(u gpu.Uniform, v mgl32.Vec4) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u == gpu.UniformPickColor {
		r.pickColor = v
	}
	r.record(OpSetVector, u, v)
}

func (r *Recorder) SetScalar(u gpu.Uniform, v float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpSetScalar, u, v)
}

func (r *Recorder) SetShaderParam(name string, value []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpSetShaderParam, name, append([]float32(nil), value...))
}

func (r *Recorder) SetLights(lights []gpu.LightData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpSetLights, append([]gpu.LightData(nil), lights...))
}

func (r *Recorder) SetClipPlanes(planes []mgl32.Vec4) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpSetClipPlanes, append([]mgl32.Vec4(nil), planes...))
}

func (r *Recorder) createBuffer(size int) (gpu.BufferHandle, error) {
	r.record(OpCreateBuffer, size)
	if r.lost {
		return 0, &gpu.Error{Kind: gpu.KindContextLost, Op: "create buffer", Err: gpu.ErrContextLost}
	}
	if err := r.failure(OpCreateBuffer); err != nil {
		return 0, gpu.AllocError("create buffer", err)
	}
	h := gpu.BufferHandle(r.handle())
	r.buffers[h] = size
	return h, nil
}

func (r *Recorder) CreateVertexBuffer(data []float32) (gpu.BufferHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createBuffer(len(data) * 4)
}

func (r *Recorder) CreateIndexBuffer(data []uint32) (gpu.BufferHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createBuffer(len(data) * 4)
}

func (r *Recorder) DeleteBuffer(h gpu.BufferHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpDeleteBuffer, h)
	if _, ok := r.buffers[h]; !ok {
		if !r.lost {
			r.doubleFrees++
		}
		return
	}
	delete(r.buffers, h)
}

func (r *Recorder) CreateTexture(data common.TextureStagingData) (gpu.TextureHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpCreateTexture, data.Width, data.Height)
	if r.lost {
		return 0, &gpu.Error{Kind: gpu.KindContextLost, Op: "create texture", Err: gpu.ErrContextLost}
	}
	if err := r.failure(OpCreateTexture); err != nil {
		return 0, gpu.AllocError("create texture", err)
	}
	h := gpu.TextureHandle(r.handle())
	r.textures[h] = data
	return h, nil
}

func (r *Recorder) DeleteTexture(h gpu.TextureHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpDeleteTexture, h)
	if _, ok := r.textures[h]; !ok {
		if !r.lost {
			r.doubleFrees++
		}
		return
	}
	delete(r.textures, h)
}

func (r *Recorder) BindTexture(unit int, h gpu.TextureHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpBindTexture, unit, h)
}

func (r *Recorder) BindGeometry(g gpu.GeometryBinding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpBindGeometry, g)
}

func (r *Recorder) BindMorphTarget(positions, normals gpu.BufferHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpBindMorphTarget, positions, normals)
}

func (r *Recorder) Draw(prim gpu.Primitive, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastDrawn[r.target] = r.pass
	if r.pass == gpu.PassPick {
		r.lastPicked[r.target] = r.pickColor
	}
	r.record(OpDraw, prim, count)
}

func (r *Recorder) SetBlend(b gpu.BlendState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blend = b
	r.record(OpSetBlend, b)
}

func (r *Recorder) SetDepth(d gpu.DepthState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpSetDepth, d)
}

func (r *Recorder) SetCullMode(c gpu.CullMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpSetCullMode, c)
}

func (r *Recorder) SetFrontFace(f gpu.FrontFace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpSetFrontFace, f)
}

func (r *Recorder) SetColorMask(mask [4]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpSetColorMask, mask)
}

func (r *Recorder) SetLineWidth(w float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpSetLineWidth, w)
}

func (r *Recorder) CreateTarget(width, height int) (gpu.TargetHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpCreateTarget, width, height)
	if r.lost {
		return 0, &gpu.Error{Kind: gpu.KindContextLost, Op: "create target", Err: gpu.ErrContextLost}
	}
	if err := r.failure(OpCreateTarget); err != nil {
		return 0, gpu.AllocError("create target", err)
	}
	h := gpu.TargetHandle(r.handle())
	r.targets[h] = [2]int{width, height}
	return h, nil
}

func (r *Recorder) DeleteTarget(h gpu.TargetHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpDeleteTarget, h)
	if _, ok := r.targets[h]; !ok {
		if !r.lost {
			r.doubleFrees++
		}
		return
	}
	delete(r.targets, h)
	delete(r.lastDrawn, h)
	delete(r.lastPicked, h)
}

// TargetSize returns the size an offscreen target was created with.
//
// Parameters:
//   - h: the target handle
//
// Returns:
//   - width, height: the target size
//   - ok: false if the target is not live
func (r *Recorder) TargetSize(h gpu.TargetHandle) (width, height int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.targets[h]
	return s[0], s[1], ok
}

func (r *Recorder) BeginPass(target gpu.TargetHandle, clearValue *gpu.ClearValue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inPass {
		return errors.New("begin pass: previous pass not ended")
	}
	if target != gpu.CanvasTarget {
		if _, ok := r.targets[target]; !ok {
			return fmt.Errorf("begin pass: unknown target %d", target)
		}
	}
	r.target = target
	r.pass = gpu.PassDraw
	r.blend = gpu.BlendState{}
	r.pickColor = mgl32.Vec4{}
	r.record(OpBeginPass, clearValue)
	if err := r.failure(OpBeginPass); err != nil {
		return err
	}
	r.inPass = true
	if clearValue != nil {
		r.clears[target] = append(r.clears[target], *clearValue)
		delete(r.lastPicked, target)
		delete(r.lastDrawn, target)
	}
	return nil
}

func (r *Recorder) EndPass() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpEndPass)
	if !r.inPass {
		return errors.New("end pass: no pass in progress")
	}
	r.inPass = false
	return r.failure(OpEndPass)
}

func (r *Recorder) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpFinish)
}

func (r *Recorder) ReadPixel(target gpu.TargetHandle, x, y int) ([4]uint8, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpReadPixel, target, x, y)
	if err := r.failure(OpReadPixel); err != nil {
		return [4]uint8{}, err
	}
	w, h := r.width, r.height
	if target != gpu.CanvasTarget {
		size, ok := r.targets[target]
		if !ok {
			return [4]uint8{}, fmt.Errorf("read pixel: unknown target %d", target)
		}
		w, h = size[0], size[1]
	}
	if x < 0 || y < 0 || x >= w || y >= h {
		return [4]uint8{}, fmt.Errorf("read pixel: (%d, %d) outside %dx%d target", x, y, w, h)
	}
	if r.pixelFunc != nil {
		return r.pixelFunc(target, r.lastDrawn[target], x, y), nil
	}
	c := r.lastPicked[target]
	return [4]uint8{toByte(c[0]), toByte(c[1]), toByte(c[2]), toByte(c[3])}, nil
}

func (r *Recorder) Present() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpPresent)
}

func toByte(v float32) uint8 {
	return uint8(common.Clamp01(v)*255 + 0.5)
}
