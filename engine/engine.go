// Package engine runs the tick and render loops around a set of scene layers. Every layer pairs
// a scene with its own render graph display; layers share one device and are composited in
// ascending z-index order into a single presented frame.
package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/config"
	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	game_object "github.com/Carmen-Shannon/oxy-graph/engine/game_object"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu/softdevice"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu/wgpudevice"
	"github.com/Carmen-Shannon/oxy-graph/engine/loader"
	"github.com/Carmen-Shannon/oxy-graph/engine/model"
	"github.com/Carmen-Shannon/oxy-graph/engine/profiler"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/pick"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/program"
	"github.com/Carmen-Shannon/oxy-graph/engine/scene"
	"github.com/Carmen-Shannon/oxy-graph/engine/window"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-gl/mathgl/mgl32"
)

// PickResult reports the outcome of one pick request.
type PickResult struct {
	// Key is the z-index of the layer that was hit, or -1 on a miss.
	Key int

	// Hit is the decoded pick, or nil on a miss.
	Hit *pick.Hit

	// Object is the game object the hit resolved to, or nil.
	Object game_object.GameObject
}

// layer pairs a scene with the display it is compiled into.
type layer struct {
	key     int
	scene   scene.Scene
	display renderer.Display
}

type pickRequest struct {
	x, y int
	ray  bool
}

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	mu *sync.Mutex

	cfg        config.Config
	configPath string
	updates    <-chan config.Update
	stopWatch  context.CancelFunc

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window
	device gpu.Device
	canvas gpu.Device

	loader    loader.Loader
	requested map[string]bool
	textures  map[string]gpu.TextureHandle
	models    map[string]func(model.Model, error)

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)
	pickCallback   func(result PickResult)

	layers  map[int]*layer
	initial []*layer
	retired []renderer.Display

	picks   chan pickRequest
	resizes chan [2]int
	tasks   chan func()

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It orchestrates the engine loop, render loop, and window management.
type Engine interface {
	// Window returns the underlying window, or nil when rendering headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Device returns the device every layer draws through.
	//
	// Returns:
	//   - gpu.Device: the device
	Device() gpu.Device

	// Config returns the configuration currently in effect.
	//
	// Returns:
	//   - config.Config: the configuration
	Config() config.Config

	// Loader returns the asynchronous resource loader.
	//
	// Returns:
	//   - loader.Loader: the loader
	Loader() loader.Loader

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic, input processing and object updates.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called on the render goroutine after each frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetPickCallback registers the function receiving pick results. It runs on the render
	// goroutine.
	//
	// Parameters:
	//   - callback: function receiving each pick result, including misses
	SetPickCallback(callback func(result PickResult))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key and creates its display.
	// Layers are composited in ascending key order; a scene replacing another at the same key
	// gets a fresh display.
	//
	// Parameters:
	//   - key: the z-index determining render order (lower renders first)
	//   - s: the Scene to register
	//   - options: display options applied after the configured defaults
	//
	// Returns:
	//   - renderer.Display: the display the scene compiles into
	AddScene(key int, s scene.Scene, options ...renderer.DisplayBuilderOption) renderer.Display

	// RemoveScene removes the layer at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Display retrieves the display of the layer at the given key, or nil.
	//
	// Parameters:
	//   - key: the z-index of the layer
	//
	// Returns:
	//   - renderer.Display: the display, or nil if not found
	Display(key int) renderer.Display

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Pick queues a pick at a canvas position. The layers are tried from the top down on the
	// render goroutine and the result is passed to the pick callback.
	//
	// Parameters:
	//   - x, y: canvas coordinates with a top-left origin
	//   - ray: whether to reconstruct the world position of the hit
	Pick(x, y int, ray bool)

	// RunOnRender queues f to run on the render goroutine before the next frame. Display
	// methods and anything else touching the device must go through here once Run was called.
	//
	// Parameters:
	//   - f: the function to run
	RunOnRender(f func())

	// LoadModel produces a mesh on the loader and hands the resulting model to done on the
	// render goroutine. Attach it to a scene there; the scene uploads it on the next frame.
	//
	// Parameters:
	//   - name: the model name
	//   - produce: the mesh producer
	//   - done: receives the model or the load error
	//
	// Returns:
	//   - error: loader.ErrClosed after shutdown
	LoadModel(name string, produce loader.MeshProducer, done func(model.Model, error)) error

	// Run starts the engine and render loops and blocks until the window closes or Quit is
	// called.
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// Without WithDevice the device is chosen by the configured backend: the WebGPU backend opens a
// window (unless WithWindow supplied one) and panics if no adapter is available.
//
// Parameters:
//   - options: functional options for engine configuration (config, device, scenes, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.Mutex{},
		cfg:             config.Default(),
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		layers:          make(map[int]*layer),
		requested:       make(map[string]bool),
		textures:        make(map[string]gpu.TextureHandle),
		models:          make(map[string]func(model.Model, error)),
		picks:           make(chan pickRequest, 16),
		resizes:         make(chan [2]int, 1),
		tasks:           make(chan func(), 64),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.configPath != "" {
		cfg, err := config.Load(e.configPath)
		if err != nil {
			panic(fmt.Sprintf("failed to load engine config: %v", err))
		}
		e.cfg = cfg
	}
	e.profilingEnabled = e.profilingEnabled || e.cfg.Profiling.Enabled

	if e.device == nil {
		e.device = e.newDevice()
	}
	e.canvas = frameDevice{Device: e.device}

	if e.loader == nil {
		e.loader = loader.NewLoader(
			loader.WithWorkers(e.cfg.Loader.Workers),
			loader.WithRetry(e.cfg.Loader.Retries, e.cfg.Loader.RetryInterval()),
		)
	}
	e.profiler = profiler.NewProfiler(
		profiler.WithInterval(e.cfg.Profiling.Interval()),
		profiler.WithDrawStats(e.drawStats),
	)

	for _, l := range e.initial {
		e.AddScene(l.key, l.scene)
	}
	e.initial = nil

	if e.window != nil {
		e.window.SetResizeCallback(e.requestResize)
		e.window.SetClickCallback(func(x, y int, shift bool) {
			e.Pick(x, y, shift)
		})
	}

	common.Logger().Info("engine created", "backend", e.cfg.Display.Backend, "profiling", e.profilingEnabled)
	return e
}

// newDevice creates the device of the configured backend.
func (e *engine) newDevice() gpu.Device {
	w := e.cfg.Window
	if e.cfg.Display.Backend == config.BackendSoft {
		return softdevice.NewDevice(w.Width, w.Height)
	}

	if e.window == nil {
		e.window = window.NewWindow(window.WithTitle(w.Title), window.WithSize(w.Width, w.Height))
	}
	mode := wgpudevice.PresentModeVSync
	if !w.VSync {
		mode = wgpudevice.PresentModeUncapped
	}
	msaa := wgpudevice.MSAAOff
	if w.MSAA >= int(wgpudevice.MSAA4x) {
		msaa = wgpudevice.MSAA4x
	}
	return wgpudevice.NewDevice(e.window.Width(), e.window.Height(),
		wgpudevice.WithSurface(e.window.SurfaceDescriptor()),
		wgpudevice.WithPresentMode(mode),
		wgpudevice.WithMSAA(msaa),
		wgpudevice.WithLabel(w.Title),
	)
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Device() gpu.Device {
	return e.device
}

func (e *engine) Config() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

func (e *engine) Loader() loader.Loader {
	return e.loader
}

func (e *engine) Run() {
	e.running = true
	if e.configPath != "" {
		e.startWatch()
	}
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
	e.shutdown()
	if e.window != nil {
		if err := e.window.Close(); err != nil {
			common.Logger().Warn("window close failed", "error", err)
		}
	}
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
	if e.window != nil {
		e.window.RequestClose()
	}
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// startWatch reloads the config file on change. A watcher that cannot start leaves the
// configuration static.
func (e *engine) startWatch() {
	ctx, cancel := context.WithCancel(context.Background())
	updates, err := config.Watch(ctx, e.configPath, e.cfg)
	if err != nil {
		cancel()
		common.Logger().Warn("config watch disabled", "path", e.configPath, "error", err)
		return
	}
	e.updates, e.stopWatch = updates, cancel
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine. It is the
// only goroutine touching the device once Run was called.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			e.frame(dt)

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// frame runs one iteration of the render loop: housekeeping, then per-layer animation,
// upload and sync, then compositing and picking.
func (e *engine) frame(dt float32) {
	e.applyConfigUpdates()
	e.runTasks()
	e.releaseRetired()
	e.restoreContext()
	e.applyResize()
	e.drainLoader()

	layers := e.activeLayers()
	e.requestTextures(layers)
	for _, l := range layers {
		l.scene.PrepareCompute(dt)
		if err := l.scene.Upload(e.device); err != nil {
			common.Logger().Error("scene upload failed", "scene", l.scene.Name(), "error", err)
		}
		if err := l.scene.Sync(l.display); err != nil {
			common.Logger().Error("scene sync failed", "scene", l.scene.Name(), "error", err)
		}
	}
	e.draw(layers)
	e.servePicks(layers)
}

// runTasks runs the queued render goroutine tasks.
func (e *engine) runTasks() {
	for {
		select {
		case f := <-e.tasks:
			f()
		default:
			return
		}
	}
}

// draw composites every active layer into one frame when any of them changed. The bottom layer
// clears the canvas; the layers above draw over it.
func (e *engine) draw(layers []*layer) {
	dirty := slices.ContainsFunc(layers, func(l *layer) bool {
		return l.display.Dirty().Has(renderer.StageImage)
	})
	if !dirty {
		return
	}
	for i, l := range layers {
		if err := l.display.Render(renderer.RenderOptions{Force: true, NoClear: i > 0}); err != nil {
			common.Logger().Error("display render failed", "scene", l.scene.Name(), "error", err)
		}
	}
	e.device.Present()
}

// servePicks answers the queued pick requests from the top layer down.
func (e *engine) servePicks(layers []*layer) {
	for {
		var req pickRequest
		select {
		case req = <-e.picks:
		default:
			return
		}

		result := PickResult{Key: -1}
		for i := len(layers) - 1; i >= 0; i-- {
			l := layers[i]
			hit, err := l.display.Pick(req.x, req.y, renderer.PickOptions{Ray: req.ray})
			if err != nil {
				common.Logger().Warn("pick failed", "scene", l.scene.Name(), "error", err)
				continue
			}
			if hit != nil {
				result = PickResult{Key: l.key, Hit: hit, Object: l.scene.Resolve(hit)}
				break
			}
		}
		common.Logger().Debug("pick", "x", req.x, "y", req.y, "key", result.Key)
		if e.pickCallback != nil {
			e.pickCallback(result)
		}
	}
}

// drainLoader handles every completed load without blocking.
func (e *engine) drainLoader() {
	for {
		select {
		case res, ok := <-e.loader.Results():
			if !ok {
				return
			}
			e.handleResult(res)
		default:
			return
		}
	}
}

func (e *engine) handleResult(res loader.Result) {
	switch res.Kind {
	case loader.ResultTexture:
		if res.Err != nil {
			common.Logger().Warn("texture load failed", "path", res.Name, "error", res.Err)
			return
		}
		e.bindTexture(res.Name, res.Texture)
	case loader.ResultGeometry:
		e.mu.Lock()
		done := e.models[res.Name]
		delete(e.models, res.Name)
		e.mu.Unlock()

		if res.Err != nil {
			common.Logger().Warn("geometry load failed", "name", res.Name, "error", res.Err)
			if done != nil {
				done(nil, res.Err)
			}
			return
		}
		m, err := model.NewModel(res.Mesh, model.WithName(res.Name))
		if done != nil {
			done(m, err)
		}
	}
}

// bindTexture uploads decoded pixels and binds the texture core to every scene.
func (e *engine) bindTexture(path string, data common.TextureStagingData) {
	h, err := e.device.CreateTexture(data)
	if err != nil {
		common.Logger().Warn("texture upload failed", "path", path, "error", err)
		return
	}
	if old, ok := e.textures[path]; ok {
		e.device.DeleteTexture(old)
	}
	e.textures[path] = h
	c := core.NewTexture(h)
	for _, l := range e.allLayers() {
		l.scene.BindTexture(path, c)
	}
}

// requestTextures submits the unbound texture paths of the layers to the loader once.
func (e *engine) requestTextures(layers []*layer) {
	for _, l := range layers {
		for _, p := range l.scene.TexturePaths() {
			if h, ok := e.textures[p]; ok {
				l.scene.BindTexture(p, core.NewTexture(h))
				continue
			}
			if e.requested[p] {
				continue
			}
			e.requested[p] = true
			if data, ok := e.loader.Texture(p); ok {
				e.bindTexture(p, data)
				continue
			}
			if err := e.loader.LoadTexture(p); err != nil {
				common.Logger().Warn("texture request failed", "path", p, "error", err)
			}
		}
	}
}

// restoreContext brings a lost device back, retrying with exponential backoff, and rebuilds
// every layer on the new context.
func (e *engine) restoreContext() {
	if !e.device.ContextLost() {
		return
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	err := backoff.RetryNotify(func() error {
		return restoreDevice(e.device)
	}, backoff.WithMaxRetries(b, 5), func(err error, wait time.Duration) {
		common.Logger().Warn("device restore failed, retrying", "error", err, "wait", wait)
	})
	if err != nil {
		common.Logger().Error("device restore failed", "error", err)
		return
	}

	clear(e.textures)
	clear(e.requested)
	for _, l := range e.allLayers() {
		if err := l.display.ContextRestored(); err != nil {
			common.Logger().Error("display restore failed", "scene", l.scene.Name(), "error", err)
		}
		if err := l.scene.Restore(e.device); err != nil {
			common.Logger().Error("scene restore failed", "scene", l.scene.Name(), "error", err)
		}
	}
	common.Logger().Info("device context restored", "layers", len(e.allLayers()))
}

// applyResize resizes the canvas to the latest requested size.
func (e *engine) applyResize() {
	var size [2]int
	select {
	case size = <-e.resizes:
	default:
		return
	}
	width, height := size[0], size[1]
	if width <= 0 || height <= 0 {
		return
	}
	resizeDevice(e.device, width, height)
	for _, l := range e.allLayers() {
		l.scene.Camera().SetAspect(float32(width) / float32(height))
		l.display.MarkDirty(renderer.StageImage)
	}
}

// requestResize records the latest framebuffer size, replacing any size not yet applied.
func (e *engine) requestResize(width, height int) {
	for {
		select {
		case e.resizes <- [2]int{width, height}:
			return
		default:
			select {
			case <-e.resizes:
			default:
			}
		}
	}
}

// applyConfigUpdates applies a pending config reload. Sections that configure resources created
// at start-up take effect on the next start.
func (e *engine) applyConfigUpdates() {
	if e.updates == nil {
		return
	}
	var u config.Update
	select {
	case u = <-e.updates:
	default:
		return
	}
	if u.Err != nil {
		common.Logger().Warn("config reload rejected", "error", u.Err)
		return
	}

	for _, section := range u.Changed {
		switch section {
		case config.SectionProfiling:
			e.profilingEnabled = u.Config.Profiling.Enabled
		case config.SectionDisplay:
			for _, l := range e.allLayers() {
				l.display.MarkDirty(renderer.StageImage)
			}
		case config.SectionWindow:
			if pm, ok := e.device.(interface{ SetPresentMode(wgpudevice.PresentMode) }); ok {
				mode := wgpudevice.PresentModeVSync
				if !u.Config.Window.VSync {
					mode = wgpudevice.PresentModeUncapped
				}
				pm.SetPresentMode(mode)
				width, height := e.device.Size()
				resizeDevice(e.device, width, height)
			}
		default:
			common.Logger().Info("config section takes effect on restart", "section", section)
		}
	}
	e.mu.Lock()
	e.cfg = u.Config
	e.mu.Unlock()
	common.Logger().Info("config reloaded", "changed", u.Changed)
}

// shutdown stops the watcher, drains the loader and releases every device resource.
func (e *engine) shutdown() {
	if e.stopWatch != nil {
		e.stopWatch()
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for range e.loader.Results() {
		}
	}()
	e.loader.Close()
	<-drained

	e.releaseRetired()
	for _, l := range e.allLayers() {
		l.display.Release()
	}
	for _, h := range e.textures {
		e.device.DeleteTexture(h)
	}
	clear(e.textures)
	releaseDevice(e.device)
	common.Logger().Info("engine stopped")
}

func (e *engine) releaseRetired() {
	e.mu.Lock()
	retired := e.retired
	e.retired = nil
	e.mu.Unlock()
	for _, d := range retired {
		d.Release()
	}
}

// drawStats sums the counters of every display for the profiler.
func (e *engine) drawStats() renderer.DrawStats {
	var total renderer.DrawStats
	for _, l := range e.allLayers() {
		s := l.display.Stats()
		for i := range total.StageRuns {
			total.StageRuns[i] += s.StageRuns[i]
		}
		total.Frames += s.Frames
		total.Picks += s.Picks
		total.DrawCalls += s.DrawCalls
		total.OpaqueChunks += s.OpaqueChunks
		total.TransparentChunks += s.TransparentChunks
		total.PickChunks += s.PickChunks
		total.OpaqueObjects += s.OpaqueObjects
		total.TransparentObjects += s.TransparentObjects
		total.PickObjects += s.PickObjects
		total.Objects += s.Objects
	}
	return total
}

// allLayers returns every layer in ascending key order.
func (e *engine) allLayers() []*layer {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]int, 0, len(e.layers))
	for k := range e.layers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]*layer, len(keys))
	for i, k := range keys {
		out[i] = e.layers[k]
	}
	return out
}

// activeLayers returns the layers whose scene is active in ascending key order.
func (e *engine) activeLayers() []*layer {
	return slices.DeleteFunc(e.allLayers(), func(l *layer) bool {
		return !l.scene.Active()
	})
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if !e.running {
		e.engineTickRate = newRate
		return
	}
	// Replace a pending update that the loop has not picked up yet.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetPickCallback(callback func(result PickResult)) {
	e.pickCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) AddScene(key int, s scene.Scene, options ...renderer.DisplayBuilderOption) renderer.Display {
	cfg := e.Config()
	c := cfg.Display.ClearColor
	opts := append([]renderer.DisplayBuilderOption{
		renderer.WithTransparent(cfg.Display.Transparent),
		renderer.WithClearColor(mgl32.Vec4{c[0], c[1], c[2], c[3]}),
		renderer.WithProgramCache(program.NewCache(e.canvas, program.WithValidation(cfg.Shaders.Validate))),
	}, options...)
	d := renderer.NewDisplay(e.canvas, opts...)

	e.mu.Lock()
	defer e.mu.Unlock()
	if old, ok := e.layers[key]; ok {
		e.retired = append(e.retired, old.display)
	}
	e.layers[key] = &layer{key: key, scene: s, display: d}
	return d
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l, ok := e.layers[key]; ok {
		e.retired = append(e.retired, l.display)
		delete(e.layers, key)
	}
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l, ok := e.layers[key]; ok {
		return l.scene
	}
	return nil
}

func (e *engine) Display(key int) renderer.Display {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l, ok := e.layers[key]; ok {
		return l.display
	}
	return nil
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]scene.Scene, len(e.layers))
	for k, l := range e.layers {
		cp[k] = l.scene
	}
	return cp
}

func (e *engine) Pick(x, y int, ray bool) {
	select {
	case e.picks <- pickRequest{x: x, y: y, ray: ray}:
	default:
		common.Logger().Warn("pick queue full, dropping request", "x", x, "y", y)
	}
}

func (e *engine) RunOnRender(f func()) {
	e.tasks <- f
}

func (e *engine) LoadModel(name string, produce loader.MeshProducer, done func(model.Model, error)) error {
	e.mu.Lock()
	e.models[name] = done
	e.mu.Unlock()
	if err := e.loader.LoadGeometry(name, produce); err != nil {
		e.mu.Lock()
		delete(e.models, name)
		e.mu.Unlock()
		return fmt.Errorf("failed to load model %q: %w", name, err)
	}
	return nil
}
