package engine

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light_grid"
	"github.com/Carmen-Shannon/oxy-render/engine/profiler"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command_buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_queue"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
)

// FrameTarget opens and submits the GPU pass a frame is recorded into.
// renderer.Renderer satisfies it.
type FrameTarget interface {
	BeginFrame() error
	EndFrame() error
}

// Resizer is implemented by frame targets whose size can change.
type Resizer interface {
	Resize(width, height int) error
}

// FrameListener is called after every rendered frame with the frame number that just ended and
// the render queue counters summed over every camera of the frame.
type FrameListener func(frame uint32, stats render_queue.Stats)

// engine implements the Engine interface.
// Coordinates the tick and render goroutines.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	provider  buffer.Provider
	backend   command_buffer.Backend
	target    FrameTarget
	queue     render_queue.RenderQueue
	ownsQueue bool

	queueOptions []render_queue.RenderQueueBuilderOption
	gridOptions  []light_grid.LightGridBuilderOption
	grids        map[scene.Scene]light_grid.LightGrid

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	listeners      []FrameListener

	scenes map[int]scene.Scene

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine drives frames. Each frame it updates every active scene's transforms, builds the
// clustered light list of every camera, fills and renders the render queue, and recycles the
// per-frame GPU resources.
type Engine interface {
	// RenderFrame renders one frame synchronously on the calling goroutine.
	// A failed frame is abandoned; its resources are still recycled.
	//
	// Returns:
	//   - error: the joined scene and target errors of the frame
	RenderFrame() error

	// Resize resizes the frame target, when it supports resizing, and sets the aspect ratio of
	// every scene camera.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: the target's resize error
	Resize(width, height int) error

	// RenderQueue returns the queue every scene is rendered through.
	RenderQueue() render_queue.RenderQueue

	// LightGrid returns the light grid built for s, or nil before s was first rendered.
	//
	// Parameters:
	//   - s: a registered scene
	//
	// Returns:
	//   - light_grid.LightGrid: the scene's grid
	LightGrid(s scene.Scene) light_grid.LightGrid

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
	// Use this for game logic and transform updates.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// AddFrameListener registers a function called after every rendered frame.
	//
	// Parameters:
	//   - l: the listener
	AddFrameListener(l FrameListener)

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key.
	// Scenes are rendered in ascending key order.
	//
	// Parameters:
	//   - key: the z-index determining render order (lower renders first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key and releases its light grid.
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

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Run starts the tick and render goroutines and blocks until Quit is called.
	Run()

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Destroy releases the light grids and, when the engine created it, the render queue.
	// Call it after Run has returned.
	//
	// Returns:
	//   - error: the joined release errors
	Destroy() error
}

var _ Engine = &engine{}

// NewEngine creates a new Engine rendering through backend with GPU buffers from provider.
// A render queue is created on provider unless one is supplied with WithRenderQueue.
//
// Parameters:
//   - provider: creates the light grid and render queue buffers and counts frames
//   - backend: executes the render queue's commands
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(provider buffer.Provider, backend command_buffer.Backend, options ...EngineBuilderOption) Engine {
	if provider == nil || backend == nil {
		panic("engine: NewEngine requires a non-nil Provider and Backend")
	}
	e := &engine{
		mu:              &sync.Mutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		provider:        provider,
		backend:         backend,
		grids:           make(map[scene.Scene]light_grid.LightGrid),
		scenes:          make(map[int]scene.Scene),
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}
	if e.queue == nil {
		e.queue = render_queue.NewRenderQueue(provider, e.queueOptions...)
		e.ownsQueue = true
	}
	return e
}

func (e *engine) RenderQueue() render_queue.RenderQueue {
	return e.queue
}

func (e *engine) LightGrid(s scene.Scene) light_grid.LightGrid {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grids[s]
}

// activeScenes returns the active scenes in ascending z-index order together with their light grids,
// creating grids for scenes rendered for the first time.
func (e *engine) activeScenes() ([]scene.Scene, []light_grid.LightGrid) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var scenes []scene.Scene
	var grids []light_grid.LightGrid
	for _, k := range slices.Sorted(maps.Keys(e.scenes)) {
		s := e.scenes[k]
		if !s.Active() {
			continue
		}
		g, ok := e.grids[s]
		if !ok {
			g = light_grid.NewLightGrid(e.provider, s, e.gridOptions...)
			e.grids[s] = g
		}
		scenes = append(scenes, s)
		grids = append(grids, g)
	}
	return scenes, grids
}

func (e *engine) RenderFrame() error {
	scenes, grids := e.activeScenes()

	if e.target != nil {
		if err := e.target.BeginFrame(); err != nil {
			e.endFrame(render_queue.Stats{})
			return fmt.Errorf("engine: begin frame: %w", err)
		}
	}

	var stats render_queue.Stats
	var errs []error
	e.queue.ClearState()
	for i, s := range scenes {
		s.UpdateTransforms()
		for _, cam := range s.Cameras() {
			n, err := e.renderCamera(s, grids[i], cam)
			if err != nil {
				errs = append(errs, fmt.Errorf("engine: scene %q: %w", s.Name(), err))
				continue
			}
			stats = stats.Add(e.queue.Stats())
			common.Logger().Debug("camera rendered", "scene", s.Name(), "camera", cam.ID(), "queued", n)
		}
	}

	if e.target != nil {
		if err := e.target.EndFrame(); err != nil {
			errs = append(errs, fmt.Errorf("engine: end frame: %w", err))
		}
	}
	e.endFrame(stats)
	return errors.Join(errs...)
}

// renderCamera builds the camera's light list, then fills and renders every queue id of s from it.
func (e *engine) renderCamera(s scene.Scene, grid light_grid.LightGrid, c camera.Camera) (int, error) {
	if err := grid.CollectLights(c); err != nil {
		return 0, fmt.Errorf("collect lights: %w", err)
	}
	e.queue.Clear()
	e.queue.SetPassContext(render_queue.PassContext{Camera: c, Shadow: s.ShadowState(), LightGrid: grid})
	n := s.FillQueue(e.queue, c, 0, render_queue.NumQueues, false)
	if err := e.queue.Render(e.backend, 0, render_queue.NumQueues, false, false); err != nil {
		return n, fmt.Errorf("render: %w", err)
	}
	return n, nil
}

// endFrame recycles the frame's resources and reports it.
func (e *engine) endFrame(stats render_queue.Stats) {
	e.queue.Clear()
	e.queue.FrameEnded()
	frame := e.provider.FrameCount()
	e.provider.AdvanceFrame()

	e.mu.Lock()
	listeners := slices.Clone(e.listeners)
	profiling := e.profilingEnabled
	e.mu.Unlock()

	for _, l := range listeners {
		l(frame, stats)
	}
	if profiling && e.profiler != nil {
		e.profiler.Tick(stats)
	}
}

func (e *engine) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("engine: invalid size %dx%d", width, height)
	}
	if r, ok := e.target.(Resizer); ok {
		if err := r.Resize(width, height); err != nil {
			return fmt.Errorf("engine: resize: %w", err)
		}
	}
	for _, s := range e.Scenes() {
		for _, c := range s.Cameras() {
			c.SetAspect(float32(width) / float32(height))
		}
	}
	return nil
}

func (e *engine) Run() {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	e.handle()
	e.wg.Wait()
}

// Quit signals all engine goroutines to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.quitChannel)
	})
}

// handle launches the tick and render goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	e.mu.Lock()
	rate := e.engineTickRate
	e.mu.Unlock()
	ticker := time.NewTicker(rate)
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

			e.mu.Lock()
			cb := e.tickCallback
			e.mu.Unlock()
			if cb != nil {
				cb(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.mu.Lock()
			e.engineTickRate = newRate
			e.mu.Unlock()
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Failed frames are logged and skipped. Recovers from panics to avoid crashing the process
// and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			start := time.Now()
			if err := e.RenderFrame(); err != nil {
				common.Logger().Warn("frame abandoned", "err", err)
			}

			e.mu.Lock()
			limit := e.renderFrameLimit
			e.mu.Unlock()
			if limit > 0 {
				if remaining := limit - time.Since(start); remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	e.mu.Lock()
	running := e.running
	if !running {
		e.engineTickRate = newRate
	}
	e.mu.Unlock()
	if !running {
		return
	}

	// Non-blocking send - if channel is full, replace the pending value
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

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) AddFrameListener(l FrameListener) {
	if l == nil {
		panic("engine: AddFrameListener requires a non-nil listener")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	if s == nil {
		panic("engine: AddScene requires a non-nil Scene")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.scenes[key]
	if !ok {
		return
	}
	delete(e.scenes, key)
	if g, ok := e.grids[s]; ok {
		if err := g.Destroy(); err != nil {
			common.Logger().Warn("light grid release failed", "scene", s.Name(), "err", err)
		}
		delete(e.grids, s)
	}
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.scenes)
}

func (e *engine) Destroy() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for s, g := range e.grids {
		if err := g.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("engine: scene %q light grid: %w", s.Name(), err))
		}
	}
	clear(e.grids)
	if e.ownsQueue {
		if err := e.queue.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("engine: render queue: %w", err))
		}
	}
	return errors.Join(errs...)
}
