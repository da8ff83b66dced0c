package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/light_grid"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_queue"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// The tick callback will be called at this rate for game logic updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithScene registers a scene at the given z-index key during engine construction.
// Scenes are rendered in ascending key order.
//
// Parameters:
//   - key: the z-index determining render order (lower renders first)
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		if s == nil {
			panic("engine: WithScene requires a non-nil Scene")
		}
		e.scenes[key] = s
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}

// WithFrameListener registers a function called after every rendered frame.
//
// Parameters:
//   - l: the listener
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameListener(l FrameListener) EngineBuilderOption {
	return func(e *engine) {
		if l == nil {
			panic("engine: WithFrameListener requires a non-nil listener")
		}
		e.listeners = append(e.listeners, l)
	}
}

// WithFrameTarget sets the target whose pass every frame is recorded into, typically a
// renderer.Renderer. Without one the backend is expected to have a pass open already.
//
// Parameters:
//   - t: the frame target
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameTarget(t FrameTarget) EngineBuilderOption {
	return func(e *engine) {
		e.target = t
	}
}

// WithRenderQueue renders through a caller-owned queue instead of creating one.
// Queue options are ignored when this is set, and Destroy leaves the queue alone.
func WithRenderQueue(q render_queue.RenderQueue) EngineBuilderOption {
	return func(e *engine) {
		e.queue = q
	}
}

// WithMaterialSystem registers a material system on the engine-created render queue.
//
// Parameters:
//   - t: the datablock type ms renders
//   - ms: the material system
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMaterialSystem(t material.Type, ms render_queue.MaterialSystem) EngineBuilderOption {
	return func(e *engine) {
		e.queueOptions = append(e.queueOptions, render_queue.WithMaterialSystem(t, ms))
	}
}

// WithRenderQueueOptions passes options to the engine-created render queue.
func WithRenderQueueOptions(opts ...render_queue.RenderQueueBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.queueOptions = append(e.queueOptions, opts...)
	}
}

// WithLightGridOptions passes options to the light grid created for every scene.
//
// Parameters:
//   - opts: the light grid options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLightGridOptions(opts ...light_grid.LightGridBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.gridOptions = append(e.gridOptions, opts...)
	}
}
