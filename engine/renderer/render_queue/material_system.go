package render_queue

import (
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/light_grid"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command_buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/renderable"
)

// PassContext is the scene state of the pass being rendered.
// LightGrid, when set, has collected the lights of Camera for the current frame.
type PassContext struct {
	Camera    camera.Camera
	Shadow    light.ShadowState
	LightGrid light_grid.LightGrid
}

// FillRequest carries everything a material system needs to write the per-draw data of one renderable.
type FillRequest struct {
	Cache           *material.ShaderCache
	Queued          *renderable.QueuedRenderable
	CasterPass      bool
	LastCacheHash   uint32
	LastTextureHash uint16
	// TextureBound is false until a textured renderable has been filled since the state was cleared.
	TextureBound bool
}

// MaterialSystem renders datablocks of one material.Type. The render queue calls it once per pass
// to prepare pass state and once per renderable to pick a shader variant and write draw data.
type MaterialSystem interface {
	// Type returns the datablock type this system renders.
	Type() material.Type

	// PreparePassHash builds the pass state shared by every renderable of the coming render call.
	//
	// Parameters:
	//   - ctx: the pass's camera and shadow state
	//   - casterPass: true for shadow caster passes
	//   - dualParaboloid: true when rendering a dual paraboloid shadow map
	//
	// Returns:
	//   - material.PassCache: the pass state
	//   - error: a wrapped GPU error
	PreparePassHash(ctx PassContext, casterPass, dualParaboloid bool) (material.PassCache, error)

	// GetMaterial returns the shader variant for qr, compiling it on first use.
	// Implementations return last unchanged when it already matches.
	//
	// Parameters:
	//   - last: the shader cache bound for the previous renderable, may be nil
	//   - pass: the cache returned by PreparePassHash
	//   - qr: the renderable
	//   - casterPass: true for shadow caster passes
	//
	// Returns:
	//   - *material.ShaderCache: the variant to bind
	//   - error: a wrapped compile error
	GetMaterial(last *material.ShaderCache, pass material.PassCache, qr *renderable.QueuedRenderable, casterPass bool) (*material.ShaderCache, error)

	// FillBuffersFor writes the per-draw data of one renderable, appending any binds it needs to cb.
	//
	// Parameters:
	//   - req: the renderable and the state bound before it
	//   - cb: the command buffer of the render call
	//
	// Returns:
	//   - uint32: the base instance the draw must use to reach the written data
	//   - error: a wrapped GPU error
	FillBuffersFor(req FillRequest, cb *command_buffer.CommandBuffer) (uint32, error)

	// PreCommandBufferExecution flushes pending writes before the command buffer runs.
	PreCommandBufferExecution(cb *command_buffer.CommandBuffer) error

	// PostCommandBufferExecution runs after the command buffer has been executed.
	PostCommandBufferExecution(cb *command_buffer.CommandBuffer)

	// FrameEnded recycles per-frame resources.
	FrameEnded()
}
