// Package lit is a forward clustered material system. Every fragment finds its cell in the pass
// camera's light grid and accumulates the diffuse contribution of the lights the cell lists.
package lit

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/light_grid"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command_buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_queue"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/renderable"
)

// VariantCaster marks the depth-only variant used by shadow caster passes.
const VariantCaster uint32 = 1

// ShaderHash returns the shader hash a renderable using db should report.
//
// Parameters:
//   - db: the datablock
//   - casterPass: true for shadow caster passes
//
// Returns:
//   - uint32: the 10-bit shader hash
func ShaderHash(db material.Datablock, casterPass bool) uint32 {
	var v uint32
	if casterPass {
		v |= VariantCaster
	}
	return material.ShaderHash(db.Type(), v)
}

type shaderKey struct {
	shaderHash uint32
	passHash   uint32
	macroblock *pipeline.Macroblock
	blendblock *pipeline.Blendblock
}

// passLights are the grid buffers bound for the current pass.
type passLights struct {
	grid      buffer.Buffer
	lightList buffer.Buffer
}

// litSystem is the implementation of the Lit interface.
type litSystem struct {
	provider     buffer.Provider
	materialType material.Type
	ambient      [3]float32

	passSlot       uint16
	drawSlot       uint16
	gridSlot       uint16
	lightListSlot  uint16
	drawsPerBuffer int

	caches map[shaderKey]*material.ShaderCache

	passBuffers []buffer.Buffer
	passUsed    int
	pass        buffer.Buffer
	lights      passLights
	passBound   bool

	draws *material.DrawPool
}

// Lit is a material system shading opaque geometry with the lights of a light grid.
// Datablock textures are ignored.
type Lit interface {
	render_queue.MaterialSystem

	// ShaderCacheCount returns the number of distinct shader caches created so far.
	ShaderCacheCount() int

	// DrawBufferCount returns the number of per-draw const buffers owned by the system.
	DrawBufferCount() int

	// ShaderSource returns the WGSL program of a lit shader hash laid out for this system's
	// slots. It has the signature of renderer.ShaderResolver.
	//
	// Parameters:
	//   - shaderHash: a hash produced by ShaderHash
	//
	// Returns:
	//   - renderer.ShaderSource: the program and its bind group kinds
	//   - error: an error if the hash belongs to another material system
	ShaderSource(shaderHash uint32) (renderer.ShaderSource, error)

	// Destroy releases every buffer the system created.
	//
	// Returns:
	//   - error: the joined provider errors
	Destroy() error
}

var _ Lit = &litSystem{}

// NewLit creates a lit material system allocating its const buffers through provider.
// It renders datablocks of material.TypePbs unless WithMaterialType says otherwise.
//
// Parameters:
//   - provider: creates the pass and per-draw const buffers
//   - opts: variadic list of LitBuilderOption functions
//
// Returns:
//   - Lit: the material system
func NewLit(provider buffer.Provider, opts ...LitBuilderOption) Lit {
	if provider == nil {
		panic("lit: NewLit requires a non-nil Provider")
	}
	l := &litSystem{
		provider:       provider,
		materialType:   material.TypePbs,
		ambient:        [3]float32{0.05, 0.05, 0.05},
		passSlot:       0,
		drawSlot:       1,
		gridSlot:       2,
		lightListSlot:  3,
		drawsPerBuffer: 256,
		caches:         make(map[shaderKey]*material.ShaderCache),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.drawsPerBuffer < 1 {
		panic("lit: NewLit requires at least one draw per buffer")
	}
	if l.materialType >= material.NumTypes {
		panic("lit: NewLit requires a valid material Type")
	}
	l.draws = material.NewDrawPool(provider, l.drawsPerBuffer, "lit")
	return l
}

func (l *litSystem) Type() material.Type {
	return l.materialType
}

func (l *litSystem) PreparePassHash(ctx render_queue.PassContext, casterPass, dualParaboloid bool) (material.PassCache, error) {
	if ctx.Camera == nil {
		return material.PassCache{}, errors.New("lit: pass context has no camera")
	}
	if !casterPass && ctx.LightGrid == nil {
		return material.PassCache{}, errors.New("lit: pass context has no light grid")
	}

	if l.passUsed == len(l.passBuffers) {
		b, err := l.provider.CreateConstBuffer(GPULitPassSize, buffer.UsageDynamic)
		if err != nil {
			return material.PassCache{}, fmt.Errorf("lit: create pass buffer: %w", err)
		}
		l.passBuffers = append(l.passBuffers, b)
	}
	l.pass = l.passBuffers[l.passUsed]
	l.passUsed++
	l.passBound = false

	var block GPULitPass
	l.lights = passLights{}
	if casterPass {
		block = NewGPULitPass(ctx.Camera, light_grid.GPUForward3DParams{}, 0, l.ambient)
	} else {
		l.lights = passLights{
			grid:      ctx.LightGrid.GridBuffer(ctx.Camera),
			lightList: ctx.LightGrid.LightListBuffer(ctx.Camera),
		}
		block = NewGPULitPass(ctx.Camera, ctx.LightGrid.ShaderParams(), ctx.LightGrid.NumLights(ctx.Camera), l.ambient)
	}

	dst, err := l.pass.Map(0, GPULitPassSize)
	if err != nil {
		return material.PassCache{}, fmt.Errorf("lit: map pass buffer: %w", err)
	}
	block.MarshalInto(dst)
	if err := l.pass.Unmap(buffer.UnmapAll); err != nil {
		return material.PassCache{}, fmt.Errorf("lit: unmap pass buffer: %w", err)
	}

	var hash uint32 = 1
	if casterPass {
		hash |= 2
	}
	if dualParaboloid {
		hash |= 4
	}
	return material.PassCache{
		Hash:           hash,
		Type:           l.materialType,
		CasterPass:     casterPass,
		DualParaboloid: dualParaboloid,
		ShadowNodeID:   ctx.Shadow.NodeID,
	}, nil
}

func (l *litSystem) GetMaterial(last *material.ShaderCache, pass material.PassCache, qr *renderable.QueuedRenderable, casterPass bool) (*material.ShaderCache, error) {
	db := qr.Renderable.Datablock(casterPass)
	key := shaderKey{
		shaderHash: qr.Renderable.ShaderHash(casterPass),
		passHash:   pass.Hash,
		macroblock: db.Macroblock(casterPass),
		blendblock: db.Blendblock(casterPass),
	}
	if t := material.TypeOfShaderHash(key.shaderHash); t != l.materialType {
		return nil, fmt.Errorf("lit: shader hash %#x belongs to %s", key.shaderHash, t)
	}
	if c, ok := l.caches[key]; ok {
		return c, nil
	}

	c := &material.ShaderCache{
		Hash: key.shaderHash,
		Type: l.materialType,
		PipelineState: pipeline.NewPipelineState(key.shaderHash,
			pipeline.WithLabel(fmt.Sprintf("lit:%#x:pass%d", key.shaderHash, pass.Hash)),
			pipeline.WithMacroblock(key.macroblock),
			pipeline.WithBlendblock(key.blendblock),
		),
	}
	l.caches[key] = c
	common.Logger().Debug("lit shader cache created", "hash", key.shaderHash, "pass", pass.Hash, "caches", len(l.caches))
	return c, nil
}

func (l *litSystem) FillBuffersFor(req render_queue.FillRequest, cb *command_buffer.CommandBuffer) (uint32, error) {
	if !l.passBound && l.pass != nil {
		cb.Add(command_buffer.BindConstBuffer(l.passSlot, l.pass, 0, uint32(l.pass.Size())))
		if !req.CasterPass && l.lights.grid != nil {
			cb.Add(command_buffer.BindTexBuffer(l.gridSlot, l.lights.grid, 0, 0))
			cb.Add(command_buffer.BindTexBuffer(l.lightListSlot, l.lights.lightList, 0, 0))
		}
		l.passBound = true
	}

	dst, baseInstance, fresh, err := l.draws.Next()
	if err != nil {
		return 0, err
	}
	if fresh {
		draw := l.draws.Current()
		cb.Add(command_buffer.BindConstBuffer(l.drawSlot, draw, 0, uint32(draw.Size())))
	}

	qr := req.Queued
	data := material.GPUDrawData{
		World:        qr.Owner.WorldMatrix(),
		DiffuseColor: qr.Renderable.Datablock(req.CasterPass).DiffuseColor(),
	}
	data.MarshalInto(dst)
	return baseInstance, nil
}

func (l *litSystem) PreCommandBufferExecution(cb *command_buffer.CommandBuffer) error {
	return l.draws.Flush()
}

func (l *litSystem) PostCommandBufferExecution(cb *command_buffer.CommandBuffer) {
	l.passBound = false
}

func (l *litSystem) FrameEnded() {
	l.draws.FrameEnded()
	l.passUsed = 0
	l.pass = nil
	l.lights = passLights{}
}

func (l *litSystem) ShaderCacheCount() int {
	return len(l.caches)
}

func (l *litSystem) DrawBufferCount() int {
	return l.draws.Count()
}

func (l *litSystem) Destroy() error {
	var errs []error
	if err := l.draws.Destroy(); err != nil {
		errs = append(errs, err)
	}
	for _, b := range l.passBuffers {
		if err := l.provider.DestroyBuffer(b); err != nil {
			errs = append(errs, err)
		}
	}
	l.passBuffers = nil
	l.passUsed = 0
	l.pass = nil
	l.lights = passLights{}
	if len(errs) > 0 {
		return fmt.Errorf("lit: destroy buffers: %w", errors.Join(errs...))
	}
	return nil
}
