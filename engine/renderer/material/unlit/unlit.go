// Package unlit is the reference low-level material system. It writes one camera block per pass
// and one world matrix plus color per renderable into pooled const buffers.
package unlit

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command_buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_queue"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/renderable"
)

// Shader variant bits.
const (
	VariantTextured uint32 = 1 << iota
	VariantCaster
	VariantDualParaboloid
)

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
	if db.Texture() != nil {
		v |= VariantTextured
	}
	if casterPass {
		v |= VariantCaster
	}
	return material.ShaderHash(material.TypeUnlit, v)
}

type shaderKey struct {
	shaderHash uint32
	passHash   uint32
	macroblock *pipeline.Macroblock
	blendblock *pipeline.Blendblock
}

// unlitSystem is the implementation of the Unlit interface.
type unlitSystem struct {
	provider buffer.Provider

	passSlot       uint16
	drawSlot       uint16
	textureSlot    uint16
	drawsPerBuffer int

	caches map[shaderKey]*material.ShaderCache

	passBuffers []buffer.Buffer
	passUsed    int
	pass        buffer.Buffer
	passBound   bool

	draws *material.DrawPool
}

// Unlit is a material system for untextured or single-texture geometry without lighting.
type Unlit interface {
	render_queue.MaterialSystem

	// ShaderCacheCount returns the number of distinct shader caches created so far.
	ShaderCacheCount() int

	// DrawBufferCount returns the number of per-draw const buffers owned by the system.
	DrawBufferCount() int

	// ShaderSource returns the WGSL program of an unlit shader hash laid out for this system's
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

var _ Unlit = &unlitSystem{}

// NewUnlit creates an unlit material system allocating its const buffers through provider.
//
// Parameters:
//   - provider: creates the camera and per-draw const buffers
//   - opts: variadic list of UnlitBuilderOption functions
//
// Returns:
//   - Unlit: the material system
func NewUnlit(provider buffer.Provider, opts ...UnlitBuilderOption) Unlit {
	if provider == nil {
		panic("unlit: NewUnlit requires a non-nil Provider")
	}
	u := &unlitSystem{
		provider:       provider,
		passSlot:       0,
		drawSlot:       1,
		textureSlot:    2,
		drawsPerBuffer: 256,
		caches:         make(map[shaderKey]*material.ShaderCache),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.drawsPerBuffer < 1 {
		panic("unlit: NewUnlit requires at least one draw per buffer")
	}
	u.draws = material.NewDrawPool(provider, u.drawsPerBuffer, "unlit")
	return u
}

func (u *unlitSystem) Type() material.Type {
	return material.TypeUnlit
}

func (u *unlitSystem) PreparePassHash(ctx render_queue.PassContext, casterPass, dualParaboloid bool) (material.PassCache, error) {
	if ctx.Camera == nil {
		return material.PassCache{}, errors.New("unlit: pass context has no camera")
	}

	if u.passUsed == len(u.passBuffers) {
		uniform := camera.GPUCameraUniform{}
		b, err := u.provider.CreateConstBuffer(uniform.Size(), buffer.UsageDynamic)
		if err != nil {
			return material.PassCache{}, fmt.Errorf("unlit: create pass buffer: %w", err)
		}
		u.passBuffers = append(u.passBuffers, b)
	}
	u.pass = u.passBuffers[u.passUsed]
	u.passUsed++
	u.passBound = false

	uniform := camera.NewGPUCameraUniform(ctx.Camera)
	dst, err := u.pass.Map(0, uniform.Size())
	if err != nil {
		return material.PassCache{}, fmt.Errorf("unlit: map pass buffer: %w", err)
	}
	uniform.MarshalInto(dst)
	if err := u.pass.Unmap(buffer.UnmapAll); err != nil {
		return material.PassCache{}, fmt.Errorf("unlit: unmap pass buffer: %w", err)
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
		Type:           material.TypeUnlit,
		CasterPass:     casterPass,
		DualParaboloid: dualParaboloid,
		ShadowNodeID:   ctx.Shadow.NodeID,
	}, nil
}

func (u *unlitSystem) GetMaterial(last *material.ShaderCache, pass material.PassCache, qr *renderable.QueuedRenderable, casterPass bool) (*material.ShaderCache, error) {
	db := qr.Renderable.Datablock(casterPass)
	key := shaderKey{
		shaderHash: qr.Renderable.ShaderHash(casterPass),
		passHash:   pass.Hash,
		macroblock: db.Macroblock(casterPass),
		blendblock: db.Blendblock(casterPass),
	}
	if material.TypeOfShaderHash(key.shaderHash) != material.TypeUnlit {
		return nil, fmt.Errorf("unlit: shader hash %#x belongs to %s", key.shaderHash, material.TypeOfShaderHash(key.shaderHash))
	}
	if c, ok := u.caches[key]; ok {
		return c, nil
	}

	c := &material.ShaderCache{
		Hash: key.shaderHash,
		Type: material.TypeUnlit,
		PipelineState: pipeline.NewPipelineState(key.shaderHash,
			pipeline.WithLabel(fmt.Sprintf("unlit:%#x:pass%d", key.shaderHash, pass.Hash)),
			pipeline.WithMacroblock(key.macroblock),
			pipeline.WithBlendblock(key.blendblock),
		),
	}
	u.caches[key] = c
	common.Logger().Debug("unlit shader cache created", "hash", key.shaderHash, "pass", pass.Hash, "caches", len(u.caches))
	return c, nil
}

func (u *unlitSystem) FillBuffersFor(req render_queue.FillRequest, cb *command_buffer.CommandBuffer) (uint32, error) {
	if !u.passBound && u.pass != nil {
		cb.Add(command_buffer.BindConstBuffer(u.passSlot, u.pass, 0, uint32(u.pass.Size())))
		u.passBound = true
	}

	dst, baseInstance, fresh, err := u.draws.Next()
	if err != nil {
		return 0, err
	}
	if fresh {
		draw := u.draws.Current()
		cb.Add(command_buffer.BindConstBuffer(u.drawSlot, draw, 0, uint32(draw.Size())))
	}

	qr := req.Queued
	db := qr.Renderable.Datablock(req.CasterPass)
	if db.Texture() != nil && (!req.TextureBound || db.TextureHash() != req.LastTextureHash) {
		cb.Add(command_buffer.BindTexture(u.textureSlot, db.Texture()))
	}

	data := material.GPUDrawData{
		World:        qr.Owner.WorldMatrix(),
		DiffuseColor: db.DiffuseColor(),
	}
	data.MarshalInto(dst)
	return baseInstance, nil
}

func (u *unlitSystem) PreCommandBufferExecution(cb *command_buffer.CommandBuffer) error {
	return u.draws.Flush()
}

func (u *unlitSystem) PostCommandBufferExecution(cb *command_buffer.CommandBuffer) {
	u.passBound = false
}

func (u *unlitSystem) FrameEnded() {
	u.draws.FrameEnded()
	u.passUsed = 0
	u.pass = nil
}

func (u *unlitSystem) ShaderCacheCount() int {
	return len(u.caches)
}

func (u *unlitSystem) DrawBufferCount() int {
	return u.draws.Count()
}

func (u *unlitSystem) Destroy() error {
	var errs []error
	if err := u.draws.Destroy(); err != nil {
		errs = append(errs, err)
	}
	for _, b := range u.passBuffers {
		if err := u.provider.DestroyBuffer(b); err != nil {
			errs = append(errs, err)
		}
	}
	u.passBuffers = nil
	u.passUsed = 0
	u.pass = nil
	if len(errs) > 0 {
		return fmt.Errorf("unlit: destroy buffers: %w", errors.Join(errs...))
	}
	return nil
}
