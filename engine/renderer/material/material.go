package material

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/go-gl/mathgl/mgl32"
)

// datablock is the implementation of the Datablock interface.
type datablock struct {
	name         string
	materialType Type
	// index 0 is used for regular passes, index 1 for shadow caster passes
	macroblocks  [2]*pipeline.Macroblock
	blendblocks  [2]*pipeline.Blendblock
	diffuseColor mgl32.Vec4
	texture      any
	textureHash  uint16
	slot         uint32
}

// Datablock defines the interface for a material instance as seen by the render queue.
//
// A datablock names the material system that renders it (Type), the fixed-function
// blocks for regular and shadow caster passes, and the texture identity used to
// order and batch draws. Material systems add their own per-material data on top.
type Datablock interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Type retrieves the material system that owns this datablock.
	//
	// Returns:
	//   - Type: the material system type
	Type() Type

	// Macroblock retrieves the rasterizer state for a pass.
	//
	// Parameters:
	//   - casterPass: true for shadow caster passes
	//
	// Returns:
	//   - *pipeline.Macroblock: the macroblock
	Macroblock(casterPass bool) *pipeline.Macroblock

	// Blendblock retrieves the blend state for a pass.
	//
	// Parameters:
	//   - casterPass: true for shadow caster passes
	//
	// Returns:
	//   - *pipeline.Blendblock: the blendblock
	Blendblock(casterPass bool) *pipeline.Blendblock

	// DiffuseColor retrieves the RGBA base color.
	//
	// Returns:
	//   - mgl32.Vec4: the base color
	DiffuseColor() mgl32.Vec4

	// Texture retrieves the backend texture handle, or nil when untextured.
	//
	// Returns:
	//   - any: the texture handle (a *wgpu.TextureView on the wgpu backend)
	Texture() any

	// TextureHash retrieves the 11-bit texture identity used in sort keys.
	//
	// Returns:
	//   - uint16: the texture hash
	TextureHash() uint16

	// Slot retrieves the index of this material in its system's material table.
	//
	// Returns:
	//   - uint32: the slot
	Slot() uint32

	// SetMacroblock replaces the rasterizer state for a pass.
	//
	// Parameters:
	//   - mb: the macroblock
	//   - casterPass: true to set the shadow caster block
	SetMacroblock(mb *pipeline.Macroblock, casterPass bool)

	// SetBlendblock replaces the blend state for a pass.
	//
	// Parameters:
	//   - bb: the blendblock
	//   - casterPass: true to set the shadow caster block
	SetBlendblock(bb *pipeline.Blendblock, casterPass bool)

	// SetDiffuseColor sets the RGBA base color.
	//
	// Parameters:
	//   - c: the color
	SetDiffuseColor(c mgl32.Vec4)

	// SetTexture sets the backend texture handle and its sort identity.
	//
	// Parameters:
	//   - texture: the handle
	//   - hash: the texture identity
	SetTexture(texture any, hash uint16)

	// SetSlot sets the material table index. Called by the owning material system.
	//
	// Parameters:
	//   - slot: the index
	SetSlot(slot uint32)
}

var _ Datablock = &datablock{}

// NewDatablock creates a new Datablock of type t configured with the provided options.
// Caster blocks default to the regular blocks.
//
// Parameters:
//   - t: the owning material system type
//   - options: variadic list of DatablockBuilderOption functions to configure the datablock
//
// Returns:
//   - Datablock: a new Datablock instance
func NewDatablock(t Type, options ...DatablockBuilderOption) Datablock {
	if t >= NumTypes {
		panic("material: NewDatablock requires a valid Type")
	}
	d := &datablock{
		materialType: t,
		diffuseColor: mgl32.Vec4{1, 1, 1, 1},
	}
	for _, opt := range options {
		opt(d)
	}
	if d.macroblocks[0] == nil || d.blendblocks[0] == nil {
		panic("material: NewDatablock requires a macroblock and a blendblock")
	}
	if d.macroblocks[1] == nil {
		d.macroblocks[1] = d.macroblocks[0]
	}
	if d.blendblocks[1] == nil {
		d.blendblocks[1] = d.blendblocks[0]
	}
	return d
}

func passIndex(casterPass bool) int {
	if casterPass {
		return 1
	}
	return 0
}

func (d *datablock) Name() string {
	return d.name
}

func (d *datablock) Type() Type {
	return d.materialType
}

func (d *datablock) Macroblock(casterPass bool) *pipeline.Macroblock {
	return d.macroblocks[passIndex(casterPass)]
}

func (d *datablock) Blendblock(casterPass bool) *pipeline.Blendblock {
	return d.blendblocks[passIndex(casterPass)]
}

func (d *datablock) DiffuseColor() mgl32.Vec4 {
	return d.diffuseColor
}

func (d *datablock) Texture() any {
	return d.texture
}

func (d *datablock) TextureHash() uint16 {
	return d.textureHash
}

func (d *datablock) Slot() uint32 {
	return d.slot
}

func (d *datablock) SetMacroblock(mb *pipeline.Macroblock, casterPass bool) {
	d.macroblocks[passIndex(casterPass)] = mb
}

func (d *datablock) SetBlendblock(bb *pipeline.Blendblock, casterPass bool) {
	d.blendblocks[passIndex(casterPass)] = bb
}

func (d *datablock) SetDiffuseColor(c mgl32.Vec4) {
	d.diffuseColor = c
}

func (d *datablock) SetTexture(texture any, hash uint16) {
	d.texture = texture
	d.textureHash = hash
}

func (d *datablock) SetSlot(slot uint32) {
	d.slot = slot
}
