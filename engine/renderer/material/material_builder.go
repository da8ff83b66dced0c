package material

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/go-gl/mathgl/mgl32"
)

// DatablockBuilderOption is a functional option for configuring a Datablock.
type DatablockBuilderOption func(*datablock)

// WithName sets the name of the datablock.
//
// Parameters:
//   - name: the material identifier
//
// Returns:
//   - DatablockBuilderOption: a function that applies the name to a datablock
func WithName(name string) DatablockBuilderOption {
	return func(d *datablock) {
		d.name = name
	}
}

// WithMacroblock sets the rasterizer state for regular passes.
//
// Parameters:
//   - mb: the macroblock
//
// Returns:
//   - DatablockBuilderOption: a function that applies the macroblock to a datablock
func WithMacroblock(mb *pipeline.Macroblock) DatablockBuilderOption {
	return func(d *datablock) {
		d.macroblocks[0] = mb
	}
}

// WithCasterMacroblock sets the rasterizer state for shadow caster passes.
//
// Parameters:
//   - mb: the macroblock
//
// Returns:
//   - DatablockBuilderOption: a function that applies the caster macroblock to a datablock
func WithCasterMacroblock(mb *pipeline.Macroblock) DatablockBuilderOption {
	return func(d *datablock) {
		d.macroblocks[1] = mb
	}
}

// WithBlendblock sets the blend state for regular passes.
//
// Parameters:
//   - bb: the blendblock
//
// Returns:
//   - DatablockBuilderOption: a function that applies the blendblock to a datablock
func WithBlendblock(bb *pipeline.Blendblock) DatablockBuilderOption {
	return func(d *datablock) {
		d.blendblocks[0] = bb
	}
}

// WithCasterBlendblock sets the blend state for shadow caster passes.
//
// Parameters:
//   - bb: the blendblock
//
// Returns:
//   - DatablockBuilderOption: a function that applies the caster blendblock to a datablock
func WithCasterBlendblock(bb *pipeline.Blendblock) DatablockBuilderOption {
	return func(d *datablock) {
		d.blendblocks[1] = bb
	}
}

// WithDiffuseColor sets the RGBA base color.
//
// Parameters:
//   - c: the color
//
// Returns:
//   - DatablockBuilderOption: a function that applies the color to a datablock
func WithDiffuseColor(c mgl32.Vec4) DatablockBuilderOption {
	return func(d *datablock) {
		d.diffuseColor = c
	}
}

// WithTexture sets the backend texture handle and the identity used for draw ordering.
//
// Parameters:
//   - texture: the handle
//   - hash: the texture identity (11 bits are kept in sort keys)
//
// Returns:
//   - DatablockBuilderOption: a function that applies the texture to a datablock
func WithTexture(texture any, hash uint16) DatablockBuilderOption {
	return func(d *datablock) {
		d.texture = texture
		d.textureHash = hash
	}
}
