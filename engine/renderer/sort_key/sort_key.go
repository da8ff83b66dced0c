// Package sort_key packs the draw-order attributes of a renderable into one 64-bit key.
//
// Opaque keys order by sub queue, then macroblock, shader, mesh, texture and finally depth front to back.
// Transparent keys order by sub queue, then depth back to front, then macroblock, shader and mesh.
package sort_key

import (
	"math"
)

const (
	SubQueueBits    = 3
	TransparentBits = 1
	MacroblockBits  = 10
	ShaderBits      = 10
	MeshBits        = 14
	TextureBits     = 11
	DepthBits       = 15
)

const (
	subQueueShift    = 61
	transparentShift = 60

	opaqueMacroblockShift = 50
	opaqueShaderShift     = 40
	opaqueMeshShift       = 26
	opaqueTextureShift    = 15
	opaqueDepthShift      = 0

	transparentDepthShift      = 34
	transparentMacroblockShift = 24
	transparentShaderShift     = 14
	transparentMeshShift       = 0
)

// Attributes are the inputs of a sort key. Ids wider than their field are truncated.
type Attributes struct {
	SubQueue    uint8
	Transparent bool
	Macroblock  uint16
	Shader      uint32
	Mesh        uint16
	Texture     uint16
	Depth       float32
}

// Fields are the values recovered from a key. Depth is the quantized 15-bit value as stored.
type Fields struct {
	SubQueue    uint8
	Transparent bool
	Macroblock  uint16
	Shader      uint32
	Mesh        uint16
	Texture     uint16
	Depth       uint16
}

func hash(v uint64, bits, shift uint) uint64 {
	return (v & (1<<bits - 1)) << shift
}

func field(key uint64, bits, shift uint) uint64 {
	return (key >> shift) & (1<<bits - 1)
}

// QuantizeDepth maps a float to 15 bits such that larger floats give larger values.
// The sign is flipped into order (negatives have all bits inverted) and the top 15 bits kept.
//
// Parameters:
//   - d: camera distance
//
// Returns:
//   - uint32: the quantized depth in [0, 0x7FFF]
func QuantizeDepth(d float32) uint32 {
	u := math.Float32bits(d)
	mask := uint32(int32(u)>>31) | 0x80000000
	return (u ^ mask) >> 17
}

// Encode packs a into a key.
//
// Parameters:
//   - a: the renderable's attributes
//
// Returns:
//   - uint64: the sort key
func Encode(a Attributes) uint64 {
	key := hash(uint64(a.SubQueue), SubQueueBits, subQueueShift)
	depth := QuantizeDepth(a.Depth)
	if !a.Transparent {
		return key |
			hash(uint64(a.Macroblock), MacroblockBits, opaqueMacroblockShift) |
			hash(uint64(a.Shader), ShaderBits, opaqueShaderShift) |
			hash(uint64(a.Mesh), MeshBits, opaqueMeshShift) |
			hash(uint64(a.Texture), TextureBits, opaqueTextureShift) |
			hash(uint64(depth), DepthBits, opaqueDepthShift)
	}
	depth = ^depth & 0x7FFF
	return key |
		hash(1, TransparentBits, transparentShift) |
		hash(uint64(depth), DepthBits, transparentDepthShift) |
		hash(uint64(a.Macroblock), MacroblockBits, transparentMacroblockShift) |
		hash(uint64(a.Shader), ShaderBits, transparentShaderShift) |
		hash(uint64(a.Mesh), MeshBits, transparentMeshShift)
}

// Decode unpacks a key produced by Encode. Transparent keys report Texture 0.
//
// Parameters:
//   - key: the sort key
//
// Returns:
//   - Fields: the packed values
func Decode(key uint64) Fields {
	f := Fields{
		SubQueue:    uint8(field(key, SubQueueBits, subQueueShift)),
		Transparent: field(key, TransparentBits, transparentShift) != 0,
	}
	if !f.Transparent {
		f.Macroblock = uint16(field(key, MacroblockBits, opaqueMacroblockShift))
		f.Shader = uint32(field(key, ShaderBits, opaqueShaderShift))
		f.Mesh = uint16(field(key, MeshBits, opaqueMeshShift))
		f.Texture = uint16(field(key, TextureBits, opaqueTextureShift))
		f.Depth = uint16(field(key, DepthBits, opaqueDepthShift))
		return f
	}
	f.Depth = uint16(field(key, DepthBits, transparentDepthShift))
	f.Macroblock = uint16(field(key, MacroblockBits, transparentMacroblockShift))
	f.Shader = uint32(field(key, ShaderBits, transparentShaderShift))
	f.Mesh = uint16(field(key, MeshBits, transparentMeshShift))
	return f
}
