package light_grid

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUForward3DParams is the GPU-aligned constant block shaders use to find their cell.
// Size: 32 bytes (std140 / WGSL aligned).
//
// In WGSL the cell of a fragment at view-space z and screen uv is:
//
//	slice = floor(saturate((-z - minDistance) * invDepthRange) * (numSlices - 1))
//	res   = vec2(width, height) << slice
//	cell  = sliceOffset(slice) + (floor(uv.y * res.y) * res.x + floor(uv.x * res.x)) * lightsPerCell
type GPUForward3DParams struct {
	Width         uint32  // offset  0: cells across slice 0
	Height        uint32  // offset  4: cells down slice 0
	NumSlices     uint32  // offset  8: depth slice count
	LightsPerCell uint32  // offset 12: entries per cell, count slot included
	MinDistance   float32 // offset 16: distance of the first slice boundary
	InvDepthRange float32 // offset 20: 1 / (maxDistance - minDistance)
	_pad          [2]float32
}

// Size returns the size of the GPUForward3DParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPUForward3DParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalInto serializes the block into dst, which must hold at least Size() bytes.
//
// Parameters:
//   - dst: destination bytes, typically a mapped const buffer range
func (g *GPUForward3DParams) MarshalInto(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:], g.Width)
	binary.LittleEndian.PutUint32(dst[4:], g.Height)
	binary.LittleEndian.PutUint32(dst[8:], g.NumSlices)
	binary.LittleEndian.PutUint32(dst[12:], g.LightsPerCell)
	binary.LittleEndian.PutUint32(dst[16:], math.Float32bits(g.MinDistance))
	binary.LittleEndian.PutUint32(dst[20:], math.Float32bits(g.InvDepthRange))
	binary.LittleEndian.PutUint64(dst[24:], 0) // _pad
}
