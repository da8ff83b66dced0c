package light

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUForwardLightSize is the byte size of one clustered light record.
const GPUForwardLightSize = 96

// GPUForwardLight is the GPU-aligned record of one point or spot light in the clustered light list.
// Positions and directions are in view space. Size: 96 bytes (six vec4<f32>).
type GPUForwardLight struct {
	Position      [3]float32 // offset  0: view-space position
	LightType     float32    // offset 12: LightType as float
	Diffuse       [3]float32 // offset 16: diffuse * power scale
	_diffuseW     float32    // offset 28: 1
	Specular      [3]float32 // offset 32: specular color
	_specularW    float32    // offset 44: 1
	Attenuation   [4]float32 // offset 48: range, linear, quadratic, 1/range
	SpotDirection [3]float32 // offset 64: view-space cone axis
	_spotDirW     float32    // offset 76: 1
	SpotParams    [4]float32 // offset 80: 1/(cos(inner/2)-cos(outer/2)), cos(outer/2), falloff, 0
}

// NewGPUForwardLight builds the record for l as seen through view.
//
// Parameters:
//   - l: the light to encode
//   - view: the camera view matrix
//
// Returns:
//   - GPUForwardLight: the populated record
func NewGPUForwardLight(l Light, view mgl32.Mat4) GPUForwardLight {
	att := l.Attenuation()
	diffuse := l.Diffuse().Mul(l.PowerScale())
	g := GPUForwardLight{
		Position:      common.TransformPoint(view, l.Position()),
		LightType:     float32(l.Type()),
		Diffuse:       diffuse,
		_diffuseW:     1,
		Specular:      l.Specular(),
		_specularW:    1,
		Attenuation:   [4]float32{att.Range, att.Linear, att.Quadratic, 1 / att.Range},
		SpotDirection: common.TransformDirection(view, l.Direction()),
		_spotDirW:     1,
	}
	cosInner := float32(math.Cos(float64(l.SpotInnerAngle()) * 0.5))
	cosOuter := float32(math.Cos(float64(l.SpotOuterAngle()) * 0.5))
	invCone := float32(0)
	if d := cosInner - cosOuter; d != 0 {
		invCone = 1 / d
	}
	g.SpotParams = [4]float32{invCone, cosOuter, l.SpotFalloff(), 0}
	return g
}

// Size returns the size of the GPUForwardLight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (96)
func (g *GPUForwardLight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalInto serializes the record into dst, which must hold at least GPUForwardLightSize bytes.
//
// Parameters:
//   - dst: destination bytes, typically a mapped buffer range
func (g *GPUForwardLight) MarshalInto(dst []byte) {
	words := [24]float32{
		g.Position[0], g.Position[1], g.Position[2], g.LightType,
		g.Diffuse[0], g.Diffuse[1], g.Diffuse[2], g._diffuseW,
		g.Specular[0], g.Specular[1], g.Specular[2], g._specularW,
		g.Attenuation[0], g.Attenuation[1], g.Attenuation[2], g.Attenuation[3],
		g.SpotDirection[0], g.SpotDirection[1], g.SpotDirection[2], g._spotDirW,
		g.SpotParams[0], g.SpotParams[1], g.SpotParams[2], g.SpotParams[3],
	}
	for i, w := range words {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(w))
	}
}
