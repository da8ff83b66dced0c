package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is the local placement of a scene object.
type Transform struct {
	Position    mgl32.Vec3
	Orientation mgl32.Quat
	Scale       mgl32.Vec3
}

// IdentityTransform returns a transform with no translation, rotation or scale.
func IdentityTransform() Transform {
	return Transform{
		Orientation: mgl32.QuatIdent(),
		Scale:       mgl32.Vec3{1, 1, 1},
	}
}

// Matrix composes translation * rotation * scale.
//
// Returns:
//   - mgl32.Mat4: the world matrix for this transform
func (t Transform) Matrix() mgl32.Mat4 {
	m := t.Orientation.Normalize().Mat4()
	for col := range 3 {
		for row := range 3 {
			m[col*4+row] *= t.Scale[col]
		}
	}
	m[12], m[13], m[14] = t.Position[0], t.Position[1], t.Position[2]
	return m
}

// transformBlock is the number of transforms derived per loop iteration.
const transformBlock = 4

// UpdateAllTransforms derives world matrices for every transform, writing out[i] for transforms[i].
// Work is done in fixed blocks so the inner loop stays free of bounds checks.
//
// Parameters:
//   - transforms: source transforms
//   - out: destination matrices, at least len(transforms) long
func UpdateAllTransforms(transforms []Transform, out []mgl32.Mat4) {
	if len(out) < len(transforms) {
		panic("common: UpdateAllTransforms output shorter than input")
	}
	n := len(transforms)
	i := 0
	for ; i+transformBlock <= n; i += transformBlock {
		src := transforms[i : i+transformBlock : i+transformBlock]
		dst := out[i : i+transformBlock : i+transformBlock]
		dst[0] = src[0].Matrix()
		dst[1] = src[1].Matrix()
		dst[2] = src[2].Matrix()
		dst[3] = src[3].Matrix()
	}
	for ; i < n; i++ {
		out[i] = transforms[i].Matrix()
	}
}
