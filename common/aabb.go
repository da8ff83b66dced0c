package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box stored as center and half extents.
type AABB struct {
	Center   mgl32.Vec3
	HalfSize mgl32.Vec3
}

// NewAABBFromMinMax builds a box from its corner points.
//
// Parameters:
//   - minimum: the lowest corner
//   - maximum: the highest corner
//
// Returns:
//   - AABB: the box spanning both corners
func NewAABBFromMinMax(minimum, maximum mgl32.Vec3) AABB {
	return AABB{
		Center:   minimum.Add(maximum).Mul(0.5),
		HalfSize: maximum.Sub(minimum).Mul(0.5),
	}
}

// Min returns the lowest corner.
func (b AABB) Min() mgl32.Vec3 { return b.Center.Sub(b.HalfSize) }

// Max returns the highest corner.
func (b AABB) Max() mgl32.Vec3 { return b.Center.Add(b.HalfSize) }

// Radius returns the radius of the sphere enclosing the box.
func (b AABB) Radius() float32 { return b.HalfSize.Len() }

// Merge returns the smallest box containing both b and other.
//
// Parameters:
//   - other: the box to merge with
//
// Returns:
//   - AABB: the union box
func (b AABB) Merge(other AABB) AABB {
	bMin, bMax := b.Min(), b.Max()
	oMin, oMax := other.Min(), other.Max()
	return NewAABBFromMinMax(
		mgl32.Vec3{min(bMin[0], oMin[0]), min(bMin[1], oMin[1]), min(bMin[2], oMin[2])},
		mgl32.Vec3{max(bMax[0], oMax[0]), max(bMax[1], oMax[1]), max(bMax[2], oMax[2])},
	)
}

// Transform returns the box enclosing b after an affine transform (Arvo's method).
//
// Parameters:
//   - m: the affine transform
//
// Returns:
//   - AABB: the axis-aligned box enclosing the transformed box
func (b AABB) Transform(m mgl32.Mat4) AABB {
	var half mgl32.Vec3
	for row := range 3 {
		half[row] = abs32(m.At(row, 0))*b.HalfSize[0] +
			abs32(m.At(row, 1))*b.HalfSize[1] +
			abs32(m.At(row, 2))*b.HalfSize[2]
	}
	return AABB{Center: TransformPoint(m, b.Center), HalfSize: half}
}
