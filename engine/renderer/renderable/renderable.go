// Package renderable defines the contracts between drawable geometry and the render queue.
package renderable

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

// Renderable produces drawable geometry. It is owned by a MovableObject and only referenced by the
// render queue for the duration of one frame.
type Renderable interface {
	// Datablock returns the material used for a pass.
	//
	// Parameters:
	//   - casterPass: true for shadow caster passes
	//
	// Returns:
	//   - material.Datablock: the material
	Datablock(casterPass bool) material.Datablock

	// Vaos returns the geometry levels of detail for a pass. Index 0 is drawn.
	//
	// Parameters:
	//   - casterPass: true for shadow caster passes
	//
	// Returns:
	//   - []*VertexArrayObject: the geometry
	Vaos(casterPass bool) []*VertexArrayObject

	// ShaderHash returns the shader variant hash of this renderable for a pass.
	//
	// Parameters:
	//   - casterPass: true for shadow caster passes
	//
	// Returns:
	//   - uint32: the hash (see material.ShaderHash)
	ShaderHash(casterPass bool) uint32

	// SubQueue returns the sub queue (0..7) that orders this renderable inside its queue id.
	//
	// Returns:
	//   - uint8: the sub queue
	SubQueue() uint8
}

// MovableObject owns renderables and places them in the world.
type MovableObject interface {
	// RenderQueueGroup returns the queue id (0..255) this object's renderables are queued into.
	RenderQueueGroup() uint8

	// CachedDistanceToCamera returns the distance stamped by the last visibility pass.
	CachedDistanceToCamera() float32

	// WorldMatrix returns the object's derived world transform.
	WorldMatrix() mgl32.Mat4

	// VisibilityFlags returns the mask tested against a pass's visibility mask.
	VisibilityFlags() uint32
}

// QueuedRenderable is one entry of a render queue bucket.
type QueuedRenderable struct {
	SortKey    uint64
	Renderable Renderable
	Owner      MovableObject
}
