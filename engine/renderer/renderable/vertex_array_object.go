package renderable

import (
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
)

// MeshHashBits is the width of a VertexArrayObject's render queue id in sort keys.
const MeshHashBits = 14

var (
	vaoCount     atomic.Uint32
	bindingCount atomic.Uint32
)

// IndexType is the element type of an index buffer.
type IndexType uint8

const (
	IndexNone IndexType = iota
	Index16
	Index32
)

// VertexBinding is a set of vertex buffers, an optional index buffer and a vertex layout.
// Several VertexArrayObjects may share one binding and differ only in the range they draw;
// the render queue binds a VertexBinding once and issues consecutive draws against it.
type VertexBinding struct {
	id uint32

	VertexBuffers []any // backend buffer handles (*wgpu.Buffer on the wgpu backend)
	IndexBuffer   any
	IndexType     IndexType
	LayoutHash    uint32
}

// NewVertexBinding creates a binding with a process-unique id.
//
// Parameters:
//   - vertexBuffers: backend vertex buffer handles
//   - indexBuffer: backend index buffer handle, nil for non-indexed geometry
//   - indexType: the index element type, IndexNone when indexBuffer is nil
//   - layoutHash: identity of the vertex layout
//
// Returns:
//   - *VertexBinding: the binding
func NewVertexBinding(vertexBuffers []any, indexBuffer any, indexType IndexType, layoutHash uint32) *VertexBinding {
	if (indexBuffer == nil) != (indexType == IndexNone) {
		panic("renderable: NewVertexBinding index buffer and index type disagree")
	}
	return &VertexBinding{
		id:            bindingCount.Add(1),
		VertexBuffers: vertexBuffers,
		IndexBuffer:   indexBuffer,
		IndexType:     indexType,
		LayoutHash:    layoutHash,
	}
}

// ID returns the binding's identity. Draws against equal ids can share one bind.
func (b *VertexBinding) ID() uint32 {
	return b.id
}

// IndexFormat converts the index type to its wgpu format.
func (b *VertexBinding) IndexFormat() wgpu.IndexFormat {
	if b.IndexType == Index16 {
		return wgpu.IndexFormatUint16
	}
	return wgpu.IndexFormatUint32
}

// VertexArrayObject is a drawable range of a VertexBinding.
type VertexArrayObject struct {
	renderQueueID uint16

	Binding *VertexBinding
	// Count is the index count for indexed geometry or the vertex count otherwise.
	Count      uint32
	FirstIndex uint32 // first index, or first vertex for non-indexed geometry
	BaseVertex int32
	Topology   wgpu.PrimitiveTopology
}

// NewVertexArrayObject creates a drawable range of binding.
//
// Parameters:
//   - binding: the buffers to draw from
//   - count: number of indices (indexed) or vertices (non-indexed)
//   - first: first index or vertex
//   - baseVertex: value added to each index
//
// Returns:
//   - *VertexArrayObject: the range
func NewVertexArrayObject(binding *VertexBinding, count, first uint32, baseVertex int32) *VertexArrayObject {
	if binding == nil {
		panic("renderable: NewVertexArrayObject requires a non-nil VertexBinding")
	}
	return &VertexArrayObject{
		renderQueueID: uint16(vaoCount.Add(1) & (1<<MeshHashBits - 1)),
		Binding:       binding,
		Count:         count,
		FirstIndex:    first,
		BaseVertex:    baseVertex,
		Topology:      wgpu.PrimitiveTopologyTriangleList,
	}
}

// RenderQueueID returns the 14-bit mesh identity used in sort keys.
func (v *VertexArrayObject) RenderQueueID() uint16 {
	return v.renderQueueID
}

// Indexed reports whether the range draws through an index buffer.
func (v *VertexArrayObject) Indexed() bool {
	return v.Binding.IndexType != IndexNone
}
