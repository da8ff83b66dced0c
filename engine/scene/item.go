package scene

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material/unlit"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/renderable"
	"github.com/go-gl/mathgl/mgl32"
)

// ObjectID addresses an Item in a scene arena. The low 32 bits are the slot index and the high
// 32 bits the slot generation, so ids of destroyed items never resolve to their replacements.
type ObjectID uint64

func newObjectID(index, generation uint32) ObjectID {
	return ObjectID(uint64(generation)<<32 | uint64(index))
}

func (id ObjectID) index() uint32      { return uint32(id) }
func (id ObjectID) generation() uint32 { return uint32(id >> 32) }

// SubItem is one renderable part of an Item: a material plus the geometry drawn with it.
type SubItem struct {
	datablock       material.Datablock
	casterDatablock material.Datablock
	vaos            []*renderable.VertexArrayObject
	casterVaos      []*renderable.VertexArrayObject
	subQueue        uint8
	shaderHash      func(db material.Datablock, casterPass bool) uint32
}

var _ renderable.Renderable = &SubItem{}

// NewSubItem creates a renderable drawing vaos with db. Caster passes use the same datablock and
// geometry unless overridden by options, and the shader hash defaults to the unlit material system's.
//
// Parameters:
//   - db: the material
//   - vaos: geometry levels of detail, index 0 is drawn
//   - opts: a variadic list of SubItemBuilderOption functions
//
// Returns:
//   - *SubItem: the renderable
func NewSubItem(db material.Datablock, vaos []*renderable.VertexArrayObject, opts ...SubItemBuilderOption) *SubItem {
	if db == nil || len(vaos) == 0 {
		panic("scene: NewSubItem requires a datablock and at least one vao")
	}
	s := &SubItem{
		datablock:  db,
		vaos:       vaos,
		shaderHash: unlit.ShaderHash,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.subQueue > 7 {
		panic("scene: sub queue must be in [0, 7]")
	}
	return s
}

func (s *SubItem) Datablock(casterPass bool) material.Datablock {
	if casterPass && s.casterDatablock != nil {
		return s.casterDatablock
	}
	return s.datablock
}

func (s *SubItem) Vaos(casterPass bool) []*renderable.VertexArrayObject {
	if casterPass && len(s.casterVaos) > 0 {
		return s.casterVaos
	}
	return s.vaos
}

func (s *SubItem) ShaderHash(casterPass bool) uint32 {
	return s.shaderHash(s.Datablock(casterPass), casterPass)
}

func (s *SubItem) SubQueue() uint8 {
	return s.subQueue
}

// Item is a placed object of a scene. It owns SubItems and is the MovableObject the render queue
// reads world matrices and camera distances from.
//
// An Item's transform is written by its owner and derived by Scene.UpdateTransforms; the derived
// state and the camera distance must not be read concurrently with those updates.
type Item struct {
	id   ObjectID
	name string

	transform   common.Transform
	world       mgl32.Mat4
	localBounds common.AABB
	worldBounds common.AABB

	queueGroup      uint8
	visibilityFlags uint32
	visible         bool
	castsShadows    bool
	distance        float32

	subItems []*SubItem
}

var _ renderable.MovableObject = &Item{}

// ID returns the item's arena id.
func (it *Item) ID() ObjectID { return it.id }

// Name returns the item's name.
func (it *Item) Name() string { return it.name }

func (it *Item) RenderQueueGroup() uint8         { return it.queueGroup }
func (it *Item) CachedDistanceToCamera() float32 { return it.distance }
func (it *Item) WorldMatrix() mgl32.Mat4         { return it.world }
func (it *Item) VisibilityFlags() uint32         { return it.visibilityFlags }

// SetRenderQueueGroup moves the item's sub items to another queue id.
func (it *Item) SetRenderQueueGroup(group uint8) { it.queueGroup = group }

// SetVisibilityFlags sets the mask tested against a pass's visibility mask.
func (it *Item) SetVisibilityFlags(flags uint32) { it.visibilityFlags = flags }

// Visible reports whether the item is drawn at all.
func (it *Item) Visible() bool { return it.visible }

// SetVisible shows or hides the item.
func (it *Item) SetVisible(visible bool) { it.visible = visible }

// CastsShadows reports whether the item is queued for shadow caster passes.
func (it *Item) CastsShadows() bool { return it.castsShadows }

// SetCastsShadows sets whether the item is queued for shadow caster passes.
func (it *Item) SetCastsShadows(casts bool) { it.castsShadows = casts }

// Transform returns the item's local placement.
func (it *Item) Transform() common.Transform { return it.transform }

// SetTransform replaces the item's local placement. The world matrix and bounds follow on the
// next Scene.UpdateTransforms.
//
// Parameters:
//   - t: the new transform
func (it *Item) SetTransform(t common.Transform) { it.transform = t }

// SetLocalBounds sets the object-space bounds used for frustum culling.
//
// Parameters:
//   - box: the bounds in object space
func (it *Item) SetLocalBounds(box common.AABB) { it.localBounds = box }

// WorldBounds returns the bounds derived by the last Scene.UpdateTransforms.
func (it *Item) WorldBounds() common.AABB { return it.worldBounds }

// SubItems returns the item's renderables.
func (it *Item) SubItems() []*SubItem { return it.subItems }

// AddSubItem appends a renderable to the item.
//
// Parameters:
//   - s: the sub item
func (it *Item) AddSubItem(s *SubItem) {
	if s == nil {
		panic("scene: AddSubItem requires a non-nil SubItem")
	}
	it.subItems = append(it.subItems, s)
}

// derive applies a world matrix computed by UpdateTransforms.
func (it *Item) derive(world mgl32.Mat4) {
	it.world = world
	it.worldBounds = it.localBounds.Transform(world)
}
