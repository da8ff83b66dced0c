package scene

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/renderable"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering. Scenes are active by default.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithCamera adds a camera the scene is rendered from.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCamera(cam camera.Camera) SceneBuilderOption {
	return func(s *scene) {
		if cam == nil {
			panic("scene: WithCamera requires a non-nil Camera")
		}
		s.cameras = append(s.cameras, cam)
	}
}

// WithFillWorkers sets the number of worker goroutines FillQueue partitions visible items over.
// The render queue's thread count caps the number actually used. Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of fill workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithFillWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.fillWorkers = n
	}
}

// WithLights sets the initial global light list.
//
// Parameters:
//   - lights: the lights
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLights(lights ...light.Light) SceneBuilderOption {
	return func(s *scene) {
		s.lights = slices.Clone(lights)
	}
}

// WithShadowCasters sets the active shadow node and the lights it renders shadow maps for.
// Those lights are left out of the clustered light list.
//
// Parameters:
//   - nodeID: identity of the shadow node, 0 for none
//   - casters: the shadow casting lights
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithShadowCasters(nodeID uint64, casters ...light.Light) SceneBuilderOption {
	return func(s *scene) {
		s.shadowNodeID = nodeID
		s.casters = slices.Clone(casters)
	}
}

// WithVisibilityMask sets the scene-wide mask every item's visibility flags are tested against.
//
// Parameters:
//   - mask: the mask, all bits set by default
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithVisibilityMask(mask uint32) SceneBuilderOption {
	return func(s *scene) {
		s.visibilityMask = mask
	}
}

// ItemBuilderOption is a functional option for configuring an Item created by Scene.CreateItem.
type ItemBuilderOption func(it *Item)

// WithItemName sets the item's name.
func WithItemName(name string) ItemBuilderOption {
	return func(it *Item) {
		it.name = name
	}
}

// WithTransform sets the item's initial local placement.
//
// Parameters:
//   - t: the transform
//
// Returns:
//   - ItemBuilderOption: option function to apply
func WithTransform(t common.Transform) ItemBuilderOption {
	return func(it *Item) {
		it.transform = t
	}
}

// WithBounds sets the item's object-space culling bounds. Defaults to a unit cube.
//
// Parameters:
//   - box: the bounds
//
// Returns:
//   - ItemBuilderOption: option function to apply
func WithBounds(box common.AABB) ItemBuilderOption {
	return func(it *Item) {
		it.localBounds = box
	}
}

// WithRenderQueueGroup sets the queue id the item's sub items are queued into.
func WithRenderQueueGroup(group uint8) ItemBuilderOption {
	return func(it *Item) {
		it.queueGroup = group
	}
}

// WithVisibilityFlags sets the mask tested against a pass's visibility mask. Defaults to 1.
func WithVisibilityFlags(flags uint32) ItemBuilderOption {
	return func(it *Item) {
		it.visibilityFlags = flags
	}
}

// WithCastsShadows sets whether the item is queued for shadow caster passes.
func WithCastsShadows(casts bool) ItemBuilderOption {
	return func(it *Item) {
		it.castsShadows = casts
	}
}

// WithSubItems sets the item's renderables.
//
// Parameters:
//   - subs: the sub items
//
// Returns:
//   - ItemBuilderOption: option function to apply
func WithSubItems(subs ...*SubItem) ItemBuilderOption {
	return func(it *Item) {
		for _, s := range subs {
			it.AddSubItem(s)
		}
	}
}

// SubItemBuilderOption is a functional option for configuring a SubItem created by NewSubItem.
type SubItemBuilderOption func(s *SubItem)

// WithCasterDatablock sets the material used in shadow caster passes.
func WithCasterDatablock(db material.Datablock) SubItemBuilderOption {
	return func(s *SubItem) {
		s.casterDatablock = db
	}
}

// WithCasterVaos sets the geometry drawn in shadow caster passes.
func WithCasterVaos(vaos ...*renderable.VertexArrayObject) SubItemBuilderOption {
	return func(s *SubItem) {
		s.casterVaos = vaos
	}
}

// WithSubQueue sets the sub queue (0..7) ordering the sub item inside its queue id.
func WithSubQueue(subQueue uint8) SubItemBuilderOption {
	return func(s *SubItem) {
		s.subQueue = subQueue
	}
}

// WithShaderHashFunc replaces how the sub item derives its shader hash from its datablock.
//
// Parameters:
//   - fn: returns the shader hash of a datablock for a pass
//
// Returns:
//   - SubItemBuilderOption: option function to apply
func WithShaderHashFunc(fn func(db material.Datablock, casterPass bool) uint32) SubItemBuilderOption {
	return func(s *SubItem) {
		s.shaderHash = fn
	}
}
