package scene

import (
	"iter"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/light_grid"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_queue"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/renderable"
	"github.com/go-gl/mathgl/mgl32"
)

// Scene is the visibility provider of the frame driver. It owns an arena of Items addressed by
// stable ids, the cameras that view them, the global light list and the active shadow state.
// Visible items are culled per camera and queued into a RenderQueue from a pool of fill workers.
// Thread-safe for concurrent access.
type Scene interface {
	light_grid.LightSource

	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Camera returns the scene's first camera, or nil when it has none.
	Camera() camera.Camera

	// Cameras returns every camera the scene is rendered from, in the order they were added.
	Cameras() []camera.Camera

	// AddCamera appends a camera the scene is rendered from.
	//
	// Parameters:
	//   - cam: the camera
	AddCamera(cam camera.Camera)

	// CreateItem allocates an Item in the arena, reusing a destroyed slot when one is free.
	//
	// Parameters:
	//   - opts: a variadic list of ItemBuilderOption functions
	//
	// Returns:
	//   - *Item: the new item, whose ID stays valid until DestroyItem
	CreateItem(opts ...ItemBuilderOption) *Item

	// Item resolves an id. Ids of destroyed items resolve to nil even after their slot is reused.
	//
	// Parameters:
	//   - id: the item's id
	//
	// Returns:
	//   - *Item: the item or nil
	Item(id ObjectID) *Item

	// DestroyItem frees an item's slot.
	//
	// Parameters:
	//   - id: the item's id
	//
	// Returns:
	//   - bool: false if the id was stale
	DestroyItem(id ObjectID) bool

	// Count returns the number of live items.
	Count() int

	// Clear destroys every item. Cameras and lights are kept.
	Clear()

	// AddLight appends a light to the global light list.
	//
	// Parameters:
	//   - l: the light
	AddLight(l light.Light)

	// RemoveLight removes a light from the global light list.
	//
	// Parameters:
	//   - l: the light
	RemoveLight(l light.Light)

	// SetShadowNode sets the active shadow node and the lights it renders shadow maps for.
	// A zero id disables shadows.
	//
	// Parameters:
	//   - nodeID: identity of the shadow node
	//   - casters: lights shaded through the node's shadow maps
	SetShadowNode(nodeID uint64, casters ...light.Light)

	// UpdateTransforms derives the world matrix and world bounds of every live item.
	UpdateTransforms()

	// VisibleObjects yields the renderables of every item in queue groups [firstID, lastID) that
	// passes the visibility mask and the camera frustum, stamping each owner's camera distance.
	// The scene is read-locked while iterating; the loop body must not mutate the scene.
	//
	// Parameters:
	//   - cam: the camera to cull against
	//   - firstID: first queue group, inclusive
	//   - lastID: last queue group, exclusive
	//   - mask: visibility mask ANDed with each item's flags
	//   - casterPass: true to yield only shadow casters
	//
	// Returns:
	//   - iter.Seq2[renderable.Renderable, renderable.MovableObject]: renderable and owner pairs
	VisibleObjects(cam camera.Camera, firstID, lastID int, mask uint32, casterPass bool) iter.Seq2[renderable.Renderable, renderable.MovableObject]

	// FillQueue culls the scene against cam and adds every visible renderable to q. Items are
	// partitioned over the fill workers, each adding with its own thread index.
	//
	// Parameters:
	//   - q: the render queue, cleared by the caller
	//   - cam: the camera to cull against
	//   - firstID: first queue group, inclusive
	//   - lastID: last queue group, exclusive
	//   - casterPass: true when filling a shadow caster pass
	//
	// Returns:
	//   - int: the number of renderables added
	FillQueue(q render_queue.RenderQueue, cam camera.Camera, firstID, lastID int, casterPass bool) int
}

type slot struct {
	item       *Item
	generation uint32
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.RWMutex

	name    string
	active  bool
	cameras []camera.Camera

	slots []slot
	free  []uint32
	live  int

	lights       []light.Light
	shadowNodeID uint64
	casters      []light.Light

	visibilityMask uint32

	// Scratch reused by UpdateTransforms and FillQueue, guarded by scratchMu.
	scratchMu      *sync.Mutex
	transforms     []common.Transform
	worlds         []mgl32.Mat4
	transformItems []*Item
	fillItems      []*Item

	// fillPool runs FillQueue partitions. Workers persist across frames, avoiding per-frame
	// goroutine spawn and teardown.
	fillPool    worker.DynamicWorkerPool
	fillWorkers int
}

var _ Scene = &scene{}

// NewScene creates an empty scene.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:             &sync.RWMutex{},
		scratchMu:      &sync.Mutex{},
		name:           name,
		active:         true,
		visibilityMask: ^uint32(0),
		fillWorkers:    max(runtime.NumCPU()-1, 1),
	}
	for _, option := range options {
		option(s)
	}

	// Queue size of 64 covers one task per fill thread with headroom.
	s.fillPool = worker.NewDynamicWorkerPool(s.fillWorkers, 64, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.cameras) == 0 {
		return nil
	}
	return s.cameras[0]
}

func (s *scene) Cameras() []camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.cameras)
}

func (s *scene) AddCamera(cam camera.Camera) {
	if cam == nil {
		panic("scene: AddCamera requires a non-nil Camera")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameras = append(s.cameras, cam)
}

func (s *scene) CreateItem(opts ...ItemBuilderOption) *Item {
	it := &Item{
		transform:       common.IdentityTransform(),
		world:           mgl32.Ident4(),
		localBounds:     common.NewAABBFromMinMax(mgl32.Vec3{-0.5, -0.5, -0.5}, mgl32.Vec3{0.5, 0.5, 0.5}),
		visibilityFlags: 1,
		visible:         true,
	}
	for _, opt := range opts {
		opt(it)
	}
	it.derive(it.transform.Matrix())

	s.mu.Lock()
	defer s.mu.Unlock()

	var index uint32
	if n := len(s.free); n > 0 {
		index = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		index = uint32(len(s.slots))
		s.slots = append(s.slots, slot{})
	}
	sl := &s.slots[index]
	sl.item = it
	it.id = newObjectID(index, sl.generation)
	s.live++
	return it
}

func (s *scene) Item(id ObjectID) *Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolve(id)
}

// resolve returns the live item of id. Callers hold s.mu.
func (s *scene) resolve(id ObjectID) *Item {
	index := id.index()
	if int(index) >= len(s.slots) {
		return nil
	}
	sl := s.slots[index]
	if sl.item == nil || sl.generation != id.generation() {
		return nil
	}
	return sl.item
}

func (s *scene) DestroyItem(id ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolve(id) == nil {
		return false
	}
	s.release(id.index())
	return true
}

// release frees a slot and bumps its generation. Callers hold s.mu.
func (s *scene) release(index uint32) {
	sl := &s.slots[index]
	sl.item = nil
	sl.generation++
	s.free = append(s.free, index)
	s.live--
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.slots {
		if s.slots[i].item != nil {
			s.release(uint32(i))
		}
	}
}

func (s *scene) AddLight(l light.Light) {
	if l == nil {
		panic("scene: AddLight requires a non-nil Light")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = append(s.lights, l)
}

func (s *scene) RemoveLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = slices.DeleteFunc(s.lights, func(other light.Light) bool { return other == l })
}

func (s *scene) GlobalLights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lights)
}

func (s *scene) SetShadowNode(nodeID uint64, casters ...light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shadowNodeID = nodeID
	s.casters = slices.Clone(casters)
}

func (s *scene) ShadowState() light.ShadowState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.shadowNodeID == 0 {
		return light.ShadowState{}
	}
	return light.ShadowState{NodeID: s.shadowNodeID, Casters: s.casters}
}

func (s *scene) UpdateTransforms() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scratchMu.Lock()
	defer s.scratchMu.Unlock()

	s.transforms = s.transforms[:0]
	s.transformItems = s.transformItems[:0]
	for _, sl := range s.slots {
		if sl.item != nil {
			s.transforms = append(s.transforms, sl.item.transform)
			s.transformItems = append(s.transformItems, sl.item)
		}
	}
	s.worlds = slices.Grow(s.worlds[:0], len(s.transforms))[:len(s.transforms)]
	common.UpdateAllTransforms(s.transforms, s.worlds)
	for i, it := range s.transformItems {
		it.derive(s.worlds[i])
	}
}

func (s *scene) VisibleObjects(cam camera.Camera, firstID, lastID int, mask uint32, casterPass bool) iter.Seq2[renderable.Renderable, renderable.MovableObject] {
	return func(yield func(renderable.Renderable, renderable.MovableObject) bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()

		for _, sl := range s.slots {
			it := sl.item
			if it == nil || !s.passes(it, cam, firstID, lastID, mask, casterPass) {
				continue
			}
			it.distance = cam.DistanceTo(it.worldBounds.Center)
			for _, sub := range it.subItems {
				if !yield(sub, it) {
					return
				}
			}
		}
	}
}

// passes reports whether it is drawn by a pass over groups [firstID, lastID). Callers hold s.mu.
func (s *scene) passes(it *Item, cam camera.Camera, firstID, lastID int, mask uint32, casterPass bool) bool {
	if !it.visible || len(it.subItems) == 0 {
		return false
	}
	if g := int(it.queueGroup); g < firstID || g >= lastID {
		return false
	}
	if it.visibilityFlags&mask&s.visibilityMask == 0 {
		return false
	}
	if casterPass && !it.castsShadows {
		return false
	}
	return cam.IsVisibleAABB(it.worldBounds)
}

func (s *scene) FillQueue(q render_queue.RenderQueue, cam camera.Camera, firstID, lastID int, casterPass bool) int {
	if q == nil || cam == nil {
		panic("scene: FillQueue requires a non-nil RenderQueue and Camera")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.scratchMu.Lock()
	defer s.scratchMu.Unlock()

	s.fillItems = s.fillItems[:0]
	for _, sl := range s.slots {
		if sl.item != nil {
			s.fillItems = append(s.fillItems, sl.item)
		}
	}
	items := s.fillItems
	if len(items) == 0 {
		return 0
	}

	threads := min(q.NumThreads(), s.fillWorkers, len(items))
	if threads <= 1 {
		return s.fillRange(q, 0, items, cam, firstID, lastID, casterPass)
	}

	// A WaitGroup provides the per-frame barrier; pool workers idle-exit on their own.
	var (
		wg        sync.WaitGroup
		panicOnce sync.Once
		panicked  any
	)
	counts := make([]int, threads)
	chunk := (len(items) + threads - 1) / threads
	for t := range threads {
		lo := t * chunk
		hi := min(lo+chunk, len(items))
		if lo >= hi {
			break
		}
		wg.Add(1)
		s.fillPool.SubmitTask(worker.Task{
			ID: t,
			Do: func() (any, error) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						panicOnce.Do(func() { panicked = r })
					}
				}()
				counts[t] = s.fillRange(q, t, items[lo:hi], cam, firstID, lastID, casterPass)
				return nil, nil
			},
		})
	}
	wg.Wait()
	if panicked != nil {
		panic(panicked)
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}

// fillRange queues the visible renderables of items as fill thread t.
func (s *scene) fillRange(q render_queue.RenderQueue, t int, items []*Item, cam camera.Camera, firstID, lastID int, casterPass bool) int {
	n := 0
	for _, it := range items {
		if !s.passes(it, cam, firstID, lastID, ^uint32(0), casterPass) {
			continue
		}
		it.distance = cam.DistanceTo(it.worldBounds.Center)
		isLegacy := q.QueueMode(it.queueGroup) != render_queue.ModeFast
		for _, sub := range it.subItems {
			q.AddRenderable(t, it.queueGroup, casterPass, sub, it, isLegacy)
			n++
		}
	}
	return n
}
