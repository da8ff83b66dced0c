package scene

import (
	"slices"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_queue"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/renderable"
	"github.com/go-gl/mathgl/mgl32"
)

type added struct {
	thread   int
	queueID  uint8
	caster   bool
	owner    *Item
	isLegacy bool
}

// recordingQueue records AddRenderable calls. Methods the scene does not use are left to the nil
// embedded interface.
type recordingQueue struct {
	render_queue.RenderQueue

	mu      sync.Mutex
	threads int
	modes   map[uint8]render_queue.QueueMode
	calls   []added
	panicOn *Item
}

func (q *recordingQueue) NumThreads() int { return q.threads }

func (q *recordingQueue) QueueMode(id uint8) render_queue.QueueMode { return q.modes[id] }

func (q *recordingQueue) AddRenderable(threadIdx int, queueID uint8, casterPass bool, r renderable.Renderable, owner renderable.MovableObject, isLegacy bool) {
	it := owner.(*Item)
	if it == q.panicOn {
		panic("boom")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls = append(q.calls, added{thread: threadIdx, queueID: queueID, caster: casterPass, owner: it, isLegacy: isLegacy})
}

func testSubItem() *SubItem {
	registry := pipeline.NewRegistry()
	db := material.NewDatablock(material.TypeUnlit,
		material.WithMacroblock(registry.MustMacroblock(pipeline.DefaultMacroblock())),
		material.WithBlendblock(registry.MustBlendblock(pipeline.DefaultBlendblock())),
	)
	binding := renderable.NewVertexBinding([]any{"vb"}, "ib", renderable.Index32, 1)
	return NewSubItem(db, []*renderable.VertexArrayObject{renderable.NewVertexArrayObject(binding, 36, 0, 0)})
}

func at(x, y, z float32) common.Transform {
	t := common.IdentityTransform()
	t.Position = mgl32.Vec3{x, y, z}
	return t
}

func testCamera() camera.Camera {
	return camera.NewCamera(camera.WithPosition(mgl32.Vec3{0, 0, 0}), camera.WithTarget(mgl32.Vec3{0, 0, -1}))
}

func TestArenaIDsAreStable(t *testing.T) {
	s := NewScene("arena")
	a := s.CreateItem(WithItemName("a"))
	b := s.CreateItem(WithItemName("b"))
	c := s.CreateItem(WithItemName("c"))

	if !s.DestroyItem(b.ID()) {
		t.Fatal("DestroyItem returned false for a live id")
	}
	if s.DestroyItem(b.ID()) {
		t.Error("DestroyItem returned true for a stale id")
	}
	if got := s.Item(b.ID()); got != nil {
		t.Errorf("got %v for a destroyed id, want nil", got.Name())
	}

	d := s.CreateItem(WithItemName("d"))
	if d.ID().index() != b.ID().index() {
		t.Errorf("got slot %d, want reused slot %d", d.ID().index(), b.ID().index())
	}
	if d.ID() == b.ID() {
		t.Error("reused slot kept the destroyed item's id")
	}
	if s.Item(b.ID()) != nil {
		t.Error("stale id resolved to the slot's new item")
	}
	for _, it := range []*Item{a, c, d} {
		if got := s.Item(it.ID()); got != it {
			t.Errorf("Item(%v) did not resolve to %s", it.ID(), it.Name())
		}
	}
	if got := s.Count(); got != 3 {
		t.Errorf("got count %d, want 3", got)
	}

	s.Clear()
	if got := s.Count(); got != 0 {
		t.Errorf("got count %d after Clear, want 0", got)
	}
	if s.Item(a.ID()) != nil {
		t.Error("item survived Clear")
	}
}

func TestUpdateTransforms(t *testing.T) {
	s := NewScene("transforms")
	it := s.CreateItem()
	it.SetTransform(at(3, 4, 5))

	if got := it.WorldMatrix().Col(3); got != (mgl32.Vec4{0, 0, 0, 1}) {
		t.Errorf("world changed before UpdateTransforms: got %v", got)
	}
	s.UpdateTransforms()
	if got := it.WorldMatrix().Col(3); got != (mgl32.Vec4{3, 4, 5, 1}) {
		t.Errorf("got translation %v, want (3, 4, 5, 1)", got)
	}
	if got := it.WorldBounds().Center; !got.ApproxEqual(mgl32.Vec3{3, 4, 5}) {
		t.Errorf("got bounds center %v, want (3, 4, 5)", got)
	}
}

func TestVisibleObjects(t *testing.T) {
	s := NewScene("visible")
	sub := testSubItem()
	front := s.CreateItem(WithItemName("front"), WithTransform(at(0, 0, -10)), WithSubItems(sub))
	s.CreateItem(WithItemName("behind"), WithTransform(at(0, 0, 10)), WithSubItems(testSubItem()))
	s.CreateItem(WithItemName("other group"), WithTransform(at(0, 0, -10)), WithRenderQueueGroup(5), WithSubItems(testSubItem()))
	s.CreateItem(WithItemName("masked"), WithTransform(at(0, 0, -10)), WithVisibilityFlags(2), WithSubItems(testSubItem()))
	hidden := s.CreateItem(WithItemName("hidden"), WithTransform(at(0, 0, -10)), WithSubItems(testSubItem()))
	hidden.SetVisible(false)
	s.CreateItem(WithItemName("empty"), WithTransform(at(0, 0, -10)))

	var owners []string
	for r, owner := range s.VisibleObjects(testCamera(), 0, 5, 1, false) {
		if r != renderable.Renderable(sub) {
			t.Errorf("got renderable %p, want %p", r, sub)
		}
		owners = append(owners, owner.(*Item).Name())
	}
	if !slices.Equal(owners, []string{"front"}) {
		t.Errorf("got owners %v, want [front]", owners)
	}
	if got := front.CachedDistanceToCamera(); got < 9.99 || got > 10.01 {
		t.Errorf("got distance %v, want 10", got)
	}
}

func TestVisibleObjectsCasterPass(t *testing.T) {
	s := NewScene("casters")
	s.CreateItem(WithItemName("receiver"), WithTransform(at(0, 0, -10)), WithSubItems(testSubItem()))
	s.CreateItem(WithItemName("caster"), WithTransform(at(1, 0, -10)), WithCastsShadows(true), WithSubItems(testSubItem()))

	var owners []string
	for _, owner := range s.VisibleObjects(testCamera(), 0, render_queue.NumQueues, ^uint32(0), true) {
		owners = append(owners, owner.(*Item).Name())
	}
	if !slices.Equal(owners, []string{"caster"}) {
		t.Errorf("got owners %v, want [caster]", owners)
	}
}

func TestVisibleObjectsStopsEarly(t *testing.T) {
	s := NewScene("early")
	s.CreateItem(WithTransform(at(0, 0, -10)), WithSubItems(testSubItem(), testSubItem()))
	s.CreateItem(WithTransform(at(0, 0, -12)), WithSubItems(testSubItem()))

	n := 0
	for range s.VisibleObjects(testCamera(), 0, render_queue.NumQueues, ^uint32(0), false) {
		n++
		break
	}
	if n != 1 {
		t.Errorf("got %d iterations, want 1", n)
	}
}

func TestFillQueuePartitionsOverThreads(t *testing.T) {
	s := NewScene("fill", WithFillWorkers(4))
	var items []*Item
	for i := range 100 {
		items = append(items, s.CreateItem(WithTransform(at(float32(i%10)-5, 0, -20)), WithSubItems(testSubItem())))
	}
	s.CreateItem(WithTransform(at(0, 0, 20)), WithSubItems(testSubItem()))
	s.UpdateTransforms()

	q := &recordingQueue{threads: 4}
	if got := s.FillQueue(q, testCamera(), 0, render_queue.NumQueues, false); got != 100 {
		t.Fatalf("got %d renderables, want 100", got)
	}
	if len(q.calls) != 100 {
		t.Fatalf("got %d AddRenderable calls, want 100", len(q.calls))
	}

	seen := make(map[*Item]int)
	threads := make(map[int]bool)
	for _, c := range q.calls {
		seen[c.owner]++
		threads[c.thread] = true
		if c.thread < 0 || c.thread >= 4 {
			t.Errorf("got thread %d, want [0, 4)", c.thread)
		}
		if c.isLegacy {
			t.Error("got legacy add for a fast queue")
		}
	}
	for _, it := range items {
		if seen[it] != 1 {
			t.Errorf("item %v added %d times, want 1", it.ID(), seen[it])
		}
	}
	if len(threads) != 4 {
		t.Errorf("got %d fill threads used, want 4", len(threads))
	}
}

func TestFillQueueCapsThreadsAtQueue(t *testing.T) {
	s := NewScene("capped", WithFillWorkers(8))
	for range 10 {
		s.CreateItem(WithTransform(at(0, 0, -10)), WithSubItems(testSubItem()))
	}
	q := &recordingQueue{threads: 2}
	s.FillQueue(q, testCamera(), 0, render_queue.NumQueues, false)
	for _, c := range q.calls {
		if c.thread >= 2 {
			t.Fatalf("got thread %d with a 2-thread queue", c.thread)
		}
	}
}

func TestFillQueueLegacyGroups(t *testing.T) {
	s := NewScene("legacy", WithFillWorkers(1))
	s.CreateItem(WithTransform(at(0, 0, -10)), WithRenderQueueGroup(3), WithSubItems(testSubItem()))
	q := &recordingQueue{threads: 1, modes: map[uint8]render_queue.QueueMode{3: render_queue.ModeV1Fast}}

	s.FillQueue(q, testCamera(), 0, render_queue.NumQueues, false)
	if len(q.calls) != 1 || !q.calls[0].isLegacy || q.calls[0].queueID != 3 {
		t.Errorf("got %+v, want one legacy add into queue 3", q.calls)
	}
}

func TestFillQueueRepanicsOnCaller(t *testing.T) {
	s := NewScene("panic", WithFillWorkers(2))
	s.CreateItem(WithTransform(at(0, 0, -10)), WithSubItems(testSubItem()))
	bad := s.CreateItem(WithTransform(at(0, 0, -11)), WithSubItems(testSubItem()))
	q := &recordingQueue{threads: 2, panicOn: bad}

	defer func() {
		if r := recover(); r != "boom" {
			t.Errorf("got recover %v, want boom", r)
		}
	}()
	s.FillQueue(q, testCamera(), 0, render_queue.NumQueues, false)
	t.Error("FillQueue returned without panicking")
}

func TestSceneLightSource(t *testing.T) {
	point := light.NewLight(light.LightTypePoint)
	spot := light.NewLight(light.LightTypeSpot)
	s := NewScene("lights", WithLights(point), WithShadowCasters(9, spot))
	s.AddLight(spot)

	if got := s.GlobalLights(); len(got) != 2 || got[0] != point || got[1] != spot {
		t.Errorf("got %d lights, want [point spot]", len(got))
	}
	state := s.ShadowState()
	if state.NodeID != 9 || len(state.Casters) != 1 || state.Casters[0] != spot {
		t.Errorf("got shadow state %+v", state)
	}

	s.RemoveLight(point)
	if got := s.GlobalLights(); len(got) != 1 || got[0] != spot {
		t.Errorf("got %d lights after remove, want [spot]", len(got))
	}
	s.SetShadowNode(0, spot)
	if s.ShadowState().Active() {
		t.Error("shadow state active after SetShadowNode(0)")
	}
}

func TestNewSubItemPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewSubItem did not panic without vaos")
		}
	}()
	NewSubItem(testSubItem().Datablock(false), nil)
}

func TestSubItemCasterOverrides(t *testing.T) {
	base := testSubItem()
	casterDB := testSubItem().Datablock(false)
	binding := renderable.NewVertexBinding(nil, nil, renderable.IndexNone, 2)
	casterVao := renderable.NewVertexArrayObject(binding, 3, 0, 0)
	sub := NewSubItem(base.Datablock(false), base.Vaos(false),
		WithCasterDatablock(casterDB),
		WithCasterVaos(casterVao),
		WithSubQueue(2),
		WithShaderHashFunc(func(db material.Datablock, casterPass bool) uint32 {
			if casterPass {
				return 7
			}
			return 1
		}),
	)

	if sub.Datablock(true) != casterDB || sub.Datablock(false) != base.Datablock(false) {
		t.Error("caster datablock override not applied")
	}
	if got := sub.Vaos(true); len(got) != 1 || got[0] != casterVao {
		t.Error("caster vao override not applied")
	}
	if sub.ShaderHash(true) != 7 || sub.ShaderHash(false) != 1 {
		t.Errorf("got shader hashes %d/%d, want 7/1", sub.ShaderHash(true), sub.ShaderHash(false))
	}
	if sub.SubQueue() != 2 {
		t.Errorf("got sub queue %d, want 2", sub.SubQueue())
	}
}
