// Package render_queue collects visible renderables into 256 sorted buckets and turns them into
// a minimal command stream: state binds only on change and instanced indirect draws for runs of
// identical geometry.
package render_queue

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command_buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/renderable"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/sort_key"
)

// NumQueues is the number of queue ids.
const NumQueues = 256

// QueueMode selects how a bucket is turned into commands.
type QueueMode uint8

const (
	// ModeFast batches renderables into instanced indirect draws.
	ModeFast QueueMode = iota
	// ModeV1Fast records legacy renderables as direct draws, merging consecutive identical ranges into instances.
	ModeV1Fast
	// ModeV1Legacy records one direct draw per legacy renderable. Unsupported on indirect-only backends.
	ModeV1Legacy
)

// String returns the mode name.
func (m QueueMode) String() string {
	switch m {
	case ModeFast:
		return "fast"
	case ModeV1Fast:
		return "v1_fast"
	case ModeV1Legacy:
		return "v1_legacy"
	}
	return "unknown"
}

// SortMode selects how a bucket is ordered before rendering.
type SortMode uint8

const (
	// SortNormal sorts by key without preserving the order of equal keys.
	SortNormal SortMode = iota
	// SortStable sorts by key, keeping insertion order (thread order) among equal keys.
	SortStable
	// SortDisable keeps insertion order.
	SortDisable
)

// bucket holds the renderables of one queue id for the current frame.
type bucket struct {
	perThread [][]renderable.QueuedRenderable
	sorted    []renderable.QueuedRenderable
	isSorted  bool
	mode      QueueMode
	sortMode  SortMode
}

func (b *bucket) len() int {
	n := 0
	for _, items := range b.perThread {
		n += len(items)
	}
	return n
}

// renderQueue is the implementation of the RenderQueue interface.
type renderQueue struct {
	numThreads      int
	commandCapacity int

	buckets [NumQueues]bucket
	systems [material.NumTypes]MaterialSystem

	provider buffer.Provider
	pool     *command_buffer.IndirectBufferPool
	cb       *command_buffer.CommandBuffer

	ctx   PassContext
	state RenderPassState
	stats Stats
}

// RenderQueue sorts renderables per queue id and emits the commands that draw them.
//
// Per frame: worker threads call AddRenderable concurrently (each with its own thread index),
// then the render thread calls Render for one or more id ranges, then Clear and FrameEnded.
type RenderQueue interface {
	// NumThreads returns the number of per-thread slots each bucket has.
	//
	// Returns:
	//   - int: the number of fill threads supported
	NumThreads() int

	// AddRenderable encodes the sort key of r and appends it to bucket queueID for threadIdx.
	// Panics if the bucket was already sorted this frame or if isLegacy disagrees with the bucket's mode.
	//
	// Parameters:
	//   - threadIdx: the caller's fill thread, in [0, NumThreads())
	//   - queueID: the bucket
	//   - casterPass: true when filling for a shadow caster pass
	//   - r: the renderable
	//   - owner: the object owning r
	//   - isLegacy: true for renderables that must go through a V1 mode
	AddRenderable(threadIdx int, queueID uint8, casterPass bool, r renderable.Renderable, owner renderable.MovableObject, isLegacy bool)

	// Render sorts and emits buckets [firstID, lastID) and executes the resulting commands on backend.
	//
	// Parameters:
	//   - backend: executes the commands
	//   - firstID: first queue id, inclusive
	//   - lastID: last queue id, exclusive (up to NumQueues)
	//   - casterPass: true for shadow caster passes
	//   - dualParaboloid: true when rendering a dual paraboloid shadow map
	//
	// Returns:
	//   - error: ErrNotImplemented (wrapped) for legacy buckets on indirect-only backends, or a wrapped material/backend error
	Render(backend command_buffer.Backend, firstID, lastID int, casterPass, dualParaboloid bool) error

	// ClearState forgets every bound state so the next Render re-emits all binds.
	ClearState()

	// Clear empties every bucket and resets the sorted flags.
	Clear()

	// FrameEnded recycles indirect buffers and notifies the material systems.
	FrameEnded()

	// SetPassContext sets the camera and shadow state handed to material systems.
	//
	// Parameters:
	//   - ctx: the pass context
	SetPassContext(ctx PassContext)

	// SetMaterialSystem registers ms for datablocks of type t.
	//
	// Parameters:
	//   - t: the datablock type
	//   - ms: the system
	SetMaterialSystem(t material.Type, ms MaterialSystem)

	// MaterialSystem returns the system registered for t, or nil.
	MaterialSystem(t material.Type) MaterialSystem

	// SetQueueMode changes how bucket id renders. Panics if the bucket holds renderables.
	SetQueueMode(id uint8, mode QueueMode)

	// QueueMode returns the mode of bucket id.
	QueueMode(id uint8) QueueMode

	// SetSortMode changes how bucket id is ordered.
	SetSortMode(id uint8, mode SortMode)

	// SortMode returns the sort mode of bucket id.
	SortMode(id uint8) SortMode

	// Bucket returns the merged, sorted renderables of bucket id, or nil before it was rendered this frame.
	Bucket(id uint8) []renderable.QueuedRenderable

	// State returns the bound state left by the last Render.
	State() RenderPassState

	// Stats returns the counters of the last Render.
	Stats() Stats

	// Destroy releases the pooled indirect buffers.
	Destroy() error
}

var _ RenderQueue = &renderQueue{}

// NewRenderQueue creates a render queue allocating indirect buffers through provider.
//
// Parameters:
//   - provider: creates the indirect buffers
//   - opts: variadic list of RenderQueueBuilderOption functions
//
// Returns:
//   - RenderQueue: the queue
func NewRenderQueue(provider buffer.Provider, opts ...RenderQueueBuilderOption) RenderQueue {
	if provider == nil {
		panic("render_queue: NewRenderQueue requires a non-nil Provider")
	}
	q := &renderQueue{
		numThreads:      1,
		commandCapacity: 256,
		provider:        provider,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.numThreads < 1 {
		panic("render_queue: NewRenderQueue requires at least one worker thread")
	}
	for i := range q.buckets {
		q.buckets[i].perThread = make([][]renderable.QueuedRenderable, q.numThreads)
	}
	q.pool = command_buffer.NewIndirectBufferPool(provider)
	q.cb = command_buffer.NewCommandBuffer(q.commandCapacity)
	return q
}

func (q *renderQueue) NumThreads() int {
	return q.numThreads
}

func (q *renderQueue) AddRenderable(threadIdx int, queueID uint8, casterPass bool, r renderable.Renderable, owner renderable.MovableObject, isLegacy bool) {
	b := &q.buckets[queueID]
	if b.isSorted {
		panic(fmt.Sprintf("render_queue: AddRenderable into queue %d after it was rendered; call Clear first", queueID))
	}
	if isLegacy != (b.mode != ModeFast) {
		panic(fmt.Sprintf("render_queue: legacy=%v renderable added to queue %d in %s mode", isLegacy, queueID, b.mode))
	}
	if threadIdx < 0 || threadIdx >= q.numThreads {
		panic(fmt.Sprintf("render_queue: thread index %d out of range [0, %d)", threadIdx, q.numThreads))
	}

	db := r.Datablock(casterPass)
	vaos := r.Vaos(casterPass)
	if db == nil || len(vaos) == 0 {
		panic("render_queue: AddRenderable requires a datablock and at least one vao")
	}
	key := sort_key.Encode(sort_key.Attributes{
		SubQueue:    r.SubQueue(),
		Transparent: db.Blendblock(casterPass).IsTransparent(),
		Macroblock:  db.Macroblock(casterPass).ID(),
		Shader:      r.ShaderHash(casterPass),
		Mesh:        vaos[0].RenderQueueID(),
		Texture:     db.TextureHash(),
		Depth:       owner.CachedDistanceToCamera(),
	})
	b.perThread[threadIdx] = append(b.perThread[threadIdx], renderable.QueuedRenderable{
		SortKey:    key,
		Renderable: r,
		Owner:      owner,
	})
}

func (q *renderQueue) Render(backend command_buffer.Backend, firstID, lastID int, casterPass, dualParaboloid bool) error {
	if firstID < 0 || lastID > NumQueues || firstID > lastID {
		panic(fmt.Sprintf("render_queue: invalid queue range [%d, %d)", firstID, lastID))
	}

	if q.state.CasterPass != casterPass {
		q.ClearState()
		q.state.CasterPass = casterPass
	}
	q.stats = Stats{}

	numDraws := 0
	for id := firstID; id < lastID; id++ {
		b := &q.buckets[id]
		switch {
		case b.mode == ModeV1Legacy && backend.RequiresIndirect() && b.len() > 0:
			return fmt.Errorf("render_queue: queue %d: per-draw legacy rendering on an indirect-only backend: %w", id, command_buffer.ErrNotImplemented)
		case b.mode == ModeFast:
			numDraws += b.len()
		}
	}

	var passCaches [material.NumTypes]material.PassCache
	for t, ms := range q.systems {
		if ms == nil {
			continue
		}
		pc, err := ms.PreparePassHash(q.ctx, casterPass, dualParaboloid)
		if err != nil {
			return fmt.Errorf("render_queue: prepare %s pass: %w", material.Type(t), err)
		}
		passCaches[t] = pc
	}

	w := walker{q: q, casterPass: casterPass, passCaches: &passCaches}
	if numDraws > 0 {
		indirect, err := q.pool.Get(numDraws)
		if err != nil {
			return fmt.Errorf("render_queue: %w", err)
		}
		w.records, err = indirect.Map(0, numDraws*command_buffer.RecordStride)
		if err != nil {
			return fmt.Errorf("render_queue: map indirect buffer: %w", err)
		}
		w.indirect = indirect
		q.cb.Add(command_buffer.BindIndirectBuffer(indirect))
	}

	state := q.state
	var err error
	for id := firstID; id < lastID; id++ {
		b := &q.buckets[id]
		q.sortBucket(b)
		if len(b.sorted) == 0 {
			continue
		}
		switch b.mode {
		case ModeFast:
			state, err = w.renderFast(state, b.sorted)
		case ModeV1Fast:
			state, err = w.renderLegacy(state, b.sorted, true)
		case ModeV1Legacy:
			state, err = w.renderLegacy(state, b.sorted, false)
		}
		if err != nil {
			break
		}
	}
	q.state = state

	if w.indirect != nil {
		if uerr := w.indirect.Unmap(buffer.UnmapAll); uerr != nil && err == nil {
			err = fmt.Errorf("render_queue: unmap indirect buffer: %w", uerr)
		}
	}
	if err != nil {
		q.cb.Reset()
		q.ClearState()
		return err
	}

	for _, ms := range q.systems {
		if ms == nil {
			continue
		}
		if err := ms.PreCommandBufferExecution(q.cb); err != nil {
			q.cb.Reset()
			q.ClearState()
			return fmt.Errorf("render_queue: pre-execution %s: %w", ms.Type(), err)
		}
	}
	q.stats.Commands = q.cb.Len()
	if err := q.cb.Execute(backend); err != nil {
		q.ClearState()
		return fmt.Errorf("render_queue: %w", err)
	}
	for _, ms := range q.systems {
		if ms != nil {
			ms.PostCommandBufferExecution(q.cb)
		}
	}
	return nil
}

// sortBucket merges the per-thread slices in thread order and sorts them once per frame.
func (q *renderQueue) sortBucket(b *bucket) {
	if b.isSorted {
		return
	}
	b.sorted = b.sorted[:0]
	for _, items := range b.perThread {
		b.sorted = append(b.sorted, items...)
	}
	SortQueued(b.sorted, b.sortMode)
	b.isSorted = true
}

// SortQueued orders items by sort key according to mode.
//
// Parameters:
//   - items: the renderables to order in place
//   - mode: the sort mode
func SortQueued(items []renderable.QueuedRenderable, mode SortMode) {
	byKey := func(a, b renderable.QueuedRenderable) int {
		return cmp.Compare(a.SortKey, b.SortKey)
	}
	switch mode {
	case SortNormal:
		slices.SortFunc(items, byKey)
	case SortStable:
		slices.SortStableFunc(items, byKey)
	}
}

func (q *renderQueue) ClearState() {
	q.state = q.state.Cleared()
}

func (q *renderQueue) Clear() {
	for i := range q.buckets {
		b := &q.buckets[i]
		for t := range b.perThread {
			clear(b.perThread[t])
			b.perThread[t] = b.perThread[t][:0]
		}
		clear(b.sorted)
		b.sorted = b.sorted[:0]
		b.isSorted = false
	}
}

func (q *renderQueue) FrameEnded() {
	q.pool.FrameEnded()
	for _, ms := range q.systems {
		if ms != nil {
			ms.FrameEnded()
		}
	}
}

func (q *renderQueue) SetPassContext(ctx PassContext) {
	q.ctx = ctx
}

func (q *renderQueue) SetMaterialSystem(t material.Type, ms MaterialSystem) {
	if t >= material.NumTypes {
		panic(fmt.Sprintf("render_queue: material type %d out of range", t))
	}
	if ms != nil && ms.Type() != t {
		panic(fmt.Sprintf("render_queue: %s system registered as %s", ms.Type(), t))
	}
	q.systems[t] = ms
}

func (q *renderQueue) MaterialSystem(t material.Type) MaterialSystem {
	if t >= material.NumTypes {
		return nil
	}
	return q.systems[t]
}

func (q *renderQueue) SetQueueMode(id uint8, mode QueueMode) {
	b := &q.buckets[id]
	if b.len() > 0 {
		panic(fmt.Sprintf("render_queue: SetQueueMode on non-empty queue %d", id))
	}
	b.mode = mode
}

func (q *renderQueue) QueueMode(id uint8) QueueMode {
	return q.buckets[id].mode
}

func (q *renderQueue) SetSortMode(id uint8, mode SortMode) {
	q.buckets[id].sortMode = mode
}

func (q *renderQueue) SortMode(id uint8) SortMode {
	return q.buckets[id].sortMode
}

func (q *renderQueue) Bucket(id uint8) []renderable.QueuedRenderable {
	b := &q.buckets[id]
	if !b.isSorted {
		return nil
	}
	return b.sorted
}

func (q *renderQueue) State() RenderPassState {
	return q.state
}

func (q *renderQueue) Stats() Stats {
	return q.stats
}

func (q *renderQueue) Destroy() error {
	if err := q.pool.Destroy(); err != nil {
		return fmt.Errorf("render_queue: %w", err)
	}
	common.Logger().Debug("render queue destroyed")
	return nil
}
