package render_queue

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command_buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/renderable"
)

// walker emits the commands of one Render call.
type walker struct {
	q          *renderQueue
	casterPass bool
	passCaches *[material.NumTypes]material.PassCache

	indirect buffer.Buffer
	records  []byte
	cursor   int // next free record in records
}

// bindState emits the macroblock, blendblock, shader cache and vertex binding binds qr needs
// and returns the updated state.
func (w *walker) bindState(state RenderPassState, qr *renderable.QueuedRenderable) (RenderPassState, MaterialSystem, *renderable.VertexArrayObject, error) {
	q := w.q
	db := qr.Renderable.Datablock(w.casterPass)
	ms := q.systems[db.Type()]
	if ms == nil {
		panic(fmt.Sprintf("render_queue: no material system registered for %s datablock %q", db.Type(), db.Name()))
	}

	if mb := db.Macroblock(w.casterPass); mb != state.Macroblock {
		q.cb.Add(command_buffer.SetMacroblock(mb))
		state.Macroblock = mb
		q.stats.StateChanges++
	}
	if bb := db.Blendblock(w.casterPass); bb != state.Blendblock {
		q.cb.Add(command_buffer.SetBlendblock(bb))
		state.Blendblock = bb
		q.stats.StateChanges++
	}

	cache, err := ms.GetMaterial(state.ShaderCache, w.passCaches[db.Type()], qr, w.casterPass)
	if err != nil {
		return state, nil, nil, fmt.Errorf("render_queue: %s material %q: %w", db.Type(), db.Name(), err)
	}
	if cache != state.ShaderCache {
		q.cb.Add(command_buffer.SetPipelineState(cache.PipelineState))
		state.ShaderCache = cache
		q.stats.StateChanges++
	}

	vao := qr.Renderable.Vaos(w.casterPass)[0]
	if vao.Binding != state.Binding {
		q.cb.Add(command_buffer.BindVao(vao.Binding))
		state.Binding = vao.Binding
		q.stats.StateChanges++
	}
	return state, ms, vao, nil
}

// fill asks ms for the per-draw data of qr and returns the base instance.
func (w *walker) fill(state *RenderPassState, ms MaterialSystem, qr *renderable.QueuedRenderable, lastCacheHash uint32) (uint32, error) {
	baseInstance, err := ms.FillBuffersFor(FillRequest{
		Cache:           state.ShaderCache,
		Queued:          qr,
		CasterPass:      w.casterPass,
		LastCacheHash:   lastCacheHash,
		LastTextureHash: state.TextureHash,
		TextureBound:    state.TextureBound,
	}, w.q.cb)
	if err != nil {
		return 0, fmt.Errorf("render_queue: fill buffers: %w", err)
	}
	db := qr.Renderable.Datablock(w.casterPass)
	state.TextureHash = db.TextureHash()
	state.TextureBound = db.Texture() != nil
	return baseInstance, nil
}

func cacheHash(c *material.ShaderCache) uint32 {
	if c == nil {
		return 0
	}
	return c.Hash
}

// renderFast emits instanced indirect draws. Consecutive renderables drawing the same range with
// nothing recorded in between share one indirect record; different ranges of the same binding
// share one draw command with several records.
func (w *walker) renderFast(state RenderPassState, items []renderable.QueuedRenderable) (RenderPassState, error) {
	q := w.q
	var (
		drawCmd       *command_buffer.Command
		lastVao       *renderable.VertexArrayObject
		instanceCount uint32
	)
	for i := range items {
		qr := &items[i]
		lastCacheHash := cacheHash(state.ShaderCache)

		var ms MaterialSystem
		var vao *renderable.VertexArrayObject
		var err error
		if state, ms, vao, err = w.bindState(state, qr); err != nil {
			return state, err
		}
		baseInstance, err := w.fill(&state, ms, qr, lastCacheHash)
		if err != nil {
			return state, err
		}
		q.stats.Renderables++

		if !q.cb.IsLast(drawCmd) || drawCmd.Vao.Binding != vao.Binding {
			offset := uint32(w.cursor * command_buffer.RecordStride)
			if vao.Indexed() {
				drawCmd = q.cb.Add(command_buffer.DrawIndexed(vao, offset, 0))
			} else {
				drawCmd = q.cb.Add(command_buffer.DrawStrip(vao, offset, 0))
			}
			q.stats.DrawCommands++
			lastVao = nil
		}

		if lastVao != vao {
			if w.cursor*command_buffer.RecordStride >= len(w.records) {
				panic("render_queue: indirect buffer overflow")
			}
			record := w.records[w.cursor*command_buffer.RecordStride:]
			if vao.Indexed() {
				rec := command_buffer.DrawIndexedIndirect{
					IndexCount:    vao.Count,
					InstanceCount: 1,
					FirstIndex:    vao.FirstIndex,
					BaseVertex:    vao.BaseVertex,
					BaseInstance:  baseInstance,
				}
				rec.MarshalInto(record)
			} else {
				rec := command_buffer.DrawIndirect{
					VertexCount:   vao.Count,
					InstanceCount: 1,
					FirstVertex:   vao.FirstIndex,
					BaseInstance:  baseInstance,
				}
				rec.MarshalInto(record)
			}
			w.cursor++
			drawCmd.NumDraws++
			drawCmd.Vao = vao
			lastVao = vao
			instanceCount = 1
			q.stats.DrawRecords++
		} else {
			instanceCount++
			command_buffer.SetInstanceCount(w.records[(w.cursor-1)*command_buffer.RecordStride:], instanceCount)
			q.stats.InstancedMerges++
		}
		state.Vao = vao
	}
	return state, nil
}

// renderLegacy emits direct draws with inline parameters. When merge is set, consecutive renderables
// drawing the same range with nothing recorded in between become instances of one draw.
func (w *walker) renderLegacy(state RenderPassState, items []renderable.QueuedRenderable, merge bool) (RenderPassState, error) {
	q := w.q
	q.cb.Add(command_buffer.StartLegacy())

	var drawCmd *command_buffer.Command
	for i := range items {
		qr := &items[i]
		lastCacheHash := cacheHash(state.ShaderCache)

		var ms MaterialSystem
		var vao *renderable.VertexArrayObject
		var err error
		if state, ms, vao, err = w.bindState(state, qr); err != nil {
			return state, err
		}
		baseInstance, err := w.fill(&state, ms, qr, lastCacheHash)
		if err != nil {
			return state, err
		}
		q.stats.Renderables++

		if merge && q.cb.IsLast(drawCmd) && drawCmd.Vao == vao {
			drawCmd.Draw.InstanceCount++
			q.stats.InstancedMerges++
			continue
		}
		drawCmd = q.cb.Add(command_buffer.DrawLegacyCall(vao, command_buffer.LegacyDraw{
			Count:         vao.Count,
			InstanceCount: 1,
			First:         vao.FirstIndex,
			BaseVertex:    vao.BaseVertex,
			BaseInstance:  baseInstance,
		}))
		q.stats.DrawCommands++
		q.stats.DrawRecords++
		state.Vao = vao
	}

	// Direct draws leave the backend's vertex state undefined for indirect draws that follow.
	state.Binding = nil
	state.Vao = nil
	return state, nil
}
