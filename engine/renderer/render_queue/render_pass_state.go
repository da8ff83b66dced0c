package render_queue

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/renderable"
)

// RenderPassState tracks what is currently bound so the walk only emits commands on change.
// It is threaded through each bucket walk by value and stored between render calls.
type RenderPassState struct {
	Macroblock  *pipeline.Macroblock
	Blendblock  *pipeline.Blendblock
	ShaderCache *material.ShaderCache
	Binding     *renderable.VertexBinding
	Vao         *renderable.VertexArrayObject
	// TextureHash identifies the bound texture and is only meaningful while TextureBound is set.
	TextureHash  uint16
	TextureBound bool
	CasterPass   bool
}

// Cleared returns the state with every tracker reset and the caster flag kept.
func (s RenderPassState) Cleared() RenderPassState {
	return RenderPassState{CasterPass: s.CasterPass}
}

// Stats counts the work of the most recent Render call.
type Stats struct {
	Renderables     int
	DrawCommands    int
	DrawRecords     int
	InstancedMerges int
	StateChanges    int
	Commands        int
}

// Add returns the sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Renderables:     s.Renderables + o.Renderables,
		DrawCommands:    s.DrawCommands + o.DrawCommands,
		DrawRecords:     s.DrawRecords + o.DrawRecords,
		InstancedMerges: s.InstancedMerges + o.InstancedMerges,
		StateChanges:    s.StateChanges + o.StateChanges,
		Commands:        s.Commands + o.Commands,
	}
}
