package command_buffer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/renderable"
)

// ErrNotImplemented is returned for paths a backend cannot take, such as per-draw legacy
// rendering on a backend that only accepts batched indirect draws.
var ErrNotImplemented = errors.New("not implemented")

// Backend executes commands. Each method matches one CommandType.
type Backend interface {
	// RequiresIndirect reports whether the backend only accepts batched indirect draws.
	RequiresIndirect() bool

	SetMacroblock(mb *pipeline.Macroblock) error
	SetBlendblock(bb *pipeline.Blendblock) error
	SetPipelineState(pso pipeline.PipelineState) error
	BindVao(binding *renderable.VertexBinding) error
	BindIndirectBuffer(b buffer.Buffer) error
	BindConstBuffer(slot uint16, b buffer.Buffer, offset, size uint32) error
	BindTexBuffer(slot uint16, b buffer.Buffer, offset, size uint32) error
	BindTexture(slot uint16, texture any) error

	// DrawIndexed issues numDraws indexed draws whose arguments start at offset in the bound indirect buffer.
	DrawIndexed(vao *renderable.VertexArrayObject, offset, numDraws uint32) error

	// DrawStrip issues numDraws non-indexed draws whose arguments start at offset in the bound indirect buffer.
	DrawStrip(vao *renderable.VertexArrayObject, offset, numDraws uint32) error

	StartLegacy() error
	DrawLegacy(vao *renderable.VertexArrayObject, d LegacyDraw) error
}

type executeFunc func(Backend, *Command) error

// executeTable dispatches a command to its Backend method by type.
var executeTable = [NumCommandTypes]executeFunc{
	CommandSetMacroblock: func(b Backend, c *Command) error {
		return b.SetMacroblock(c.Macroblock)
	},
	CommandSetBlendblock: func(b Backend, c *Command) error {
		return b.SetBlendblock(c.Blendblock)
	},
	CommandSetPipelineState: func(b Backend, c *Command) error {
		return b.SetPipelineState(c.PipelineState)
	},
	CommandBindVao: func(b Backend, c *Command) error {
		return b.BindVao(c.Binding)
	},
	CommandBindIndirectBuffer: func(b Backend, c *Command) error {
		return b.BindIndirectBuffer(c.Buffer)
	},
	CommandBindConstBuffer: func(b Backend, c *Command) error {
		return b.BindConstBuffer(c.Slot, c.Buffer, c.Offset, c.Size)
	},
	CommandBindTexBuffer: func(b Backend, c *Command) error {
		return b.BindTexBuffer(c.Slot, c.Buffer, c.Offset, c.Size)
	},
	CommandBindTexture: func(b Backend, c *Command) error {
		return b.BindTexture(c.Slot, c.Texture)
	},
	CommandDrawIndexed: func(b Backend, c *Command) error {
		return b.DrawIndexed(c.Vao, c.Offset, c.NumDraws)
	},
	CommandDrawStrip: func(b Backend, c *Command) error {
		return b.DrawStrip(c.Vao, c.Offset, c.NumDraws)
	},
	CommandStartLegacy: func(b Backend, c *Command) error {
		return b.StartLegacy()
	},
	CommandDrawLegacy: func(b Backend, c *Command) error {
		return b.DrawLegacy(c.Vao, c.Draw)
	},
}
