package command_buffer

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/renderable"
)

// CommandType tags the payload of a Command.
type CommandType uint8

const (
	CommandSetMacroblock CommandType = iota
	CommandSetBlendblock
	CommandSetPipelineState
	CommandBindVao
	CommandBindIndirectBuffer
	CommandBindConstBuffer
	CommandBindTexBuffer
	CommandBindTexture
	CommandDrawIndexed
	CommandDrawStrip
	CommandStartLegacy
	CommandDrawLegacy
	// NumCommandTypes is the number of command types.
	NumCommandTypes
)

var commandNames = [NumCommandTypes]string{
	CommandSetMacroblock:      "SetMacroblock",
	CommandSetBlendblock:      "SetBlendblock",
	CommandSetPipelineState:   "SetPipelineState",
	CommandBindVao:            "BindVao",
	CommandBindIndirectBuffer: "BindIndirectBuffer",
	CommandBindConstBuffer:    "BindConstBuffer",
	CommandBindTexBuffer:      "BindTexBuffer",
	CommandBindTexture:        "BindTexture",
	CommandDrawIndexed:        "DrawIndexed",
	CommandDrawStrip:          "DrawStrip",
	CommandStartLegacy:        "StartLegacy",
	CommandDrawLegacy:         "DrawLegacy",
}

// String returns the command name.
func (t CommandType) String() string {
	if t < NumCommandTypes {
		return commandNames[t]
	}
	return "Unknown"
}

// IsDraw reports whether the command issues geometry.
func (t CommandType) IsDraw() bool {
	return t == CommandDrawIndexed || t == CommandDrawStrip || t == CommandDrawLegacy
}

// LegacyDraw holds the inline parameters of a direct draw.
type LegacyDraw struct {
	Count         uint32
	InstanceCount uint32
	First         uint32
	BaseVertex    int32
	BaseInstance  uint32
}

// Command is one fixed-size record of a CommandBuffer. Type selects which payload fields are meaningful:
//
//	SetMacroblock       Macroblock
//	SetBlendblock       Blendblock
//	SetPipelineState    PipelineState
//	BindVao             Binding
//	BindIndirectBuffer  Buffer
//	BindConstBuffer     Slot, Buffer, Offset, Size
//	BindTexBuffer       Slot, Buffer, Offset, Size
//	BindTexture         Slot, Texture
//	DrawIndexed         Vao, Offset (indirect byte offset), NumDraws
//	DrawStrip           Vao, Offset (indirect byte offset), NumDraws
//	StartLegacy         none
//	DrawLegacy          Vao, Draw
type Command struct {
	Type CommandType

	Macroblock    *pipeline.Macroblock
	Blendblock    *pipeline.Blendblock
	PipelineState pipeline.PipelineState
	Binding       *renderable.VertexBinding
	Vao           *renderable.VertexArrayObject
	Buffer        buffer.Buffer
	Texture       any

	Slot     uint16
	Offset   uint32
	Size     uint32
	NumDraws uint32
	Draw     LegacyDraw
}

// SetMacroblock returns a command binding rasterizer state.
func SetMacroblock(mb *pipeline.Macroblock) Command {
	return Command{Type: CommandSetMacroblock, Macroblock: mb}
}

// SetBlendblock returns a command binding blend state.
func SetBlendblock(bb *pipeline.Blendblock) Command {
	return Command{Type: CommandSetBlendblock, Blendblock: bb}
}

// SetPipelineState returns a command binding a compiled shader variant.
func SetPipelineState(pso pipeline.PipelineState) Command {
	return Command{Type: CommandSetPipelineState, PipelineState: pso}
}

// BindVao returns a command binding vertex and index buffers.
func BindVao(binding *renderable.VertexBinding) Command {
	return Command{Type: CommandBindVao, Binding: binding}
}

// BindIndirectBuffer returns a command selecting the buffer later indirect draws read from.
func BindIndirectBuffer(b buffer.Buffer) Command {
	return Command{Type: CommandBindIndirectBuffer, Buffer: b}
}

// BindConstBuffer returns a command binding a uniform buffer range to slot.
func BindConstBuffer(slot uint16, b buffer.Buffer, offset, size uint32) Command {
	return Command{Type: CommandBindConstBuffer, Slot: slot, Buffer: b, Offset: offset, Size: size}
}

// BindTexBuffer returns a command binding a storage buffer range to slot.
func BindTexBuffer(slot uint16, b buffer.Buffer, offset, size uint32) Command {
	return Command{Type: CommandBindTexBuffer, Slot: slot, Buffer: b, Offset: offset, Size: size}
}

// BindTexture returns a command binding a texture handle to slot.
func BindTexture(slot uint16, texture any) Command {
	return Command{Type: CommandBindTexture, Slot: slot, Texture: texture}
}

// DrawIndexed returns an indexed indirect draw of numDraws records starting at offset.
func DrawIndexed(vao *renderable.VertexArrayObject, offset, numDraws uint32) Command {
	return Command{Type: CommandDrawIndexed, Vao: vao, Offset: offset, NumDraws: numDraws}
}

// DrawStrip returns a non-indexed indirect draw of numDraws records starting at offset.
func DrawStrip(vao *renderable.VertexArrayObject, offset, numDraws uint32) Command {
	return Command{Type: CommandDrawStrip, Vao: vao, Offset: offset, NumDraws: numDraws}
}

// StartLegacy returns the marker that switches a backend to direct draws.
func StartLegacy() Command {
	return Command{Type: CommandStartLegacy}
}

// DrawLegacyCall returns a direct draw with inline parameters.
func DrawLegacyCall(vao *renderable.VertexArrayObject, d LegacyDraw) Command {
	return Command{Type: CommandDrawLegacy, Vao: vao, Draw: d}
}
