package lit

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

// LitBuilderOption is a functional option used to configure a Lit system during construction.
type LitBuilderOption func(*litSystem)

// WithSlots sets the bind slots of the pass block, the per-draw block, the cell table and the light list.
//
// Parameters:
//   - pass: slot of the per-pass const buffer
//   - draw: slot of the per-draw const buffer
//   - grid: slot of the cell table
//   - lightList: slot of the light list
//
// Returns:
//   - LitBuilderOption: a function that sets the slots
func WithSlots(pass, draw, grid, lightList uint16) LitBuilderOption {
	return func(l *litSystem) {
		l.passSlot = pass
		l.drawSlot = draw
		l.gridSlot = grid
		l.lightListSlot = lightList
	}
}

// WithDrawsPerBuffer sets how many per-draw records one const buffer holds.
//
// Parameters:
//   - n: records per buffer
//
// Returns:
//   - LitBuilderOption: a function that sets the buffer capacity
func WithDrawsPerBuffer(n int) LitBuilderOption {
	return func(l *litSystem) {
		l.drawsPerBuffer = n
	}
}

// WithAmbient sets the light every fragment receives before the grid lights are added.
func WithAmbient(c mgl32.Vec3) LitBuilderOption {
	return func(l *litSystem) {
		l.ambient = c
	}
}

// WithMaterialType sets the datablock type the system renders.
//
// Parameters:
//   - t: the datablock type (default material.TypePbs)
//
// Returns:
//   - LitBuilderOption: a function that sets the type
func WithMaterialType(t material.Type) LitBuilderOption {
	return func(l *litSystem) {
		l.materialType = t
	}
}
