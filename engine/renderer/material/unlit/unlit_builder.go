package unlit

// UnlitBuilderOption is a functional option used to configure an Unlit system during construction.
type UnlitBuilderOption func(*unlitSystem)

// WithSlots sets the bind slots of the camera block, the per-draw block and the texture.
//
// Parameters:
//   - pass: slot of the per-pass camera const buffer
//   - draw: slot of the per-draw const buffer
//   - texture: slot of the diffuse texture
//
// Returns:
//   - UnlitBuilderOption: a function that sets the slots
func WithSlots(pass, draw, texture uint16) UnlitBuilderOption {
	return func(u *unlitSystem) {
		u.passSlot = pass
		u.drawSlot = draw
		u.textureSlot = texture
	}
}

// WithDrawsPerBuffer sets how many per-draw records one const buffer holds.
//
// Parameters:
//   - n: records per buffer
//
// Returns:
//   - UnlitBuilderOption: a function that sets the buffer capacity
func WithDrawsPerBuffer(n int) UnlitBuilderOption {
	return func(u *unlitSystem) {
		u.drawsPerBuffer = n
	}
}
