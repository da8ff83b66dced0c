package light

import "github.com/go-gl/mathgl/mgl32"

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithName is an option builder that sets the light's debug name.
//
// Parameters:
//   - name: the name
//
// Returns:
//   - LightBuilderOption: a function that applies the name option to a lightImpl
func WithName(name string) LightBuilderOption {
	return func(l *lightImpl) {
		l.name = name
	}
}

// WithPosition is an option builder that sets the world-space position of the light.
//
// Parameters:
//   - p: the position
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a lightImpl
func WithPosition(p mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.position = p
	}
}

// WithDirection is an option builder that sets the direction of the light.
// The direction is normalized before storing.
//
// Parameters:
//   - d: the direction
//
// Returns:
//   - LightBuilderOption: a function that applies the direction option to a lightImpl
func WithDirection(d mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.direction = normalize(d)
	}
}

// WithDiffuse is an option builder that sets the diffuse RGB color of the light.
//
// Parameters:
//   - c: the color
//
// Returns:
//   - LightBuilderOption: a function that applies the diffuse option to a lightImpl
func WithDiffuse(c mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.diffuse = c
	}
}

// WithSpecular is an option builder that sets the specular RGB color of the light.
//
// Parameters:
//   - c: the color
//
// Returns:
//   - LightBuilderOption: a function that applies the specular option to a lightImpl
func WithSpecular(c mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.specular = c
	}
}

// WithPowerScale is an option builder that sets the scalar multiplier applied to the diffuse color.
//
// Parameters:
//   - scale: the power scale
//
// Returns:
//   - LightBuilderOption: a function that applies the power scale option to a lightImpl
func WithPowerScale(scale float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.powerScale = scale
	}
}

// WithAttenuation is an option builder that sets range and falloff coefficients.
//
// Parameters:
//   - lightRange: cutoff distance
//   - constant: constant term
//   - linear: linear term
//   - quadratic: quadratic term
//
// Returns:
//   - LightBuilderOption: a function that applies the attenuation option to a lightImpl
func WithAttenuation(lightRange, constant, linear, quadratic float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.attenuation = Attenuation{Range: lightRange, Constant: constant, Linear: linear, Quadratic: quadratic}
	}
}

// WithSpotRange is an option builder that sets the full cone angles (degrees) and falloff for spot lights.
//
// Parameters:
//   - innerDeg: inner cone angle in degrees
//   - outerDeg: outer cone angle in degrees
//   - falloff: falloff exponent
//
// Returns:
//   - LightBuilderOption: a function that applies the spot range option to a lightImpl
func WithSpotRange(innerDeg, outerDeg, falloff float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.spotInner = mgl32.DegToRad(innerDeg)
		l.spotOuter = mgl32.DegToRad(outerDeg)
		l.spotFalloff = falloff
	}
}

// WithVisible is an option builder that sets whether the light takes part in rendering.
//
// Parameters:
//   - visible: true to show the light
//
// Returns:
//   - LightBuilderOption: a function that applies the visible option to a lightImpl
func WithVisible(visible bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.visible = visible
	}
}

// WithCastsShadows is an option builder that sets whether the light is eligible for shadow mapping.
//
// Parameters:
//   - castsShadows: true to enable shadow casting
//
// Returns:
//   - LightBuilderOption: a function that applies the casts shadows option to a lightImpl
func WithCastsShadows(castsShadows bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.castsShadows = castsShadows
	}
}
