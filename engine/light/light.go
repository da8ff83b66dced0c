package light

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no position, only direction.
	// Used for large distant sources like the sun or moon. Directional lights are
	// never clustered; they are evaluated for every fragment.
	LightTypeDirectional LightType = iota

	// LightTypePoint represents a light that emits in all directions from a position.
	// Attenuates with distance up to its attenuation range.
	LightTypePoint

	// LightTypeSpot represents a light that emits in a cone from a position along a direction.
	// Attenuates with both distance and angle from the cone axis.
	LightTypeSpot
)

// String returns the lowercase name of the light type.
func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	}
	return "unknown"
}

// Attenuation describes distance falloff: 1 / (constant + linear*d + quadratic*d^2), cut off at Range.
type Attenuation struct {
	Range     float32
	Constant  float32
	Linear    float32
	Quadratic float32
}

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	name         string
	lightType    LightType
	position     mgl32.Vec3
	direction    mgl32.Vec3
	diffuse      mgl32.Vec3
	specular     mgl32.Vec3
	powerScale   float32
	attenuation  Attenuation
	spotInner    float32 // full cone angle in radians
	spotOuter    float32 // full cone angle in radians
	spotFalloff  float32
	visible      bool
	castsShadows bool
}

// Light defines the interface for a light source in the scene.
//
// All light types (directional, point, spot) share this interface; type-specific
// properties (e.g. cone angles for spot lights) are ignored when not applicable.
// Lights are owned by the scene. The light grid reads them once per frame and
// may toggle visibility transiently while culling.
type Light interface {
	// Name returns the light's debug name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type (directional, point, or spot)
	Type() LightType

	// Position returns the world-space position of the light.
	// Meaningless for directional lights.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// Direction returns the normalized direction of the light.
	// For spot lights this is the cone axis. Meaningless for point lights.
	//
	// Returns:
	//   - mgl32.Vec3: normalized direction
	Direction() mgl32.Vec3

	// Diffuse returns the diffuse RGB color.
	//
	// Returns:
	//   - mgl32.Vec3: color as (r, g, b)
	Diffuse() mgl32.Vec3

	// Specular returns the specular RGB color.
	//
	// Returns:
	//   - mgl32.Vec3: color as (r, g, b)
	Specular() mgl32.Vec3

	// PowerScale returns the multiplier applied to the diffuse color.
	//
	// Returns:
	//   - float32: the power scale
	PowerScale() float32

	// Attenuation returns the distance falloff parameters.
	//
	// Returns:
	//   - Attenuation: range and falloff coefficients
	Attenuation() Attenuation

	// SpotInnerAngle returns the full inner cone angle in radians.
	//
	// Returns:
	//   - float32: inner angle
	SpotInnerAngle() float32

	// SpotOuterAngle returns the full outer cone angle in radians.
	//
	// Returns:
	//   - float32: outer angle
	SpotOuterAngle() float32

	// SpotFalloff returns the exponent applied between the inner and outer cone.
	//
	// Returns:
	//   - float32: falloff exponent
	SpotFalloff() float32

	// Visible returns whether this light takes part in rendering.
	//
	// Returns:
	//   - bool: true if the light is visible
	Visible() bool

	// CastsShadows returns whether this light is eligible for shadow map generation.
	//
	// Returns:
	//   - bool: true if the light casts shadows
	CastsShadows() bool

	// SetPosition sets the world-space position of the light.
	//
	// Parameters:
	//   - p: the position
	SetPosition(p mgl32.Vec3)

	// SetDirection sets the direction of the light and normalizes it.
	//
	// Parameters:
	//   - d: direction (will be normalized)
	SetDirection(d mgl32.Vec3)

	// SetDiffuse sets the diffuse RGB color.
	//
	// Parameters:
	//   - c: color
	SetDiffuse(c mgl32.Vec3)

	// SetSpecular sets the specular RGB color.
	//
	// Parameters:
	//   - c: color
	SetSpecular(c mgl32.Vec3)

	// SetPowerScale sets the diffuse multiplier.
	//
	// Parameters:
	//   - scale: the power scale
	SetPowerScale(scale float32)

	// SetAttenuation sets the distance falloff parameters.
	//
	// Parameters:
	//   - a: the attenuation
	SetAttenuation(a Attenuation)

	// SetSpotRange sets the full inner and outer cone angles (radians) and the falloff exponent.
	//
	// Parameters:
	//   - inner: inner cone angle in radians
	//   - outer: outer cone angle in radians
	//   - falloff: falloff exponent
	SetSpotRange(inner, outer, falloff float32)

	// SetVisible shows or hides the light.
	//
	// Parameters:
	//   - visible: true to show
	SetVisible(visible bool)

	// SetCastsShadows sets whether the light is eligible for shadow mapping.
	//
	// Parameters:
	//   - castsShadows: true to enable shadow casting
	SetCastsShadows(castsShadows bool)
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified type with sensible defaults and
// any provided options applied.
//
// Parameters:
//   - lightType: the kind of light to create (directional, point, or spot)
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		lightType:  lightType,
		direction:  mgl32.Vec3{0, -1, 0},
		diffuse:    mgl32.Vec3{1, 1, 1},
		specular:   mgl32.Vec3{1, 1, 1},
		powerScale: 1.0,
		attenuation: Attenuation{
			Range:    10.0,
			Constant: 1.0,
		},
		spotInner:   mgl32.DegToRad(30),
		spotOuter:   mgl32.DegToRad(40),
		spotFalloff: 1.0,
		visible:     true,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.attenuation.Range <= 0 && lightType != LightTypeDirectional {
		panic("light: NewLight requires a positive attenuation range")
	}
	return l
}

func (l *lightImpl) Name() string {
	return l.name
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() mgl32.Vec3 {
	return l.position
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	return l.direction
}

func (l *lightImpl) Diffuse() mgl32.Vec3 {
	return l.diffuse
}

func (l *lightImpl) Specular() mgl32.Vec3 {
	return l.specular
}

func (l *lightImpl) PowerScale() float32 {
	return l.powerScale
}

func (l *lightImpl) Attenuation() Attenuation {
	return l.attenuation
}

func (l *lightImpl) SpotInnerAngle() float32 {
	return l.spotInner
}

func (l *lightImpl) SpotOuterAngle() float32 {
	return l.spotOuter
}

func (l *lightImpl) SpotFalloff() float32 {
	return l.spotFalloff
}

func (l *lightImpl) Visible() bool {
	return l.visible
}

func (l *lightImpl) CastsShadows() bool {
	return l.castsShadows
}

func (l *lightImpl) SetPosition(p mgl32.Vec3) {
	l.position = p
}

func (l *lightImpl) SetDirection(d mgl32.Vec3) {
	l.direction = normalize(d)
}

func (l *lightImpl) SetDiffuse(c mgl32.Vec3) {
	l.diffuse = c
}

func (l *lightImpl) SetSpecular(c mgl32.Vec3) {
	l.specular = c
}

func (l *lightImpl) SetPowerScale(scale float32) {
	l.powerScale = scale
}

func (l *lightImpl) SetAttenuation(a Attenuation) {
	l.attenuation = a
}

func (l *lightImpl) SetSpotRange(inner, outer, falloff float32) {
	l.spotInner = inner
	l.spotOuter = outer
	l.spotFalloff = falloff
}

func (l *lightImpl) SetVisible(visible bool) {
	l.visible = visible
}

func (l *lightImpl) SetCastsShadows(castsShadows bool) {
	l.castsShadows = castsShadows
}

// normalize returns d scaled to unit length, or -Y when d is degenerate.
func normalize(d mgl32.Vec3) mgl32.Vec3 {
	length := d.Len()
	if length < 1e-8 || math.IsNaN(float64(length)) {
		return mgl32.Vec3{0, -1, 0}
	}
	return d.Mul(1 / length)
}
