package light

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
)

func readFloat(b []byte, word int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[word*4:]))
}

func TestGPUForwardLightLayout(t *testing.T) {
	l := NewLight(LightTypeSpot,
		WithPosition(mgl32.Vec3{1, 2, 3}),
		WithDirection(mgl32.Vec3{0, 0, -2}),
		WithDiffuse(mgl32.Vec3{0.5, 0.25, 1}),
		WithPowerScale(2),
		WithSpecular(mgl32.Vec3{0.1, 0.2, 0.3}),
		WithAttenuation(8, 1, 0.5, 0.25),
		WithSpotRange(60, 90, 1.5),
	)
	rec := NewGPUForwardLight(l, mgl32.Ident4())
	if got := rec.Size(); got != GPUForwardLightSize {
		t.Fatalf("Size() = %d, want %d", got, GPUForwardLightSize)
	}

	buf := make([]byte, GPUForwardLightSize)
	rec.MarshalInto(buf)

	want := map[int]float32{
		0: 1, 1: 2, 2: 3, 3: float32(LightTypeSpot),
		4: 1, 5: 0.5, 6: 2, 7: 1,
		8: 0.1, 9: 0.2, 10: 0.3, 11: 1,
		12: 8, 13: 0.5, 14: 0.25, 15: 0.125,
		16: 0, 17: 0, 18: -1, 19: 1,
		22: 1.5, 23: 0,
	}
	for word, w := range want {
		if got := readFloat(buf, word); math.Abs(float64(got-w)) > 1e-6 {
			t.Errorf("word %d = %v, want %v", word, got, w)
		}
	}

	cosInner := math.Cos(float64(mgl32.DegToRad(60)) * 0.5)
	cosOuter := math.Cos(float64(mgl32.DegToRad(90)) * 0.5)
	if got := readFloat(buf, 21); math.Abs(float64(got)-cosOuter) > 1e-5 {
		t.Errorf("cos(outer/2) = %v, want %v", got, cosOuter)
	}
	if got := readFloat(buf, 20); math.Abs(float64(got)-1/(cosInner-cosOuter)) > 1e-3 {
		t.Errorf("inverse cone = %v, want %v", got, 1/(cosInner-cosOuter))
	}
}

func TestCullLights(t *testing.T) {
	cam := camera.NewCamera(camera.WithNear(1), camera.WithFar(100), camera.WithFov(mgl32.DegToRad(90)))

	front := NewLight(LightTypePoint, WithName("front"), WithPosition(mgl32.Vec3{0, 0, -10}))
	behind := NewLight(LightTypePoint, WithName("behind"), WithPosition(mgl32.Vec3{0, 0, 30}))
	hidden := NewLight(LightTypePoint, WithName("hidden"), WithPosition(mgl32.Vec3{0, 0, -5}), WithVisible(false))
	sun := NewLight(LightTypeDirectional, WithName("sun"))
	spot := NewLight(LightTypeSpot, WithName("spot"), WithPosition(mgl32.Vec3{2, 0, -20}))

	got := CullLights(nil, []Light{front, behind, hidden, sun, spot}, cam)
	if len(got) != 2 || got[0] != front || got[1] != spot {
		names := make([]string, len(got))
		for i, l := range got {
			names[i] = l.Name()
		}
		t.Errorf("CullLights = %v, want [front spot]", names)
	}
}

func TestShadowStateHideCasters(t *testing.T) {
	a := NewLight(LightTypePoint)
	b := NewLight(LightTypePoint, WithVisible(false))
	st := ShadowState{NodeID: 7, Casters: []Light{a, b}}

	restore := st.HideCasters()
	if a.Visible() || b.Visible() {
		t.Fatalf("casters still visible after HideCasters")
	}
	restore()
	if !a.Visible() || b.Visible() {
		t.Errorf("visibility after restore = (%v, %v), want (true, false)", a.Visible(), b.Visible())
	}
}
