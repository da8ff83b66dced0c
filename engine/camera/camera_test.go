package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/go-gl/mathgl/mgl32"
)

func TestProjectionDepthRange(t *testing.T) {
	c := NewCamera(WithNear(0.5), WithFar(200))
	proj := c.ProjectionMatrix()

	tests := []struct {
		name string
		z    float32
		want float32
	}{
		{"near plane", -0.5, 0},
		{"far plane", -200, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip := proj.Mul4x1(mgl32.Vec4{0, 0, tt.z, 1})
			if got := clip.Z() / clip.W(); math.Abs(float64(got-tt.want)) > 1e-4 {
				t.Errorf("got depth %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsVisibleSphere(t *testing.T) {
	c := NewCamera(WithPosition(mgl32.Vec3{0, 0, 0}), WithTarget(mgl32.Vec3{0, 0, -1}))

	tests := []struct {
		name   string
		center mgl32.Vec3
		want   bool
	}{
		{"in front", mgl32.Vec3{0, 0, -5}, true},
		{"behind", mgl32.Vec3{0, 0, 5}, false},
		{"past far plane", mgl32.Vec3{0, 0, -500}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsVisibleSphere(tt.center, 1); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReflectionMirrorsView(t *testing.T) {
	c := NewCamera(WithPosition(mgl32.Vec3{0, 2, 0}), WithTarget(mgl32.Vec3{0, 2, -1}))
	plain := c.ViewMatrix()

	c.EnableReflection(common.Plane{Normal: mgl32.Vec3{0, 1, 0}})
	if !c.Reflected() {
		t.Fatal("camera not reflected")
	}
	got := c.ViewMatrix().Mul4x1(mgl32.Vec4{1, 3, -5, 1})
	want := plain.Mul4x1(mgl32.Vec4{1, -3, -5, 1})
	if !got.ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("got %v, want %v", got, want)
	}

	c.DisableReflection()
	if c.Reflected() || !c.ViewMatrix().ApproxEqual(plain) {
		t.Error("DisableReflection did not restore the view")
	}
}

func TestSetAspect(t *testing.T) {
	c := NewCamera()
	before := c.ProjectionMatrix()
	c.SetAspect(2)
	after := c.ProjectionMatrix()
	if got, want := after[0], before[0]/2; math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("got x scale %v, want %v", got, want)
	}
	if after[5] != before[5] {
		t.Errorf("got y scale %v, want %v", after[5], before[5])
	}
}

func TestNewCameraPanicsOnBadClipRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewCamera did not panic")
		}
	}()
	NewCamera(WithNear(10), WithFar(1))
}

func TestGPUCameraUniformMarshal(t *testing.T) {
	c := NewCamera(WithPosition(mgl32.Vec3{1, 2, 3}))
	u := NewGPUCameraUniform(c)
	if got := u.Size(); got != 80 {
		t.Fatalf("got size %d, want 80", got)
	}

	dst := make([]byte, u.Size())
	u.MarshalInto(dst)
	for i, want := range []float32{1, 2, 3} {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(dst[64+i*4:])); got != want {
			t.Errorf("got position[%d] %v, want %v", i, got, want)
		}
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(dst[0:])); got != u.ViewProj[0] {
		t.Errorf("got viewProj[0] %v, want %v", got, u.ViewProj[0])
	}
}
