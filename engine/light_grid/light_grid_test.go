package light_grid

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/buffer"
	"github.com/go-gl/mathgl/mgl32"
)

type staticSource struct {
	lights []light.Light
	shadow light.ShadowState
}

func (s *staticSource) GlobalLights() []light.Light    { return s.lights }
func (s *staticSource) ShadowState() light.ShadowState { return s.shadow }

func pointLight(pos mgl32.Vec3, r float32) light.Light {
	return light.NewLight(light.LightTypePoint, light.WithPosition(pos), light.WithAttenuation(r, 1, 0, 0))
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

func gridEntry(b buffer.Buffer, index int) uint16 {
	return binary.LittleEndian.Uint16(b.(*buffer.MemoryBuffer).Bytes()[index*gridEntrySize:])
}

func TestSliceMapping(t *testing.T) {
	g := NewLightGrid(buffer.NewMemoryProvider(), &staticSource{},
		WithGridSize(16, 9), WithSlices(4), WithLightsPerCell(8), WithDistanceRange(1, 100))
	table := 16 * 9 * 8

	offsets := []int{0, table, 5 * table, 21 * table, 85 * table}
	for slice, want := range offsets {
		if got := g.SliceOffset(slice); got != want {
			t.Errorf("SliceOffset(%d): got %d, want %d", slice, got, want)
		}
	}
	for slice := range 4 {
		w, h := g.Resolution(slice)
		if w != 16<<slice || h != 9<<slice {
			t.Errorf("Resolution(%d): got %dx%d, want %dx%d", slice, w, h, 16<<slice, 9<<slice)
		}
	}

	depths := []struct {
		z    float32
		want int
	}{
		{z: 0, want: 0},
		{z: -1, want: 0},
		{z: -50.5, want: 1},
		{z: -67.1, want: 2},
		{z: -100, want: 3},
		{z: -500, want: 3},
	}
	for _, tt := range depths {
		if got := g.SliceAtDepth(tt.z); got != tt.want {
			t.Errorf("SliceAtDepth(%v): got %d, want %d", tt.z, got, tt.want)
		}
	}

	if got := g.DepthAtSlice(0); got != -1 {
		t.Errorf("DepthAtSlice(0): got %v, want -1", got)
	}
	if got := g.DepthAtSlice(3); got != -100 {
		t.Errorf("DepthAtSlice(3): got %v, want -100", got)
	}
	for slice := range 3 {
		if got := g.SliceAtDepth(g.DepthAtSlice(slice) - 0.01); got != slice {
			t.Errorf("slice %d: SliceAtDepth just past its start got %d", slice, got)
		}
	}
}

func TestNewLightGridPanics(t *testing.T) {
	p := buffer.NewMemoryProvider()
	src := &staticSource{}
	mustPanic(t, "one slice", func() { NewLightGrid(p, src, WithSlices(1)) })
	mustPanic(t, "one entry per cell", func() { NewLightGrid(p, src, WithLightsPerCell(1)) })
	mustPanic(t, "empty range", func() { NewLightGrid(p, src, WithDistanceRange(10, 10)) })
	mustPanic(t, "zero grid", func() { NewLightGrid(p, src, WithGridSize(0, 4)) })
	mustPanic(t, "nil source", func() { NewLightGrid(p, nil) })
}

func TestCollectLightsEndToEnd(t *testing.T) {
	p := buffer.NewMemoryProvider()
	src := &staticSource{lights: []light.Light{
		pointLight(mgl32.Vec3{0, 0, -10}, 2),
		pointLight(mgl32.Vec3{3, 1, -20}, 3),
		pointLight(mgl32.Vec3{-2, -1, -5}, 1),
	}}
	g := NewLightGrid(p, src, WithGridSize(16, 9), WithSlices(4), WithLightsPerCell(8), WithDistanceRange(1, 100))
	cam := camera.NewCamera(camera.WithAspect(16.0 / 9.0))

	if err := g.CollectLights(cam); err != nil {
		t.Fatalf("CollectLights: %v", err)
	}
	if got := g.NumLights(cam); got != 3 {
		t.Fatalf("got %d lights, want 3", got)
	}

	list := g.LightListBuffer(cam).(*buffer.MemoryBuffer)
	if got := list.Size(); got != 96*light.GPUForwardLightSize {
		t.Errorf("got light list of %d bytes, want %d", got, 96*light.GPUForwardLightSize)
	}
	wantZ := []float32{-5, -10, -20}
	for i, want := range wantZ {
		z := math.Float32frombits(binary.LittleEndian.Uint32(list.Bytes()[i*light.GPUForwardLightSize+8:]))
		if math.Abs(float64(z-want)) > 1e-4 {
			t.Errorf("light %d: got view z %v, want %v", i, z, want)
		}
	}

	// Slices each light may touch, from its clamped view-space depth range.
	type span struct{ first, last int }
	spans := []span{
		{g.SliceAtDepth(-4), g.SliceAtDepth(-6)},
		{g.SliceAtDepth(-8), g.SliceAtDepth(-12)},
		{g.SliceAtDepth(-17), g.SliceAtDepth(-23)},
	}

	grid := g.GridBuffer(cam)
	seen := make([]bool, 3)
	for slice := range 4 {
		w, h := g.Resolution(slice)
		base := g.SliceOffset(slice)
		for cell := range w * h {
			at := base + cell*8
			n := int(gridEntry(grid, at))
			if n > 7 {
				t.Fatalf("slice %d cell %d: count %d exceeds 7", slice, cell, n)
			}
			for k := 1; k <= n; k++ {
				idx := int(gridEntry(grid, at+k))
				if idx >= 3 {
					t.Fatalf("slice %d cell %d: light index %d out of range", slice, cell, idx)
				}
				if slice < spans[idx].first || slice > spans[idx].last {
					t.Errorf("light %d listed in slice %d, outside [%d, %d]", idx, slice, spans[idx].first, spans[idx].last)
				}
				seen[idx] = true
			}
		}
	}
	for i, ok := range seen {
		if !ok {
			t.Errorf("light %d not listed in any cell", i)
		}
	}
	if g.DroppedLights() != 0 {
		t.Errorf("got %d dropped lights, want 0", g.DroppedLights())
	}

	params := g.ShaderParams()
	if params.Width != 16 || params.Height != 9 || params.NumSlices != 4 || params.LightsPerCell != 8 {
		t.Errorf("got params %+v", params)
	}
	if math.Abs(float64(params.InvDepthRange-1.0/99)) > 1e-7 {
		t.Errorf("got inverse depth range %v, want %v", params.InvDepthRange, 1.0/99)
	}
}

func TestCollectLightsCacheHit(t *testing.T) {
	p := buffer.NewMemoryProvider()
	src := &staticSource{lights: []light.Light{pointLight(mgl32.Vec3{0, 0, -10}, 2)}}
	g := NewLightGrid(p, src)
	cam := camera.NewCamera()

	if err := g.CollectLights(cam); err != nil {
		t.Fatalf("CollectLights: %v", err)
	}
	writes := p.Writes()
	if writes == 0 {
		t.Fatal("first CollectLights wrote nothing")
	}
	if err := g.CollectLights(cam); err != nil {
		t.Fatalf("CollectLights: %v", err)
	}
	if got := p.Writes(); got != writes {
		t.Errorf("got %d writes after a cache hit, want %d", got, writes)
	}

	p.AdvanceFrame()
	if err := g.CollectLights(cam); err != nil {
		t.Fatalf("CollectLights: %v", err)
	}
	if got := p.Writes(); got == writes {
		t.Error("new frame did not rebuild the grid")
	}
	if got := g.CachedGridCount(); got != 1 {
		t.Errorf("got %d cached grids, want 1", got)
	}
}

func TestCollectLightsCacheKey(t *testing.T) {
	p := buffer.NewMemoryProvider()
	src := &staticSource{lights: []light.Light{pointLight(mgl32.Vec3{0, 0, -10}, 2)}}
	g := NewLightGrid(p, src)
	cam := camera.NewCamera(camera.WithAspect(1.5))

	collect := func(wantGrids int) {
		t.Helper()
		if err := g.CollectLights(cam); err != nil {
			t.Fatalf("CollectLights: %v", err)
		}
		if got := g.CachedGridCount(); got != wantGrids {
			t.Errorf("got %d cached grids, want %d", got, wantGrids)
		}
	}

	collect(1)
	cam.SetAspect(1.5 + 1e-7)
	collect(1)
	cam.SetAspect(2)
	collect(2)
	cam.EnableReflection(common.Plane{Normal: mgl32.Vec3{0, 1, 0}})
	collect(3)
	cam.DisableReflection()
	src.shadow = light.ShadowState{NodeID: 9}
	collect(4)
	collect(4)
	collect(4)
	other := camera.NewCamera(camera.WithAspect(2))
	if err := g.CollectLights(other); err != nil {
		t.Fatalf("CollectLights: %v", err)
	}
	if got := g.CachedGridCount(); got != 5 {
		t.Errorf("got %d cached grids, want 5", got)
	}
}

func TestCollectLightsEviction(t *testing.T) {
	p := buffer.NewMemoryProvider()
	src := &staticSource{lights: []light.Light{pointLight(mgl32.Vec3{0, 0, -10}, 2)}}
	g := NewLightGrid(p, src)
	stale := camera.NewCamera(camera.WithName("stale"))
	active := camera.NewCamera(camera.WithName("active"))

	if err := g.CollectLights(stale); err != nil {
		t.Fatalf("CollectLights: %v", err)
	}
	staleGrid := g.GridBuffer(stale).(*buffer.MemoryBuffer)
	staleList := g.LightListBuffer(stale).(*buffer.MemoryBuffer)

	for frame := 1; frame <= 4; frame++ {
		p.AdvanceFrame()
		if err := g.CollectLights(active); err != nil {
			t.Fatalf("frame %d: CollectLights: %v", frame, err)
		}
		wantGrids := 2
		if frame == 4 {
			wantGrids = 1
		}
		if got := g.CachedGridCount(); got != wantGrids {
			t.Errorf("frame %d: got %d cached grids, want %d", frame, got, wantGrids)
		}
	}
	if !staleGrid.Destroyed() || !staleList.Destroyed() {
		t.Error("evicted grid buffers were not destroyed")
	}
	if got := p.LiveBuffers(); got != 2 {
		t.Errorf("got %d live buffers, want 2", got)
	}

	if err := g.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if got := p.LiveBuffers(); got != 0 {
		t.Errorf("got %d live buffers after Destroy, want 0", got)
	}
}

func TestCollectLightsCellCap(t *testing.T) {
	p := buffer.NewMemoryProvider()
	src := &staticSource{}
	for range 10 {
		src.lights = append(src.lights, pointLight(mgl32.Vec3{0, 0, -5}, 1))
	}
	g := NewLightGrid(p, src, WithGridSize(1, 1), WithSlices(2), WithLightsPerCell(4), WithDistanceRange(1, 100))
	cam := camera.NewCamera()

	if err := g.CollectLights(cam); err != nil {
		t.Fatalf("CollectLights: %v", err)
	}
	grid := g.GridBuffer(cam)
	if got := gridEntry(grid, 0); got != 3 {
		t.Fatalf("got cell count %d, want 3", got)
	}
	for k := 1; k <= 3; k++ {
		if got := gridEntry(grid, k); got != uint16(k-1) {
			t.Errorf("slot %d: got light %d, want %d", k, got, k-1)
		}
	}
	if got := g.DroppedLights(); got != 7 {
		t.Errorf("got %d dropped, want 7", got)
	}
	if got := g.NumLights(cam); got != 10 {
		t.Errorf("got %d lights in the list, want 10", got)
	}
}

func TestCollectLightsSkipsShadowCasters(t *testing.T) {
	p := buffer.NewMemoryProvider()
	caster := pointLight(mgl32.Vec3{0, 0, -10}, 2)
	hidden := light.NewLight(light.LightTypePoint, light.WithPosition(mgl32.Vec3{1, 0, -10}), light.WithVisible(false))
	sun := light.NewLight(light.LightTypeDirectional)
	src := &staticSource{
		lights: []light.Light{caster, pointLight(mgl32.Vec3{0, 1, -10}, 2), hidden, sun},
		shadow: light.ShadowState{NodeID: 3, Casters: []light.Light{caster}},
	}
	g := NewLightGrid(p, src)
	cam := camera.NewCamera()

	if err := g.CollectLights(cam); err != nil {
		t.Fatalf("CollectLights: %v", err)
	}
	if got := g.NumLights(cam); got != 1 {
		t.Errorf("got %d lights, want 1", got)
	}
	if !caster.Visible() {
		t.Error("shadow caster left invisible after culling")
	}
}

func TestAccessorsRequireCollectLights(t *testing.T) {
	p := buffer.NewMemoryProvider()
	g := NewLightGrid(p, &staticSource{})
	cam := camera.NewCamera()

	mustPanic(t, "GridBuffer before collect", func() { g.GridBuffer(cam) })
	mustPanic(t, "LightListBuffer before collect", func() { g.LightListBuffer(cam) })

	if err := g.CollectLights(cam); err != nil {
		t.Fatalf("CollectLights: %v", err)
	}
	if g.GridBuffer(cam) == nil || g.LightListBuffer(cam) == nil {
		t.Fatal("collected grid has no buffers")
	}

	p.AdvanceFrame()
	mustPanic(t, "GridBuffer on a stale grid", func() { g.GridBuffer(cam) })
	if got := g.NumLights(cam); got != 0 {
		t.Errorf("got %d lights for a stale grid, want 0", got)
	}
}

var errOutOfMemory = errors.New("out of device memory")

// limitedProvider fails CreateTexBuffer once its budget is spent and rejects nil buffers on destroy.
type limitedProvider struct {
	*buffer.MemoryProvider
	limited   bool
	texBudget int
}

func (p *limitedProvider) CreateTexBuffer(size int, usage buffer.Usage) (buffer.Buffer, error) {
	if p.limited {
		if p.texBudget == 0 {
			return nil, errOutOfMemory
		}
		p.texBudget--
	}
	return p.MemoryProvider.CreateTexBuffer(size, usage)
}

func (p *limitedProvider) DestroyBuffer(b buffer.Buffer) error {
	if b == nil {
		return errors.New("destroy of a nil buffer")
	}
	return p.MemoryProvider.DestroyBuffer(b)
}

func TestCollectLightsFailedRebuildIsNotCurrent(t *testing.T) {
	p := &limitedProvider{MemoryProvider: buffer.NewMemoryProvider(), limited: true, texBudget: 1}
	g := NewLightGrid(p, &staticSource{lights: []light.Light{pointLight(mgl32.Vec3{0, 0, -10}, 2)}})
	cam := camera.NewCamera()

	if err := g.CollectLights(cam); !errors.Is(err, errOutOfMemory) {
		t.Fatalf("got %v, want %v", err, errOutOfMemory)
	}
	mustPanic(t, "GridBuffer after a failed rebuild", func() { g.GridBuffer(cam) })
	if got := g.NumLights(cam); got != 0 {
		t.Errorf("got %d lights after a failed rebuild, want 0", got)
	}

	p.limited = false
	if err := g.CollectLights(cam); err != nil {
		t.Fatalf("second CollectLights in the same frame: %v", err)
	}
	if g.GridBuffer(cam) == nil || g.LightListBuffer(cam) == nil {
		t.Fatal("retried grid has no buffers")
	}
	if got := g.NumLights(cam); got != 1 {
		t.Errorf("got %d lights, want 1", got)
	}
	if err := g.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if got := p.LiveBuffers(); got != 0 {
		t.Errorf("got %d live buffers, want 0", got)
	}
}

func TestDestroySkipsMissingBuffers(t *testing.T) {
	p := &limitedProvider{MemoryProvider: buffer.NewMemoryProvider(), limited: true, texBudget: 1}
	g := NewLightGrid(p, &staticSource{})
	if err := g.CollectLights(camera.NewCamera()); err == nil {
		t.Fatal("got nil error, want a buffer creation error")
	}
	if err := g.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if got := p.LiveBuffers(); got != 0 {
		t.Errorf("got %d live buffers, want 0", got)
	}
}

func TestLightListGrows(t *testing.T) {
	p := buffer.NewMemoryProvider()
	src := &staticSource{}
	g := NewLightGrid(p, src, WithMinLightCapacity(2))
	cam := camera.NewCamera()

	src.lights = []light.Light{pointLight(mgl32.Vec3{0, 0, -10}, 1)}
	if err := g.CollectLights(cam); err != nil {
		t.Fatalf("CollectLights: %v", err)
	}
	if got := g.LightListBuffer(cam).Size(); got != 2*light.GPUForwardLightSize {
		t.Errorf("got %d bytes, want %d", got, 2*light.GPUForwardLightSize)
	}

	for i := range 4 {
		src.lights = append(src.lights, pointLight(mgl32.Vec3{float32(i) * 0.1, 0, -12}, 1))
	}
	p.AdvanceFrame()
	if err := g.CollectLights(cam); err != nil {
		t.Fatalf("CollectLights: %v", err)
	}
	if got := g.LightListBuffer(cam).Size(); got != 5*light.GPUForwardLightSize {
		t.Errorf("got %d bytes, want %d", got, 5*light.GPUForwardLightSize)
	}
	if got := p.LiveBuffers(); got != 2 {
		t.Errorf("got %d live buffers, want 2", got)
	}
}

func TestSpotBoundsTighterThanRange(t *testing.T) {
	spot := light.NewLight(light.LightTypeSpot,
		light.WithPosition(mgl32.Vec3{0, 0, 0}),
		light.WithDirection(mgl32.Vec3{0, 0, -1}),
		light.WithAttenuation(10, 1, 0, 0),
		light.WithSpotRange(10, 20, 1),
	)
	box := spotBounds(spot)
	lo, hi := box.Min(), box.Max()
	if hi[2] > 1e-5 || lo[2] < -10-1e-5 {
		t.Errorf("got z range [%v, %v], want within [-10, 0]", lo[2], hi[2])
	}
	wantHalfX := float32(10 * math.Sin(10*math.Pi/180))
	if math.Abs(float64(hi[0]-wantHalfX)) > 1e-4 {
		t.Errorf("got x extent %v, want %v", hi[0], wantHalfX)
	}

	minV, maxV, ok := viewBounds(spot, mgl32.Ident4(), 0.1, 100)
	if !ok {
		t.Fatal("spot light outside the depth range")
	}
	if maxV[0] >= 10 || minV[0] <= -10 {
		t.Errorf("got view x range [%v, %v], want narrower than the range sphere", minV[0], maxV[0])
	}
	if maxV[2] != -0.1 {
		t.Errorf("got near z %v, want clamped to -0.1", maxV[2])
	}
}
