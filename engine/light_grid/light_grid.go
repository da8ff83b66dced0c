// Package light_grid implements Forward3D light clustering: the view frustum is cut into depth
// slices, each slice into a grid of cells that doubles in resolution with depth, and every cell
// lists the lights overlapping it. The grid and light list are rebuilt at most once per frame per
// camera configuration and cached for reuse.
package light_grid

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/buffer"
)

const (
	// aspectEpsilon is how far two aspect ratios may differ and still share a cached grid.
	aspectEpsilon = 1e-6
	// evictAfterFrames is how many frames an unused cached grid survives.
	evictAfterFrames = 3
	// gridEntrySize is the byte size of one grid entry.
	gridEntrySize = 2
)

// LightSource supplies the lights and shadow configuration the grid is built from.
type LightSource interface {
	// GlobalLights returns every light of the scene.
	GlobalLights() []light.Light

	// ShadowState returns the shadow node identity and the lights shaded through shadow maps.
	ShadowState() light.ShadowState
}

// cachedGrid is the grid built for one camera configuration.
type cachedGrid struct {
	camera      camera.Camera
	reflected   bool
	aspectRatio float32
	shadowNode  uint64

	lastFrame uint32
	built     bool // the last rebuild succeeded
	numLights int

	gridBuffer      buffer.Buffer
	lightListBuffer buffer.Buffer
}

type sortedLight struct {
	light    light.Light
	distance float32
}

// lightGrid is the implementation of the LightGrid interface.
type lightGrid struct {
	width            int
	height           int
	numSlices        int
	lightsPerCell    int
	minDistance      float32
	maxDistance      float32
	minLightCapacity int

	provider buffer.Provider
	source   LightSource

	grids   []*cachedGrid
	dropped int

	// scratch reused across rebuilds
	culled []light.Light
	sorted []sortedLight
	counts []uint16
}

// LightGrid clusters point and spot lights into view-space cells for forward shading.
//
// CollectLights must be called for a camera once per frame before its buffers are read.
// All methods must be called from the frame thread.
type LightGrid interface {
	// CollectLights builds or reuses the grid for cam for the current frame.
	//
	// Parameters:
	//   - cam: the camera rendering this frame
	//
	// Returns:
	//   - error: a wrapped buffer creation or mapping error
	CollectLights(cam camera.Camera) error

	// GridBuffer returns the 16-bit cell table of cam's grid. Each cell holds its light count in
	// slot 0 followed by up to LightsPerCell()-1 light list indices.
	// Panics if CollectLights was not called for cam this frame.
	GridBuffer(cam camera.Camera) buffer.Buffer

	// LightListBuffer returns the light records of cam's grid, nearest light first.
	// Panics if CollectLights was not called for cam this frame.
	LightListBuffer(cam camera.Camera) buffer.Buffer

	// NumLights returns how many lights cam's grid holds, or 0 if it is not current.
	NumLights(cam camera.Camera) int

	// CachedGridCount returns how many camera configurations are cached.
	CachedGridCount() int

	// DroppedLights returns how many cell insertions the last rebuild dropped because the cell was full.
	DroppedLights() int

	// Resolution returns the cell grid size of a slice.
	//
	// Parameters:
	//   - slice: the slice index
	//
	// Returns:
	//   - int: cells across
	//   - int: cells down
	Resolution(slice int) (int, int)

	// SliceOffset returns the first grid entry of a slice. SliceOffset(NumSlices()) is the total entry count.
	SliceOffset(slice int) int

	// SliceAtDepth maps a view-space z (negative in front of the camera) to its slice.
	SliceAtDepth(z float32) int

	// DepthAtSlice returns the view-space z where a slice starts.
	DepthAtSlice(slice int) float32

	// NumSlices returns the number of depth slices.
	NumSlices() int

	// LightsPerCell returns the number of entries per cell, count slot included.
	LightsPerCell() int

	// ShaderParams returns the constants a shader needs to locate its cell.
	ShaderParams() GPUForward3DParams

	// Destroy releases the buffers of every cached grid.
	//
	// Returns:
	//   - error: the joined provider errors
	Destroy() error
}

var _ LightGrid = &lightGrid{}

// NewLightGrid creates a light grid allocating its buffers through provider.
//
// Parameters:
//   - provider: creates the grid and light list buffers and supplies the frame counter
//   - source: the global light list and shadow state
//   - opts: variadic list of LightGridBuilderOption functions
//
// Returns:
//   - LightGrid: the grid
func NewLightGrid(provider buffer.Provider, source LightSource, opts ...LightGridBuilderOption) LightGrid {
	if provider == nil || source == nil {
		panic("light_grid: NewLightGrid requires a non-nil Provider and LightSource")
	}
	g := &lightGrid{
		width:            4,
		height:           4,
		numSlices:        5,
		lightsPerCell:    96,
		minDistance:      3,
		maxDistance:      200,
		minLightCapacity: 96,
		provider:         provider,
		source:           source,
	}
	for _, opt := range opts {
		opt(g)
	}

	switch {
	case g.width < 1 || g.height < 1:
		panic(fmt.Sprintf("light_grid: grid size %dx%d must be at least 1x1", g.width, g.height))
	case g.numSlices < 2:
		panic(fmt.Sprintf("light_grid: %d slices, need at least 2", g.numSlices))
	case g.lightsPerCell < 2:
		panic(fmt.Sprintf("light_grid: %d lights per cell, need at least 2", g.lightsPerCell))
	case g.minDistance < 0 || g.maxDistance <= g.minDistance:
		panic(fmt.Sprintf("light_grid: invalid distance range [%v, %v]", g.minDistance, g.maxDistance))
	case g.minLightCapacity < 1:
		panic("light_grid: minimum light capacity must be positive")
	}
	if total := g.SliceOffset(g.numSlices); total > math.MaxInt32 {
		panic(fmt.Sprintf("light_grid: %d grid entries do not fit a buffer", total))
	}
	return g
}

func (g *lightGrid) tableSize() int {
	return g.width * g.height * g.lightsPerCell
}

func (g *lightGrid) Resolution(slice int) (int, int) {
	return g.width << slice, g.height << slice
}

func (g *lightGrid) SliceOffset(slice int) int {
	// Slice i holds 4^i tables, so the slices before it hold (4^i - 1) / 3.
	return ((1<<(2*slice) - 1) / 3) * g.tableSize()
}

func (g *lightGrid) SliceAtDepth(z float32) int {
	// -minDistance is the view-space z of the first slice boundary.
	f := common.Saturate((-g.minDistance - z) / (g.maxDistance - g.minDistance))
	return int(math.Floor(float64(f * float32(g.numSlices-1))))
}

func (g *lightGrid) DepthAtSlice(slice int) float32 {
	return -(g.minDistance + float32(slice)/float32(g.numSlices-1)*(g.maxDistance-g.minDistance))
}

func (g *lightGrid) NumSlices() int {
	return g.numSlices
}

func (g *lightGrid) LightsPerCell() int {
	return g.lightsPerCell
}

func (g *lightGrid) ShaderParams() GPUForward3DParams {
	return GPUForward3DParams{
		Width:         uint32(g.width),
		Height:        uint32(g.height),
		NumSlices:     uint32(g.numSlices),
		LightsPerCell: uint32(g.lightsPerCell),
		MinDistance:   g.minDistance,
		InvDepthRange: 1 / (g.maxDistance - g.minDistance),
	}
}

// find returns the cached grid matching cam's current configuration, or nil.
func (g *lightGrid) find(cam camera.Camera, shadowNode uint64) *cachedGrid {
	for _, cg := range g.grids {
		if cg.camera == cam && cg.reflected == cam.Reflected() && cg.shadowNode == shadowNode &&
			abs32(cg.aspectRatio-cam.Aspect()) < aspectEpsilon {
			return cg
		}
	}
	return nil
}

// current returns cam's grid if it was validated this frame, or nil.
func (g *lightGrid) current(cam camera.Camera) *cachedGrid {
	cg := g.find(cam, g.source.ShadowState().NodeID)
	if cg == nil || !cg.built || cg.lastFrame != g.provider.FrameCount() {
		return nil
	}
	return cg
}

func (g *lightGrid) GridBuffer(cam camera.Camera) buffer.Buffer {
	cg := g.current(cam)
	if cg == nil {
		panic("light_grid: GridBuffer called without CollectLights for this camera this frame")
	}
	return cg.gridBuffer
}

func (g *lightGrid) LightListBuffer(cam camera.Camera) buffer.Buffer {
	cg := g.current(cam)
	if cg == nil {
		panic("light_grid: LightListBuffer called without CollectLights for this camera this frame")
	}
	return cg.lightListBuffer
}

func (g *lightGrid) NumLights(cam camera.Camera) int {
	if cg := g.current(cam); cg != nil {
		return cg.numLights
	}
	return 0
}

func (g *lightGrid) CachedGridCount() int {
	return len(g.grids)
}

func (g *lightGrid) DroppedLights() int {
	return g.dropped
}

func (g *lightGrid) CollectLights(cam camera.Camera) error {
	if cam == nil {
		panic("light_grid: CollectLights requires a non-nil Camera")
	}
	frame := g.provider.FrameCount()
	shadow := g.source.ShadowState()

	cg := g.find(cam, shadow.NodeID)
	if cg != nil && cg.built && cg.lastFrame == frame {
		return nil
	}
	if cg == nil {
		cg = &cachedGrid{
			camera:      cam,
			reflected:   cam.Reflected(),
			aspectRatio: cam.Aspect(),
			shadowNode:  shadow.NodeID,
		}
		g.grids = append(g.grids, cg)
	}

	g.cull(cam, shadow)
	err := g.rebuild(cg, cam)
	cg.built = err == nil
	if cg.built {
		cg.lastFrame = frame
	}
	g.evict(frame)
	return err
}

// cull collects the visible point and spot lights that are not shadow casters, nearest first.
func (g *lightGrid) cull(cam camera.Camera, shadow light.ShadowState) {
	restore := shadow.HideCasters()
	g.culled = light.CullLights(g.culled[:0], g.source.GlobalLights(), cam)
	restore()

	clear(g.sorted)
	g.sorted = g.sorted[:0]
	for _, l := range g.culled {
		g.sorted = append(g.sorted, sortedLight{light: l, distance: cam.DistanceTo(l.Position())})
	}
	clear(g.culled)
	slices.SortStableFunc(g.sorted, func(a, b sortedLight) int {
		switch {
		case a.distance < b.distance:
			return -1
		case a.distance > b.distance:
			return 1
		}
		return 0
	})
	if n := len(g.sorted); n >= math.MaxUint16 {
		common.Logger().Warn("light grid truncated light list", "lights", n, "kept", math.MaxUint16-1)
		g.sorted = g.sorted[:math.MaxUint16-1]
	}
}

// evict destroys the grids not validated during the last evictAfterFrames frames.
func (g *lightGrid) evict(frame uint32) {
	g.grids = slices.DeleteFunc(g.grids, func(cg *cachedGrid) bool {
		if cg.lastFrame+evictAfterFrames >= frame {
			return false
		}
		if err := g.destroyGrid(cg); err != nil {
			common.Logger().Warn("light grid eviction failed", "camera", cg.camera.Name(), "error", err)
		}
		common.Logger().Debug("light grid evicted", "camera", cg.camera.Name(), "last_frame", cg.lastFrame, "frame", frame)
		return true
	})
}

func (g *lightGrid) destroyGrid(cg *cachedGrid) error {
	var errs []error
	for _, b := range [2]buffer.Buffer{cg.gridBuffer, cg.lightListBuffer} {
		if b == nil {
			continue
		}
		if err := g.provider.DestroyBuffer(b); err != nil {
			errs = append(errs, err)
		}
	}
	cg.gridBuffer, cg.lightListBuffer = nil, nil
	cg.built = false
	return errors.Join(errs...)
}

func (g *lightGrid) Destroy() error {
	var errs []error
	for _, cg := range g.grids {
		if err := g.destroyGrid(cg); err != nil {
			errs = append(errs, err)
		}
	}
	g.grids = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("light_grid: %w", err)
	}
	return nil
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
