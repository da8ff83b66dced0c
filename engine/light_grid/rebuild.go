package light_grid

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/buffer"
	"github.com/go-gl/mathgl/mgl32"
)

// rebuild writes the sorted lights and the cell table of cg.
func (g *lightGrid) rebuild(cg *cachedGrid, cam camera.Camera) error {
	numLights := len(g.sorted)
	cg.numLights = numLights
	if err := g.ensureBuffers(cg, numLights); err != nil {
		return err
	}

	view := cam.ViewMatrix()
	proj := cam.ProjectionMatrix()

	if numLights > 0 {
		dst, err := cg.lightListBuffer.Map(0, numLights*light.GPUForwardLightSize)
		if err != nil {
			return fmt.Errorf("light_grid: map light list: %w", err)
		}
		for i, sl := range g.sorted {
			rec := light.NewGPUForwardLight(sl.light, view)
			rec.MarshalInto(dst[i*light.GPUForwardLightSize:])
		}
		if err := cg.lightListBuffer.Unmap(buffer.UnmapAll); err != nil {
			return fmt.Errorf("light_grid: unmap light list: %w", err)
		}
	}

	total := g.SliceOffset(g.numSlices)
	numCells := total / g.lightsPerCell
	if cap(g.counts) < numCells {
		g.counts = make([]uint16, numCells)
	}
	g.counts = g.counts[:numCells]
	clear(g.counts)

	grid, err := cg.gridBuffer.Map(0, total*gridEntrySize)
	if err != nil {
		return fmt.Errorf("light_grid: map grid: %w", err)
	}
	clear(grid)

	dropped := 0
	near, far := cam.Near(), cam.Far()
	for i, sl := range g.sorted {
		minV, maxV, ok := viewBounds(sl.light, view, near, far)
		if !ok {
			continue
		}
		dropped += g.insert(grid, uint16(i), minV, maxV, proj)
	}

	for c, n := range g.counts {
		binary.LittleEndian.PutUint16(grid[c*g.lightsPerCell*gridEntrySize:], n)
	}
	if err := cg.gridBuffer.Unmap(buffer.UnmapAll); err != nil {
		return fmt.Errorf("light_grid: unmap grid: %w", err)
	}

	g.dropped = dropped
	if dropped > 0 {
		common.Logger().Warn("light grid cells full, lights dropped", "camera", cam.Name(), "dropped", dropped, "lights_per_cell", g.lightsPerCell)
	}
	common.Logger().Debug("light grid rebuilt", "camera", cam.Name(), "lights", numLights, "slices", g.numSlices, "entries", total)
	return nil
}

// ensureBuffers creates the grid buffer once and grows the light list to fit numLights.
func (g *lightGrid) ensureBuffers(cg *cachedGrid, numLights int) error {
	if cg.gridBuffer == nil {
		b, err := g.provider.CreateTexBuffer(g.SliceOffset(g.numSlices)*gridEntrySize, buffer.UsageDynamic)
		if err != nil {
			return fmt.Errorf("light_grid: create grid buffer: %w", err)
		}
		cg.gridBuffer = b
	}

	need := max(numLights, g.minLightCapacity) * light.GPUForwardLightSize
	if cg.lightListBuffer != nil && cg.lightListBuffer.Size() >= need {
		return nil
	}
	if cg.lightListBuffer != nil {
		if err := g.provider.DestroyBuffer(cg.lightListBuffer); err != nil {
			return fmt.Errorf("light_grid: release light list: %w", err)
		}
		cg.lightListBuffer = nil
	}
	b, err := g.provider.CreateTexBuffer(need, buffer.UsageDynamic)
	if err != nil {
		return fmt.Errorf("light_grid: create light list buffer: %w", err)
	}
	cg.lightListBuffer = b
	common.Logger().Debug("light list buffer allocated", "camera", cg.camera.Name(), "bytes", need)
	return nil
}

// viewBounds returns the view-space box of l with z clamped to [-far, -near].
// ok is false when nothing of the box lies between the planes.
func viewBounds(l light.Light, view mgl32.Mat4, near, far float32) (mgl32.Vec3, mgl32.Vec3, bool) {
	r := l.Attenuation().Range
	center := common.TransformPoint(view, l.Position())
	extent := mgl32.Vec3{r, r, r}
	minV, maxV := center.Sub(extent), center.Add(extent)

	if l.Type() == light.LightTypeSpot {
		cone := spotBounds(l).Transform(view)
		cMin, cMax := cone.Min(), cone.Max()
		for i := range 3 {
			minV[i] = max(minV[i], cMin[i])
			maxV[i] = min(maxV[i], cMax[i])
		}
	}

	maxV[2] = min(maxV[2], -near)
	minV[2] = max(minV[2], -far)
	if minV[2] > maxV[2] || minV[0] > maxV[0] || minV[1] > maxV[1] {
		return minV, maxV, false
	}
	return minV, maxV, true
}

// spotBounds returns the world-space box of a spot light's cone, cut off at its range.
// The cone is bounded by its apex and the discs at r*cos(a) and r along the axis.
func spotBounds(l light.Light) common.AABB {
	r := l.Attenuation().Range
	apex := l.Position()
	half := float64(l.SpotOuterAngle()) * 0.5
	if half >= math.Pi/2 {
		return common.AABB{Center: apex, HalfSize: mgl32.Vec3{r, r, r}}
	}
	dir := l.Direction().Normalize()
	radius := r * float32(math.Sin(half))

	var discExtent mgl32.Vec3
	for i := range 3 {
		discExtent[i] = radius * float32(math.Sqrt(math.Max(0, 1-float64(dir[i]*dir[i]))))
	}
	box := common.AABB{Center: apex}
	for _, dist := range [2]float32{r * float32(math.Cos(half)), r} {
		c := apex.Add(dir.Mul(dist))
		box = box.Merge(common.AABB{Center: c, HalfSize: discExtent})
	}
	return box
}

// insert adds light index idx to every cell its view box overlaps and returns how many cells were full.
func (g *lightGrid) insert(grid []byte, idx uint16, minV, maxV mgl32.Vec3, proj mgl32.Mat4) int {
	dropped := 0
	first := g.SliceAtDepth(maxV[2])
	last := g.SliceAtDepth(minV[2])
	for s := first; s <= last; s++ {
		zNear, zFar := maxV[2], minV[2]
		if s > 0 {
			zNear = min(zNear, g.DepthAtSlice(s))
		}
		if s < g.numSlices-1 {
			zFar = max(zFar, g.DepthAtSlice(s+1))
		}
		if zNear < zFar {
			continue
		}

		resX, resY := g.Resolution(s)
		x0, y0, x1, y1, ok := cellRect(minV, maxV, zNear, zFar, proj, resX, resY)
		if !ok {
			continue
		}
		sliceBase := g.SliceOffset(s) / g.lightsPerCell
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				cell := sliceBase + y*resX + x
				n := g.counts[cell]
				if int(n) >= g.lightsPerCell-1 {
					dropped++
					continue
				}
				n++
				g.counts[cell] = n
				at := (cell*g.lightsPerCell + int(n)) * gridEntrySize
				binary.LittleEndian.PutUint16(grid[at:], idx)
			}
		}
	}
	return dropped
}

// cellRect projects the part of the box between zNear and zFar and returns the covered cells
// [x0, x1) x [y0, y1) of a resX x resY grid. Cell rows run top to bottom.
func cellRect(minV, maxV mgl32.Vec3, zNear, zFar float32, proj mgl32.Mat4, resX, resY int) (int, int, int, int, bool) {
	minU, minW := float32(math.MaxFloat32), float32(math.MaxFloat32)
	maxU, maxW := float32(-math.MaxFloat32), float32(-math.MaxFloat32)
	for _, z := range [2]float32{zNear, zFar} {
		for _, x := range [2]float32{minV[0], maxV[0]} {
			for _, y := range [2]float32{minV[1], maxV[1]} {
				clip := proj.Mul4x1(mgl32.Vec4{x, y, z, 1})
				if clip[3] <= 0 {
					continue
				}
				u := clip[0]/clip[3]*0.5 + 0.5
				w := 0.5 - clip[1]/clip[3]*0.5
				minU, maxU = min(minU, u), max(maxU, u)
				minW, maxW = min(minW, w), max(maxW, w)
			}
		}
	}
	if maxU < 0 || minU > 1 || maxW < 0 || minW > 1 {
		return 0, 0, 0, 0, false
	}

	x0, x1 := cellSpan(minU, maxU, resX)
	y0, y1 := cellSpan(minW, maxW, resY)
	return x0, y0, x1, y1, true
}

// cellSpan converts a [0, 1] range into the cells [first, last) it touches, at least one.
func cellSpan(lo, hi float32, res int) (int, int) {
	first := int(math.Floor(float64(common.Saturate(lo) * float32(res))))
	last := int(math.Ceil(float64(common.Saturate(hi) * float32(res))))
	first = common.Clamp(first, 0, res-1)
	last = common.Clamp(last, first+1, res)
	return first, last
}
