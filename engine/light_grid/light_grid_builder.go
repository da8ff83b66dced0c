package light_grid

// LightGridBuilderOption is a functional option used to configure a LightGrid during construction.
type LightGridBuilderOption func(*lightGrid)

// WithGridSize sets the cell grid of the nearest slice. Each further slice doubles both sizes.
//
// Parameters:
//   - width: cells across
//   - height: cells down
//
// Returns:
//   - LightGridBuilderOption: a function that sets the grid size
func WithGridSize(width, height int) LightGridBuilderOption {
	return func(g *lightGrid) {
		g.width = width
		g.height = height
	}
}

// WithSlices sets the number of depth slices. At least 2 are required.
//
// Parameters:
//   - n: the slice count
//
// Returns:
//   - LightGridBuilderOption: a function that sets the slice count
func WithSlices(n int) LightGridBuilderOption {
	return func(g *lightGrid) {
		g.numSlices = n
	}
}

// WithLightsPerCell sets the entries per cell. One entry holds the count, so a cell lists at most n-1 lights.
//
// Parameters:
//   - n: entries per cell
//
// Returns:
//   - LightGridBuilderOption: a function that sets the cell capacity
func WithLightsPerCell(n int) LightGridBuilderOption {
	return func(g *lightGrid) {
		g.lightsPerCell = n
	}
}

// WithDistanceRange sets the camera distances spanned by the slices.
//
// Parameters:
//   - minDistance: distance where slicing starts
//   - maxDistance: distance of the last slice boundary
//
// Returns:
//   - LightGridBuilderOption: a function that sets the range
func WithDistanceRange(minDistance, maxDistance float32) LightGridBuilderOption {
	return func(g *lightGrid) {
		g.minDistance = minDistance
		g.maxDistance = maxDistance
	}
}

// WithMinLightCapacity sets how many light records the light list buffer holds at least.
func WithMinLightCapacity(n int) LightGridBuilderOption {
	return func(g *lightGrid) {
		g.minLightCapacity = n
	}
}
