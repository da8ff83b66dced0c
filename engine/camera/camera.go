package camera

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/go-gl/mathgl/mgl32"
)

// cameraCount is an atomic counter used to hand out unique camera ids.
var cameraCount atomic.Uint64

type cameraImpl struct {
	mu *sync.Mutex

	id   uint64
	name string

	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32

	reflected       bool
	reflectionPlane common.Plane

	viewMatrix              mgl32.Mat4
	projectionMatrix        mgl32.Mat4
	viewProjectionMatrix    mgl32.Mat4
	inverseProjectionMatrix mgl32.Mat4
	frustum                 common.Frustum
}

// Camera defines the interface for the camera system.
// The camera holds perspective settings, a look-at placement and an optional reflection plane,
// and keeps its view/projection matrices and world-space frustum up to date on every change.
type Camera interface {
	// ID returns the unique id assigned at construction.
	//
	// Returns:
	//   - uint64: the camera id
	ID() uint64

	// Name returns the camera's debug name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position
	Position() mgl32.Vec3

	// Target returns the world-space point the camera looks at.
	//
	// Returns:
	//   - mgl32.Vec3: the look-at target
	Target() mgl32.Vec3

	// Up returns the camera's up vector.
	//
	// Returns:
	//   - mgl32.Vec3: up vector
	Up() mgl32.Vec3

	// Fov returns the field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// Reflected reports whether the camera currently renders through a reflection plane.
	//
	// Returns:
	//   - bool: true when a reflection plane is active
	Reflected() bool

	// ViewMatrix returns the current view matrix, including the reflection when enabled.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the current projection matrix (WebGPU [0, 1] depth range).
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns the current combined projection * view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the combined view-projection matrix
	ViewProjectionMatrix() mgl32.Mat4

	// InverseProjectionMatrix returns the inverse of the current projection matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the inverse projection matrix
	InverseProjectionMatrix() mgl32.Mat4

	// Frustum returns the world-space view frustum.
	//
	// Returns:
	//   - common.Frustum: the frustum planes
	Frustum() common.Frustum

	// IsVisibleAABB reports whether a world-space box intersects the frustum.
	//
	// Parameters:
	//   - box: world-space bounds
	//
	// Returns:
	//   - bool: true if any part of the box may be visible
	IsVisibleAABB(box common.AABB) bool

	// IsVisibleSphere reports whether a world-space sphere intersects the frustum.
	//
	// Parameters:
	//   - center: sphere center
	//   - radius: sphere radius
	//
	// Returns:
	//   - bool: true if any part of the sphere may be visible
	IsVisibleSphere(center mgl32.Vec3, radius float32) bool

	// DistanceTo returns the distance from the camera position to p.
	//
	// Parameters:
	//   - p: world-space point
	//
	// Returns:
	//   - float32: the euclidean distance
	DistanceTo(p mgl32.Vec3) float32

	// SetPosition moves the camera and recomputes matrices.
	//
	// Parameters:
	//   - p: the new eye position
	SetPosition(p mgl32.Vec3)

	// LookAt points the camera at target and recomputes matrices.
	//
	// Parameters:
	//   - target: the world-space point to look at
	LookAt(target mgl32.Vec3)

	// SetUp sets the camera's up vector.
	//
	// Parameters:
	//   - up: up vector
	SetUp(up mgl32.Vec3)

	// SetFov sets the field of view in radians and recomputes matrices.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance and recomputes matrices.
	//
	// Parameters:
	//   - near: near plane distance
	SetNear(near float32)

	// SetFar sets the far clipping plane distance and recomputes matrices.
	//
	// Parameters:
	//   - far: far plane distance
	SetFar(far float32)

	// EnableReflection mirrors the view through a world-space plane.
	//
	// Parameters:
	//   - plane: the mirror plane
	EnableReflection(plane common.Plane)

	// DisableReflection removes the mirror plane.
	DisableReflection()
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera at the origin looking down -Z with default perspective settings.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		id:     cameraCount.Add(1),
		target: mgl32.Vec3{0, 0, -1},
		up:     mgl32.Vec3{0, 1, 0},
		fov:    45.0 * (math.Pi / 180.0), // radians
		aspect: 1.0,
		near:   0.1,
		far:    100.0,
	}
	for _, option := range options {
		option(c)
	}
	if c.near <= 0 || c.far <= c.near {
		panic("camera: NewCamera requires 0 < near < far")
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) ID() uint64 {
	return c.id
}

func (c *cameraImpl) Name() string {
	return c.name
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Reflected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reflected
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) InverseProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseProjectionMatrix
}

func (c *cameraImpl) Frustum() common.Frustum {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frustum
}

func (c *cameraImpl) IsVisibleAABB(box common.AABB) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frustum.IntersectsAABB(box)
}

func (c *cameraImpl) IsVisibleSphere(center mgl32.Vec3, radius float32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frustum.IntersectsSphere(center, radius)
}

func (c *cameraImpl) DistanceTo(p mgl32.Vec3) float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return p.Sub(c.position).Len()
}

func (c *cameraImpl) SetPosition(p mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = p
	c.updateMatrices()
}

func (c *cameraImpl) LookAt(target mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = target
	c.updateMatrices()
}

func (c *cameraImpl) SetUp(up mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = up
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) EnableReflection(plane common.Plane) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reflected = true
	c.reflectionPlane = plane
	c.updateMatrices()
}

func (c *cameraImpl) DisableReflection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reflected = false
	c.updateMatrices()
}

// updateMatrices recalculates the view, projection, view-projection and inverse projection matrices
// and re-extracts the world-space frustum. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	c.viewMatrix = mgl32.LookAtV(c.position, c.target, c.up)
	if c.reflected {
		c.viewMatrix = c.viewMatrix.Mul4(reflectionMatrix(c.reflectionPlane))
	}

	c.projectionMatrix = perspective(c.fov, c.aspect, c.near, c.far)
	c.viewProjectionMatrix = c.projectionMatrix.Mul4(c.viewMatrix)
	c.inverseProjectionMatrix = c.projectionMatrix.Inv()
	c.frustum = common.ExtractFrustumFromMatrix(c.viewProjectionMatrix)
}

// perspective builds a right-handed projection mapping view depth to the WebGPU [0, 1] clip range.
func perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))
	var m mgl32.Mat4
	m[0] = f / aspect
	m[5] = f
	m[10] = far / (near - far)
	m[11] = -1.0
	m[14] = (near * far) / (near - far)
	return m
}

// reflectionMatrix mirrors points through plane: p' = p - 2 (n.p + d) n.
func reflectionMatrix(plane common.Plane) mgl32.Mat4 {
	n := plane.Normal.Normalize()
	d := plane.Distance
	return mgl32.Mat4{
		1 - 2*n[0]*n[0], -2 * n[1] * n[0], -2 * n[2] * n[0], 0,
		-2 * n[0] * n[1], 1 - 2*n[1]*n[1], -2 * n[2] * n[1], 0,
		-2 * n[0] * n[2], -2 * n[1] * n[2], 1 - 2*n[2]*n[2], 0,
		-2 * d * n[0], -2 * d * n[1], -2 * d * n[2], 1,
	}
}
