package light

import (
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
)

// CullLights appends to dst every visible point or spot light whose range sphere intersects the camera frustum.
// Directional lights are never clustered and are skipped.
//
// Parameters:
//   - dst: slice to append survivors to (reused across frames)
//   - lights: candidate lights
//   - cam: the camera to cull against
//
// Returns:
//   - []Light: dst with the survivors appended in input order
func CullLights(dst []Light, lights []Light, cam camera.Camera) []Light {
	frustum := cam.Frustum()
	for _, l := range lights {
		if !l.Visible() || l.Type() == LightTypeDirectional {
			continue
		}
		if frustum.IntersectsSphere(l.Position(), l.Attenuation().Range) {
			dst = append(dst, l)
		}
	}
	return dst
}
