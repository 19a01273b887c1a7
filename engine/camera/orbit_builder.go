package camera

import "github.com/go-gl/mathgl/mgl32"

type OrbitControllerOption func(*orbitController)

// WithRadius sets the initial distance from the target.
//
// Parameters:
//   - radius: the orbit radius
//
// Returns:
//   - OrbitControllerOption: a function that sets the radius
func WithRadius(radius float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.radius = radius
	}
}

// WithAngles sets the initial azimuth and elevation in radians.
//
// Parameters:
//   - azimuth: the horizontal angle
//   - elevation: the vertical angle
//
// Returns:
//   - OrbitControllerOption: a function that sets the angles
func WithAngles(azimuth, elevation float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.azimuth, oc.elevation = azimuth, elevation
	}
}

// WithTarget sets the pivot.
//
// Parameters:
//   - target: the look-at point
//
// Returns:
//   - OrbitControllerOption: a function that sets the target
func WithTarget(target mgl32.Vec3) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.target = target
	}
}

// WithRadiusBounds limits the zoom range.
//
// Parameters:
//   - min, max: the radius bounds
//
// Returns:
//   - OrbitControllerOption: a function that sets the bounds
func WithRadiusBounds(min, max float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.minRadius, oc.maxRadius = min, max
	}
}

// WithSpeeds sets the orbit step, mouse sensitivity and zoom step.
//
// Parameters:
//   - orbit: radians per Orbit step
//   - mouse: radians per dragged pixel
//   - zoom: world units per Zoom step
//
// Returns:
//   - OrbitControllerOption: a function that sets the speeds
func WithSpeeds(orbit, mouse, zoom float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.orbitSpeed, oc.mouseSensitivity, oc.zoomSpeed = orbit, mouse, zoom
	}
}
