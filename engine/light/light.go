// Package light holds the light sources of a scene and keeps the lights core that shades the
// objects in their scope.
package light

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

// LightType identifies the kind of light source.
type LightType = gpu.LightType

const (
	// LightTypeAmbient lights every fragment uniformly. An ambient light also sets the clear
	// color of the display.
	LightTypeAmbient = gpu.LightAmbient

	// LightTypeDirectional has no position, only a direction, like the sun.
	LightTypeDirectional = gpu.LightDirectional

	// LightTypePoint emits in all directions from a position and fades out at its range.
	LightTypePoint = gpu.LightPoint

	// LightTypeSpot emits in a cone from a position along a direction.
	LightTypeSpot = gpu.LightSpot
)

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	mu *sync.Mutex

	lightType  LightType
	position   mgl32.Vec3
	direction  mgl32.Vec3
	color      mgl32.Vec3
	intensity  float32
	lightRange float32
	innerCone  float32 // radians
	outerCone  float32 // radians
	enabled    bool
	version    uint64
}

// Light defines a light source. Setters bump the light's version so the owning Set can tell
// when the lights core must be refreshed.
type Light interface {
	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type
	Type() LightType

	// Position returns the world-space position of the light.
	// Meaningless for ambient and directional lights.
	Position() mgl32.Vec3

	// Direction returns the normalized direction of the light.
	// Meaningless for ambient and point lights.
	Direction() mgl32.Vec3

	// Color returns the RGB color of the light.
	Color() mgl32.Vec3

	// Intensity returns the scalar intensity multiplier for the light.
	Intensity() float32

	// Range returns the distance at which point and spot lights fade to zero. Zero means
	// unbounded.
	Range() float32

	// Enabled returns whether this light is active for rendering.
	// Disabled lights are left out of the lights core.
	Enabled() bool

	// Version returns a counter bumped on every change.
	//
	// Returns:
	//   - uint64: the light version
	Version() uint64

	// Data returns the light in the form the device shades with.
	//
	// Returns:
	//   - gpu.LightData: the packed light
	Data() gpu.LightData

	// SetPosition sets the world-space position of the light.
	SetPosition(p mgl32.Vec3)

	// SetDirection sets the direction of the light and normalizes it.
	SetDirection(d mgl32.Vec3)

	// SetColor sets the RGB color of the light.
	SetColor(c mgl32.Vec3)

	// SetIntensity sets the scalar intensity multiplier.
	SetIntensity(intensity float32)

	// SetRange sets the attenuation distance.
	SetRange(lightRange float32)

	// SetSpotCone sets the inner and outer cone half-angles for spot lights.
	//
	// Parameters:
	//   - innerDeg: inner cone half-angle in degrees
	//   - outerDeg: outer cone half-angle in degrees
	SetSpotCone(innerDeg, outerDeg float32)

	// SetEnabled enables or disables the light.
	SetEnabled(enabled bool)
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the given type with white color, unit intensity and a
// downward direction.
//
// Parameters:
//   - lightType: the kind of light source
//   - opts: a variadic list of LightBuilderOption functions
//
// Returns:
//   - Light: the newly created light
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:        &sync.Mutex{},
		lightType: lightType,
		direction: mgl32.Vec3{0, -1, 0},
		color:     mgl32.Vec3{1, 1, 1},
		intensity: 1,
		innerCone: mgl32.DegToRad(20),
		outerCone: mgl32.DegToRad(30),
		enabled:   true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.position
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.direction
}

func (l *lightImpl) Color() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intensity
}

func (l *lightImpl) Range() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lightRange
}

func (l *lightImpl) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

func (l *lightImpl) Version() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

func (l *lightImpl) Data() gpu.LightData {
	l.mu.Lock()
	defer l.mu.Unlock()
	return gpu.LightData{
		Type:      l.lightType,
		Position:  l.position,
		Direction: l.direction,
		Color:     l.color,
		Intensity: l.intensity,
		Range:     l.lightRange,
		InnerCone: l.innerCone,
		OuterCone: l.outerCone,
	}
}

func (l *lightImpl) SetPosition(p mgl32.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.position = p
	l.version++
}

func (l *lightImpl) SetDirection(d mgl32.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.direction = normalize(d)
	l.version++
}

func (l *lightImpl) SetColor(c mgl32.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = c
	l.version++
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intensity = intensity
	l.version++
}

func (l *lightImpl) SetRange(lightRange float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lightRange = lightRange
	l.version++
}

func (l *lightImpl) SetSpotCone(innerDeg, outerDeg float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.innerCone = mgl32.DegToRad(innerDeg)
	l.outerCone = mgl32.DegToRad(outerDeg)
	l.version++
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
	l.version++
}

// normalize returns v scaled to unit length, or the zero vector.
func normalize(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() == 0 {
		return mgl32.Vec3{}
	}
	return v.Normalize()
}
