package sim

import (
	"github.com/davik-lab/specula/common"
)

// Material describes the surface appearance of a shape. Materials are shared by
// reference: two shapes pointing at the same *Material resolve to the same
// cached render resource, while equal-valued but distinct materials do not.
type Material struct {
	key uint64

	Name     string
	Diffuse  common.Color
	Ambient  common.Color
	Specular common.Color
	Emissive common.Color

	Metallic  float64
	Roughness float64
	Opacity   float64

	// Texture file references; empty when unset.
	KdTexture     string
	NormalTexture string
}

// NewMaterial creates a material with the default white diffuse / dim ambient
// appearance applied to shapes that declare no material of their own.
func NewMaterial() *Material {
	return &Material{
		key:       NextKey(),
		Diffuse:   common.White,
		Ambient:   common.Color{R: 0.1, G: 0.1, B: 0.1},
		Roughness: 0.5,
		Opacity:   1,
	}
}

// Key returns the material's stable identity key.
func (m *Material) Key() uint64 { return m.key }

// Camera is a camera declaration attached to a visual model, exported to the
// offline back-end's asset stream.
type Camera struct {
	key uint64

	Location     [3]float64
	Aim          [3]float64
	Up           [3]float64
	AngleDeg     float64
	Orthographic bool
}

// NewCamera creates a camera declaration with a 50 degree field of view.
func NewCamera() *Camera {
	return &Camera{key: NextKey(), Up: [3]float64{0, 1, 0}, AngleDeg: 50}
}

// Key returns the camera's stable identity key.
func (c *Camera) Key() uint64 { return c.key }
