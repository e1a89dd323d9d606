package sim

import (
	"github.com/davik-lab/specula/common"
)

// ShapeInstance pairs a shape descriptor with its frame relative to the owning
// visual model. The shape identity is immutable for the entity's lifetime; the
// frame and any data-driven shape attributes may change every step.
type ShapeInstance struct {
	Shape Shape
	Frame common.Frame
}

// VisualModel is the ordered collection of shape instances (and camera
// declarations) an entity exposes for rendering.
type VisualModel struct {
	shapes  []ShapeInstance
	cameras []*Camera
}

// NewVisualModel creates an empty visual model.
func NewVisualModel() *VisualModel {
	return &VisualModel{}
}

// AddShape appends a shape with its model-relative frame; order is preserved.
func (m *VisualModel) AddShape(s Shape, frame common.Frame) {
	m.shapes = append(m.shapes, ShapeInstance{Shape: s, Frame: frame})
}

// AddCamera appends a camera declaration.
func (m *VisualModel) AddCamera(c *Camera) {
	m.cameras = append(m.cameras, c)
}

// Shapes returns the ordered shape instances; callers must not mutate the slice.
func (m *VisualModel) Shapes() []ShapeInstance { return m.shapes }

// Cameras returns the camera declarations.
func (m *VisualModel) Cameras() []*Camera { return m.cameras }
