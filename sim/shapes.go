package sim

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/davik-lab/specula/common"
)

// Shape is one geometric descriptor exposed by a visual model. The concrete set
// of shapes is closed; the classifier dispatches exhaustively over it and maps
// anything else to an unsupported result.
type Shape interface {
	// Materials returns the shape's material list, possibly empty.
	//
	// Returns:
	//   - []*Material: shared material references
	Materials() []*Material

	// Visible reports whether the shape should be projected at all.
	//
	// Returns:
	//   - bool: false to exclude the shape from binding
	Visible() bool
}

// ShapeAttrs carries the attributes every shape shares. Embed it in a concrete
// shape struct; the zero value is a visible shape with no materials.
type ShapeAttrs struct {
	Mats      []*Material
	Hidden    bool
	Wireframe bool
}

func (a *ShapeAttrs) Materials() []*Material { return a.Mats }
func (a *ShapeAttrs) Visible() bool          { return !a.Hidden }

// AddMaterial appends a shared material reference.
func (a *ShapeAttrs) AddMaterial(m *Material) { a.Mats = append(a.Mats, m) }

// Box is an axis-aligned box of the given full extents in the shape frame.
type Box struct {
	ShapeAttrs
	Size mgl64.Vec3
}

// Sphere is a sphere of the given radius centered on the shape frame origin.
type Sphere struct {
	ShapeAttrs
	Radius float64
}

// Ellipsoid is an axis-aligned ellipsoid with per-axis radii.
type Ellipsoid struct {
	ShapeAttrs
	Radii mgl64.Vec3
}

// Capsule is a capsule oriented along the shape frame's Y axis.
type Capsule struct {
	ShapeAttrs
	Radius  float64
	HalfLen float64
}

// Barrel is a lathed barrel profile. It classifies but has no projection yet;
// the synchronizer skips it.
type Barrel struct {
	ShapeAttrs
	HorizRadius  float64
	VertRadius   float64
	OffsetRadius float64
	YLow, YHigh  float64
}

// Cone is an axis-aligned cone with per-axis radii (X/Z base radii, Y height).
type Cone struct {
	ShapeAttrs
	Radii mgl64.Vec3
}

// Cylinder is a cylinder described by two endpoints in the shape frame plus a
// radius. The canonical render geometry is Y-axis aligned, so projection
// synthesizes an alignment frame from the endpoints.
type Cylinder struct {
	ShapeAttrs
	Radius float64
	P1, P2 mgl64.Vec3
}

// TriangleMesh is an indexed triangle mesh. When FaceMaterials is non-empty the
// mesh uses per-face material indices into Mats; otherwise Colors (per-vertex,
// optional) or the flat material color apply.
type TriangleMesh struct {
	ShapeAttrs
	Vertices      []mgl64.Vec3
	Normals       []mgl64.Vec3
	Faces         [][3]int
	FaceMaterials []int
	Colors        []common.Color
	Scale         mgl64.Vec3
}

// Surface is a parametric surface sampled into a renderable patch grid.
type Surface struct {
	ShapeAttrs
	ResolutionU int
	ResolutionV int
}

// MeshFile references external mesh geometry by file path. Loading and decoding
// happen asynchronously through the loader; the path doubles as the cache key.
type MeshFile struct {
	ShapeAttrs
	Path string
}

// Line is an open polyline in the shape frame.
type Line struct {
	ShapeAttrs
	Points []mgl64.Vec3
}

// Path is a closed sequence of line segments in the shape frame.
type Path struct {
	ShapeAttrs
	Points []mgl64.Vec3
}

// Segment is a single unit segment stretched between a link's two absolute
// endpoints at projection time; it carries no geometry of its own.
type Segment struct {
	ShapeAttrs
}

// Spring is a helical spring drawn between a link's two absolute endpoints.
type Spring struct {
	ShapeAttrs
	Radius     float64
	Turns      int
	Resolution int
}
