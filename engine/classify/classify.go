// package classify maps simulation shape descriptors onto the closed set of
// renderable primitive kinds plus the parameter record each kind needs
// downstream. Classification is pure: it never mutates the shape and never
// fails; shapes outside the known set come back as KindUnsupported and are
// skipped by callers.
package classify

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/davik-lab/specula/common"
	"github.com/davik-lab/specula/sim"
)

// Kind identifies one renderable primitive variant.
type Kind int

const (
	KindUnsupported Kind = iota
	KindBox
	KindDice // box whose diffuse texture is a cube texture; uses per-face UVs
	KindSphere
	KindEllipsoid
	KindCapsule
	KindBarrel // classified but not yet projected
	KindCone
	KindCylinder
	KindMeshMaterials // triangle mesh with per-face materials
	KindMeshColors    // triangle mesh with a flat or per-vertex color
	KindSurface
	KindExternalMesh
	KindLine
	KindPath
	KindSegment
	KindSpring
	KindParticle
	KindSymbol // auxiliary marker visuals (COG, reference-frame triads)
)

var kindNames = map[Kind]string{
	KindUnsupported:   "unsupported",
	KindBox:           "box",
	KindDice:          "dice",
	KindSphere:        "sphere",
	KindEllipsoid:     "ellipsoid",
	KindCapsule:       "capsule",
	KindBarrel:        "barrel",
	KindCone:          "cone",
	KindCylinder:      "cylinder",
	KindMeshMaterials: "mesh_materials",
	KindMeshColors:    "mesh_colors",
	KindSurface:       "surface",
	KindExternalMesh:  "external_mesh",
	KindLine:          "line",
	KindPath:          "path",
	KindSegment:       "segment",
	KindSpring:        "spring",
	KindParticle:      "particle",
	KindSymbol:        "symbol",
}

// String returns the lowercase primitive name used in export streams and logs.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unsupported"
}

// Projectable reports whether the kind produces a node when bound. Unsupported
// shapes and barrels do not (barrel classification exists so the variant is
// visible, but its projection is a documented no-op).
func (k Kind) Projectable() bool {
	return k != KindUnsupported && k != KindBarrel
}

// TwoPoint reports whether the kind's transform derives from an endpoint pair
// through a synthesized alignment frame.
func (k Kind) TwoPoint() bool {
	switch k {
	case KindCylinder, KindSegment, KindSpring:
		return true
	}
	return false
}

// Primitive is the classification result: one kind plus the parameter record
// the composer and emitters consume.
type Primitive struct {
	Kind Kind

	// Scale carries half-sizes or per-axis radii for scaled unit geometry;
	// common.UnitScale for geometry emitted at world size.
	Scale mgl64.Vec3

	// Radius and endpoints for two-point kinds (cylinder endpoints are in the
	// shape frame; segment/spring endpoints come from the owning link at
	// compose time).
	Radius float64
	P1, P2 mgl64.Vec3

	// MeshPath names external geometry for KindExternalMesh.
	MeshPath string

	// Points holds polyline vertices for KindLine/KindPath.
	Points []mgl64.Vec3

	// PerVertexColor marks KindMeshColors meshes carrying vertex colors rather
	// than a flat material color.
	PerVertexColor bool

	Wireframe bool

	// Materials is never empty for projectable kinds: shapes declaring none
	// receive the shared default material.
	Materials []*sim.Material
}

var defaultMaterial = sim.NewMaterial()

// DefaultMaterial returns the material substituted for shapes that declare
// none: white diffuse, dim ambient. The same instance is shared so all such
// shapes resolve to one cached resource.
func DefaultMaterial() *sim.Material { return defaultMaterial }

// Classify derives the primitive kind and parameter record for one shape
// instance. It is total: unknown shape types yield KindUnsupported.
func Classify(inst sim.ShapeInstance) Primitive {
	p := Primitive{Scale: common.UnitScale}
	p.Materials = inst.Shape.Materials()
	if len(p.Materials) == 0 {
		p.Materials = []*sim.Material{defaultMaterial}
	}

	switch s := inst.Shape.(type) {
	case *sim.Box:
		p.Kind = KindBox
		if strings.Contains(p.Materials[0].KdTexture, "cubetexture") {
			p.Kind = KindDice
		}
		p.Scale = s.Size
		p.Wireframe = s.Wireframe
	case *sim.Sphere:
		p.Kind = KindSphere
		p.Scale = mgl64.Vec3{s.Radius, s.Radius, s.Radius}
		p.Wireframe = s.Wireframe
	case *sim.Ellipsoid:
		p.Kind = KindEllipsoid
		p.Scale = s.Radii
		p.Wireframe = s.Wireframe
	case *sim.Capsule:
		p.Kind = KindCapsule
		p.Scale = mgl64.Vec3{s.Radius, s.HalfLen, s.Radius}
		p.Radius = s.Radius
		p.Wireframe = s.Wireframe
	case *sim.Barrel:
		p.Kind = KindBarrel
	case *sim.Cone:
		p.Kind = KindCone
		p.Scale = s.Radii
		p.Wireframe = s.Wireframe
	case *sim.Cylinder:
		p.Kind = KindCylinder
		p.Radius = s.Radius
		p.P1, p.P2 = s.P1, s.P2
		p.Wireframe = s.Wireframe
	case *sim.TriangleMesh:
		// Per-face materials and flat/per-vertex colors need structurally
		// different geometry encodings downstream, so they are distinct kinds.
		if len(s.FaceMaterials) > 0 {
			p.Kind = KindMeshMaterials
		} else {
			p.Kind = KindMeshColors
			p.PerVertexColor = len(s.Colors) > 0
		}
		if s.Scale != (mgl64.Vec3{}) {
			p.Scale = s.Scale
		}
		p.Wireframe = s.Wireframe
	case *sim.Surface:
		p.Kind = KindSurface
		p.Wireframe = s.Wireframe
	case *sim.MeshFile:
		p.Kind = KindExternalMesh
		p.MeshPath = s.Path
	case *sim.Line:
		p.Kind = KindLine
		p.Points = s.Points
	case *sim.Path:
		p.Kind = KindPath
		p.Points = s.Points
	case *sim.Segment:
		p.Kind = KindSegment
	case *sim.Spring:
		p.Kind = KindSpring
		p.Radius = s.Radius
	default:
		p.Kind = KindUnsupported
	}
	return p
}
