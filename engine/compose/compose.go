// package compose turns reference-frame chains into the decomposed world
// transforms pushed to emitters. Both entry points are pure functions; they are
// the only code re-run on the per-frame update path, so the angle-axis
// convention they use must match between bind and update; both go through
// common.Frame.AngleAxis.
package compose

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/davik-lab/specula/common"
	"github.com/davik-lab/specula/engine/classify"
)

// World composes parent ∘ local and decomposes the result together with the
// primitive's scale vector.
func World(parent, local common.Frame, scale mgl64.Vec3) common.Transform {
	f := parent.Mul(local)
	angle, axis := f.AngleAxis()
	return common.Transform{Pos: f.Pos, RotAngle: angle, RotAxis: axis, Scale: scale}
}

// AxisAligned composes parent ∘ local ∘ alignment for a primitive described by
// an endpoint pair in the local shape frame: the alignment frame maps the
// canonical +Y geometry axis onto p2-p1 with its origin at the midpoint. The
// returned transform scales to (radius, length, radius); the second return
// value is the endpoint distance.
func AxisAligned(parent, local common.Frame, p1, p2 mgl64.Vec3, radius float64) (common.Transform, float64) {
	align, length := common.FrameBetween(p1, p2)
	f := parent.Mul(local).Mul(align)
	angle, axis := f.AngleAxis()
	return common.Transform{
		Pos:      f.Pos,
		RotAngle: angle,
		RotAxis:  axis,
		Scale:    mgl64.Vec3{radius, length, radius},
	}, length
}

// Between is AxisAligned for absolute endpoint pairs (link springs and
// segments): no parent or shape frame applies, only the synthesized alignment
// frame.
func Between(p1, p2 mgl64.Vec3, radius float64) (common.Transform, float64) {
	return AxisAligned(common.IdentityFrame(), common.IdentityFrame(), p1, p2, radius)
}

// ForPrimitive composes the transform for a bound primitive using the current
// parent and shape-local frames. Two-point kinds route through the alignment
// construction; everything else is a straight frame composition with the
// primitive's scale.
func ForPrimitive(p classify.Primitive, parent, local common.Frame) common.Transform {
	if p.Kind == classify.KindCylinder {
		t, _ := AxisAligned(parent, local, p.P1, p.P2, p.Radius)
		return t
	}
	return World(parent, local, p.Scale)
}
