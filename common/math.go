package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// quatAngleAxis extracts angle (radians) and unit axis from a unit quaternion.
// Near-identity rotations return angle 0 about +X so callers always receive a
// valid axis for matrix construction.
func quatAngleAxis(q mgl64.Quat) (float64, mgl64.Vec3) {
	w := mgl64.Clamp(q.W, -1, 1)
	s := q.V.Len()
	if s < 1e-12 {
		return 0, mgl64.Vec3{1, 0, 0}
	}
	return 2 * math.Atan2(s, w), q.V.Mul(1 / s)
}

// PerpBasis completes a unit direction into two further unit vectors so that
// (x, dir, z) forms a right-handed orthonormal basis with dir as the middle
// (Y) column. The completion is deterministic: the reference vector is +Y,
// falling back to +Z when dir is nearly vertical.
func PerpBasis(dir mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	ref := mgl64.Vec3{0, 1, 0}
	if math.Abs(dir.Y()) > 0.9 {
		ref = mgl64.Vec3{0, 0, 1}
	}
	z := dir.Cross(ref).Normalize()
	x := dir.Cross(z)
	return x, z
}

// FrameBetween builds the synthetic alignment frame for a primitive described
// by two endpoints: the frame origin is the midpoint of p1 and p2 and the local
// +Y axis points from p1 to p2. The remaining basis vectors come from PerpBasis.
// The second return value is the distance |p2-p1|.
//
// Degenerate inputs (coincident endpoints) yield an identity rotation at the
// midpoint with length 0.
func FrameBetween(p1, p2 mgl64.Vec3) (Frame, float64) {
	d := p2.Sub(p1)
	length := d.Len()
	mid := p1.Add(p2).Mul(0.5)
	if length < 1e-12 {
		return Frame{Pos: mid, Rot: mgl64.QuatIdent()}, 0
	}
	y := d.Mul(1 / length)
	x, z := PerpBasis(y)
	rot := mgl64.Mat4ToQuat(mgl64.Mat4FromCols(
		x.Vec4(0),
		y.Vec4(0),
		z.Vec4(0),
		mgl64.Vec4{0, 0, 0, 1},
	)).Normalize()
	return Frame{Pos: mid, Rot: rot}, length
}
