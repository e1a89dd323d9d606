// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Color is a plain RGB color with channels in [0, 1].
type Color struct {
	R float64 `toml:"r"`
	G float64 `toml:"g"`
	B float64 `toml:"b"`
}

// White is the default diffuse color applied to shapes that carry no material.
var White = Color{R: 1, G: 1, B: 1}

// Frame is a rigid reference frame: a translation plus a unit-quaternion rotation.
// Frames compose right-to-left, matching the parent∘child convention used when
// chaining a visual-model frame with a shape-local frame.
type Frame struct {
	Pos mgl64.Vec3
	Rot mgl64.Quat
}

// IdentityFrame returns the frame with zero translation and identity rotation.
func IdentityFrame() Frame {
	return Frame{Rot: mgl64.QuatIdent()}
}

// NewFrame creates a frame from a translation and rotation.
func NewFrame(pos mgl64.Vec3, rot mgl64.Quat) Frame {
	return Frame{Pos: pos, Rot: rot}
}

// Mul composes f with g, returning the frame equivalent to applying g first and
// then f (f ∘ g).
func (f Frame) Mul(g Frame) Frame {
	return Frame{
		Pos: f.Pos.Add(f.Rot.Rotate(g.Pos)),
		Rot: f.Rot.Mul(g.Rot).Normalize(),
	}
}

// TransformPoint maps a point expressed in f's local coordinates into the parent
// coordinates of f.
func (f Frame) TransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return f.Pos.Add(f.Rot.Rotate(p))
}

// AngleAxis decomposes the frame rotation into a rotation angle (radians) and a
// unit axis. The same convention is used at bind time and on every incremental
// update; an identity rotation yields angle 0 about the +X axis.
func (f Frame) AngleAxis() (float64, mgl64.Vec3) {
	return quatAngleAxis(f.Rot)
}

// Transform is a decomposed world transform for one projected node: translation,
// rotation as angle+axis, and an anisotropic scale whose components carry
// shape-specific radii and lengths.
type Transform struct {
	Pos      mgl64.Vec3
	RotAngle float64
	RotAxis  mgl64.Vec3
	Scale    mgl64.Vec3
}

// UnitScale is the scale vector for primitives whose geometry is emitted at world size.
var UnitScale = mgl64.Vec3{1, 1, 1}

// Mat4 builds the homogeneous matrix translate ∘ rotate ∘ scale for this transform.
func (t Transform) Mat4() mgl64.Mat4 {
	m := mgl64.Translate3D(t.Pos.X(), t.Pos.Y(), t.Pos.Z())
	m = m.Mul4(mgl64.HomogRotate3D(t.RotAngle, t.RotAxis))
	return m.Mul4(mgl64.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}
