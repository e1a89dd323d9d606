package common

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

const tol = 1e-9

func assertVec3(t *testing.T, want, got mgl64.Vec3) {
	t.Helper()
	assert.InDelta(t, want.X(), got.X(), tol)
	assert.InDelta(t, want.Y(), got.Y(), tol)
	assert.InDelta(t, want.Z(), got.Z(), tol)
}

func TestFrameMulComposesRightToLeft(t *testing.T) {
	parent := NewFrame(mgl64.Vec3{1, 0, 0}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}))
	child := NewFrame(mgl64.Vec3{1, 0, 0}, mgl64.QuatIdent())

	f := parent.Mul(child)
	// child origin sits one unit along the parent's rotated X, which is world +Y
	assertVec3(t, mgl64.Vec3{1, 1, 0}, f.Pos)

	// a point one unit along child X ends up two units along world Y
	assertVec3(t, mgl64.Vec3{1, 2, 0}, f.TransformPoint(mgl64.Vec3{1, 0, 0}))
}

func TestAngleAxisIdentity(t *testing.T) {
	angle, axis := IdentityFrame().AngleAxis()
	assert.Zero(t, angle)
	assertVec3(t, mgl64.Vec3{1, 0, 0}, axis)
}

func TestAngleAxisRoundTrip(t *testing.T) {
	want := math.Pi / 3
	f := NewFrame(mgl64.Vec3{}, mgl64.QuatRotate(want, mgl64.Vec3{0, 0, 1}))
	angle, axis := f.AngleAxis()
	assert.InDelta(t, want, angle, tol)
	assertVec3(t, mgl64.Vec3{0, 0, 1}, axis)
}

func TestPerpBasisOrthonormal(t *testing.T) {
	dirs := []mgl64.Vec3{
		{1, 0, 0},
		{0, 1, 0}, // vertical, reference fallback path
		{0, 0, 1},
		mgl64.Vec3{1, 1, 1}.Normalize(),
	}
	for _, dir := range dirs {
		x, z := PerpBasis(dir)
		assert.InDelta(t, 1, x.Len(), tol)
		assert.InDelta(t, 1, z.Len(), tol)
		assert.InDelta(t, 0, x.Dot(dir), tol)
		assert.InDelta(t, 0, z.Dot(dir), tol)
		assert.InDelta(t, 0, x.Dot(z), tol)
		// right-handed with dir as the middle column
		assertVec3(t, z, x.Cross(dir))
	}
}

func TestFrameBetween(t *testing.T) {
	f, length := FrameBetween(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 0, 0})
	assert.InDelta(t, 2, length, tol)
	assertVec3(t, mgl64.Vec3{1, 0, 0}, f.Pos)
	// local +Y maps onto the endpoint direction
	assertVec3(t, mgl64.Vec3{2, 0, 0}, f.TransformPoint(mgl64.Vec3{0, 1, 0}))
}

func TestFrameBetweenVertical(t *testing.T) {
	f, length := FrameBetween(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 2, 0})
	assert.InDelta(t, 2, length, tol)
	assertVec3(t, mgl64.Vec3{0, 1, 0}, f.Pos)
	assertVec3(t, mgl64.Vec3{0, 2, 0}, f.TransformPoint(mgl64.Vec3{0, 1, 0}))
}

func TestFrameBetweenDegenerate(t *testing.T) {
	p := mgl64.Vec3{3, 4, 5}
	f, length := FrameBetween(p, p)
	assert.Zero(t, length)
	assertVec3(t, p, f.Pos)
	angle, _ := f.AngleAxis()
	assert.Zero(t, angle)
}

func TestTransformMat4Order(t *testing.T) {
	tr := Transform{
		Pos:      mgl64.Vec3{1, 2, 3},
		RotAngle: math.Pi / 2,
		RotAxis:  mgl64.Vec3{0, 0, 1},
		Scale:    mgl64.Vec3{2, 2, 2},
	}
	// scale then rotate then translate: (1,0,0) -> (2,0,0) -> (0,2,0) -> (1,4,3)
	got := mgl64.TransformCoordinate(mgl64.Vec3{1, 0, 0}, tr.Mat4())
	assertVec3(t, mgl64.Vec3{1, 4, 3}, got)
}
