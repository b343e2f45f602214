package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestNewPoseFromMatrix(t *testing.T) {
	_, err := NewPoseFromMatrix([]float64{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)

	vals := []float64{
		1, 0, 0, 4,
		0, 1, 0, 5,
		0, 0, 1, 6,
		0, 0, 0, 1,
	}
	p, err := NewPoseFromMatrix(vals)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Point(), test.ShouldResemble, r3.Vector{X: 4, Y: 5, Z: 6})
	test.That(t, p.Matrix(), test.ShouldResemble, vals)
}

func TestEulerAngles(t *testing.T) {
	// yaw of pi/2 maps +x onto +y
	p := NewPoseFromEulerAngles(r3.Vector{}, 0, 0, math.Pi/2)
	got := p.TransformPoint(r3.Vector{X: 1})
	test.That(t, got.X, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, got.Y, test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, got.Z, test.ShouldAlmostEqual, 0, 1e-12)

	// roll of pi/2 maps +y onto +z
	p = NewPoseFromEulerAngles(r3.Vector{}, math.Pi/2, 0, 0)
	got = p.TransformPoint(r3.Vector{Y: 1})
	test.That(t, got.Y, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, got.Z, test.ShouldAlmostEqual, 1, 1e-12)

	// static XYZ order: R = Rz * Ry * Rx
	roll, pitch, yaw := 0.3, -0.8, 1.7
	rx := NewPoseFromEulerAngles(r3.Vector{}, roll, 0, 0)
	ry := NewPoseFromEulerAngles(r3.Vector{}, 0, pitch, 0)
	rz := NewPoseFromEulerAngles(r3.Vector{}, 0, 0, yaw)
	composed := Compose(rz, Compose(ry, rx))
	direct := NewPoseFromEulerAngles(r3.Vector{}, roll, pitch, yaw)
	test.That(t, PoseAlmostEqual(composed, direct, 1e-12), test.ShouldBeTrue)
}

func TestInvert(t *testing.T) {
	p := NewPoseFromEulerAngles(r3.Vector{X: 0.2, Y: -1.4, Z: 0.7}, 0.1, 0.5, -0.9)
	ident := Compose(p, p.Invert())
	test.That(t, PoseAlmostEqual(ident, NewZeroPose(), 1e-12), test.ShouldBeTrue)
	ident = Compose(p.Invert(), p)
	test.That(t, PoseAlmostEqual(ident, NewZeroPose(), 1e-12), test.ShouldBeTrue)
}

func TestWithTranslation(t *testing.T) {
	p := NewPoseFromEulerAngles(r3.Vector{X: 1, Y: 2, Z: 3}, 0, 0, math.Pi/4)
	q := p.WithTranslation(r3.Vector{X: -5, Y: 0, Z: 5})
	test.That(t, q.Point(), test.ShouldResemble, r3.Vector{X: -5, Y: 0, Z: 5})
	test.That(t, q.RotationFlat(), test.ShouldResemble, p.RotationFlat())
	// original untouched
	test.That(t, p.Point(), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
}

func TestRotationFlat(t *testing.T) {
	p := NewZeroPose()
	test.That(t, p.RotationFlat(), test.ShouldResemble, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}
