package camera

import (
	"testing"

	"go.viam.com/test"
)

var testIntrinsics = PinholeCameraIntrinsics{
	Width:  4,
	Height: 3,
	Fx:     50,
	Fy:     50,
	Ppx:    2,
	Ppy:    1.5,
}

func TestCheckValid(t *testing.T) {
	good := testIntrinsics
	test.That(t, good.CheckValid(), test.ShouldBeNil)

	bad := testIntrinsics
	bad.Fx = 0
	test.That(t, bad.CheckValid(), test.ShouldNotBeNil)

	bad = testIntrinsics
	bad.Width = 0
	test.That(t, bad.CheckValid(), test.ShouldNotBeNil)
}

func TestPixelPointRoundTrip(t *testing.T) {
	px, py, pz := testIntrinsics.PixelToPoint(3, 2, 1.2)
	u, v := testIntrinsics.PointToPixel(px, py, pz)
	test.That(t, u, test.ShouldAlmostEqual, 3, 1e-12)
	test.That(t, v, test.ShouldAlmostEqual, 2, 1e-12)
}

func TestComputeXYZ(t *testing.T) {
	depth := make([]float64, testIntrinsics.Width*testIntrinsics.Height)
	for i := range depth {
		depth[i] = 2.0
	}
	pts, err := testIntrinsics.ComputeXYZ(depth)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(pts), test.ShouldEqual, len(depth))

	// pixel x at the principal column projects straight down the optical axis
	center := pts[1*testIntrinsics.Width+2]
	test.That(t, center.X, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, center.Y, test.ShouldAlmostEqual, (1-testIntrinsics.Ppy)/testIntrinsics.Fy*2.0, 1e-12)
	test.That(t, center.Z, test.ShouldAlmostEqual, 2.0, 1e-12)

	// zero depth maps to the origin
	depth[0] = 0
	pts, err = testIntrinsics.ComputeXYZ(depth)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pts[0].X, test.ShouldEqual, 0)
	test.That(t, pts[0].Z, test.ShouldEqual, 0)

	_, err = testIntrinsics.ComputeXYZ(depth[:5])
	test.That(t, err, test.ShouldNotBeNil)
}
