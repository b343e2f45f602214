package episode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/rearrange-ml/seqprep/spatialmath"
)

func writeTestEpisode(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "episode.bson")
	b := NewBuilder()
	b.PutInt("id_object_00", 3)
	b.PutInt("id_object_01", 7)
	b.PutString("goal_specification", `{"shape":{"type":"circle"}}`)
	b.PutUint16Array("depth", []int64{1, 2, 2}, []uint16{0, 10000, 20000, 5000})
	b.PutFloat64Array("depth_min", []int64{1}, []float64{0.5})
	b.PutFloat64Array("depth_max", []int64{1}, []float64{1.5})
	b.PutPose("ee_cam_pose", spatialmath.NewPoseFromPoint(r3.Vector{X: 1, Y: 2, Z: 3}))
	b.PutPoses("object_00", []spatialmath.Pose{
		spatialmath.NewPoseFromPoint(r3.Vector{X: 0.1}),
		spatialmath.NewPoseFromPoint(r3.Vector{X: 0.2}),
	})
	test.That(t, b.WriteFile(path), test.ShouldBeNil)
	return path
}

func TestOpenMissing(t *testing.T) {
	ep, err := Open(filepath.Join(t.TempDir(), "nope.bson"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, ep, test.ShouldBeNil)
}

func TestOpenInvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bson")
	test.That(t, os.WriteFile(path, []byte("not bson"), 0o644), test.ShouldBeNil)
	ep, err := Open(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not a valid document")
	test.That(t, ep, test.ShouldBeNil)
}

func TestEpisodeFields(t *testing.T) {
	ep, err := Open(writeTestEpisode(t))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, ep.Has("depth"), test.ShouldBeTrue)
	test.That(t, ep.Has("rgb"), test.ShouldBeFalse)

	ids, err := ep.ObjectIDs()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ids, test.ShouldResemble, map[string]int64{"object_00": 3, "object_01": 7})

	spec, err := ep.String("goal_specification")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spec, test.ShouldContainSubstring, "circle")

	a, err := ep.Array("depth")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.Shape, test.ShouldResemble, []int64{1, 2, 2})
	raw, err := a.Uint16s()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, raw, test.ShouldResemble, []uint16{0, 10000, 20000, 5000})

	dmin, err := ep.Float("depth_min", 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dmin, test.ShouldEqual, 0.5)
	_, err = ep.Float("depth_min", 2)
	test.That(t, err, test.ShouldNotBeNil)

	camPose, err := ep.Pose("ee_cam_pose")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, camPose.Point(), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})

	p1, err := ep.PoseAt("object_00", 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p1.Point().X, test.ShouldAlmostEqual, 0.2)
	_, err = ep.PoseAt("object_00", 2)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestArrayDTypeMismatch(t *testing.T) {
	ep, err := Open(writeTestEpisode(t))
	test.That(t, err, test.ShouldBeNil)
	a, err := ep.Array("depth")
	test.That(t, err, test.ShouldBeNil)
	_, err = a.Float64s()
	test.That(t, err, test.ShouldNotBeNil)
}
