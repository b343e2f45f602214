package dataset

import (
	"testing"

	"go.viam.com/test"
	"gorgonia.org/tensor"

	"github.com/rearrange-ml/seqprep/scene"
)

func constantCloud(numPts int, v float32) scene.ObjectCloud {
	pts := make([]float32, numPts*3)
	for i := range pts {
		pts[i] = v
	}
	return scene.ObjectCloud{Positions: pts, Colors: make([]float32, numPts*3), NumPoints: numPts}
}

func TestPrepareInferenceExample(t *testing.T) {
	cfg := testConfig()
	cfg.UseStructureFrame = true
	d := newTestDataset(t, cfg)

	targets := []scene.ObjectCloud{constantCloud(32, 1), constantCloud(32, 2)}
	others := []scene.ObjectCloud{constantCloud(32, 3)}
	params := StructureParameters{
		Type:     StructureLine,
		Position: [3]float64{0.1, 0.2, 0},
		Rotation: [3]float64{0, 0, 0.5},
		Length:   0.6,
	}
	e, err := d.PrepareInferenceExample(targets, others, params)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, e.ObjectPadMask, test.ShouldResemble, []int64{0, 0, 1, 1, 1, 1, 1})
	test.That(t, e.OtherObjectPadMask, test.ShouldResemble, []int64{0, 1, 1, 1, 1})
	test.That(t, e.ObjXYZs[0][0], test.ShouldEqual, float32(1))
	test.That(t, e.ObjXYZs[1][0], test.ShouldEqual, float32(2))
	test.That(t, e.OtherXYZs[0][0], test.ShouldEqual, float32(3))
	test.That(t, e.ObjXYZs[2], test.ShouldResemble, make([]float32, 32*3))

	// line sentences store the half-length in the radius slot
	test.That(t, e.Sentence[0].Word, test.ShouldEqual, "line")
	test.That(t, e.Sentence[4].Role, test.ShouldEqual, RoleRadius)
	test.That(t, e.Sentence[4].Value, test.ShouldEqual, 0.3)
	test.That(t, e.SentencePadMask, test.ShouldResemble, []int64{0, 0, 0, 0, 0})

	// pose fields are placeholders for the model to fill
	for i := 0; i < 7; i++ {
		test.That(t, e.ObjXOutputs[i], test.ShouldEqual, float32(0))
		test.That(t, e.ObjThetaInputs[i], test.ShouldResemble, make([]float32, 9))
	}
	test.That(t, e.Structure, test.ShouldNotBeNil)
	test.That(t, e.Structure.XInputs, test.ShouldResemble, []float32{0})
	test.That(t, e.Structure.ThetaInputs[0], test.ShouldResemble, make([]float32, 9))

	test.That(t, e.TokenTypeIndex, test.ShouldResemble, []int64{
		0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 2, 2, 2, 2, 2, 2, 2,
	})

	ts, err := e.Tensorize(fakeTokenizer{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ts.XYZs.Shape(), test.ShouldResemble, tensor.Shape{7, 32, 3})
}

func TestPrepareInferenceExampleErrors(t *testing.T) {
	d := newTestDataset(t, testConfig())
	params := StructureParameters{Type: StructureTower}

	_, err := d.PrepareInferenceExample(
		[]scene.ObjectCloud{constantCloud(16, 1)}, nil, params)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "16 points, want 32")

	_, err = d.PrepareInferenceExample(nil, nil, StructureParameters{Type: "pile"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not recognized")

	tooMany := make([]scene.ObjectCloud, 8)
	for i := range tooMany {
		tooMany[i] = constantCloud(32, 1)
	}
	_, err = d.PrepareInferenceExample(tooMany, nil, params)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "exceed the configured capacity")
}
