package dataset

import (
	"math/rand/v2"
	"testing"

	"go.viam.com/test"
	"gorgonia.org/tensor"
)

func loadTensorized(t *testing.T, cfg Config) *ExampleTensors {
	t.Helper()
	d := newTestDataset(t, cfg)
	e, err := d.LoadExample(circleEpisode(t), BuildOptions{Source: rand.NewPCG(1, 2)})
	test.That(t, err, test.ShouldBeNil)
	ts, err := e.Tensorize(fakeTokenizer{})
	test.That(t, err, test.ShouldBeNil)
	return ts
}

func TestTensorizeShapes(t *testing.T) {
	cfg := testConfig()
	cfg.UseStructureFrame = true
	ts := loadTensorized(t, cfg)

	test.That(t, ts.XYZs.Shape(), test.ShouldResemble, tensor.Shape{7, 32, 3})
	test.That(t, ts.RGBs.Shape(), test.ShouldResemble, tensor.Shape{7, 32, 3})
	test.That(t, ts.ObjectPadMask.Shape(), test.ShouldResemble, tensor.Shape{7})
	test.That(t, ts.OtherXYZs.Shape(), test.ShouldResemble, tensor.Shape{5, 32, 3})
	test.That(t, ts.OtherObjectPadMask.Shape(), test.ShouldResemble, tensor.Shape{5})
	test.That(t, ts.Sentence.Shape(), test.ShouldResemble, tensor.Shape{5})
	test.That(t, ts.SentencePadMask.Shape(), test.ShouldResemble, tensor.Shape{5})
	test.That(t, ts.TokenTypeIndex.Shape(), test.ShouldResemble, tensor.Shape{17})
	test.That(t, ts.PositionIndex.Shape(), test.ShouldResemble, tensor.Shape{17})
	test.That(t, ts.ObjXOutputs.Shape(), test.ShouldResemble, tensor.Shape{7})
	test.That(t, ts.ObjThetaOutputs.Shape(), test.ShouldResemble, tensor.Shape{7, 9})
	test.That(t, ts.ObjThetaInputs.Shape(), test.ShouldResemble, tensor.Shape{7, 9})

	test.That(t, ts.Structure, test.ShouldNotBeNil)
	test.That(t, ts.Structure.PadMask.Shape(), test.ShouldResemble, tensor.Shape{1})
	test.That(t, ts.Structure.ThetaInputs.Shape(), test.ShouldResemble, tensor.Shape{1, 9})

	test.That(t, ts.Step, test.ShouldEqual, 3)
}

func TestTensorizeSentenceValues(t *testing.T) {
	ts := loadTensorized(t, testConfig())

	ids := ts.Sentence.Data().([]int64)
	// circle, rotation 0.5, position 0.1/0.2, radius 0.25 under fakeTokenizer
	test.That(t, ids, test.ShouldResemble, []int64{1, 600, 200, 300, 350})

	types := ts.TokenTypeIndex.Data().([]int64)
	test.That(t, types[0], test.ShouldEqual, int64(0))
	test.That(t, types[5], test.ShouldEqual, int64(1))
	test.That(t, types[10], test.ShouldEqual, int64(2))
}

func TestTensorizeUnknownWord(t *testing.T) {
	e := &Example{
		Sentence:  []Token{WordToken("hexagon", RoleShape)},
		numPoints: 4,
	}
	_, err := e.Tensorize(fakeTokenizer{})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "sentence token 0")
}

func TestCollate(t *testing.T) {
	cfg := testConfig()
	cfg.UseStructureFrame = true
	a := loadTensorized(t, cfg)
	b := loadTensorized(t, cfg)

	batch, err := Collate([]*ExampleTensors{a, b})
	test.That(t, err, test.ShouldBeNil)

	// clouds concatenate along the object axis, everything else stacks
	test.That(t, batch.XYZs.Shape(), test.ShouldResemble, tensor.Shape{14, 32, 3})
	test.That(t, batch.OtherXYZs.Shape(), test.ShouldResemble, tensor.Shape{10, 32, 3})
	test.That(t, batch.ObjectPadMask.Shape(), test.ShouldResemble, tensor.Shape{2, 7})
	test.That(t, batch.Sentence.Shape(), test.ShouldResemble, tensor.Shape{2, 5})
	test.That(t, batch.TokenTypeIndex.Shape(), test.ShouldResemble, tensor.Shape{2, 17})
	test.That(t, batch.ObjXOutputs.Shape(), test.ShouldResemble, tensor.Shape{2, 7})
	test.That(t, batch.ObjThetaOutputs.Shape(), test.ShouldResemble, tensor.Shape{2, 7, 9})
	test.That(t, batch.Structure, test.ShouldNotBeNil)
	test.That(t, batch.Structure.PadMask.Shape(), test.ShouldResemble, tensor.Shape{2, 1})
	test.That(t, batch.Structure.ThetaInputs.Shape(), test.ShouldResemble, tensor.Shape{2, 1, 9})

	test.That(t, batch.Steps, test.ShouldResemble, []int{3, 3})
	test.That(t, len(batch.Filenames), test.ShouldEqual, 2)
}

func TestCollateSingleExample(t *testing.T) {
	a := loadTensorized(t, testConfig())
	batch, err := Collate([]*ExampleTensors{a})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, batch.XYZs.Shape(), test.ShouldResemble, tensor.Shape{7, 32, 3})
	test.That(t, batch.ObjectPadMask.Shape(), test.ShouldResemble, tensor.Shape{1, 7})
	test.That(t, batch.ObjThetaOutputs.Shape(), test.ShouldResemble, tensor.Shape{1, 7, 9})
	test.That(t, batch.Structure, test.ShouldBeNil)
}

func TestCollateMixedStructureFrame(t *testing.T) {
	withCfg := testConfig()
	withCfg.UseStructureFrame = true
	a := loadTensorized(t, withCfg)
	b := loadTensorized(t, testConfig())

	_, err := Collate([]*ExampleTensors{a, b})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "structure-frame")
}

func TestCollateEmpty(t *testing.T) {
	_, err := Collate(nil)
	test.That(t, err, test.ShouldNotBeNil)
}
