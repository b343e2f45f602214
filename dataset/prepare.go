package dataset

import (
	"github.com/pkg/errors"

	"github.com/rearrange-ml/seqprep/scene"
)

// PrepareInferenceExample assembles an example directly from caller-provided
// object point clouds and structure parameters, with no recorded episode
// behind it. Pose inputs and outputs are zero placeholders for a model to
// fill in; clouds must each hold the configured number of points.
func (d *Dataset) PrepareInferenceExample(
	targets, others []scene.ObjectCloud,
	params StructureParameters,
) (*Example, error) {
	if err := params.Type.CheckValid(); err != nil {
		return nil, err
	}
	if len(targets) > d.cfg.MaxObjects {
		return nil, errors.Errorf(
			"%d target objects exceed the configured capacity %d", len(targets), d.cfg.MaxObjects)
	}
	if len(others) > d.cfg.MaxOtherObjects {
		return nil, errors.Errorf(
			"%d other objects exceed the configured capacity %d", len(others), d.cfg.MaxOtherObjects)
	}
	for i, c := range append(append([]scene.ObjectCloud{}, targets...), others...) {
		if c.NumPoints != d.cfg.NumPoints {
			return nil, errors.Errorf(
				"cloud %d has %d points, want %d", i, c.NumPoints, d.cfg.NumPoints)
		}
	}

	e := &Example{numPoints: d.cfg.NumPoints}
	for _, c := range targets {
		e.ObjXYZs = append(e.ObjXYZs, c.Positions)
		e.ObjRGBs = append(e.ObjRGBs, c.Colors)
		e.ObjectPadMask = append(e.ObjectPadMask, 0)
		e.ObjXOutputs = append(e.ObjXOutputs, 0)
		e.ObjYOutputs = append(e.ObjYOutputs, 0)
		e.ObjZOutputs = append(e.ObjZOutputs, 0)
		e.ObjThetaOutputs = append(e.ObjThetaOutputs, make([]float32, 9))
		e.ObjXInputs = append(e.ObjXInputs, 0)
		e.ObjYInputs = append(e.ObjYInputs, 0)
		e.ObjZInputs = append(e.ObjZInputs, 0)
		e.ObjThetaInputs = append(e.ObjThetaInputs, make([]float32, 9))
	}
	for _, c := range others {
		e.OtherXYZs = append(e.OtherXYZs, c.Positions)
		e.OtherRGBs = append(e.OtherRGBs, c.Colors)
		e.OtherObjectPadMask = append(e.OtherObjectPadMask, 0)
	}
	for i := len(targets); i < d.cfg.MaxObjects; i++ {
		zero := scene.NewZeroCloud(d.cfg.NumPoints)
		e.ObjXYZs = append(e.ObjXYZs, zero.Positions)
		e.ObjRGBs = append(e.ObjRGBs, zero.Colors)
		e.ObjectPadMask = append(e.ObjectPadMask, 1)
		e.ObjXOutputs = append(e.ObjXOutputs, 0)
		e.ObjYOutputs = append(e.ObjYOutputs, 0)
		e.ObjZOutputs = append(e.ObjZOutputs, 0)
		e.ObjThetaOutputs = append(e.ObjThetaOutputs, make([]float32, 9))
		e.ObjXInputs = append(e.ObjXInputs, 0)
		e.ObjYInputs = append(e.ObjYInputs, 0)
		e.ObjZInputs = append(e.ObjZInputs, 0)
		e.ObjThetaInputs = append(e.ObjThetaInputs, make([]float32, 9))
	}
	for i := len(others); i < d.cfg.MaxOtherObjects; i++ {
		zero := scene.NewZeroCloud(d.cfg.NumPoints)
		e.OtherXYZs = append(e.OtherXYZs, zero.Positions)
		e.OtherRGBs = append(e.OtherRGBs, zero.Colors)
		e.OtherObjectPadMask = append(e.OtherObjectPadMask, 1)
	}

	e.Sentence, e.SentencePadMask = buildSentence(params, d.cfg.MaxShapeParameters)
	e.TokenTypeIndex, e.PositionIndex = buildIndices(
		d.cfg.MaxShapeParameters, d.cfg.MaxOtherObjects, d.cfg.MaxObjects)

	if d.cfg.UseStructureFrame {
		// the structure pose is also left for the model to predict
		e.Structure = &StructureFrameData{
			PositionIndex:  []int64{0},
			TokenTypeIndex: []int64{tokenTypeStructure},
			PadMask:        []int64{0},
			XInputs:        []float32{0},
			YInputs:        []float32{0},
			ZInputs:        []float32{0},
			ThetaInputs:    [][]float32{make([]float32, 9)},
		}
	}
	return e, nil
}
