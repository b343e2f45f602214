package dataset

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ExampleTensors is one tokenized, tensorized example ready for batching.
// Leading dimensions are the configured capacities; see Example for the
// slot ordering invariant.
type ExampleTensors struct {
	XYZs               *tensor.Dense // (MaxObjects, NumPoints, 3) float32
	RGBs               *tensor.Dense // (MaxObjects, NumPoints, 3) float32
	ObjectPadMask      *tensor.Dense // (MaxObjects,) int64
	OtherXYZs          *tensor.Dense // (MaxOtherObjects, NumPoints, 3) float32
	OtherRGBs          *tensor.Dense // (MaxOtherObjects, NumPoints, 3) float32
	OtherObjectPadMask *tensor.Dense // (MaxOtherObjects,) int64
	Sentence           *tensor.Dense // (MaxShapeParameters,) int64
	SentencePadMask    *tensor.Dense // (MaxShapeParameters,) int64
	TokenTypeIndex     *tensor.Dense // (sequence length,) int64
	PositionIndex      *tensor.Dense // (sequence length,) int64
	ObjXOutputs        *tensor.Dense // (MaxObjects,) float32
	ObjYOutputs        *tensor.Dense
	ObjZOutputs        *tensor.Dense
	ObjThetaOutputs    *tensor.Dense // (MaxObjects, 9) float32
	ObjXInputs         *tensor.Dense
	ObjYInputs         *tensor.Dense
	ObjZInputs         *tensor.Dense
	ObjThetaInputs     *tensor.Dense

	Structure *StructureFrameTensors

	Step     int
	Filename string
}

// StructureFrameTensors holds the tensorized structure-prediction token.
type StructureFrameTensors struct {
	PositionIndex  *tensor.Dense // (1,) int64
	TokenTypeIndex *tensor.Dense // (1,) int64
	PadMask        *tensor.Dense // (1,) int64
	XInputs        *tensor.Dense // (1,) float32
	YInputs        *tensor.Dense
	ZInputs        *tensor.Dense
	ThetaInputs    *tensor.Dense // (1, 9) float32
}

// Tensorize tokenizes the sentence and converts every field of the example
// into tensors.
func (e *Example) Tensorize(tok Tokenizer) (*ExampleTensors, error) {
	sentenceIDs := make([]int64, len(e.Sentence))
	for i, t := range e.Sentence {
		id, err := tok.Tokenize(t)
		if err != nil {
			return nil, errors.Wrapf(err, "sentence token %d", i)
		}
		sentenceIDs[i] = id
	}

	numPts := e.numPoints
	if numPts == 0 && len(e.ObjXYZs) > 0 {
		numPts = len(e.ObjXYZs[0]) / 3
	}

	out := &ExampleTensors{
		XYZs:               denseNested(e.ObjXYZs, numPts, 3),
		RGBs:               denseNested(e.ObjRGBs, numPts, 3),
		ObjectPadMask:      denseInt64(e.ObjectPadMask),
		OtherXYZs:          denseNested(e.OtherXYZs, numPts, 3),
		OtherRGBs:          denseNested(e.OtherRGBs, numPts, 3),
		OtherObjectPadMask: denseInt64(e.OtherObjectPadMask),
		Sentence:           denseInt64(sentenceIDs),
		SentencePadMask:    denseInt64(e.SentencePadMask),
		TokenTypeIndex:     denseInt64(e.TokenTypeIndex),
		PositionIndex:      denseInt64(e.PositionIndex),
		ObjXOutputs:        denseFloat32(e.ObjXOutputs),
		ObjYOutputs:        denseFloat32(e.ObjYOutputs),
		ObjZOutputs:        denseFloat32(e.ObjZOutputs),
		ObjThetaOutputs:    denseNested(e.ObjThetaOutputs, 9),
		ObjXInputs:         denseFloat32(e.ObjXInputs),
		ObjYInputs:         denseFloat32(e.ObjYInputs),
		ObjZInputs:         denseFloat32(e.ObjZInputs),
		ObjThetaInputs:     denseNested(e.ObjThetaInputs, 9),
		Step:               e.Step,
		Filename:           e.Filename,
	}

	if e.Structure != nil {
		out.Structure = &StructureFrameTensors{
			PositionIndex:  denseInt64(e.Structure.PositionIndex),
			TokenTypeIndex: denseInt64(e.Structure.TokenTypeIndex),
			PadMask:        denseInt64(e.Structure.PadMask),
			XInputs:        denseFloat32(e.Structure.XInputs),
			YInputs:        denseFloat32(e.Structure.YInputs),
			ZInputs:        denseFloat32(e.Structure.ZInputs),
			ThetaInputs:    denseNested(e.Structure.ThetaInputs, 9),
		}
	}
	return out, nil
}

// denseNested flattens rows into a float32 tensor of shape
// (len(rows), inner...).
func denseNested(rows [][]float32, inner ...int) *tensor.Dense {
	n := 1
	for _, d := range inner {
		n *= d
	}
	backing := make([]float32, 0, len(rows)*n)
	for _, row := range rows {
		backing = append(backing, row...)
	}
	shape := append([]int{len(rows)}, inner...)
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing))
}

func denseInt64(vals []int64) *tensor.Dense {
	backing := append([]int64(nil), vals...)
	return tensor.New(tensor.WithShape(len(backing)), tensor.WithBacking(backing))
}

func denseFloat32(vals []float32) *tensor.Dense {
	backing := append([]float32(nil), vals...)
	return tensor.New(tensor.WithShape(len(backing)), tensor.WithBacking(backing))
}
