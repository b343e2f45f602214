package dataset

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Batch is a list of examples merged into batched tensors. Point-cloud
// fields are concatenated along the object axis, so their leading dimension
// is batch*capacity; every other tensor gains a new leading batch dimension.
type Batch struct {
	XYZs               *tensor.Dense
	RGBs               *tensor.Dense
	ObjectPadMask      *tensor.Dense
	OtherXYZs          *tensor.Dense
	OtherRGBs          *tensor.Dense
	OtherObjectPadMask *tensor.Dense
	Sentence           *tensor.Dense
	SentencePadMask    *tensor.Dense
	TokenTypeIndex     *tensor.Dense
	PositionIndex      *tensor.Dense
	ObjXOutputs        *tensor.Dense
	ObjYOutputs        *tensor.Dense
	ObjZOutputs        *tensor.Dense
	ObjThetaOutputs    *tensor.Dense
	ObjXInputs         *tensor.Dense
	ObjYInputs         *tensor.Dense
	ObjZInputs         *tensor.Dense
	ObjThetaInputs     *tensor.Dense

	Structure *StructureFrameTensors

	Steps     []int
	Filenames []string
}

// Collate merges examples into one batch. Every example must have been built
// with the same structure-frame configuration.
func Collate(examples []*ExampleTensors) (*Batch, error) {
	if len(examples) == 0 {
		return nil, errors.New("cannot collate an empty batch")
	}
	withStructure := examples[0].Structure != nil
	for i, ex := range examples {
		if (ex.Structure != nil) != withStructure {
			return nil, errors.Errorf(
				"example %d mixes structure-frame configurations within one batch", i)
		}
	}

	var err error
	concat := func(pick func(*ExampleTensors) *tensor.Dense) *tensor.Dense {
		if err != nil {
			return nil
		}
		var out *tensor.Dense
		out, err = concatDense(gather(examples, pick))
		return out
	}
	stack := func(pick func(*ExampleTensors) *tensor.Dense) *tensor.Dense {
		if err != nil {
			return nil
		}
		var out *tensor.Dense
		out, err = stackDense(gather(examples, pick))
		return out
	}

	b := &Batch{
		XYZs:               concat(func(e *ExampleTensors) *tensor.Dense { return e.XYZs }),
		RGBs:               concat(func(e *ExampleTensors) *tensor.Dense { return e.RGBs }),
		OtherXYZs:          concat(func(e *ExampleTensors) *tensor.Dense { return e.OtherXYZs }),
		OtherRGBs:          concat(func(e *ExampleTensors) *tensor.Dense { return e.OtherRGBs }),
		ObjectPadMask:      stack(func(e *ExampleTensors) *tensor.Dense { return e.ObjectPadMask }),
		OtherObjectPadMask: stack(func(e *ExampleTensors) *tensor.Dense { return e.OtherObjectPadMask }),
		Sentence:           stack(func(e *ExampleTensors) *tensor.Dense { return e.Sentence }),
		SentencePadMask:    stack(func(e *ExampleTensors) *tensor.Dense { return e.SentencePadMask }),
		TokenTypeIndex:     stack(func(e *ExampleTensors) *tensor.Dense { return e.TokenTypeIndex }),
		PositionIndex:      stack(func(e *ExampleTensors) *tensor.Dense { return e.PositionIndex }),
		ObjXOutputs:        stack(func(e *ExampleTensors) *tensor.Dense { return e.ObjXOutputs }),
		ObjYOutputs:        stack(func(e *ExampleTensors) *tensor.Dense { return e.ObjYOutputs }),
		ObjZOutputs:        stack(func(e *ExampleTensors) *tensor.Dense { return e.ObjZOutputs }),
		ObjThetaOutputs:    stack(func(e *ExampleTensors) *tensor.Dense { return e.ObjThetaOutputs }),
		ObjXInputs:         stack(func(e *ExampleTensors) *tensor.Dense { return e.ObjXInputs }),
		ObjYInputs:         stack(func(e *ExampleTensors) *tensor.Dense { return e.ObjYInputs }),
		ObjZInputs:         stack(func(e *ExampleTensors) *tensor.Dense { return e.ObjZInputs }),
		ObjThetaInputs:     stack(func(e *ExampleTensors) *tensor.Dense { return e.ObjThetaInputs }),
	}
	if err != nil {
		return nil, err
	}

	if withStructure {
		stackStruct := func(pick func(*StructureFrameTensors) *tensor.Dense) *tensor.Dense {
			if err != nil {
				return nil
			}
			ts := make([]*tensor.Dense, len(examples))
			for i, ex := range examples {
				ts[i] = pick(ex.Structure)
			}
			var out *tensor.Dense
			out, err = stackDense(ts)
			return out
		}
		b.Structure = &StructureFrameTensors{
			PositionIndex:  stackStruct(func(s *StructureFrameTensors) *tensor.Dense { return s.PositionIndex }),
			TokenTypeIndex: stackStruct(func(s *StructureFrameTensors) *tensor.Dense { return s.TokenTypeIndex }),
			PadMask:        stackStruct(func(s *StructureFrameTensors) *tensor.Dense { return s.PadMask }),
			XInputs:        stackStruct(func(s *StructureFrameTensors) *tensor.Dense { return s.XInputs }),
			YInputs:        stackStruct(func(s *StructureFrameTensors) *tensor.Dense { return s.YInputs }),
			ZInputs:        stackStruct(func(s *StructureFrameTensors) *tensor.Dense { return s.ZInputs }),
			ThetaInputs:    stackStruct(func(s *StructureFrameTensors) *tensor.Dense { return s.ThetaInputs }),
		}
		if err != nil {
			return nil, err
		}
	}

	for _, ex := range examples {
		b.Steps = append(b.Steps, ex.Step)
		b.Filenames = append(b.Filenames, ex.Filename)
	}
	return b, nil
}

func gather(examples []*ExampleTensors, pick func(*ExampleTensors) *tensor.Dense) []*tensor.Dense {
	ts := make([]*tensor.Dense, len(examples))
	for i, ex := range examples {
		ts[i] = pick(ex)
	}
	return ts
}

// concatDense joins tensors along their existing leading axis.
func concatDense(ts []*tensor.Dense) (*tensor.Dense, error) {
	if len(ts) == 1 {
		return ts[0].Clone().(*tensor.Dense), nil
	}
	return ts[0].Concat(0, ts[1:]...)
}

// stackDense joins tensors along a new leading axis.
func stackDense(ts []*tensor.Dense) (*tensor.Dense, error) {
	if len(ts) == 1 {
		out := ts[0].Clone().(*tensor.Dense)
		shape := append([]int{1}, out.Shape()...)
		if err := out.Reshape(shape...); err != nil {
			return nil, err
		}
		return out, nil
	}
	return ts[0].Stack(0, ts[1:]...)
}
