package dataset

import (
	"math/rand/v2"

	"github.com/rearrange-ml/seqprep/spatialmath"
)

// PoseIgnoreValue fills pose-output pad slots so a loss function can exclude
// them (the conventional ignore index of NLL and MSE losses).
const PoseIgnoreValue float32 = -100

// Token type ids of the joint sequence zones.
const (
	tokenTypeSentence  int64 = 0
	tokenTypeOther     int64 = 1
	tokenTypeTarget    int64 = 2
	tokenTypeStructure int64 = 3
)

// Example is one assembled training example. Object clouds and pose tensors
// are ordered identically: slot i of ObjXYZs, the pose inputs/outputs, and
// ObjectPadMask all refer to the same target object. Pad masks use 0 for real
// slots and 1 for padding.
type Example struct {
	// target objects, padded to MaxObjects
	ObjXYZs       [][]float32 // each NumPoints*3
	ObjRGBs       [][]float32
	ObjectPadMask []int64

	// anchor + distractor objects, padded to MaxOtherObjects
	OtherXYZs          [][]float32
	OtherRGBs          [][]float32
	OtherObjectPadMask []int64

	// structure description
	Sentence        []Token
	SentencePadMask []int64

	// joint token sequence bookkeeping
	TokenTypeIndex []int64
	PositionIndex  []int64

	// goal pose targets and pose inputs, padded to MaxObjects
	ObjXOutputs     []float32
	ObjYOutputs     []float32
	ObjZOutputs     []float32
	ObjThetaOutputs [][]float32 // each 9, row-major rotation
	ObjXInputs      []float32
	ObjYInputs      []float32
	ObjZInputs      []float32
	ObjThetaInputs  [][]float32

	// Structure is present exactly when the example was built with the
	// structure frame enabled.
	Structure *StructureFrameData

	// Inference is present only for examples built in inference mode.
	Inference *InferenceData

	// provenance
	Step     int
	Filename string

	numPoints int
}

// StructureFrameData holds the extra structure-prediction token fields.
type StructureFrameData struct {
	PositionIndex  []int64
	TokenTypeIndex []int64
	PadMask        []int64
	XInputs        []float32
	YInputs        []float32
	ZInputs        []float32
	ThetaInputs    [][]float32
}

// InferenceData carries extra ground truth used at inference time, ordered
// like the target-object slots (nil pose entries are padding).
type InferenceData struct {
	GoalObjXYZs   [][]float32
	GoalObjRGBs   [][]float32
	GoalPoses     []*spatialmath.Pose
	CurrentPoses  []*spatialmath.Pose
	TargetObjects []string
}

// buildSentence encodes the structure parameters as a fixed-length token
// sequence. Circle and line structures use all five slots (shape, rotation,
// position x/y, and radius or half-length); tower and dinner use four and an
// explicit PAD sentinel.
func buildSentence(params StructureParameters, maxShapeParams int) ([]Token, []int64) {
	sentence := []Token{
		WordToken(string(params.Type), RoleShape),
		ValueToken(params.Rotation[2], RoleRotation),
		ValueToken(params.Position[0], RolePositionX),
		ValueToken(params.Position[1], RolePositionY),
	}
	switch params.Type {
	case StructureCircle:
		sentence = append(sentence, ValueToken(params.Radius, RoleRadius))
	case StructureLine:
		sentence = append(sentence, ValueToken(params.Length/2.0, RoleRadius))
	case StructureTower, StructureDinner:
	}
	mask := make([]int64, 0, maxShapeParams)
	for range sentence {
		mask = append(mask, 0)
	}
	for len(sentence) < maxShapeParams {
		sentence = append(sentence, PadToken())
		mask = append(mask, 1)
	}
	return sentence, mask
}

// buildIndices lays out the joint token sequence: sentence tokens, then
// other-object tokens, then target-object tokens, each zone independently
// 0-based and tagged with its type id.
func buildIndices(maxShapeParams, maxOther, maxObjects int) (tokenTypes, positions []int64) {
	for i := 0; i < maxShapeParams; i++ {
		tokenTypes = append(tokenTypes, tokenTypeSentence)
		positions = append(positions, int64(i))
	}
	for i := 0; i < maxOther; i++ {
		tokenTypes = append(tokenTypes, tokenTypeOther)
		positions = append(positions, int64(i))
	}
	for i := 0; i < maxObjects; i++ {
		tokenTypes = append(tokenTypes, tokenTypeTarget)
		positions = append(positions, int64(i))
	}
	return tokenTypes, positions
}

// newStructureFrameData builds the single structure-prediction token's
// fields from the structure parameters.
func newStructureFrameData(params StructureParameters) *StructureFrameData {
	theta := params.Pose().RotationFlat()
	theta32 := make([]float32, len(theta))
	for i, v := range theta {
		theta32[i] = float32(v)
	}
	return &StructureFrameData{
		PositionIndex:  []int64{0},
		TokenTypeIndex: []int64{tokenTypeStructure},
		PadMask:        []int64{0},
		XInputs:        []float32{float32(params.Position[0])},
		YInputs:        []float32{float32(params.Position[1])},
		ZInputs:        []float32{float32(params.Position[2])},
		ThetaInputs:    [][]float32{theta32},
	}
}

// shuffleTargets permutes the real (non-padding) target slots of the example
// in unison; padding slots keep their trailing positions.
func (e *Example) shuffleTargets(numReal int, src rand.Source) {
	r := rand.New(src)
	perm := r.Perm(numReal)
	permute := func(xs [][]float32) {
		tmp := make([][]float32, numReal)
		for i, p := range perm {
			tmp[i] = xs[p]
		}
		copy(xs, tmp)
	}
	permuteF := func(xs []float32) {
		tmp := make([]float32, numReal)
		for i, p := range perm {
			tmp[i] = xs[p]
		}
		copy(xs, tmp)
	}
	permute(e.ObjXYZs)
	permute(e.ObjRGBs)
	permute(e.ObjThetaOutputs)
	permute(e.ObjThetaInputs)
	permuteF(e.ObjXOutputs)
	permuteF(e.ObjYOutputs)
	permuteF(e.ObjZOutputs)
	permuteF(e.ObjXInputs)
	permuteF(e.ObjYInputs)
	permuteF(e.ObjZInputs)
	// pad mask entries for real slots are all zero, so only inference extras
	// actually change order alongside the tensors above
	if e.Inference != nil {
		permute(e.Inference.GoalObjXYZs)
		permute(e.Inference.GoalObjRGBs)
		tmpPoses := make([]*spatialmath.Pose, numReal)
		for i, p := range perm {
			tmpPoses[i] = e.Inference.GoalPoses[p]
		}
		copy(e.Inference.GoalPoses, tmpPoses)
		for i, p := range perm {
			tmpPoses[i] = e.Inference.CurrentPoses[p]
		}
		copy(e.Inference.CurrentPoses, tmpPoses)
		tmpNames := make([]string, numReal)
		for i, p := range perm {
			tmpNames[i] = e.Inference.TargetObjects[p]
		}
		copy(e.Inference.TargetObjects, tmpNames)
	}
}
