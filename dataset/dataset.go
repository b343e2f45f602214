package dataset

import (
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/rearrange-ml/seqprep/camera"
	"github.com/rearrange-ml/seqprep/episode"
	"github.com/rearrange-ml/seqprep/scene"
	"github.com/rearrange-ml/seqprep/spatialmath"
)

// Dataset builds training examples from recorded episodes.
type Dataset struct {
	cfg        Config
	tokenizer  Tokenizer
	intrinsics *camera.PinholeCameraIntrinsics
	logger     golog.Logger
}

// NewDataset validates the config and returns a dataset. The tokenizer and
// camera intrinsics are external collaborators supplied by the caller.
func NewDataset(
	cfg Config,
	tokenizer Tokenizer,
	intrinsics *camera.PinholeCameraIntrinsics,
	logger golog.Logger,
) (*Dataset, error) {
	if err := cfg.CheckValid(); err != nil {
		return nil, err
	}
	if tokenizer == nil {
		return nil, errors.New("a tokenizer is required")
	}
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	return &Dataset{cfg: cfg, tokenizer: tokenizer, intrinsics: intrinsics, logger: logger}, nil
}

// Config returns the dataset's configuration.
func (d *Dataset) Config() Config {
	return d.cfg
}

// BuildOptions control one example construction.
type BuildOptions struct {
	// Source drives all sampling (noise, cloud sampling, shuffling) for this
	// example; a nil source is seeded from global randomness.
	Source rand.Source
	// InferenceMode additionally reconstructs the goal keyframe and records
	// ground-truth poses and target names on the example.
	InferenceMode bool
}

// LoadExample reads the episode at path and builds one example from it. The
// episode file is opened, read, and released within this call on every exit
// path.
func (d *Dataset) LoadExample(path string, opts BuildOptions) (*Example, error) {
	ep, err := episode.Open(path)
	if err != nil {
		return nil, err
	}
	return d.BuildExample(ep, opts)
}

// BuildExample builds one example from an opened episode. Construction is
// pure given the episode and the random source, so independent calls can run
// on separate goroutines.
func (d *Dataset) BuildExample(ep *episode.Episode, opts BuildOptions) (*Example, error) {
	src := opts.Source
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	ids, err := ep.ObjectIDs()
	if err != nil {
		return nil, err
	}
	allObjs := make([]string, 0, len(ids))
	for name := range ids {
		if strings.Contains(name, "object_") {
			allObjs = append(allObjs, name)
		}
	}
	sort.Strings(allObjs)

	rawSpec, err := ep.String("goal_specification")
	if err != nil {
		return nil, err
	}
	spec, err := ParseGoalSpecification(rawSpec)
	if err != nil {
		return nil, err
	}

	numRearrange := len(spec.Rearrange.Objects)
	numOther := len(spec.Anchor.Objects) + len(spec.Distract.Objects)
	if len(allObjs) != numRearrange+numOther {
		return nil, errors.Errorf("episode has %d objects but goal specification accounts for %d",
			len(allObjs), numRearrange+numOther)
	}
	if numRearrange > d.cfg.MaxObjects {
		return nil, errors.Errorf("%d rearranged objects exceed capacity %d", numRearrange, d.cfg.MaxObjects)
	}
	if numOther > d.cfg.MaxOtherObjects {
		return nil, errors.Errorf("%d other objects exceed capacity %d", numOther, d.cfg.MaxOtherObjects)
	}

	// keyframe 0 records the goal; the keyframe indexed by the number of
	// rearranged objects records the current scene
	stepT := numRearrange

	targetObjs := append([]string(nil), allObjs[:numRearrange]...)
	otherObjs := allObjs[numRearrange:]
	if spec.Shape.Type.reversesTargetOrder() {
		for i, j := 0, len(targetObjs)-1; i < j; i, j = i+1, j-1 {
			targetObjs[i], targetObjs[j] = targetObjs[j], targetObjs[i]
		}
	}

	d.logger.Debugf("episode %s: %d target objects, %d other objects, %s structure",
		ep.Path(), numRearrange, numOther, spec.Shape.Type)

	var injector *scene.NoiseInjector
	if d.cfg.DataAugmentation {
		injector = scene.NewNoiseInjector(src)
	}
	frame, err := scene.Reconstruct(ep, scene.ViewEndEffector, stepT, d.intrinsics, injector)
	if err != nil {
		return nil, err
	}

	targetClouds, err := d.extractClouds(frame, ids, targetObjs, src)
	if err != nil {
		return nil, err
	}
	otherClouds, err := d.extractClouds(frame, ids, otherObjs, src)
	if err != nil {
		return nil, err
	}

	var structInv *spatialmath.Pose
	if d.cfg.UseStructureFrame {
		inv := spec.Shape.Pose().Invert()
		structInv = &inv
	}

	e := &Example{
		Step:      stepT,
		Filename:  ep.Path(),
		numPoints: d.cfg.NumPoints,
	}

	for i, name := range targetObjs {
		goalPose, err := ep.PoseAt(name, 0)
		if err != nil {
			return nil, err
		}
		currentPose, err := ep.PoseAt(name, stepT)
		if err != nil {
			return nil, err
		}
		goalCloudPose := solveGoalPose(goalPose, currentPose, targetClouds[i].Center(), structInv)

		pt := goalCloudPose.Point()
		theta := float32s(goalCloudPose.RotationFlat())
		e.ObjXYZs = append(e.ObjXYZs, targetClouds[i].Positions)
		e.ObjRGBs = append(e.ObjRGBs, targetClouds[i].Colors)
		e.ObjectPadMask = append(e.ObjectPadMask, 0)
		e.ObjXOutputs = append(e.ObjXOutputs, float32(pt.X))
		e.ObjYOutputs = append(e.ObjYOutputs, float32(pt.Y))
		e.ObjZOutputs = append(e.ObjZOutputs, float32(pt.Z))
		e.ObjThetaOutputs = append(e.ObjThetaOutputs, theta)
		e.ObjXInputs = append(e.ObjXInputs, float32(pt.X))
		e.ObjYInputs = append(e.ObjYInputs, float32(pt.Y))
		e.ObjZInputs = append(e.ObjZInputs, float32(pt.Z))
		e.ObjThetaInputs = append(e.ObjThetaInputs, append([]float32(nil), theta...))
	}
	for _, cloud := range otherClouds {
		e.OtherXYZs = append(e.OtherXYZs, cloud.Positions)
		e.OtherRGBs = append(e.OtherRGBs, cloud.Colors)
		e.OtherObjectPadMask = append(e.OtherObjectPadMask, 0)
	}

	if opts.InferenceMode {
		inference, err := d.buildInferenceData(ep, ids, targetObjs, otherObjs, stepT, injector, src)
		if err != nil {
			return nil, err
		}
		e.Inference = inference
	}

	d.padExample(e, numRearrange, numOther)

	e.Sentence, e.SentencePadMask = buildSentence(spec.Shape, d.cfg.MaxShapeParameters)
	e.TokenTypeIndex, e.PositionIndex = buildIndices(
		d.cfg.MaxShapeParameters, d.cfg.MaxOtherObjects, d.cfg.MaxObjects)
	if d.cfg.UseStructureFrame {
		e.Structure = newStructureFrameData(spec.Shape)
	}

	if d.cfg.ShuffleObjectIndex {
		e.shuffleTargets(numRearrange, src)
	}

	return e, nil
}

// extractClouds samples a fixed-size cloud per object name, in order.
func (d *Dataset) extractClouds(
	frame *scene.Frame,
	ids map[string]int64,
	names []string,
	src rand.Source,
) ([]*scene.ObjectCloud, error) {
	clouds := make([]*scene.ObjectCloud, 0, len(names))
	for _, name := range names {
		id, ok := ids[name]
		if !ok {
			return nil, errors.Errorf("object %q has no segmentation id", name)
		}
		cloud, err := frame.ObjectCloud(int32(id), d.cfg.NumPoints, src)
		if err != nil {
			return nil, errors.Wrapf(err, "object %q", name)
		}
		clouds = append(clouds, cloud)
	}
	return clouds, nil
}

// padExample fills the remaining object slots with zero clouds, the ignore
// sentinel on pose outputs, and zeros on pose inputs.
func (d *Dataset) padExample(e *Example, numTargets, numOthers int) {
	for i := numTargets; i < d.cfg.MaxObjects; i++ {
		zero := scene.NewZeroCloud(d.cfg.NumPoints)
		e.ObjXYZs = append(e.ObjXYZs, zero.Positions)
		e.ObjRGBs = append(e.ObjRGBs, zero.Colors)
		e.ObjectPadMask = append(e.ObjectPadMask, 1)
		e.ObjXOutputs = append(e.ObjXOutputs, PoseIgnoreValue)
		e.ObjYOutputs = append(e.ObjYOutputs, PoseIgnoreValue)
		e.ObjZOutputs = append(e.ObjZOutputs, PoseIgnoreValue)
		e.ObjThetaOutputs = append(e.ObjThetaOutputs, filled(9, PoseIgnoreValue))
		e.ObjXInputs = append(e.ObjXInputs, 0)
		e.ObjYInputs = append(e.ObjYInputs, 0)
		e.ObjZInputs = append(e.ObjZInputs, 0)
		e.ObjThetaInputs = append(e.ObjThetaInputs, make([]float32, 9))
		if e.Inference != nil {
			e.Inference.GoalPoses = append(e.Inference.GoalPoses, nil)
			e.Inference.CurrentPoses = append(e.Inference.CurrentPoses, nil)
		}
	}
	for i := numOthers; i < d.cfg.MaxOtherObjects; i++ {
		zero := scene.NewZeroCloud(d.cfg.NumPoints)
		e.OtherXYZs = append(e.OtherXYZs, zero.Positions)
		e.OtherRGBs = append(e.OtherRGBs, zero.Colors)
		e.OtherObjectPadMask = append(e.OtherObjectPadMask, 1)
	}
}

// buildInferenceData reconstructs the goal keyframe and gathers the recorded
// ground truth used to evaluate predictions. Every object, anchors and
// distractors included, must be visible in the goal scene.
func (d *Dataset) buildInferenceData(
	ep *episode.Episode,
	ids map[string]int64,
	targetObjs, otherObjs []string,
	stepT int,
	injector *scene.NoiseInjector,
	src rand.Source,
) (*InferenceData, error) {
	goalFrame, err := scene.Reconstruct(ep, scene.ViewEndEffector, 0, d.intrinsics, injector)
	if err != nil {
		return nil, err
	}
	goalClouds, err := d.extractClouds(goalFrame, ids, targetObjs, src)
	if err != nil {
		return nil, err
	}
	for _, name := range otherObjs {
		id, ok := ids[name]
		if !ok {
			return nil, errors.Errorf("object %q has no segmentation id", name)
		}
		if goalFrame.ValidPointCount(int32(id)) == 0 {
			return nil, errors.Wrapf(scene.ErrNoObjectPoints, "object %q in goal scene", name)
		}
	}
	data := &InferenceData{
		TargetObjects: append([]string(nil), targetObjs...),
	}
	for i, name := range targetObjs {
		data.GoalObjXYZs = append(data.GoalObjXYZs, goalClouds[i].Positions)
		data.GoalObjRGBs = append(data.GoalObjRGBs, goalClouds[i].Colors)
		goalPose, err := ep.PoseAt(name, 0)
		if err != nil {
			return nil, err
		}
		currentPose, err := ep.PoseAt(name, stepT)
		if err != nil {
			return nil, err
		}
		data.GoalPoses = append(data.GoalPoses, &goalPose)
		data.CurrentPoses = append(data.CurrentPoses, &currentPose)
	}
	return data, nil
}

func float32s(vals []float64) []float32 {
	out := make([]float32, len(vals))
	for i, v := range vals {
		out[i] = float32(v)
	}
	return out
}

func filled(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}
