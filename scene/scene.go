// Package scene reconstructs recorded robot scenes into world-frame point
// fields and extracts fixed-size per-object point clouds from them.
package scene

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/rearrange-ml/seqprep/camera"
	"github.com/rearrange-ml/seqprep/episode"
)

// Depth values outside (minValidDepth, maxValidDepth) meters are treated as
// sensor dropout and excluded from object clouds.
const (
	minValidDepth = 0.1
	maxValidDepth = 2.0
)

// depthScale is the fixed quantization denominator of recorded raw depth.
const depthScale = 20000.0

// View selects which recorded camera a frame is reconstructed from.
type View string

// The recorded camera views.
const (
	ViewExternal    View = ""
	ViewEndEffector View = "ee_"
)

func (v View) key(base string) string {
	return string(v) + base
}

// Frame is one reconstructed scene: colors in [0,1], metric depth, per-pixel
// segmentation ids, a depth validity mask, and a world-frame 3D point per
// pixel. All slices are row-major with length Width*Height (RGB is
// Width*Height*3).
type Frame struct {
	Width  int
	Height int
	RGB    []float32
	Depth  []float64
	Seg    []int32
	Valid  []bool
	XYZ    []r3.Vector
}

// Reconstruct decodes the stored arrays for timestep idx of the given camera
// view and back-projects depth into a world-frame point field. A non-nil
// injector perturbs depth before back-projection and the point field after;
// a nil injector leaves the reconstruction bit-exact.
func Reconstruct(
	ep *episode.Episode,
	view View,
	idx int,
	intrinsics *camera.PinholeCameraIntrinsics,
	injector *NoiseInjector,
) (*Frame, error) {
	dmin, err := ep.Float(view.key("depth_min"), idx)
	if err != nil {
		return nil, err
	}
	dmax, err := ep.Float(view.key("depth_max"), idx)
	if err != nil {
		return nil, err
	}

	rgb, width, height, err := decodeRGB(ep, view.key("rgb"), idx)
	if err != nil {
		return nil, err
	}
	if intrinsics.Width != width || intrinsics.Height != height {
		return nil, errors.Errorf("frame dimension and intrinsics don't match Frame(%d,%d) != Intrinsics(%d,%d)",
			width, height, intrinsics.Width, intrinsics.Height)
	}
	depth, err := decodeDepth(ep, view.key("depth"), idx, width, height, dmin, dmax)
	if err != nil {
		return nil, err
	}
	seg, err := decodeSeg(ep, view.key("seg"), idx, width, height)
	if err != nil {
		return nil, err
	}

	valid := make([]bool, len(depth))
	for i, d := range depth {
		valid[i] = d > minValidDepth && d < maxValidDepth
	}

	camPose, err := ep.PoseAt(view.key("camera_view"), idx)
	if err != nil {
		return nil, err
	}
	if view == ViewEndEffector {
		// the recorded end-effector camera view zeroes out x, y, z; the real
		// translation lives in the separately recorded camera pose
		eePose, err := ep.Pose("ee_cam_pose")
		if err != nil {
			return nil, err
		}
		camPose = camPose.WithTranslation(eePose.Point())
	}

	if injector != nil {
		injector.PerturbDepth(depth)
	}
	xyz, err := intrinsics.ComputeXYZ(depth)
	if err != nil {
		return nil, err
	}
	if injector != nil {
		if err := injector.PerturbPoints(xyz, depth, width, height); err != nil {
			return nil, err
		}
	}
	for i, pt := range xyz {
		xyz[i] = camPose.TransformPoint(pt)
	}

	return &Frame{
		Width:  width,
		Height: height,
		RGB:    rgb,
		Depth:  depth,
		Seg:    seg,
		Valid:  valid,
		XYZ:    xyz,
	}, nil
}

// decodeRGB extracts frame idx from a (T, H, W, 4) uint8 array, strips the
// alpha channel, and rescales to [0,1].
func decodeRGB(ep *episode.Episode, key string, idx int) ([]float32, int, int, error) {
	a, err := ep.Array(key)
	if err != nil {
		return nil, 0, 0, err
	}
	if len(a.Shape) != 4 || a.Shape[3] != 4 {
		return nil, 0, 0, errors.Errorf("%q has shape %v, want (T, H, W, 4)", key, a.Shape)
	}
	raw, err := a.Uint8s()
	if err != nil {
		return nil, 0, 0, err
	}
	height, width := int(a.Shape[1]), int(a.Shape[2])
	frame, err := frameSlice(raw, a.Shape, idx, key)
	if err != nil {
		return nil, 0, 0, err
	}
	out := make([]float32, width*height*3)
	for i := 0; i < width*height; i++ {
		out[i*3] = float32(frame[i*4]) / 255.
		out[i*3+1] = float32(frame[i*4+1]) / 255.
		out[i*3+2] = float32(frame[i*4+2]) / 255.
	}
	return out, width, height, nil
}

// decodeDepth extracts frame idx from a (T, H, W) uint16 array and rescales
// raw samples to meters against the per-frame depth bounds.
func decodeDepth(ep *episode.Episode, key string, idx, width, height int, dmin, dmax float64) ([]float64, error) {
	a, err := ep.Array(key)
	if err != nil {
		return nil, err
	}
	raw, err := a.Uint16s()
	if err != nil {
		return nil, err
	}
	frame, err := frameSlice(raw, a.Shape, idx, key)
	if err != nil {
		return nil, err
	}
	if len(frame) != width*height {
		return nil, errors.Errorf("%q frame has %d pixels, want %d", key, len(frame), width*height)
	}
	out := make([]float64, len(frame))
	for i, v := range frame {
		out[i] = float64(v)/depthScale*(dmax-dmin) + dmin
	}
	return out, nil
}

func decodeSeg(ep *episode.Episode, key string, idx, width, height int) ([]int32, error) {
	a, err := ep.Array(key)
	if err != nil {
		return nil, err
	}
	raw, err := a.Int32s()
	if err != nil {
		return nil, err
	}
	frame, err := frameSlice(raw, a.Shape, idx, key)
	if err != nil {
		return nil, err
	}
	if len(frame) != width*height {
		return nil, errors.Errorf("%q frame has %d pixels, want %d", key, len(frame), width*height)
	}
	out := make([]int32, len(frame))
	copy(out, frame)
	return out, nil
}

// frameSlice selects timestep idx along the leading axis of a flattened array.
func frameSlice[T any](vals []T, shape []int64, idx int, key string) ([]T, error) {
	if len(shape) < 2 {
		return nil, errors.Errorf("%q has shape %v, want a leading timestep axis", key, shape)
	}
	n := 1
	for _, d := range shape[1:] {
		n *= int(d)
	}
	if idx < 0 || (idx+1)*n > len(vals) {
		return nil, errors.Errorf("timestep %d out of range for %q (%d frames)", idx, key, int(shape[0]))
	}
	return vals[idx*n : (idx+1)*n], nil
}
