// Package testutils builds synthetic episode files for tests: small frames
// with rectangular objects at fixed depth, recorded from both camera views.
package testutils

import (
	"image"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/rearrange-ml/seqprep/camera"
	"github.com/rearrange-ml/seqprep/episode"
	"github.com/rearrange-ml/seqprep/spatialmath"
)

// Object is a rectangle of pixels with one segmentation id at a fixed depth.
type Object struct {
	Name  string
	ID    int32
	Rect  image.Rectangle
	Depth float64
	Color [3]uint8
}

// EpisodeConfig describes a synthetic episode to write.
type EpisodeConfig struct {
	Width, Height int
	Timesteps     int
	Objects       []Object
	GoalSpec      string
	MovedObjects  []string
	// CameraTranslation is recorded as ee_cam_pose; the stored ee_camera_view
	// keeps a zeroed translation, as the real recorder does.
	CameraTranslation r3.Vector
	// ObjectPoses overrides the per-keyframe pose array for named objects;
	// everything else gets identity poses at every keyframe.
	ObjectPoses map[string][]spatialmath.Pose
	// ObjectsAtGoal, when non-nil, is rendered at keyframe 0 instead of
	// Objects, so goal and current scenes can differ. Segmentation ids and
	// pose arrays still come from Objects.
	ObjectsAtGoal []Object
	// DepthMin/DepthMax default to 0.05 and 1.5, which leaves background
	// pixels (raw 0) below the validity threshold.
	DepthMin, DepthMax float64
}

// Intrinsics returns simple pinhole intrinsics centered on a WxH frame.
func Intrinsics(width, height int) *camera.PinholeCameraIntrinsics {
	return &camera.PinholeCameraIntrinsics{
		Width:  width,
		Height: height,
		Fx:     50,
		Fy:     50,
		Ppx:    float64(width) / 2,
		Ppy:    float64(height) / 2,
	}
}

// WriteEpisode renders the config and writes an episode file into a temp
// directory, returning its path.
func WriteEpisode(tb testing.TB, cfg EpisodeConfig) string {
	tb.Helper()
	if cfg.Timesteps == 0 {
		cfg.Timesteps = 1
	}
	if cfg.DepthMin == 0 && cfg.DepthMax == 0 {
		cfg.DepthMin, cfg.DepthMax = 0.05, 1.5
	}
	w, h, steps := cfg.Width, cfg.Height, cfg.Timesteps

	render := func(objs []Object) ([]uint8, []uint16, []int32) {
		rgb := make([]uint8, w*h*4)
		depth := make([]uint16, w*h)
		seg := make([]int32, w*h)
		for _, obj := range objs {
			raw := uint16(math.Round((obj.Depth - cfg.DepthMin) / (cfg.DepthMax - cfg.DepthMin) * 20000))
			for y := obj.Rect.Min.Y; y < obj.Rect.Max.Y; y++ {
				for x := obj.Rect.Min.X; x < obj.Rect.Max.X; x++ {
					i := y*w + x
					depth[i] = raw
					seg[i] = obj.ID
					rgb[i*4] = obj.Color[0]
					rgb[i*4+1] = obj.Color[1]
					rgb[i*4+2] = obj.Color[2]
					rgb[i*4+3] = 255
				}
			}
		}
		return rgb, depth, seg
	}

	rgb, depth, seg := render(cfg.Objects)
	rgbT := repeat(rgb, steps)
	depthT := repeat(depth, steps)
	segT := repeat(seg, steps)
	if cfg.ObjectsAtGoal != nil {
		goalRGB, goalDepth, goalSeg := render(cfg.ObjectsAtGoal)
		copy(rgbT[:len(goalRGB)], goalRGB)
		copy(depthT[:len(goalDepth)], goalDepth)
		copy(segT[:len(goalSeg)], goalSeg)
	}
	bounds := func(v float64) []float64 {
		out := make([]float64, steps)
		for i := range out {
			out[i] = v
		}
		return out
	}
	views := make([]spatialmath.Pose, steps)
	for i := range views {
		views[i] = spatialmath.NewZeroPose()
	}

	b := episode.NewBuilder()
	for _, prefix := range []string{"", "ee_"} {
		b.PutUint8Array(prefix+"rgb", []int64{int64(steps), int64(h), int64(w), 4}, rgbT)
		b.PutUint16Array(prefix+"depth", []int64{int64(steps), int64(h), int64(w)}, depthT)
		b.PutInt32Array(prefix+"seg", []int64{int64(steps), int64(h), int64(w)}, segT)
		b.PutFloat64Array(prefix+"depth_min", []int64{int64(steps)}, bounds(cfg.DepthMin))
		b.PutFloat64Array(prefix+"depth_max", []int64{int64(steps)}, bounds(cfg.DepthMax))
		b.PutPoses(prefix+"camera_view", views)
	}
	b.PutPose("ee_cam_pose", spatialmath.NewPoseFromPoint(cfg.CameraTranslation))

	for _, obj := range cfg.Objects {
		b.PutInt("id_"+obj.Name, int64(obj.ID))
		poses, ok := cfg.ObjectPoses[obj.Name]
		if !ok {
			poses = make([]spatialmath.Pose, steps)
			for i := range poses {
				poses[i] = spatialmath.NewZeroPose()
			}
		}
		b.PutPoses(obj.Name, poses)
	}

	if cfg.GoalSpec != "" {
		b.PutString("goal_specification", cfg.GoalSpec)
	}
	if len(cfg.MovedObjects) > 0 {
		b.PutString("moved_objs", strings.Join(cfg.MovedObjects, ","))
	}

	path := filepath.Join(tb.TempDir(), "episode.bson")
	if err := b.WriteFile(path); err != nil {
		tb.Fatal(err)
	}
	return path
}

func repeat[T any](frame []T, n int) []T {
	out := make([]T, 0, len(frame)*n)
	for i := 0; i < n; i++ {
		out = append(out, frame...)
	}
	return out
}
