// Package main is the seqprep command: inspect recorded episodes and dry-run
// example construction and batching over them.
package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/edaniels/golog"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/rearrange-ml/seqprep/camera"
	"github.com/rearrange-ml/seqprep/dataset"
	"github.com/rearrange-ml/seqprep/episode"
	"github.com/rearrange-ml/seqprep/scene"
)

const (
	flagIntrinsics     = "intrinsics"
	flagMaxObjects     = "max-objects"
	flagMaxOther       = "max-other-objects"
	flagNumPoints      = "num-points"
	flagStructureFrame = "structure-frame"
	flagShuffle        = "shuffle"
	flagAugment        = "augment"
	flagDebug          = "debug"
)

func main() {
	var logger golog.Logger
	app := &cli.App{
		Name:            "seqprep",
		Usage:           "prepare rearrangement training examples from recorded episodes",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = golog.NewDebugLogger("seqprep")
			} else {
				logger = golog.NewLogger("seqprep")
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "print the contents of an episode file",
				ArgsUsage: "<episode file>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return errors.New("expected exactly one episode file")
					}
					return inspectEpisode(c.App.Writer, c.Args().First())
				},
			},
			{
				Name:      "batch",
				Usage:     "build examples from episode files and collate them into one batch",
				ArgsUsage: "<episode file> [episode file ...]",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagIntrinsics,
						Required: true,
						Usage:    "camera intrinsics JSON file",
					},
					&cli.IntFlag{
						Name:  flagMaxObjects,
						Value: 7,
						Usage: "target object slot capacity",
					},
					&cli.IntFlag{
						Name:  flagMaxOther,
						Value: 5,
						Usage: "anchor and distractor slot capacity",
					},
					&cli.IntFlag{
						Name:  flagNumPoints,
						Value: 1024,
						Usage: "points sampled per object cloud",
					},
					&cli.BoolFlag{
						Name:  flagStructureFrame,
						Usage: "express target poses in the structure frame",
					},
					&cli.BoolFlag{
						Name:  flagShuffle,
						Usage: "shuffle target object slots",
					},
					&cli.BoolFlag{
						Name:  flagAugment,
						Usage: "apply depth and point noise",
					},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return errors.New("expected at least one episode file")
					}
					return buildBatch(c, logger)
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		golog.Global().Fatal(err)
	}
}

func inspectEpisode(w io.Writer, path string) error {
	ep, err := episode.Open(path)
	if err != nil {
		return err
	}

	keys, err := ep.Keys()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "episode %s (%d fields)\n", path, len(keys))

	ids, err := ep.ObjectIDs()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(ids))
	for name := range ids {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  object %-24s segmentation id %d\n", name, ids[name])
	}

	if ep.Has("goal_specification") {
		spec, err := ep.String("goal_specification")
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  goal specification: %s\n", spec)
	}
	if ep.Has("moved_objs") {
		moved, err := ep.String("moved_objs")
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  moved objects: %s\n", moved)
	}

	return depthStats(w, ep)
}

// depthStats summarizes the first keyframe's decoded hand-camera depth.
func depthStats(w io.Writer, ep *episode.Episode) error {
	arr, err := ep.Array("ee_depth")
	if err != nil {
		return err
	}
	raw, err := arr.Uint16s()
	if err != nil {
		return err
	}
	if len(arr.Shape) < 1 || arr.Shape[0] == 0 {
		return errors.New("ee_depth has no keyframes")
	}
	frame := len(raw) / int(arr.Shape[0])
	dmin, err := ep.Float("ee_depth_min", 0)
	if err != nil {
		return err
	}
	dmax, err := ep.Float("ee_depth_max", 0)
	if err != nil {
		return err
	}

	depths := make([]float64, 0, frame)
	for _, v := range raw[:frame] {
		depths = append(depths, float64(v)/20000*(dmax-dmin)+dmin)
	}
	minD, err := stats.Min(depths)
	if err != nil {
		return err
	}
	maxD, err := stats.Max(depths)
	if err != nil {
		return err
	}
	meanD, err := stats.Mean(depths)
	if err != nil {
		return err
	}
	medianD, err := stats.Median(depths)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  depth (m): min %.4f max %.4f mean %.4f median %.4f over %d pixels\n",
		minD, maxD, meanD, medianD, len(depths))
	return nil
}

func buildBatch(c *cli.Context, logger golog.Logger) error {
	intrinsics, err := camera.NewPinholeCameraIntrinsicsFromJSONFile(c.Path(flagIntrinsics))
	if err != nil {
		return err
	}
	cfg := dataset.Config{
		MaxObjects:         c.Int(flagMaxObjects),
		MaxOtherObjects:    c.Int(flagMaxOther),
		MaxShapeParameters: 5,
		NumPoints:          c.Int(flagNumPoints),
		UseStructureFrame:  c.Bool(flagStructureFrame),
		ShuffleObjectIndex: c.Bool(flagShuffle),
		DataAugmentation:   c.Bool(flagAugment),
	}
	tok := newInternTokenizer()
	d, err := dataset.NewDataset(cfg, tok, intrinsics, logger)
	if err != nil {
		return err
	}

	var tensors []*dataset.ExampleTensors
	for _, path := range c.Args().Slice() {
		e, err := d.LoadExample(path, dataset.BuildOptions{})
		if errors.Is(err, scene.ErrNoObjectPoints) {
			logger.Warnw("skipping episode with an empty object mask", "path", path, "error", err)
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "episode %q", path)
		}
		ts, err := e.Tensorize(tok)
		if err != nil {
			return errors.Wrapf(err, "episode %q", path)
		}
		tensors = append(tensors, ts)
	}
	if len(tensors) == 0 {
		return errors.New("no usable episodes")
	}

	batch, err := dataset.Collate(tensors)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "collated %d examples\n", len(batch.Filenames))
	fmt.Fprintf(c.App.Writer, "  xyzs %v rgbs %v\n", batch.XYZs.Shape(), batch.RGBs.Shape())
	fmt.Fprintf(c.App.Writer, "  other_xyzs %v sentence %v\n", batch.OtherXYZs.Shape(), batch.Sentence.Shape())
	fmt.Fprintf(c.App.Writer, "  pose outputs %v theta %v\n", batch.ObjXOutputs.Shape(), batch.ObjThetaOutputs.Shape())
	if batch.Structure != nil {
		fmt.Fprintf(c.App.Writer, "  structure inputs %v\n", batch.Structure.ThetaInputs.Shape())
	}
	fmt.Fprintf(c.App.Writer, "  vocabulary so far: %d entries\n", tok.Size())
	return nil
}

// internTokenizer is a throwaway vocabulary for dry runs: words are interned
// in arrival order and scalar values are bucketed per role on a millimeter
// (or milliradian) grid. A real training run supplies the model's tokenizer.
type internTokenizer struct {
	mu    sync.Mutex
	vocab map[string]int64
}

func newInternTokenizer() *internTokenizer {
	return &internTokenizer{vocab: map[string]int64{}}
}

func (tok *internTokenizer) Tokenize(t dataset.Token) (int64, error) {
	key := t.Word
	if key == "" {
		key = fmt.Sprintf("%s:%d", t.Role, int64(math.Round(t.Value*1000)))
	}
	tok.mu.Lock()
	defer tok.mu.Unlock()
	id, ok := tok.vocab[key]
	if !ok {
		id = int64(len(tok.vocab))
		tok.vocab[key] = id
	}
	return id, nil
}

func (tok *internTokenizer) Size() int {
	tok.mu.Lock()
	defer tok.mu.Unlock()
	return len(tok.vocab)
}
