package dataset

import (
	"encoding/json"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/rearrange-ml/seqprep/spatialmath"
)

// StructureType is the shape of a target arrangement.
type StructureType string

// The recognized arrangement shapes.
const (
	StructureCircle StructureType = "circle"
	StructureLine   StructureType = "line"
	StructureTower  StructureType = "tower"
	StructureDinner StructureType = "dinner"
)

// CheckValid returns a configuration error for unrecognized structure types.
func (s StructureType) CheckValid() error {
	switch s {
	case StructureCircle, StructureLine, StructureTower, StructureDinner:
		return nil
	default:
		return errors.Errorf("%q structure is not recognized", string(s))
	}
}

// reversesTargetOrder reports whether the recorded target-object order must
// be reversed for this shape.
func (s StructureType) reversesTargetOrder() bool {
	return s == StructureCircle || s == StructureLine
}

// StructureParameters are the structure fields of a goal specification.
type StructureParameters struct {
	Type     StructureType `json:"type"`
	Position [3]float64    `json:"position"`
	Rotation [3]float64    `json:"rotation"` // Euler angles, static XYZ
	Radius   float64       `json:"radius,omitempty"`
	Length   float64       `json:"length,omitempty"`
}

// Pose builds the structure's own pose from its recorded position and
// rotation.
func (p StructureParameters) Pose() spatialmath.Pose {
	return spatialmath.NewPoseFromEulerAngles(
		r3.Vector{X: p.Position[0], Y: p.Position[1], Z: p.Position[2]},
		p.Rotation[0], p.Rotation[1], p.Rotation[2],
	)
}

// ObjectGroup is one named list of objects in a goal specification.
type ObjectGroup struct {
	Objects []string `json:"objects"`
}

// GoalSpecification is the symbolic description of an episode: which objects
// to rearrange, which anchor the arrangement, which are distractors, and the
// target structure's parameters.
type GoalSpecification struct {
	Rearrange ObjectGroup         `json:"rearrange"`
	Anchor    ObjectGroup         `json:"anchor"`
	Distract  ObjectGroup         `json:"distract"`
	Shape     StructureParameters `json:"shape"`
}

// ParseGoalSpecification decodes and validates the JSON goal specification
// stored in an episode.
func ParseGoalSpecification(raw string) (*GoalSpecification, error) {
	var spec GoalSpecification
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return nil, errors.Wrap(err, "error parsing goal specification")
	}
	if err := spec.Shape.Type.CheckValid(); err != nil {
		return nil, err
	}
	return &spec, nil
}
