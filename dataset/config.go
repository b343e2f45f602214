package dataset

import "github.com/pkg/errors"

// Config fixes the capacities and behavior of example construction.
type Config struct {
	// MaxObjects is the capacity of target (rearranged) object slots.
	MaxObjects int `json:"max_num_objects"`
	// MaxOtherObjects is the capacity of anchor + distractor slots.
	MaxOtherObjects int `json:"max_num_other_objects"`
	// MaxShapeParameters is the fixed structure-sentence length.
	MaxShapeParameters int `json:"max_num_shape_parameters"`
	// NumPoints is the fixed per-object point cloud size.
	NumPoints int `json:"num_pts"`
	// UseStructureFrame expresses target poses relative to the structure's
	// own pose instead of the world frame, and adds the structure token.
	UseStructureFrame bool `json:"use_structure_frame"`
	// ShuffleObjectIndex permutes the order of real target-object slots.
	ShuffleObjectIndex bool `json:"shuffle_object_index"`
	// DataAugmentation enables depth and point-field noise.
	DataAugmentation bool `json:"data_augmentation"`
}

// CheckValid checks if the fields of the config have valid inputs. A sentence
// needs five slots for the longest structure description.
func (c *Config) CheckValid() error {
	if c.MaxObjects <= 0 {
		return errors.Errorf("invalid max_num_objects %d", c.MaxObjects)
	}
	if c.MaxOtherObjects <= 0 {
		return errors.Errorf("invalid max_num_other_objects %d", c.MaxOtherObjects)
	}
	if c.MaxShapeParameters < 5 {
		return errors.Errorf("max_num_shape_parameters must be at least 5, got %d", c.MaxShapeParameters)
	}
	if c.NumPoints <= 0 {
		return errors.Errorf("invalid num_pts %d", c.NumPoints)
	}
	return nil
}
