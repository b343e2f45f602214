package scene

import (
	"math/rand/v2"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrNoObjectPoints is returned when an object's segmentation mask selects no
// depth-valid pixels, which indicates an occluded or corrupted object. The
// caller is expected to drop the whole example.
var ErrNoObjectPoints = errors.New("object mask selected no valid points")

// ObjectCloud is a fixed-cardinality sampled point cloud for one object.
// Positions and Colors are row-major (NumPoints, 3).
type ObjectCloud struct {
	Positions []float32
	Colors    []float32
	NumPoints int
}

// NewZeroCloud returns an all-zero cloud used to pad object slots.
func NewZeroCloud(numPts int) *ObjectCloud {
	return &ObjectCloud{
		Positions: make([]float32, numPts*3),
		Colors:    make([]float32, numPts*3),
		NumPoints: numPts,
	}
}

// Center returns the mean position of the cloud.
func (c *ObjectCloud) Center() r3.Vector {
	var sum r3.Vector
	for i := 0; i < c.NumPoints; i++ {
		sum.X += float64(c.Positions[i*3])
		sum.Y += float64(c.Positions[i*3+1])
		sum.Z += float64(c.Positions[i*3+2])
	}
	n := float64(c.NumPoints)
	return r3.Vector{X: sum.X / n, Y: sum.Y / n, Z: sum.Z / n}
}

// ValidPointCount returns how many depth-valid pixels carry the given
// segmentation id.
func (f *Frame) ValidPointCount(id int32) int {
	var n int
	for i, s := range f.Seg {
		if s == id && f.Valid[i] {
			n++
		}
	}
	return n
}

// ObjectCloud samples exactly numPts (position, color) pairs from the pixels
// whose segmentation id matches and whose depth is valid: without replacement
// when enough pixels are available, with replacement otherwise. Returns
// ErrNoObjectPoints when the mask is empty.
func (f *Frame) ObjectCloud(id int32, numPts int, src rand.Source) (*ObjectCloud, error) {
	var idxs []int
	for i, s := range f.Seg {
		if s == id && f.Valid[i] {
			idxs = append(idxs, i)
		}
	}
	if len(idxs) == 0 {
		return nil, errors.Wrapf(ErrNoObjectPoints, "object id %d", id)
	}

	r := rand.New(src)
	picks := make([]int, numPts)
	if len(idxs) >= numPts {
		perm := r.Perm(len(idxs))
		for i := 0; i < numPts; i++ {
			picks[i] = idxs[perm[i]]
		}
	} else {
		for i := range picks {
			picks[i] = idxs[r.IntN(len(idxs))]
		}
	}

	cloud := NewZeroCloud(numPts)
	for i, px := range picks {
		pt := f.XYZ[px]
		cloud.Positions[i*3] = float32(pt.X)
		cloud.Positions[i*3+1] = float32(pt.Y)
		cloud.Positions[i*3+2] = float32(pt.Z)
		cloud.Colors[i*3] = f.RGB[px*3]
		cloud.Colors[i*3+1] = f.RGB[px*3+1]
		cloud.Colors[i*3+2] = f.RGB[px*3+2]
	}
	return cloud, nil
}
