// Package spatialmath implements the rigid transform math used to relate
// recorded object poses, reconstructed point clouds, and goal structures.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Pose is a rigid transform in 3D, stored as a 4x4 homogeneous matrix.
// The zero value is not usable; always construct poses through one of the
// New* functions.
type Pose struct {
	m *mat.Dense
}

// NewZeroPose returns the identity transform.
func NewZeroPose() Pose {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		m.Set(i, i, 1)
	}
	return Pose{m}
}

// NewPoseFromPoint returns a pure translation to the given point.
func NewPoseFromPoint(pt r3.Vector) Pose {
	p := NewZeroPose()
	p.m.Set(0, 3, pt.X)
	p.m.Set(1, 3, pt.Y)
	p.m.Set(2, 3, pt.Z)
	return p
}

// NewPoseFromMatrix builds a pose from 16 row-major values.
func NewPoseFromMatrix(vals []float64) (Pose, error) {
	if len(vals) != 16 {
		return Pose{}, errors.Errorf("pose matrix must have 16 values, got %d", len(vals))
	}
	data := make([]float64, 16)
	copy(data, vals)
	return Pose{mat.NewDense(4, 4, data)}, nil
}

// NewPoseFromEulerAngles builds a pose at pt whose rotation is given by
// static-frame XYZ Euler angles, i.e. R = Rz(yaw) * Ry(pitch) * Rx(roll).
func NewPoseFromEulerAngles(pt r3.Vector, roll, pitch, yaw float64) Pose {
	sr, cr := math.Sin(roll), math.Cos(roll)
	sp, cp := math.Sin(pitch), math.Cos(pitch)
	sy, cy := math.Sin(yaw), math.Cos(yaw)
	p := NewZeroPose()
	p.m.Set(0, 0, cy*cp)
	p.m.Set(0, 1, cy*sp*sr-sy*cr)
	p.m.Set(0, 2, cy*sp*cr+sy*sr)
	p.m.Set(1, 0, sy*cp)
	p.m.Set(1, 1, sy*sp*sr+cy*cr)
	p.m.Set(1, 2, sy*sp*cr-cy*sr)
	p.m.Set(2, 0, -sp)
	p.m.Set(2, 1, cp*sr)
	p.m.Set(2, 2, cp*cr)
	p.m.Set(0, 3, pt.X)
	p.m.Set(1, 3, pt.Y)
	p.m.Set(2, 3, pt.Z)
	return p
}

// Compose returns the pose equivalent to applying b first, then a.
func Compose(a, b Pose) Pose {
	m := mat.NewDense(4, 4, nil)
	m.Mul(a.m, b.m)
	return Pose{m}
}

// Invert returns the inverse transform, using the rigid-body identity
// inv([R t]) = [R^T  -R^T t].
func (p Pose) Invert() Pose {
	inv := NewZeroPose()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			inv.m.Set(i, j, p.m.At(j, i))
		}
	}
	t := p.Point()
	inv.m.Set(0, 3, -(inv.m.At(0, 0)*t.X + inv.m.At(0, 1)*t.Y + inv.m.At(0, 2)*t.Z))
	inv.m.Set(1, 3, -(inv.m.At(1, 0)*t.X + inv.m.At(1, 1)*t.Y + inv.m.At(1, 2)*t.Z))
	inv.m.Set(2, 3, -(inv.m.At(2, 0)*t.X + inv.m.At(2, 1)*t.Y + inv.m.At(2, 2)*t.Z))
	return inv
}

// Point returns the translation component.
func (p Pose) Point() r3.Vector {
	return r3.Vector{X: p.m.At(0, 3), Y: p.m.At(1, 3), Z: p.m.At(2, 3)}
}

// WithTranslation returns a copy of p whose translation is replaced by pt,
// keeping the rotation block.
func (p Pose) WithTranslation(pt r3.Vector) Pose {
	out := p.clone()
	out.m.Set(0, 3, pt.X)
	out.m.Set(1, 3, pt.Y)
	out.m.Set(2, 3, pt.Z)
	return out
}

// RotationFlat returns the 3x3 rotation block flattened row-major into 9 values.
func (p Pose) RotationFlat() []float64 {
	out := make([]float64, 0, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out = append(out, p.m.At(i, j))
		}
	}
	return out
}

// TransformPoint applies the pose to a 3D point.
func (p Pose) TransformPoint(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: p.m.At(0, 0)*v.X + p.m.At(0, 1)*v.Y + p.m.At(0, 2)*v.Z + p.m.At(0, 3),
		Y: p.m.At(1, 0)*v.X + p.m.At(1, 1)*v.Y + p.m.At(1, 2)*v.Z + p.m.At(1, 3),
		Z: p.m.At(2, 0)*v.X + p.m.At(2, 1)*v.Y + p.m.At(2, 2)*v.Z + p.m.At(2, 3),
	}
}

// Matrix returns the 16 row-major values of the pose matrix.
func (p Pose) Matrix() []float64 {
	out := make([]float64, 0, 16)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out = append(out, p.m.At(i, j))
		}
	}
	return out
}

// PoseAlmostEqual reports whether two poses are elementwise within tol.
func PoseAlmostEqual(a, b Pose, tol float64) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(a.m.At(i, j)-b.m.At(i, j)) > tol {
				return false
			}
		}
	}
	return true
}

func (p Pose) clone() Pose {
	m := mat.NewDense(4, 4, nil)
	m.Copy(p.m)
	return Pose{m}
}
