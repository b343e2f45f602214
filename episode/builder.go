package episode

import (
	"encoding/binary"
	"math"
	"os"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/rearrange-ml/seqprep/spatialmath"
)

// Builder accumulates fields for an episode document and writes it out.
// Used by recording tooling and test fixtures.
type Builder struct {
	doc bson.D
}

// NewBuilder returns an empty episode builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// PutInt adds an integer field, e.g. an "id_" segmentation id.
func (b *Builder) PutInt(key string, v int64) *Builder {
	b.doc = append(b.doc, bson.E{Key: key, Value: v})
	return b
}

// PutString adds a string field, e.g. the goal specification JSON.
func (b *Builder) PutString(key, v string) *Builder {
	b.doc = append(b.doc, bson.E{Key: key, Value: v})
	return b
}

func (b *Builder) putArray(key string, shape []int64, dtype DType, data []byte) *Builder {
	b.doc = append(b.doc, bson.E{Key: key, Value: Array{Shape: shape, DType: dtype, Data: data}})
	return b
}

// PutUint8Array adds a shaped uint8 array.
func (b *Builder) PutUint8Array(key string, shape []int64, vals []uint8) *Builder {
	data := make([]byte, len(vals))
	copy(data, vals)
	return b.putArray(key, shape, DTypeUint8, data)
}

// PutUint16Array adds a shaped uint16 array.
func (b *Builder) PutUint16Array(key string, shape []int64, vals []uint16) *Builder {
	data := make([]byte, len(vals)*2)
	for i, v := range vals {
		binary.LittleEndian.PutUint16(data[i*2:], v)
	}
	return b.putArray(key, shape, DTypeUint16, data)
}

// PutInt32Array adds a shaped int32 array.
func (b *Builder) PutInt32Array(key string, shape []int64, vals []int32) *Builder {
	data := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(v))
	}
	return b.putArray(key, shape, DTypeInt32, data)
}

// PutFloat64Array adds a shaped float64 array.
func (b *Builder) PutFloat64Array(key string, shape []int64, vals []float64) *Builder {
	data := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	return b.putArray(key, shape, DTypeFloat64, data)
}

// PutPose adds a single 4x4 pose field.
func (b *Builder) PutPose(key string, p spatialmath.Pose) *Builder {
	return b.PutFloat64Array(key, []int64{4, 4}, p.Matrix())
}

// PutPoses adds a pose array field shaped (len(poses), 4, 4).
func (b *Builder) PutPoses(key string, poses []spatialmath.Pose) *Builder {
	vals := make([]float64, 0, len(poses)*16)
	for _, p := range poses {
		vals = append(vals, p.Matrix()...)
	}
	return b.PutFloat64Array(key, []int64{int64(len(poses)), 4, 4}, vals)
}

// Bytes marshals the accumulated document.
func (b *Builder) Bytes() ([]byte, error) {
	return bson.Marshal(b.doc)
}

// WriteFile marshals the accumulated document and writes it to path.
func (b *Builder) WriteFile(path string) error {
	data, err := b.Bytes()
	if err != nil {
		return errors.Wrap(err, "error marshaling episode")
	}
	//nolint:gosec
	return os.WriteFile(path, data, 0o644)
}
