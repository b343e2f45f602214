package episode

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// DType identifies the element type of a stored array.
type DType string

// Supported array element types.
const (
	DTypeUint8   DType = "uint8"
	DTypeUint16  DType = "uint16"
	DTypeInt32   DType = "int32"
	DTypeFloat64 DType = "float64"
)

func (d DType) size() (int, error) {
	switch d {
	case DTypeUint8:
		return 1, nil
	case DTypeUint16:
		return 2, nil
	case DTypeInt32:
		return 4, nil
	case DTypeFloat64:
		return 8, nil
	default:
		return 0, errors.Errorf("unsupported array dtype %q", string(d))
	}
}

// Array is a shaped, typed array stored in an episode document. Data holds
// the elements little-endian in row-major order.
type Array struct {
	Shape []int64 `bson:"shape"`
	DType DType   `bson:"dtype"`
	Data  []byte  `bson:"data"`
}

// Len returns the number of elements implied by the shape.
func (a *Array) Len() int {
	n := 1
	for _, d := range a.Shape {
		n *= int(d)
	}
	return n
}

func (a *Array) checkSize(want DType) error {
	if a.DType != want {
		return errors.Errorf("array has dtype %q, want %q", string(a.DType), string(want))
	}
	sz, err := a.DType.size()
	if err != nil {
		return err
	}
	if len(a.Data) != a.Len()*sz {
		return errors.Errorf("array data has %d bytes, shape %v implies %d",
			len(a.Data), a.Shape, a.Len()*sz)
	}
	return nil
}

// Uint8s decodes a uint8 array.
func (a *Array) Uint8s() ([]uint8, error) {
	if err := a.checkSize(DTypeUint8); err != nil {
		return nil, err
	}
	out := make([]uint8, len(a.Data))
	copy(out, a.Data)
	return out, nil
}

// Uint16s decodes a uint16 array.
func (a *Array) Uint16s() ([]uint16, error) {
	if err := a.checkSize(DTypeUint16); err != nil {
		return nil, err
	}
	out := make([]uint16, a.Len())
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(a.Data[i*2:])
	}
	return out, nil
}

// Int32s decodes an int32 array.
func (a *Array) Int32s() ([]int32, error) {
	if err := a.checkSize(DTypeInt32); err != nil {
		return nil, err
	}
	out := make([]int32, a.Len())
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(a.Data[i*4:]))
	}
	return out, nil
}

// Float64s decodes a float64 array.
func (a *Array) Float64s() ([]float64, error) {
	if err := a.checkSize(DTypeFloat64); err != nil {
		return nil, err
	}
	out := make([]float64, a.Len())
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(a.Data[i*8:]))
	}
	return out, nil
}
