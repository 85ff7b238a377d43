// Package volume holds dense N-d float64 volumes and the transforms that
// turn a raw scan or label map into rows for the container.
package volume

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrShape             = errors.New("invalid volume shape")
	ErrAxis              = errors.New("axis out of range")
	ErrDegenerateChannel = errors.New("channel has zero or non-finite standard deviation")
)

// Volume is a row-major N-d array. The last axis varies fastest.
type Volume struct {
	Shape []int
	Data  []float64
}

// New allocates a zero volume.
func New(shape ...int) *Volume {
	return &Volume{Shape: slices.Clone(shape), Data: make([]float64, count(shape))}
}

// FromData wraps data without copying.
func FromData(shape []int, data []float64) (*Volume, error) {
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("%w: %v", ErrShape, shape)
		}
	}
	if n := count(shape); n != len(data) {
		return nil, fmt.Errorf("%w: shape %v needs %d values, got %d", ErrShape, shape, n, len(data))
	}
	return &Volume{Shape: slices.Clone(shape), Data: data}, nil
}

func count(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Rank is the number of axes.
func (v *Volume) Rank() int { return len(v.Shape) }

// Len is the number of elements.
func (v *Volume) Len() int { return len(v.Data) }

// Strides returns the element stride of each axis.
func (v *Volume) Strides() []int {
	return strides(v.Shape)
}

func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

func (v *Volume) offset(idx []int) int {
	if len(idx) != len(v.Shape) {
		panic(fmt.Sprintf("volume: %d indices for rank %d", len(idx), len(v.Shape)))
	}
	off := 0
	for i, s := range v.Strides() {
		off += idx[i] * s
	}
	return off
}

// At returns the element at idx.
func (v *Volume) At(idx ...int) float64 { return v.Data[v.offset(idx)] }

// Set stores val at idx.
func (v *Volume) Set(val float64, idx ...int) { v.Data[v.offset(idx)] = val }

// Clone returns a deep copy.
func (v *Volume) Clone() *Volume {
	return &Volume{Shape: slices.Clone(v.Shape), Data: slices.Clone(v.Data)}
}

// Rows is the length of the leading axis.
func (v *Volume) Rows() int {
	if len(v.Shape) == 0 {
		return 1
	}
	return v.Shape[0]
}

// RowShape is the shape without the leading axis.
func (v *Volume) RowShape() []int {
	if len(v.Shape) == 0 {
		return nil
	}
	return slices.Clone(v.Shape[1:])
}

// RowShape64 is RowShape as unsigned dimensions.
func (v *Volume) RowShape64() []uint64 {
	rs := v.RowShape()
	out := make([]uint64, len(rs))
	for i, d := range rs {
		out[i] = uint64(d)
	}
	return out
}

func (v *Volume) String() string {
	return fmt.Sprintf("volume%v", v.Shape)
}

// normAxis resolves a possibly negative axis against rank.
func normAxis(axis, rank int) (int, error) {
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		return 0, fmt.Errorf("%w: %d for rank %d", ErrAxis, axis, rank)
	}
	return axis, nil
}

// walk calls fn with each multi-index of shape in row-major order, along
// with the flat offset under dstStrides.
func walk(shape, dstStrides []int, fn func(src, dst int)) {
	n := count(shape)
	if n == 0 {
		return
	}
	idx := make([]int, len(shape))
	dst := 0
	for src := range n {
		fn(src, dst)
		for ax := len(shape) - 1; ax >= 0; ax-- {
			idx[ax]++
			dst += dstStrides[ax]
			if idx[ax] < shape[ax] {
				break
			}
			dst -= idx[ax] * dstStrides[ax]
			idx[ax] = 0
		}
	}
}
