package volume

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CropAxes is the number of leading spatial axes CenterCrop trims.
const CropAxes = 3

// CenterCrop takes a centred window of side s on each of the first three
// axes. Axes shorter than s are kept whole; later axes are untouched.
func CenterCrop(v *Volume, s int) (*Volume, error) {
	if s <= 0 {
		return nil, fmt.Errorf("%w: crop size %d", ErrShape, s)
	}
	outShape := slices.Clone(v.Shape)
	base := 0
	st := v.Strides()
	for ax := range min(CropAxes, v.Rank()) {
		size := v.Shape[ax]
		start := max(size/2-s/2, 0)
		end := min(start+s, size)
		outShape[ax] = end - start
		base += start * st[ax]
	}

	out := New(outShape...)
	walk(outShape, st, func(o, src int) {
		out.Data[o] = v.Data[base+src]
	})
	return out, nil
}

// DegeneratePolicy decides what Normalize does with a channel whose
// standard deviation is zero or not finite.
type DegeneratePolicy int

const (
	// CentreDegenerate zeroes the channel and reports it.
	CentreDegenerate DegeneratePolicy = iota
	// StrictDegenerate fails with ErrDegenerateChannel.
	StrictDegenerate
)

// Normalize scales every channel (last axis) of a 4-D volume in place to
// zero mean and unit population standard deviation. It returns the indices
// of degenerate channels.
func Normalize(v *Volume, policy DegeneratePolicy) ([]int, error) {
	if v.Rank() != 4 {
		return nil, fmt.Errorf("%w: normalize needs rank 4, got %v", ErrShape, v.Shape)
	}
	channels := v.Shape[3]
	n := v.Len() / max(channels, 1)
	buf := make([]float64, n)

	var degenerate []int
	for c := range channels {
		for i := range n {
			buf[i] = v.Data[i*channels+c]
		}
		mean, std := stat.PopMeanStdDev(buf, nil)
		if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
			if policy == StrictDegenerate {
				return degenerate, fmt.Errorf("%w: channel %d (std %g)", ErrDegenerateChannel, c, std)
			}
			degenerate = append(degenerate, c)
			for i := range buf {
				buf[i] = 0
			}
		} else {
			floats.AddConst(-mean, buf)
			floats.Scale(1/std, buf)
		}
		for i := range n {
			v.Data[i*channels+c] = buf[i]
		}
	}
	return degenerate, nil
}

// Binarize folds every label above 1 into 1, in place.
func Binarize(v *Volume) {
	for i, x := range v.Data {
		if x > 1 {
			v.Data[i] = 1
		}
	}
}

// SwapAxes returns a copy with axes a and b exchanged. Negative axes count
// from the end.
func SwapAxes(v *Volume, a, b int) (*Volume, error) {
	a, err := normAxis(a, v.Rank())
	if err != nil {
		return nil, err
	}
	b, err = normAxis(b, v.Rank())
	if err != nil {
		return nil, err
	}

	outShape := slices.Clone(v.Shape)
	outShape[a], outShape[b] = outShape[b], outShape[a]
	out := New(outShape...)

	// Stride in out of each source axis.
	dst := strides(outShape)
	dst[a], dst[b] = dst[b], dst[a]
	walk(v.Shape, dst, func(src, o int) {
		out.Data[o] = v.Data[src]
	})
	return out, nil
}

// ExpandDims inserts a length-1 axis at position axis; -1 appends one.
func ExpandDims(v *Volume, axis int) (*Volume, error) {
	axis, err := normAxis(axis, v.Rank()+1)
	if err != nil {
		return nil, err
	}
	shape := slices.Insert(slices.Clone(v.Shape), axis, 1)
	return &Volume{Shape: shape, Data: v.Data}, nil
}

// PrepareImage turns a raw (X, Y, Z[, C]) scan into (Z, Y, X, C) rows:
// centre crop, per-channel normalisation, then swap of axes 0 and -2.
func PrepareImage(raw *Volume, s int, policy DegeneratePolicy) (*Volume, []int, error) {
	v := raw
	if v.Rank() == 3 {
		var err error
		if v, err = ExpandDims(v, -1); err != nil {
			return nil, nil, err
		}
	}
	if v.Rank() != 4 {
		return nil, nil, fmt.Errorf("%w: image must be 3-D or 4-D, got %v", ErrShape, raw.Shape)
	}

	v, err := CenterCrop(v, s)
	if err != nil {
		return nil, nil, err
	}
	degenerate, err := Normalize(v, policy)
	if err != nil {
		return nil, nil, err
	}
	v, err = SwapAxes(v, 0, -2)
	if err != nil {
		return nil, nil, err
	}
	return v, degenerate, nil
}

// PrepareMask turns a raw (X, Y, Z) label map into (Z, Y, X, 1) rows:
// centre crop, binarisation, swap of axes 0 and -1, trailing channel.
func PrepareMask(raw *Volume, s int) (*Volume, error) {
	if raw.Rank() != 3 {
		return nil, fmt.Errorf("%w: mask must be 3-D, got %v", ErrShape, raw.Shape)
	}
	v, err := CenterCrop(raw, s)
	if err != nil {
		return nil, err
	}
	Binarize(v)
	if v, err = SwapAxes(v, 0, -1); err != nil {
		return nil, err
	}
	return ExpandDims(v, -1)
}

// Transpose reverses the order of all axes.
func Transpose(v *Volume) *Volume {
	rank := v.Rank()
	outShape := make([]int, rank)
	for i, d := range v.Shape {
		outShape[rank-1-i] = d
	}
	out := New(outShape...)

	ts := strides(outShape)
	dst := make([]int, rank)
	for i := range dst {
		dst[i] = ts[rank-1-i]
	}
	walk(v.Shape, dst, func(src, o int) {
		out.Data[o] = v.Data[src]
	})
	return out
}
