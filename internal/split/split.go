// Package split assigns sample indices to training and validation sets
// from a seeded Mersenne Twister, reproducing NumPy's legacy
// np.random.seed(s); np.random.random(n) sequence.
package split

import (
	"errors"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/mathext/prng"
)

// DefaultSeed is the seed the published dataset splits were made with.
const DefaultSeed = 816

var (
	ErrInvalidCount = errors.New("sample count must be positive")
	ErrInvalidRatio = errors.New("split ratio must lie in [0, 1]")
	ErrPartition    = errors.New("invalid partition")
)

// Partition lists training and validation indices in ascending order.
type Partition struct {
	Train    []int
	Validate []int
}

// Draws returns n uniform doubles in [0, 1) from MT19937 seeded with seed,
// each built from two 32-bit outputs with 53 bits of precision.
func Draws(n int, seed uint32) []float64 {
	mt := prng.NewMT19937()
	mt.Seed(uint64(seed))
	out := make([]float64, n)
	for i := range out {
		a := mt.Uint32() >> 5
		b := mt.Uint32() >> 6
		out[i] = (float64(a)*67108864.0 + float64(b)) / 9007199254740992.0
	}
	return out
}

// Split puts index i in Train when its draw is below ratio and in
// Validate otherwise.
func Split(n int, seed uint32, ratio float64) (Partition, error) {
	if n <= 0 {
		return Partition{}, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
	if ratio < 0 || ratio > 1 {
		return Partition{}, fmt.Errorf("%w: %g", ErrInvalidRatio, ratio)
	}

	p := Partition{Train: []int{}, Validate: []int{}}
	for i, r := range Draws(n, seed) {
		if r < ratio {
			p.Train = append(p.Train, i)
		} else {
			p.Validate = append(p.Validate, i)
		}
	}
	return p, nil
}

// Verify checks that the partition covers [0, n) exactly once with both
// lists ascending.
func (p Partition) Verify(n int) error {
	train, err := bitmap("train", p.Train, n)
	if err != nil {
		return err
	}
	validate, err := bitmap("validate", p.Validate, n)
	if err != nil {
		return err
	}
	if overlap := roaring.And(train, validate); !overlap.IsEmpty() {
		return fmt.Errorf("%w: indices %v in both sets", ErrPartition, overlap.ToArray())
	}
	if union := roaring.Or(train, validate); union.GetCardinality() != uint64(n) {
		return fmt.Errorf("%w: covers %d of %d indices", ErrPartition, union.GetCardinality(), n)
	}
	return nil
}

func bitmap(name string, idx []int, n int) (*roaring.Bitmap, error) {
	if !slices.IsSorted(idx) {
		return nil, fmt.Errorf("%w: %s indices not ascending", ErrPartition, name)
	}
	bm := roaring.New()
	for _, i := range idx {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: %s index %d outside [0, %d)", ErrPartition, name, i, n)
		}
		if !bm.CheckedAdd(uint32(i)) {
			return nil, fmt.Errorf("%w: %s index %d repeated", ErrPartition, name, i)
		}
	}
	return bm, nil
}
