// Package wrappers provides wrappers for environments which transform
// their observations
package wrappers

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/samplemv"
)

// Controls tiling offsets. For each dimension, tilings are offset by
// randomly sampling from a uniform distribution with support
// [- tiling width/OffsetDiv, tiling width/OffsetDiv]
const OffsetDiv float64 = 1.5

// TileCoder implements functionality for tile coding a vector. Tile
// coding takes a low-dimensional vector and changes it into a large,
// sparse vector consisting of only 0's and 1's. Each 1 represents the
// coordinates of the original vector in some space of tilings. For
// example:
//
//	[0.5, 0.1] -> [0, 0, 0, 1, 0, 0, 1, 0]
//
// The number of nonzero elements in the tile-coded representation equals
// the number of tilings used to encode the vector. The number of total
// features in the tile-coded representation is the number of tilings
// times the number of tiles per tiling. Tile coding requires that the
// space to be tiled be bounded.
//
// This implementation uses dense tilings over the entire space, with
// every tiling having the same number of tiles.
type TileCoder struct {
	numTilings        int
	minDims           []float64
	offsets           []*mat.Dense
	bins              []int
	binLengths        []float64
	featuresPerTiling int
}

// NewTileCoder creates and returns a new TileCoder. The minDims and
// maxDims arguments are the bounds on each dimension between which
// tilings will be placed. The bins argument determines how many tiles
// are placed (per tiling) along each dimension. All three must have one
// element per dimension of the vectors to encode.
func NewTileCoder(numTilings int, minDims, maxDims []float64, bins []int,
	seed uint64) (*TileCoder, error) {
	if numTilings < 1 {
		return nil, fmt.Errorf("newTileCoder: at least one tiling required")
	}
	if len(minDims) != len(maxDims) || len(minDims) != len(bins) {
		return nil, fmt.Errorf("newTileCoder: bounds and bins must have "+
			"equal lengths \n\thave(%v, %v, %v)", len(minDims), len(maxDims),
			len(bins))
	}

	bounds := make([]r1.Interval, len(bins))
	binLengths := make([]float64, len(bins))
	for i := range bins {
		width := maxDims[i] - minDims[i]
		if bins[i] < 1 || width <= 0 || math.IsInf(width, 0) ||
			math.IsNaN(width) {
			return nil, fmt.Errorf("newTileCoder: dimension %d cannot be "+
				"tiled: [%v, %v] with %v bins", i, minDims[i], maxDims[i],
				bins[i])
		}

		binLengths[i] = width / float64(bins[i])
		bound := binLengths[i] / OffsetDiv
		bounds[i] = r1.Interval{Min: -bound, Max: bound}
	}

	// Sample the offset of each tiling
	u := distmv.NewUniform(bounds, rand.NewSource(seed))
	sampler := samplemv.IID{Dist: u}
	offsets := make([]*mat.Dense, numTilings)
	for i := range offsets {
		offsets[i] = mat.NewDense(1, len(bounds), nil)
		sampler.Sample(offsets[i])
	}

	featuresPerTiling := 1
	for _, b := range bins {
		featuresPerTiling *= b
	}

	return &TileCoder{
		numTilings:        numTilings,
		minDims:           append([]float64(nil), minDims...),
		offsets:           offsets,
		bins:              append([]int(nil), bins...),
		binLengths:        binLengths,
		featuresPerTiling: featuresPerTiling,
	}, nil
}

// Encode tile codes v
func (t *TileCoder) Encode(v mat.Vector) *mat.VecDense {
	tileCoded := mat.NewVecDense(t.VecLength(), nil)

	for j := 0; j < t.numTilings; j++ {
		index, stride := 0, 1
		for i := len(t.bins) - 1; i > -1; i-- {
			// Offset the tiling
			data := v.AtVec(i) + t.offsets[j].At(0, i)
			tile := math.Floor((data - t.minDims[i]) / t.binLengths[i])

			// Clip tile to within tiling bounds
			tile = math.Min(tile, float64(t.bins[i]-1))
			tile = math.Max(tile, 0)

			index += int(tile) * stride
			stride *= t.bins[i]
		}
		tileCoded.SetVec(j*t.featuresPerTiling+index, 1.0)
	}
	return tileCoded
}

// Dims returns the number of dimensions of vectors that can be encoded
func (t *TileCoder) Dims() int {
	return len(t.bins)
}

// VecLength returns the length of tile coded vectors
func (t *TileCoder) VecLength() int {
	return t.numTilings * t.featuresPerTiling
}
