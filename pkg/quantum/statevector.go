package quantum

import (
	"errors"
	"math"
	"math/rand"
)

// ErrDegenerateWeights reports a weight vector from which no sample can be
// drawn: every entry is non-positive, or any entry is NaN or infinite.
var ErrDegenerateWeights = errors.New("quantum: weight vector has no positive finite mass")

// OneHotVector returns the probability-vector representation of a shot: a
// 2^numQubits vector with 1 at the shot's basis-state index and 0 elsewhere.
func OneHotVector(bits []int, numQubits int) []float64 {
	vec := make([]float64, 1<<numQubits)
	vec[StateIndexOf(bits)] = 1
	return vec
}

// SampleStateIndex draws one basis-state index from a vector of weights over
// basis states.
//
// The weights need not form a proper probability distribution: corrected
// probability vectors produced by confusion inversion routinely contain
// negative entries and do not sum to one. The policy here is clamp-then-
// normalize: negative weights are treated as zero and the remaining mass is
// normalized. A vector whose entries include NaN or Inf, or whose clamped
// mass is zero, fails with ErrDegenerateWeights.
func SampleStateIndex(weights []float64, rng *rand.Rand) (int, error) {
	if len(weights) == 0 {
		return 0, ErrDegenerateWeights
	}
	total := 0.0
	for _, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return 0, ErrDegenerateWeights
		}
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return 0, ErrDegenerateWeights
	}
	u := rng.Float64() * total
	acc := 0.0
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		last = i
		if u < acc {
			return i, nil
		}
	}
	// Floating-point rounding can leave u marginally above the final
	// cumulative sum; attribute the draw to the last positive entry.
	return last, nil
}
