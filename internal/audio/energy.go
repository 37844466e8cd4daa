package audio

import "math"

// RMS computes the root-mean-square amplitude of a block of samples, used as
// the loudness measure for voice activity detection. Returns 0 for an empty
// slice. The sum of squares is accumulated in float64, which holds exact
// integer sums well past any practical capture block size.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sumSq float64
	for _, s := range samples {
		f := float64(s)
		sumSq += f * f
	}

	return math.Sqrt(sumSq / float64(len(samples)))
}
