package scoring

import "math"

// DefaultBaseline is the population-average alpha/beta ratio corresponding
// to a neutral score of 50. Computed offline from a resting-state EEG
// dataset; supplied through config, never recomputed at runtime.
const DefaultBaseline = 12.4438

// scaleFactor controls how quickly the score moves as the ratio deviates
// from the baseline.
const scaleFactor = 10

// minRatio floors the input so the log never sees a non-positive value.
const minRatio = 0.01

// Score maps an alpha/beta power ratio to an integer score in [0, 100] on a
// logarithmic scale. A ratio equal to baseline scores exactly 50; ratios
// below the baseline pull the score toward 0, above toward 100. The result
// is truncated toward zero, not rounded.
func Score(ratio, baseline float64) int {
	safe := math.Max(ratio, minRatio)
	s := 50 + math.Log(safe/baseline)*scaleFactor
	if s < 0 {
		s = 0
	} else if s > 100 {
		s = 100
	}
	return int(s)
}
