package calculator

import "math"

// EPS guards every ratio against a zero or near-zero denominator.
const EPS = 1e-4

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// Mean returns the arithmetic mean of values, or 0 when values is empty.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation of values around mean.
func StdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	acc := 0.0
	for _, v := range values {
		d := v - mean
		acc += d * d
	}
	return math.Sqrt(acc / float64(len(values)))
}

// CoefficientOfVariation returns stddev/mean with the mean floored at EPS.
func CoefficientOfVariation(values []float64) float64 {
	mean := Mean(values)
	return StdDev(values, mean) / math.Max(mean, EPS)
}

// Ratio divides num by den with den floored at EPS.
func Ratio(num, den float64) float64 {
	return num / math.Max(den, EPS)
}
