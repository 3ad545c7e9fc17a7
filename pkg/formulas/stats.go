// Package formulas holds NaN-aware statistics over price and return series.
//
// A NaN entry marks a missing observation. Helpers skip missing values rather
// than treating them as zero.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of the non-missing values.
// Returns NaN when every value is missing.
func Mean(data []float64) float64 {
	present := Present(data)
	if len(present) == 0 {
		return math.NaN()
	}
	return stat.Mean(present, nil)
}

// Present returns the non-NaN values of data, in order.
func Present(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// PairwiseCovariance calculates the sample covariance (N-1 denominator) of x
// and y over the positions where both are present. It also returns the number
// of complete pairs used; with fewer than two the covariance is NaN.
func PairwiseCovariance(x, y []float64) (float64, int) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}

	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}

	if len(xs) < 2 {
		return math.NaN(), len(xs)
	}
	return stat.Covariance(xs, ys, nil), len(xs)
}

// SimpleReturns converts prices to periodic returns aligned with the input:
// Returns[i] = Price[i]/Price[i-1] - 1. Returns[0] is NaN, as is any return
// whose operands are missing.
func SimpleReturns(prices []float64) []float64 {
	returns := make([]float64, len(prices))
	for i := range prices {
		if i == 0 {
			returns[i] = math.NaN()
			continue
		}
		returns[i] = prices[i]/prices[i-1] - 1
	}
	return returns
}

// CumulativeChange divides every price by the first present price. Missing
// prices stay missing.
func CumulativeChange(prices []float64) []float64 {
	out := make([]float64, len(prices))
	base := math.NaN()
	for _, p := range prices {
		if !math.IsNaN(p) {
			base = p
			break
		}
	}
	for i, p := range prices {
		out[i] = p / base
	}
	return out
}

// FillMissing forward-fills missing values with the previous present value,
// then back-fills any leading gap with the first present value. It returns the
// filled copy and the number of values that were missing.
func FillMissing(values []float64) ([]float64, int) {
	filled := make([]float64, len(values))
	copy(filled, values)

	missing := 0
	last := math.NaN()
	for i, v := range filled {
		if math.IsNaN(v) {
			missing++
			filled[i] = last
		} else {
			last = v
		}
	}

	next := math.NaN()
	for i := len(filled) - 1; i >= 0; i-- {
		if math.IsNaN(filled[i]) {
			filled[i] = next
		} else {
			next = filled[i]
		}
	}
	return filled, missing
}
