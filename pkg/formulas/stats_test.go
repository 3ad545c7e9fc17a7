package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

var nan = math.NaN()

func TestMean(t *testing.T) {
	tests := []struct {
		name     string
		data     []float64
		expected float64
	}{
		{"plain", []float64{1, 2, 3}, 2},
		{"skips missing", []float64{nan, 1, nan, 3}, 2},
		{"single value", []float64{5}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Mean(tt.data), 1e-12)
		})
	}

	assert.True(t, math.IsNaN(Mean(nil)))
	assert.True(t, math.IsNaN(Mean([]float64{nan, nan})))
}

func TestPairwiseCovariance(t *testing.T) {
	x := []float64{nan, 0.01, 0.02, nan, 0.03}
	y := []float64{nan, 0.02, 0.01, 0.05, 0.03}

	cov, n := PairwiseCovariance(x, y)
	assert.Equal(t, 3, n)
	// complete pairs: (0.01,0.02) (0.02,0.01) (0.03,0.03); means 0.02, 0.02
	expected := ((-0.01)*(0.0) + (0.0)*(-0.01) + (0.01)*(0.01)) / 2
	assert.InDelta(t, expected, cov, 1e-15)

	cov, n = PairwiseCovariance([]float64{1, nan}, []float64{2, 3})
	assert.Equal(t, 1, n)
	assert.True(t, math.IsNaN(cov))
}

func TestPairwiseCovariance_IsSymmetric(t *testing.T) {
	x := []float64{0.05, -0.02, 0.01, nan, 0.04}
	y := []float64{0.01, 0.03, nan, 0.02, -0.01}

	a, _ := PairwiseCovariance(x, y)
	b, _ := PairwiseCovariance(y, x)
	assert.InDelta(t, a, b, 1e-18)
}

func TestSimpleReturns(t *testing.T) {
	returns := SimpleReturns([]float64{100, 110, nan, 121, 99})

	assert.Len(t, returns, 5)
	assert.True(t, math.IsNaN(returns[0]), "first period has no prior price")
	assert.InDelta(t, 0.10, returns[1], 1e-12)
	assert.True(t, math.IsNaN(returns[2]))
	assert.True(t, math.IsNaN(returns[3]))
	assert.InDelta(t, 99.0/121.0-1, returns[4], 1e-12)

	assert.Empty(t, SimpleReturns(nil))
}

func TestCumulativeChange(t *testing.T) {
	out := CumulativeChange([]float64{nan, 50, 75, nan, 100})

	assert.True(t, math.IsNaN(out[0]))
	assert.InDelta(t, 1.0, out[1], 1e-12)
	assert.InDelta(t, 1.5, out[2], 1e-12)
	assert.True(t, math.IsNaN(out[3]))
	assert.InDelta(t, 2.0, out[4], 1e-12)
}

func TestFillMissing(t *testing.T) {
	filled, missing := FillMissing([]float64{nan, 2, nan, nan, 5, nan})

	assert.Equal(t, 4, missing)
	assert.Equal(t, []float64{2, 2, 2, 2, 5, 5}, filled)

	filled, missing = FillMissing([]float64{nan, nan})
	assert.Equal(t, 2, missing)
	assert.True(t, math.IsNaN(filled[0]))
}
