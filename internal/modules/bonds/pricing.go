package bonds

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/domain"
	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/linalg"
)

// Price discounts every cashflow at a single periodic rate:
//
//	price = Σ cf_i / (1+rate)^t_i
func Price(s Schedule, rate float64) (float64, error) {
	if err := s.Validate(); err != nil {
		return 0, fmt.Errorf("price: %w", err)
	}
	if err := checkRate(rate); err != nil {
		return 0, fmt.Errorf("price: %w", err)
	}

	var price float64
	for i, t := range s.Times {
		price += s.Cashflows[i] / math.Pow(1+rate, t)
	}
	return price, nil
}

// Bootstrap solves C·x = p for the implied per-date discount factors x, where
// C has one row per bond and one column per payment date.
//
// ops may be nil, in which case linalg.Default is used.
func Bootstrap(ops linalg.Ops, cashflows mat.Matrix, prices []float64) (*mat.VecDense, error) {
	if ops == nil {
		ops = linalg.Default
	}

	r, c := cashflows.Dims()
	if r != c {
		return nil, domain.ShapeError{
			Op:   "bootstrap",
			Want: "square cashflow matrix",
			Got:  fmt.Sprintf("%dx%d", r, c),
		}
	}
	if len(prices) != r {
		return nil, fmt.Errorf("bootstrap: %w", domain.Shape("prices", r, len(prices)))
	}

	inv, err := ops.Inverse(cashflows)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	x, err := ops.Mul(inv, linalg.Column(prices))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return mat.VecDenseCopyOf(x.ColView(0)), nil
}

// Duration is the present-value weighted average time to cashflow.
//
// Each cashflow is discounted by its position in the schedule, (1+rate)^(i+1),
// while the weight is applied to its stated time t_i. The two agree only when
// the times are 1, 2, 3, ...; callers with other time grids get the positional
// discounting.
func Duration(s Schedule, rate float64) (float64, error) {
	price, err := Price(s, rate)
	if err != nil {
		return 0, fmt.Errorf("duration: %w", err)
	}
	if price == 0 {
		return 0, fmt.Errorf("duration: zero price: %w", domain.ErrDomain)
	}

	var duration float64
	for i, t := range s.Times {
		discounted := s.Cashflows[i] / math.Pow(1+rate, float64(i+1))
		duration += discounted / price * t
	}
	return duration, nil
}

// ZeroRates converts discount factors into periodic zero rates,
// z_i = DF_i^(-1/t_i) - 1, so that DF_i = (1+z_i)^(-t_i).
func ZeroRates(times, discountFactors []float64) ([]float64, error) {
	if len(times) != len(discountFactors) {
		return nil, fmt.Errorf("zero rates: %w", domain.Shape("discount factors", len(times), len(discountFactors)))
	}

	rates := make([]float64, len(times))
	for i, t := range times {
		df := discountFactors[i]
		if t <= 0 {
			return nil, fmt.Errorf("zero rates: time %g at index %d must be positive: %w", t, i, domain.ErrDomain)
		}
		if df <= 0 {
			return nil, fmt.Errorf("zero rates: discount factor %g at index %d must be positive: %w", df, i, domain.ErrDomain)
		}
		rates[i] = math.Pow(df, -1/t) - 1
	}
	return rates, nil
}

func checkRate(rate float64) error {
	if rate <= -1 || math.IsNaN(rate) {
		return fmt.Errorf("rate %g must be greater than -1: %w", rate, domain.ErrDomain)
	}
	return nil
}
