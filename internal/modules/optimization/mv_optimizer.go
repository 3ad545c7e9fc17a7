// Package optimization computes minimum-variance portfolios and the efficient
// frontier in closed form.
package optimization

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/domain"
	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/linalg"
)

const (
	// WeightTolerance is how far Σw may drift from 1 before a weight vector
	// is rejected.
	WeightTolerance = 1e-6

	// DeterminantTolerance is the relative size of det([[b,a],[a,c]]) against
	// b·c below which the two-fund system is treated as singular.
	DeterminantTolerance = 1e-12

	// DefaultFrontierPoints is the number of target returns FrontierTargets
	// produces when asked for zero points.
	DefaultFrontierPoints = 50
)

// FrontierPoint is one minimum-variance portfolio on the efficient frontier.
type FrontierPoint struct {
	Return  float64   `json:"return"`
	Stdev   float64   `json:"stdev"`
	Weights []float64 `json:"weights"`
}

// FrontierObserver receives every point computed during a frontier sweep,
// in input order.
type FrontierObserver func(FrontierPoint)

// MVOptimizer solves the closed-form mean-variance problems: the global
// minimum-variance portfolio and the minimum-variance portfolio for a target
// return. Short positions are allowed; there are no other constraints.
//
// Expected returns are a 1xN row given as a slice; covariance is any NxN
// matrix. Every method is a pure function of its arguments.
type MVOptimizer struct {
	ops      linalg.Ops
	observer FrontierObserver
	log      zerolog.Logger
}

// NewMVOptimizer creates a new mean-variance optimizer. A nil ops uses
// linalg.Default.
func NewMVOptimizer(ops linalg.Ops, log zerolog.Logger) *MVOptimizer {
	if ops == nil {
		ops = linalg.Default
	}
	mvo := &MVOptimizer{
		ops: ops,
		log: log.With().Str("component", "mv_optimizer").Logger(),
	}
	mvo.observer = mvo.logPoint
	return mvo
}

// WithObserver returns a copy of the optimizer that reports frontier points
// to obs instead of the debug log. A nil obs disables reporting.
func (mvo *MVOptimizer) WithObserver(obs FrontierObserver) *MVOptimizer {
	cp := *mvo
	cp.observer = obs
	return &cp
}

// PortfolioReturn returns e·wᵀ.
func (mvo *MVOptimizer) PortfolioReturn(e, w []float64) (float64, error) {
	if len(e) != len(w) {
		return 0, fmt.Errorf("portfolio return: %w", domain.Shape("weights", len(e), len(w)))
	}
	if err := checkWeights(w); err != nil {
		return 0, fmt.Errorf("portfolio return: %w", err)
	}
	return floats.Dot(e, w), nil
}

// PortfolioStdev returns sqrt(w·v·wᵀ). A negative variance means v is not
// positive semi-definite and is reported as domain.ErrDomain.
func (mvo *MVOptimizer) PortfolioStdev(v mat.Matrix, w []float64) (float64, error) {
	if err := checkCovariance(v, len(w)); err != nil {
		return 0, fmt.Errorf("portfolio stdev: %w", err)
	}
	if err := checkWeights(w); err != nil {
		return 0, fmt.Errorf("portfolio stdev: %w", err)
	}

	sigma, err := mvo.stdev(v, w)
	if err != nil {
		return 0, fmt.Errorf("portfolio stdev: %w", err)
	}
	return sigma, nil
}

// stdev is PortfolioStdev without the budget check. Weights solved here sum
// to 1 only up to rounding, which grows with the condition number of v.
func (mvo *MVOptimizer) stdev(v mat.Matrix, w []float64) (float64, error) {
	wv, err := mvo.ops.Mul(linalg.Row(w), v)
	if err != nil {
		return 0, err
	}
	variance, err := mvo.scalar(wv, mvo.ops.Transpose(linalg.Row(w)))
	if err != nil {
		return 0, err
	}
	if variance < 0 || math.IsNaN(variance) {
		return 0, fmt.Errorf("variance %g: %w", variance, domain.ErrDomain)
	}
	return math.Sqrt(variance), nil
}

// GlobalMinVariance returns the fully invested portfolio with the smallest
// variance:
//
//	c = 1ᵀ·v⁻¹·1
//	w = (1/c)·1ᵀ·v⁻¹
func (mvo *MVOptimizer) GlobalMinVariance(v mat.Matrix) ([]float64, error) {
	n, _ := v.Dims()
	if err := checkCovariance(v, n); err != nil {
		return nil, fmt.Errorf("global min variance: %w", err)
	}

	inv, err := mvo.ops.Inverse(v)
	if err != nil {
		return nil, fmt.Errorf("global min variance: %w", err)
	}

	one := linalg.Ones(n)
	u, err := mvo.ops.Mul(linalg.Row(one), inv)
	if err != nil {
		return nil, fmt.Errorf("global min variance: %w", err)
	}
	c, err := mvo.scalar(u, linalg.Column(one))
	if err != nil {
		return nil, fmt.Errorf("global min variance: %w", err)
	}
	if c == 0 || math.IsNaN(c) || math.IsInf(c, 0) {
		return nil, fmt.Errorf("global min variance: 1ᵀv⁻¹1 = %g: %w", c, domain.ErrSingularMatrix)
	}

	w := mat.Row(nil, 0, u)
	floats.Scale(1/c, w)
	return w, nil
}

// MinVariance returns the minimum-variance portfolio whose expected return is
// r, using two-fund separation:
//
//	a = 1ᵀv⁻¹eᵀ, b = e v⁻¹eᵀ, c = 1ᵀv⁻¹1, d = det([[b,a],[a,c]])
//	g = (b·1 − a·e)·v⁻¹ / d
//	h = (c·e − a·1)·v⁻¹ / d
//	w = g + h·r
//
// d is zero when e is proportional to 1; that is reported as
// domain.ErrSingularMatrix.
func (mvo *MVOptimizer) MinVariance(e []float64, v mat.Matrix, r float64) ([]float64, error) {
	fund, err := mvo.separate(e, v)
	if err != nil {
		return nil, fmt.Errorf("min variance: %w", err)
	}
	return fund.weights(r), nil
}

// EfficientFrontierStdevs returns, for each target return in rs and in the
// same order, the standard deviation of its minimum-variance portfolio.
func (mvo *MVOptimizer) EfficientFrontierStdevs(e []float64, v mat.Matrix, rs []float64) ([]float64, error) {
	points, err := mvo.EfficientFrontier(e, v, rs)
	if err != nil {
		return nil, err
	}

	stdevs := make([]float64, len(points))
	for i, p := range points {
		stdevs[i] = p.Stdev
	}
	return stdevs, nil
}

// EfficientFrontier computes the minimum-variance portfolio for every target
// return in rs. Points are returned, and reported to the observer, in input
// order.
func (mvo *MVOptimizer) EfficientFrontier(e []float64, v mat.Matrix, rs []float64) ([]FrontierPoint, error) {
	fund, err := mvo.separate(e, v)
	if err != nil {
		return nil, fmt.Errorf("efficient frontier: %w", err)
	}

	points := make([]FrontierPoint, 0, len(rs))
	for _, r := range rs {
		w := fund.weights(r)
		sigma, err := mvo.stdev(v, w)
		if err != nil {
			return nil, fmt.Errorf("efficient frontier: target %g: %w", r, err)
		}

		p := FrontierPoint{Return: r, Stdev: sigma, Weights: w}
		if mvo.observer != nil {
			mvo.observer(p)
		}
		points = append(points, p)
	}
	return points, nil
}

// FrontierTargets returns n evenly spaced target returns spanning one
// standard deviation either side of the global minimum-variance return.
// n == 0 selects DefaultFrontierPoints.
func (mvo *MVOptimizer) FrontierTargets(e []float64, v mat.Matrix, n int) ([]float64, error) {
	if n == 0 {
		n = DefaultFrontierPoints
	}
	if n < 2 {
		return nil, domain.ShapeError{Op: "frontier targets", Want: "at least 2 points", Got: fmt.Sprint(n)}
	}

	gmv, err := mvo.Evaluate(e, v, nil)
	if err != nil {
		return nil, fmt.Errorf("frontier targets: %w", err)
	}

	return floats.Span(make([]float64, n), gmv.Return-gmv.Stdev, gmv.Return+gmv.Stdev), nil
}

// Evaluate returns the return and standard deviation of w. A nil w evaluates
// the global minimum-variance portfolio.
func (mvo *MVOptimizer) Evaluate(e []float64, v mat.Matrix, w []float64) (FrontierPoint, error) {
	if w == nil {
		return mvo.evaluateGlobal(e, v)
	}

	ret, err := mvo.PortfolioReturn(e, w)
	if err != nil {
		return FrontierPoint{}, err
	}
	sigma, err := mvo.PortfolioStdev(v, w)
	if err != nil {
		return FrontierPoint{}, err
	}
	return FrontierPoint{Return: ret, Stdev: sigma, Weights: w}, nil
}

func (mvo *MVOptimizer) evaluateGlobal(e []float64, v mat.Matrix) (FrontierPoint, error) {
	w, err := mvo.GlobalMinVariance(v)
	if err != nil {
		return FrontierPoint{}, err
	}
	if len(e) != len(w) {
		return FrontierPoint{}, fmt.Errorf("portfolio return: %w", domain.Shape("expected returns", len(w), len(e)))
	}

	sigma, err := mvo.stdev(v, w)
	if err != nil {
		return FrontierPoint{}, fmt.Errorf("portfolio stdev: %w", err)
	}
	return FrontierPoint{Return: floats.Dot(e, w), Stdev: sigma, Weights: w}, nil
}

// twoFund holds the base portfolio g and the per-unit-return tilt h.
type twoFund struct {
	g, h []float64
}

func (f twoFund) weights(r float64) []float64 {
	w := make([]float64, len(f.g))
	floats.AddScaledTo(w, f.g, r, f.h)
	return w
}

func (mvo *MVOptimizer) separate(e []float64, v mat.Matrix) (twoFund, error) {
	n := len(e)
	if n == 0 {
		return twoFund{}, domain.ShapeError{Op: "expected returns", Want: "at least one asset", Got: "none"}
	}
	if err := checkCovariance(v, n); err != nil {
		return twoFund{}, err
	}

	inv, err := mvo.ops.Inverse(v)
	if err != nil {
		return twoFund{}, err
	}

	one := linalg.Ones(n)
	oneInv, err := mvo.ops.Mul(linalg.Row(one), inv)
	if err != nil {
		return twoFund{}, err
	}
	eInv, err := mvo.ops.Mul(linalg.Row(e), inv)
	if err != nil {
		return twoFund{}, err
	}

	eCol := mvo.ops.Transpose(linalg.Row(e))
	a, err := mvo.scalar(oneInv, eCol)
	if err != nil {
		return twoFund{}, err
	}
	b, err := mvo.scalar(eInv, eCol)
	if err != nil {
		return twoFund{}, err
	}
	c, err := mvo.scalar(oneInv, linalg.Column(one))
	if err != nil {
		return twoFund{}, err
	}

	d, err := mvo.ops.Det(mat.NewDense(2, 2, []float64{b, a, a, c}))
	if err != nil {
		return twoFund{}, err
	}
	if math.Abs(d) <= DeterminantTolerance*math.Abs(b*c) || math.IsNaN(d) {
		return twoFund{}, fmt.Errorf("two-fund determinant %g: %w", d, domain.ErrSingularMatrix)
	}

	// g = (b·1 − a·e)·v⁻¹/d, h = (c·e − a·1)·v⁻¹/d
	gRow := make([]float64, n)
	floats.AddScaledTo(gRow, floats.ScaleTo(make([]float64, n), b, one), -a, e)
	hRow := make([]float64, n)
	floats.AddScaledTo(hRow, floats.ScaleTo(make([]float64, n), c, e), -a, one)

	g, err := mvo.ops.Mul(linalg.Row(gRow), inv)
	if err != nil {
		return twoFund{}, err
	}
	h, err := mvo.ops.Mul(linalg.Row(hRow), inv)
	if err != nil {
		return twoFund{}, err
	}

	fund := twoFund{g: mat.Row(nil, 0, g), h: mat.Row(nil, 0, h)}
	floats.Scale(1/d, fund.g)
	floats.Scale(1/d, fund.h)

	mvo.log.Debug().
		Float64("a", a).
		Float64("b", b).
		Float64("c", c).
		Float64("d", d).
		Msg("Solved two-fund separation")

	return fund, nil
}

// scalar multiplies a 1xN row by an Nx1 column.
func (mvo *MVOptimizer) scalar(row, col mat.Matrix) (float64, error) {
	out, err := mvo.ops.Mul(row, col)
	if err != nil {
		return 0, err
	}
	return out.At(0, 0), nil
}

func (mvo *MVOptimizer) logPoint(p FrontierPoint) {
	mvo.log.Debug().
		Float64("r", p.Return).
		Float64("sigma", p.Stdev).
		Floats64("w", p.Weights).
		Msg("Frontier point")
}

func checkCovariance(v mat.Matrix, n int) error {
	r, c := v.Dims()
	if r != c {
		return domain.ShapeError{Op: "covariance", Want: "square matrix", Got: fmt.Sprintf("%dx%d", r, c)}
	}
	if r != n {
		return domain.ShapeError{Op: "covariance", Want: fmt.Sprintf("%dx%d", n, n), Got: fmt.Sprintf("%dx%d", r, c)}
	}
	if n == 0 {
		return domain.ShapeError{Op: "covariance", Want: "at least one asset", Got: "none"}
	}
	return nil
}

func checkWeights(w []float64) error {
	sum := floats.Sum(w)
	if math.Abs(sum-1) > WeightTolerance || math.IsNaN(sum) {
		return fmt.Errorf("sum %g: %w", sum, domain.ErrUnnormalizedWeights)
	}
	return nil
}
