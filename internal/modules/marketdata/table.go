// Package marketdata loads per-symbol price histories from CSV files, aligns
// them by date and derives returns, mean returns and a covariance matrix.
package marketdata

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/domain"
	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/pkg/formulas"
)

// Table is a date-aligned set of series, one column per symbol.
// Dates are ascending; a NaN value marks a missing entry.
type Table struct {
	Dates   []time.Time
	Symbols []string
	Values  map[string][]float64
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Dates)
}

// Column returns the series for symbol, or nil if the table has no such column.
func (t *Table) Column(symbol string) []float64 {
	return t.Values[symbol]
}

// mapColumns builds a new table with the same dates and symbols, each column
// transformed by fn.
func (t *Table) mapColumns(fn func([]float64) []float64) *Table {
	out := &Table{
		Dates:   t.Dates,
		Symbols: t.Symbols,
		Values:  make(map[string][]float64, len(t.Symbols)),
	}
	for _, symbol := range t.Symbols {
		out.Values[symbol] = fn(t.Values[symbol])
	}
	return out
}

// Returns converts a price table into simple periodic returns,
// r_t = p_t/p_{t-1} - 1. The first row is missing for every column.
func Returns(prices *Table) *Table {
	return prices.mapColumns(formulas.SimpleReturns)
}

// CumulativeChange divides every column by its first present price.
func CumulativeChange(prices *Table) *Table {
	return prices.mapColumns(formulas.CumulativeChange)
}

// FillMissing forward-fills and then back-fills every column. Intended for
// display; analytics should work on the unfilled table.
func FillMissing(t *Table) *Table {
	return t.mapColumns(func(values []float64) []float64 {
		filled, _ := formulas.FillMissing(values)
		return filled
	})
}

// MeanReturns returns the mean of every column, skipping missing entries, in
// symbol order. This is the expected-return vector used by the optimizer.
func MeanReturns(returns *Table) ([]float64, error) {
	if len(returns.Symbols) == 0 {
		return nil, domain.ShapeError{Op: "mean returns", Want: "at least one symbol", Got: "none"}
	}

	means := make([]float64, len(returns.Symbols))
	for i, symbol := range returns.Symbols {
		means[i] = formulas.Mean(returns.Values[symbol])
		if math.IsNaN(means[i]) {
			return nil, fmt.Errorf("mean returns: symbol %q has no observations: %w", symbol, domain.ErrMissingData)
		}
	}
	return means, nil
}

// Covariance returns the pairwise-complete sample covariance of the table's
// columns: each pair uses only the rows where both values are present.
func Covariance(returns *Table) (*mat.SymDense, error) {
	n := len(returns.Symbols)
	if n == 0 {
		return nil, domain.ShapeError{Op: "covariance", Want: "at least one symbol", Got: "none"}
	}

	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			si, sj := returns.Symbols[i], returns.Symbols[j]
			c, count := formulas.PairwiseCovariance(returns.Values[si], returns.Values[sj])
			if count < 2 {
				return nil, fmt.Errorf("covariance: %q and %q share %d observations, need 2: %w",
					si, sj, count, domain.ErrMissingData)
			}
			cov.SetSym(i, j, c)
		}
	}
	return cov, nil
}
