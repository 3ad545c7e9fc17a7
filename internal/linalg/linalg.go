// Package linalg exposes the dense matrix operations the analytics packages
// need behind a small capability interface, so bond and portfolio code never
// depends on a particular linear-algebra backend directly.
package linalg

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/domain"
)

// Ops is the set of matrix operations used by the analytics packages:
// inversion, multiplication, transposition and the determinant.
type Ops interface {
	Inverse(a mat.Matrix) (*mat.Dense, error)
	Mul(a, b mat.Matrix) (*mat.Dense, error)
	Transpose(a mat.Matrix) *mat.Dense
	Det(a mat.Matrix) (float64, error)
}

// Gonum implements Ops on top of gonum.org/v1/gonum/mat.
//
// gonum panics on shape errors; Gonum checks dimensions first and returns
// domain.ErrShapeMismatch instead.
type Gonum struct{}

// Default is the Ops implementation used when a caller does not supply one.
var Default Ops = Gonum{}

// Inverse returns a⁻¹. A failed factorisation or a condition number above
// mat.ConditionTolerance is reported as domain.ErrSingularMatrix.
func (Gonum) Inverse(a mat.Matrix) (*mat.Dense, error) {
	if err := square("inverse", a); err != nil {
		return nil, err
	}

	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return nil, fmt.Errorf("inverse: %w (condition number %g)", domain.ErrSingularMatrix, float64(cond))
		}
		return nil, fmt.Errorf("inverse: %w: %v", domain.ErrSingularMatrix, err)
	}
	return &inv, nil
}

// Mul returns a·b.
func (Gonum) Mul(a, b mat.Matrix) (*mat.Dense, error) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != br {
		return nil, domain.ShapeError{
			Op:   "mul",
			Want: fmt.Sprintf("%d rows on the right operand", ac),
			Got:  fmt.Sprintf("%dx%d · %dx%d", ar, ac, br, bc),
		}
	}

	var out mat.Dense
	out.Mul(a, b)
	return &out, nil
}

// Transpose returns a copy of aᵀ.
func (Gonum) Transpose(a mat.Matrix) *mat.Dense {
	return mat.DenseCopyOf(a.T())
}

// Det returns the determinant of a square matrix.
func (Gonum) Det(a mat.Matrix) (float64, error) {
	if err := square("det", a); err != nil {
		return 0, err
	}
	return mat.Det(a), nil
}

func square(op string, a mat.Matrix) error {
	r, c := a.Dims()
	if r == 0 || r != c {
		return domain.ShapeError{
			Op:   op,
			Want: "non-empty square matrix",
			Got:  fmt.Sprintf("%dx%d", r, c),
		}
	}
	return nil
}

// Row builds a 1xN matrix from a slice. The slice is copied.
func Row(v []float64) *mat.Dense {
	return mat.NewDense(1, len(v), append([]float64(nil), v...))
}

// Column builds an Nx1 matrix from a slice. The slice is copied.
func Column(v []float64) *mat.Dense {
	return mat.NewDense(len(v), 1, append([]float64(nil), v...))
}

// Ones returns a slice of n ones.
func Ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// FromRows converts a row-major [][]float64 into a dense matrix, rejecting
// ragged input.
func FromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, domain.ShapeError{Op: "from rows", Want: "non-empty matrix", Got: "empty"}
	}
	n := len(rows[0])
	data := make([]float64, 0, len(rows)*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, domain.ShapeError{
				Op:   "from rows",
				Want: fmt.Sprintf("%d columns", n),
				Got:  fmt.Sprintf("%d columns in row %d", len(row), i),
			}
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), n, data), nil
}
