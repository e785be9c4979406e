package amc

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/hwbermudan/numerics"
)

// MultiIndexSet lists the exponent tuples of n variables with total degree below k.
func MultiIndexSet(n, k int) [][]int {
	if n <= 0 || k <= 0 {
		return nil
	}
	if n == 1 {
		out := make([][]int, k)
		for i := range out {
			out[i] = []int{i}
		}
		return out
	}
	var out [][]int
	for i := 0; i < k; i++ {
		for _, rest := range MultiIndexSet(n-1, k-i) {
			out = append(out, append([]int{i}, rest...))
		}
	}
	return out
}

// Regression is a least-squares polynomial in the controls of bounded total degree.
type Regression struct {
	multiIdx [][]int
	beta     []float64
}

// NewRegression fits observations against all monomials of total degree <= maxDegree.
func NewRegression(controls [][]float64, observations []float64, maxDegree int) (*Regression, error) {
	if len(controls) != len(observations) {
		return nil, fmt.Errorf("NewRegression: %d controls, %d observations: %w", len(controls), len(observations), numerics.ErrDimensionMismatch)
	}
	if len(controls) == 0 || maxDegree < 0 {
		return nil, fmt.Errorf("NewRegression: %d samples, degree %d: %w", len(controls), maxDegree, numerics.ErrInvalidInput)
	}
	r := &Regression{multiIdx: MultiIndexSet(len(controls[0]), maxDegree+1)}
	rows, cols := len(controls), len(r.multiIdx)
	if rows < cols {
		return nil, fmt.Errorf("NewRegression: %d samples for %d basis functions: %w", rows, cols, numerics.ErrDimensionMismatch)
	}
	A := mat.NewDense(rows, cols, nil)
	for i, c := range controls {
		if len(c) != len(r.multiIdx[0]) {
			return nil, fmt.Errorf("NewRegression: control %d has dimension %d: %w", i, len(c), numerics.ErrDimensionMismatch)
		}
		A.SetRow(i, r.monomials(c))
	}
	var qr mat.QR
	qr.Factorize(A)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, mat.NewVecDense(rows, append([]float64(nil), observations...))); err != nil {
		return nil, fmt.Errorf("NewRegression: rank-deficient design (%v): %w", err, numerics.ErrDimensionMismatch)
	}
	r.beta = make([]float64, cols)
	for j := range r.beta {
		r.beta[j] = beta.AtVec(j)
	}
	return r, nil
}

func (r *Regression) monomials(control []float64) []float64 {
	out := make([]float64, len(r.multiIdx))
	for i, idx := range r.multiIdx {
		v := 1.0
		for j, p := range idx {
			for e := 0; e < p; e++ {
				v *= control[j]
			}
		}
		out[i] = v
	}
	return out
}

// Coefficients returns the fitted coefficients in MultiIndexSet order.
func (r *Regression) Coefficients() []float64 { return append([]float64(nil), r.beta...) }

// Value evaluates the fitted polynomial.
func (r *Regression) Value(control []float64) float64 {
	v := 0.0
	for i, m := range r.monomials(control) {
		v += r.beta[i] * m
	}
	return v
}
