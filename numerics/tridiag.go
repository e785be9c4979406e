package numerics

import (
	"fmt"
	"math"
)

// Tridiagonal is the banded operator M with Lower[i] = M[i][i-1], Diag[i] = M[i][i]
// and Upper[i] = M[i][i+1]. Lower[0] and Upper[n-1] are ignored.
type Tridiagonal struct {
	Lower []float64
	Diag  []float64
	Upper []float64
}

// NewTridiagonal allocates an n x n operator.
func NewTridiagonal(n int) Tridiagonal {
	return Tridiagonal{
		Lower: make([]float64, n),
		Diag:  make([]float64, n),
		Upper: make([]float64, n),
	}
}

// Size returns the dimension of the operator.
func (m Tridiagonal) Size() int { return len(m.Diag) }

func (m Tridiagonal) validate() error {
	n := len(m.Diag)
	if n == 0 || len(m.Lower) != n || len(m.Upper) != n {
		return fmt.Errorf("Tridiagonal: bands %d/%d/%d: %w", len(m.Lower), n, len(m.Upper), ErrDimensionMismatch)
	}
	for i := 0; i < n; i++ {
		if !isFinite(m.Lower[i]) || !isFinite(m.Diag[i]) || !isFinite(m.Upper[i]) {
			return fmt.Errorf("Tridiagonal: non-finite coefficient in row %d: %w", i, ErrNumericalInstability)
		}
	}
	return nil
}

// MulVec returns M v.
func (m Tridiagonal) MulVec(v []float64) []float64 {
	n := len(m.Diag)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		s := m.Diag[i] * v[i]
		if i > 0 {
			s += m.Lower[i] * v[i-1]
		}
		if i < n-1 {
			s += m.Upper[i] * v[i+1]
		}
		out[i] = s
	}
	return out
}

// Solve solves M z = rhs with the Thomas algorithm.
//
// There is no pivoting; a vanishing pivot reports ErrNumericalInstability.
func (m Tridiagonal) Solve(rhs []float64) ([]float64, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	n := len(m.Diag)
	if len(rhs) != n {
		return nil, fmt.Errorf("Tridiagonal.Solve: rhs has %d entries, want %d: %w", len(rhs), n, ErrDimensionMismatch)
	}
	cp := make([]float64, n)
	dp := make([]float64, n)
	pivot := m.Diag[0]
	if math.Abs(pivot) < pivotFloor {
		return nil, fmt.Errorf("Tridiagonal.Solve: zero pivot in row 0: %w", ErrNumericalInstability)
	}
	cp[0] = m.Upper[0] / pivot
	dp[0] = rhs[0] / pivot
	for i := 1; i < n; i++ {
		pivot = m.Diag[i] - m.Lower[i]*cp[i-1]
		if math.Abs(pivot) < pivotFloor {
			return nil, fmt.Errorf("Tridiagonal.Solve: zero pivot in row %d: %w", i, ErrNumericalInstability)
		}
		if i < n-1 {
			cp[i] = m.Upper[i] / pivot
		}
		dp[i] = (rhs[i] - m.Lower[i]*dp[i-1]) / pivot
	}
	z := make([]float64, n)
	z[n-1] = dp[n-1]
	for i := n - 2; i >= 0; i-- {
		z[i] = dp[i] - cp[i]*z[i+1]
	}
	return z, nil
}

const pivotFloor = 1.0e-300

// ThetaStep solves [I + h θ M] v_next = [I - h (1-θ) M] v.
//
// θ = 0 is explicit Euler, θ = 1 implicit Euler and θ = 0.5 Crank-Nicolson.
func ThetaStep(m Tridiagonal, v []float64, h, theta float64) ([]float64, error) {
	if theta < 0 || theta > 1 {
		return nil, fmt.Errorf("ThetaStep: theta %g outside [0, 1]: %w", theta, ErrInvalidInput)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	if len(v) != m.Size() {
		return nil, fmt.Errorf("ThetaStep: %d values on a %d-point operator: %w", len(v), m.Size(), ErrDimensionMismatch)
	}
	mv := m.MulVec(v)
	b := make([]float64, len(v))
	for i := range v {
		b[i] = v[i] - h*(1.0-theta)*mv[i]
	}
	if theta == 0 {
		return b, nil
	}
	n := m.Size()
	a := NewTridiagonal(n)
	for i := 0; i < n; i++ {
		a.Lower[i] = h * theta * m.Lower[i]
		a.Diag[i] = 1.0 + h*theta*m.Diag[i]
		a.Upper[i] = h * theta * m.Upper[i]
	}
	return a.Solve(b)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
