package pattern

import "math"

// Defaults for Baseline, tuned for diffraction patterns.
const (
	DefaultSmoothness = 1e6
	DefaultAsymmetry  = 0.01

	baselineIterations = 10
)

// Baseline estimates a slowly varying background under y by asymmetric
// least squares smoothing (Eilers and Boelens). It minimizes
//
//	sum_i w_i (y_i - z_i)^2 + lam * sum_i (z_i - 2 z_{i+1} + z_{i+2})^2
//
// where points above the current estimate get weight p and points
// below get 1-p, reweighting for a fixed number of iterations. With a
// small p the estimate hugs the valleys between peaks. NaN input
// points are given zero weight and interpolated by the smoother.
func Baseline(y []float64, lam, p float64) []float64 {
	n := len(y)
	if n < 3 {
		z := make([]float64, n)
		copy(z, y)
		return z
	}

	// lam*D'D for the second-difference matrix D is a constant
	// symmetric pentadiagonal; only the weights change per iteration.
	pd0 := make([]float64, n)
	pd1 := make([]float64, n)
	pd2 := make([]float64, n)
	coef := [3]float64{1, -2, 1}
	for r := 0; r <= n-3; r++ {
		for a := 0; a < 3; a++ {
			pd0[r+a] += lam * coef[a] * coef[a]
			if a < 2 {
				pd1[r+a] += lam * coef[a] * coef[a+1]
			}
		}
		pd2[r] += lam * coef[0] * coef[2]
	}

	w := make([]float64, n)
	for i, v := range y {
		if math.IsNaN(v) {
			w[i] = 0
		} else {
			w[i] = 1
		}
	}

	d0 := make([]float64, n)
	rhs := make([]float64, n)
	var z []float64
	for iter := 0; iter < baselineIterations; iter++ {
		for i := 0; i < n; i++ {
			d0[i] = pd0[i] + w[i]
			if w[i] == 0 {
				rhs[i] = 0
			} else {
				rhs[i] = w[i] * y[i]
			}
		}
		z = solvePentadiagonal(d0, pd1, pd2, rhs)
		for i, v := range y {
			if math.IsNaN(v) {
				continue
			}
			if v > z[i] {
				w[i] = p
			} else {
				w[i] = 1 - p
			}
		}
	}
	return z
}

// solvePentadiagonal solves A x = b for a symmetric positive definite
// pentadiagonal A given as its main diagonal d0, first off-diagonal d1
// (d1[i] = A[i][i+1]) and second off-diagonal d2 (d2[i] = A[i][i+2]),
// by banded Cholesky factorization.
func solvePentadiagonal(d0, d1, d2, b []float64) []float64 {
	n := len(d0)
	// l0[i] = L[i][i], l1[i] = L[i][i-1], l2[i] = L[i][i-2].
	l0 := make([]float64, n)
	l1 := make([]float64, n)
	l2 := make([]float64, n)
	for i := 0; i < n; i++ {
		if i >= 2 {
			l2[i] = d2[i-2] / l0[i-2]
		}
		if i >= 1 {
			s := d1[i-1]
			if i >= 2 {
				s -= l2[i] * l1[i-1]
			}
			l1[i] = s / l0[i-1]
		}
		s := d0[i] - l1[i]*l1[i] - l2[i]*l2[i]
		l0[i] = math.Sqrt(s)
	}

	// Forward substitution L z = b.
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		s := b[i]
		if i >= 1 {
			s -= l1[i] * z[i-1]
		}
		if i >= 2 {
			s -= l2[i] * z[i-2]
		}
		z[i] = s / l0[i]
	}

	// Back substitution L' x = z.
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		s := z[i]
		if i+1 < n {
			s -= l1[i+1] * x[i+1]
		}
		if i+2 < n {
			s -= l2[i+2] * x[i+2]
		}
		x[i] = s / l0[i]
	}
	return x
}
