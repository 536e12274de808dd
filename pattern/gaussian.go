package pattern

import (
	"fmt"
	"math"
)

// Gaussian is a single Gaussian peak A * exp(-(x-mu)^2 / (2 sigma^2)).
type Gaussian struct {
	Amplitude float64
	Center    float64
	Sigma     float64
}

// Eval evaluates the peak at x.
func (g Gaussian) Eval(x float64) float64 {
	d := x - g.Center
	return g.Amplitude * math.Exp(-d*d/(2*g.Sigma*g.Sigma))
}

// FWHM returns the full width at half maximum.
func (g Gaussian) FWHM() float64 {
	return 2 * math.Sqrt(2*math.Ln2) * math.Abs(g.Sigma)
}

// GuessGaussian derives starting parameters from the data: the maximum
// point for amplitude and center, a tenth of the x span for sigma.
func GuessGaussian(x, y []float64) Gaussian {
	g := Gaussian{Amplitude: math.Inf(-1)}
	for i, v := range y {
		if !math.IsNaN(v) && v > g.Amplitude {
			g.Amplitude = v
			g.Center = x[i]
		}
	}
	if len(x) > 1 {
		g.Sigma = math.Abs(x[len(x)-1]-x[0]) / 10
	}
	if g.Sigma == 0 {
		g.Sigma = 1
	}
	return g
}

const (
	lmMaxIterations = 200
	lmTolerance     = 1e-10
)

// FitGaussian fits a Gaussian to (x, y) by Levenberg-Marquardt least
// squares starting from init. NaN data points are ignored.
func FitGaussian(x, y []float64, init Gaussian) (Gaussian, error) {
	if len(x) != len(y) {
		return Gaussian{}, fmt.Errorf("length mismatch: %d x values, %d y values", len(x), len(y))
	}
	var xs, ys []float64
	for i, v := range y {
		if !math.IsNaN(v) && !math.IsNaN(x[i]) {
			xs = append(xs, x[i])
			ys = append(ys, v)
		}
	}
	if len(xs) < 4 {
		return Gaussian{}, fmt.Errorf("only %d valid points, need at least 4", len(xs))
	}

	p := [3]float64{init.Amplitude, init.Center, init.Sigma}
	cost := residualSum(xs, ys, p)
	damping := 1e-3

	for iter := 0; iter < lmMaxIterations; iter++ {
		var jtj [3][3]float64
		var jtr [3]float64
		for i, xi := range xs {
			d := xi - p[1]
			s2 := p[2] * p[2]
			e := math.Exp(-d * d / (2 * s2))
			r := ys[i] - p[0]*e

			// Partial derivatives of the model.
			j := [3]float64{
				e,
				p[0] * e * d / s2,
				p[0] * e * d * d / (s2 * p[2]),
			}
			for a := 0; a < 3; a++ {
				jtr[a] += j[a] * r
				for b := 0; b < 3; b++ {
					jtj[a][b] += j[a] * j[b]
				}
			}
		}

		// Try a damped step; on failure increase damping and retry.
		improved := false
		for attempt := 0; attempt < 20; attempt++ {
			m := jtj
			for a := 0; a < 3; a++ {
				m[a][a] *= 1 + damping
			}
			step, ok := solve3(m, jtr)
			if ok {
				trial := [3]float64{p[0] + step[0], p[1] + step[1], p[2] + step[2]}
				if trial[2] != 0 {
					trialCost := residualSum(xs, ys, trial)
					if trialCost < cost {
						relative := (cost - trialCost) / math.Max(cost, 1e-300)
						p = trial
						cost = trialCost
						damping = math.Max(damping/3, 1e-12)
						improved = true
						if relative < lmTolerance {
							return Gaussian{p[0], p[1], math.Abs(p[2])}, nil
						}
						break
					}
				}
			}
			damping *= 10
		}
		if !improved {
			break
		}
	}
	if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsNaN(p[2]) {
		return Gaussian{}, fmt.Errorf("fit diverged")
	}
	return Gaussian{p[0], p[1], math.Abs(p[2])}, nil
}

func residualSum(x, y []float64, p [3]float64) float64 {
	g := Gaussian{p[0], p[1], p[2]}
	var sum float64
	for i, xi := range x {
		r := y[i] - g.Eval(xi)
		sum += r * r
	}
	return sum
}

// solve3 solves a 3x3 linear system by Gaussian elimination with
// partial pivoting. ok is false for a singular matrix.
func solve3(m [3][3]float64, b [3]float64) (x [3]float64, ok bool) {
	for col := 0; col < 3; col++ {
		pivot := col
		for row := col + 1; row < 3; row++ {
			if math.Abs(m[row][col]) > math.Abs(m[pivot][col]) {
				pivot = row
			}
		}
		if m[pivot][col] == 0 {
			return x, false
		}
		m[col], m[pivot] = m[pivot], m[col]
		b[col], b[pivot] = b[pivot], b[col]
		for row := col + 1; row < 3; row++ {
			f := m[row][col] / m[col][col]
			for k := col; k < 3; k++ {
				m[row][k] -= f * m[col][k]
			}
			b[row] -= f * b[col]
		}
	}
	for row := 2; row >= 0; row-- {
		s := b[row]
		for k := row + 1; k < 3; k++ {
			s -= m[row][k] * x[k]
		}
		x[row] = s / m[row][row]
	}
	return x, true
}
