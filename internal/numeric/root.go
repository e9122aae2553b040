// Package numeric holds the scalar solvers shared by the PV and coupling
// models: bracketed root finding and one-dimensional maximisation.
package numeric

import (
	"errors"
	"math"
)

// ErrNotBracketed is returned when f(a) and f(b) have the same sign.
var ErrNotBracketed = errors.New("root is not bracketed")

// Brent finds a root of f in [a, b] using Brent's method. f(a) and f(b) must
// have opposite signs (or one of them must be zero). The search stops when the
// bracket is narrower than tol or after maxIter iterations; the best estimate
// is returned in both cases.
func Brent(f func(float64) float64, a, b, tol float64, maxIter int) (float64, error) {
	fa, fb := f(a), f(b)
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if math.IsNaN(fa) || math.IsNaN(fb) || (fa > 0) == (fb > 0) {
		return math.NaN(), ErrNotBracketed
	}
	if math.Abs(fa) < math.Abs(fb) {
		a, b = b, a
		fa, fb = fb, fa
	}
	c, fc := a, fa
	d := b - a
	mflag := true
	for i := 0; i < maxIter; i++ {
		if fb == 0 || math.Abs(b-a) < tol {
			return b, nil
		}
		var s float64
		if fa != fc && fb != fc {
			// inverse quadratic interpolation
			s = a*fb*fc/((fa-fb)*(fa-fc)) +
				b*fa*fc/((fb-fa)*(fb-fc)) +
				c*fa*fb/((fc-fa)*(fc-fb))
		} else {
			s = b - fb*(b-a)/(fb-fa)
		}
		lo, hi := (3*a+b)/4, b
		if lo > hi {
			lo, hi = hi, lo
		}
		if s < lo || s > hi ||
			(mflag && math.Abs(s-b) >= math.Abs(b-c)/2) ||
			(!mflag && math.Abs(s-b) >= math.Abs(c-d)/2) ||
			(mflag && math.Abs(b-c) < tol) ||
			(!mflag && math.Abs(c-d) < tol) {
			s = (a + b) / 2
			mflag = true
		} else {
			mflag = false
		}
		fs := f(s)
		d, c, fc = c, b, fb
		if (fa > 0) != (fs > 0) {
			b, fb = s, fs
		} else {
			a, fa = s, fs
		}
		if math.Abs(fa) < math.Abs(fb) {
			a, b = b, a
			fa, fb = fb, fa
		}
	}
	return b, nil
}

// Bracket is an interval [Lo, Hi] over which a sampled function changes sign.
type Bracket struct {
	Lo, Hi float64
	// Exact is set when a sample hit zero; Lo == Hi in that case.
	Exact bool
}

// SignChanges samples f at n+1 evenly spaced points over [a, b] and returns
// every sub-interval where the sign flips, in increasing order. NaN samples
// break the chain and never produce a bracket.
func SignChanges(f func(float64) float64, a, b float64, n int) []Bracket {
	if n < 1 || !(b > a) {
		return nil
	}
	var out []Bracket
	step := (b - a) / float64(n)
	x0 := a
	f0 := f(x0)
	if f0 == 0 {
		out = append(out, Bracket{Lo: x0, Hi: x0, Exact: true})
	}
	for i := 1; i <= n; i++ {
		x1 := a + float64(i)*step
		if i == n {
			x1 = b
		}
		f1 := f(x1)
		switch {
		case math.IsNaN(f0) || math.IsNaN(f1):
		case f1 == 0:
			out = append(out, Bracket{Lo: x1, Hi: x1, Exact: true})
		case f0 != 0 && (f0 > 0) != (f1 > 0):
			out = append(out, Bracket{Lo: x0, Hi: x1})
		}
		x0, f0 = x1, f1
	}
	return out
}
