package numeric

import "math"

var invPhi = (math.Sqrt(5) - 1) / 2

// GoldenMax maximises a unimodal f over [a, b] by golden-section search and
// returns the argmax and the maximum.
func GoldenMax(f func(float64) float64, a, b, tol float64, maxIter int) (float64, float64) {
	if b < a {
		a, b = b, a
	}
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, fd := f(c), f(d)
	for i := 0; i < maxIter && b-a > tol; i++ {
		if fc >= fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd = f(d)
		}
	}
	x := (a + b) / 2
	return x, f(x)
}
