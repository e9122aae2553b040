package pump

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// surface is a polynomial z = Σ c_ij · x^i · y^j (i ≤ dx, j ≤ dy) fitted on
// normalised variables.
type surface struct {
	dx, dy         int
	xScale, yScale float64
	coef           []float64
	rmse           float64
}

func terms(dx, dy int) int { return (dx + 1) * (dy + 1) }

func scaleOf(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	if m == 0 {
		return 1
	}
	return m
}

func (s *surface) row(dst []float64, x, y float64) {
	x /= s.xScale
	y /= s.yScale
	k := 0
	xi := 1.0
	for i := 0; i <= s.dx; i++ {
		yj := 1.0
		for j := 0; j <= s.dy; j++ {
			dst[k] = xi * yj
			k++
			yj *= y
		}
		xi *= x
	}
}

func fitSurface(xs, ys, zs []float64, dx, dy int) (*surface, error) {
	n := len(zs)
	k := terms(dx, dy)
	if n < k {
		return nil, fmt.Errorf("%w: %d points for %d coefficients", ErrInsufficientData, n, k)
	}
	s := &surface{dx: dx, dy: dy, xScale: scaleOf(xs), yScale: scaleOf(ys)}

	a := mat.NewDense(n, k, nil)
	row := make([]float64, k)
	for i := 0; i < n; i++ {
		s.row(row, xs[i], ys[i])
		a.SetRow(i, row)
	}
	var c mat.VecDense
	if err := c.SolveVec(a, mat.NewVecDense(n, append([]float64(nil), zs...))); err != nil {
		return nil, fmt.Errorf("least squares: %w", err)
	}
	s.coef = make([]float64, k)
	for i := range s.coef {
		s.coef[i] = c.AtVec(i)
	}

	sse := 0.0
	for i := 0; i < n; i++ {
		d := s.eval(xs[i], ys[i]) - zs[i]
		sse += d * d
	}
	s.rmse = math.Sqrt(sse / float64(n))
	return s, nil
}

func (s *surface) eval(x, y float64) float64 {
	x /= s.xScale
	y /= s.yScale
	// Horner in x over polynomials in y
	z := 0.0
	for i := s.dx; i >= 0; i-- {
		p := 0.0
		for j := s.dy; j >= 0; j-- {
			p = p*y + s.coef[i*(s.dy+1)+j]
		}
		z = z*x + p
	}
	return z
}
