package coupling

import "math"

// Result is the outcome of a fixed-point iteration.
type Result struct {
	Value      float64
	Iterations int
	Converged  bool
}

// FixedPoint iterates x ← step(x) from x0 until two successive values differ
// by less than atol, or maxIter steps have been taken. A NaN step stops the
// iteration unconverged.
func FixedPoint(x0 float64, step func(float64) float64, atol float64, maxIter int) Result {
	x := x0
	for i := 1; i <= maxIter; i++ {
		next := step(x)
		if math.IsNaN(next) {
			return Result{Value: math.NaN(), Iterations: i}
		}
		if math.Abs(next-x) < atol {
			return Result{Value: next, Iterations: i, Converged: true}
		}
		x = next
	}
	return Result{Value: x, Iterations: maxIter}
}
