package coupling

import (
	"errors"
	"math"

	"github.com/stephansmit/pvpumpingsystem/internal/model"
	"github.com/stephansmit/pvpumpingsystem/internal/pipe"
	"github.com/stephansmit/pvpumpingsystem/internal/pvgen"
)

const (
	DefaultAtol    = 0.1
	DefaultMaxIter = 50
)

// Solver resolves one timestep, iterating on total dynamic head when pipe
// friction is enabled. It holds no mutable state and may be shared across
// goroutines.
type Solver struct {
	Coupling Coupling
	Pipes    pipe.Network
	Friction bool
	// Atol is the head tolerance in m.
	Atol    float64
	MaxIter int
}

// NewSolver applies defaults and checks the solver settings.
func NewSolver(c Coupling, pipes pipe.Network, friction bool, atol float64, maxIter int) (*Solver, error) {
	if c == nil {
		return nil, errors.New("coupling is nil")
	}
	if err := pipes.Validate(); err != nil {
		return nil, err
	}
	if atol == 0 {
		atol = DefaultAtol
	}
	if maxIter == 0 {
		maxIter = DefaultMaxIter
	}
	if atol < 0 || maxIter < 1 {
		return nil, errors.New("atol must be > 0 and max_iter >= 1")
	}
	return &Solver{Coupling: c, Pipes: pipes, Friction: friction, Atol: atol, MaxIter: maxIter}, nil
}

// Solve returns the operating point for one characteristic. When the head
// iteration does not settle, or the coupling has no intersection at some
// head, the result is the undefined point.
func (s *Solver) Solve(ch pvgen.Characteristic) model.OperatingPoint {
	hs := s.Pipes.StaticHead
	if ch.Dark() {
		return model.ZeroPoint(hs, 0)
	}
	if !s.Friction {
		op := s.Coupling.Resolve(ch, hs)
		op.Iterations = 1
		return op
	}

	var last model.OperatingPoint
	step := func(h float64) float64 {
		last = s.Coupling.Resolve(ch, h)
		if !last.Defined() {
			return math.NaN()
		}
		return s.Pipes.TotalHead(last.Flow)
	}
	r := FixedPoint(hs, step, s.Atol, s.MaxIter)
	if !r.Converged {
		return model.UndefinedPoint(r.Iterations)
	}
	last.Iterations = r.Iterations
	return last
}
