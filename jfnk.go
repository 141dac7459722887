// Copyright ©2026 The jfnk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jfnk implements a Jacobian-free Newton-Krylov solver for systems of
// nonlinear equations
//
//	F(x) = 0.
//
// Each Newton step solves the linear system
//
//	(dF/dx) dx = F(x)
//
// with a Krylov method, never forming the Jacobian matrix explicitly. The
// Jacobian-vector products the Krylov method needs are approximated by a
// central finite difference of F, and the step length applied along dx is
// chosen by a damped line search.
//
// The solver is independent of the vector representation. All vector storage
// and arithmetic go through the caller-supplied Ops, so vectors can be plain
// slices, device buffers, or anything else that supports the five operations.
// SliceOps provides a ready-made []float64 backend.
package jfnk

import (
	"log/slog"
	"time"
)

// Ops is the algebra backend supplied by the caller. It describes how to
// allocate vectors of the system's dimension and how to perform the
// elementary operations the solver needs. New, Dot, MulAdd and Scale must be
// non-nil.
//
// The solver issues one operation at a time and assumes each has completed
// before it reads a scalar result, so a backend with asynchronous execution
// must order its operations accordingly.
type Ops[V any] struct {
	// New allocates a vector identified by a logical name. The solver and
	// its inner Krylov solvers request buffers under stable names; the
	// names exist so that a caller can account for or memoize allocations.
	New func(name string) V

	// Dot computes the inner product of a and b.
	Dot func(a, b V) float64

	// Norm computes the convergence metric of a. If it is nil, the mean
	// squared magnitude Dot(a,a)/Size is used. It is used for the outer
	// convergence test and the line search; inner Krylov solvers use the
	// Euclidean norm derived from Dot regardless.
	Norm func(a V) float64

	// MulAdd computes dst = a + s*b. dst may alias a or b.
	MulAdd func(dst, a, b V, s float64)

	// Scale computes dst = s*a. dst may alias a.
	Scale func(dst, a V, s float64)
}

// Settings holds the parameters of a solver run. Zero values of the fields
// mean default values, resolved once when Solve starts.
type Settings[V any] struct {
	// Size is the dimension of the system. It must be positive.
	Size int

	// Epsilon is the convergence tolerance on the residual metric.
	// If it is zero, it will be set to 1e-10.
	Epsilon float64

	// MaxIterations is the limit on the number of Newton iterations.
	// If it is zero, it will be set to 100.
	MaxIterations int

	// Alpha is the maximum step scale considered by the line search and
	// the step applied when the line search policy is LineSearchNone.
	// If it is zero, it will be set to 1.
	Alpha float64

	// JFNKEpsilon is the perturbation size of the finite-difference
	// Jacobian-vector product. It is fixed for the whole run; too large a
	// value lets truncation error dominate, too small a value lets
	// cancellation dominate.
	// If it is zero, it will be set to 1e-6.
	JFNKEpsilon float64

	// LineSearch selects the step-scale policy. The zero value is
	// LineSearchBisect. An unrecognized value panics at setup.
	LineSearch LineSearch

	// LineSearchMaxIterations is the iteration cap of the line search.
	// If it is zero, it will be set to 100.
	LineSearchMaxIterations int

	// ErrorCallback, if non-nil, is called once per iteration with the
	// current residual metric, before the convergence test. Returning
	// true stops the solve and returns the current iterate.
	ErrorCallback func(resid float64, iter int) bool

	// InitialDirection is the initial guess for the Newton direction of
	// the first iteration. If it is nil, a copy of the initial x is used.
	// Later iterations warm-start from the previous direction.
	InitialDirection *V

	// Solver is the inner Krylov solver. If it is nil, GMRES is used.
	Solver LinearSolver[V]

	// Krylov holds the settings passed to the inner solver. Zero fields
	// default to Tolerance 1e-10, MaxIterations 2*Size and Restart Size.
	Krylov LinearSettings

	// Logger, if non-nil, receives a debug record per Newton iteration.
	Logger *slog.Logger
}

func defaultSettings[V any](s *Settings[V]) {
	if s.Size <= 0 {
		panic("jfnk: system size not positive")
	}
	if !s.LineSearch.valid() {
		panic("jfnk: unknown line search policy")
	}
	if s.Epsilon == 0 {
		s.Epsilon = 1e-10
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = 100
	}
	if s.Alpha == 0 {
		s.Alpha = 1
	}
	if s.JFNKEpsilon == 0 {
		s.JFNKEpsilon = 1e-6
	}
	if s.LineSearchMaxIterations == 0 {
		s.LineSearchMaxIterations = 100
	}
	if s.Solver == nil {
		s.Solver = &GMRES[V]{}
	}
	if s.Krylov.Tolerance == 0 {
		s.Krylov.Tolerance = defaultLinearTolerance
	}
	if s.Krylov.MaxIterations == 0 {
		s.Krylov.MaxIterations = 2 * s.Size
	}
	if s.Krylov.Restart == 0 {
		s.Krylov.Restart = s.Size
	}
}

// Stats holds statistics about a solver run.
type Stats struct {
	// Iterations is the number of Newton iterations performed.
	Iterations int
	// FuncEvals is the number of residual function evaluations, including
	// finite-difference probes and line-search trials.
	FuncEvals int
	// LinearSolves is the number of inner Krylov solves.
	LinearSolves int
	// ResidualNorm is the residual metric at the last evaluated iterate.
	ResidualNorm float64
	// StartTime is an approximate time when the solve was started.
	StartTime time.Time
	// Runtime is an approximate duration of the solve.
	Runtime time.Duration
}

// Result holds the result of a solver run.
type Result[V any] struct {
	// X is the final iterate. It is the same vector that was passed to
	// Solve, refined in place.
	X V
	// Stats holds the statistics of the solve.
	Stats Stats
}

// Solve finds a root of the residual function f, starting from the initial
// guess x and refining it in place.
//
// f must write F(x) into its first argument and must not modify its second.
// It may be called at trial points that are not Newton iterates: both the
// finite-difference probing and the line search evaluate it off-path.
//
// Exhausting Settings.MaxIterations is not an error; the best available
// iterate is returned and Result.Stats.ResidualNorm tells how good it is. An
// error is only returned when the inner Krylov solver fails for a reason
// other than its own iteration limit.
func Solve[V any](f func(dst, x V), x V, ops Ops[V], settings Settings[V]) (Result[V], error) {
	stats := Stats{StartTime: time.Now()}

	if f == nil {
		panic("jfnk: nil residual function")
	}
	if ops.New == nil || ops.Dot == nil || ops.MulAdd == nil || ops.Scale == nil {
		panic("jfnk: incomplete algebra backend")
	}
	defaultSettings(&settings)

	s := newSolver(f, x, ops, settings, &stats)
	err := s.run()

	stats.Runtime = time.Since(stats.StartTime)
	return Result[V]{
		X:     x,
		Stats: stats,
	}, err
}

func reuse(v []float64, n int) []float64 {
	if cap(v) < n {
		return make([]float64, n)
	}
	return v[:n]
}
