// Copyright ©2026 The jfnk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jfnk

import "errors"

var (
	// ErrIterationLimit is returned by a linear solver that reached its
	// iteration cap. The approximate solution left in LinearConfig.X is
	// still usable; the Newton driver treats this as an inexact solve,
	// not a failure.
	ErrIterationLimit = errors.New("jfnk: linear iteration limit reached")

	// ErrBreakdown is returned by a linear solver whose recurrence broke
	// down on the given operator.
	ErrBreakdown = errors.New("jfnk: linear solver breakdown")
)

// LinearSolver approximately solves the linear system A*x = b described by a
// LinearConfig. The solver must leave its approximation in cfg.X, refining
// the initial guess found there.
type LinearSolver[V any] interface {
	Solve(cfg LinearConfig[V]) error
}

// LinearConfig describes one linear solve. The Newton driver builds it fresh
// every iteration with Ops.New routed through a per-run buffer cache, so a
// solver that requests its work vectors under stable names pays their
// allocation cost once per run instead of once per iteration.
type LinearConfig[V any] struct {
	// Ops is the algebra backend for the solve.
	Ops Ops[V]

	// A applies the system operator: dst = A*v.
	A func(dst, v V)

	// B is the right-hand side.
	B V

	// X is the initial guess, refined in place to the solution.
	X V

	// Settings holds the solve parameters.
	Settings LinearSettings
}

// LinearSettings holds the parameters of a linear solve.
type LinearSettings struct {
	// Tolerance is the relative residual tolerance |r|/|b|.
	// If it is zero, it will be set to 1e-10.
	Tolerance float64

	// MaxIterations is the limit on the number of iterations. It must be
	// positive.
	MaxIterations int

	// Restart is the GMRES restart parameter. It must be positive for
	// GMRES and is ignored by BiCGStab.
	Restart int
}

const defaultLinearTolerance = 1e-10

const dlamchE = 1.0 / (1 << 53)
