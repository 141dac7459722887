// Copyright ©2026 The jfnk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jfnk

import "errors"

// solver carries the state of one Solve invocation: the resolved settings,
// the workspace buffers reused across iterations, and the buffer cache that
// backs the inner solver's allocations. It is driven by a single goroutine
// and never shared.
type solver[V any] struct {
	f        func(dst, x V)
	x        V
	ops      Ops[V]
	inner    Ops[V] // ops with New routed through the buffer cache
	norm     func(a V) float64
	settings Settings[V]
	stats    *Stats

	cache *bufferCache[V]
	jac   *dirDeriv[V]

	fx     V // residual at the current iterate
	dx     V // Newton direction, warm-started across iterations
	xTrial V // line-search trial point
	fTrial V // residual at the trial point
}

func newSolver[V any](f func(dst, x V), x V, ops Ops[V], settings Settings[V], stats *Stats) *solver[V] {
	s := &solver[V]{
		f:        f,
		x:        x,
		ops:      ops,
		settings: settings,
		stats:    stats,
	}

	s.norm = ops.Norm
	if s.norm == nil {
		size := float64(settings.Size)
		s.norm = func(a V) float64 {
			return ops.Dot(a, a) / size
		}
	}

	s.cache = newBufferCache(ops.New)
	s.inner = ops
	s.inner.New = s.cache.get

	s.fx = ops.New("newton/f_of_x")
	s.xTrial = ops.New("newton/x_trial")
	s.fTrial = ops.New("newton/f_trial")

	s.dx = ops.New("newton/dx")
	if settings.InitialDirection != nil {
		ops.Scale(s.dx, *settings.InitialDirection, 1)
	} else {
		ops.Scale(s.dx, x, 1)
	}

	s.jac = &dirDeriv[V]{
		eval: s.eval,
		ops:  ops,
		x:    x,
		eps:  settings.JFNKEpsilon,
		xp:   ops.New("newton/x_plus"),
		xm:   ops.New("newton/x_minus"),
		fp:   ops.New("newton/f_plus"),
		fm:   ops.New("newton/f_minus"),
	}
	return s
}

func (s *solver[V]) eval(dst, x V) {
	s.f(dst, x)
	s.stats.FuncEvals++
}

// run is the outer Newton loop. Within one iteration the ordering is
// load-bearing: residual evaluation, then the callback and convergence
// checks, then the Krylov solve, then the line search, then the step, since
// each stage reads buffers written by the previous one.
func (s *solver[V]) run() error {
	set := &s.settings
	for iter := 1; iter <= set.MaxIterations; iter++ {
		s.eval(s.fx, s.x)
		resid := s.norm(s.fx)
		s.stats.Iterations = iter
		s.stats.ResidualNorm = resid
		if set.Logger != nil {
			set.Logger.Debug("newton iteration", "iter", iter, "residual", resid)
		}
		// The callback runs before the convergence test so it can
		// short-circuit even a converged solve.
		if set.ErrorCallback != nil && set.ErrorCallback(resid, iter) {
			return nil
		}
		if resid < set.Epsilon {
			return nil
		}
		if err := s.refineDirection(); err != nil {
			return err
		}
		alpha := s.search(set.Alpha)
		s.ops.MulAdd(s.x, s.x, s.dx, -alpha)
	}
	return nil
}

// refineDirection runs the inner Krylov solve for (dF/dx) dx = F(x),
// refining the warm-started dx in place. The operator, right-hand side,
// guess and factory are passed through untouched apart from the buffer-cache
// interposition on New.
func (s *solver[V]) refineDirection() error {
	s.stats.LinearSolves++
	err := s.settings.Solver.Solve(LinearConfig[V]{
		Ops:      s.inner,
		A:        s.jac.apply,
		B:        s.fx,
		X:        s.dx,
		Settings: s.settings.Krylov,
	})
	if errors.Is(err, ErrIterationLimit) {
		// A truncated inner solve still yields a usable inexact
		// Newton direction.
		return nil
	}
	return err
}
