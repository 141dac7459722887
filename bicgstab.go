// Copyright ©2026 The jfnk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jfnk

import "math"

// BiCGStab implements the BiConjugate Gradient STABilized method for
// nonsymmetric systems. Unlike BiCG it is transpose-free, so it can run on
// the finite-difference Jacobian operator, which cannot produce A^T*v.
//
// Work vectors are requested from the factory under stable names
// ("bicgstab/rt" and so on) to cooperate with the Newton driver's buffer
// cache.
type BiCGStab[V any] struct{}

// Solve implements the LinearSolver interface. cfg.Settings.MaxIterations
// must be positive. It returns ErrIterationLimit when the iteration cap is
// reached and ErrBreakdown when the recurrence degenerates; in both cases
// cfg.X holds the best approximation so far.
func (*BiCGStab[V]) Solve(cfg LinearConfig[V]) error {
	ops := cfg.Ops
	maxIter := cfg.Settings.MaxIterations
	if maxIter <= 0 {
		panic("jfnk: linear iteration limit not set")
	}
	tol := cfg.Settings.Tolerance
	if tol == 0 {
		tol = defaultLinearTolerance
	}

	rt := ops.New("bicgstab/rt")
	r := ops.New("bicgstab/r")
	p := ops.New("bicgstab/p")
	v := ops.New("bicgstab/v")
	t := ops.New("bicgstab/t")

	bnorm := math.Sqrt(ops.Dot(cfg.B, cfg.B))
	if bnorm == 0 {
		bnorm = 1
	}

	// r = b - A*x
	cfg.A(r, cfg.X)
	ops.MulAdd(r, cfg.B, r, -1)
	if math.Sqrt(ops.Dot(r, r))/bnorm < tol {
		return nil
	}
	ops.Scale(rt, r, 1) // shadow residual r~ = r_0

	var rho, rhoPrev, alpha, omega float64
	first := true
	for iters := 0; iters < maxIter; iters++ {
		rho = ops.Dot(rt, r)
		if math.Abs(rho) < dlamchE*dlamchE {
			return ErrBreakdown
		}
		if first {
			ops.Scale(p, r, 1)
		} else {
			beta := (rho / rhoPrev) * (alpha / omega)
			ops.MulAdd(p, p, v, -omega) // p -= ω v
			ops.Scale(p, p, beta)       // p *= β
			ops.MulAdd(p, p, r, 1)      // p += r
		}
		cfg.A(v, p)
		alpha = rho / ops.Dot(rt, v)
		// Early check on the half-step residual s = r - α v, reusing r.
		ops.MulAdd(r, r, v, -alpha)
		if math.Sqrt(ops.Dot(r, r))/bnorm < tol {
			ops.MulAdd(cfg.X, cfg.X, p, alpha)
			return nil
		}
		cfg.A(t, r)
		omega = ops.Dot(t, r) / ops.Dot(t, t)
		ops.MulAdd(cfg.X, cfg.X, p, alpha)
		ops.MulAdd(cfg.X, cfg.X, r, omega)
		ops.MulAdd(r, r, t, -omega)
		if math.Sqrt(ops.Dot(r, r))/bnorm < tol {
			return nil
		}
		if math.Abs(omega) < dlamchE*dlamchE {
			return ErrBreakdown
		}
		rhoPrev = rho
		first = false
	}
	return ErrIterationLimit
}
