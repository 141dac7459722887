// Copyright ©2026 The jfnk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jfnk

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

// GMRES implements the restarted Generalized Minimum Residual method. It
// needs only operator applications A*v, which makes it the default inner
// solver for the finite-difference Jacobian operator.
//
// The Krylov basis and work vectors are requested from the factory under
// stable names ("gmres/v0", "gmres/v1", ..., "gmres/w", "gmres/r"), so when
// the factory is the Newton driver's buffer cache their allocation cost is
// paid once per run. The Hessenberg matrix and rotation scalars are plain
// float64 storage kept on the receiver and recycled between solves.
//
// A GMRES value must not be used by concurrent solves.
type GMRES[V any] struct {
	s    []float64
	y    []float64
	h    []float64
	ldh  int
	givs []givens

	v []V
}

type givens struct {
	c, s float64
}

// Solve implements the LinearSolver interface. cfg.Settings.Restart and
// cfg.Settings.MaxIterations must be positive. It returns ErrIterationLimit
// when the iteration cap is reached, leaving the best approximation in
// cfg.X.
func (g *GMRES[V]) Solve(cfg LinearConfig[V]) error {
	ops := cfg.Ops
	k := cfg.Settings.Restart
	if k <= 0 {
		panic("jfnk: GMRES restart not set")
	}
	maxIter := cfg.Settings.MaxIterations
	if maxIter <= 0 {
		panic("jfnk: linear iteration limit not set")
	}
	tol := cfg.Settings.Tolerance
	if tol == 0 {
		tol = defaultLinearTolerance
	}

	g.s = reuse(g.s, k+1)
	g.y = reuse(g.y, k+1)
	g.ldh = k + 1
	g.h = reuse(g.h, g.ldh*k)
	if cap(g.givs) < k {
		g.givs = make([]givens, k)
	} else {
		g.givs = g.givs[:k]
	}
	g.v = g.v[:0]
	for i := 0; i <= k; i++ {
		g.v = append(g.v, ops.New("gmres/v"+strconv.Itoa(i)))
	}
	w := ops.New("gmres/w")
	r := ops.New("gmres/r")

	bnorm := math.Sqrt(ops.Dot(cfg.B, cfg.B))
	if bnorm == 0 {
		bnorm = 1
	}

	var iters int
	for {
		// r = b - A*x
		cfg.A(r, cfg.X)
		ops.MulAdd(r, cfg.B, r, -1)
		rnorm := math.Sqrt(ops.Dot(r, r))
		if rnorm/bnorm < tol {
			return nil
		}
		if iters >= maxIter {
			return ErrIterationLimit
		}

		// Start a cycle: V[:,0] = r/|r|, s = |r|*e_1.
		ops.Scale(g.v[0], r, 1/rnorm)
		for i := range g.s {
			g.s[i] = 0
		}
		g.s[0] = rnorm

		var m int
		for m < k && iters < maxIter {
			// Construct the m-th column of the upper Hessenberg
			// matrix using the Gram-Schmidt process on V and w so
			// that it is orthonormal to the previous m columns.
			cfg.A(w, g.v[m])
			hm := g.h[m*g.ldh : m*g.ldh+g.ldh]
			for j := 0; j <= m; j++ {
				hm[j] = ops.Dot(g.v[j], w)
				ops.MulAdd(w, w, g.v[j], -hm[j])
			}
			wnorm := math.Sqrt(ops.Dot(w, w))
			hm[m+1] = wnorm // H[m+1,m] = |w|
			if wnorm != 0 {
				ops.Scale(g.v[m+1], w, 1/wnorm)
			}

			// Apply the previous Givens rotations to the new
			// column, then compute and apply the one that zeroes
			// H[m+1,m].
			for j := 0; j < m; j++ {
				hm[j], hm[j+1] = rotvec(hm[j], hm[j+1], g.givs[j])
			}
			g.givs[m] = drotg(hm[m], hm[m+1])
			hm[m], hm[m+1] = rotvec(hm[m], hm[m+1], g.givs[m])
			g.s[m], g.s[m+1] = rotvec(g.s[m], g.s[m+1], g.givs[m])

			m++
			iters++
			// |s[m]| estimates the residual norm of the updated
			// solution without forming it.
			if math.Abs(g.s[m])/bnorm < tol {
				break
			}
		}
		g.update(cfg, m)
		// The loop recomputes the true residual and decides whether
		// the estimate was good enough.
	}
}

// update solves the m×m triangular system H y = s and accumulates the
// cycle's correction x += V y.
func (g *GMRES[V]) update(cfg LinearConfig[V], m int) {
	y := g.y[:m]
	copy(y, g.s[:m])
	// H is upper triangular but stored in column-major order while Dtrsv
	// expects row-major.
	bi := blas64.Implementation()
	bi.Dtrsv(blas.Lower, blas.Trans, blas.NonUnit, m, g.h, g.ldh, y, 1)
	for j := 0; j < m; j++ {
		cfg.Ops.MulAdd(cfg.X, cfg.X, g.v[j], y[j])
	}
}

func drotg(a, b float64) givens {
	if b == 0 {
		return givens{c: 1, s: 0}
	}
	if math.Abs(b) > math.Abs(a) {
		tmp := -a / b
		s := 1 / math.Sqrt(1+tmp*tmp)
		return givens{c: tmp * s, s: s}
	}
	tmp := -b / a
	c := 1 / math.Sqrt(1+tmp*tmp)
	return givens{c: c, s: tmp * c}
}

func rotvec(x, y float64, g givens) (rx, ry float64) {
	rx = g.c*x - g.s*y
	ry = g.s*x + g.c*y
	return
}
