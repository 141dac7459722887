// Copyright ©2026 The jfnk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jfnk

// dirDeriv approximates Jacobian-vector products of the residual function by
// a central finite difference,
//
//	(dF/dx)*v ≈ (F(x + e*v) - F(x - e*v)) / (2*e),
//
// which is second-order accurate in e. The perturbation size is fixed for
// the whole run; there is no adaptive step control, and a NaN or Inf from an
// ill-conditioned probe propagates into the result.
//
// x is the live Newton iterate: the driver updates it in place, so the
// operator always differentiates around the current point.
type dirDeriv[V any] struct {
	eval func(dst, x V)
	ops  Ops[V]
	x    V
	eps  float64

	xp, xm V // probe points x ± e*v
	fp, fm V // residuals at the probe points
}

func (d *dirDeriv[V]) apply(dst, v V) {
	d.ops.MulAdd(d.xp, d.x, v, d.eps)
	d.ops.MulAdd(d.xm, d.x, v, -d.eps)
	d.eval(d.fp, d.xp)
	d.eval(d.fm, d.xm)
	d.ops.MulAdd(dst, d.fp, d.fm, -1)
	d.ops.Scale(dst, dst, 1/(2*d.eps))
}
