// Copyright ©2026 The jfnk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jfnk

import "gonum.org/v1/gonum/floats"

// SliceOps returns an algebra backend over []float64 vectors of dimension
// dim. Every New call allocates fresh storage regardless of name; memoizing
// named allocations is the job of the solver's buffer cache.
func SliceOps(dim int) Ops[[]float64] {
	return Ops[[]float64]{
		New: func(name string) []float64 {
			return make([]float64, dim)
		},
		Dot: floats.Dot,
		MulAdd: func(dst, a, b []float64, s float64) {
			floats.AddScaledTo(dst, a, s, b)
		},
		Scale: func(dst, a []float64, s float64) {
			floats.ScaleTo(dst, s, a)
		},
	}
}
