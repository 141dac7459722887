// Copyright ©2026 The jfnk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jfnk

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
)

// randomSystem returns a random diagonally dominant n×n matrix in dense
// row-major storage and a right-hand side for which [1,1,...,1] is the
// solution.
func randomSystem(n int, rnd *rand.Rand) (a, b []float64) {
	a = make([]float64, n*n)
	for i := range a {
		a[i] = rnd.Float64() - 0.5
	}
	for i := 0; i < n; i++ {
		a[i*n+i] += float64(n)
	}
	want := make([]float64, n)
	for i := range want {
		want[i] = 1
	}
	b = make([]float64, n)
	blas64.Implementation().Dgemv(blas.NoTrans, n, n, 1, a, n, want, 1, 0, b, 1)
	return a, b
}

func denseMatVec(a []float64, n int) func(dst, v []float64) {
	return func(dst, v []float64) {
		blas64.Implementation().Dgemv(blas.NoTrans, n, n, 1, a, n, v, 1, 0, dst, 1)
	}
}

func TestGMRES(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for _, n := range []int{1, 2, 3, 4, 5, 10, 20, 50, 100} {
		a, b := randomSystem(n, rnd)
		x := make([]float64, n)
		err := (&GMRES[[]float64]{}).Solve(LinearConfig[[]float64]{
			Ops: SliceOps(n),
			A:   denseMatVec(a, n),
			B:   b,
			X:   x,
			Settings: LinearSettings{
				Tolerance:     1e-12,
				MaxIterations: 4 * n,
				Restart:       n,
			},
		})
		if err != nil {
			t.Errorf("Case n=%v: unexpected error %v", n, err)
			continue
		}
		want := make([]float64, n)
		for i := range want {
			want[i] = 1
		}
		dist := floats.Distance(x, want, math.Inf(1))
		if dist > 1e-8 {
			t.Errorf("Case n=%v: unexpected solution, |want-got|=%v", n, dist)
		}
	}
}

func TestGMRESRestarted(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	const n = 30
	a, b := randomSystem(n, rnd)
	x := make([]float64, n)
	err := (&GMRES[[]float64]{}).Solve(LinearConfig[[]float64]{
		Ops: SliceOps(n),
		A:   denseMatVec(a, n),
		B:   b,
		X:   x,
		Settings: LinearSettings{
			Tolerance:     1e-12,
			MaxIterations: 100 * n,
			Restart:       5,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	want := make([]float64, n)
	for i := range want {
		want[i] = 1
	}
	if dist := floats.Distance(x, want, math.Inf(1)); dist > 1e-6 {
		t.Errorf("unexpected solution, |want-got|=%v", dist)
	}
}

func TestGMRESWarmStart(t *testing.T) {
	// Starting from the exact solution must converge without iterating.
	rnd := rand.New(rand.NewSource(1))
	const n = 10
	a, b := randomSystem(n, rnd)
	x := make([]float64, n)
	for i := range x {
		x[i] = 1
	}
	var applies int
	matvec := denseMatVec(a, n)
	err := (&GMRES[[]float64]{}).Solve(LinearConfig[[]float64]{
		Ops: SliceOps(n),
		A: func(dst, v []float64) {
			applies++
			matvec(dst, v)
		},
		B: b,
		X: x,
		Settings: LinearSettings{
			Tolerance:     1e-10,
			MaxIterations: 4 * n,
			Restart:       n,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if applies != 1 {
		t.Errorf("got %d operator applications, want 1 (initial residual only)", applies)
	}
}

func TestGMRESIterationLimit(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	const n = 20
	a, b := randomSystem(n, rnd)
	x := make([]float64, n)
	err := (&GMRES[[]float64]{}).Solve(LinearConfig[[]float64]{
		Ops: SliceOps(n),
		A:   denseMatVec(a, n),
		B:   b,
		X:   x,
		Settings: LinearSettings{
			Tolerance:     1e-14,
			MaxIterations: 1,
			Restart:       n,
		},
	})
	if !errors.Is(err, ErrIterationLimit) {
		t.Fatalf("got error %v, want ErrIterationLimit", err)
	}
}
