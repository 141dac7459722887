// Copyright ©2026 The jfnk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jfnk

// bufferCache memoizes named vector allocations for the duration of one
// solver run. The inner Krylov solver asks for the same names every Newton
// iteration, so a name allocates through the backend at most once and then
// always resolves to the identical vector instance. The cache is owned by a
// single driver invocation and is never shared.
type bufferCache[V any] struct {
	alloc func(name string) V
	vecs  map[string]V
}

func newBufferCache[V any](alloc func(name string) V) *bufferCache[V] {
	return &bufferCache[V]{
		alloc: alloc,
		vecs:  make(map[string]V),
	}
}

func (c *bufferCache[V]) get(name string) V {
	if v, ok := c.vecs[name]; ok {
		return v
	}
	v := c.alloc(name)
	c.vecs[name] = v
	return v
}
