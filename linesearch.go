// Copyright ©2026 The jfnk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jfnk

import "fmt"

// LineSearch selects the policy that picks the step scale alpha applied
// along the Newton direction. The policy is validated once at setup; an
// unrecognized value makes Solve panic before any iteration runs.
type LineSearch int

const (
	// LineSearchBisect shrinks a bracket [0, Alpha] around the residual
	// minimum by repeated midpoint comparison. It assumes the residual is
	// approximately unimodal along the direction; on a multimodal profile
	// it settles for a local improvement. This is the default.
	LineSearchBisect LineSearch = iota

	// LineSearchNone always applies the full step Alpha, with no extra
	// residual evaluations.
	LineSearchNone

	// LineSearchLinear evaluates the residual on a uniform grid of
	// LineSearchMaxIterations+1 points in [0, Alpha] and keeps the first
	// point of minimum residual.
	LineSearchLinear
)

func (ls LineSearch) valid() bool {
	switch ls {
	case LineSearchBisect, LineSearchNone, LineSearchLinear:
		return true
	}
	return false
}

func (ls LineSearch) String() string {
	switch ls {
	case LineSearchBisect:
		return "bisect"
	case LineSearchNone:
		return "none"
	case LineSearchLinear:
		return "linear"
	}
	return fmt.Sprintf("LineSearch(%d)", int(ls))
}

// ParseLineSearch converts a policy name ("none", "linear" or "bisect") into
// its LineSearch value, for callers carrying string-valued configuration.
func ParseLineSearch(name string) (LineSearch, error) {
	switch name {
	case "bisect":
		return LineSearchBisect, nil
	case "none":
		return LineSearchNone, nil
	case "linear":
		return LineSearchLinear, nil
	}
	return 0, fmt.Errorf("jfnk: unknown line search policy %q", name)
}

// residualAt evaluates the residual metric of the trial point x - alpha*dx.
func (s *solver[V]) residualAt(alpha float64) float64 {
	s.ops.MulAdd(s.xTrial, s.x, s.dx, -alpha)
	s.eval(s.fTrial, s.xTrial)
	return s.norm(s.fTrial)
}

func (s *solver[V]) search(maxAlpha float64) float64 {
	switch s.settings.LineSearch {
	case LineSearchNone:
		return maxAlpha
	case LineSearchLinear:
		alpha, _ := s.searchLinear(maxAlpha)
		return alpha
	default:
		alpha, _ := s.searchBisect(maxAlpha)
		return alpha
	}
}

func (s *solver[V]) searchLinear(maxAlpha float64) (alpha, resid float64) {
	n := s.settings.LineSearchMaxIterations
	bestAlpha := 0.0
	bestResid := s.residualAt(0)
	for i := 1; i <= n; i++ {
		a := maxAlpha * float64(i) / float64(n)
		// Strict < keeps the smallest alpha among ties.
		if r := s.residualAt(a); r < bestResid {
			bestAlpha, bestResid = a, r
		}
	}
	return bestAlpha, bestResid
}

func (s *solver[V]) searchBisect(maxAlpha float64) (alpha, resid float64) {
	alphaL, alphaR := 0.0, maxAlpha
	residL := s.residualAt(alphaL)
	residR := s.residualAt(alphaR)
loop:
	for i := 0; i < s.settings.LineSearchMaxIterations; i++ {
		alphaMid := 0.5 * (alphaL + alphaR)
		residMid := s.residualAt(alphaMid)
		switch {
		case residMid > residL && residMid > residR:
			// Worse than both endpoints: no descent through the
			// midpoint, keep the bracket as it is.
			break loop
		case residMid < residL && residMid < residR:
			// Interior minimum signature: discard the worse
			// endpoint.
			if residL > residR {
				alphaL, residL = alphaMid, residMid
			} else {
				alphaR, residR = alphaMid, residMid
			}
		case residMid < residL:
			alphaL, residL = alphaMid, residMid
		default:
			// Ties fall through to here on purpose; changing the
			// order changes convergence on symmetric profiles.
			alphaR, residR = alphaMid, residMid
		}
	}
	if residL < residR {
		return alphaL, residL
	}
	return alphaR, residR
}
