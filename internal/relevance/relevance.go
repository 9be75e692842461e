// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package relevance decides whether a scored candidate may be written to
// the reference store.
package relevance

// MaxScore is the highest relevance score the oracle can assign.
const MaxScore = 3

// Clamp bounds a raw oracle score to [0, MaxScore].
func Clamp(raw int) int {
	return max(0, min(MaxScore, raw))
}

// IsEligible reports whether score, after clamping, meets threshold.
// The comparison is inclusive.
func IsEligible(score, threshold int) bool {
	return Clamp(score) >= threshold
}

// Gate holds a per-request threshold.
type Gate struct {
	Threshold int
}

// Admit clamps score and reports it together with eligibility.
func (g Gate) Admit(score int) (int, bool) {
	s := Clamp(score)
	return s, s >= g.Threshold
}
