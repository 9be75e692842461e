// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "slices"

// Interests describes what the researcher cares about. The scoring oracle
// uses it to judge relevance.
type Interests struct {
	Topics   []string `json:"topics" yaml:"topics" mapstructure:"topics"`
	Authors  []string `json:"authors" yaml:"authors" mapstructure:"authors"`
	Journals []string `json:"journals" yaml:"journals" mapstructure:"journals"`
}

// DefaultInterests is applied when a profile declares no interests at all.
var DefaultInterests = Interests{
	Topics: []string{
		"physical chemistry",
		"biochemistry",
		"structural biology",
		"protein folding",
		"molecular dynamics",
		"enzyme kinetics",
	},
	Journals: []string{
		"Nature",
		"Science",
		"Cell",
		"PNAS",
		"Journal of Physical Chemistry",
		"Biochemistry",
		"Nature Structural & Molecular Biology",
	},
}

// IsEmpty reports whether no topic, author, or journal is declared.
func (in Interests) IsEmpty() bool {
	return len(in.Topics) == 0 && len(in.Authors) == 0 && len(in.Journals) == 0
}

// OrDefault returns in, or DefaultInterests when in is empty.
func (in Interests) OrDefault() Interests {
	if in.IsEmpty() {
		return Interests{
			Topics:   slices.Clone(DefaultInterests.Topics),
			Authors:  slices.Clone(DefaultInterests.Authors),
			Journals: slices.Clone(DefaultInterests.Journals),
		}
	}
	return in
}

// Profile is the per-request snapshot of the researcher's preferences.
// It is passed explicitly through the pipeline; nothing reads it from
// shared state.
type Profile struct {
	Interests Interests `json:"interests" yaml:"interests" mapstructure:"interests"`

	// Threshold is the minimum clamped score a candidate needs before it
	// may be written to the reference store.
	Threshold int `json:"threshold" yaml:"threshold" mapstructure:"threshold" validate:"min=0,max=3"`
}

// Annotation is what the scoring oracle returns for one paper.
type Annotation struct {
	Abstract string   `json:"abstract"`
	Tags     []string `json:"tags"`
	Score    int      `json:"score3"`
}

// ScoredCandidate is a record after annotation. It lives only for the
// duration of one request.
type ScoredCandidate struct {
	Record `yaml:",inline"`

	// Score is the clamped relevance score in [0,3].
	Score int `json:"score" yaml:"score"`

	Tags       []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	AIAbstract string   `json:"ai_abstract,omitempty" yaml:"ai_abstract,omitempty"`
}
