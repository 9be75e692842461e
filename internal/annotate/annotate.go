// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package annotate asks a language model to summarize, tag, and score
// papers against the researcher's declared interests.
package annotate

import (
	"context"
	"errors"
	"strings"

	"github.com/pdiddy/literature-scout/internal/relevance"
	"github.com/pdiddy/literature-scout/internal/tags"
	"github.com/pdiddy/literature-scout/pkg/types"
)

// ErrMalformedAnnotation is returned when the oracle reply cannot be parsed.
var ErrMalformedAnnotation = errors.New("malformed annotation")

// Oracle scores one paper. Implementations may fail or return
// out-of-range scores; Score absorbs both.
type Oracle interface {
	Annotate(ctx context.Context, req Request) (types.Annotation, error)
}

// Request is everything the oracle sees about one paper.
type Request struct {
	Record    types.Record
	Interests types.Interests

	// Excerpt is plain text from the paper's PDF, possibly empty.
	Excerpt string
}

// Score annotates req.Record and returns a candidate that is always
// usable. On oracle failure the candidate carries score 0, no tags, and
// an empty abstract, and the failure is returned alongside it. On success
// tags are normalized, the score is clamped, and the score tag is added.
// A nil oracle scores 0 without error.
func Score(ctx context.Context, o Oracle, req Request) (types.ScoredCandidate, error) {
	neutral := types.ScoredCandidate{Record: req.Record}
	if o == nil {
		return neutral, nil
	}

	req.Interests = req.Interests.OrDefault()
	ann, err := o.Annotate(ctx, req)
	if err != nil {
		return neutral, err
	}

	score := relevance.Clamp(ann.Score)
	return types.ScoredCandidate{
		Record:     req.Record,
		Score:      score,
		Tags:       tags.EnsureScoreTag(tags.Normalize(ann.Tags), score),
		AIAbstract: strings.TrimSpace(ann.Abstract),
	}, nil
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, req Request) (types.Annotation, error)

// Annotate calls f.
func (f OracleFunc) Annotate(ctx context.Context, req Request) (types.Annotation, error) {
	return f(ctx, req)
}
