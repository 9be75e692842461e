// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package annotate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/literature-scout/internal/httputil"
	"github.com/pdiddy/literature-scout/pkg/types"
)

var paper = types.Record{
	Title:   "Chaperone assisted folding",
	Authors: "Smith J, Doe A",
	Venue:   "Journal of Molecular Biology",
	Year:    2021,
	Snippet: "Chaperones assist folding.",
}

func TestScoreSuccess(t *testing.T) {
	o := OracleFunc(func(_ context.Context, req Request) (types.Annotation, error) {
		return types.Annotation{
			Abstract: "  A summary.  ",
			Tags:     []string{"aRT:Protein Folding", "", "aTa-Chaperones"},
			Score:    7,
		}, nil
	})

	c, err := Score(context.Background(), o, Request{Record: paper})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Score, "out-of-range score is clamped")
	assert.Equal(t, []string{"aRT-Protein Folding", "aTa-Chaperones", "ai score-3"}, c.Tags)
	assert.Equal(t, "A summary.", c.AIAbstract)
	assert.Equal(t, paper.Title, c.Title)
}

func TestScoreFailureIsNeutral(t *testing.T) {
	o := OracleFunc(func(context.Context, Request) (types.Annotation, error) {
		return types.Annotation{Score: 3, Tags: []string{"x"}}, errors.New("HTTP 500")
	})

	c, err := Score(context.Background(), o, Request{Record: paper})
	require.Error(t, err)
	assert.Zero(t, c.Score)
	assert.Empty(t, c.Tags)
	assert.Empty(t, c.AIAbstract)
	assert.Equal(t, paper.Title, c.Title)
}

func TestScoreNilOracle(t *testing.T) {
	c, err := Score(context.Background(), nil, Request{Record: paper})
	require.NoError(t, err)
	assert.Zero(t, c.Score)
	assert.Empty(t, c.Tags)
}

func TestScoreAppliesDefaultInterests(t *testing.T) {
	var seen types.Interests
	o := OracleFunc(func(_ context.Context, req Request) (types.Annotation, error) {
		seen = req.Interests
		return types.Annotation{}, nil
	})

	_, err := Score(context.Background(), o, Request{Record: paper})
	require.NoError(t, err)
	assert.Equal(t, types.DefaultInterests.Topics, seen.Topics)

	own := types.Interests{Topics: []string{"enzyme design"}}
	_, err = Score(context.Background(), o, Request{Record: paper, Interests: own})
	require.NoError(t, err)
	assert.Equal(t, own, seen)
}

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantScore int
		wantTags  []string
		wantErr   bool
	}{
		{"plain", `{"abstract": "A.", "tags": ["aRT-x"], "score3": 2}`, 2, []string{"aRT-x"}, false},
		{"fenced", "```json\n{\"abstract\": \"A.\", \"tags\": [], \"score3\": \"3\"}\n```", 3, nil, false},
		{"float score", `{"score3": 1.9}`, 1, nil, false},
		{"junk score", `{"score3": "high", "tags": ["a", 5, null, "b"]}`, 0, []string{"a", "b"}, false},
		{"no object", "I cannot help with that.", 0, nil, true},
		{"broken json", `{"score3": 2,`, 0, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ann, err := parseAnnotation(tt.text)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedAnnotation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantScore, ann.Score)
			assert.Equal(t, tt.wantTags, ann.Tags)
		})
	}
}

func TestRenderPrompt(t *testing.T) {
	prompt, err := renderPrompt(Request{
		Record:    paper,
		Interests: types.Interests{Topics: []string{"protein folding", "NMR"}},
		Excerpt:   "FULL TEXT HERE",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Title: Chaperone assisted folding")
	assert.Contains(t, prompt, "Topics: protein folding; NMR")
	assert.Contains(t, prompt, "Authors: no preference")
	assert.Contains(t, prompt, "Year: 2021")
	assert.Contains(t, prompt, "FULL TEXT HERE")
}

func TestClaudeOracleAnnotate(t *testing.T) {
	var gotReq claudeRequest
	var headers http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotReq))

		reply := `{"abstract": "Summary.", "tags": ["aRT:Folding"], "score3": 2}`
		resp := claudeResponse{Content: []claudeContent{{Type: "text", Text: reply}}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer ts.Close()

	old := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = old }()

	o := NewClaudeOracle(types.AIConfig{APIKey: "ak-test", Model: "claude-test"}, &httputil.Client{HTTP: ts.Client(), Sleep: func(time.Duration) {}})
	ann, err := o.Annotate(context.Background(), Request{Record: paper})
	require.NoError(t, err)

	assert.Equal(t, 2, ann.Score)
	assert.Equal(t, []string{"aRT:Folding"}, ann.Tags, "normalization happens in Score")
	assert.Equal(t, "ak-test", headers.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", headers.Get("anthropic-version"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, "claude-test", gotReq.Model)
	assert.Equal(t, 1024, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 1)
	assert.Contains(t, gotReq.Messages[0].Content, "Chaperone assisted folding")
}

func TestClaudeOracleErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"bad request", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"invalid"}`, http.StatusBadRequest)
		}},
		{"no text block", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"content": [{"type": "tool_use"}]}`)
		}},
		{"prose reply", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"content": [{"type": "text", "text": "Sorry."}]}`)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()
			old := claudeAPIURL
			claudeAPIURL = ts.URL
			defer func() { claudeAPIURL = old }()

			o := &ClaudeOracle{Client: &httputil.Client{HTTP: ts.Client(), Sleep: func(time.Duration) {}}}
			c, err := Score(context.Background(), o, Request{Record: paper})
			require.Error(t, err)
			assert.Zero(t, c.Score)
			assert.Empty(t, c.Tags)
		})
	}
}
