// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package annotate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"text/template"

	"github.com/pdiddy/literature-scout/internal/httputil"
	"github.com/pdiddy/literature-scout/pkg/types"
)

// annotationPromptTmpl is sent once per paper. The reply must be a single
// JSON object with abstract, tags, and score3.
var annotationPromptTmpl = template.Must(template.New("annotation").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`You are an academic assistant working for one researcher. Read the paper below and return a JSON object with exactly these keys:

- "abstract": a self-contained English abstract of 10 to 15 sentences, factual, no references.
- "tags": a list of English tags, each starting with one of these prefixes followed by a hyphen:
    aRT- research topic (1 or 2 tags)
    aTa- topic area (3 to 6 tags)
    aTy- paper type (exactly 1 tag, e.g. "aTy-Review Article")
    aMe- method (key methods)
  Use a hyphen after the prefix, never a colon.
- "score3": an integer from 0 to 3 rating relevance to the researcher's interests only:
    3 directly addresses their topics, ideally in a preferred journal or by a preferred author
    2 substantial overlap with their topics
    1 tangential, useful as background
    0 unrelated to their topics

Researcher interests:
Topics: {{if .Interests.Topics}}{{join .Interests.Topics "; "}}{{else}}none given{{end}}
Authors: {{if .Interests.Authors}}{{join .Interests.Authors "; "}}{{else}}no preference{{end}}
Journals: {{if .Interests.Journals}}{{join .Interests.Journals "; "}}{{else}}no preference{{end}}

Paper:
Title: {{.Record.Title}}
Authors: {{.Record.Authors}}
Venue: {{.Record.Venue}}
Year: {{if .Record.Year}}{{.Record.Year}}{{else}}unknown{{end}}
URL: {{.Record.URL}}
Summary: {{.Record.Snippet}}
{{- if .Excerpt}}

Full text excerpt:
{{.Excerpt}}
{{- end}}

Respond with the JSON object only.
`))

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeOracle scores papers through the Claude Messages API.
type ClaudeOracle struct {
	APIKey    string
	Model     string
	MaxTokens int
	Client    *httputil.Client
}

// NewClaudeOracle builds an oracle from configuration.
func NewClaudeOracle(cfg types.AIConfig, client *httputil.Client) *ClaudeOracle {
	return &ClaudeOracle{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Client:    client,
	}
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Annotate renders the prompt for req, calls the API, and parses the reply.
func (c *ClaudeOracle) Annotate(ctx context.Context, req Request) (types.Annotation, error) {
	prompt, err := renderPrompt(req)
	if err != nil {
		return types.Annotation{}, fmt.Errorf("rendering prompt: %w", err)
	}

	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	body, err := json.Marshal(claudeRequest{
		Model:     c.Model,
		MaxTokens: maxTokens,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return types.Annotation{}, fmt.Errorf("marshaling request: %w", err)
	}

	var resp claudeResponse
	err = c.Client.RequestJSON(ctx, httputil.Request{
		Method:      http.MethodPost,
		URL:         claudeAPIURL,
		Body:        body,
		ContentType: "application/json",
		Header: http.Header{
			"x-api-key":         {c.APIKey},
			"anthropic-version": {"2023-06-01"},
		},
	}, &resp)
	if err != nil {
		return types.Annotation{}, fmt.Errorf("calling Claude API: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type == "text" {
			return parseAnnotation(block.Text)
		}
	}
	return types.Annotation{}, fmt.Errorf("%w: no text content in Claude API response", ErrMalformedAnnotation)
}

// renderPrompt executes the annotation prompt template for req.
func renderPrompt(req Request) (string, error) {
	var buf bytes.Buffer
	if err := annotationPromptTmpl.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// annotationReply is the model's JSON, decoded loosely: score3 may be a
// number or a numeric string and tags may contain non-strings.
type annotationReply struct {
	Abstract json.RawMessage `json:"abstract"`
	Tags     []any           `json:"tags"`
	Score3   json.RawMessage `json:"score3"`
}

// parseAnnotation extracts the first JSON object from text, tolerating
// code fences or prose around it.
func parseAnnotation(text string) (types.Annotation, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return types.Annotation{}, fmt.Errorf("%w: no JSON object in reply", ErrMalformedAnnotation)
	}

	var reply annotationReply
	if err := json.Unmarshal([]byte(text[start:end+1]), &reply); err != nil {
		return types.Annotation{}, fmt.Errorf("%w: %v", ErrMalformedAnnotation, err)
	}

	ann := types.Annotation{Score: parseScore(reply.Score3)}
	var abstract string
	if json.Unmarshal(reply.Abstract, &abstract) == nil {
		ann.Abstract = strings.TrimSpace(abstract)
	}
	for _, t := range reply.Tags {
		if s, ok := t.(string); ok {
			ann.Tags = append(ann.Tags, s)
		}
	}
	return ann, nil
}

// parseScore reads 2, 2.0, or "2". Anything else is 0.
func parseScore(raw json.RawMessage) int {
	var n float64
	if json.Unmarshal(raw, &n) == nil {
		return int(n)
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v
		}
	}
	return 0
}
