// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/pdiddy/literature-scout/internal/httputil"
	"github.com/pdiddy/literature-scout/pkg/types"
)

// Endpoints declared as vars so tests can substitute httptest servers.
var (
	pubmedAPIBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	pubmedWebBase = "https://pubmed.ncbi.nlm.nih.gov"
)

// pubmedTermLimit is the longest query term E-utilities accepts.
const pubmedTermLimit = 300

// scrapeUserAgent is sent to the PubMed web site, which rejects bare clients.
const scrapeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

var (
	pubmedYearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	pmidHrefPattern   = regexp.MustCompile(`^/?(\d{8,})/?$`)
)

// PubMed searches NCBI E-utilities in two phases: esearch resolves PMIDs,
// then esummary fetches metadata and efetch adds abstracts and DOIs.
type PubMed struct {
	Client *httputil.Client
	APIKey string
	Email  string
	Logger zerolog.Logger
}

// ID returns the source identifier.
func (p *PubMed) ID() types.SourceID { return types.SourcePubMed }

// Search resolves PMIDs for q and returns one record per PMID. When
// esearch finds nothing the PubMed web search page is scraped for PMIDs.
// A failed efetch leaves records without abstracts or DOIs.
func (p *PubMed) Search(ctx context.Context, q Query) ([]types.Record, error) {
	if q.IsEmpty() {
		return nil, ErrEmptyQuery
	}
	limit := q.limit(10)

	ids, err := p.esearch(ctx, buildPubMedTerm(q), limit)
	if err != nil {
		return nil, fmt.Errorf("PubMed esearch: %w", err)
	}
	if len(ids) == 0 {
		ids = p.scrapeIDs(ctx, q.Term(), limit)
		if len(ids) == 0 {
			return nil, nil
		}
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	summaries, err := p.esummary(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("PubMed esummary: %w", err)
	}

	details, err := p.efetch(ctx, ids)
	if err != nil {
		p.Logger.Warn().Err(err).Str("source", string(types.SourcePubMed)).Msg("efetch failed, returning summaries only")
		details = nil
	}

	records := make([]types.Record, 0, len(ids))
	for _, id := range ids {
		s, ok := summaries[id]
		if !ok {
			continue
		}
		records = append(records, s.toRecord(id, details[id]))
	}
	return q.filterYears(records), nil
}

var (
	pmidPattern      = regexp.MustCompile(`\b\d{8,}\b`)
	pmidSeparators   = regexp.MustCompile(`[\s,;]+`)
	termSeparators   = regexp.MustCompile(`[,;/]`)
	booleanOperators = regexp.MustCompile(`(?i)\b(and|or|not)\b`)
)

// pmidTerm returns "N[PMID] OR M[PMID]" when text holds nothing but PMIDs.
func pmidTerm(text string) (string, bool) {
	ids := pmidPattern.FindAllString(text, -1)
	if len(ids) == 0 {
		return "", false
	}
	if strings.TrimSpace(pmidSeparators.ReplaceAllString(pmidPattern.ReplaceAllString(text, ""), "")) != "" {
		return "", false
	}
	for i, id := range ids {
		ids[i] = id + "[PMID]"
	}
	return strings.Join(ids, " OR "), true
}

// booleanTerm AND-joins terms separated by commas, semicolons, or slashes,
// quoting multi-word terms, and upper-cases boolean operators.
func booleanTerm(text string) string {
	q := strings.TrimSpace(text)
	var tokens []string
	for _, t := range termSeparators.Split(q, -1) {
		if t = strings.TrimSpace(t); t != "" {
			if strings.Contains(t, " ") {
				t = `"` + t + `"`
			}
			tokens = append(tokens, t)
		}
	}
	if len(tokens) >= 2 {
		q = strings.Join(tokens, " AND ")
	}
	return booleanOperators.ReplaceAllStringFunc(q, strings.ToUpper)
}

// buildPubMedTerm truncates the query, rewrites it in PubMed boolean
// syntax, and appends the publication-date clause. A query made only of
// PMIDs becomes an OR of [PMID] lookups with no date clause.
func buildPubMedTerm(q Query) string {
	raw := clip(q.Term(), pubmedTermLimit)
	if ids, ok := pmidTerm(raw); ok {
		return ids
	}
	term := booleanTerm(raw)

	var clause string
	switch {
	case !q.YearFrom.IsZero() && !q.YearTo.IsZero():
		clause = fmt.Sprintf(`("%d"[Date - Publication] : "%d"[Date - Publication])`, q.YearFrom.Year(), q.YearTo.Year())
	case !q.YearFrom.IsZero():
		clause = fmt.Sprintf(`"%d"[Date - Publication] : "3000"[Date - Publication]`, q.YearFrom.Year())
	case !q.YearTo.IsZero():
		clause = fmt.Sprintf(`"1900"[Date - Publication] : "%d"[Date - Publication]`, q.YearTo.Year())
	default:
		return term
	}
	return fmt.Sprintf("(%s) AND %s", term, clause)
}

func (p *PubMed) params() url.Values {
	v := url.Values{"db": {"pubmed"}}
	if p.Email != "" {
		v.Set("email", p.Email)
	}
	if p.APIKey != "" {
		v.Set("api_key", p.APIKey)
	}
	return v
}

func (p *PubMed) esearch(ctx context.Context, term string, limit int) ([]string, error) {
	params := p.params()
	params.Set("term", term)
	params.Set("retmode", "json")
	params.Set("retmax", strconv.Itoa(limit))

	var resp struct {
		Result struct {
			IDList flexStrings `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := p.Client.RequestJSON(ctx, httputil.Request{URL: pubmedAPIBase + "/esearch.fcgi", Params: params}, &resp); err != nil {
		return nil, err
	}
	return resp.Result.IDList, nil
}

func (p *PubMed) esummary(ctx context.Context, ids []string) (map[string]pubmedSummary, error) {
	params := p.params()
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "json")

	var resp struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := p.Client.RequestJSON(ctx, httputil.Request{URL: pubmedAPIBase + "/esummary.fcgi", Params: params}, &resp); err != nil {
		return nil, err
	}

	out := make(map[string]pubmedSummary, len(ids))
	for _, id := range ids {
		raw, ok := resp.Result[id]
		if !ok {
			continue
		}
		var s pubmedSummary
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		out[id] = s
	}
	return out, nil
}

// pubmedDetail is what efetch adds to a summary.
type pubmedDetail struct {
	Abstract string
	DOI      string
}

func (p *PubMed) efetch(ctx context.Context, ids []string) (map[string]pubmedDetail, error) {
	params := p.params()
	params.Set("retmode", "xml")
	form := url.Values{"id": {strings.Join(ids, ",")}}

	var set pubmedArticleSet
	err := p.Client.RequestXML(ctx, httputil.Request{
		Method:      http.MethodPost,
		URL:         pubmedAPIBase + "/efetch.fcgi",
		Params:      params,
		Body:        []byte(form.Encode()),
		ContentType: "application/x-www-form-urlencoded",
	}, &set)
	if err != nil {
		return nil, err
	}

	out := make(map[string]pubmedDetail, len(set.Articles))
	for _, a := range set.Articles {
		pmid := strings.TrimSpace(a.PMID)
		if pmid == "" {
			continue
		}
		var parts []string
		for _, t := range a.AbstractText {
			if s := StripMarkup(t.Inner); s != "" {
				parts = append(parts, s)
			}
		}
		d := pubmedDetail{Abstract: CleanSnippet(strings.Join(parts, " "))}
		for _, id := range a.ArticleIDs {
			if id.IDType == "doi" {
				d.DOI = NormalizeDOI(id.Value)
				break
			}
		}
		out[pmid] = d
	}
	return out, nil
}

// scrapeIDs reads PMIDs from the PubMed web search page. Any failure
// yields no IDs.
func (p *PubMed) scrapeIDs(ctx context.Context, term string, limit int) []string {
	body, err := p.Client.Do(ctx, httputil.Request{
		URL:    pubmedWebBase + "/",
		Params: url.Values{"term": {term}, "size": {strconv.Itoa(limit)}},
		Header: http.Header{"User-Agent": {scrapeUserAgent}},
	})
	if err != nil {
		p.Logger.Debug().Err(err).Msg("PubMed scrape failed")
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var ids []string
	seen := make(map[string]bool)
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		m := pmidHrefPattern.FindStringSubmatch(href)
		if m == nil || seen[m[1]] {
			return true
		}
		seen[m[1]] = true
		ids = append(ids, m[1])
		return len(ids) < limit
	})
	return ids
}

// PubMed JSON structures (esummary).
type pubmedSummary struct {
	Title           flexString    `json:"title"`
	Authors         pubmedAuthors `json:"authors"`
	FullJournalName flexString    `json:"fulljournalname"`
	Source          flexString    `json:"source"`
	PubDate         flexString    `json:"pubdate"`
	PubType         flexStrings   `json:"pubtype"`
}

type pubmedAuthor struct {
	Name flexString `json:"name"`
}

// pubmedAuthors tolerates a non-list "authors" value by decoding it as empty.
type pubmedAuthors []pubmedAuthor

func (a *pubmedAuthors) UnmarshalJSON(b []byte) error {
	var list []pubmedAuthor
	if err := json.Unmarshal(b, &list); err != nil {
		*a = nil
		return nil
	}
	*a = list
	return nil
}

func (s pubmedSummary) toRecord(pmid string, d pubmedDetail) types.Record {
	names := make([]string, 0, len(s.Authors))
	for _, a := range s.Authors {
		if n := strings.TrimSpace(string(a.Name)); n != "" {
			names = append(names, n)
		}
	}

	venue := string(s.FullJournalName)
	if venue == "" {
		venue = string(s.Source)
	}

	year := 0
	if m := pubmedYearPattern.FindString(string(s.PubDate)); m != "" {
		year, _ = strconv.Atoi(m)
	}

	snippet := d.Abstract
	if snippet == "" {
		snippet = CleanSnippet(string(s.Source))
	}

	r := types.Record{
		Title:   strings.TrimSpace(string(s.Title)),
		URL:     pubmedWebBase + "/" + pmid + "/",
		Authors: strings.Join(names, ", "),
		Snippet: snippet,
		DOI:     d.DOI,
		Venue:   venue,
		Year:    year,
		Source:  types.SourcePubMed,
	}
	r.SetExtra("pmid", pmid)
	r.SetExtra("publicationDate", string(s.PubDate))
	if len(s.PubType) > 0 {
		r.SetExtra("publicationTypes", []string(s.PubType))
	}
	return r
}

// PubMed XML structures (efetch).
type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	PMID         string            `xml:"MedlineCitation>PMID"`
	AbstractText []pubmedAbstract  `xml:"MedlineCitation>Article>Abstract>AbstractText"`
	ArticleIDs   []pubmedArticleID `xml:"PubmedData>ArticleIdList>ArticleId"`
}

type pubmedAbstract struct {
	Label string `xml:"Label,attr"`
	Inner string `xml:",innerxml"`
}

type pubmedArticleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}

// FindByTitle returns the first PubMed match for a title.
func (p *PubMed) FindByTitle(ctx context.Context, title string) (types.Record, error) {
	records, err := p.Search(ctx, Query{Text: title, Limit: 1})
	if err != nil {
		return types.Record{}, err
	}
	if len(records) == 0 {
		return types.Record{}, fmt.Errorf("PubMed title %q: %w", clip(title, 60), ErrNotFound)
	}
	return records[0], nil
}
