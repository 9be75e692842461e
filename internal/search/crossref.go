// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/literature-scout/internal/httputil"
	"github.com/pdiddy/literature-scout/pkg/types"
)

// crossrefAPIBase is the Crossref works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works"

// crossrefSnippetLimit bounds the abstract kept from Crossref.
const crossrefSnippetLimit = 1200

// Crossref resolves DOIs and searches works through the Crossref REST API.
type Crossref struct {
	Client *httputil.Client

	// Mailto joins the Crossref polite pool when set.
	Mailto string
}

// ID returns the source identifier.
func (c *Crossref) ID() types.SourceID { return types.SourceCrossref }

// Resolve fetches the work registered under doi.
func (c *Crossref) Resolve(ctx context.Context, doi string) (types.Record, error) {
	doi = NormalizeDOI(doi)
	if doi == "" {
		return types.Record{}, ErrEmptyQuery
	}

	var resp struct {
		Message crossrefWork `json:"message"`
	}
	err := c.Client.RequestJSON(ctx, httputil.Request{
		URL:    crossrefAPIBase + "/" + url.PathEscape(doi),
		Params: c.params(),
	}, &resp)
	if err != nil {
		if httputil.IsStatus(err, http.StatusNotFound) {
			return types.Record{}, fmt.Errorf("Crossref DOI %s: %w", doi, ErrNotFound)
		}
		return types.Record{}, fmt.Errorf("Crossref DOI lookup: %w", err)
	}

	r := resp.Message.toRecord()
	if r.DOI == "" {
		r.DOI = doi
		r.URL = "https://doi.org/" + doi
	}
	return r, nil
}

// Search queries /works with a bibliographic query and optional
// publication-date filters.
func (c *Crossref) Search(ctx context.Context, q Query) ([]types.Record, error) {
	if q.IsEmpty() {
		return nil, ErrEmptyQuery
	}

	params := c.params()
	params.Set("query.bibliographic", q.Term())
	params.Set("rows", strconv.Itoa(q.limit(10)))

	var filters []string
	if !q.YearFrom.IsZero() {
		filters = append(filters, "from-pub-date:"+q.YearFrom.Format("2006-01-02"))
	}
	if !q.YearTo.IsZero() {
		filters = append(filters, "until-pub-date:"+q.YearTo.Format("2006-01-02"))
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}

	var resp struct {
		Message struct {
			Items []crossrefWork `json:"items"`
		} `json:"message"`
	}
	if err := c.Client.RequestJSON(ctx, httputil.Request{URL: crossrefAPIBase, Params: params}, &resp); err != nil {
		return nil, fmt.Errorf("Crossref search: %w", err)
	}

	records := make([]types.Record, 0, len(resp.Message.Items))
	for _, w := range resp.Message.Items {
		records = append(records, w.toRecord())
	}
	return q.filterYears(records), nil
}

func (c *Crossref) params() url.Values {
	v := url.Values{}
	if c.Mailto != "" {
		v.Set("mailto", c.Mailto)
	}
	return v
}

// Crossref API JSON structures.
type crossrefWork struct {
	DOI            flexString       `json:"DOI"`
	Title          flexString       `json:"title"`
	ContainerTitle flexString       `json:"container-title"`
	Issued         crossrefDate     `json:"issued"`
	Published      crossrefDate     `json:"published"`
	Volume         flexString       `json:"volume"`
	Issue          flexString       `json:"issue"`
	Page           flexString       `json:"page"`
	Abstract       flexString       `json:"abstract"`
	Publisher      flexString       `json:"publisher"`
	Subject        flexStrings      `json:"subject"`
	Type           flexString       `json:"type"`
	Author         []crossrefAuthor `json:"author"`
	Link           []crossrefLink   `json:"link"`
}

type crossrefDate struct {
	DateParts [][]flexInt `json:"date-parts"`
}

// parts returns year, month, and day; missing parts are 0.
func (d crossrefDate) parts() (int, int, int) {
	if len(d.DateParts) == 0 {
		return 0, 0, 0
	}
	p := d.DateParts[0]
	get := func(i int) int {
		if i < len(p) {
			return int(p[i])
		}
		return 0
	}
	return get(0), get(1), get(2)
}

type crossrefAuthor struct {
	Given  flexString `json:"given"`
	Family flexString `json:"family"`
	Name   flexString `json:"name"`
}

type crossrefLink struct {
	URL         flexString `json:"URL"`
	ContentType flexString `json:"content-type"`
}

func (a crossrefAuthor) display() string {
	full := strings.TrimSpace(string(a.Given) + " " + string(a.Family))
	if full == "" {
		return strings.TrimSpace(string(a.Name))
	}
	return full
}

func (w crossrefWork) toRecord() types.Record {
	doi := NormalizeDOI(string(w.DOI))

	names := make([]string, 0, len(w.Author))
	for _, a := range w.Author {
		if n := a.display(); n != "" {
			names = append(names, n)
		}
	}

	year, month, day := w.Issued.parts()
	if year == 0 {
		year, month, day = w.Published.parts()
	}

	r := types.Record{
		Title:   strings.TrimSpace(StripMarkup(string(w.Title))),
		Authors: strings.Join(names, ", "),
		Snippet: clip(CleanSnippet(string(w.Abstract)), crossrefSnippetLimit),
		DOI:     doi,
		Venue:   string(w.ContainerTitle),
		Year:    year,
		Source:  types.SourceCrossref,
	}
	if doi != "" {
		r.URL = "https://doi.org/" + doi
	}
	for _, l := range w.Link {
		if string(l.ContentType) == "application/pdf" {
			r.PDFURL = string(l.URL)
			break
		}
	}

	r.SetExtra("volume", string(w.Volume))
	r.SetExtra("issue", string(w.Issue))
	r.SetExtra("pages", string(w.Page))
	r.SetExtra("publisher", string(w.Publisher))
	r.SetExtra("type", string(w.Type))
	if len(w.Subject) > 0 {
		r.SetExtra("subject", []string(w.Subject))
	}
	if date := formatDateParts(year, month, day); date != "" {
		r.SetExtra("publicationDate", date)
	}
	return r
}

// formatDateParts renders "2021", "2021-05", or "2021-05-03".
func formatDateParts(year, month, day int) string {
	switch {
	case year == 0:
		return ""
	case month == 0:
		return fmt.Sprintf("%04d", year)
	case day == 0:
		return fmt.Sprintf("%04d-%02d", year, month)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	}
}
