// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftext downloads papers and extracts a plain-text excerpt for
// the scoring oracle.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/literature-scout/internal/httputil"
)

// DefaultMaxChars bounds the excerpt length.
const DefaultMaxChars = 8000

// maxPages bounds how far into a document extraction reads.
const maxPages = 20

var pdfMagic = []byte("%PDF")

// ErrMalformedPDF is returned when a document cannot be parsed.
var ErrMalformedPDF = errors.New("malformed PDF")

// Fetcher downloads a URL and extracts text when it serves a PDF.
type Fetcher struct {
	Client   *httputil.Client
	MaxChars int

	// Sections narrows the excerpt to labeled title, abstract,
	// significance, and introduction text (see Sections). Otherwise the
	// excerpt is the leading text of the document.
	Sections bool
}

// sectionScan is how much more raw text than MaxChars is read when
// looking for sections.
const sectionScan = 4

// New returns a Fetcher. A non-positive maxChars selects DefaultMaxChars.
func New(client *httputil.Client, maxChars int) *Fetcher {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Fetcher{Client: client, MaxChars: maxChars}
}

// Excerpt fetches rawURL. When the response is a PDF (by content type,
// a .pdf path, or the %PDF signature) it returns up to MaxChars of plain
// text and isPDF true. A PDF that cannot be parsed is an error with isPDF
// true. Any other content yields "", false, nil.
func (f *Fetcher) Excerpt(ctx context.Context, rawURL string) (string, bool, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", false, nil
	}
	resp, err := f.Client.Fetch(ctx, httputil.Request{URL: rawURL, MaxAttempts: 1})
	if err != nil {
		return "", false, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	if !IsPDF(resp.Header.Get("Content-Type"), rawURL, resp.Body) {
		return "", false, nil
	}
	limit := f.maxChars()
	if f.Sections {
		limit *= sectionScan
	}
	text, err := Extract(resp.Body, limit)
	if err != nil {
		return "", true, fmt.Errorf("reading PDF from %s: %w", rawURL, err)
	}
	if f.Sections {
		text = clip(Sections(text), f.maxChars())
	}
	return text, true, nil
}

func (f *Fetcher) maxChars() int {
	if f.MaxChars > 0 {
		return f.MaxChars
	}
	return DefaultMaxChars
}

// IsPDF reports whether a response is a PDF document.
func IsPDF(contentType, rawURL string, body []byte) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == "application/pdf" {
		return true
	}
	if u, err := url.Parse(rawURL); err == nil && strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
		return true
	}
	return bytes.HasPrefix(bytes.TrimLeft(body, " \t\r\n"), pdfMagic)
}

// Extract returns plain text from the first pages of a PDF, stopping once
// maxChars runes have been collected. Pages that fail to decode are skipped.
// A document the parser cannot read at all is an error; the pdf package
// panics on malformed input and that panic never escapes Extract.
func Extract(data []byte, maxChars int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrMalformedPDF, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPDF, err)
	}

	pages := min(r.NumPage(), maxPages)
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, perr := page.GetPlainText(nil)
		if perr != nil {
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n")
		if utf8.RuneCountInString(b.String()) >= maxChars {
			break
		}
	}
	return clip(strings.TrimSpace(b.String()), maxChars), nil
}

func clip(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
