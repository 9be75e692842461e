// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/literature-scout/internal/httputil"
)

// buildPDF writes a one-page PDF that shows each line in Helvetica.
func buildPDF(lines ...string) []byte {
	var content strings.Builder
	y := 720
	for _, l := range lines {
		fmt.Fprintf(&content, "BT /F1 12 Tf 72 %d Td (%s) Tj ET\n", y, l)
		y -= 20
	}

	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func newTestFetcher(ts *httptest.Server, maxChars int) *Fetcher {
	return New(&httputil.Client{HTTP: ts.Client(), Sleep: func(time.Duration) {}}, maxChars)
}

func TestExtract(t *testing.T) {
	data := buildPDF("Protein Folding in Crowded Cells", "Abstract", "We measured folding rates.")

	text, err := Extract(data, DefaultMaxChars)
	require.NoError(t, err)
	assert.Contains(t, text, "Protein Folding in Crowded Cells")
	assert.Contains(t, text, "We measured folding rates.")
}

func TestExtractClipsToMaxChars(t *testing.T) {
	data := buildPDF(strings.Repeat("x", 200))
	text, err := Extract(data, 50)
	require.NoError(t, err)
	assert.Len(t, text, 50)
}

func TestExtractRejectsGarbage(t *testing.T) {
	_, err := Extract([]byte("%PDF-1.4\nnot really a pdf"), DefaultMaxChars)
	assert.Error(t, err)
}

func TestIsPDF(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		url         string
		body        string
		want        bool
	}{
		{"content type", "application/pdf", "https://x.org/download", "", true},
		{"content type with params", "application/pdf; qs=0.001", "https://x.org/d", "", true},
		{"extension", "application/octet-stream", "https://x.org/paper.PDF?dl=1", "", true},
		{"magic", "application/octet-stream", "https://x.org/d", "  %PDF-1.7", true},
		{"html page", "text/html; charset=utf-8", "https://x.org/article", "<html>", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPDF(tt.contentType, tt.url, []byte(tt.body)))
		})
	}
}

func TestFetcherExcerpt(t *testing.T) {
	doc := buildPDF("A Study of Chaperones", "DOI: 10.1016/j.jmb.2021.01.001")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/paper":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(doc)
		case "/landing":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html><body>Landing page</body></html>")
		case "/broken.pdf":
			fmt.Fprint(w, "%PDF-1.4 truncated")
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	f := newTestFetcher(ts, 0)
	assert.Equal(t, DefaultMaxChars, f.MaxChars)

	text, isPDF, err := f.Excerpt(context.Background(), ts.URL+"/paper")
	require.NoError(t, err)
	assert.True(t, isPDF)
	assert.Contains(t, text, "10.1016/j.jmb.2021.01.001")

	text, isPDF, err = f.Excerpt(context.Background(), ts.URL+"/landing")
	require.NoError(t, err)
	assert.False(t, isPDF)
	assert.Empty(t, text)

	_, isPDF, err = f.Excerpt(context.Background(), ts.URL+"/broken.pdf")
	assert.Error(t, err)
	assert.True(t, isPDF)

	_, _, err = f.Excerpt(context.Background(), ts.URL+"/missing")
	assert.True(t, httputil.IsStatus(err, http.StatusNotFound))

	text, isPDF, err = f.Excerpt(context.Background(), "  ")
	assert.NoError(t, err)
	assert.False(t, isPDF)
	assert.Empty(t, text)
}

func TestExtractSurvivesCorruptDocuments(t *testing.T) {
	valid := buildPDF("Protein Folding in Crowded Cells", "Abstract", "We measured folding rates.")

	failures := 0
	for i := range valid {
		data := bytes.Clone(valid)
		data[i] = 0xc7

		var err error
		require.NotPanics(t, func() { _, err = Extract(data, DefaultMaxChars) }, "byte %d", i)
		if err != nil {
			require.ErrorIs(t, err, ErrMalformedPDF, "byte %d", i)
			failures++
		}
	}
	assert.Positive(t, failures, "some single-byte corruptions must be rejected")
}

func TestExtractTruncatedDocument(t *testing.T) {
	valid := buildPDF("Protein Folding in Crowded Cells")
	for _, n := range []int{9, len(valid) / 2, len(valid) - 10} {
		var err error
		require.NotPanics(t, func() { _, err = Extract(valid[:n], DefaultMaxChars) })
		assert.ErrorIs(t, err, ErrMalformedPDF, "first %d bytes", n)
	}
}

func TestFetcherExcerptSections(t *testing.T) {
	doc := buildPDF(
		"Protein Folding in Crowded Cellular Environments",
		"Abstract",
		"We measured the folding rates of a small protein in the presence of crowding agents.",
		"The results show that the data support a two-state model for this protein.",
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(doc)
	}))
	defer ts.Close()

	f := newTestFetcher(ts, 0)
	f.Sections = true

	text, isPDF, err := f.Excerpt(context.Background(), ts.URL+"/paper")
	require.NoError(t, err)
	assert.True(t, isPDF)
	assert.Regexp(t, `^(TITLE|ABSTRACT|CONTENT)`, text)
	assert.Contains(t, text, "folding rates of a small protein")
}
