// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/literature-scout/pkg/types"
)

const biorxivFixture = `{"messages": [{"status": "ok"}], "collection": [
  {"doi": "10.1101/2024.01.02.573950", "title": "First draft", "authors": "Curie, M.; Franklin, R.",
   "date": "2024-01-03", "version": "1", "category": "biophysics", "abstract": "v1 abstract", "server": "biorxiv"},
  {"doi": "10.1101/2024.01.02.573950", "title": "Revised title", "authors": "Curie, M.; Franklin, R.; Solo",
   "date": "2024-03-10", "version": "2", "category": "biophysics", "abstract": "v2 abstract", "server": "biorxiv"}
]}`

func withBioRxivServer(t *testing.T, h http.HandlerFunc) *BioRxiv {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	old := biorxivAPIBase
	biorxivAPIBase = ts.URL + "/details"
	t.Cleanup(func() { biorxivAPIBase = old })

	return &BioRxiv{Client: testClient(ts)}
}

func TestBioRxivResolveLatestVersion(t *testing.T) {
	var path string
	b := withBioRxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		fmt.Fprint(w, biorxivFixture)
	})

	r, err := b.Resolve(context.Background(), "https://doi.org/10.1101/2024.01.02.573950")
	require.NoError(t, err)

	assert.Equal(t, "/details/biorxiv/10.1101/2024.01.02.573950/na/json", path)
	assert.Equal(t, "Revised title", r.Title)
	assert.Equal(t, "M. Curie; R. Franklin; Solo", r.Authors)
	assert.Equal(t, 2024, r.Year)
	assert.Equal(t, "bioRxiv", r.Venue)
	assert.Equal(t, types.SourceBioRxiv, r.Source)
	assert.Equal(t, biorxivContentBase+"/10.1101/2024.01.02.573950", r.URL)
	assert.Equal(t, biorxivContentBase+"/10.1101/2024.01.02.573950.full.pdf", r.PDFURL)
	assert.Equal(t, "2", r.Extra("version"))
	assert.Equal(t, "biophysics", r.Extra("category"))
	assert.Equal(t, "2024-03-10", r.Extra("publicationDate"))
}

func TestBioRxivResolveRequestedVersion(t *testing.T) {
	var path string
	b := withBioRxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		fmt.Fprint(w, biorxivFixture)
	})

	r, err := b.Resolve(context.Background(), "10.1101/2024.01.02.573950v1")
	require.NoError(t, err)

	assert.Equal(t, "/details/biorxiv/10.1101/2024.01.02.573950/na/json", path, "version suffix is not sent")
	assert.Equal(t, "First draft", r.Title)
	assert.Equal(t, "v1 abstract", r.Snippet)
	assert.Equal(t, "1", r.Extra("version"))
}

func TestBioRxivResolveEmptyCollection(t *testing.T) {
	b := withBioRxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"messages": [{"status": "no posts found"}], "collection": []}`)
	})
	_, err := b.Resolve(context.Background(), "10.1101/2099.01.01.000001")
	assert.True(t, IsNotFound(err))
}

func TestBioRxivRejectsOtherPrefixes(t *testing.T) {
	b := &BioRxiv{}
	_, err := b.Resolve(context.Background(), "10.1038/nature12373")
	assert.True(t, IsNotFound(err))
}

func TestBioRxivAuthors(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Curie, M.; Franklin, R.", "M. Curie; R. Franklin"},
		{"Solo", "Solo"},
		{" ; Curie, M. ;", "M. Curie"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := biorxivAuthors(tt.in); got != tt.want {
			t.Errorf("biorxivAuthors(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
