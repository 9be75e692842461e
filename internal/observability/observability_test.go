// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/literature-scout/pkg/types"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(types.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info().Msg("hidden")
	sourceLogger := WithSource(logger, types.SourcePubMed)
	sourceLogger.Warn().Msg("esearch failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "pubmed", entry["source"])
	assert.Equal(t, "esearch failed", entry["message"])
}

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics("test")

	m.RecordSourceSearch(types.SourceSemanticScholar, 3, 200*time.Millisecond, false)
	m.RecordSourceSearch(types.SourcePubMed, 0, time.Second, true)
	m.RecordDuplicates(2)
	m.RecordScore(3, true)
	m.RecordScore(1, false)
	m.RecordSaved()
	m.RecordSkipped("duplicate")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.SourceRecords.WithLabelValues("semantic_scholar")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceFailures.WithLabelValues("pubmed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DuplicatesRemoved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CandidatesEligible))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CandidatesScored.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ItemsSaved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ItemsSkipped.WithLabelValues("duplicate")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordSourceSearch(types.SourceCrossref, 1, time.Millisecond, false)
	m.RecordDuplicates(1)
	m.RecordScore(2, true)
	m.RecordSaved()
	m.RecordSkipped("x")
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "none.prom")))
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics("litscout")
	m.RecordSaved()

	path := filepath.Join(t.TempDir(), "litscout.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "litscout_items_saved_total 1")
}
