// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/literature-scout/pkg/types"
)

// recordingClient returns a client that records sleeps instead of blocking.
func recordingClient(ts *httptest.Server, sleeps *[]time.Duration) *Client {
	return &Client{
		HTTP:  ts.Client(),
		Sleep: func(d time.Duration) { *sleeps = append(*sleeps, d) },
	}
}

func TestDo_ImmediateSuccess(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer ts.Close()

	var sleeps []time.Duration
	c := recordingClient(ts, &sleeps)

	var got struct{ OK bool }
	require.NoError(t, c.RequestJSON(context.Background(), Request{URL: ts.URL}, &got))
	assert.True(t, got.OK)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, sleeps)
}

func TestDo_ServerErrorExhaustsAttempts(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	var sleeps []time.Duration
	c := recordingClient(ts, &sleeps)

	_, err := c.Do(context.Background(), Request{URL: ts.URL, MaxAttempts: 4})
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{80 * time.Millisecond, 160 * time.Millisecond, 320 * time.Millisecond}, sleeps)

	var total time.Duration
	for _, d := range sleeps {
		total += d
	}
	assert.Equal(t, 560*time.Millisecond, total)
}

func TestDo_NotFoundIsTerminal(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "no such paper", http.StatusNotFound)
	}))
	defer ts.Close()

	var sleeps []time.Duration
	c := recordingClient(ts, &sleeps)

	_, err := c.Do(context.Background(), Request{URL: ts.URL})
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.Contains(t, err.Error(), "no such paper")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, sleeps)
}

func TestDo_RecoversAfterTransientFailures(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer ts.Close()

	var sleeps []time.Duration
	c := recordingClient(ts, &sleeps)

	body, err := c.Do(context.Background(), Request{URL: ts.URL})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Len(t, sleeps, 2)
}

func TestDo_DelayIsCapped(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	var sleeps []time.Duration
	c := recordingClient(ts, &sleeps)
	c.BaseDelay = time.Second

	_, err := c.Do(context.Background(), Request{URL: ts.URL, MaxAttempts: 5})
	require.Error(t, err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}, sleeps)
}

func TestDo_NetworkErrorIsRetried(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	addr := ts.URL
	ts.Close()

	var sleeps []time.Duration
	c := &Client{Sleep: func(d time.Duration) { sleeps = append(sleeps, d) }}

	_, err := c.Do(context.Background(), Request{URL: addr, MaxAttempts: 3})
	require.Error(t, err)
	assert.Len(t, sleeps, 2)
}

func TestDo_AttemptTimeoutIsRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			<-r.Context().Done()
			return
		}
		fmt.Fprint(w, "late but fine")
	}))
	defer ts.Close()

	var sleeps []time.Duration
	c := recordingClient(ts, &sleeps)

	body, err := c.Do(context.Background(), Request{URL: ts.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, "late but fine", string(body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDo_ContextCancelledStops(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{HTTP: ts.Client(), Sleep: func(time.Duration) { cancel() }}

	_, err := c.Do(ctx, Request{URL: ts.URL})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRequestJSON_MalformedIsTerminal(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, "<html>not json</html>")
	}))
	defer ts.Close()

	var sleeps []time.Duration
	c := recordingClient(ts, &sleeps)

	var v map[string]any
	err := c.RequestJSON(context.Background(), Request{URL: ts.URL}, &v)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_SendsParamsHeadersAndBody(t *testing.T) {
	var got *http.Request
	var gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		fmt.Fprint(w, "{}")
	}))
	defer ts.Close()

	c := NewClient(types.HTTPConfig{UserAgent: "literature-scout/test"}, types.RetryConfig{})
	c.HTTP = ts.Client()

	req := Request{
		Method:      http.MethodPost,
		URL:         ts.URL + "/efetch",
		Header:      http.Header{"X-Api-Key": {"k"}},
		Params:      map[string][]string{"db": {"pubmed"}},
		Body:        []byte("id=1,2"),
		ContentType: "application/x-www-form-urlencoded",
	}
	_, err := c.Do(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "pubmed", got.URL.Query().Get("db"))
	assert.Equal(t, "k", got.Header.Get("X-Api-Key"))
	assert.Equal(t, "literature-scout/test", got.Header.Get("User-Agent"))
	assert.Equal(t, "application/x-www-form-urlencoded", got.Header.Get("Content-Type"))
	assert.Equal(t, "id=1,2", gotBody)
}

func TestWithLimit(t *testing.T) {
	c := &Client{}
	assert.Same(t, c, c.WithLimit(0))

	limited := c.WithLimit(3)
	require.NotNil(t, limited.Limiter)
	assert.Nil(t, c.Limiter)
	assert.InDelta(t, 3.0, float64(limited.Limiter.Limit()), 0.001)
}

func TestFetch_ReturnsHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4")
	}))
	defer ts.Close()

	var sleeps []time.Duration
	resp, err := recordingClient(ts, &sleeps).Fetch(context.Background(), Request{URL: ts.URL})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4", string(resp.Body))
}
