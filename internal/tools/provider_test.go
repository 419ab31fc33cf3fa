package tools

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestAndProcess(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/manifest":
			_, _ = w.Write([]byte(`{"name":"Area Calculator","actions":[{"name":"process"}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/process":
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			_, _ = w.Write([]byte(`{"area":16}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(time.Second, time.Second)

	manifest, err := c.Manifest(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Area Calculator","actions":[{"name":"process"}]}`, string(manifest))

	out, err := c.Process(context.Background(), srv.URL, map[string]any{"shape": "square", "dimension1": 4})
	require.NoError(t, err)
	assert.JSONEq(t, `{"area":16}`, string(out))
	assert.JSONEq(t, `{"shape":"square","dimension1":4}`, gotBody)
}

func TestProcessFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/manifest":
			_, _ = w.Write([]byte(`<html>not json</html>`))
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(time.Second, time.Second)

	_, err := c.Process(context.Background(), srv.URL, map[string]any{})
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusInternalServerError, pe.StatusCode)
	assert.Contains(t, err.Error(), "Failed to call MCP server "+srv.URL+": status 500")

	var shaped map[string]string
	require.NoError(t, json.Unmarshal(pe.Response(), &shaped))
	assert.Equal(t, err.Error(), shaped["error"])

	_, err = c.Manifest(context.Background(), srv.URL)
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestErrorBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/manifest" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html><body>\n<h1>Bad Gateway</h1>\n<p>nginx &amp; co</p></body></html>"))
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("dimension1<0 is invalid for <shape>"))
	}))
	defer srv.Close()

	c := NewClient(time.Second, time.Second)

	_, err := c.Manifest(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, "Failed to call MCP server "+srv.URL+": status 502: Bad Gateway nginx & co", err.Error())

	_, err = c.Process(context.Background(), srv.URL, map[string]any{})
	require.Error(t, err)
	assert.Equal(t, "Failed to call MCP server "+srv.URL+": status 422: dimension1<0 is invalid for <shape>", err.Error())
}

func TestProcessTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(time.Second, 50*time.Millisecond)
	start := time.Now()
	_, err := c.Process(context.Background(), srv.URL, map[string]any{})
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestUnreachableProvider(t *testing.T) {
	c := NewClient(200*time.Millisecond, 200*time.Millisecond)
	_, err := c.Manifest(context.Background(), "http://127.0.0.1:1")
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 0, pe.StatusCode)
}
