package httpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sandevgo/recall/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_PostJSON(t *testing.T) {
	var gotPath string
	var gotHeader http.Header
	var gotBody map[string]any

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer": 42}`))
	}))
	defer ts.Close()

	c := New(ts.URL, "secret", 0)

	var out struct {
		Answer int `json:"answer"`
	}
	err := c.PostJSON(context.Background(), "/v1/echo",
		map[string]any{"model": "test"}, &out,
		map[string]string{"X-Title": "recall"})
	require.NoError(t, err)

	assert.Equal(t, "/v1/echo", gotPath)
	assert.Equal(t, map[string]any{"model": "test"}, gotBody)
	assert.Equal(t, 42, out.Answer)

	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "Bearer secret", gotHeader.Get("Authorization"))
	assert.Equal(t, core.AppUserAgent, gotHeader.Get("User-Agent"))
	assert.Equal(t, "recall", gotHeader.Get("X-Title"))
}

func TestClient_PostJSON_NoAPIKey(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	c := New(ts.URL, "", 0)
	require.NoError(t, c.PostJSON(context.Background(), "/", nil, nil, nil))
	assert.Empty(t, gotAuth)
}

func TestClient_PostJSON_ErrorCarriesBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "model not found"}`, http.StatusNotFound)
	}))
	defer ts.Close()

	c := New(ts.URL, "secret", 0)
	err := c.PostJSON(context.Background(), "/v1/chat/completions", map[string]any{}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 404")
	assert.Contains(t, err.Error(), "model not found")
}
