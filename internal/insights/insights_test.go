package insights

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompt(t *testing.T) {
	f := Figures{Total: 12, Delayed: 3, NonConform: 1, OpenRepairs: 2}
	assert.Equal(t,
		"Data: Total=12, Delays=3, SAV=1, Open Repairs=2. Tasks: Provide 3 ultra-concise priority actions. Language: French.",
		Prompt(f, "fr"))
	assert.Contains(t, Prompt(f, "EN"), "Language: English.")
}

func TestSummarize(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"1. Relancer LTE\n"},{"text":"2. Clôturer les OTG"}]}}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/v1beta/", "test-model", "secret", time.Second)
	text, err := c.Summarize(context.Background(), Figures{Total: 5, Delayed: 2}, "fr")
	require.NoError(t, err)
	assert.Equal(t, "1. Relancer LTE\n2. Clôturer les OTG", text)

	assert.Equal(t, systemInstruction, got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Contains(t, got.Contents[0].Parts[0].Text, "Total=5, Delays=2")
}

func TestSummarizeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "m", "bad", 0).Summarize(context.Background(), Figures{}, "fr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestSummarizeEmptyAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "m", "key", 0).Summarize(context.Background(), Figures{}, "fr")
	assert.EqualError(t, err, "model returned no text")
}

func TestSummarizeDisabled(t *testing.T) {
	_, err := New("http://127.0.0.1:1", "m", "", 0).Summarize(context.Background(), Figures{}, "fr")
	assert.ErrorIs(t, err, ErrDisabled)

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
}
