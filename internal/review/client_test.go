package review

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tradejournal/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string, retries int) *ChatClient {
	c := NewChatClient(config.ReviewConfig{
		APIURL:       url,
		APIKey:       "sk-secret-1234",
		Model:        "coach-1",
		MaxRetries:   retries,
		ExtraHeaders: map[string]string{"X-Api-Key": "abcdefgh", "X-Trace": "on"},
	})
	c.backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

func TestChatClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-secret-1234", r.Header.Get("Authorization"))
		assert.Equal(t, "on", r.Header.Get("X-Trace"))
		var body chatBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "coach-1", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "复盘这笔交易", body.Messages[1].Content)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"score\":80,\"comment\":\"ok\"}"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL+"/v1/chat/completions/", 0)
	out, err := c.Complete(context.Background(), ChatRequest{Ref: "execution:1", System: "coach", User: "复盘这笔交易"})
	require.NoError(t, err)
	assert.Equal(t, `{"score":80,"comment":"ok"}`, out)
	assert.Equal(t, "coach-1", c.Model())
}

func TestChatClient_RetriesTransientStatus(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"done"}}]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL, 2).Complete(context.Background(), ChatRequest{User: "x"})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, int32(3), hits.Load())
}

func TestChatClient_DoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).Complete(context.Background(), ChatRequest{User: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=401: bad key")
	assert.Equal(t, int32(1), hits.Load())
}

func TestChatClient_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).Complete(context.Background(), ChatRequest{User: "x"})
	assert.EqualError(t, err, "empty choices")
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"":                                  "https://api.openai.com/v1/chat/completions",
		"https://api.deepseek.com/v1/":      "https://api.deepseek.com/v1/chat/completions",
		"https://x.test/v1/chat/completions": "https://x.test/v1/chat/completions",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeBaseURL(in), in)
	}
}

func TestChatClient_MaskedHeaders(t *testing.T) {
	h := newTestClient("", 0).maskedHeaders()
	assert.Equal(t, "Bearer ****1234", h["Authorization"])
	assert.Equal(t, "****efgh", h["X-Api-Key"])
	assert.Equal(t, "on", h["X-Trace"])
	assert.Equal(t, "****", maskSecret("abc"))
}
