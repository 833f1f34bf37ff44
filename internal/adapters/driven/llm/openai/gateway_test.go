package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGateway_Defaults(t *testing.T) {
	g := NewGateway(Config{})

	assert.Equal(t, DefaultModel, g.ModelName())
	assert.NoError(t, g.Close())
}

func TestGenerate(t *testing.T) {
	var req struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer "+placeholderKey, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "c1", "object": "chat.completion", "model": "served-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 9, "completion_tokens": 2, "total_tokens": 11}
		}`))
	}))
	defer srv.Close()

	g := NewGateway(Config{BaseURL: srv.URL + "/v1", Model: "qwen"})

	out, err := g.Generate(context.Background(), "sys", "usr", 256)

	require.NoError(t, err)
	assert.Equal(t, "hello", out.Text)
	assert.Equal(t, "served-model", out.Model)
	assert.Equal(t, 9, out.InputTokens)
	assert.Equal(t, 2, out.OutputTokens)

	assert.Equal(t, "qwen", req.Model)
	assert.Equal(t, 256, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "sys", req.Messages[0].Content)
	assert.Equal(t, "user", req.Messages[1].Role)
}

func TestGenerate_OmitsEmptySystem(t *testing.T) {
	var count int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []json.RawMessage `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		count = len(body.Messages)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"x"}}]}`))
	}))
	defer srv.Close()

	g := NewGateway(Config{BaseURL: srv.URL + "/v1"})

	out, err := g.Generate(context.Background(), "", "usr", 10)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, DefaultModel, out.Model)
}

func TestGenerate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"model loading","type":"server_error"}}`))
	}))
	defer srv.Close()

	g := NewGateway(Config{BaseURL: srv.URL + "/v1"})

	_, err := g.Generate(context.Background(), "", "usr", 10)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestGenerate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	g := NewGateway(Config{BaseURL: srv.URL + "/v1"})

	_, err := g.Generate(context.Background(), "", "usr", 10)

	assert.ErrorContains(t, err, "no choices")
}
