package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
)

type slowGateway struct{ closed bool }

func (g *slowGateway) Generate(ctx context.Context, _, _ string, _ int) (driven.GeneratedText, error) {
	<-ctx.Done()
	return driven.GeneratedText{}, ctx.Err()
}

func (g *slowGateway) ModelName() string { return "slow" }

func (g *slowGateway) Close() error {
	g.closed = true
	return nil
}

func TestPinger_Validate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "llama3.2",
			"message": map[string]string{"role": "assistant", "content": "OK"},
			"done":    true,
		})
	}))
	defer srv.Close()

	err := NewPinger(0).Validate(context.Background(), domain.ModelSettings{
		Backend: domain.LLMBackendOllama,
		BaseURL: srv.URL,
	})

	assert.NoError(t, err)
}

func TestPinger_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewPinger(time.Second).Validate(context.Background(), domain.ModelSettings{
		Backend: domain.LLMBackendOllama,
		BaseURL: srv.URL,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama backend unreachable")
}

func TestPinger_TimesOut(t *testing.T) {
	gw := &slowGateway{}
	p := NewPinger(20 * time.Millisecond)
	p.build = func(domain.ModelSettings) (driven.ModelGateway, error) { return gw, nil }

	err := p.Validate(context.Background(), domain.ModelSettings{Backend: domain.LLMBackendOllama})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, gw.closed)
}

func TestPinger_BuildError(t *testing.T) {
	p := NewPinger(time.Second)
	p.build = func(domain.ModelSettings) (driven.ModelGateway, error) { return nil, errors.New("no key") }

	err := p.Validate(context.Background(), domain.ModelSettings{})

	assert.EqualError(t, err, "no key")
}

func TestNewPinger_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultPingTimeout, NewPinger(-1).timeout)
	assert.Equal(t, 5*time.Second, NewPinger(5*time.Second).timeout)
}
