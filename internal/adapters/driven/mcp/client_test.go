package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type searchOutput struct {
	Items []map[string]any `json:"items"`
}

// newFixtureClient connects a Client to an in-process server exposing a
// search tool and a failing tool.
func newFixtureClient(t *testing.T) (*Client, *[]searchInput) {
	t.Helper()
	var calls []searchInput

	server := mcp.NewServer(&mcp.Implementation{Name: "fixture", Version: "v0"}, nil)
	mcp.AddTool(server, &mcp.Tool{Name: "search_software"}, func(
		_ context.Context, _ *mcp.CallToolRequest, in searchInput,
	) (*mcp.CallToolResult, searchOutput, error) {
		calls = append(calls, in)
		return nil, searchOutput{Items: []map[string]any{
			{"name": "GROMACS", "versions": []any{"2024.1"}},
		}}, nil
	})
	mcp.AddTool(server, &mcp.Tool{Name: "broken"}, func(
		_ context.Context, _ *mcp.CallToolRequest, _ searchInput,
	) (*mcp.CallToolResult, searchOutput, error) {
		return nil, searchOutput{}, errors.New("backend down")
	})

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ctx := context.Background()
	_, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	c := newClient(func() mcp.Transport { return clientTransport })
	t.Cleanup(func() { _ = c.Close() })
	return c, &calls
}

func TestClient_CallTool(t *testing.T) {
	c, calls := newFixtureClient(t)

	result, err := c.CallTool(context.Background(), "search_software", map[string]any{"query": "gromacs", "limit": 5})

	require.NoError(t, err)
	items := result.Items("items")
	require.Len(t, items, 1)
	assert.Equal(t, "GROMACS", items[0].String("name"))
	require.Len(t, *calls, 1)
	assert.Equal(t, searchInput{Query: "gromacs", Limit: 5}, (*calls)[0])
}

func TestClient_ReusesSession(t *testing.T) {
	c, calls := newFixtureClient(t)
	ctx := context.Background()

	_, err := c.CallTool(ctx, "search_software", map[string]any{"query": "a"})
	require.NoError(t, err)
	first := c.session
	_, err = c.CallTool(ctx, "search_software", map[string]any{"query": "b"})
	require.NoError(t, err)

	assert.Same(t, first, c.session)
	assert.Len(t, *calls, 2)
}

func TestClient_ToolError(t *testing.T) {
	c, _ := newFixtureClient(t)

	_, err := c.CallTool(context.Background(), "broken", map[string]any{"query": "x"})

	assert.Error(t, err)
}

func TestClient_UnknownTool(t *testing.T) {
	c, _ := newFixtureClient(t)

	_, err := c.CallTool(context.Background(), "nope", nil)

	assert.Error(t, err)
}

func TestClient_CallAfterClose(t *testing.T) {
	c, _ := newFixtureClient(t)
	require.NoError(t, c.Close())

	_, err := c.CallTool(context.Background(), "search_software", nil)

	assert.ErrorIs(t, err, ErrClosed)
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name string
		text string
		key  string
	}{
		{"object", `{"resources": []}`, "resources"},
		{"array", `[{"id": "x"}]`, ItemsKey},
		{"plain text", "nothing here", TextKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, decodeText(tt.text).Has(tt.key))
		})
	}
}
