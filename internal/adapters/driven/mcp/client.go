package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.ToolCaller = (*Client)(nil)

// Version is reported to servers during the MCP handshake.
const Version = "0.1.0"

// ErrClosed is returned by CallTool after Close.
var ErrClosed = errors.New("mcp: client closed")

// Client calls tools over an MCP session. The session is opened on first use
// and reused for every later call.
type Client struct {
	client    *mcp.Client
	transport func() mcp.Transport

	mu      sync.Mutex
	session *mcp.ClientSession
	closed  bool
}

// NewClient creates a client for the streamable HTTP endpoint at url.
func NewClient(url string, httpClient *http.Client) *Client {
	return newClient(func() mcp.Transport {
		return &mcp.StreamableClientTransport{Endpoint: url, HTTPClient: httpClient}
	})
}

func newClient(transport func() mcp.Transport) *Client {
	return &Client{
		client:    mcp.NewClient(&mcp.Implementation{Name: "qa-extract", Version: Version}, nil),
		transport: transport,
	}
}

// CallTool invokes name with args and decodes the result.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (domain.RawEntity, error) {
	session, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	if args == nil {
		args = map[string]any{}
	}
	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}

	text := resultText(result)
	if result.IsError {
		return nil, fmt.Errorf("call %s: tool error: %s", name, text)
	}
	if text != "" {
		return decodeText(text), nil
	}
	if result.StructuredContent != nil {
		data, err := json.Marshal(result.StructuredContent)
		if err != nil {
			return nil, fmt.Errorf("call %s: encode structured content: %w", name, err)
		}
		return decodeJSON(data)
	}
	return domain.RawEntity{}, nil
}

func (c *Client) connect(ctx context.Context) (*mcp.ClientSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.session != nil {
		return c.session, nil
	}
	session, err := c.client.Connect(ctx, c.transport(), nil)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	c.session = session
	return session, nil
}

// resultText joins the text content blocks of a result.
func resultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Close ends the session if one is open.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}
