// Package mcp provides ToolCaller implementations for the ACCESS-CI tool servers.
//
// Two transports are supported:
//
//   - HTTPClient posts {"arguments": {...}} to {url}/tools/{name}, the plain
//     HTTP facade each server exposes.
//   - Client speaks the Model Context Protocol over streamable HTTP using the
//     official Go SDK.
//
// Both return the tool result decoded into a domain.RawEntity. Results that
// arrive as a text content block holding JSON are decoded; a top-level JSON
// array is wrapped as {"items": [...]}.
package mcp
