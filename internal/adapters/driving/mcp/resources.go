package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for qa-extract resources.
	uriScheme = "qa-extract://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.inner.AddResource(&mcp.Resource{
		URI:         uriScheme + "domains",
		Name:        "domains",
		Description: "Extraction domains with their tool servers",
		MIMEType:    "application/json",
	}, s.handleDomainsResource)

	if s.ports.StreamPath != nil {
		s.inner.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: uriScheme + "streams/{domain}",
			Name:        "domain-stream",
			Description: "Records in a domain's output stream",
			MIMEType:    "application/json",
		}, s.handleStreamResource)
	}
}

// handleDomainsResource lists the configured extraction domains.
func (s *Server) handleDomainsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	infos := s.ports.Domains
	if infos == nil {
		infos = []DomainInfo{}
	}
	return jsonResource(req.Params.URI, infos, "domains")
}

// handleStreamResource returns the records of one domain's output stream.
func (s *Server) handleStreamResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	name := extractStreamDomain(req.Params.URI)
	if !domain.IsKnownDomain(name) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	records, err := s.ports.Records.Read(ctx, s.ports.StreamPath(name))
	if err != nil {
		return nil, fmt.Errorf("reading %s stream: %w", name, err)
	}
	if records == nil {
		records = []domain.TrainingRecord{}
	}
	return jsonResource(req.Params.URI, records, "records")
}

func jsonResource(uri string, v any, what string) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", what, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractStreamDomain extracts the domain from a URI like qa-extract://streams/{domain}.
func extractStreamDomain(uri string) string {
	const prefix = uriScheme + "streams/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
