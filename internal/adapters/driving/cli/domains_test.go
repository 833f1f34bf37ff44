package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
)

func TestListDomainsCmd(t *testing.T) {
	h := newHarness(t)
	h.settings.settings.ServerURLs = map[string]string{domain.DomainSoftware: "http://localhost:3004"}

	out, err := h.run("list-domains")

	require.NoError(t, err)
	assert.Contains(t, out, "Software Discovery")
	assert.Contains(t, out, "search_software")
	assert.Contains(t, out, "http://localhost:3004")
}

func TestListDomainsCmd_NoServer(t *testing.T) {
	h := newHarness(t)
	h.settings.settings.ServerURLs = nil

	out, err := h.run("domains")

	require.NoError(t, err)
	assert.Contains(t, out, "(not configured)")
}
