package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qa-extract/internal/adapters/driving/cli"
	"github.com/custodia-labs/qa-extract/internal/connectors"
	"github.com/custodia-labs/qa-extract/internal/core/domain"
)

func testSettings(t *testing.T) *domain.Settings {
	t.Helper()
	s := domain.DefaultSettings()
	s.OutputDir = t.TempDir()
	s.ReviewDB = filepath.Join(t.TempDir(), "review.db")
	return &s
}

func TestNewConfig(t *testing.T) {
	cfg := newConfig()

	require.Len(t, cfg.Domains, len(domain.AllDomains()))
	assert.Equal(t, domain.DomainComputeResources, cfg.Domains[0].Domain)
	assert.NotNil(t, cfg.Reports)
	assert.NotNil(t, cfg.Records)
	assert.NotNil(t, cfg.Build)
	assert.Equal(t, filepath.Join("/out", "software-discovery_qa_pairs.jsonl"), cfg.StreamPath("/out", domain.DomainSoftware))
}

func TestOpenSettings_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qa.toml")
	require.NoError(t, os.WriteFile(path, []byte("[output]\ndir = \"/data/qa\"\n"), 0600))

	svc, err := openSettings(path)
	require.NoError(t, err)

	s, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "/data/qa", s.OutputDir)
}

func TestBuilder_CacheOnly(t *testing.T) {
	build := builder(connectors.NewRegistry())

	svc, err := build(context.Background(), testSettings(t), cli.Needs{Cache: true})

	require.NoError(t, err)
	assert.NotNil(t, svc.Cache)
	assert.Nil(t, svc.Extraction)
	assert.Nil(t, svc.Push)

	stats, err := svc.Cache.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)
	assert.NoError(t, svc.Close())
}

func TestBuilder_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	settings := testSettings(t)
	settings.CacheBackend = domain.CacheBackendRedis
	settings.RedisURL = "redis://" + mr.Addr()

	svc, err := builder(connectors.NewRegistry())(context.Background(), settings, cli.Needs{Cache: true})
	require.NoError(t, err)
	defer svc.Close()

	stats, err := svc.Cache.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)
}

func TestBuilder_BadRedisURL(t *testing.T) {
	settings := testSettings(t)
	settings.CacheBackend = domain.CacheBackendRedis
	settings.RedisURL = "not a url"

	_, err := builder(connectors.NewRegistry())(context.Background(), settings, cli.Needs{Cache: true})

	assert.ErrorContains(t, err, "failed to open redis cache")
}

func TestBuilder_PushOpensReviewStore(t *testing.T) {
	settings := testSettings(t)

	svc, err := builder(connectors.NewRegistry())(context.Background(), settings, cli.Needs{Push: true})
	require.NoError(t, err)

	assert.NotNil(t, svc.Push)
	assert.Nil(t, svc.Cache)
	assert.FileExists(t, settings.ReviewDB)
	assert.NoError(t, svc.Close())
}

func TestBuilder_ExtractionWithoutServers(t *testing.T) {
	settings := testSettings(t)
	settings.ServerURLs = nil

	_, err := builder(connectors.NewRegistry())(context.Background(), settings, cli.Needs{Extraction: true})

	assert.ErrorContains(t, err, "no tool servers configured")
}

func TestBuilder_Extraction(t *testing.T) {
	settings := testSettings(t)
	settings.Generation = domain.ModelSettings{
		Backend: domain.LLMBackendOllama,
		Model:   domain.DefaultOllamaModel,
		BaseURL: domain.DefaultOllamaURL,
	}
	settings.Extraction.NoJudge = true
	t.Setenv("HOME", t.TempDir())

	svc, err := builder(connectors.NewRegistry())(context.Background(), settings, cli.Needs{Extraction: true})
	require.NoError(t, err)

	assert.NotNil(t, svc.Extraction)
	assert.NotNil(t, svc.Cache)
	assert.NoError(t, svc.Close())
}

func TestBuilder_ExtractionHoldsCacheLock(t *testing.T) {
	settings := testSettings(t)
	settings.Generation = domain.ModelSettings{
		Backend: domain.LLMBackendOllama,
		Model:   domain.DefaultOllamaModel,
		BaseURL: domain.DefaultOllamaURL,
	}
	settings.Extraction.NoJudge = true
	t.Setenv("HOME", t.TempDir())
	build := builder(connectors.NewRegistry())
	ctx := context.Background()

	first, err := build(ctx, settings, cli.Needs{Extraction: true})
	require.NoError(t, err)

	_, err = build(ctx, settings, cli.Needs{Extraction: true})
	assert.ErrorIs(t, err, domain.ErrCacheLocked)

	require.NoError(t, first.Close())
	again, err := build(ctx, settings, cli.Needs{Extraction: true})
	require.NoError(t, err)
	assert.NoError(t, again.Close())
}

func TestClosers_ReverseOrder(t *testing.T) {
	var order []int
	var c closers
	c.add(func() error { order = append(order, 1); return nil })
	c.add(func() error { order = append(order, 2); return assert.AnError })

	err := c.close()

	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []int{2, 1}, order)
}
