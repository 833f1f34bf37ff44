package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/qa-extract/internal/adapters/driven/ai"
	configfile "github.com/custodia-labs/qa-extract/internal/adapters/driven/config/file"
	mcpclient "github.com/custodia-labs/qa-extract/internal/adapters/driven/mcp"
	"github.com/custodia-labs/qa-extract/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/qa-extract/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/qa-extract/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/qa-extract/internal/adapters/driving/cli"
	"github.com/custodia-labs/qa-extract/internal/adapters/driving/mcp"
	"github.com/custodia-labs/qa-extract/internal/connectors"
	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driving"
	"github.com/custodia-labs/qa-extract/internal/core/services"
	"github.com/custodia-labs/qa-extract/internal/logger"
)

// newConfig builds the CLI configuration from the concrete adapters.
func newConfig() cli.Config {
	registry := connectors.NewRegistry()

	var domains []mcp.DomainInfo
	for _, info := range registry.List() {
		domains = append(domains, mcp.DomainInfo{
			Domain:      info.Domain,
			Name:        info.Name,
			Description: info.Description,
			Tools:       info.Tools,
		})
	}

	return cli.Config{
		Settings: openSettings,
		Reports:  services.NewReporter(),
		Records:  file.NewRecordReader(),
		Domains:  domains,
		StreamPath: func(dir, d string) string {
			return filepath.Join(dir, file.StreamFileName(d))
		},
		Build: builder(registry),
		Ping:  ai.NewPinger(ai.DefaultPingTimeout).Validate,
	}
}

func openSettings(configPath string) (driving.SettingsService, error) {
	var (
		store *configfile.ConfigStore
		err   error
	)
	if configPath != "" {
		store, err = configfile.NewConfigStoreAt(configPath)
	} else {
		store, err = configfile.NewConfigStore("")
	}
	if err != nil {
		return nil, err
	}
	return services.NewSettingsService(store, nil), nil
}

// closers releases resources in reverse order of acquisition.
type closers []func() error

func (c *closers) add(fn func() error) {
	*c = append(*c, fn)
}

func (c closers) close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// builder returns the cli.Builder wiring services for resolved settings.
func builder(registry *connectors.Registry) cli.Builder {
	return func(ctx context.Context, settings *domain.Settings, needs cli.Needs) (svc *cli.Services, err error) {
		var release closers
		defer func() {
			if err != nil {
				_ = release.close()
			}
		}()

		svc = &cli.Services{}

		var cacheStore driven.CacheStore
		if needs.Extraction || needs.Cache {
			cacheStore, err = openCacheStore(settings, &release)
			if err != nil {
				return nil, err
			}
			svc.Cache = services.NewCacheReporter(cacheStore)
		}

		var review driven.ReviewStore
		if needs.Push {
			store, err := sqlite.NewStore(settings.ReviewDB)
			if err != nil {
				return nil, fmt.Errorf("failed to open review store: %w", err)
			}
			release.add(store.Close)
			review = store
			svc.Push = services.NewPublisher(store)
		}

		if needs.Extraction {
			runner, err := buildRunner(ctx, registry, settings, cacheStore, review, &release)
			if err != nil {
				return nil, err
			}
			svc.Extraction = runner
		}

		svc.Close = release.close
		return svc, nil
	}
}

func openCacheStore(settings *domain.Settings, release *closers) (driven.CacheStore, error) {
	if settings.CacheBackend == domain.CacheBackendRedis {
		store, err := redis.NewCacheStore(redis.Options{URL: settings.RedisURL})
		if err != nil {
			return nil, fmt.Errorf("failed to open redis cache: %w", err)
		}
		release.add(store.Close)
		return store, nil
	}
	return file.NewCacheStore(settings.OutputDir), nil
}

func buildRunner(
	ctx context.Context,
	registry *connectors.Registry,
	settings *domain.Settings,
	cacheStore driven.CacheStore,
	review driven.ReviewStore,
	release *closers,
) (*services.Runner, error) {
	e := settings.Extraction

	sources, err := buildSources(registry, settings, release)
	if err != nil {
		return nil, err
	}

	gateways, err := ai.CreateGateways(settings.Generation, settings.Judge, e.NoJudge)
	if err != nil {
		return nil, err
	}
	release.add(func() error { gateways.Close(); return nil })

	prompts, err := configfile.NewPromptStore("")
	if err != nil {
		return nil, fmt.Errorf("failed to open prompt store: %w", err)
	}
	promptBuilder := services.NewPromptBuilder(prompts)

	cache, unlock, err := services.LoadLockedExtractionCache(ctx, cacheStore)
	release.add(unlock)
	if err != nil {
		var corrupt *domain.CacheCorruptError
		if !errors.As(err, &corrupt) {
			return nil, err
		}
		logger.Warn("Extraction cache unreadable, starting empty: %v", err)
	}

	pipeline := services.NewEntityPipeline(
		cache,
		services.NewFreeformGenerator(promptBuilder, e.MaxRecordsPerEntity),
		services.NewTemplateGenerator(nil),
		services.NewJudgeEvaluator(promptBuilder, e.JudgeMaxTokens),
		services.PipelineConfig{
			Model:        gateways.Generation,
			Judge:        gateways.Judge,
			MaxTokens:    e.MaxTokens,
			ModelTimeout: e.ModelTimeout,
			Incremental:  e.Incremental,
		},
	)

	return services.NewRunner(sources, pipeline, cache, services.RunnerOptions{
		Review:   review,
		Writer:   file.NewRecordWriter(settings.OutputDir),
		Settings: e,
	}), nil
}

// buildSources creates one entity source per domain with a configured server.
func buildSources(registry *connectors.Registry, settings *domain.Settings, release *closers) ([]driven.EntitySource, error) {
	var sources []driven.EntitySource
	for _, info := range registry.List() {
		url := settings.ServerURLs[info.Domain]
		if url == "" {
			logger.Warn("No server configured for %s, skipping", info.Domain)
			continue
		}

		var caller driven.ToolCaller
		if settings.Transport == domain.SourceTransportMCP {
			caller = mcpclient.NewClient(url, nil)
		} else {
			caller = mcpclient.NewHTTPClient(url, mcpclient.DefaultTimeout)
		}
		release.add(caller.Close)

		source, err := registry.NewSource(info.Domain, caller, connectors.Config{Extraction: settings.Extraction})
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	if len(sources) == 0 {
		return nil, errors.New("no tool servers configured")
	}
	return sources, nil
}
