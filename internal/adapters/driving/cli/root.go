// Package cli provides the qa-extract command line.
//
// Commands talk only to driving ports. The binary's main package wires the
// concrete services through Configure before Execute runs.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qa-extract/internal/adapters/driving/mcp"
	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driving"
	"github.com/custodia-labs/qa-extract/internal/logger"
)

// version is set by the linker.
var version = "dev"

// Services are the settings-dependent ports a command runs against.
type Services struct {
	Extraction driving.ExtractionService
	Push       driving.PushService
	Cache      driving.CacheService

	// Close releases stores, callers and gateways. May be nil.
	Close func() error
}

// Needs tells a Builder which services a command uses, so a report does not
// require model credentials and an extraction without push never opens the
// review store.
type Needs struct {
	Extraction bool
	Push       bool
	Cache      bool
}

// Builder wires services from resolved settings.
type Builder func(ctx context.Context, settings *domain.Settings, needs Needs) (*Services, error)

// Config is what main hands to the CLI.
type Config struct {
	// Settings opens the settings service for a config file path ("" = default).
	Settings func(configPath string) (driving.SettingsService, error)

	// Reports and Records serve report, validate and the MCP server.
	Reports driving.ReportService
	Records driven.RecordReader

	// Domains describes the available domains.
	Domains []mcp.DomainInfo

	// StreamPath resolves a domain's output stream inside a directory.
	StreamPath func(dir, domain string) string

	// Build wires settings-dependent services.
	Build Builder

	// Ping checks a model backend answers. Optional.
	Ping func(ctx context.Context, m domain.ModelSettings) error
}

var (
	configPath string
	verbose    bool
	logFile    string

	openSettings    func(configPath string) (driving.SettingsService, error)
	settingsService driving.SettingsService
	reportService   driving.ReportService
	recordReader    driven.RecordReader
	domainInfos     []mcp.DomainInfo
	streamPath      func(dir, domain string) string
	buildServices   Builder
)

var rootCmd = &cobra.Command{
	Use:   "qa-extract",
	Short: "Extract question/answer training pairs from research computing tool servers",
	Long: `qa-extract fetches entities from per-domain tool servers, generates
question/answer pairs with a language model and deterministic templates,
scores them with a judge model, and writes one JSONL stream per domain.

Unchanged entities are replayed from the extraction cache, so repeated runs
only pay for what changed.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.qa-extract/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file (rotated)")
}

// Configure installs the services built by main.
func Configure(cfg Config) {
	openSettings = cfg.Settings
	reportService = cfg.Reports
	recordReader = cfg.Records
	domainInfos = cfg.Domains
	streamPath = cfg.StreamPath
	buildServices = cfg.Build
	pingModel = cfg.Ping
}

// Execute runs the root command.
func Execute(ctx context.Context, v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if openSettings != nil {
		svc, err := openSettings(configPath)
		if err != nil {
			return fmt.Errorf("failed to open config: %w", err)
		}
		settingsService = svc
	}

	path := logFile
	if path == "" && settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			path = s.LogFile
		}
	}
	if path != "" {
		if err := logger.SetLogFile(path); err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
	}
	logger.Debug("Running %s", cmd.CommandPath())
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	return logger.Close()
}

// resolveSettings returns the current settings with overrides applied.
func resolveSettings(override func(*domain.Settings)) (*domain.Settings, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if override != nil {
		override(settings)
	}
	return settings, nil
}

// openServices resolves settings and builds the services a command needs.
// The caller must call the returned release func.
func openServices(
	ctx context.Context,
	needs Needs,
	override func(*domain.Settings),
) (*Services, *domain.Settings, func(), error) {
	settings, err := resolveSettings(override)
	if err != nil {
		return nil, nil, nil, err
	}
	if buildServices == nil {
		return nil, nil, nil, errors.New("services not configured")
	}
	svc, err := buildServices(ctx, settings, needs)
	if err != nil {
		return nil, nil, nil, err
	}
	release := func() {
		if svc.Close == nil {
			return
		}
		if err := svc.Close(); err != nil {
			logger.Warn("Failed to release resources: %v", err)
		}
	}
	return svc, settings, release, nil
}
