package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
)

// pingModel checks a model backend answers. Set by Configure; nil skips the check.
var pingModel func(ctx context.Context, m domain.ModelSettings) error

var settingsCmd = &cobra.Command{
	Use:     "settings",
	Aliases: []string{"config"},
	Short:   "Manage application settings",
	Long: `View and configure model backends, tool servers and extraction limits.

Settings are read from defaults, then ~/.qa-extract/config.toml, then the
environment; the environment wins.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsGenerationCmd = &cobra.Command{
	Use:   "generation",
	Short: "Configure the generation model",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return configureModel(cmd, "generation")
	},
}

var settingsJudgeCmd = &cobra.Command{
	Use:   "judge",
	Short: "Configure the judge model",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return configureModel(cmd, "judge")
	},
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate settings and ping the model backends",
	RunE:  runSettingsCheck,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsGenerationCmd)
	settingsCmd.AddCommand(settingsJudgeCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	settingsCheckCmd.Flags().Bool("offline", false, "skip backend pings")
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	settings, err := resolveSettings(nil)
	if err != nil {
		return err
	}

	cmd.Println(heading("Generation"))
	printModel(cmd, settings.Generation)
	cmd.Println()

	cmd.Println(heading("Judge"))
	if settings.Extraction.NoJudge {
		cmd.Println(row("Status", mutedStyle.Render("disabled")))
	} else {
		printModel(cmd, settings.Judge)
	}
	cmd.Println()

	cmd.Println(heading("Sources"))
	cmd.Println(row("Transport", settings.Transport))
	for _, d := range domain.AllDomains() {
		cmd.Println(row(d, settings.ServerURLs[d]))
	}
	cmd.Println()

	e := settings.Extraction
	cmd.Println(heading("Extraction"))
	cmd.Println(row("Incremental", e.Incremental))
	cmd.Println(row("Max entities", limitText(e.MaxEntities)))
	cmd.Println(row("Max queries", e.MaxQueries))
	cmd.Println(row("Search limit", e.SearchLimit))
	cmd.Println(row("Max tokens", e.MaxTokens))
	cmd.Println(row("Judge max tokens", e.JudgeMaxTokens))
	cmd.Println(row("Max records/entity", limitText(e.MaxRecordsPerEntity)))
	cmd.Println(row("Model timeout", e.ModelTimeout))
	cmd.Println(row("Concurrency", fmt.Sprintf("%d domains, %d entities", e.DomainConcurrency, e.EntityConcurrency)))
	if len(e.ScrubFields) > 0 || e.ScrubEmails {
		cmd.Println(row("Scrub", fmt.Sprintf("fields=%s emails=%t", strings.Join(e.ScrubFields, ","), e.ScrubEmails)))
	}
	cmd.Println()

	cmd.Println(heading("Storage"))
	cmd.Println(row("Output", settings.OutputDir))
	cmd.Println(row("Cache backend", settings.CacheBackend))
	if settings.CacheBackend == domain.CacheBackendRedis {
		cmd.Println(row("Redis", settings.RedisURL))
	}
	cmd.Println(row("Review DB", orDefault(settings.ReviewDB, "~/.qa-extract/review.db")))
	if settings.LogFile != "" {
		cmd.Println(row("Log file", settings.LogFile))
	}
	return nil
}

func printModel(cmd *cobra.Command, m domain.ModelSettings) {
	cmd.Println(row("Backend", m.Backend.Description()))
	cmd.Println(row("Model", m.Model))
	if m.BaseURL != "" {
		cmd.Println(row("Base URL", m.BaseURL))
	}
	if m.Backend.RequiresAPIKey() || m.APIKey != "" {
		if m.APIKey != "" {
			cmd.Println(row("API key", maskAPIKey(m.APIKey)))
		} else {
			cmd.Println(row("API key", warnStyle.Render("(not set)")))
		}
	}
	if m.RequestsPerSecond > 0 {
		cmd.Println(row("Rate limit", fmt.Sprintf("%.2f req/s", m.RequestsPerSecond)))
	}
	status := okStyle.Render("configured")
	if !m.IsConfigured() {
		status = warnStyle.Render("not configured")
	}
	cmd.Println(row("Status", status))
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.Validate(); err != nil {
		cmd.Println(errorStyle.Render("Invalid: ") + err.Error())
		return err
	}
	cmd.Println(okStyle.Render("Settings are valid."))

	offline, err := cmd.Flags().GetBool("offline")
	if err != nil {
		return fmt.Errorf("getting offline flag: %w", err)
	}
	if offline || pingModel == nil {
		return nil
	}

	settings, err := resolveSettings(nil)
	if err != nil {
		return err
	}
	type check struct {
		name string
		m    domain.ModelSettings
	}
	checks := []check{{"generation", settings.Generation}}
	if !settings.Extraction.NoJudge {
		checks = append(checks, check{"judge", settings.Judge})
	}
	for _, c := range checks {
		cmd.Printf("Pinging %s backend (%s)... ", c.name, c.m.Model)
		if err := pingModel(cmd.Context(), c.m); err != nil {
			cmd.Println(errorStyle.Render("FAILED"))
			return fmt.Errorf("%s backend: %w", c.name, err)
		}
		cmd.Println(okStyle.Render("OK"))
	}
	return nil
}

// configureModel interactively sets the generation or judge backend.
func configureModel(cmd *cobra.Command, which string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Printf("Select %s backend\n", which)
	backends := domain.AllLLMBackends()
	for i, b := range backends {
		cmd.Printf("  %d. %s\n", i+1, b.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(backends), 1)
	backend := backends[idx-1]

	defaultModel := defaultModelFor(backend, which)
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if backend.RequiresAPIKey() {
		cmd.Print("Enter API key (blank keeps ANTHROPIC_API_KEY): ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
	}

	set := settingsService.SetGenerationBackend
	if which == "judge" {
		set = settingsService.SetJudgeBackend
	}
	if err := set(backend, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s backend: %w", which, err)
	}

	if pingModel != nil {
		settings, err := resolveSettings(nil)
		if err != nil {
			return err
		}
		m := settings.Generation
		if which == "judge" {
			m = settings.Judge
		}
		cmd.Print("Validating configuration... ")
		if err := pingModel(cmd.Context(), m); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("%s configuration validation failed: %w", which, err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("%s backend configured: %s (%s)\n", strings.ToUpper(which[:1])+which[1:], backend.Description(), model)
	return nil
}

func defaultModelFor(b domain.LLMBackend, which string) string {
	switch b {
	case domain.LLMBackendLocal:
		return domain.DefaultLocalModel
	case domain.LLMBackendOllama:
		return domain.DefaultOllamaModel
	default:
		if which == "judge" {
			return domain.DefaultJudgeModel
		}
		return domain.DefaultGenerationModel
	}
}

// Helper functions.

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n') //nolint:errcheck // EOF yields the partial line
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is the terminal.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func limitText(n int) string {
	if n <= 0 {
		return "unlimited"
	}
	return strconv.Itoa(n)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
