package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driving"
)

var (
	extractIncremental bool
	extractFull        bool
	extractNoJudge     bool
	extractMaxEntities int
	extractMaxRecords  int
	extractConcurrency int
	extractEntityIDs   []string
	extractOutputDir   string
	extractPush        bool
	extractNoOutput    bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [domain...]",
	Short: "Extract question/answer pairs",
	Long: `Fetches entities from each domain's tool server and generates records.

With no arguments every domain is extracted. Unchanged entities are replayed
from the extraction cache unless --full is given.

Examples:
  qa-extract extract
  qa-extract extract compute-resources --entity-id delta.ncsa.access-ci.org
  qa-extract extract software-discovery --max-entities 5 --no-judge
  qa-extract extract --push`,
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.BoolVar(&extractIncremental, "incremental", true, "replay unchanged entities from the cache")
	f.BoolVar(&extractFull, "full", false, "ignore the cache and regenerate every entity")
	f.BoolVar(&extractNoJudge, "no-judge", false, "skip quality scoring")
	f.IntVar(&extractMaxEntities, "max-entities", 0, "limit entities per domain (0 = all)")
	f.IntVar(&extractMaxRecords, "max-records", -1, "cap freeform records per entity (0 = uncapped)")
	f.IntVar(&extractConcurrency, "concurrency", 0, "entities in flight per domain")
	f.StringSliceVar(&extractEntityIDs, "entity-id", nil, "only extract these entity ids (repeatable)")
	f.StringVarP(&extractOutputDir, "output", "o", "", "output directory")
	f.BoolVar(&extractPush, "push", false, "push fresh records to the review store")
	f.BoolVar(&extractNoOutput, "no-output", false, "do not write JSONL streams")
	rootCmd.AddCommand(extractCmd)
}

// extractOverrides applies command flags over resolved settings.
func extractOverrides(cmd *cobra.Command) func(*domain.Settings) {
	return func(s *domain.Settings) {
		flags := cmd.Flags()
		if flags.Changed("incremental") {
			s.Extraction.Incremental = extractIncremental
		}
		if extractFull {
			s.Extraction.Incremental = false
		}
		if extractNoJudge {
			s.Extraction.NoJudge = true
		}
		if extractMaxEntities > 0 {
			s.Extraction.MaxEntities = extractMaxEntities
		}
		if extractMaxRecords >= 0 {
			s.Extraction.MaxRecordsPerEntity = extractMaxRecords
		}
		if extractConcurrency > 0 {
			s.Extraction.EntityConcurrency = extractConcurrency
		}
		if len(extractEntityIDs) > 0 {
			s.Extraction.EntityIDs = extractEntityIDs
		}
		if extractOutputDir != "" {
			s.OutputDir = extractOutputDir
		}
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	for _, d := range args {
		if !domain.IsKnownDomain(d) {
			return fmt.Errorf("%w: %s (known: %s)", domain.ErrUnknownDomain, d, strings.Join(domain.AllDomains(), ", "))
		}
	}

	svc, settings, release, err := openServices(cmd.Context(), Needs{Extraction: true, Push: extractPush}, extractOverrides(cmd))
	if err != nil {
		return err
	}
	defer release()

	summary, runErr := svc.Extraction.Run(cmd.Context(), driving.RunRequest{
		Domains:     args,
		Push:        extractPush,
		WriteOutput: !extractNoOutput,
	})
	if summary != nil {
		printRunSummary(cmd, summary, settings.OutputDir, !extractNoOutput)
	}
	if runErr != nil {
		return fmt.Errorf("extraction finished with errors: %w", runErr)
	}
	if summary != nil && !summary.Succeeded() {
		return errors.New("no domain could be fetched")
	}
	return nil
}

func printRunSummary(cmd *cobra.Command, s *domain.RunSummary, outputDir string, wrote bool) {
	cmd.Println(heading(fmt.Sprintf("Run %s", s.RunID)))
	for _, d := range s.Domains {
		cmd.Println()
		if !d.FullyFetched() {
			cmd.Println(errorStyle.Render(d.Domain) + "  fetch failed: " + d.FetchError)
			continue
		}
		cmd.Println(okStyle.Render(d.Domain))
		cmd.Println(row("Entities fetched", d.Fetched))
		cmd.Println(row("Cache hits", d.CacheHits))
		cmd.Println(row("Generated", d.Generated))
		if d.Failed > 0 {
			cmd.Println(row("Failed", warnStyle.Render(fmt.Sprintf("%d (%s)", d.Failed, strings.Join(d.FailedEntities, ", ")))))
		}
		for _, g := range domain.AllGranularities() {
			if n := d.Records[g]; n > 0 {
				cmd.Println(row(string(g)+" records", n))
			}
		}
		if d.WriteError != "" {
			cmd.Println(row("Stream", errorStyle.Render("not written: "+d.WriteError)))
		}
		if d.Sync != nil {
			cmd.Println(row("Pushed", fmt.Sprintf("%d (archived %d, deleted %d)", d.Sync.Pushed, d.Sync.Archived, d.Sync.Deleted)))
			for _, f := range d.Sync.Failures {
				cmd.Println("    " + warnStyle.Render(f.Error()))
			}
		}
	}

	cmd.Println()
	cmd.Println(row("Total records", s.TotalRecords()))
	cmd.Println(row("Cache", fmt.Sprintf("%d hits, %d misses, %d entries", s.Cache.Hits, s.Cache.Misses, s.Cache.Entries)))
	cmd.Println(row("Duration", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond)))
	if wrote && outputDir != "" {
		cmd.Println(row("Output", outputDir))
	}
	if s.Cancelled {
		cmd.Println(warnStyle.Render("Run was cancelled; completed work is cached."))
	}
}

// sortedKeys returns map keys in order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
