package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
)

var (
	reportDir  string
	reportJSON bool
)

var reportCmd = &cobra.Command{
	Use:   "report [stream.jsonl...]",
	Short: "Summarise record streams",
	Long: `Breaks records down by domain, granularity, complexity and suggested
decision. With no arguments every domain stream in the output directory is read.`,
	RunE: runReport,
}

var validateCmd = &cobra.Command{
	Use:   "validate [stream.jsonl...]",
	Short: "Validate citation markers",
	Long: `Checks that every answer ends with a <<SRC:domain:entity_id>> marker
matching the record's source ref. Exits non-zero when any record fails.`,
	RunE: runValidate,
}

func init() {
	for _, c := range []*cobra.Command{reportCmd, validateCmd} {
		c.Flags().StringVarP(&reportDir, "output", "o", "", "output directory holding the streams")
		c.Flags().BoolVar(&reportJSON, "json", false, "output as JSON")
		rootCmd.AddCommand(c)
	}
}

func loadForReport(cmd *cobra.Command, args []string) ([]domain.TrainingRecord, error) {
	if reportService == nil {
		return nil, errors.New("report service not configured")
	}
	paths, err := streamPaths(args, outputDir(reportDir))
	if err != nil {
		return nil, err
	}
	return readStreams(cmd.Context(), paths)
}

func runReport(cmd *cobra.Command, args []string) error {
	records, err := loadForReport(cmd, args)
	if err != nil {
		return err
	}
	r := reportService.Report(records)
	if reportJSON {
		return printJSON(cmd, r)
	}

	cmd.Println(heading(fmt.Sprintf("%d records", r.Total)))
	cmd.Println()
	cmd.Println("By domain")
	for _, d := range sortedKeys(r.ByDomain) {
		cmd.Println(row(d, r.ByDomain[d]))
	}
	cmd.Println("By granularity")
	for _, g := range domain.AllGranularities() {
		cmd.Println(row(string(g), r.ByGranularity[g]))
	}
	cmd.Println("By complexity")
	for _, c := range []domain.Complexity{domain.ComplexitySimple, domain.ComplexityModerate, domain.ComplexityComplex} {
		cmd.Println(row(string(c), r.ByComplexity[c]))
	}
	cmd.Println("Judge")
	cmd.Println(row("Scored", r.Scored))
	cmd.Println(row(string(domain.DecisionApproved), r.ByDecision[domain.DecisionApproved]))
	cmd.Println(row(string(domain.DecisionNeedsReview), r.ByDecision[domain.DecisionNeedsReview]))
	if r.Scored > 0 {
		cmd.Println(row("Mean confidence", fmt.Sprintf("%.2f", r.MeanConfidence)))
	}
	cmd.Println(row("With citation", r.WithCitation))
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	records, err := loadForReport(cmd, args)
	if err != nil {
		return err
	}
	r := reportService.ValidateCitations(records)
	if reportJSON {
		if err := printJSON(cmd, r); err != nil {
			return err
		}
	} else {
		for _, p := range r.Problems {
			cmd.Println(warnStyle.Render(p.RecordID) + "  " + p.Reason)
		}
		summary := fmt.Sprintf("%d/%d records have valid citations", r.Valid, r.Total)
		if r.OK() {
			cmd.Println(okStyle.Render(summary))
		} else {
			cmd.Println(errorStyle.Render(summary))
		}
	}
	if !r.OK() {
		return fmt.Errorf("%d records failed citation validation", len(r.Problems))
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
