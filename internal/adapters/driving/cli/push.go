package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pushDir string

var pushCmd = &cobra.Command{
	Use:   "push [stream.jsonl...]",
	Short: "Push written records to the review store",
	Long: `Pushes records from JSONL streams to the review store with entity-replace
semantics: for every entity, existing items are removed (annotated items are
archived first) and the fresh records are inserted.

With no arguments every domain stream in the output directory is pushed.`,
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVarP(&pushDir, "output", "o", "", "output directory holding the streams")
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	paths, err := streamPaths(args, outputDir(pushDir))
	if err != nil {
		return err
	}
	records, err := readStreams(cmd.Context(), paths)
	if err != nil {
		return err
	}

	svc, _, release, err := openServices(cmd.Context(), Needs{Push: true}, nil)
	if err != nil {
		return err
	}
	defer release()

	reports, err := svc.Push.Push(cmd.Context(), records)
	if err != nil {
		return fmt.Errorf("push failed: %w", err)
	}

	failed := 0
	cmd.Println(heading(fmt.Sprintf("Pushed %d records", len(records))))
	for _, r := range reports {
		status := okStyle.Render(r.Domain)
		if !r.OK() {
			status = warnStyle.Render(r.Domain)
			failed += len(r.Failures)
		}
		cmd.Println(status)
		cmd.Println(row("Entities", r.SourceRefs))
		cmd.Println(row("Archived", r.Archived))
		cmd.Println(row("Deleted", r.Deleted))
		cmd.Println(row("Pushed", r.Pushed))
		for _, f := range r.Failures {
			cmd.Println("    " + warnStyle.Render(f.Error()))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d entities failed to sync", failed)
	}
	return nil
}
