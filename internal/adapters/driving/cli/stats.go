package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show extraction cache statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	svc, settings, release, err := openServices(cmd.Context(), Needs{Cache: true}, nil)
	if err != nil {
		return err
	}
	defer release()

	stats, err := svc.Cache.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load cache: %w", err)
	}

	cmd.Println(heading("Extraction cache"))
	cmd.Println(row("Backend", settings.CacheBackend))
	cmd.Println(row("Entries", stats.Entries))
	for _, d := range sortedKeys(stats.ByDomain) {
		cmd.Println(row("  "+d, stats.ByDomain[d]))
	}
	return nil
}
