package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var listDomainsCmd = &cobra.Command{
	Use:     "list-domains",
	Aliases: []string{"domains"},
	Short:   "List extraction domains",
	RunE:    runListDomains,
}

func init() {
	rootCmd.AddCommand(listDomainsCmd)
}

func runListDomains(cmd *cobra.Command, _ []string) error {
	urls := map[string]string{}
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			urls = s.ServerURLs
		}
	}

	for _, info := range domainInfos {
		cmd.Println(heading(info.Domain) + "  " + info.Name)
		cmd.Println(row("Description", info.Description))
		cmd.Println(row("Tools", strings.Join(info.Tools, ", ")))
		if u := urls[info.Domain]; u != "" {
			cmd.Println(row("Server", u))
		} else {
			cmd.Println(row("Server", mutedStyle.Render("(not configured)")))
		}
		cmd.Println()
	}
	return nil
}
