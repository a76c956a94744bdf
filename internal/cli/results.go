package cli

import (
	"github.com/spf13/cobra"
)

func newResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results",
		Short: "Show the latest results, tests and users",
		Long: `Fetch the latest broadcast snapshot. Verdicts of other users are
redacted unless the logged-in user is an admin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Snapshot

			if err := client.Get(cmd.Context(), "/api/v1/snapshot", &result); err != nil {
				return explainAuth(err)
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}
