package cli

import (
	"github.com/spf13/cobra"
)

// newRefreshCmd creates the refresh command
func newRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh <project> <url>",
		Short: "Fetch the latest remote state for a project's working copy",
		Long: `Fetch the latest remote state for a project's working copy.

Refresh is best-effort maintenance off the merge path: fetch failures are
logged and swallowed, and the command always exits successfully.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			m.RefreshRepository(cmd.Context(), args[0], args[1])
			return nil
		},
	}
	return cmd
}
