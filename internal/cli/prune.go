package cli

import (
	"github.com/spf13/cobra"
)

// newPruneCmd creates the prune command
func newPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune <project> <url>",
		Short: "Remove stale remote-tracking refs from a project's working copy",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			connection, _ := cmd.Flags().GetString("connection")
			cred, err := m.CredentialFor(connection)
			if err != nil {
				return err
			}
			repo, err := m.RegisterRepository(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return repo.PruneStaleRemoteRefs(cmd.Context(), cred)
		},
	}
	cmd.Flags().String("connection", "", "connection whose credential to use for the remote")
	return cmd
}
