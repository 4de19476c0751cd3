package cli

import (
	"github.com/spf13/cobra"
)

// newPushCmd creates the push command
func newPushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push <project> <url> <local-ref> <remote-ref>",
		Short: "Push a local ref of a project's working copy to its remote",
		Args:  cobra.ExactArgs(4),
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
			return repo.Push(cmd.Context(), args[2], args[3], cred)
		},
	}
	cmd.Flags().String("connection", "", "connection whose credential to use for the remote")
	return cmd
}
