package cli

import (
	"github.com/spf13/cobra"

	"mergeq.dev/mergeq/internal/output"
)

// newMergeCmd creates the merge command
func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <queue-file>",
		Short: "Process an ordered change queue and publish speculative merge states",
		Long: `Process an ordered change queue and publish speculative merge states.

Items are processed strictly in order; each item may be stacked on the
speculative result of an earlier one. The first failing item aborts the run.
On success the commit produced by the last item is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := LoadQueue(args[0])
			if err != nil {
				return err
			}

			m, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			commit, err := m.MergeChanges(cmd.Context(), items)
			if err != nil {
				return err
			}
			printer := output.NewPrinter()
			printer.Success("merged %d change(s)", len(items))
			printer.Info("%s", commit)
			return nil
		},
	}
	return cmd
}
