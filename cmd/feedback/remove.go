package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>...",
		Aliases: []string{"rm"},
		Short:   "Remove feedback by id",
		Long: `Remove feedback by id. Removing an id that does not exist succeeds.

While offline the removal is buffered; removing a record that was itself
submitted offline cancels its upload instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, id := range args {
				if err := a.engine.Remove(cmd.Context(), id); err != nil {
					return fmt.Errorf("remove %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s removed %s\n", passStyle.Render("✓"), id)
			}
			return nil
		},
	}
}

func newClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every feedback",
		Long: `Remove every feedback. Online, the service collection is cleared too.
Offline, only the local copy and its outbox are cleared.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				confirmed := false
				err := huh.NewConfirm().
					Title("Remove every feedback?").
					Affirmative("Clear").
					Negative("Cancel").
					Value(&confirmed).
					Run()
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
					return nil
				}
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			online := a.engine.IsOnline()
			if err := a.engine.Clear(cmd.Context()); err != nil {
				return err
			}
			if online {
				fmt.Fprintf(cmd.OutOrStdout(), "%s cleared\n", passStyle.Render("✓"))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s cleared the local copy; the service was not reachable\n", warnStyle.Render("⚠"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
