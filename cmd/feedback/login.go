package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/feedbacksync/internal/localstore"
)

func newLoginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Obtain a token from the service and keep it locally",
		Long: `Log in to a service that has authentication enabled. The token is kept,
encrypted, in the local store and sent with every later request; admins may remove
and clear feedback.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				if err := promptPassword("Password for "+args[0], &password); err != nil {
					return err
				}
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.client.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			if err := saveToken(cmd.Context(), a.store, a.cfg, resp.Token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s logged in as %s (%s)\n", passStyle.Render("✓"), args[0], resp.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Remove(cmd.Context(), localstore.KeyToken); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s logged out\n", passStyle.Render("✓"))
			return nil
		},
	}
}
