package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
)

func newKeysCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage issued VPN keys",
	}

	cmd.AddCommand(
		newKeysListCmd(app),
		newKeysRevokeCmd(app),
	)

	return cmd
}

func newKeysListCmd(app *app) *cobra.Command {
	var ownerID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an account's active keys",
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, err := app.keys.ActiveFor(cmd.Context(), domain.AccountID(ownerID), app.now())
			if err != nil {
				return err
			}

			if len(keys) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "no active keys")
				return err
			}

			for _, key := range keys {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n",
					key.Region, key.Token, key.ExpiresAt.Format("02.01.2006 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ownerID, "owner", "", "account id")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func newKeysRevokeCmd(app *app) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke a key remotely and remove it locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.keys.Revoke(cmd.Context(), token); err != nil {
				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "revoked")
			return err
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "key token")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}
