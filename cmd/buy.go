package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
)

func newBuyCmd(app *app) *cobra.Command {
	var payerID string
	var region string
	var days int

	cmd := &cobra.Command{
		Use:   "buy",
		Short: "Buy a VPN key from an account's balance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := app.orchestrator.BuyWithBalance(cmd.Context(), domain.AccountID(payerID), domain.RegionCode(region), days)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "key:     %s\n", key.Token)
			fmt.Fprintf(out, "region:  %s\n", key.Region)
			fmt.Fprintf(out, "expires: %s\n", key.ExpiresAt.Format("02.01.2006 15:04"))
			if key.Fallback() {
				fmt.Fprintln(out, "note:    locally issued key")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&payerID, "payer", "", "paying account id")
	cmd.Flags().StringVar(&region, "region", "EU", "region code")
	cmd.Flags().IntVar(&days, "days", 30, "subscription duration in days")
	_ = cmd.MarkFlagRequired("payer")

	return cmd
}
