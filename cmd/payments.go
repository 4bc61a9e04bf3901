package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/application"
	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
)

func newPaymentsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Open and settle payments",
	}

	cmd.AddCommand(
		newPaymentsOpenCmd(app),
		newPaymentsSettleCmd(app),
		newPaymentsListCmd(app),
	)

	return cmd
}

func newPaymentsOpenCmd(app *app) *cobra.Command {
	var payerID string
	var region string
	var days int

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a payment for a subscription purchase",
		RunE: func(cmd *cobra.Command, _ []string) error {
			payment, err := app.orchestrator.OpenPayment(cmd.Context(), domain.AccountID(payerID), domain.RegionCode(region), days)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "payment %s opened: %d for %d days in %s\n",
				payment.ID, payment.Amount, payment.DurationDays, payment.Region)
			return err
		},
	}

	cmd.Flags().StringVar(&payerID, "payer", "", "paying account id")
	cmd.Flags().StringVar(&region, "region", "EU", "region code")
	cmd.Flags().IntVar(&days, "days", 30, "subscription duration in days")
	_ = cmd.MarkFlagRequired("payer")

	return cmd
}

func newPaymentsSettleCmd(app *app) *cobra.Command {
	var paymentID string

	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Present a payment for settlement, issuing the key on success",
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, result, err := app.orchestrator.ConfirmPayment(cmd.Context(), domain.PaymentID(paymentID))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch result {
			case application.ConfirmedNow:
				fmt.Fprintf(out, "payment %s confirmed\n", paymentID)
				fmt.Fprintf(out, "key:     %s\n", key.Token)
				fmt.Fprintf(out, "expires: %s\n", key.ExpiresAt.Format("02.01.2006 15:04"))
			default:
				fmt.Fprintf(out, "payment %s: %s\n", paymentID, result)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&paymentID, "id", "", "payment id")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newPaymentsListCmd(app *app) *cobra.Command {
	var payerID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an account's open payments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pending, err := app.payments.Pending(cmd.Context(), domain.AccountID(payerID))
			if err != nil {
				return err
			}

			if len(pending) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "no open payments")
				return err
			}

			for _, payment := range pending {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%d days\t%s\n",
					payment.ID, payment.Amount, payment.DurationDays, payment.Region)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&payerID, "payer", "", "paying account id")
	_ = cmd.MarkFlagRequired("payer")

	return cmd
}
