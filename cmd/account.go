package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts and balances",
	}

	cmd.AddCommand(
		newAccountRegisterCmd(app),
		newAccountShowCmd(app),
		newAccountCreditCmd(app),
	)

	return cmd
}

func newAccountRegisterCmd(app *app) *cobra.Command {
	var accountID string
	var referrerID string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register an account, optionally crediting a referrer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			account, created, err := app.ledger.Touch(cmd.Context(), domain.AccountID(accountID), domain.AccountID(referrerID))
			if err != nil {
				return err
			}

			if created {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", account.ID)
			} else {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s already registered\n", account.ID)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "id", "", "account id")
	cmd.Flags().StringVar(&referrerID, "referrer", "", "referrer account id")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newAccountShowCmd(app *app) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show an account's balance and referral state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			account, err := app.ledger.Account(cmd.Context(), domain.AccountID(accountID))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "account: %s\n", account.ID)
			fmt.Fprintf(out, "balance: %d\n", account.Balance)
			fmt.Fprintf(out, "purchases: %d\n", account.Purchases)
			if account.HasReferrer() {
				fmt.Fprintf(out, "referred by: %s\n", account.ReferredBy)
			}
			fmt.Fprintf(out, "referrals: %d\n", len(account.Referrals))
			fmt.Fprintf(out, "referral earnings: %d\n", account.ReferralEarnings)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "id", "", "account id")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newAccountCreditCmd(app *app) *cobra.Command {
	var accountID string
	var amount int64

	cmd := &cobra.Command{
		Use:   "credit",
		Short: "Credit an account's balance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if amount <= 0 {
				return fmt.Errorf("amount must be positive, got %d", amount)
			}

			if err := app.ledger.Credit(cmd.Context(), domain.AccountID(accountID), amount); err != nil {
				return err
			}

			account, err := app.ledger.Account(cmd.Context(), domain.AccountID(accountID))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "credited %d, balance now %d\n", amount, account.Balance)
			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "id", "", "account id")
	cmd.Flags().Int64Var(&amount, "amount", 0, "amount to credit")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
