package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vpnbot",
		Short:         "VPN subscription service: keys, balances, referrals, payments",
		Long:          "vpnbot provisions VPN access keys per region, tracks account balances and referrals, drives payment settlement, and broadcasts announcements to every account.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAccountCmd(app),
		newBuyCmd(app),
		newKeysCmd(app),
		newPaymentsCmd(app),
		newBroadcastCmd(app),
		newStatsCmd(app),
	)

	return rootCmd
}
