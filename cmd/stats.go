package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	statsadapter "github.com/sergeyzhinskiy/telegramvpnbot/internal/adapters/render/statsview"
)

func newStatsCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the service overview",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := app.stats.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			rendered, err := app.statsRenderer(stats, statsadapter.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render stats: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the snapshot as JSON")

	return cmd
}
