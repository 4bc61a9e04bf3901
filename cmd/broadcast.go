package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/application"
	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
)

func newBroadcastCmd(app *app) *cobra.Command {
	var senderID string
	var plain bool

	cmd := &cobra.Command{
		Use:   "broadcast [message]",
		Short: "Send a message to every account",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			sender := domain.AccountID(senderID)

			var report application.BroadcastReport
			var err error
			if plain {
				report, err = app.broadcaster.BroadcastAll(cmd.Context(), sender, text, nil)
			} else {
				report, err = runBroadcastSpinner(cmd.Context(), cmd.OutOrStdout(), func(ctx context.Context, onProgress func(application.BroadcastReport)) (application.BroadcastReport, error) {
					return app.broadcaster.BroadcastAll(ctx, sender, text, onProgress)
				})
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			_, printErr := fmt.Fprintf(cmd.OutOrStdout(), "sent %d, failed %d of %d\n", report.Sent, report.Failed, report.Total)
			if printErr != nil {
				return printErr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&senderID, "from", "", "sending account id, excluded from delivery")
	cmd.Flags().BoolVar(&plain, "plain", false, "print the final report without live progress")

	return cmd
}

type broadcastProgressMsg struct {
	report application.BroadcastReport
}

type broadcastDoneMsg struct {
	report application.BroadcastReport
	err    error
}

type broadcastSpinnerModel struct {
	spinner spinner.Model
	report  application.BroadcastReport
	started bool
	done    bool
	err     error
}

func newBroadcastSpinnerModel() broadcastSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return broadcastSpinnerModel{spinner: s}
}

func (m broadcastSpinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m broadcastSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case broadcastProgressMsg:
		m.report = msg.report
		m.started = true
		return m, nil
	case broadcastDoneMsg:
		m.report = msg.report
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m broadcastSpinnerModel) View() string {
	if m.done {
		return ""
	}

	if !m.started {
		return fmt.Sprintf("%s Broadcasting...", m.spinner.View())
	}

	return fmt.Sprintf("%s Broadcasting... %d/%d (failed %d)",
		m.spinner.View(), m.report.Completed(), m.report.Total, m.report.Failed)
}

func runBroadcastSpinner(
	ctx context.Context,
	output io.Writer,
	run func(context.Context, func(application.BroadcastReport)) (application.BroadcastReport, error),
) (application.BroadcastReport, error) {
	p := tea.NewProgram(
		newBroadcastSpinnerModel(),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	go func() {
		report, err := run(ctx, func(r application.BroadcastReport) {
			p.Send(broadcastProgressMsg{report: r})
		})
		p.Send(broadcastDoneMsg{report: report, err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return application.BroadcastReport{}, err
	}

	result, ok := finalModel.(broadcastSpinnerModel)
	if !ok {
		return application.BroadcastReport{}, fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.report, result.err
}
