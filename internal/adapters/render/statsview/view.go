package statsview

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/application"
)

type RenderOptions struct {
	Now time.Time
}

func renderView(stats application.Stats, opts RenderOptions, s styles) string {
	header := "service overview"
	if !opts.Now.IsZero() {
		header = fmt.Sprintf("service overview as of %s", opts.Now.Format("02.01.2006 15:04"))
	}

	lines := []string{
		s.title.Render("VPN Subscription Service"),
		s.header.Render(header),
		s.section.Render(renderAccounts(stats, s)),
		s.section.Render(renderKeys(stats, s)),
		s.section.Render(renderPayments(stats, s)),
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAccounts(stats application.Stats, s styles) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		s.accent.Render("Accounts"),
		statLine(s, "total", fmt.Sprintf("%d", stats.TotalAccounts)),
		statLine(s, "new today", fmt.Sprintf("%d", stats.NewAccountsToday)),
		statLine(s, "purchases", fmt.Sprintf("%d", stats.TotalPurchases)),
	)
}

func renderKeys(stats application.Stats, s styles) string {
	lines := []string{
		s.accent.Render("Keys"),
		statLine(s, "active", fmt.Sprintf("%d of %d", stats.ActiveKeys, stats.TotalKeys)),
	}

	if stats.TotalKeys > 0 {
		ratio := float64(stats.ActiveKeys) / float64(stats.TotalKeys)
		lines = append(lines, renderRatioBar(ratio, 24, s))
	} else {
		lines = append(lines, s.empty.Render("no keys issued yet"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderPayments(stats application.Stats, s styles) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		s.accent.Render("Payments"),
		statLine(s, "opened today", fmt.Sprintf("%d", stats.PaymentsOpenedToday)),
		statLine(s, "settled today", fmt.Sprintf("%d", stats.PaymentsCompletedToday)),
		statLine(s, "outstanding", fmt.Sprintf("%d", stats.OutstandingPayments)),
		statLine(s, "revenue", fmt.Sprintf("%d", stats.CompletedRevenue)),
	)
}

func statLine(s styles, label, value string) string {
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.label.Render(fmt.Sprintf("%-13s", label+":")),
		s.value.Render(value),
	)
}

func renderRatioBar(ratio float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	filled := int(math.Round(float64(width) * ratio))
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}
