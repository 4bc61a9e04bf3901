package statsview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/application"
)

func TestRenderPopulatedSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 15, 18, 30, 0, 0, time.UTC)

	output, err := Render(application.Stats{
		TotalAccounts:       42,
		NewAccountsToday:    3,
		ActiveKeys:          18,
		TotalKeys:           24,
		TotalPurchases:      31,
		PaymentsOpenedToday: 5,
		CompletedRevenue:    9300,
		OutstandingPayments: 2,
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "VPN Subscription Service")
	assert.Contains(t, output, "as of 15.03.2026 18:30")
	assert.Contains(t, output, "42")
	assert.Contains(t, output, "18 of 24")
	assert.Contains(t, output, "revenue")
	assert.Contains(t, output, "9300")
	assert.Contains(t, output, "[")
	assert.Contains(t, output, "]")
}

func TestRenderEmptySnapshot(t *testing.T) {
	output, err := Render(application.Stats{}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "service overview")
	assert.Contains(t, output, "no keys issued yet")
}
