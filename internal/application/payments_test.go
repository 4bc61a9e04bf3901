package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
)

func testTracker(repo *inMemoryPaymentRepo, probe fixedProbe) *PaymentTracker {
	clock := fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewPaymentTracker(repo, probe, clock)
}

func TestPaymentTrackerOpenAssignsUniqueIDs(t *testing.T) {
	t.Parallel()

	repo := newPaymentRepo()
	tracker := testTracker(repo, fixedProbe{settled: true})

	seen := map[domain.PaymentID]struct{}{}
	for range 32 {
		payment, err := tracker.Open(context.Background(), "1", "EU", 30, 300)
		require.NoError(t, err)
		require.Len(t, string(payment.ID), 8)
		assert.False(t, payment.Completed)

		_, dup := seen[payment.ID]
		require.False(t, dup, "payment id %s reused", payment.ID)
		seen[payment.ID] = struct{}{}
	}
}

func TestPaymentTrackerConfirmExactlyOnce(t *testing.T) {
	t.Parallel()

	repo := newPaymentRepo()
	tracker := testTracker(repo, fixedProbe{settled: true})

	payment, err := tracker.Open(context.Background(), "1", "EU", 30, 300)
	require.NoError(t, err)

	_, result, err := tracker.Confirm(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, ConfirmedNow, result)

	_, result, err = tracker.Confirm(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, AlreadyConfirmed, result)
}

func TestPaymentTrackerConfirmExactlyOnceUnderConcurrency(t *testing.T) {
	t.Parallel()

	repo := newPaymentRepo()
	tracker := testTracker(repo, fixedProbe{settled: true})

	payment, err := tracker.Open(context.Background(), "1", "EU", 30, 300)
	require.NoError(t, err)

	const callers = 64
	results := make(chan ConfirmResult, callers)
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, result, err := tracker.Confirm(context.Background(), payment.ID)
			require.NoError(t, err)
			results <- result
		}()
	}
	wg.Wait()
	close(results)

	confirmed := 0
	for result := range results {
		if result == ConfirmedNow {
			confirmed++
		} else {
			assert.Equal(t, AlreadyConfirmed, result)
		}
	}
	assert.Equal(t, 1, confirmed, "exactly one caller wins")
}

func TestPaymentTrackerConfirmUnknownID(t *testing.T) {
	t.Parallel()

	tracker := testTracker(newPaymentRepo(), fixedProbe{settled: true})

	_, result, err := tracker.Confirm(context.Background(), "NOPE1234")
	require.NoError(t, err)
	assert.Equal(t, PaymentNotFound, result)
}

func TestPaymentTrackerSettleHonorsProbe(t *testing.T) {
	t.Parallel()

	repo := newPaymentRepo()
	tracker := testTracker(repo, fixedProbe{settled: false})

	payment, err := tracker.Open(context.Background(), "1", "EU", 30, 300)
	require.NoError(t, err)

	_, result, err := tracker.Settle(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, NotSettled, result, "negative probe leaves payment open")

	got, err := tracker.Get(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)
}

func TestPaymentTrackerSettleConfirmsOnPositiveProbe(t *testing.T) {
	t.Parallel()

	repo := newPaymentRepo()
	tracker := testTracker(repo, fixedProbe{settled: true})

	payment, err := tracker.Open(context.Background(), "1", "EU", 30, 300)
	require.NoError(t, err)

	_, result, err := tracker.Settle(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, ConfirmedNow, result)

	_, result, err = tracker.Settle(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, AlreadyConfirmed, result, "completion is monotonic")
}

func TestPaymentTrackerPending(t *testing.T) {
	t.Parallel()

	repo := newPaymentRepo()
	tracker := testTracker(repo, fixedProbe{settled: true})

	first, err := tracker.Open(context.Background(), "1", "EU", 7, 100)
	require.NoError(t, err)
	_, err = tracker.Open(context.Background(), "2", "US", 30, 300)
	require.NoError(t, err)
	second, err := tracker.Open(context.Background(), "1", "ASIA", 90, 800)
	require.NoError(t, err)

	_, result, err := tracker.Confirm(context.Background(), first.ID)
	require.NoError(t, err)
	require.Equal(t, ConfirmedNow, result)

	pending, err := tracker.Pending(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
}
