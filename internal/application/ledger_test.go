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

func testLedger(repo *inMemoryAccountRepo, notifier *recordingNotifier) *Ledger {
	if notifier == nil {
		notifier = &recordingNotifier{}
	}
	clock := fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewLedger(repo, notifier, domain.DefaultConfig(), clock, nil)
}

func TestLedgerDebitNeverGoesNegative(t *testing.T) {
	t.Parallel()

	repo := newAccountRepo(domain.Account{ID: "1", Balance: 800})
	ledger := testLedger(repo, nil)

	require.NoError(t, ledger.Debit(context.Background(), "1", 800))

	account, err := ledger.Account(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), account.Balance)

	err = ledger.Debit(context.Background(), "1", 1)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	account, err = ledger.Account(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), account.Balance, "failed debit must leave no side effects")
}

func TestLedgerDebitAtExactBalanceBoundary(t *testing.T) {
	t.Parallel()

	repo := newAccountRepo(domain.Account{ID: "1", Balance: 799})
	ledger := testLedger(repo, nil)

	err := ledger.Debit(context.Background(), "1", 800)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestLedgerConcurrentDebitsRespectBalanceFloor(t *testing.T) {
	t.Parallel()

	repo := newAccountRepo(domain.Account{ID: "1", Balance: 100})
	ledger := testLedger(repo, nil)

	var wg sync.WaitGroup
	var succeeded sync.Map
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.Debit(context.Background(), "1", 10); err == nil {
				succeeded.Store(i, true)
			}
		}()
	}
	wg.Wait()

	successes := 0
	succeeded.Range(func(any, any) bool { successes++; return true })
	assert.Equal(t, 10, successes, "exactly balance/amount debits may succeed")

	account, err := ledger.Account(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), account.Balance)
}

func TestLedgerRegisterReferralRejectsSelf(t *testing.T) {
	t.Parallel()

	repo := newAccountRepo(domain.Account{ID: "1"})
	ledger := testLedger(repo, nil)

	err := ledger.RegisterReferral(context.Background(), "1", "1")
	require.ErrorIs(t, err, domain.ErrInvalidReferral)
}

func TestLedgerRegisterReferralIsIdempotentlyRejectedOnSecondCall(t *testing.T) {
	t.Parallel()

	repo := newAccountRepo(
		domain.Account{ID: "1"},
		domain.Account{ID: "2"},
		domain.Account{ID: "3"},
	)
	ledger := testLedger(repo, nil)

	require.NoError(t, ledger.RegisterReferral(context.Background(), "1", "2"))

	err := ledger.RegisterReferral(context.Background(), "1", "3")
	require.ErrorIs(t, err, domain.ErrInvalidReferral)

	account, err := ledger.Account(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountID("2"), account.ReferredBy, "first referrer retained")

	referrer, err := ledger.Account(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, []domain.AccountID{"1"}, referrer.Referrals)
}

func TestLedgerRegisterReferralUnknownReferrer(t *testing.T) {
	t.Parallel()

	repo := newAccountRepo(domain.Account{ID: "1"})
	ledger := testLedger(repo, nil)

	err := ledger.RegisterReferral(context.Background(), "1", "404")
	require.ErrorIs(t, err, domain.ErrInvalidReferral)
}

func TestLedgerPayCommissionFloorsAndTracksEarnings(t *testing.T) {
	t.Parallel()

	repo := newAccountRepo(domain.Account{ID: "ref", Balance: 5})
	ledger := testLedger(repo, nil)

	account, commission, err := ledger.PayCommission(context.Background(), "ref", 300)
	require.NoError(t, err)
	assert.Equal(t, int64(30), commission)
	assert.Equal(t, int64(35), account.Balance)
	assert.Equal(t, int64(30), account.ReferralEarnings)
}

func TestLedgerTouchCreatesAccountAndPaysBonusOnce(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{}
	repo := newAccountRepo(domain.Account{ID: "ref", Balance: 10})
	ledger := testLedger(repo, notifier)

	account, created, err := ledger.Touch(context.Background(), "new", "ref")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.AccountID("ref"), account.ReferredBy)
	assert.Equal(t, int64(0), account.Balance)

	referrer, err := ledger.Account(context.Background(), "ref")
	require.NoError(t, err)
	assert.Equal(t, int64(60), referrer.Balance, "flat bonus credited")
	assert.Equal(t, int64(0), referrer.ReferralEarnings, "bonus is not commission")
	assert.Equal(t, []domain.AccountID{"new"}, referrer.Referrals)
	assert.Len(t, notifier.sentTo("ref"), 1)

	// Second contact: no second bonus, nothing changes.
	_, created, err = ledger.Touch(context.Background(), "new", "ref")
	require.NoError(t, err)
	assert.False(t, created)

	referrer, err = ledger.Account(context.Background(), "ref")
	require.NoError(t, err)
	assert.Equal(t, int64(60), referrer.Balance)
	assert.Len(t, notifier.sentTo("ref"), 1)
}

func TestLedgerTouchIgnoresSelfReferral(t *testing.T) {
	t.Parallel()

	repo := newAccountRepo()
	ledger := testLedger(repo, nil)

	account, created, err := ledger.Touch(context.Background(), "1", "1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, account.HasReferrer())
}

func TestLedgerTouchIgnoresUnknownReferrer(t *testing.T) {
	t.Parallel()

	repo := newAccountRepo()
	ledger := testLedger(repo, nil)

	account, created, err := ledger.Touch(context.Background(), "1", "ghost")
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, account.HasReferrer())
}

func TestLedgerTouchLateReferralRegistersWithoutBonus(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{}
	repo := newAccountRepo(
		domain.Account{ID: "1", RegisteredAt: time.Now()},
		domain.Account{ID: "ref", Balance: 10},
	)
	ledger := testLedger(repo, notifier)

	account, created, err := ledger.Touch(context.Background(), "1", "ref")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, domain.AccountID("ref"), account.ReferredBy)

	referrer, err := ledger.Account(context.Background(), "ref")
	require.NoError(t, err)
	assert.Equal(t, int64(10), referrer.Balance, "late referral carries no bonus")
	assert.Equal(t, []domain.AccountID{"1"}, referrer.Referrals)
	assert.Empty(t, notifier.sentTo("ref"))
}

func TestLedgerTouchSurvivesNotifierFailure(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{failAll: context.DeadlineExceeded}
	repo := newAccountRepo(domain.Account{ID: "ref"})
	ledger := testLedger(repo, notifier)

	_, created, err := ledger.Touch(context.Background(), "new", "ref")
	require.NoError(t, err, "notification failure never fails the intake")
	assert.True(t, created)

	referrer, err := ledger.Account(context.Background(), "ref")
	require.NoError(t, err)
	assert.Equal(t, int64(50), referrer.Balance)
}
