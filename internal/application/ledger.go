package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
	"github.com/sergeyzhinskiy/telegramvpnbot/internal/ports"
)

// Ledger owns balances, the referral graph and commission accounting.
// Operations on one account serialize through a per-account lock; effects
// spanning two accounts are two independent critical sections, not a
// transaction.
type Ledger struct {
	accounts ports.AccountRepository
	notifier ports.Notifier
	cfg      domain.Config
	clock    ports.Clock
	log      *slog.Logger
	locks    *entityLocks
}

func NewLedger(accounts ports.AccountRepository, notifier ports.Notifier, cfg domain.Config, clock ports.Clock, log *slog.Logger) *Ledger {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}

	return &Ledger{
		accounts: accounts,
		notifier: notifier,
		cfg:      cfg,
		clock:    clock,
		log:      log,
		locks:    newEntityLocks(),
	}
}

// update runs fn on one account inside that account's critical section.
// Nothing blocking happens under the lock.
func (l *Ledger) update(ctx context.Context, id domain.AccountID, fn func(*domain.Account) error) (domain.Account, error) {
	lock := l.locks.forID(string(id))
	lock.Lock()
	defer lock.Unlock()

	account, err := l.accounts.GetByID(ctx, id)
	if err != nil {
		return domain.Account{}, fmt.Errorf("get account %s: %w", id, err)
	}
	if err := fn(&account); err != nil {
		return domain.Account{}, err
	}
	if err := l.accounts.Save(ctx, account); err != nil {
		return domain.Account{}, fmt.Errorf("save account %s: %w", id, err)
	}

	return account, nil
}

func (l *Ledger) Account(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	return l.accounts.GetByID(ctx, id)
}

func (l *Ledger) Credit(ctx context.Context, id domain.AccountID, amount int64) error {
	_, err := l.update(ctx, id, func(account *domain.Account) error {
		account.Balance += amount
		return nil
	})
	return err
}

// Debit is the atomic funds gate: the check and the subtraction happen in
// one critical section, so the balance never goes negative.
func (l *Ledger) Debit(ctx context.Context, id domain.AccountID, amount int64) error {
	_, err := l.update(ctx, id, func(account *domain.Account) error {
		if account.Balance < amount {
			return fmt.Errorf("%w: balance %d, need %d", domain.ErrInsufficientFunds, account.Balance, amount)
		}
		account.Balance -= amount
		return nil
	})
	return err
}

// RegisterReferral links an existing account to its referrer. Fails with
// ErrInvalidReferral on self-referral, a second referrer, or an unknown
// referrer. The flat registration bonus is not applied here; Touch credits
// it once at first contact.
func (l *Ledger) RegisterReferral(ctx context.Context, id, referrer domain.AccountID) error {
	if _, err := l.accounts.GetByID(ctx, referrer); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return fmt.Errorf("%w: referrer %s unknown", domain.ErrInvalidReferral, referrer)
		}
		return fmt.Errorf("get referrer %s: %w", referrer, err)
	}

	if _, err := l.update(ctx, id, func(account *domain.Account) error {
		if !account.CanBeReferredBy(referrer) {
			return fmt.Errorf("%w: account %s, referrer %s", domain.ErrInvalidReferral, id, referrer)
		}
		account.ReferredBy = referrer
		return nil
	}); err != nil {
		return err
	}

	_, err := l.update(ctx, referrer, func(account *domain.Account) error {
		account.AddReferral(id)
		return nil
	})
	return err
}

// PayCommission credits the referrer with the floored share of a purchase
// and bumps the earned-from-referrals counter. Returns the updated referrer
// account and the commission amount.
func (l *Ledger) PayCommission(ctx context.Context, referrer domain.AccountID, purchaseAmount int64) (domain.Account, int64, error) {
	commission := l.cfg.Commission(purchaseAmount)
	account, err := l.update(ctx, referrer, func(account *domain.Account) error {
		account.Balance += commission
		account.ReferralEarnings += commission
		return nil
	})
	if err != nil {
		return domain.Account{}, 0, err
	}
	return account, commission, nil
}

func (l *Ledger) RecordPurchase(ctx context.Context, id domain.AccountID) error {
	_, err := l.update(ctx, id, func(account *domain.Account) error {
		account.Purchases++
		return nil
	})
	return err
}

// Touch is the first-contact intake flow. It creates the account if needed
// and applies both ledger effects of a referral event exactly once: the
// referral registration, and the flat bonus credited to the referrer only
// when the referred account is new. An invalid referral is dropped
// silently; the contact itself always succeeds.
func (l *Ledger) Touch(ctx context.Context, id, referrer domain.AccountID) (domain.Account, bool, error) {
	lock := l.locks.forID(string(id))
	lock.Lock()

	account, err := l.accounts.GetByID(ctx, id)
	switch {
	case err == nil:
		lock.Unlock()
		if referrer != "" {
			if regErr := l.RegisterReferral(ctx, id, referrer); regErr != nil && !errors.Is(regErr, domain.ErrInvalidReferral) {
				return domain.Account{}, false, regErr
			}
		}
		account, err = l.accounts.GetByID(ctx, id)
		return account, false, err
	case errors.Is(err, domain.ErrAccountNotFound):
		// fall through to creation below
	default:
		lock.Unlock()
		return domain.Account{}, false, fmt.Errorf("get account %s: %w", id, err)
	}

	account = domain.Account{ID: id, RegisteredAt: l.clock.Now()}
	if referrer != "" && referrer != id {
		if _, refErr := l.accounts.GetByID(ctx, referrer); refErr == nil {
			account.ReferredBy = referrer
		}
	}
	if err := l.accounts.Save(ctx, account); err != nil {
		lock.Unlock()
		return domain.Account{}, false, fmt.Errorf("save account %s: %w", id, err)
	}
	lock.Unlock()

	if account.ReferredBy == "" {
		return account, true, nil
	}

	referrerAccount, err := l.update(ctx, account.ReferredBy, func(ref *domain.Account) error {
		ref.Balance += l.cfg.ReferralBonus
		ref.AddReferral(id)
		return nil
	})
	if err != nil {
		return domain.Account{}, false, err
	}

	if l.notifier != nil {
		text := fmt.Sprintf("New referral! You received a %d bonus.\nYour balance: %d", l.cfg.ReferralBonus, referrerAccount.Balance)
		if err := l.notifier.Send(ctx, referrerAccount.ID, text); err != nil {
			l.log.Warn("referral bonus notification failed", "referrer", referrerAccount.ID, "error", err)
		}
	}

	return account, true, nil
}
