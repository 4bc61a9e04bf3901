package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
	"github.com/sergeyzhinskiy/telegramvpnbot/internal/ports"
)

// ConfirmResult classifies the outcome of presenting a payment for
// confirmation. Only ConfirmedNow may trigger fulfillment.
type ConfirmResult int

const (
	ConfirmedNow ConfirmResult = iota
	AlreadyConfirmed
	PaymentNotFound
	NotSettled
)

func (r ConfirmResult) String() string {
	switch r {
	case ConfirmedNow:
		return "confirmed"
	case AlreadyConfirmed:
		return "already confirmed"
	case PaymentNotFound:
		return "not found"
	case NotSettled:
		return "not settled"
	default:
		return fmt.Sprintf("ConfirmResult(%d)", int(r))
	}
}

// PaymentTracker owns payment records and enforces at-most-once fulfillment
// per payment id.
type PaymentTracker struct {
	payments ports.PaymentRepository
	probe    ports.SettlementProbe
	clock    ports.Clock
	locks    *entityLocks
}

func NewPaymentTracker(payments ports.PaymentRepository, probe ports.SettlementProbe, clock ports.Clock) *PaymentTracker {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &PaymentTracker{
		payments: payments,
		probe:    probe,
		clock:    clock,
		locks:    newEntityLocks(),
	}
}

// Open records a pending payment. Ids are drawn at random; a collision is
// detected and redrawn rather than overwriting an existing record.
func (t *PaymentTracker) Open(ctx context.Context, payer domain.AccountID, region domain.RegionCode, days int, amount int64) (domain.Payment, error) {
	for {
		id := domain.NewPaymentID()
		if _, err := t.payments.GetByID(ctx, id); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrPaymentNotFound) {
			return domain.Payment{}, fmt.Errorf("check payment id: %w", err)
		}

		payment := domain.Payment{
			ID:           id,
			Payer:        payer,
			Region:       region,
			DurationDays: days,
			Amount:       amount,
			OpenedAt:     t.clock.Now(),
		}
		if err := t.payments.Save(ctx, payment); err != nil {
			return domain.Payment{}, fmt.Errorf("save payment: %w", err)
		}
		return payment, nil
	}
}

func (t *PaymentTracker) Get(ctx context.Context, id domain.PaymentID) (domain.Payment, error) {
	return t.payments.GetByID(ctx, id)
}

// Confirm flips a payment to completed. Across any number of concurrent
// callers exactly one gets ConfirmedNow; the rest see AlreadyConfirmed.
func (t *PaymentTracker) Confirm(ctx context.Context, id domain.PaymentID) (domain.Payment, ConfirmResult, error) {
	lock := t.locks.forID(string(id))
	lock.Lock()
	defer lock.Unlock()

	payment, err := t.payments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return domain.Payment{}, PaymentNotFound, nil
		}
		return domain.Payment{}, PaymentNotFound, fmt.Errorf("get payment %s: %w", id, err)
	}
	if payment.Completed {
		return payment, AlreadyConfirmed, nil
	}

	payment.Completed = true
	payment.CompletedAt = t.clock.Now()
	if err := t.payments.Save(ctx, payment); err != nil {
		return domain.Payment{}, PaymentNotFound, fmt.Errorf("save payment %s: %w", id, err)
	}

	return payment, ConfirmedNow, nil
}

// Settle polls the settlement oracle and confirms on a positive probe. The
// probe runs outside the payment's critical section; Confirm re-checks state
// under the lock, so a concurrent confirmation still yields AlreadyConfirmed.
func (t *PaymentTracker) Settle(ctx context.Context, id domain.PaymentID) (domain.Payment, ConfirmResult, error) {
	payment, err := t.payments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return domain.Payment{}, PaymentNotFound, nil
		}
		return domain.Payment{}, PaymentNotFound, fmt.Errorf("get payment %s: %w", id, err)
	}
	if payment.Completed {
		return payment, AlreadyConfirmed, nil
	}

	if !t.probe.Probe(ctx, id) {
		return payment, NotSettled, nil
	}

	return t.Confirm(ctx, id)
}

// Pending lists a payer's open payments.
func (t *PaymentTracker) Pending(ctx context.Context, payer domain.AccountID) ([]domain.Payment, error) {
	payments, err := t.payments.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	pending := make([]domain.Payment, 0, len(payments))
	for _, payment := range payments {
		if payment.Payer == payer && !payment.Completed {
			pending = append(pending, payment)
		}
	}
	return pending, nil
}
