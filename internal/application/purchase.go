package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
	"github.com/sergeyzhinskiy/telegramvpnbot/internal/ports"
)

// PurchaseOrchestrator composes the purchase paths: funds gate (balance) or
// payment settlement (external), then the shared issuance sequence. Once
// funds or a payment are confirmed, issuance never fails as a whole;
// provisioning degrades to local key synthesis.
type PurchaseOrchestrator struct {
	ledger      *Ledger
	keys        *KeyService
	payments    *PaymentTracker
	provisioner ports.Provisioner
	notifier    ports.Notifier
	cfg         domain.Config
	clock       ports.Clock
	log         *slog.Logger
}

func NewPurchaseOrchestrator(
	ledger *Ledger,
	keys *KeyService,
	payments *PaymentTracker,
	provisioner ports.Provisioner,
	notifier ports.Notifier,
	cfg domain.Config,
	clock ports.Clock,
	log *slog.Logger,
) *PurchaseOrchestrator {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}

	return &PurchaseOrchestrator{
		ledger:      ledger,
		keys:        keys,
		payments:    payments,
		provisioner: provisioner,
		notifier:    notifier,
		cfg:         cfg,
		clock:       clock,
		log:         log,
	}
}

// BuyWithBalance runs the balance path: the debit is the atomic gate, any
// preceding balance check is advisory only. No side effects on
// ErrInsufficientFunds.
func (o *PurchaseOrchestrator) BuyWithBalance(ctx context.Context, payer domain.AccountID, region domain.RegionCode, days int) (domain.Key, error) {
	price, err := o.cfg.Price(days)
	if err != nil {
		return domain.Key{}, err
	}

	if err := o.ledger.Debit(ctx, payer, price); err != nil {
		return domain.Key{}, err
	}

	return o.issue(ctx, payer, region, days, price)
}

// OpenPayment starts the external-settlement path.
func (o *PurchaseOrchestrator) OpenPayment(ctx context.Context, payer domain.AccountID, region domain.RegionCode, days int) (domain.Payment, error) {
	price, err := o.cfg.Price(days)
	if err != nil {
		return domain.Payment{}, err
	}

	return o.payments.Open(ctx, payer, region, days, price)
}

// ConfirmPayment presents a pending payment for settlement. Issuance runs
// only on ConfirmedNow; every other result is a no-op for the caller.
func (o *PurchaseOrchestrator) ConfirmPayment(ctx context.Context, id domain.PaymentID) (domain.Key, ConfirmResult, error) {
	payment, result, err := o.payments.Settle(ctx, id)
	if err != nil || result != ConfirmedNow {
		return domain.Key{}, result, err
	}

	key, err := o.issue(ctx, payment.Payer, payment.Region, payment.DurationDays, payment.Amount)
	if err != nil {
		return domain.Key{}, result, err
	}
	return key, ConfirmedNow, nil
}

// issue is the shared issuance sequence: provision (with fallback), record,
// count the purchase, pay referral commission, notify. Notification
// failures are logged and never roll anything back.
func (o *PurchaseOrchestrator) issue(ctx context.Context, payer domain.AccountID, regionCode domain.RegionCode, days int, price int64) (domain.Key, error) {
	key := o.provisionKey(ctx, payer, regionCode, days)

	if err := o.keys.Record(ctx, key); err != nil {
		return domain.Key{}, err
	}
	if err := o.ledger.RecordPurchase(ctx, payer); err != nil {
		return domain.Key{}, err
	}

	account, err := o.ledger.Account(ctx, payer)
	if err != nil {
		return domain.Key{}, fmt.Errorf("get purchaser %s: %w", payer, err)
	}
	if account.HasReferrer() {
		referrer, commission, err := o.ledger.PayCommission(ctx, account.ReferredBy, price)
		if err != nil {
			return domain.Key{}, err
		}
		text := fmt.Sprintf("Your referral made a purchase! You received %d.\nYour balance: %d", commission, referrer.Balance)
		if err := o.notifier.Send(ctx, referrer.ID, text); err != nil {
			o.log.Warn("commission notification failed", "referrer", referrer.ID, "error", err)
		}
	}

	o.deliverKey(ctx, payer, key)
	return key, nil
}

// provisionKey asks the regional provider for a key, falling back to local
// synthesis on any failure or for unprovisionable regions. The fallback has
// no external dependency and cannot fail.
func (o *PurchaseOrchestrator) provisionKey(ctx context.Context, owner domain.AccountID, regionCode domain.RegionCode, days int) domain.Key {
	region := o.cfg.Region(regionCode)
	now := o.clock.Now()

	if region.Provisionable() && o.provisioner != nil {
		provisioned, err := o.provisioner.CreateKey(ctx, region, days)
		if err == nil {
			return domain.Key{
				Token:      provisioned.AccessKey,
				ProviderID: provisioned.ID,
				Owner:      owner,
				Region:     regionCode,
				IssuedAt:   now,
				ExpiresAt:  provisioned.ExpiresAt,
			}
		}
		o.log.Warn("provisioning failed, synthesizing fallback key", "region", regionCode, "error", err)
	}

	return domain.FallbackKey(owner, regionCode, region.KeyPrefix, days, now)
}

func (o *PurchaseOrchestrator) deliverKey(ctx context.Context, to domain.AccountID, key domain.Key) {
	text := fmt.Sprintf(
		"Your VPN key is active!\n\nRegion: %s\nKey: %s\nValid until: %s",
		key.Region, key.Token, key.ExpiresAt.Format("02.01.2006 15:04"),
	)
	if err := o.notifier.Send(ctx, to, text); err != nil {
		o.log.Warn("key delivery failed", "account", to, "error", err)
	}
}
