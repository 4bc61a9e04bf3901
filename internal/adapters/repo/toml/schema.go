package toml

import (
	"fmt"
	"time"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Accounts []accountSchema `toml:"accounts"`
	Keys     []keySchema     `toml:"keys"`
	Payments []paymentSchema `toml:"payments"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported state schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	ID               string   `toml:"id"`
	Balance          int64    `toml:"balance"`
	Purchases        int      `toml:"purchases,omitempty"`
	ReferredBy       string   `toml:"referred_by,omitempty"`
	Referrals        []string `toml:"referrals,omitempty"`
	ReferralEarnings int64    `toml:"referral_earnings,omitempty"`
	RegisteredAt     string   `toml:"registered_at"`
}

type keySchema struct {
	Token      string `toml:"token"`
	ProviderID string `toml:"provider_id,omitempty"`
	Owner      string `toml:"owner"`
	Region     string `toml:"region"`
	IssuedAt   string `toml:"issued_at"`
	ExpiresAt  string `toml:"expires_at"`
}

type paymentSchema struct {
	ID           string `toml:"id"`
	Payer        string `toml:"payer"`
	Region       string `toml:"region"`
	DurationDays int    `toml:"duration_days"`
	Amount       int64  `toml:"amount"`
	Completed    bool   `toml:"completed"`
	OpenedAt     string `toml:"opened_at"`
	CompletedAt  string `toml:"completed_at,omitempty"`
}

func toAccountSchema(account domain.Account) accountSchema {
	referrals := make([]string, 0, len(account.Referrals))
	for _, id := range account.Referrals {
		referrals = append(referrals, string(id))
	}

	return accountSchema{
		ID:               string(account.ID),
		Balance:          account.Balance,
		Purchases:        account.Purchases,
		ReferredBy:       string(account.ReferredBy),
		Referrals:        referrals,
		ReferralEarnings: account.ReferralEarnings,
		RegisteredAt:     formatTime(account.RegisteredAt),
	}
}

func fromAccountSchema(account accountSchema) domain.Account {
	var referrals []domain.AccountID
	for _, id := range account.Referrals {
		referrals = append(referrals, domain.AccountID(id))
	}

	return domain.Account{
		ID:               domain.AccountID(account.ID),
		Balance:          account.Balance,
		Purchases:        account.Purchases,
		ReferredBy:       domain.AccountID(account.ReferredBy),
		Referrals:        referrals,
		ReferralEarnings: account.ReferralEarnings,
		RegisteredAt:     parseTime(account.RegisteredAt),
	}
}

func toKeySchema(key domain.Key) keySchema {
	return keySchema{
		Token:      key.Token,
		ProviderID: key.ProviderID,
		Owner:      string(key.Owner),
		Region:     string(key.Region),
		IssuedAt:   formatTime(key.IssuedAt),
		ExpiresAt:  formatTime(key.ExpiresAt),
	}
}

func fromKeySchema(key keySchema) domain.Key {
	return domain.Key{
		Token:      key.Token,
		ProviderID: key.ProviderID,
		Owner:      domain.AccountID(key.Owner),
		Region:     domain.RegionCode(key.Region),
		IssuedAt:   parseTime(key.IssuedAt),
		ExpiresAt:  parseTime(key.ExpiresAt),
	}
}

func toPaymentSchema(payment domain.Payment) paymentSchema {
	return paymentSchema{
		ID:           string(payment.ID),
		Payer:        string(payment.Payer),
		Region:       string(payment.Region),
		DurationDays: payment.DurationDays,
		Amount:       payment.Amount,
		Completed:    payment.Completed,
		OpenedAt:     formatTime(payment.OpenedAt),
		CompletedAt:  formatTime(payment.CompletedAt),
	}
}

func fromPaymentSchema(payment paymentSchema) domain.Payment {
	return domain.Payment{
		ID:           domain.PaymentID(payment.ID),
		Payer:        domain.AccountID(payment.Payer),
		Region:       domain.RegionCode(payment.Region),
		DurationDays: payment.DurationDays,
		Amount:       payment.Amount,
		Completed:    payment.Completed,
		OpenedAt:     parseTime(payment.OpenedAt),
		CompletedAt:  parseTime(payment.CompletedAt),
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.Format(time.RFC3339)
}
