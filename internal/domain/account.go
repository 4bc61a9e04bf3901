package domain

import (
	"slices"
	"time"
)

type AccountID string
type RegionCode string
type PaymentID string

// Account is the per-user ledger record. Accounts are created on first
// contact and never deleted.
type Account struct {
	ID               AccountID
	Balance          int64
	Purchases        int
	ReferredBy       AccountID
	Referrals        []AccountID
	ReferralEarnings int64
	RegisteredAt     time.Time
}

func (a Account) HasReferrer() bool {
	return a.ReferredBy != ""
}

// CanBeReferredBy reports whether referrer may become this account's
// referrer: no self-referral, and a referrer is set at most once.
func (a Account) CanBeReferredBy(referrer AccountID) bool {
	if referrer == "" || referrer == a.ID {
		return false
	}
	return a.ReferredBy == ""
}

func (a *Account) AddReferral(id AccountID) {
	if id == a.ID || slices.Contains(a.Referrals, id) {
		return
	}
	a.Referrals = append(a.Referrals, id)
}
