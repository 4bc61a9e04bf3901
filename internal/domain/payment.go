package domain

import "time"

const paymentIDLength = 8

// Payment tracks an externally settled purchase. Completed is monotonic:
// it flips false to true exactly once and is never reversed.
type Payment struct {
	ID           PaymentID
	Payer        AccountID
	Region       RegionCode
	DurationDays int
	Amount       int64
	OpenedAt     time.Time
	Completed    bool
	CompletedAt  time.Time
}

// NewPaymentID draws a fresh payment id. Collisions are detected and
// regenerated by the tracker, not here.
func NewPaymentID() PaymentID {
	return PaymentID(randomToken(paymentIDLength))
}
