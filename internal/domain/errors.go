package domain

import "errors"

var (
	ErrAccountNotFound         = errors.New("account not found")
	ErrKeyNotFound             = errors.New("key not found")
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrPaymentAlreadyConfirmed = errors.New("payment already confirmed")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrInvalidReferral         = errors.New("invalid referral")
	ErrProvisioning            = errors.New("provisioning failed")
	ErrUnknownRegion           = errors.New("unknown region")
	ErrUnknownDuration         = errors.New("unknown duration")
)
