// Package memory provides map-backed repositories sharing one store. They
// are safe for concurrent use and suit tests and ephemeral runs.
package memory

import (
	"context"
	"sync"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
	"github.com/sergeyzhinskiy/telegramvpnbot/internal/ports"
)

// Store holds every record set behind a single lock. The repository views
// returned by Accounts, Keys and Payments all operate on it.
type Store struct {
	mu       sync.RWMutex
	accounts map[domain.AccountID]domain.Account
	keys     map[string]domain.Key
	payments map[domain.PaymentID]domain.Payment
}

func NewStore() *Store {
	return &Store{
		accounts: map[domain.AccountID]domain.Account{},
		keys:     map[string]domain.Key{},
		payments: map[domain.PaymentID]domain.Payment{},
	}
}

func (s *Store) Accounts() ports.AccountRepository { return accountView{s} }
func (s *Store) Keys() ports.KeyRepository         { return keyView{s} }
func (s *Store) Payments() ports.PaymentRepository { return paymentView{s} }

type accountView struct{ store *Store }

var _ ports.AccountRepository = accountView{}

func (v accountView) GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}

	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	account, ok := v.store.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account, nil
}

func (v accountView) List(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	accounts := make([]domain.Account, 0, len(v.store.accounts))
	for _, account := range v.store.accounts {
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (v accountView) Save(ctx context.Context, account domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	v.store.accounts[account.ID] = account
	return nil
}

type keyView struct{ store *Store }

var _ ports.KeyRepository = keyView{}

func (v keyView) GetByToken(ctx context.Context, token string) (domain.Key, error) {
	if err := ctx.Err(); err != nil {
		return domain.Key{}, err
	}

	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	key, ok := v.store.keys[token]
	if !ok {
		return domain.Key{}, domain.ErrKeyNotFound
	}
	return key, nil
}

func (v keyView) ListByOwner(ctx context.Context, owner domain.AccountID) ([]domain.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	var keys []domain.Key
	for _, key := range v.store.keys {
		if key.Owner == owner {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (v keyView) List(ctx context.Context) ([]domain.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	keys := make([]domain.Key, 0, len(v.store.keys))
	for _, key := range v.store.keys {
		keys = append(keys, key)
	}
	return keys, nil
}

func (v keyView) Save(ctx context.Context, key domain.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	v.store.keys[key.Token] = key
	return nil
}

func (v keyView) Delete(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	if _, ok := v.store.keys[token]; !ok {
		return domain.ErrKeyNotFound
	}
	delete(v.store.keys, token)
	return nil
}

type paymentView struct{ store *Store }

var _ ports.PaymentRepository = paymentView{}

func (v paymentView) GetByID(ctx context.Context, id domain.PaymentID) (domain.Payment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Payment{}, err
	}

	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	payment, ok := v.store.payments[id]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return payment, nil
}

func (v paymentView) List(ctx context.Context) ([]domain.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	payments := make([]domain.Payment, 0, len(v.store.payments))
	for _, payment := range v.store.payments {
		payments = append(payments, payment)
	}
	return payments, nil
}

func (v paymentView) Save(ctx context.Context, payment domain.Payment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	v.store.payments[payment.ID] = payment
	return nil
}
