package application

import (
	"context"
	"sync"
	"time"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
	"github.com/sergeyzhinskiy/telegramvpnbot/internal/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[domain.AccountID]domain.Account
}

func newAccountRepo(accounts ...domain.Account) *inMemoryAccountRepo {
	repo := &inMemoryAccountRepo{accounts: map[domain.AccountID]domain.Account{}}
	for _, account := range accounts {
		repo.accounts[account.ID] = account
	}
	return repo
}

func (r *inMemoryAccountRepo) GetByID(_ context.Context, id domain.AccountID) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account, nil
}

func (r *inMemoryAccountRepo) List(_ context.Context) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		out = append(out, account)
	}
	return out, nil
}

func (r *inMemoryAccountRepo) Save(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.ID] = account
	return nil
}

type inMemoryKeyRepo struct {
	mu   sync.RWMutex
	keys map[string]domain.Key
}

func newKeyRepo() *inMemoryKeyRepo {
	return &inMemoryKeyRepo{keys: map[string]domain.Key{}}
}

func (r *inMemoryKeyRepo) GetByToken(_ context.Context, token string) (domain.Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.keys[token]
	if !ok {
		return domain.Key{}, domain.ErrKeyNotFound
	}
	return key, nil
}

func (r *inMemoryKeyRepo) ListByOwner(_ context.Context, owner domain.AccountID) ([]domain.Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Key
	for _, key := range r.keys {
		if key.Owner == owner {
			out = append(out, key)
		}
	}
	return out, nil
}

func (r *inMemoryKeyRepo) List(_ context.Context) ([]domain.Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Key, 0, len(r.keys))
	for _, key := range r.keys {
		out = append(out, key)
	}
	return out, nil
}

func (r *inMemoryKeyRepo) Save(_ context.Context, key domain.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[key.Token] = key
	return nil
}

func (r *inMemoryKeyRepo) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, token)
	return nil
}

type inMemoryPaymentRepo struct {
	mu       sync.RWMutex
	payments map[domain.PaymentID]domain.Payment
}

func newPaymentRepo() *inMemoryPaymentRepo {
	return &inMemoryPaymentRepo{payments: map[domain.PaymentID]domain.Payment{}}
}

func (r *inMemoryPaymentRepo) GetByID(_ context.Context, id domain.PaymentID) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payment, ok := r.payments[id]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return payment, nil
}

func (r *inMemoryPaymentRepo) List(_ context.Context) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Payment, 0, len(r.payments))
	for _, payment := range r.payments {
		out = append(out, payment)
	}
	return out, nil
}

func (r *inMemoryPaymentRepo) Save(_ context.Context, payment domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[payment.ID] = payment
	return nil
}

// recordingNotifier captures sends; failFor makes deliveries to the listed
// accounts fail.
type recordingNotifier struct {
	mu      sync.Mutex
	sends   []sentMessage
	failFor map[domain.AccountID]error
	failAll error
}

type sentMessage struct {
	To   domain.AccountID
	Text string
}

func (n *recordingNotifier) Send(_ context.Context, to domain.AccountID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failAll != nil {
		return n.failAll
	}
	if err, ok := n.failFor[to]; ok {
		return err
	}
	n.sends = append(n.sends, sentMessage{To: to, Text: text})
	return nil
}

func (n *recordingNotifier) sentTo(id domain.AccountID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, msg := range n.sends {
		if msg.To == id {
			out = append(out, msg.Text)
		}
	}
	return out
}

type fakeProvisioner struct {
	mu      sync.Mutex
	key     ports.ProvisionedKey
	err     error
	creates int
	deleted []string
}

func (p *fakeProvisioner) CreateKey(_ context.Context, _ domain.Region, _ int) (ports.ProvisionedKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creates++
	if p.err != nil {
		return ports.ProvisionedKey{}, p.err
	}
	return p.key, nil
}

func (p *fakeProvisioner) DeleteKey(_ context.Context, _ domain.Region, keyID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, keyID)
	return nil
}

type fixedProbe struct {
	settled bool
}

func (p fixedProbe) Probe(context.Context, domain.PaymentID) bool { return p.settled }
