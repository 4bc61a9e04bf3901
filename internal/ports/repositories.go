package ports

import (
	"context"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
)

type AccountRepository interface {
	GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Save(ctx context.Context, account domain.Account) error
}

type KeyRepository interface {
	GetByToken(ctx context.Context, token string) (domain.Key, error)
	ListByOwner(ctx context.Context, owner domain.AccountID) ([]domain.Key, error)
	List(ctx context.Context) ([]domain.Key, error)
	Save(ctx context.Context, key domain.Key) error
	Delete(ctx context.Context, token string) error
}

type PaymentRepository interface {
	GetByID(ctx context.Context, id domain.PaymentID) (domain.Payment, error)
	List(ctx context.Context) ([]domain.Payment, error)
	Save(ctx context.Context, payment domain.Payment) error
}
