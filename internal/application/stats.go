package application

import (
	"context"
	"fmt"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/ports"
)

type Stats struct {
	TotalAccounts          int
	NewAccountsToday       int
	ActiveKeys             int
	TotalKeys              int
	TotalPurchases         int
	PaymentsOpenedToday    int
	PaymentsCompletedToday int
	CompletedRevenue       int64
	OutstandingPayments    int
}

// StatsService aggregates the operator's service overview.
type StatsService struct {
	accounts ports.AccountRepository
	keys     *KeyService
	payments ports.PaymentRepository
	clock    ports.Clock
}

func NewStatsService(accounts ports.AccountRepository, keys *KeyService, payments ports.PaymentRepository, clock ports.Clock) *StatsService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &StatsService{accounts: accounts, keys: keys, payments: payments, clock: clock}
}

func (s *StatsService) Snapshot(ctx context.Context) (Stats, error) {
	now := s.clock.Now()
	year, month, day := now.Date()

	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list accounts: %w", err)
	}

	stats := Stats{TotalAccounts: len(accounts)}
	for _, account := range accounts {
		stats.TotalPurchases += account.Purchases
		ry, rm, rd := account.RegisteredAt.In(now.Location()).Date()
		if ry == year && rm == month && rd == day {
			stats.NewAccountsToday++
		}
	}

	if stats.ActiveKeys, err = s.keys.CountActive(ctx, now); err != nil {
		return Stats{}, err
	}
	if stats.TotalKeys, err = s.keys.CountAll(ctx); err != nil {
		return Stats{}, err
	}

	payments, err := s.payments.List(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list payments: %w", err)
	}
	for _, payment := range payments {
		oy, om, od := payment.OpenedAt.In(now.Location()).Date()
		if oy == year && om == month && od == day {
			stats.PaymentsOpenedToday++
		}
		if payment.Completed {
			stats.CompletedRevenue += payment.Amount
			cy, cm, cd := payment.CompletedAt.In(now.Location()).Date()
			if cy == year && cm == month && cd == day {
				stats.PaymentsCompletedToday++
			}
		} else {
			stats.OutstandingPayments++
		}
	}

	return stats, nil
}
