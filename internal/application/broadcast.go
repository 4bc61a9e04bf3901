package application

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
	"github.com/sergeyzhinskiy/telegramvpnbot/internal/ports"
)

const (
	defaultBroadcastWorkers = 8
	progressEvery           = 10
)

// BroadcastReport accounts for one run: Sent + Failed == Total once the run
// finishes, even when cancelled mid-way.
type BroadcastReport struct {
	Sent   int64
	Failed int64
	Total  int64
}

func (r BroadcastReport) Completed() int64 {
	return r.Sent + r.Failed
}

// BroadcastDispatcher fans one message out to every known account with
// bounded concurrency, one attempt per recipient, no retries.
type BroadcastDispatcher struct {
	accounts ports.AccountRepository
	notifier ports.Notifier
	workers  int
	log      *slog.Logger
}

func NewBroadcastDispatcher(accounts ports.AccountRepository, notifier ports.Notifier, workers int, log *slog.Logger) *BroadcastDispatcher {
	if workers <= 0 {
		workers = defaultBroadcastWorkers
	}
	if log == nil {
		log = slog.Default()
	}

	return &BroadcastDispatcher{accounts: accounts, notifier: notifier, workers: workers, log: log}
}

// BroadcastAll delivers text to the full known account set.
func (d *BroadcastDispatcher) BroadcastAll(ctx context.Context, sender domain.AccountID, text string, onProgress func(BroadcastReport)) (BroadcastReport, error) {
	accounts, err := d.accounts.List(ctx)
	if err != nil {
		return BroadcastReport{}, err
	}

	ids := make([]domain.AccountID, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, account.ID)
	}

	return d.Broadcast(ctx, sender, text, ids, onProgress)
}

// Broadcast delivers text to every listed account except the sender.
// onProgress, if non-nil, fires after every tenth completed attempt.
// Cancelling ctx stops handing out new recipients; in-flight deliveries
// finish and are counted, so the final report still partitions cleanly.
func (d *BroadcastDispatcher) Broadcast(ctx context.Context, sender domain.AccountID, text string, accountIDs []domain.AccountID, onProgress func(BroadcastReport)) (BroadcastReport, error) {
	recipients := make([]domain.AccountID, 0, len(accountIDs))
	for _, id := range accountIDs {
		if id == sender {
			continue
		}
		recipients = append(recipients, id)
	}

	total := int64(len(recipients))
	var sent, failed, completed atomic.Int64

	jobs := make(chan domain.AccountID)
	var wg sync.WaitGroup
	for range d.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for recipient := range jobs {
				if err := d.notifier.Send(ctx, recipient, text); err != nil {
					d.log.Warn("broadcast delivery failed", "recipient", recipient, "error", err)
					failed.Add(1)
				} else {
					sent.Add(1)
				}

				done := completed.Add(1)
				if onProgress != nil && done%progressEvery == 0 {
					onProgress(BroadcastReport{Sent: sent.Load(), Failed: failed.Load(), Total: total})
				}
			}
		}()
	}

feed:
	for _, recipient := range recipients {
		select {
		case jobs <- recipient:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	report := BroadcastReport{Sent: sent.Load(), Failed: failed.Load(), Total: total}
	if err := ctx.Err(); err != nil {
		// Cancelled runs report what was attempted before the stop.
		report.Total = report.Completed()
		return report, err
	}
	return report, nil
}
