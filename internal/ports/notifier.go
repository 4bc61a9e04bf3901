package ports

import (
	"context"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
)

// Notifier delivers an out-of-band message to an account through the
// messaging transport. Send failures are the caller's to log; core flows
// never roll back on them.
type Notifier interface {
	Send(ctx context.Context, to domain.AccountID, text string) error
}
