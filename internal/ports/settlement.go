package ports

import (
	"context"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
)

// SettlementProbe answers whether a pending payment has cleared. The
// reference implementation is a fixed-probability draw; real deployments
// substitute a gateway-polling probe.
type SettlementProbe interface {
	Probe(ctx context.Context, id domain.PaymentID) bool
}
