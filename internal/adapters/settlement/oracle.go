// Package settlement provides the stand-in settlement oracle used until a
// real payment processor is wired in.
package settlement

import (
	"context"
	"math/rand/v2"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
	"github.com/sergeyzhinskiy/telegramvpnbot/internal/ports"
)

const DefaultSettleProbability = 0.8

// Oracle reports a payment as settled with fixed probability per probe.
// Repeated probes of the same payment are independent draws.
type Oracle struct {
	Probability float64

	// randFloat is swapped in tests.
	randFloat func() float64
}

var _ ports.SettlementProbe = (*Oracle)(nil)

func NewOracle(probability float64) *Oracle {
	if probability <= 0 || probability > 1 {
		probability = DefaultSettleProbability
	}
	return &Oracle{Probability: probability, randFloat: rand.Float64}
}

func (o *Oracle) Probe(_ context.Context, _ domain.PaymentID) bool {
	return o.randFloat() < o.Probability
}
