package ports

import (
	"context"
	"time"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
)

// ProvisionedKey is what a provider endpoint hands back on success.
type ProvisionedKey struct {
	ID        string
	AccessKey string
	ExpiresAt time.Time
}

// Provisioner talks to a regional VPN provider. Any failure is recoverable:
// the caller degrades to local key synthesis instead of failing the purchase.
type Provisioner interface {
	CreateKey(ctx context.Context, region domain.Region, days int) (ProvisionedKey, error)
	DeleteKey(ctx context.Context, region domain.Region, keyID string) error
}
