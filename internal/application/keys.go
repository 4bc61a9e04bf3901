package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
	"github.com/sergeyzhinskiy/telegramvpnbot/internal/ports"
)

// KeyService owns issued-key records and the active/expired computation.
type KeyService struct {
	keys        ports.KeyRepository
	provisioner ports.Provisioner
	cfg         domain.Config
	log         *slog.Logger
}

func NewKeyService(keys ports.KeyRepository, provisioner ports.Provisioner, cfg domain.Config, log *slog.Logger) *KeyService {
	if log == nil {
		log = slog.Default()
	}

	return &KeyService{keys: keys, provisioner: provisioner, cfg: cfg, log: log}
}

func (s *KeyService) Record(ctx context.Context, key domain.Key) error {
	if err := s.keys.Save(ctx, key); err != nil {
		return fmt.Errorf("save key: %w", err)
	}
	return nil
}

// ActiveFor returns the owner's unexpired keys sorted ascending by expiry,
// earliest-expiring first. Expiry is evaluated against the caller's now.
func (s *KeyService) ActiveFor(ctx context.Context, owner domain.AccountID, now time.Time) ([]domain.Key, error) {
	keys, err := s.keys.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list keys for %s: %w", owner, err)
	}

	active := make([]domain.Key, 0, len(keys))
	for _, key := range keys {
		if key.Active(now) {
			active = append(active, key)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].ExpiresAt.Before(active[j].ExpiresAt)
	})

	return active, nil
}

func (s *KeyService) CountActive(ctx context.Context, now time.Time) (int, error) {
	keys, err := s.keys.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list keys: %w", err)
	}

	count := 0
	for _, key := range keys {
		if key.Active(now) {
			count++
		}
	}
	return count, nil
}

func (s *KeyService) CountAll(ctx context.Context) (int, error) {
	keys, err := s.keys.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list keys: %w", err)
	}
	return len(keys), nil
}

// Revoke deletes a key locally and best-effort on the provider side.
// Provider failures are logged, not returned; the local record always goes.
func (s *KeyService) Revoke(ctx context.Context, token string) error {
	key, err := s.keys.GetByToken(ctx, token)
	if err != nil {
		return fmt.Errorf("get key: %w", err)
	}

	if key.ProviderID != "" && s.provisioner != nil {
		region := s.cfg.Region(key.Region)
		if err := s.provisioner.DeleteKey(ctx, region, key.ProviderID); err != nil {
			s.log.Warn("provider key delete failed", "region", key.Region, "provider_id", key.ProviderID, "error", err)
		}
	}

	if err := s.keys.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete key: %w", err)
	}
	return nil
}
