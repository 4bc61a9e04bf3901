package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/adapters/notify/telegram"
	"github.com/sergeyzhinskiy/telegramvpnbot/internal/adapters/provision/outline"
	statsadapter "github.com/sergeyzhinskiy/telegramvpnbot/internal/adapters/render/statsview"
	tomlrepo "github.com/sergeyzhinskiy/telegramvpnbot/internal/adapters/repo/toml"
	secretstore "github.com/sergeyzhinskiy/telegramvpnbot/internal/adapters/secrets/file"
	"github.com/sergeyzhinskiy/telegramvpnbot/internal/adapters/settlement"
	"github.com/sergeyzhinskiy/telegramvpnbot/internal/application"
	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
	"github.com/sergeyzhinskiy/telegramvpnbot/internal/ports"
)

const botTokenSecretKey = "bot-token"

type app struct {
	ledger        *application.Ledger
	keys          *application.KeyService
	payments      *application.PaymentTracker
	orchestrator  *application.PurchaseOrchestrator
	broadcaster   *application.BroadcastDispatcher
	stats         *application.StatsService
	secretStore   ports.SecretStore
	statsRenderer func(application.Stats, statsadapter.RenderOptions) (string, error)
	now           func() time.Time
}

func wireApp() (*app, error) {
	v := viper.New()
	v.SetDefault("settlement.probability", settlement.DefaultSettleProbability)
	v.SetDefault("broadcast.workers", 8)

	repo, err := tomlrepo.NewRepository(v)
	if err != nil {
		return nil, fmt.Errorf("wire state repository: %w", err)
	}

	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}

	secretStore, err := secretstore.DefaultStore()
	if err != nil {
		return nil, fmt.Errorf("wire secret store: %w", err)
	}

	log := slog.Default()
	clock := ports.SystemClock{}
	notifier := resolveNotifier(secretStore, log)
	provisioner := outline.NewClient(cfg.DataLimitBytes)
	probe := settlement.NewOracle(v.GetFloat64("settlement.probability"))

	ledger := application.NewLedger(repo.Accounts(), notifier, cfg, clock, log)
	keys := application.NewKeyService(repo.Keys(), provisioner, cfg, log)
	payments := application.NewPaymentTracker(repo.Payments(), probe, clock)
	orchestrator := application.NewPurchaseOrchestrator(ledger, keys, payments, provisioner, notifier, cfg, clock, log)
	broadcaster := application.NewBroadcastDispatcher(repo.Accounts(), notifier, v.GetInt("broadcast.workers"), log)
	stats := application.NewStatsService(repo.Accounts(), keys, repo.Payments(), clock)

	return &app{
		ledger:        ledger,
		keys:          keys,
		payments:      payments,
		orchestrator:  orchestrator,
		broadcaster:   broadcaster,
		stats:         stats,
		secretStore:   secretStore,
		statsRenderer: statsadapter.Render,
		now:           time.Now,
	}, nil
}

// loadConfig starts from the default catalog and overlays every region the
// config file declares, known or new. Validation failures are fatal here,
// never at request time.
func loadConfig(v *viper.Viper) (domain.Config, error) {
	cfg := domain.DefaultConfig()

	for name := range v.GetStringMap("regions") {
		code := domain.RegionCode(strings.ToUpper(name))
		region, ok := cfg.Regions[code]
		if !ok {
			region = domain.Region{Code: code, KeyPrefix: string(code)}
		}

		prefix := "regions." + name
		if apiURL := v.GetString(prefix + ".api_url"); apiURL != "" {
			region.APIURL = apiURL
		}
		if keyPrefix := v.GetString(prefix + ".key_prefix"); keyPrefix != "" {
			region.KeyPrefix = keyPrefix
		}
		if certFile := v.GetString(prefix + ".cert_file"); certFile != "" {
			pem, err := os.ReadFile(certFile)
			if err != nil {
				return domain.Config{}, fmt.Errorf("read region %s certificate: %w", code, err)
			}
			region.CertPEM = string(pem)
		}
		cfg.Regions[code] = region
	}

	if err := cfg.Validate(); err != nil {
		return domain.Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// resolveNotifier prefers a live Telegram bot, looking for the token in the
// environment and then the secret store. Without a token, deliveries land in
// the log so every other command still works.
func resolveNotifier(secrets ports.SecretStore, log *slog.Logger) ports.Notifier {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		stored, err := secrets.Get(context.Background(), botTokenSecretKey)
		if err != nil {
			if !errors.Is(err, secretstore.ErrNotFound) {
				log.Warn("read bot token from secret store", "error", err)
			}
			return logNotifier{log: log}
		}
		token = stored
	}

	notifier, err := telegram.New(token)
	if err != nil {
		log.Warn("telegram bot unavailable, deliveries go to the log", "error", err)
		return logNotifier{log: log}
	}
	return notifier
}

// logNotifier records deliveries instead of sending them.
type logNotifier struct {
	log *slog.Logger
}

func (n logNotifier) Send(_ context.Context, to domain.AccountID, text string) error {
	n.log.Info("notification", "to", to, "text", text)
	return nil
}
