// Package toml persists the full service state as one TOML snapshot file.
// Every write rewrites the snapshot atomically through a temp file rename,
// and a process-wide per-path lock serializes access across repository
// instances pointing at the same file.
package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
	"github.com/sergeyzhinskiy/telegramvpnbot/internal/ports"
)

const (
	configName      = "config"
	configType      = "toml"
	statePathKey    = "state.path"
	stateFileMode   = 0o600
	stateDirMode    = 0o700
	stateConfigDir  = ".vpnbot"
	stateConfigFile = "state.toml"
	tempFilePattern = ".state-*.toml.tmp"
)

type Repository struct {
	statePath string
	mu        *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, stateConfigDir, stateConfigFile)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, stateConfigDir))
	cfg.SetDefault(statePathKey, defaultPath)

	err = cfg.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	statePath := cfg.GetString(statePathKey)
	if statePath == "" {
		return nil, errors.New("state path is empty")
	}
	statePath, err = normalizeStatePath(statePath)
	if err != nil {
		return nil, err
	}

	return &Repository{statePath: statePath, mu: lockForPath(statePath)}, nil
}

func (r *Repository) Accounts() ports.AccountRepository { return accountRepo{r} }
func (r *Repository) Keys() ports.KeyRepository         { return keyRepo{r} }
func (r *Repository) Payments() ports.PaymentRepository { return paymentRepo{r} }

// read loads the snapshot under the read lock.
func (r *Repository) read(ctx context.Context) (fileSchema, error) {
	if err := ctx.Err(); err != nil {
		return fileSchema{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.readSchema()
}

// update applies fn to the snapshot and writes it back, all under the write
// lock.
func (r *Repository) update(ctx context.Context, fn func(*fileSchema) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	file.applyDefaults()

	if err := fn(&file); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.statePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read state file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode state file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.statePath), stateDirMode); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.statePath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}

	if err := tempFile.Chmod(stateFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp state file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tempName, r.statePath); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(r.statePath, stateFileMode); err != nil {
		return fmt.Errorf("chmod state file: %w", err)
	}

	return nil
}

func normalizeStatePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve state path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

type accountRepo struct{ repo *Repository }

var _ ports.AccountRepository = accountRepo{}

func (a accountRepo) GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	file, err := a.repo.read(ctx)
	if err != nil {
		return domain.Account{}, err
	}

	for _, entry := range file.Accounts {
		if entry.ID == string(id) {
			return fromAccountSchema(entry), nil
		}
	}

	return domain.Account{}, domain.ErrAccountNotFound
}

func (a accountRepo) List(ctx context.Context) ([]domain.Account, error) {
	file, err := a.repo.read(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(file.Accounts))
	for _, entry := range file.Accounts {
		accounts = append(accounts, fromAccountSchema(entry))
	}
	return accounts, nil
}

func (a accountRepo) Save(ctx context.Context, account domain.Account) error {
	return a.repo.update(ctx, func(file *fileSchema) error {
		encoded := toAccountSchema(account)
		for i := range file.Accounts {
			if file.Accounts[i].ID == encoded.ID {
				file.Accounts[i] = encoded
				return nil
			}
		}
		file.Accounts = append(file.Accounts, encoded)
		return nil
	})
}

type keyRepo struct{ repo *Repository }

var _ ports.KeyRepository = keyRepo{}

func (k keyRepo) GetByToken(ctx context.Context, token string) (domain.Key, error) {
	file, err := k.repo.read(ctx)
	if err != nil {
		return domain.Key{}, err
	}

	for _, entry := range file.Keys {
		if entry.Token == token {
			return fromKeySchema(entry), nil
		}
	}

	return domain.Key{}, domain.ErrKeyNotFound
}

func (k keyRepo) ListByOwner(ctx context.Context, owner domain.AccountID) ([]domain.Key, error) {
	file, err := k.repo.read(ctx)
	if err != nil {
		return nil, err
	}

	var keys []domain.Key
	for _, entry := range file.Keys {
		if entry.Owner == string(owner) {
			keys = append(keys, fromKeySchema(entry))
		}
	}
	return keys, nil
}

func (k keyRepo) List(ctx context.Context) ([]domain.Key, error) {
	file, err := k.repo.read(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]domain.Key, 0, len(file.Keys))
	for _, entry := range file.Keys {
		keys = append(keys, fromKeySchema(entry))
	}
	return keys, nil
}

func (k keyRepo) Save(ctx context.Context, key domain.Key) error {
	return k.repo.update(ctx, func(file *fileSchema) error {
		encoded := toKeySchema(key)
		for i := range file.Keys {
			if file.Keys[i].Token == encoded.Token {
				file.Keys[i] = encoded
				return nil
			}
		}
		file.Keys = append(file.Keys, encoded)
		return nil
	})
}

func (k keyRepo) Delete(ctx context.Context, token string) error {
	return k.repo.update(ctx, func(file *fileSchema) error {
		for i := range file.Keys {
			if file.Keys[i].Token == token {
				file.Keys = append(file.Keys[:i], file.Keys[i+1:]...)
				return nil
			}
		}
		return domain.ErrKeyNotFound
	})
}

type paymentRepo struct{ repo *Repository }

var _ ports.PaymentRepository = paymentRepo{}

func (p paymentRepo) GetByID(ctx context.Context, id domain.PaymentID) (domain.Payment, error) {
	file, err := p.repo.read(ctx)
	if err != nil {
		return domain.Payment{}, err
	}

	for _, entry := range file.Payments {
		if entry.ID == string(id) {
			return fromPaymentSchema(entry), nil
		}
	}

	return domain.Payment{}, domain.ErrPaymentNotFound
}

func (p paymentRepo) List(ctx context.Context) ([]domain.Payment, error) {
	file, err := p.repo.read(ctx)
	if err != nil {
		return nil, err
	}

	payments := make([]domain.Payment, 0, len(file.Payments))
	for _, entry := range file.Payments {
		payments = append(payments, fromPaymentSchema(entry))
	}
	return payments, nil
}

func (p paymentRepo) Save(ctx context.Context, payment domain.Payment) error {
	return p.repo.update(ctx, func(file *fileSchema) error {
		encoded := toPaymentSchema(payment)
		for i := range file.Payments {
			if file.Payments[i].ID == encoded.ID {
				file.Payments[i] = encoded
				return nil
			}
		}
		file.Payments = append(file.Payments, encoded)
		return nil
	})
}
