package vault

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kenatst/docgen/internal/storage"
)

const (
	masterSecretBytes = 32
	// fallbackSecretKey is the key-value slot used when the key file
	// location is not writable and the insecure fallback is allowed.
	fallbackSecretKey = "docgen_master_key_v1_fallback"
)

var (
	errMissingKeyPath = errors.New("vault: key path is required")
	errMissingStore   = errors.New("vault: key-value store is required")
	// ErrSecureStoreUnavailable signals that the key file cannot be used
	// and the insecure fallback is disabled. This is the one hard failure
	// of the storage stack: degrading silently would drop the at-rest
	// protection without anyone noticing.
	ErrSecureStoreUnavailable = errors.New("vault: secure key store unavailable and insecure fallback disabled")
)

// KeystoreConfig describes master-secret bootstrap dependencies.
type KeystoreConfig struct {
	// KeyPath is the location of the 0600 key file.
	KeyPath string
	// AllowInsecureFallback permits storing the master secret in the
	// ordinary key-value store when the key file is unusable. Explicit
	// and audited; never inferred from a build mode.
	AllowInsecureFallback bool
	Store                 *storage.Store
	Logger                *zap.Logger
}

// Keystore owns the master secret: a 32-byte random value, hex-encoded,
// generated once and persisted in the key file.
type Keystore struct {
	keyPath       string
	allowFallback bool
	store         *storage.Store
	logger        *zap.Logger

	mu       sync.Mutex
	cached   string
	warnOnce sync.Once
}

// NewKeystore constructs the keystore.
func NewKeystore(cfg KeystoreConfig) (*Keystore, error) {
	if strings.TrimSpace(cfg.KeyPath) == "" {
		return nil, errMissingKeyPath
	}
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Keystore{
		keyPath:       cfg.KeyPath,
		allowFallback: cfg.AllowInsecureFallback,
		store:         cfg.Store,
		logger:        logger,
	}, nil
}

// MasterSecret returns the persisted master secret, creating it on first
// use. Resolution order: key file, then fallback slot (migrated back to the
// key file when possible), then a freshly generated secret.
func (k *Keystore) MasterSecret(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.cached != "" {
		return k.cached, nil
	}

	existing, err := k.readKeyFile()
	if err != nil {
		if !k.allowFallback {
			return "", fmt.Errorf("%w: %v", ErrSecureStoreUnavailable, err)
		}
		k.warnInsecureFallback("key file unreadable")
	}
	if existing != "" {
		k.cached = existing
		return existing, nil
	}

	fallback, found, err := k.store.Get(ctx, fallbackSecretKey)
	if err != nil {
		return "", fmt.Errorf("vault: fallback lookup failed: %w", err)
	}
	if found && fallback != "" {
		if !k.allowFallback {
			// A previous build left the secret in the insecure slot.
			// Move it into the key file or refuse to run.
			if err := k.writeKeyFile(fallback); err != nil {
				return "", fmt.Errorf("%w: migration failed: %v", ErrSecureStoreUnavailable, err)
			}
			if err := k.store.Delete(ctx, fallbackSecretKey); err != nil {
				k.logger.Warn("fallback secret cleanup failed", zap.Error(err))
			}
		} else {
			k.warnInsecureFallback("using fallback key slot")
		}
		k.cached = fallback
		return fallback, nil
	}

	next, err := generateSecret()
	if err != nil {
		return "", err
	}

	if err := k.writeKeyFile(next); err != nil {
		if !k.allowFallback {
			return "", fmt.Errorf("%w: %v", ErrSecureStoreUnavailable, err)
		}
		k.warnInsecureFallback("storing key in key-value store")
		if err := k.store.Set(ctx, fallbackSecretKey, next); err != nil {
			return "", fmt.Errorf("vault: fallback persist failed: %w", err)
		}
	}

	k.cached = next
	return next, nil
}

func (k *Keystore) readKeyFile() (string, error) {
	raw, err := os.ReadFile(k.keyPath)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func (k *Keystore) writeKeyFile(secret string) error {
	dir := filepath.Dir(k.keyPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(k.keyPath, []byte(secret), 0o600)
}

func (k *Keystore) warnInsecureFallback(reason string) {
	k.warnOnce.Do(func() {
		k.logger.Warn("insecure master-key fallback enabled, data at rest protection is reduced",
			zap.String("reason", reason))
	})
}

func generateSecret() (string, error) {
	buf := make([]byte, masterSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("vault: secure random generator unavailable: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
