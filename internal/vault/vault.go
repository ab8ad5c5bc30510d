// internal/vault/vault.go
//
// Vault client wrapper.
//
// Context
// -------
//   - Concurrency-safe wrapper around the HashiCorp Vault Go SDK.
//   - Background token renewal, a KV-v2 getter, and per-key caching.
//   - `*Client` satisfies `config.SecretSource`, so `vault:<path>#<key>`
//     references in conf/global.yaml resolve through it at boot.
//
// Workflow
// --------
//  1. cli, err := vault.New(ctx, zap.S())          // during boot.
//  2. pw,  err := cli.GetKV(ctx, path, key, ttl)   // config loader, CLI.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

//
// SECTION 1.  Public façade
//

// KV is the slice of the Vault SDK the client needs.  Tests swap it out.
type KV interface {
	Get(ctx context.Context, mount, path string) (map[string]any, error)
}

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	api *vault.Client
	kv  KV
	log *zap.SugaredLogger

	cacheMu sync.RWMutex
	cache   map[string]cached // path#key → value + expiry.
}

type cached struct {
	val string
	exp time.Time
}

// ErrEmptyRef is returned when GetKV receives an empty path or key.
var ErrEmptyRef = errors.New("vault: secret path and key must be non-empty")

// Enabled reports whether VAULT_ADDR is set.  Boot skips the client otherwise.
func Enabled() bool { return os.Getenv("VAULT_ADDR") != "" }

// New constructs a Vault client and starts the token-renewal loop, which
// stops with ctx.
//
// Environment
// -----------
//   - VAULT_ADDR   scheme and host of the Vault server.
//   - VAULT_TOKEN  initial token (falls back to ~/.vault-token).
func New(ctx context.Context, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := &Client{
		api:   apiCli,
		kv:    sdkKV{apiCli},
		log:   log,
		cache: make(map[string]cached),
	}
	go c.renewLoop(ctx)
	return c, nil
}

// NewWithKV builds a client over an arbitrary KV backend without token
// renewal.
func NewWithKV(kv KV, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{kv: kv, log: log, cache: make(map[string]cached)}
}

// GetKV fetches a single key from a KV-v2 secret.  If ttl > 0 the value is
// cached for that long.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", ErrEmptyRef
	}
	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		cv, ok := c.cache[canonical]
		c.cacheMu.RUnlock()
		if ok && time.Now().Before(cv.exp) {
			return cv.val, nil
		}
	}

	mount, rel := splitMount(secretPath)
	data, err := c.kv.Get(ctx, mount, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s is not a string", canonical)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	c.log.Debugw("vault secret fetched", "path", secretPath, "key", key)
	return sval, nil
}

//
// SECTION 2.  SDK adapter
//

type sdkKV struct{ api *vault.Client }

func (s sdkKV) Get(ctx context.Context, mount, path string) (map[string]any, error) {
	sec, err := s.api.KVv2(mount).Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return sec.Data, nil
}

//
// SECTION 3.  Background token renewal
//

func (c *Client) renewLoop(ctx context.Context) {
	for ctx.Err() == nil {
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			c.log.Warnw("vault token renew-self failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			c.log.Infow("vault token not renewable, sleeping", "for", time.Hour)
			backoff(ctx, time.Hour)
			continue
		}

		watcher, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
			Secret: sec,
		})
		if err != nil {
			c.log.Warnw("vault watcher init failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}
		c.watch(ctx, watcher)
	}
}

// watch blocks until the watcher finishes or ctx ends.
func (c *Client) watch(ctx context.Context, w *vault.LifetimeWatcher) {
	go w.Start()
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				c.log.Warnw("vault token renewal stopped", "err", err)
			}
			backoff(ctx, 15*time.Second)
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				c.log.Debugw("vault token renewed", "ttl_s", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

//
// SECTION 4.  Helpers
//

func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return
}

func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
