// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. `conf/global.yaml`.
  2. Optional `conf/.env` file, exported into the process environment.
  3. Environment variables prefixed `COLEGIO_`, where `__` maps to “.”
     (e.g., `COLEGIO_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, every string that starts with `vault:` is swapped for the
secret it names, the tree is unmarshalled into strongly-typed structs,
defaults are filled, the result is validated, and cached in an
`atomic.Pointer` for lock-free reads.

Instrumentation
---------------
  • DEBUG spans: root discovery, YAML read, env overlay.
  • ERROR spans: YAML parse, env overlay, secret, unmarshal, validation.
  • INFO  span:  final “config loaded” with key highlights.
  • Logs use the global sugared logger (`zap.S()`).  The commands install a
    stderr logger before Load; the file logger replaces it afterwards.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix   = "COLEGIO_"
	vaultPrefix = "vault:"
	secretTTL   = 10 * time.Minute
)

var current atomic.Pointer[Config]

// SecretSource resolves one key of a KV secret.  *vault.Client satisfies it.
type SecretSource interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

// Options customises Load.  The zero value discovers the root and refuses
// `vault:` references.
type Options struct {
	Root    string
	Secrets SecretSource
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves COLEGIO_ROOT or climbs directories until
// conf/global.yaml is found.
func rootDir() string {
	if r := os.Getenv("COLEGIO_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads YAML, .env, env overrides, resolves secrets, validates, and
// caches Config.
func Load(ctx context.Context, opts Options) (*Config, error) {
	root := opts.Root
	if root == "" {
		root = rootDir()
	}
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, k, opts.Secrets); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	applyDefaults(&cfg)

	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// Get returns the most recently loaded Config, or nil before Load.
func Get() *Config { return current.Load() }

/*──────────────────────────── helpers ─────────────────────────────────────*/

// ErrNoSecretSource is returned when the tree holds a `vault:` reference but
// no SecretSource was supplied.
var ErrNoSecretSource = errors.New("config references vault but no secret source is configured")

// resolveSecrets replaces every `vault:<path>#<key>` string in k.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, src SecretSource) error {
	for key, val := range k.All() {
		s, ok := val.(string)
		if !ok || !strings.HasPrefix(s, vaultPrefix) {
			continue
		}
		if src == nil {
			return fmt.Errorf("%s: %w", key, ErrNoSecretSource)
		}
		path, field, ok := strings.Cut(strings.TrimPrefix(s, vaultPrefix), "#")
		if !ok || path == "" || field == "" {
			return fmt.Errorf("%s: malformed vault reference %q", key, s)
		}
		secret, err := src.GetKV(ctx, path, field, secretTTL)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := k.Set(key, secret); err != nil {
			return err
		}
	}
	return nil
}

// applyDefaults fills zero values that have a sensible default.
func applyDefaults(c *Config) {
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 15
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "colegio_session"
	}
	if c.Session.Issuer == "" {
		c.Session.Issuer = "colegio-backoffice"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 8 * time.Hour
	}
	if c.Admin.SearchDebounce == 0 {
		c.Admin.SearchDebounce = 300 * time.Millisecond
	}
	if c.Site.NewsLimit == 0 {
		c.Site.NewsLimit = 6
	}
	if c.Forms.MaxAge == 0 {
		c.Forms.MaxAge = 2 * time.Hour
	}
	if c.Notify.QueueSize == 0 {
		c.Notify.QueueSize = 64
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = filepath.Join(c.Paths.Root, "logs")
	}
}
