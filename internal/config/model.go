// internal/config/model.go
//
// Typed configuration model for the school site.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • `conf/global.yaml`                        – primary static file,
//   • optional `conf/.env`                      – dotenv values,
//   • `COLEGIO_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* validation, so the model never hands a
// Vault URI to the rest of the program.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"time"
)

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
	BaseURL    string `koanf:"base_url"    validate:"omitempty,url"`
	TrustProxy bool   `koanf:"trust_proxy"` // honour X-Forwarded-* and X-Real-IP
}

// Database holds the DSN template and its secret.
//
// The *template* (`DSN`) is kept in YAML so operators can tweak host, port,
// or flags without touching Vault.  It carries one `%s` verb that receives
// `Password`, which normally arrives as `vault:secret/colegio#db_password`.
type Database struct {
	DSN          string `koanf:"dsn"            validate:"required"`
	Password     string `koanf:"password"`
	MaxOpenConns int    `koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `koanf:"max_idle_conns" validate:"gte=0"`
}

// ResolvedDSN injects the password into the DSN template.
func (d Database) ResolvedDSN() string {
	return fmt.Sprintf(d.DSN, d.Password)
}

// Session controls the signed admin session cookie.  Secret signs the
// session token; CookieKey signs the flash cookies and, when empty, is
// derived from Secret.
type Session struct {
	Secret     string        `koanf:"secret"      validate:"required,min=32"`
	CookieKey  string        `koanf:"cookie_key"  validate:"omitempty,min=32"`
	Issuer     string        `koanf:"issuer"      validate:"required"`
	TTL        time.Duration `koanf:"ttl"         validate:"required"`
	CookieName string        `koanf:"cookie_name" validate:"required"`
	Secure     bool          `koanf:"secure"`
}

// CookieHashKey returns the flash-cookie signing key.  It never equals the
// token secret.
func (s Session) CookieHashKey() []byte {
	if s.CookieKey != "" && s.CookieKey != s.Secret {
		return []byte(s.CookieKey)
	}
	mac := hmac.New(sha256.New, []byte(s.Secret))
	mac.Write([]byte("colegio flash cookie"))
	return mac.Sum(nil)
}

// CSRF holds the gorilla/csrf authentication key (32 bytes).
type CSRF struct {
	Key            string   `koanf:"key"             validate:"required,len=32"`
	TrustedOrigins []string `koanf:"trusted_origins"`
}

// Admin tunes the back office list views.
type Admin struct {
	SearchDebounce time.Duration `koanf:"search_debounce" validate:"required"`
	ListLimit      int           `koanf:"list_limit"      validate:"gte=0"`
}

// Site tunes the public pages.
type Site struct {
	Name      string `koanf:"name"       validate:"required"`
	NewsLimit int    `koanf:"news_limit" validate:"gt=0"`
	ThemeDir  string `koanf:"theme_dir"`
}

// Forms tunes the public form fill-time check.
type Forms struct {
	MinFillTime time.Duration `koanf:"min_fill_time"`
	MaxAge      time.Duration `koanf:"max_age" validate:"required"`
}

// Notify configures the secretary notification e-mails.  An empty
// ResendAPIKey routes messages to the log instead.
type Notify struct {
	ResendAPIKey string `koanf:"resend_api_key"`
	From         string `koanf:"from" validate:"omitempty,email"`
	To           string `koanf:"to"   validate:"omitempty,email"`
	QueueSize    int    `koanf:"queue_size" validate:"gte=0"`
}

// Geo points at an optional GeoLite2-City database.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

// Logging controls the zap sinks.
type Logging struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // COLEGIO_ROOT or discovered parent
}

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Session  Session  `koanf:"session"`
	CSRF     CSRF     `koanf:"csrf"`
	Admin    Admin    `koanf:"admin"`
	Site     Site     `koanf:"site"`
	Forms    Forms    `koanf:"forms"`
	Notify   Notify   `koanf:"notify"`
	Geo      Geo      `koanf:"geo"`
	Logging  Logging  `koanf:"logging"`
	Paths    Paths    `koanf:"-"`
}
