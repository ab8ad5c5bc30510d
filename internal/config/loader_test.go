package config

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const baseYAML = `
http:
  listen_addr: "127.0.0.1:8080"
database:
  dsn: "colegio:%s@tcp(db:3306)/colegio?parseTime=true"
  password: "vault:secret/colegio#db_password"
session:
  secret: "0123456789abcdef0123456789abcdef"
csrf:
  key: "abcdefghijklmnopqrstuvwxyz012345"
site:
  name: "Colégio Elizângela Filomena"
admin:
  search_debounce: "250ms"
`

type fakeSecrets map[string]string

func (f fakeSecrets) GetKV(_ context.Context, path, key string, _ time.Duration) (string, error) {
	v, ok := f[path+"#"+key]
	if !ok {
		return "", errors.New("missing secret")
	}
	return v, nil
}

func writeRoot(t *testing.T, yaml string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "conf"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestLoadResolvesVaultAndDefaults(t *testing.T) {
	root := writeRoot(t, baseYAML)

	cfg, err := Load(context.Background(), Options{
		Root:    root,
		Secrets: fakeSecrets{"secret/colegio#db_password": "s3cret"},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, want := cfg.Database.ResolvedDSN(), "colegio:s3cret@tcp(db:3306)/colegio?parseTime=true"; got != want {
		t.Errorf("dsn = %q, want %q", got, want)
	}
	if cfg.Admin.SearchDebounce != 250*time.Millisecond {
		t.Errorf("search_debounce = %v", cfg.Admin.SearchDebounce)
	}
	if cfg.Site.NewsLimit != 6 {
		t.Errorf("news_limit default = %d, want 6", cfg.Site.NewsLimit)
	}
	if cfg.Session.TTL != 8*time.Hour {
		t.Errorf("session ttl default = %v", cfg.Session.TTL)
	}
	if cfg.Logging.Dir != filepath.Join(root, "logs") {
		t.Errorf("logging dir = %q", cfg.Logging.Dir)
	}
	if Get() != cfg {
		t.Error("Get must return the last loaded config")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	root := writeRoot(t, baseYAML)
	t.Setenv("COLEGIO_HTTP__LISTEN_ADDR", "0.0.0.0:9090")

	cfg, err := Load(context.Background(), Options{
		Root:    root,
		Secrets: fakeSecrets{"secret/colegio#db_password": "x"},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.ListenAddr != "0.0.0.0:9090" {
		t.Errorf("listen_addr = %q", cfg.HTTP.ListenAddr)
	}
}

func TestLoadVaultWithoutSource(t *testing.T) {
	root := writeRoot(t, baseYAML)

	_, err := Load(context.Background(), Options{Root: root})
	if !errors.Is(err, ErrNoSecretSource) {
		t.Fatalf("err = %v, want ErrNoSecretSource", err)
	}
}

func TestLoadValidationFails(t *testing.T) {
	root := writeRoot(t, `
http:
  listen_addr: "not an address"
database:
  dsn: "x"
session:
  secret: "short"
csrf:
  key: "abcdefghijklmnopqrstuvwxyz012345"
site:
  name: "x"
`)
	if _, err := Load(context.Background(), Options{Root: root}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSessionCookieKeyIsSeparate(t *testing.T) {
	secret := "0123456789abcdef0123456789abcdef"

	derived := Session{Secret: secret}.CookieHashKey()
	if bytes.Equal(derived, []byte(secret)) {
		t.Fatal("derived cookie key equals the session secret")
	}
	if len(derived) != 32 {
		t.Fatalf("derived key length = %d, want 32", len(derived))
	}
	if again := (Session{Secret: secret}).CookieHashKey(); !bytes.Equal(derived, again) {
		t.Fatal("derived key is not stable")
	}
	if other := (Session{Secret: secret + "x"}).CookieHashKey(); bytes.Equal(derived, other) {
		t.Fatal("different secrets derived the same key")
	}

	explicit := "fedcba9876543210fedcba9876543210"
	if got := (Session{Secret: secret, CookieKey: explicit}).CookieHashKey(); string(got) != explicit {
		t.Fatalf("explicit key = %q", got)
	}
	if got := (Session{Secret: secret, CookieKey: secret}).CookieHashKey(); !bytes.Equal(got, derived) {
		t.Fatal("cookie_key equal to secret was used as is")
	}
}
