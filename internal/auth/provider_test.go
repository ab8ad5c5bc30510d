package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/session"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi/tabletest"
)

const secret = "0123456789abcdef0123456789abcdef"

func newProvider(t *testing.T) (*Provider, *tabletest.Memory[school.AdminUser]) {
	t.Helper()
	hash, err := HashPassword("segredo123")
	if err != nil {
		t.Fatal(err)
	}
	users := tabletest.NewMemory[school.AdminUser]()
	users.Seed(tableapi.Values{"email": "secretaria@colegio-ef.ao", "password_hash": hash})

	cookies := session.New(session.Options{CookieName: "colegio_session", HashKey: []byte(secret)})
	p := NewProvider(users, cookies, Options{Secret: secret, Issuer: "colegio-backoffice", TTL: time.Hour})
	return p, users
}

func withCookies(rec *httptest.ResponseRecorder, target string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestSignInSuccess(t *testing.T) {
	p, users := newProvider(t)

	s, err := p.SignIn(context.Background(), "  Secretaria@Colegio-EF.ao ", "segredo123")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if s.User.Email != "secretaria@colegio-ef.ao" || s.Token == "" {
		t.Fatalf("session = %+v", s)
	}
	if s.User.Name() != "secretaria" {
		t.Errorf("Name = %q", s.User.Name())
	}
	if !users.Rows()[0].LastSignInAt.Valid {
		t.Error("last_sign_in_at not stamped")
	}
}

func TestSignInRejects(t *testing.T) {
	p, _ := newProvider(t)
	ctx := context.Background()

	for _, tc := range []struct{ email, pw string }{
		{"secretaria@colegio-ef.ao", "errada"},
		{"ninguem@colegio-ef.ao", "segredo123"},
	} {
		_, err := p.SignIn(ctx, tc.email, tc.pw)
		var ae *AuthError
		if !errors.As(err, &ae) || !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s: err = %v", tc.email, err)
			continue
		}
		if ae.Message == "" {
			t.Errorf("%s: empty user message", tc.email)
		}
	}
}

func TestSignInGatewayFailure(t *testing.T) {
	p, users := newProvider(t)
	users.Fail = errors.New("db down")

	_, err := p.SignIn(context.Background(), "secretaria@colegio-ef.ao", "segredo123")
	var ae *AuthError
	if !errors.As(err, &ae) || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v", err)
	}
}

func TestRequireSession(t *testing.T) {
	p, _ := newProvider(t)
	var seen User
	h := p.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CurrentUser(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// No cookie → login redirect.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != LoginPath {
		t.Fatalf("anonymous: %d %q", rec.Code, rec.Header().Get("Location"))
	}

	// Valid cookie → handler runs with the user attached.
	s, err := p.SignIn(context.Background(), "secretaria@colegio-ef.ao", "segredo123")
	if err != nil {
		t.Fatal(err)
	}
	set := httptest.NewRecorder()
	p.Establish(set, s)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, withCookies(set, "/admin"))
	if rec.Code != http.StatusOK || seen.Email != "secretaria@colegio-ef.ao" {
		t.Fatalf("signed in: %d user=%+v", rec.Code, seen)
	}
}

func TestSessionExpired(t *testing.T) {
	p, _ := newProvider(t)
	s, err := p.SignIn(context.Background(), "secretaria@colegio-ef.ao", "segredo123")
	if err != nil {
		t.Fatal(err)
	}
	set := httptest.NewRecorder()
	p.Establish(set, s)

	p.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	got, err := p.Session(withCookies(set, "/admin"))
	if got != nil || !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Session = %+v, %v", got, err)
	}

	missing, err := p.Session(httptest.NewRequest(http.MethodGet, "/admin", nil))
	if missing != nil || err != nil {
		t.Fatalf("missing cookie: %+v, %v", missing, err)
	}
}

func TestSignOutClearsCookie(t *testing.T) {
	p, _ := newProvider(t)
	rec := httptest.NewRecorder()
	p.SignOut(rec, httptest.NewRequest(http.MethodPost, "/admin/sair", nil))

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != LoginPath {
		t.Fatalf("SignOut: %d", rec.Code)
	}
	if c := rec.Result().Cookies(); len(c) != 1 || c[0].MaxAge >= 0 {
		t.Fatalf("cookie not cleared: %+v", c)
	}
}
