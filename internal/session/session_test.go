package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newManager() *Manager {
	return New(Options{CookieName: "colegio_session", HashKey: []byte("0123456789abcdef0123456789abcdef")})
}

// carry copies the cookies set on rec into a fresh request.
func carry(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			r.AddCookie(c)
		}
	}
	return r
}

func TestTokenRoundTrip(t *testing.T) {
	m := newManager()
	rec := httptest.NewRecorder()
	m.SetToken(rec, "tok", time.Now().Add(time.Hour))

	got, ok := m.Token(carry(rec))
	if !ok || got != "tok" {
		t.Fatalf("Token = %q, %v", got, ok)
	}

	rec = httptest.NewRecorder()
	m.ClearToken(rec)
	if c := rec.Result().Cookies()[0]; c.MaxAge >= 0 {
		t.Fatalf("ClearToken cookie = %+v", c)
	}
}

func TestFlashPopsOnce(t *testing.T) {
	m := newManager()
	rec := httptest.NewRecorder()
	m.SetFlash(rec, KindSuccess, "Inscrição aprovada com sucesso!")

	req := carry(rec)
	rec2 := httptest.NewRecorder()
	f := m.PopFlash(rec2, req)
	if f == nil || f.Kind != KindSuccess || f.Message != "Inscrição aprovada com sucesso!" {
		t.Fatalf("PopFlash = %+v", f)
	}
	if c := rec2.Result().Cookies(); len(c) == 0 || c[0].MaxAge >= 0 {
		t.Fatal("PopFlash must clear the cookie")
	}
}

func TestFlashRejectsTampering(t *testing.T) {
	m := newManager()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: flashCookie, Value: "forged"})
	if f := m.PopFlash(httptest.NewRecorder(), r); f != nil {
		t.Fatalf("tampered flash accepted: %+v", f)
	}
}
