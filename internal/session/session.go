// internal/session/session.go
//
// Session and flash cookies.
//
// Context
//   The admin session is a signed token (see internal/auth) carried in an
//   HttpOnly cookie.  This package owns the cookie mechanics: name, path,
//   Secure and SameSite flags, expiry, and clearing.
//
//   Flash messages are the server-side rendition of a toast: a handler
//   stores one short message before redirecting and the next rendered page
//   pops it.  The flash cookie is HMAC-signed with gorilla/securecookie so a
//   client cannot inject arbitrary text into the banner.
//
//------------------------------------------------------------------------------

package session

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

const (
	flashCookie = "colegio_flash"
	flashMaxAge = 5 * 60 // seconds
)

// Kind selects the toast colour.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Flash is one toast message.
type Flash struct {
	Kind    Kind
	Message string
}

// Options configures the cookies.  HashKey signs flash cookies and should be
// at least 32 bytes.
type Options struct {
	CookieName string
	Secure     bool
	HashKey    []byte
}

// Manager sets and reads the session and flash cookies.
type Manager struct {
	opts  Options
	codec *securecookie.SecureCookie
}

// New returns a Manager.
func New(opts Options) *Manager {
	codec := securecookie.New(opts.HashKey, nil)
	codec.MaxAge(flashMaxAge)
	return &Manager{opts: opts, codec: codec}
}

/*──────────────────────────── session token ───────────────────────────────*/

// SetToken stores the signed session token until exp.
func (m *Manager) SetToken(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
}

// ClearToken deletes the session cookie.
func (m *Manager) ClearToken(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Token returns the raw session token, if any.
func (m *Manager) Token(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.opts.CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

/*──────────────────────────────── flash ───────────────────────────────────*/

// SetFlash queues one toast for the next rendered page.  A later call
// replaces an earlier one.
func (m *Manager) SetFlash(w http.ResponseWriter, kind Kind, msg string) {
	enc, err := m.codec.Encode(flashCookie, Flash{Kind: kind, Message: msg})
	if err != nil {
		zap.S().Warnw("flash encode failed", "err", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    enc,
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlash returns the pending toast and clears it.  Missing, expired, or
// tampered cookies yield nil.
func (m *Manager) PopFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	var f Flash
	if err := m.codec.Decode(flashCookie, c.Value, &f); err != nil {
		return nil
	}
	return &f
}
