// internal/auth/provider.go
//
// Identity provider for the back office.
//
// Context
// -------
// Admin accounts live in `admin_users` (bcrypt hashes).  A successful sign-in
// issues an HS256 session token that the browser carries in an HttpOnly
// cookie; every admin route sits behind RequireSession.  There is no server
// side session store, so signing out only clears the cookie.
//
// Workflow
// --------
//   - SignIn       email + password → Session, or *AuthError.
//   - Establish    writes the session cookie.
//   - Session      reads and verifies the cookie.  Missing → nil, nil.
//   - RequireSession  chi middleware: no session → 303 to the login page.
//   - SignOut      clears the cookie and redirects to the login page.
//
// Notes
// -----
//   - Unknown e-mails still pay for one bcrypt comparison so response time
//     does not reveal which accounts exist.
//   - No retries.  A gateway failure comes back as *AuthError whose Message
//     is shown inline on the login form.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/logger"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/metrics"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/session"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
)

// LoginPath is where unauthenticated admin requests are sent.
const LoginPath = "/admin/login"

var (
	// ErrInvalidCredentials means the e-mail or password did not match.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrSessionExpired means the cookie was expired, tampered, or signed
	// for another issuer.
	ErrSessionExpired = errors.New("auth: session expired")
)

// AuthError is returned by SignIn.  Message is safe to show to the user.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return "auth: " + e.Err.Error() }
func (e *AuthError) Unwrap() error { return e.Err }

// Session is an authenticated principal plus its token.
type Session struct {
	User      User
	Token     string
	ExpiresAt time.Time
}

// Options configures token signing.
type Options struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Provider implements the session gateway over the admin_users table.
type Provider struct {
	users    tableapi.Gateway[school.AdminUser]
	cookies  *session.Manager
	opts     Options
	now      func() time.Time
	fakeHash []byte
}

// NewProvider wires a Provider.
func NewProvider(users tableapi.Gateway[school.AdminUser], cookies *session.Manager, opts Options) *Provider {
	fake, _ := bcrypt.GenerateFromPassword([]byte("colegio-placeholder"), bcrypt.MinCost)
	return &Provider{users: users, cookies: cookies, opts: opts, now: time.Now, fakeHash: fake}
}

// HashPassword returns the bcrypt hash stored in admin_users.
func HashPassword(pw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

/*──────────────────────────────── sign-in ─────────────────────────────────*/

// SignIn verifies email and password and issues a session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	log := logger.FromContext(ctx)

	rows, err := p.users.List(ctx, tableapi.Query{
		Eq:    []tableapi.Eq{{Column: "email", Value: email}},
		Limit: 1,
	})
	if err != nil {
		metrics.SignIns.WithLabelValues("error").Inc()
		return Session{}, &AuthError{
			Message: "Não foi possível iniciar sessão.  Tente novamente.",
			Err:     fmt.Errorf("lookup %s: %w", email, err),
		}
	}

	if len(rows) == 0 {
		_ = bcrypt.CompareHashAndPassword(p.fakeHash, []byte(password))
		metrics.SignIns.WithLabelValues("rejected").Inc()
		log.Infow("sign-in rejected", "email", email, "reason", "unknown user")
		return Session{}, &AuthError{Message: "Email ou palavra-passe incorretos.", Err: ErrInvalidCredentials}
	}
	u := rows[0]
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		metrics.SignIns.WithLabelValues("rejected").Inc()
		log.Infow("sign-in rejected", "email", email, "reason", "bad password")
		return Session{}, &AuthError{Message: "Email ou palavra-passe incorretos.", Err: ErrInvalidCredentials}
	}

	now := p.now()
	user := User{ID: u.ID, Email: u.Email}
	exp := now.Add(p.opts.TTL)
	tok, err := issue(user, p.opts.Issuer, p.opts.Secret, now, exp)
	if err != nil {
		metrics.SignIns.WithLabelValues("error").Inc()
		return Session{}, &AuthError{Message: "Não foi possível iniciar sessão.  Tente novamente.", Err: err}
	}

	if err := p.users.Update(ctx, u.ID, tableapi.Values{"last_sign_in_at": now.UTC()}); err != nil {
		log.Warnw("last_sign_in_at not stamped", "user", u.ID, "err", err)
	}
	metrics.SignIns.WithLabelValues("ok").Inc()
	log.Infow("sign-in", "user", u.ID)
	return Session{User: user, Token: tok, ExpiresAt: exp}, nil
}

// Establish writes the session cookie.
func (p *Provider) Establish(w http.ResponseWriter, s Session) {
	p.cookies.SetToken(w, s.Token, s.ExpiresAt)
}

/*──────────────────────────────── session ─────────────────────────────────*/

// Session returns the verified session for r.  A missing cookie yields
// nil, nil; an invalid one yields nil, ErrSessionExpired.
func (p *Provider) Session(r *http.Request) (*Session, error) {
	tok, ok := p.cookies.Token(r)
	if !ok {
		return nil, nil
	}
	claims, err := parse(tok, p.opts.Secret, p.opts.Issuer, p.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	return &Session{
		User:      User{ID: claims.Subject, Email: claims.Email},
		Token:     tok,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// RequireSession redirects to the login page unless the request carries a
// valid session, then stores the user in the context.
func (p *Provider) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := p.Session(r)
		if err != nil {
			logger.FromContext(r.Context()).Infow("session rejected", "err", err)
			p.cookies.ClearToken(w)
		}
		if s == nil {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), s.User)))
	})
}

// SignOut clears the session and sends the browser to the login page.
func (p *Provider) SignOut(w http.ResponseWriter, r *http.Request) {
	if u, ok := CurrentUser(r.Context()); ok {
		logger.FromContext(r.Context()).Infow("sign-out", "user", u.ID)
	}
	p.cookies.ClearToken(w)
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}
