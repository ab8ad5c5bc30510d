// internal/middleware/csrf.go
//
// CSRF protection for every POST form, backed by gorilla/csrf.  Templates
// embed the token through view.Page.CSRF.
//
// gorilla/csrf assumes HTTPS and enforces a strict Referer check.  Requests
// that arrived over plain HTTP (local development) are flagged as such so
// the Origin check still runs against the right scheme.

package middleware

import (
	"net/http"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// CSRFOptions configures CSRF.
type CSRFOptions struct {
	Key            []byte   // 32 bytes
	Secure         bool     // cookie Secure flag
	TrustedOrigins []string // host[:port] entries
	FailureHandler http.Handler
}

// CSRF returns the protecting middleware.
func CSRF(opts CSRFOptions) func(http.Handler) http.Handler {
	fail := opts.FailureHandler
	if fail == nil {
		fail = http.HandlerFunc(csrfFailed)
	}
	protect := csrf.Protect(
		opts.Key,
		csrf.Secure(opts.Secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.TrustedOrigins(opts.TrustedOrigins),
		csrf.ErrorHandler(fail),
	)

	return func(next http.Handler) http.Handler {
		h := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsHTTPS(r) {
				r = csrf.PlaintextHTTPRequest(r)
			}
			h.ServeHTTP(w, r)
		})
	}
}

func csrfFailed(w http.ResponseWriter, r *http.Request) {
	zap.S().Warnw("csrf rejected", "path", r.URL.Path, "reason", csrf.FailureReason(r))
	http.Error(w, "O formulário expirou.  Recarregue a página e tente novamente.", http.StatusForbidden)
}
