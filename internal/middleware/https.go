// Package middleware holds small, composable HTTP wrappers.
package middleware

import (
	"net/http"
	"strings"
)

// ForceHTTPS wraps h.  If the request is plain HTTP (neither TLS nor an
// X-Forwarded-Proto of https) and the host is not “localhost”, the wrapper
// issues a 308 Permanent Redirect to the HTTPS version of the same URL.
// Otherwise it calls the next handler unchanged.
func ForceHTTPS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsHTTPS(r) || stripPort(r.Host) == "localhost" {
			h.ServeHTTP(w, r)
			return
		}
		target := "https://" + r.Host + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
	})
}

// IsHTTPS reports whether the client reached us over TLS, directly or via a
// terminating proxy.
func IsHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// stripPort removes the :port suffix from Host when present.
func stripPort(h string) string {
	if i := strings.IndexByte(h, ':'); i != -1 {
		return h[:i]
	}
	return h
}
