// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *Info.
//
/*
Context
--------
This handler sits right after request logging.  For every request it:

  1. Parses the User-Agent header and Accept-Language list.
  2. Extracts the client IP from X-Forwarded-For or X-Real-IP when the
     proxy headers are trusted, falling back to `r.RemoteAddr`.
  3. Performs a GeoLite2 lookup when a database is configured.
  4. Stores `*Info` in the request context for handlers and templates.

Notes
-----
  • Look-ups are read-only, so the middleware is safe under concurrency.
  • Proxy headers are ignored unless TrustProxy is set; otherwise any
    client could choose its logged address.
*/
package requestinfo

import (
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Resolver builds Info for incoming requests.
type Resolver struct {
	Geo        *GeoDB // optional
	TrustProxy bool
}

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich wraps next, attaches *Info, and forwards.
func (rs *Resolver) Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := rs.Resolve(r)
		zap.S().Debugw("request info", append(info.LogFields(), "path", r.URL.Path)...)
		next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), info)))
	})
}

// Resolve computes Info for r without touching the context.
func (rs *Resolver) Resolve(r *http.Request) *Info {
	return &Info{
		UA:        ParseUA(r.UserAgent(), r.Header.Get("Accept-Language")),
		Geo:       rs.Geo.lookup(rs.clientIP(r)),
		Timestamp: time.Now().UTC(),
	}
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

func (rs *Resolver) clientIP(r *http.Request) net.IP {
	if rs.TrustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			for _, part := range strings.Split(xff, ",") {
				if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
					return ip
				}
			}
		}
		if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
			if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return nil
}
