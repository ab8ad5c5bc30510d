package requestinfo

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

const chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.6367.91 Safari/537.36"

func TestParseUA(t *testing.T) {
	ua := ParseUA(chromeMac, "pt-PT,pt;q=0.9,en;q=0.8")
	if ua.Browser != "Chrome" || ua.OS != "macOS" || ua.Device != "Desktop" || ua.IsBot {
		t.Fatalf("UA = %+v", ua)
	}
	if ua.PrimaryLang != "pt-pt" {
		t.Errorf("PrimaryLang = %q", ua.PrimaryLang)
	}

	bot := ParseUA("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", "")
	if !bot.IsBot {
		t.Errorf("Googlebot not flagged: %+v", bot)
	}
}

func TestClientIPHonoursTrust(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.5:5555"
	r.Header.Set("X-Forwarded-For", "41.63.1.2, 10.0.0.1")

	if ip := (&Resolver{}).clientIP(r); ip.String() != "10.0.0.5" {
		t.Errorf("untrusted: %s", ip)
	}
	if ip := (&Resolver{TrustProxy: true}).clientIP(r); ip.String() != "41.63.1.2" {
		t.Errorf("trusted: %s", ip)
	}
}

func TestEnrichAttachesInfo(t *testing.T) {
	var got *Info
	h := (&Resolver{}).Enrich(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("User-Agent", chromeMac)
	h.ServeHTTP(httptest.NewRecorder(), r)

	if got == nil || got.UA.Browser != "Chrome" || got.Geo.IP == nil {
		t.Fatalf("Info = %+v", got)
	}
}

func TestNilSafety(t *testing.T) {
	if FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()) != nil {
		t.Fatal("FromContext without middleware must be nil")
	}
	if (*Info)(nil).LogFields() != nil {
		t.Fatal("nil Info must log nothing")
	}
}
