//
//  internal/requestinfo/requestinfo.go
//
//  Per-request client metadata: parsed User-Agent, client IP with
//  optional GeoLite2 location, and the arrival time.  The structs are
//  inert and safe to log.  Public form submissions log them next to the
//  new row id so the secretary can trace spam.
//
//  Dependencies
//  • github.com/avct/uasurfer          (UA parsing)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup)
//

package requestinfo

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// UA holds the parsed user-agent properties.
type UA struct {
	Browser     string // "Chrome", "Firefox", "Safari", …
	Version     string // "124.0.6367"
	OS          string // "macOS", "Windows", "Android", …
	OSVersion   string
	Device      string // "Desktop", "Phone", "Tablet", …
	IsBot       bool
	PrimaryLang string // first Accept-Language tag
}

// Geo holds best-effort IP geolocation.  Country and City stay empty
// without a database or on a miss.
type Geo struct {
	IP         net.IP
	CountryISO string
	City       string
}

// Info is attached to every request by Resolver.Enrich.
type Info struct {
	UA        UA
	Geo       Geo
	Timestamp time.Time
}

// LogFields flattens Info for zap's sugared key/value API.
func (i *Info) LogFields() []any {
	if i == nil {
		return nil
	}
	return []any{
		"client_ip", i.Geo.IP.String(),
		"country", i.Geo.CountryISO,
		"browser", i.UA.Browser,
		"device", i.UA.Device,
		"bot", i.UA.IsBot,
	}
}

//
//  -----------------------------
//  Geo database
//  -----------------------------
//

// GeoDB wraps a MaxMind reader.  Safe for concurrent reads.
type GeoDB struct{ r *geoip2.Reader }

// OpenGeo opens a GeoLite2-City database.
func OpenGeo(path string) (*GeoDB, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoDB{r: r}, nil
}

// Close releases the database file.
func (g *GeoDB) Close() error { return g.r.Close() }

func (g *GeoDB) lookup(ip net.IP) Geo {
	if g == nil || ip == nil {
		return Geo{IP: ip}
	}
	rec, err := g.r.City(ip)
	if err != nil {
		return Geo{IP: ip}
	}
	city := rec.City.Names["pt-BR"]
	if city == "" {
		city = rec.City.Names["en"]
	}
	return Geo{IP: ip, CountryISO: rec.Country.IsoCode, City: city}
}

//
//  -----------------------------
//  Context helpers
//  -----------------------------
//

type ctxKey struct{}

// FromContext returns the Info stored by Enrich, or nil.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

// WithInfo stores i in ctx.
func WithInfo(ctx context.Context, i *Info) context.Context {
	return context.WithValue(ctx, ctxKey{}, i)
}

//
//  -----------------------------
//  Parsing helpers
//  -----------------------------
//

// ParseUA converts raw headers into UA.
func ParseUA(uaHeader, acceptLang string) UA {
	u := uasurfer.Parse(uaHeader)

	osName := strings.TrimPrefix(u.OS.Name.String(), "OS")
	if osName == "MacOSX" {
		osName = "macOS"
	}
	return UA{
		Browser:     strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version:     trimVersion(u.Browser.Version),
		OS:          osName,
		OSVersion:   trimVersion(u.OS.Version),
		Device:      deviceName(u.DeviceType),
		IsBot:       u.IsBot(),
		PrimaryLang: primaryLang(acceptLang),
	}
}

// trimVersion renders "major.minor.patch" without trailing ".0" parts.
func trimVersion(v uasurfer.Version) string {
	parts := []string{
		strconv.Itoa(v.Major),
		strconv.Itoa(v.Minor),
		strconv.Itoa(v.Patch),
	}
	for len(parts) > 1 && parts[len(parts)-1] == "0" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ".")
}

func deviceName(dt uasurfer.DeviceType) string {
	switch dt {
	case uasurfer.DeviceComputer:
		return "Desktop"
	case uasurfer.DevicePhone:
		return "Phone"
	case uasurfer.DeviceTablet:
		return "Tablet"
	case uasurfer.DeviceConsole:
		return "Console"
	case uasurfer.DeviceWearable:
		return "Wearable"
	case uasurfer.DeviceTV:
		return "TV"
	default:
		return "Unknown"
	}
}

// primaryLang extracts the first language tag before any ";q=" weight.
func primaryLang(al string) string {
	tag, _, _ := strings.Cut(al, ",")
	tag, _, _ = strings.Cut(tag, ";")
	return strings.ToLower(strings.TrimSpace(tag))
}
