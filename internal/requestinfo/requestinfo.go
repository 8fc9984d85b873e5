//
//  internal/requestinfo/requestinfo.go
//
//  Per-request metadata (user-agent fingerprint, client IP with optional
//  geolocation, path, and timestamp) collected once by the Enrich
//  middleware and attached to analytics events.  The structs are inert
//  and safe to log or JSON-encode.
//
//  Dependencies
//  • internal/ua                       (uasurfer wrapper)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup)
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/ua"
)

// Geo holds IP-based hints.  Country and City stay empty without a
// database or a match.
type Geo struct {
	IP         net.IP `json:"ip,omitempty"`
	CountryISO string `json:"country,omitempty"`
	City       string `json:"city,omitempty"`
}

// RequestInfo is stored in the request context by Enrich.
type RequestInfo struct {
	UA          ua.Info
	Geo         Geo
	PrimaryLang string
	Path        string
	RequestID   string
	Timestamp   time.Time
}

// Metadata flattens info into analytics event metadata.
func (info *RequestInfo) Metadata() map[string]any {
	if info == nil {
		return nil
	}
	m := map[string]any{
		"path":   info.Path,
		"device": info.UA.Device,
		"bot":    info.UA.IsBot,
	}
	if info.UA.Browser != "" {
		m["browser"] = info.UA.Browser
	}
	if info.UA.OS != "" {
		m["os"] = info.UA.OS
	}
	if info.PrimaryLang != "" {
		m["lang"] = info.PrimaryLang
	}
	if info.Geo.CountryISO != "" {
		m["country"] = info.Geo.CountryISO
	}
	if info.Geo.City != "" {
		m["city"] = info.Geo.City
	}
	if info.RequestID != "" {
		m["request_id"] = info.RequestID
	}
	return m
}

//
//  Geo database
//

// geoReader is safe for concurrent reads, which is all we perform.
var geoReader atomic.Pointer[geoip2.Reader]

// InitGeo opens the GeoLite2-City database.  Geo enrichment is optional,
// so a failure is returned for the caller to log rather than fatal.
func InitGeo(dbPath string) error {
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return fmt.Errorf("requestinfo: open GeoLite2 DB: %w", err)
	}
	if old := geoReader.Swap(r); old != nil {
		_ = old.Close()
	}
	return nil
}

// CloseGeo releases the database, if any.
func CloseGeo() {
	if r := geoReader.Swap(nil); r != nil {
		_ = r.Close()
	}
}

func lookupGeo(ip net.IP) Geo {
	r := geoReader.Load()
	if r == nil || ip == nil {
		return Geo{IP: ip}
	}
	rec, err := r.City(ip)
	if err != nil {
		return Geo{IP: ip}
	}
	return Geo{IP: ip, CountryISO: rec.Country.IsoCode, City: rec.City.Names["en"]}
}

//
//  Context plumbing
//

type ctxKey struct{}

// FromContext returns the value stored by Enrich, or nil.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

// primaryLang extracts the first language subtag before any ";q=" rule.
func primaryLang(al string) string {
	tag, _, _ := strings.Cut(al, ",")
	tag, _, _ = strings.Cut(tag, ";")
	return strings.ToLower(strings.TrimSpace(tag))
}
