// internal/site/model.go
//
// Tenant-owned records exchanged with the hosted backend.
//
// Context
// -------
// The backend owns storage; these structs mirror the JSON it returns and
// accepts.  Every record carries the owning OrgID so writes can be checked
// against the tenant named in the request path before any I/O happens.
//
//   Organization   – tenant row (display name, custom domain, subdomain).
//   Page           – one draft page plus its ordered Sections.
//   DesignSettings – single current version per tenant, no history.
//   SiteConfig     – contact and branding strings.
//
// Notes
// -----
// • Free-form payloads stay json.RawMessage so they round-trip untouched.
// • Oxford commas, two spaces after periods.
package site

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

//
// OrgID
//

// OrgID is the opaque tenant identifier.  The backend emits it as a number
// in some tables and as a string in others; both decode to the same value.
type OrgID string

// String returns the raw id.
func (o OrgID) String() string { return string(o) }

// Empty reports whether the id is missing.
func (o OrgID) Empty() bool { return strings.TrimSpace(string(o)) == "" }

// UnmarshalJSON accepts 42, "42", and null.
func (o *OrgID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*o = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*o = OrgID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("org id: %w", err)
		}
		*o = OrgID(n.String())
		return nil
	}
}

// MarshalJSON emits numeric ids as numbers, everything else as strings.
func (o OrgID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(o), 10, 64); err == nil {
		return []byte(o), nil
	}
	return json.Marshal(string(o))
}

//
// Organization
//

// Organization is a tenant.  At most one active organization may claim a
// given CustomDomain; the backend enforces it, Resolve reports breaches.
type Organization struct {
	ID           OrgID  `json:"id"`
	Name         string `json:"name"`
	Subdomain    string `json:"subdomain"`
	CustomDomain string `json:"custom_domain,omitempty"`
	Active       bool   `json:"active"`
}

//
// Page
//

// Page is one draft page.  Slug is unique within the organization.
type Page struct {
	ID        int64    `json:"id"`
	OrgID     OrgID    `json:"org_id"`
	Slug      string   `json:"slug"`
	Title     string   `json:"title"`
	Published bool     `json:"published"`
	Sections  Sections `json:"page_elements"`
}

// Status reports the page state derived from the Published flag.
func (p Page) Status() PageStatus {
	if p.Published {
		return PageStatusPublished
	}
	return PageStatusDraft
}

// Clone returns a copy that shares no slices with p.
func (p Page) Clone() Page {
	out := p
	out.Sections = p.Sections.Clone()
	return out
}

//
// DesignSettings
//

// DesignSettings holds colour tokens, font tokens, and free-form layout.
type DesignSettings struct {
	OrgID  OrgID             `json:"org_id"`
	Colors map[string]string `json:"colors,omitempty"`
	Fonts  map[string]string `json:"fonts,omitempty"`
	Layout json.RawMessage   `json:"layout,omitempty"`
}

//
// SiteConfig
//

// SiteConfig holds non-page, non-design settings.
type SiteConfig struct {
	OrgID        OrgID             `json:"org_id"`
	SiteName     string            `json:"site_name"`
	Tagline      string            `json:"tagline,omitempty"`
	ContactEmail string            `json:"contact_email,omitempty"`
	ContactPhone string            `json:"contact_phone,omitempty"`
	Address      string            `json:"address,omitempty"`
	Social       map[string]string `json:"social,omitempty"`
}
