// internal/xanotest/backend.go
//
// In-memory stand-in for the hosted backend.
//
// Context
// -------
// Tests across the service need a backend that speaks the same HTTP
// contract the gateway talks to in production.  Backend keeps tenants,
// pages, design settings, site configuration, live-site snapshots, and
// analytics events in maps, and serves them through a chi router mounted
// under one path prefix per resource group.
//
// Fault injection
// ---------------
//     be.Fail("PATCH /site/organizations/{org}", 500, "db down", 1)
//
// makes the next matching call answer 500.  Calls(route) counts every
// request that reached the route, failed or not.
//
// Notes
// -----
// • StringBundles makes live-site reads return the bundle double-encoded
//   as a JSON string, which the real backend does for older rows.
// • Oxford commas, two spaces after periods.
package xanotest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/config"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/gateway"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/site"
)

type fault struct {
	status int
	msg    string
	left   int // <= 0 means forever
}

// Backend is safe for concurrent use.
type Backend struct {
	mu sync.Mutex

	orgs    map[site.OrgID]*site.Organization
	pages   map[site.OrgID][]site.Page
	design  map[site.OrgID]site.DesignSettings
	config  map[site.OrgID]site.SiteConfig
	live    []site.Snapshot
	events  []map[string]any
	nextID  int64
	faults  map[string]*fault
	calls   map[string]int
	delay   map[string]time.Duration
	lastTok string

	// PlanResponse and CopyResponse are returned verbatim by the AI routes.
	PlanResponse json.RawMessage
	CopyResponse json.RawMessage

	StringBundles bool
}

// New returns an empty Backend with successful AI answers preloaded.
func New() *Backend {
	return &Backend{
		orgs:         map[site.OrgID]*site.Organization{},
		pages:        map[site.OrgID][]site.Page{},
		design:       map[site.OrgID]site.DesignSettings{},
		config:       map[site.OrgID]site.SiteConfig{},
		faults:       map[string]*fault{},
		calls:        map[string]int{},
		delay:        map[string]time.Duration{},
		PlanResponse: json.RawMessage(`{"success":true,"pages_created":3,"plan":{"pages":["home","about","adopt"]}}`),
		CopyResponse: json.RawMessage(`{"success":true,"total_processed":12,"total_updated":9}`),
	}
}

//
// Seeding and inspection
//

// AddOrg registers a tenant.
func (b *Backend) AddOrg(o site.Organization) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := o
	b.orgs[o.ID] = &cp
}

// AddPage stores p, assigning an id when p.ID is zero.
func (b *Backend) AddPage(p site.Page) site.Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID == 0 {
		b.nextID++
		p.ID = b.nextID
	}
	b.pages[p.OrgID] = append(b.pages[p.OrgID], p.Clone())
	return p
}

// SetDesign stores the design settings of ds.OrgID.
func (b *Backend) SetDesign(ds site.DesignSettings) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.design[ds.OrgID] = ds
}

// SetConfig stores the site configuration of sc.OrgID.
func (b *Backend) SetConfig(sc site.SiteConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.config[sc.OrgID] = sc
}

// AddSnapshot stores s as if it had been persisted earlier.
func (b *Backend) AddSnapshot(s site.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.putSnapshot(s)
}

// Pages returns a copy of org's pages.
func (b *Backend) Pages(org site.OrgID) []site.Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]site.Page, len(b.pages[org]))
	for i, p := range b.pages[org] {
		out[i] = p.Clone()
	}
	return out
}

// Org returns a copy of the tenant row.
func (b *Backend) Org(org site.OrgID) (site.Organization, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orgs[org]
	if !ok {
		return site.Organization{}, false
	}
	return *o, true
}

// Design returns the stored design settings.
func (b *Backend) Design(org site.OrgID) site.DesignSettings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.design[org]
}

// Config returns the stored site configuration.
func (b *Backend) Config(org site.OrgID) site.SiteConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.config[org]
}

// Snapshots returns org's stored snapshots in insertion order.
func (b *Backend) Snapshots(org site.OrgID) []site.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []site.Snapshot
	for _, s := range b.live {
		if s.OrgID == org {
			out = append(out, s)
		}
	}
	return out
}

// Events returns every analytics event received.
func (b *Backend) Events() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.events...)
}

// LastToken returns the bearer token of the most recent request.
func (b *Backend) LastToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastTok
}

//
// Fault injection
//

// Fail makes the next times calls to route answer status with msg.  times
// <= 0 fails forever.  route is "METHOD /group/pattern".
func (b *Backend) Fail(route string, status int, msg string, times int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[route] = &fault{status: status, msg: msg, left: times}
}

// Delay makes every call to route sleep for d before answering.
func (b *Backend) Delay(route string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay[route] = d
}

// Calls reports how many requests reached route.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

//
// Wiring
//

// Start serves b on an httptest server closed at test cleanup and returns
// the per-group base URLs.
func (b *Backend) Start(t testing.TB) map[string]string {
	t.Helper()
	srv := httptest.NewServer(b.Router())
	t.Cleanup(srv.Close)

	groups := map[string]string{}
	for _, g := range []string{
		gateway.GroupContent, gateway.GroupDesign, gateway.GroupSite,
		gateway.GroupLive, gateway.GroupAI, gateway.GroupAnalytics,
	} {
		groups[g] = srv.URL + "/" + g
	}
	return groups
}

// Client starts b and returns a gateway client pointed at it.
func (b *Backend) Client(t testing.TB, opts ...gateway.Option) *gateway.Client {
	t.Helper()
	c, err := gateway.New(config.Backend{
		Groups:  b.Start(t),
		Timeout: 2 * time.Second,
	}, opts...)
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	return c
}

// Router exposes the handler tree.
func (b *Backend) Router() http.Handler {
	r := chi.NewRouter()

	r.Route("/content", func(r chi.Router) {
		r.Get("/pages", b.listPages)
		r.Patch("/pages/{id}", b.patchPage)
		r.Post("/pages/status", b.bulkStatus)
	})
	r.Route("/design", func(r chi.Router) {
		r.Get("/design_settings", b.getDesign)
		r.Post("/design_settings", b.postDesign)
	})
	r.Route("/site", func(r chi.Router) {
		r.Get("/site_config", b.getConfig)
		r.Post("/site_config", b.postConfig)
		r.Get("/organizations/{org}", b.getOrg)
		r.Patch("/organizations/{org}", b.patchOrg)
		r.Get("/domain_lookup", b.domainLookup)
	})
	r.Route("/live", func(r chi.Router) {
		r.Get("/live_site", b.listLive)
		r.Post("/live_site", b.postLive)
		r.Get("/live_site/{version}", b.getLive)
	})
	r.Route("/ai", func(r chi.Router) {
		r.Post("/generate_plan", b.aiAnswer(func() json.RawMessage { return b.PlanResponse }))
		r.Post("/generate_copy", b.aiAnswer(func() json.RawMessage { return b.CopyResponse }))
	})
	r.Post("/analytics/events", b.postEvent)
	return r
}

//
// Handlers
//

func (b *Backend) listPages(w http.ResponseWriter, r *http.Request) {
	if b.tripped(w, r) {
		return
	}
	org := site.OrgID(r.URL.Query().Get("org_id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orgs[org]; !ok {
		writeErr(w, http.StatusNotFound, "organization not found")
		return
	}
	pages := b.pages[org]
	if pages == nil {
		pages = []site.Page{}
	}
	writeJSON(w, http.StatusOK, pages)
}

func (b *Backend) patchPage(w http.ResponseWriter, r *http.Request) {
	if b.tripped(w, r) {
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var in struct {
		OrgID     site.OrgID `json:"org_id"`
		Published *bool      `json:"published"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Published == nil {
		writeErr(w, http.StatusBadRequest, "published is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.pages[in.OrgID] {
		if p.ID == id {
			b.pages[in.OrgID][i].Published = *in.Published
			writeJSON(w, http.StatusOK, b.pages[in.OrgID][i])
			return
		}
	}
	writeErr(w, http.StatusNotFound, "page not found")
}

func (b *Backend) bulkStatus(w http.ResponseWriter, r *http.Request) {
	if b.tripped(w, r) {
		return
	}
	var in struct {
		OrgID  site.OrgID      `json:"org_id"`
		Status site.PageStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, "bad body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orgs[in.OrgID]; !ok {
		writeErr(w, http.StatusNotFound, "organization not found")
		return
	}
	for i := range b.pages[in.OrgID] {
		b.pages[in.OrgID][i].Published = in.Status == site.PageStatusPublished
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": len(b.pages[in.OrgID])})
}

func (b *Backend) getDesign(w http.ResponseWriter, r *http.Request) {
	if b.tripped(w, r) {
		return
	}
	org := site.OrgID(r.URL.Query().Get("org_id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orgs[org]; !ok {
		writeErr(w, http.StatusNotFound, "organization not found")
		return
	}
	ds, ok := b.design[org]
	if !ok {
		ds = site.DesignSettings{OrgID: org}
	}
	writeJSON(w, http.StatusOK, ds)
}

func (b *Backend) postDesign(w http.ResponseWriter, r *http.Request) {
	if b.tripped(w, r) {
		return
	}
	var ds site.DesignSettings
	if err := json.NewDecoder(r.Body).Decode(&ds); err != nil || ds.OrgID.Empty() {
		writeErr(w, http.StatusBadRequest, "org_id is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.design[ds.OrgID] = ds
	writeJSON(w, http.StatusOK, ds)
}

func (b *Backend) getConfig(w http.ResponseWriter, r *http.Request) {
	if b.tripped(w, r) {
		return
	}
	org := site.OrgID(r.URL.Query().Get("org_id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orgs[org]; !ok {
		writeErr(w, http.StatusNotFound, "organization not found")
		return
	}
	sc, ok := b.config[org]
	if !ok {
		sc = site.SiteConfig{OrgID: org}
	}
	writeJSON(w, http.StatusOK, sc)
}

func (b *Backend) postConfig(w http.ResponseWriter, r *http.Request) {
	if b.tripped(w, r) {
		return
	}
	var sc site.SiteConfig
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil || sc.OrgID.Empty() {
		writeErr(w, http.StatusBadRequest, "org_id is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.config[sc.OrgID] = sc
	writeJSON(w, http.StatusOK, sc)
}

func (b *Backend) getOrg(w http.ResponseWriter, r *http.Request) {
	if b.tripped(w, r) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orgs[site.OrgID(chi.URLParam(r, "org"))]
	if !ok {
		writeErr(w, http.StatusNotFound, "organization not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (b *Backend) patchOrg(w http.ResponseWriter, r *http.Request) {
	if b.tripped(w, r) {
		return
	}
	var in struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Active == nil {
		writeErr(w, http.StatusBadRequest, "active is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orgs[site.OrgID(chi.URLParam(r, "org"))]
	if !ok {
		writeErr(w, http.StatusNotFound, "organization not found")
		return
	}
	o.Active = *in.Active
	writeJSON(w, http.StatusOK, o)
}

func (b *Backend) domainLookup(w http.ResponseWriter, r *http.Request) {
	if b.tripped(w, r) {
		return
	}
	host := r.URL.Query().Get("host")
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []site.Organization{}
	for _, o := range b.orgs {
		if o.CustomDomain == host {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) listLive(w http.ResponseWriter, r *http.Request) {
	if b.tripped(w, r) {
		return
	}
	org := site.OrgID(r.URL.Query().Get("org_id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []any{}
	for _, s := range b.live {
		if s.OrgID == org {
			out = append(out, b.encodeSnapshot(s))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) getLive(w http.ResponseWriter, r *http.Request) {
	if b.tripped(w, r) {
		return
	}
	org := site.OrgID(r.URL.Query().Get("org_id"))
	v, _ := strconv.ParseInt(chi.URLParam(r, "version"), 10, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.live {
		if s.OrgID == org && s.Version == v {
			writeJSON(w, http.StatusOK, b.encodeSnapshot(s))
			return
		}
	}
	writeErr(w, http.StatusNotFound, "snapshot not found")
}

func (b *Backend) postLive(w http.ResponseWriter, r *http.Request) {
	if b.tripped(w, r) {
		return
	}
	var s site.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil || s.OrgID.Empty() {
		writeErr(w, http.StatusBadRequest, "org_id is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s = b.putSnapshot(s)
	writeJSON(w, http.StatusOK, b.encodeSnapshot(s))
}

func (b *Backend) aiAnswer(body func() json.RawMessage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if b.tripped(w, r) {
			return
		}
		b.mu.Lock()
		out := body()
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(out)
	}
}

func (b *Backend) postEvent(w http.ResponseWriter, r *http.Request) {
	if b.tripped(w, r) {
		return
	}
	var ev map[string]any
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeErr(w, http.StatusBadRequest, "bad event")
		return
	}
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

//
// Helpers
//

// putSnapshot stores s with last-write-wins on (org, version).  Caller
// holds b.mu.
func (b *Backend) putSnapshot(s site.Snapshot) site.Snapshot {
	for i, old := range b.live {
		if old.OrgID == s.OrgID && old.Version == s.Version {
			s.ID = old.ID
			b.live[i] = s
			return s
		}
	}
	b.nextID++
	s.ID = b.nextID
	b.live = append(b.live, s)
	return s
}

// encodeSnapshot renders s the way the backend does, optionally with the
// bundle double-encoded.  Caller holds b.mu.
func (b *Backend) encodeSnapshot(s site.Snapshot) any {
	if !b.StringBundles {
		return s
	}
	bundle, _ := json.Marshal(s.Bundle)
	return map[string]any{
		"id":           s.ID,
		"org_id":       s.OrgID,
		"version":      s.Version,
		"status":       s.Status,
		"published_at": s.PublishedAt,
		"bundle":       string(bundle),
	}
}

// tripped records the call, applies any delay, and answers with an
// injected fault when one is armed for the matched route.
func (b *Backend) tripped(w http.ResponseWriter, r *http.Request) bool {
	route := r.Method + " " + chi.RouteContext(r.Context()).RoutePattern()

	b.mu.Lock()
	b.calls[route]++
	if h := r.Header.Get("Authorization"); len(h) > len("Bearer ") {
		b.lastTok = h[len("Bearer "):]
	}
	d := b.delay[route]
	f, ok := b.faults[route]
	if ok && f.left > 0 {
		f.left--
		if f.left == 0 {
			delete(b.faults, route)
		}
	}
	b.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return true
		}
	}
	if ok {
		writeErr(w, f.status, f.msg)
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"code": "ERROR_FATAL", "message": msg})
}
