// internal/domain/resolver.go
//
// Domain resolution: maps a visitor's Host header onto the routing slug of
// the organization that claims it as a custom domain.
//
// Context
// -------
// Only active organizations count.  The backend is supposed to keep at most
// one active claim per domain; when it returns more than one the resolver
// refuses to guess and reports an upstream error.
//
// Positive answers are cached in a TTL LRU keyed by normalised host.
// Concurrent misses for one host share a single backend call.  Negative
// answers are not cached, so a newly configured domain works on the next
// request.  The coordinator calls Invalidate after a site-status change so
// a deactivated organization stops resolving right away.  Invalidate bumps
// a generation: a fetch that started earlier neither caches its answer nor
// is shared with callers that arrive after the bump.
//
// The shared fetch runs detached from any one caller's cancellation, so a
// visitor who disconnects does not fail everyone waiting on the same host.
// The gateway's own timeout still bounds it.
//
// Notes
// -----
// • Hosts are lower-cased and stripped of port and a leading "www.".
// • Oxford commas, two spaces after periods.
package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/apperr"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/cache"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/gateway"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/metrics"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/site"
)

const op = "domain.resolve"

// ErrNotFound means no active organization claims the host.
var ErrNotFound = apperr.New(apperr.KindNotFound, op, "no active organization claims this host")

// Match is a resolved host.
type Match struct {
	Host  string     `json:"host"`
	OrgID site.OrgID `json:"org_id"`
	Slug  string     `json:"slug"`
}

// Resolver is safe for concurrent use.
type Resolver struct {
	gw  gateway.Caller
	lru *cache.LRU[string, Match]
	sfg singleflight.Group

	mu  sync.Mutex
	gen uint64
}

// New returns a Resolver caching up to capacity hosts for ttl.
func New(gw gateway.Caller, capacity int, ttl time.Duration) *Resolver {
	if capacity < 1 {
		capacity = 1
	}
	return &Resolver{gw: gw, lru: cache.New[string, Match](capacity, ttl)}
}

// Resolve returns the routing slug for host.
func (r *Resolver) Resolve(ctx context.Context, host string) (string, error) {
	m, err := r.Lookup(ctx, host)
	if err != nil {
		return "", err
	}
	return m.Slug, nil
}

// Lookup is Resolve with the owning organization attached.
func (r *Resolver) Lookup(ctx context.Context, host string) (Match, error) {
	h := Normalize(host)
	if h == "" {
		return Match{}, apperr.New(apperr.KindValidation, op, "host is required")
	}
	if m, ok := r.lru.Get(h); ok {
		metrics.DomainLookupTotal.WithLabelValues("hit").Inc()
		return m, nil
	}

	r.mu.Lock()
	gen := r.gen
	r.mu.Unlock()

	key := strconv.FormatUint(gen, 10) + "|" + h
	v, err, _ := r.sfg.Do(key, func() (any, error) {
		m, err := r.fetch(context.WithoutCancel(ctx), h)
		if err != nil {
			return Match{}, err
		}
		r.mu.Lock()
		if r.gen == gen {
			r.lru.Add(h, m)
		}
		r.mu.Unlock()
		return m, nil
	})
	switch {
	case err == nil:
		metrics.DomainLookupTotal.WithLabelValues("miss").Inc()
		return v.(Match), nil
	case errors.Is(err, ErrNotFound):
		metrics.DomainLookupTotal.WithLabelValues("not_found").Inc()
	default:
		metrics.DomainLookupTotal.WithLabelValues("error").Inc()
	}
	return Match{}, err
}

// Invalidate drops every cached host of org.
func (r *Resolver) Invalidate(org site.OrgID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.lru.RemoveFunc(func(_ string, m Match) bool { return m.OrgID == org })
}

func (r *Resolver) fetch(ctx context.Context, host string) (Match, error) {
	orgs, err := gateway.Fetch[[]site.Organization](ctx, r.gw, gateway.Request{
		Group: gateway.GroupSite,
		Path:  "domain_lookup",
		Query: url.Values{"host": {host}},
	})
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return Match{}, ErrNotFound
		}
		return Match{}, err
	}

	var active []site.Organization
	for _, o := range orgs {
		if o.Active && Normalize(o.CustomDomain) == host {
			active = append(active, o)
		}
	}
	switch len(active) {
	case 0:
		return Match{}, ErrNotFound
	case 1:
		o := active[0]
		slug := o.Subdomain
		if slug == "" {
			slug = o.ID.String()
		}
		return Match{Host: host, OrgID: o.ID, Slug: slug}, nil
	default:
		ids := make([]string, len(active))
		for i, o := range active {
			ids[i] = o.ID.String()
		}
		return Match{}, apperr.New(apperr.KindUpstream, op,
			fmt.Sprintf("host %s is claimed by %d active organizations (%s)", host, len(active), strings.Join(ids, ", ")))
	}
}

// Normalize lower-cases host and strips a port, a trailing dot, and a
// leading "www.".
func Normalize(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if i := strings.Index(h, "://"); i >= 0 {
		h = h[i+3:]
	}
	if i := strings.IndexByte(h, '/'); i >= 0 {
		h = h[:i]
	}
	if hp, _, err := net.SplitHostPort(h); err == nil {
		h = hp
	}
	h = strings.Trim(h, "[]")
	h = strings.TrimSuffix(h, ".")
	return strings.TrimPrefix(h, "www.")
}
