package domain

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/apperr"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/gateway"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/site"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/xanotest"
)

const routeLookup = "GET /site/domain_lookup"

func seeded() *xanotest.Backend {
	be := xanotest.New()
	be.AddOrg(site.Organization{ID: "42", Subdomain: "happytails", CustomDomain: "happytails.org", Active: true})
	be.AddOrg(site.Organization{ID: "43", Subdomain: "oldtails", CustomDomain: "happytails.org", Active: false})
	be.AddOrg(site.Organization{ID: "7", Subdomain: "paws", CustomDomain: "paws.example.com", Active: true})
	return be
}

func TestResolve_ActiveClaim(t *testing.T) {
	be := seeded()
	r := New(be.Client(t), 16, time.Minute)

	for _, host := range []string{"happytails.org", "WWW.HappyTails.org:443", "https://www.happytails.org/adopt", "happytails.org."} {
		slug, err := r.Resolve(context.Background(), host)
		if err != nil || slug != "happytails" {
			t.Errorf("Resolve(%q) = %q, %v", host, slug, err)
		}
	}
	if n := be.Calls(routeLookup); n != 1 {
		t.Fatalf("backend called %d times, want 1 (cached)", n)
	}
}

func TestResolve_UnknownHostIsNotFound(t *testing.T) {
	be := seeded()
	r := New(be.Client(t), 16, time.Minute)

	_, err := r.Resolve(context.Background(), "unknown.example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if apperr.Is(err, apperr.KindTransport) {
		t.Fatalf("not-found reported as transport error")
	}

	// Misses are not cached.
	be.AddOrg(site.Organization{ID: "8", Subdomain: "fresh", CustomDomain: "unknown.example.com", Active: true})
	if slug, err := r.Resolve(context.Background(), "unknown.example.com"); err != nil || slug != "fresh" {
		t.Fatalf("after configuring domain: %q, %v", slug, err)
	}
}

func TestResolve_TransportErrorIsDistinct(t *testing.T) {
	be := seeded()
	be.Delay(routeLookup, 3*time.Second)
	r := New(be.Client(t), 16, time.Minute)

	_, err := r.Resolve(context.Background(), "paws.example.com")
	if !apperr.Is(err, apperr.KindTransport) {
		t.Fatalf("err = %v, want TransportError", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("transport failure reported as not found")
	}
}

func TestResolve_ConflictingClaims(t *testing.T) {
	be := seeded()
	be.AddOrg(site.Organization{ID: "44", Subdomain: "dupe", CustomDomain: "paws.example.com", Active: true})
	r := New(be.Client(t), 16, time.Minute)

	_, err := r.Resolve(context.Background(), "paws.example.com")
	if !apperr.Is(err, apperr.KindUpstream) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
}

func TestResolve_EmptyHost(t *testing.T) {
	r := New(seeded().Client(t), 16, time.Minute)
	if _, err := r.Resolve(context.Background(), "  "); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestInvalidate_DropsOrgHosts(t *testing.T) {
	be := seeded()
	r := New(be.Client(t), 16, time.Minute)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "happytails.org"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	be.AddOrg(site.Organization{ID: "42", Subdomain: "happytails", CustomDomain: "happytails.org", Active: false})
	r.Invalidate("42")

	if _, err := r.Resolve(ctx, "happytails.org"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deactivated org still resolves: %v", err)
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Example.COM":              "example.com",
		"www.example.com:8080":     "example.com",
		"http://www.example.com/x": "example.com",
		"example.com.":             "example.com",
		"[::1]:80":                 "::1",
		"":                         "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func waitForCalls(t *testing.T, be *xanotest.Backend, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for be.Calls(routeLookup) < n {
		if time.Now().After(deadline) {
			t.Fatalf("backend never reached %d calls", n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestResolve_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	be := seeded()
	be.Delay(routeLookup, 100*time.Millisecond)
	r := New(be.Client(t), 16, time.Minute)

	first, cancel := context.WithCancel(context.Background())
	go func() { _, _ = r.Resolve(first, "paws.example.com") }()
	waitForCalls(t, be, 1)

	type answer struct {
		slug string
		err  error
	}
	second := make(chan answer, 1)
	go func() {
		slug, err := r.Resolve(context.Background(), "paws.example.com")
		second <- answer{slug, err}
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	got := <-second
	if got.err != nil || got.slug != "paws" {
		t.Fatalf("waiter = %q, %v", got.slug, got.err)
	}
	if n := be.Calls(routeLookup); n != 1 {
		t.Fatalf("backend calls = %d, want 1 shared fetch", n)
	}
}

// gatedCaller answers domain lookups with orgs once release is closed.
type gatedCaller struct {
	mu      sync.Mutex
	orgs    []site.Organization
	calls   int
	started chan struct{}
	release chan struct{}
}

func (g *gatedCaller) Do(_ context.Context, _ gateway.Request) (json.RawMessage, error) {
	g.mu.Lock()
	g.calls++
	orgs := g.orgs
	first := g.calls == 1
	g.mu.Unlock()
	if first {
		close(g.started)
		<-g.release
	}
	b, err := json.Marshal(orgs)
	return b, err
}

func TestInvalidate_InFlightFetchIsNotCached(t *testing.T) {
	gw := &gatedCaller{
		orgs:    []site.Organization{{ID: "42", Subdomain: "happytails", CustomDomain: "happytails.org", Active: true}},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	r := New(gw, 16, time.Minute)
	ctx := context.Background()

	done := make(chan string, 1)
	go func() {
		slug, _ := r.Resolve(ctx, "happytails.org")
		done <- slug
	}()
	<-gw.started

	// The site goes offline while the lookup above still holds the old answer.
	gw.mu.Lock()
	gw.orgs = []site.Organization{{ID: "42", Subdomain: "happytails", CustomDomain: "happytails.org", Active: false}}
	gw.mu.Unlock()
	r.Invalidate("42")
	close(gw.release)

	if slug := <-done; slug != "happytails" {
		t.Fatalf("in-flight Resolve = %q", slug)
	}
	if _, err := r.Resolve(ctx, "happytails.org"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unpublished org still resolves: %v", err)
	}
}
