package snapshot

import (
	"encoding/json"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/apperr"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/site"
)

var fixed = time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)

func fixedClock() Clock { return ClockFunc(func() time.Time { return fixed }) }

func draft() DraftState {
	return DraftState{
		Org: "42",
		Pages: []site.Page{
			{ID: 1, OrgID: "42", Slug: "home", Title: "Home", Published: true,
				Sections: site.Sections{{ID: "1", Type: "hero", Props: json.RawMessage(`{"h":"Hi"}`)}}},
			{ID: 2, OrgID: "42", Slug: "about", Title: "About Us"},
			{ID: 3, OrgID: "42", Slug: "adopt", Title: "Adopt"},
		},
		Design: site.DesignSettings{OrgID: "42", Colors: map[string]string{"primary": "#333"}},
		Config: site.SiteConfig{OrgID: "42", SiteName: "Happy Tails"},
	}
}

func slugs(ps []site.Page) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Slug
	}
	return out
}

func TestBuild_ExcludesUnpublishedPages(t *testing.T) {
	st := DraftState{
		Org: "42",
		Pages: []site.Page{
			{ID: 1, OrgID: "42", Slug: "a", Published: true},
			{ID: 2, OrgID: "42", Slug: "b", Published: false},
		},
	}
	snap, err := NewBuilder(fixedClock(), nil).Build(st, st.Pages[0])
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := slugs(snap.Bundle.Pages); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("pages = %v, want [a]", got)
	}
}

func TestBuild_IncludesAndMarksTrigger(t *testing.T) {
	st := draft()
	snap, err := NewBuilder(fixedClock(), nil).Build(st, st.Pages[1])
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := slugs(snap.Bundle.Pages); !reflect.DeepEqual(got, []string{"home", "about"}) {
		t.Fatalf("pages = %v, want [home about]", got)
	}
	if !snap.Bundle.Pages[1].Published {
		t.Fatalf("trigger page not marked published in bundle")
	}
	if st.Pages[1].Published {
		t.Fatalf("build mutated the draft")
	}
	if snap.Bundle.TriggerPage == nil || snap.Bundle.TriggerPage.Slug != "about" {
		t.Fatalf("trigger page = %+v", snap.Bundle.TriggerPage)
	}
	want := fixed.Truncate(time.Millisecond)
	if !snap.PublishedAt.Equal(want) || !snap.Bundle.PublishedAt.Equal(want) {
		t.Fatalf("published_at = %v / %v", snap.PublishedAt, snap.Bundle.PublishedAt)
	}
	if snap.Version != want.UnixMilli() {
		t.Fatalf("version = %d, want %d", snap.Version, want.UnixMilli())
	}
	if snap.Status != site.SnapshotPublished {
		t.Fatalf("status = %q", snap.Status)
	}
}

func TestBuild_IsDeterministic(t *testing.T) {
	st := draft()
	a, _ := NewBuilder(fixedClock(), nil).Build(st, st.Pages[1])
	b, _ := NewBuilder(fixedClock(), nil).Build(st, st.Pages[1])
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same input produced different snapshots")
	}
}

func TestBuild_BundleDoesNotAliasDraft(t *testing.T) {
	st := draft()
	snap, _ := NewBuilder(fixedClock(), nil).Build(st, st.Pages[0])
	st.Pages[0].Sections[0].Type = "mutated"
	if snap.Bundle.Pages[0].Sections[0].Type != "hero" {
		t.Fatalf("bundle shares section storage with draft")
	}
}

func TestBuild_TriggerMissing(t *testing.T) {
	st := draft()
	_, err := NewBuilder(fixedClock(), nil).Build(st, site.Page{Slug: "ghost"})
	if !apperr.Is(err, apperr.KindPageNotFound) {
		t.Fatalf("kind = %v, want page_not_found", apperr.KindOf(err))
	}
}

func TestBuild_RejectsForeignTrigger(t *testing.T) {
	st := draft()
	_, err := NewBuilder(fixedClock(), nil).Build(st, site.Page{ID: 2, OrgID: "7", Slug: "about"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("kind = %v, want validation_error", apperr.KindOf(err))
	}
}

func TestBuild_RoundTripsThroughJSON(t *testing.T) {
	st := draft()
	snap, _ := NewBuilder(fixedClock(), nil).Build(st, st.Pages[1])
	b, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back site.Snapshot
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.PublishedAt.Equal(snap.PublishedAt) || back.Version != snap.Version || len(back.Bundle.Pages) != 2 {
		t.Fatalf("round trip = %+v", back)
	}
}

func TestWrap_StampsVersionAndStatus(t *testing.T) {
	b := NewBuilder(fixedClock(), nil)
	snap, err := b.Wrap("42", site.Bundle{Pages: []site.Page{{Slug: "home", Published: true}}}, site.SnapshotUnpublished)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if snap.Status != site.SnapshotUnpublished || snap.OrgID != "42" || snap.Version == 0 {
		t.Fatalf("snap = %+v", snap)
	}
	if snap.Bundle.PublishedAt.IsZero() {
		t.Fatalf("capture time not filled")
	}
	if _, err := b.Wrap("", site.Bundle{}, ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("empty org accepted")
	}
}

func TestMonotonic_StrictlyIncreasingUnderFrozenClock(t *testing.T) {
	m := &Monotonic{}
	prev := int64(0)
	for i := 0; i < 100; i++ {
		v := m.Next(fixed)
		if v <= prev {
			t.Fatalf("version %d after %d", v, prev)
		}
		prev = v
	}
}

func TestMonotonic_ClockGoingBackwards(t *testing.T) {
	m := &Monotonic{}
	a := m.Next(fixed)
	b := m.Next(fixed.Add(-time.Hour))
	if b <= a {
		t.Fatalf("version went backwards: %d then %d", a, b)
	}
}

func TestMonotonic_ConcurrentCallersNeverCollide(t *testing.T) {
	m := &Monotonic{}
	const n = 64
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := m.Next(fixed)
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != n {
		t.Fatalf("got %d distinct versions from %d calls", len(seen), n)
	}
}
