// internal/snapshot/builder.go
//
// Snapshot Builder: turns draft state into an immutable Snapshot.
//
// Context
// -------
// Build is pure.  Time comes from a Clock and the version number from a
// Versioner, both injected, so identical inputs with identical collaborators
// produce identical output.  Inclusion rule:
//
//   - pages already published are included,
//   - the trigger page is included and marked published,
//   - everything else is left out, even though it sits in the draft.
//
// Draft order is preserved.  Pages are deep-copied so later edits to the
// draft slices cannot reach into a built bundle.
//
// Notes
// -----
// • Timestamps are truncated to the millisecond and kept in UTC so that a
//   snapshot survives a JSON round trip unchanged.
// • Oxford commas, two spaces after periods.
package snapshot

import (
	"time"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/apperr"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/site"
)

// Clock supplies capture time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// DraftState is everything the builder needs from the draft store.
type DraftState struct {
	Org    site.OrgID
	Pages  []site.Page
	Design site.DesignSettings
	Config site.SiteConfig
}

// Builder assembles snapshots.  Safe for concurrent use when its Versioner
// is.
type Builder struct {
	clock    Clock
	versions Versioner
}

// NewBuilder returns a Builder.  Nil collaborators fall back to the wall
// clock and a fresh Monotonic versioner.
func NewBuilder(clock Clock, versions Versioner) *Builder {
	if clock == nil {
		clock = SystemClock
	}
	if versions == nil {
		versions = &Monotonic{}
	}
	return &Builder{clock: clock, versions: versions}
}

// Build captures state as a published snapshot triggered by trigger.
func (b *Builder) Build(state DraftState, trigger site.Page) (site.Snapshot, error) {
	const op = "snapshot.build"
	if state.Org.Empty() {
		return site.Snapshot{}, apperr.New(apperr.KindValidation, op, "org id is required")
	}
	if !trigger.OrgID.Empty() && trigger.OrgID != state.Org {
		return site.Snapshot{}, apperr.New(apperr.KindValidation, op, "trigger page belongs to another organization")
	}

	pages := make([]site.Page, 0, len(state.Pages))
	var marked *site.Page
	for _, p := range state.Pages {
		isTrigger := samePage(p, trigger)
		if !p.Published && !isTrigger {
			continue
		}
		cp := p.Clone()
		if isTrigger {
			cp.Published = true
			t := cp.Clone()
			marked = &t
		}
		pages = append(pages, cp)
	}
	if marked == nil {
		return site.Snapshot{}, apperr.New(apperr.KindPageNotFound, op, "trigger page "+trigger.Slug+" is not part of the draft")
	}

	now := b.now()
	return site.Snapshot{
		OrgID:       state.Org,
		Version:     b.versions.Next(now),
		Status:      site.SnapshotPublished,
		PublishedAt: now,
		Bundle: site.Bundle{
			Pages:       pages,
			Design:      state.Design,
			Config:      state.Config,
			PublishedAt: now,
			TriggerPage: marked,
		},
	}, nil
}

// Wrap stamps a caller-assembled bundle with a fresh version and the given
// status.  The bundle's own capture time is kept when set.
func (b *Builder) Wrap(org site.OrgID, bundle site.Bundle, status site.SnapshotStatus) (site.Snapshot, error) {
	const op = "snapshot.wrap"
	if org.Empty() {
		return site.Snapshot{}, apperr.New(apperr.KindValidation, op, "org id is required")
	}
	if status == "" {
		status = site.SnapshotPublished
	}

	pages := make([]site.Page, len(bundle.Pages))
	for i, p := range bundle.Pages {
		pages[i] = p.Clone()
	}
	bundle.Pages = pages
	if bundle.TriggerPage != nil {
		t := bundle.TriggerPage.Clone()
		bundle.TriggerPage = &t
	}

	now := b.now()
	if bundle.PublishedAt.IsZero() {
		bundle.PublishedAt = now
	}
	return site.Snapshot{
		OrgID:       org,
		Version:     b.versions.Next(now),
		Status:      status,
		PublishedAt: now,
		Bundle:      bundle,
	}, nil
}

func (b *Builder) now() time.Time {
	return b.clock.Now().UTC().Truncate(time.Millisecond)
}

// samePage matches by id when both sides have one, else by slug.
func samePage(p, trigger site.Page) bool {
	if p.ID != 0 && trigger.ID != 0 {
		return p.ID == trigger.ID
	}
	return p.Slug == trigger.Slug
}
