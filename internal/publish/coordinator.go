// internal/publish/coordinator.go
//
// Publish Coordinator: promotes draft state to a live-site snapshot.
//
// Context
// -------
// Three public operations:
//
//   - PublishBySlug    – read the draft, build a snapshot around one page,
//     persist it, then flip that page to published when it was a draft.
//   - PublishSnapshot  – persist a caller-assembled bundle as-is, or an
//     unpublish marker.
//   - SetSiteStatus    – flip every page, then the organization's active
//     flag, as two separate writes.
//
// Writes run as a saga (internal/saga).  Persisting the snapshot is the
// commit point: once it succeeds visitors see the new version, and a
// failure of any later write is reported as PartialFailure next to the
// committed result.  Nothing is rolled back.
//
// Reads are idempotent, so they are retried with exponential backoff on
// transport errors and 5xx answers.  Writes are never retried here.
//
// After a commit the coordinator invalidates the read caches, emits an
// analytics event, and journals the run.  All three are best-effort.
//
// Notes
// -----
// • Validation failures return before any I/O.
// • Oxford commas, two spaces after periods.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/analytics"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/apperr"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/journal"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/metrics"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/saga"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/site"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/snapshot"
)

// Saga step names.  They appear in errors, logs, metrics, and the journal.
const (
	StepPersist      = "persist_snapshot"
	StepFlipPage     = "flip_page"
	StepPagesStatus  = "pages_status"
	StepOrgActive    = "org_active"
	opPublishBySlug  = "publish_by_slug"
	opPublishPayload = "publish_snapshot"
	opSiteStatus     = "set_site_status"
)

const journalTimeout = 2 * time.Second

// Drafts is the draft-store surface the coordinator needs.
type Drafts interface {
	ListPages(ctx context.Context, org site.OrgID) ([]site.Page, error)
	DesignSettings(ctx context.Context, org site.OrgID) (site.DesignSettings, error)
	SiteConfig(ctx context.Context, org site.OrgID) (site.SiteConfig, error)
	SetPagePublished(ctx context.Context, org site.OrgID, pageID int64, published bool) error
	SetAllPagesStatus(ctx context.Context, org site.OrgID, status site.PageStatus) (int, error)
	SetOrganizationActive(ctx context.Context, org site.OrgID, active bool) error
}

// Ledger persists snapshots.
type Ledger interface {
	Append(ctx context.Context, snap site.Snapshot) (site.Snapshot, error)
}

// Invalidator drops cached state for an organization.
type Invalidator interface {
	Invalidate(org site.OrgID)
}

// Deps wires a Coordinator.  Events, Journal, and Log may be nil.
type Deps struct {
	Drafts       Drafts
	Ledger       Ledger
	Builder      *snapshot.Builder
	Invalidators []Invalidator
	Events       analytics.Emitter
	Journal      journal.Recorder
	Log          *zap.SugaredLogger
}

// Options tunes read retries.
type Options struct {
	ReadRetries  int
	RetryBackoff time.Duration
}

// Coordinator is safe for concurrent use.  It holds no per-tenant state;
// concurrent publishes for one tenant resolve last-write-wins at the store.
type Coordinator struct {
	Deps
	opts Options
}

// New returns a Coordinator.
func New(d Deps, opts Options) *Coordinator {
	if d.Builder == nil {
		d.Builder = snapshot.NewBuilder(nil, nil)
	}
	if d.Events == nil {
		d.Events = analytics.Discard{}
	}
	if d.Journal == nil {
		d.Journal = journal.Nop{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	return &Coordinator{Deps: d, opts: opts}
}

//
// Results
//

// Result is returned by PublishBySlug.
type Result struct {
	Snapshot    site.Snapshot `json:"snapshot"`
	Message     string        `json:"message"`
	PageFlipped bool          `json:"page_flipped"`
	RunID       string        `json:"run_id"`
}

// SnapshotResult is returned by PublishSnapshot.
type SnapshotResult struct {
	OK      bool                `json:"ok"`
	Version int64               `json:"version"`
	Status  site.SnapshotStatus `json:"status"`
	RunID   string              `json:"run_id"`
}

// SiteStatusResult is returned by SetSiteStatus.
type SiteStatusResult struct {
	Message      string              `json:"message"`
	PagesUpdated int                 `json:"pages_updated"`
	Status       site.SnapshotStatus `json:"status"`
	RunID        string              `json:"run_id"`
}

//
// Mode (a): slug-driven publish
//

// PublishBySlug publishes org's site with slug as the trigger page.  On
// PartialFailure the committed Result is returned together with the error.
func (c *Coordinator) PublishBySlug(ctx context.Context, org site.OrgID, slug string) (*Result, error) {
	slug = site.CleanSlug(slug)
	if org.Empty() {
		return nil, c.reject(opPublishBySlug, "org id is required")
	}
	if slug == "" {
		return nil, c.reject(opPublishBySlug, "page slug is required")
	}

	state, err := c.readDraft(ctx, org)
	if err != nil {
		metrics.PublishTotal.WithLabelValues(opPublishBySlug, journal.OutcomeFailed).Inc()
		return nil, err
	}

	page, ok := findPage(state.Pages, slug)
	if !ok {
		metrics.PublishTotal.WithLabelValues(opPublishBySlug, journal.OutcomeFailed).Inc()
		return nil, apperr.New(apperr.KindPageNotFound, opPublishBySlug, fmt.Sprintf("page %q not found", slug))
	}

	snap, err := c.Builder.Build(state, page)
	if err != nil {
		metrics.PublishTotal.WithLabelValues(opPublishBySlug, journal.OutcomeFailed).Inc()
		return nil, err
	}

	var stored site.Snapshot
	out := saga.Run(ctx, opPublishBySlug,
		saga.Step{Name: StepPersist, Run: func(ctx context.Context) error {
			var err error
			stored, err = c.Ledger.Append(ctx, snap)
			return err
		}},
		saga.Step{Name: StepFlipPage, Run: func(ctx context.Context) error {
			if page.Published {
				return saga.ErrSkip
			}
			return c.Drafts.SetPagePublished(ctx, org, page.ID, true)
		}},
	)
	c.finish(ctx, org, opPublishBySlug, snap.Version, out)

	if out.Step(StepPersist).Status != saga.StatusOK {
		return nil, out.Err()
	}

	c.Events.Emit(ctx, analytics.Event{
		TenantID: org,
		Type:     analytics.EventSitePublished,
		Metadata: map[string]any{
			"slug":    page.Slug,
			"path":    site.PagePath(page.Slug),
			"version": stored.Version,
			"pages":   len(stored.Bundle.Pages),
		},
	})

	res := &Result{
		Snapshot:    stored,
		Message:     fmt.Sprintf("%q is published. Your site is live at version %d.", title(page), stored.Version),
		PageFlipped: out.Step(StepFlipPage).Status == saga.StatusOK,
		RunID:       out.ID,
	}
	if err := out.Err(); err != nil {
		res.Message = fmt.Sprintf("%q is live at version %d, but its draft status could not be updated.", title(page), stored.Version)
		return res, err
	}
	return res, nil
}

// readDraft fetches pages, design settings, and site configuration
// concurrently.  The first failure cancels the others.
func (c *Coordinator) readDraft(ctx context.Context, org site.OrgID) (snapshot.DraftState, error) {
	st := snapshot.DraftState{Org: org}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		st.Pages, err = retryRead(gctx, c.opts, func(ctx context.Context) ([]site.Page, error) {
			return c.Drafts.ListPages(ctx, org)
		})
		return err
	})
	g.Go(func() error {
		var err error
		st.Design, err = retryRead(gctx, c.opts, func(ctx context.Context) (site.DesignSettings, error) {
			return c.Drafts.DesignSettings(ctx, org)
		})
		return err
	})
	g.Go(func() error {
		var err error
		st.Config, err = retryRead(gctx, c.opts, func(ctx context.Context) (site.SiteConfig, error) {
			return c.Drafts.SiteConfig(ctx, org)
		})
		return err
	})

	if err := g.Wait(); err != nil {
		return st, err
	}
	if len(st.Pages) == 0 {
		return st, apperr.New(apperr.KindNotFound, opPublishBySlug, fmt.Sprintf("organization %s has no pages", org))
	}
	return st, nil
}

//
// Mode (b): snapshot-driven publish
//

// PublishSnapshot persists bundle without consulting the draft.  The
// unpublish action stores an unpublish marker, which takes the site
// offline for visitors.
func (c *Coordinator) PublishSnapshot(ctx context.Context, org site.OrgID, bundle site.Bundle, action site.SiteAction) (*SnapshotResult, error) {
	if org.Empty() {
		return nil, c.reject(opPublishPayload, "org id is required")
	}
	if action == "" {
		action = site.ActionPublish
	}
	action, err := site.ParseSiteAction(string(action))
	if err != nil {
		return nil, c.reject(opPublishPayload, err.Error())
	}

	snap, err := c.Builder.Wrap(org, bundle, action.SnapshotStatus())
	if err != nil {
		return nil, err
	}

	out := saga.Run(ctx, opPublishPayload,
		saga.Step{Name: StepPersist, Run: func(ctx context.Context) error {
			var err error
			snap, err = c.Ledger.Append(ctx, snap)
			return err
		}},
	)
	c.finish(ctx, org, opPublishPayload, snap.Version, out)
	if err := out.Err(); err != nil {
		return nil, err
	}

	c.Events.Emit(ctx, analytics.Event{
		TenantID: org,
		Type:     analytics.EventSnapshotStored,
		Metadata: map[string]any{"version": snap.Version, "status": snap.Status},
	})
	return &SnapshotResult{OK: true, Version: snap.Version, Status: snap.Status, RunID: out.ID}, nil
}

//
// Site-wide toggle
//

// SetSiteStatus drives every page and the organization's active flag to
// match action.  When the page write lands but the organization write
// fails, the result is returned with a PartialFailure error so the caller
// can see that pages and organization now disagree.
func (c *Coordinator) SetSiteStatus(ctx context.Context, org site.OrgID, action site.SiteAction) (*SiteStatusResult, error) {
	if org.Empty() {
		return nil, c.reject(opSiteStatus, "org id is required")
	}
	action, err := site.ParseSiteAction(string(action))
	if err != nil {
		return nil, c.reject(opSiteStatus, err.Error())
	}

	res := &SiteStatusResult{Status: action.SnapshotStatus()}
	out := saga.Run(ctx, opSiteStatus,
		saga.Step{Name: StepPagesStatus, Run: func(ctx context.Context) error {
			var err error
			res.PagesUpdated, err = c.Drafts.SetAllPagesStatus(ctx, org, action.PageStatus())
			return err
		}},
		saga.Step{Name: StepOrgActive, Run: func(ctx context.Context) error {
			return c.Drafts.SetOrganizationActive(ctx, org, action.OrgActive())
		}},
	)
	c.finish(ctx, org, opSiteStatus, 0, out)
	res.RunID = out.ID

	err = out.Err()
	switch {
	case err == nil:
		res.Message = fmt.Sprintf("Site %s. %d pages updated.", res.Status, res.PagesUpdated)
	case apperr.Is(err, apperr.KindPartialFailure):
		res.Message = fmt.Sprintf("%d pages updated, but the organization could not be marked %s.", res.PagesUpdated, res.Status)
		return res, err
	default:
		return nil, err
	}

	c.Events.Emit(ctx, analytics.Event{
		TenantID: org,
		Type:     analytics.EventSiteStatusChange,
		Metadata: map[string]any{"status": res.Status, "pages_updated": res.PagesUpdated},
	})
	return res, nil
}

//
// Helpers
//

// finish runs the post-saga bookkeeping: cache invalidation when anything
// committed, metrics, and the journal.
func (c *Coordinator) finish(ctx context.Context, org site.OrgID, op string, version int64, out *saga.Outcome) {
	if len(out.Committed()) > 0 {
		for _, inv := range c.Invalidators {
			inv.Invalidate(org)
		}
	}

	entry := journal.FromOutcome(org, op, version, out)
	metrics.PublishTotal.WithLabelValues(op, entry.Outcome).Inc()

	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if err := c.Journal.Record(jctx, entry); err != nil {
		c.Log.Warnw("journal write failed", "org", org, "op", op, "run", out.ID, "err", err)
	}

	if err := out.Err(); err != nil {
		c.Log.Errorw("publish run failed", "org", org, "op", op, "run", out.ID, "outcome", entry.Outcome, "err", err)
		return
	}
	c.Log.Infow("publish run committed", "org", org, "op", op, "run", out.ID, "version", version)
}

func (c *Coordinator) reject(op, msg string) error {
	metrics.PublishTotal.WithLabelValues(op, "rejected").Inc()
	return apperr.New(apperr.KindValidation, op, msg)
}

func findPage(pages []site.Page, slug string) (site.Page, bool) {
	for _, p := range pages {
		if site.SameSlug(p.Slug, slug) {
			return p, true
		}
	}
	return site.Page{}, false
}

func title(p site.Page) string {
	if strings.TrimSpace(p.Title) != "" {
		return p.Title
	}
	return p.Slug
}

// retryRead runs an idempotent read, retrying transport errors and 5xx
// answers up to opts.ReadRetries times.
func retryRead[T any](ctx context.Context, opts Options, fn func(context.Context) (T, error)) (T, error) {
	var out T
	eb := backoff.NewExponentialBackOff()
	if opts.RetryBackoff > 0 {
		eb.InitialInterval = opts.RetryBackoff
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(max(opts.ReadRetries, 0))), ctx)

	err := backoff.Retry(func() error {
		v, err := fn(ctx)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = v
		return nil
	}, policy)
	return out, err
}

func retryable(err error) bool {
	switch apperr.KindOf(err) {
	case apperr.KindTransport:
		return true
	case apperr.KindUpstream:
		var e *apperr.Error
		for cur := err; errors.As(cur, &e); cur = e.Err {
			if e.Status >= 500 {
				return true
			}
		}
	}
	return false
}
