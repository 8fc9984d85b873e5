// internal/ledger/ledger.go
//
// History Ledger: the append-only record of live-site snapshots.
//
// Context
// -------
// Append is the commit point of every publish.  Nothing here ever updates
// or deletes a snapshot; a newer version supersedes an older one.  Reads
// sort by version on our side because the backend's list order is not
// part of its contract, and under last-write-wins two processes may have
// appended out of order.
//
// Notes
// -----
// • ErrNotPublished is an outcome, not an apperr kind.  An organization
//   that never published is a normal state.
// • Oxford commas, two spaces after periods.
package ledger

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/apperr"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/gateway"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/site"
)

// ErrNotPublished reports that an organization has no snapshot.
var ErrNotPublished = errors.New("not published")

// Ledger reads and appends snapshots through the gateway.
type Ledger struct {
	gw gateway.Caller
}

// New returns a Ledger backed by gw.
func New(gw gateway.Caller) *Ledger { return &Ledger{gw: gw} }

// Append persists snap and returns the stored record.
func (l *Ledger) Append(ctx context.Context, snap site.Snapshot) (site.Snapshot, error) {
	const op = "ledger.append"
	if snap.OrgID.Empty() {
		return site.Snapshot{}, apperr.New(apperr.KindValidation, op, "org id is required")
	}
	raw, err := l.gw.Do(ctx, gateway.Request{
		Group:  gateway.GroupLive,
		Method: http.MethodPost,
		Path:   "live_site",
		Body:   snap,
	})
	if err != nil {
		return site.Snapshot{}, &apperr.Error{Kind: apperr.KindOf(err), Op: op, Err: err}
	}
	if len(raw) == 0 || string(raw) == "null" {
		return snap, nil
	}
	stored, err := gateway.Decode[site.Snapshot](op, raw)
	if err != nil {
		return site.Snapshot{}, err
	}
	return stored, nil
}

// list returns every snapshot of org, newest first.
func (l *Ledger) list(ctx context.Context, op string, org site.OrgID) ([]site.Snapshot, error) {
	if org.Empty() {
		return nil, apperr.New(apperr.KindValidation, op, "org id is required")
	}
	snaps, err := gateway.Fetch[[]site.Snapshot](ctx, l.gw, gateway.Request{
		Group: gateway.GroupLive,
		Path:  "live_site",
		Query: url.Values{"org_id": {org.String()}},
	})
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.KindOf(err), Op: op, Err: err}
	}
	sort.SliceStable(snaps, func(i, j int) bool { return snaps[i].Version > snaps[j].Version })
	return snaps, nil
}

// Latest returns the highest-version snapshot of org, or ErrNotPublished.
func (l *Ledger) Latest(ctx context.Context, org site.OrgID) (site.Snapshot, error) {
	snaps, err := l.list(ctx, "ledger.latest", org)
	if err != nil {
		return site.Snapshot{}, err
	}
	if len(snaps) == 0 {
		return site.Snapshot{}, ErrNotPublished
	}
	return snaps[0], nil
}

// History returns up to limit summaries, newest first.  limit <= 0 means
// all of them.
func (l *Ledger) History(ctx context.Context, org site.OrgID, limit int) ([]site.Summary, error) {
	snaps, err := l.list(ctx, "ledger.history", org)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[:limit]
	}
	out := make([]site.Summary, len(snaps))
	for i, s := range snaps {
		out[i] = s.Summarize()
	}
	return out, nil
}

// Get returns one historical snapshot.  An unknown version is NotFound.
func (l *Ledger) Get(ctx context.Context, org site.OrgID, version int64) (site.Snapshot, error) {
	const op = "ledger.get"
	if org.Empty() || version <= 0 {
		return site.Snapshot{}, apperr.New(apperr.KindValidation, op, "org id and a positive version are required")
	}
	snap, err := gateway.Fetch[site.Snapshot](ctx, l.gw, gateway.Request{
		Group: gateway.GroupLive,
		Path:  "live_site/" + strconv.FormatInt(version, 10),
		Query: url.Values{"org_id": {org.String()}},
	})
	if err != nil {
		return site.Snapshot{}, &apperr.Error{Kind: apperr.KindOf(err), Op: op, Err: err}
	}
	return snap, nil
}
