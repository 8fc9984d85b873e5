package site

import (
	"fmt"
	"strings"
)

// PageStatus is the page state machine: Draft ⇄ Published.  New pages
// start as Draft.
type PageStatus string

const (
	PageStatusDraft     PageStatus = "draft"
	PageStatusPublished PageStatus = "published"
)

var pageTransitions = map[PageStatus][]PageStatus{
	PageStatusDraft:     {PageStatusPublished},
	PageStatusPublished: {PageStatusDraft},
}

// CanTransitionTo reports whether s → target is allowed.
func (s PageStatus) CanTransitionTo(target PageStatus) bool {
	for _, allowed := range pageTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// SiteAction is the site-wide toggle requested by the dashboard.
type SiteAction string

const (
	ActionPublish   SiteAction = "publish"
	ActionUnpublish SiteAction = "unpublish"
)

// ParseSiteAction accepts "publish" or "unpublish", case-insensitively.
func ParseSiteAction(s string) (SiteAction, error) {
	switch a := SiteAction(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionPublish, ActionUnpublish:
		return a, nil
	default:
		return "", fmt.Errorf("unknown site action %q", s)
	}
}

// PageStatus returns the page status the action drives every page to.
func (a SiteAction) PageStatus() PageStatus {
	if a == ActionPublish {
		return PageStatusPublished
	}
	return PageStatusDraft
}

// SnapshotStatus returns the snapshot marker status for the action.
func (a SiteAction) SnapshotStatus() SnapshotStatus {
	if a == ActionPublish {
		return SnapshotPublished
	}
	return SnapshotUnpublished
}

// OrgActive returns the organization active flag for the action.
func (a SiteAction) OrgActive() bool { return a == ActionPublish }
