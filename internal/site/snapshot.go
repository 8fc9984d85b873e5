// internal/site/snapshot.go
//
// Live Site Snapshot: the immutable unit of publication.
//
// Context
// -------
// A Snapshot wraps a Bundle (published pages, design settings, site
// configuration, capture time, and the page that triggered the publish)
// with a version number.  Snapshots are never mutated after persistence;
// a newer version for the same tenant supersedes them.  The current live
// site is the highest version.
//
// The backend stores the bundle in a JSON column and sometimes returns it
// double-encoded as a string, so Bundle accepts both forms.
package site

import (
	"bytes"
	"encoding/json"
	"time"
)

// SnapshotStatus distinguishes a regular publish from an unpublish marker.
type SnapshotStatus string

const (
	SnapshotPublished   SnapshotStatus = "published"
	SnapshotUnpublished SnapshotStatus = "unpublished"
)

// Bundle is the serialized site state captured at publish time.
type Bundle struct {
	Pages       []Page         `json:"pages"`
	Design      DesignSettings `json:"design_settings"`
	Config      SiteConfig     `json:"site_config"`
	PublishedAt time.Time      `json:"published_at"`
	TriggerPage *Page          `json:"trigger_page,omitempty"`
}

type bundleAlias Bundle

// UnmarshalJSON accepts an object or a string holding one.
func (b *Bundle) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return err
		}
		data = []byte(inner)
	}
	var a bundleAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*b = Bundle(a)
	return nil
}

// Snapshot is one persisted version of a tenant's live site.
type Snapshot struct {
	ID          int64          `json:"id,omitempty"`
	OrgID       OrgID          `json:"org_id"`
	Version     int64          `json:"version"`
	Status      SnapshotStatus `json:"status"`
	PublishedAt time.Time      `json:"published_at"`
	Bundle      Bundle         `json:"bundle"`
}

// Live reports whether visitors should be served this snapshot.  An empty
// status predates unpublish markers and counts as published.
func (s Snapshot) Live() bool {
	return s.Status == "" || s.Status == SnapshotPublished
}

// Summary is the ledger view of a snapshot, used for audit and rollback
// browsing.
type Summary struct {
	Version     int64          `json:"version"`
	Status      SnapshotStatus `json:"status"`
	PublishedAt time.Time      `json:"published_at"`
	PageCount   int            `json:"page_count"`
	TriggerSlug string         `json:"trigger_slug,omitempty"`
}

// Summarize reduces s to its ledger summary.
func (s Snapshot) Summarize() Summary {
	sum := Summary{
		Version:     s.Version,
		Status:      s.Status,
		PublishedAt: s.PublishedAt,
		PageCount:   len(s.Bundle.Pages),
	}
	if s.Bundle.TriggerPage != nil {
		sum.TriggerSlug = s.Bundle.TriggerPage.Slug
	}
	return sum
}
