// internal/journal/journal.go
//
// Publish journal: one MySQL row per coordinator run.
//
// Context
// -------
// The backend gives no transactions, and partial failures are not rolled
// back.  Whether to retry a half-finished publish or site toggle is an
// operator decision, and the operator needs to see what each run actually
// committed.  Every saga outcome is written here with its per-step results
// as a JSON column.
//
// Recording is best-effort.  The coordinator logs a failed insert and
// carries on.  With no DSN configured the Nop recorder is used.
//
// Notes
// -----
// • Schema lives in Schema; EnsureSchema is idempotent.
// • Oxford commas, two spaces after periods.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/apperr"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/saga"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/site"
)

// Schema creates the journal table.
const Schema = `CREATE TABLE IF NOT EXISTS publish_journal (
	run_id      CHAR(36)     NOT NULL PRIMARY KEY,
	org_id      VARCHAR(64)  NOT NULL,
	operation   VARCHAR(32)  NOT NULL,
	outcome     VARCHAR(32)  NOT NULL,
	version     BIGINT       NOT NULL DEFAULT 0,
	error_kind  VARCHAR(32)  NOT NULL DEFAULT '',
	steps       JSON         NOT NULL,
	started_at  DATETIME(3)  NOT NULL,
	finished_at DATETIME(3)  NOT NULL,
	KEY idx_org_started (org_id, started_at)
)`

const insertSQL = `INSERT INTO publish_journal (run_id, org_id, operation, outcome, version, error_kind, steps, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const recentSQL = `SELECT run_id, org_id, operation, outcome, version, error_kind, steps, started_at, finished_at FROM publish_journal WHERE org_id = ? ORDER BY started_at DESC LIMIT ?`

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial_failure"
	OutcomeFailed  = "failed"
)

// Entry is one journal row.
type Entry struct {
	RunID      string          `db:"run_id"      json:"run_id"`
	OrgID      string          `db:"org_id"      json:"org_id"`
	Operation  string          `db:"operation"   json:"operation"`
	Outcome    string          `db:"outcome"     json:"outcome"`
	Version    int64           `db:"version"     json:"version,omitempty"`
	ErrorKind  string          `db:"error_kind"  json:"error_kind,omitempty"`
	Steps      json.RawMessage `db:"steps"       json:"steps"`
	StartedAt  time.Time       `db:"started_at"  json:"started_at"`
	FinishedAt time.Time       `db:"finished_at" json:"finished_at"`
}

// FromOutcome converts a saga run into an Entry.
func FromOutcome(org site.OrgID, operation string, version int64, out *saga.Outcome) Entry {
	e := Entry{
		RunID:      out.ID,
		OrgID:      org.String(),
		Operation:  operation,
		Outcome:    OutcomeSuccess,
		Version:    version,
		StartedAt:  out.StartedAt,
		FinishedAt: time.Now().UTC(),
	}
	if err := out.Err(); err != nil {
		e.ErrorKind = string(apperr.KindOf(err))
		e.Outcome = OutcomeFailed
		if apperr.KindOf(err) == apperr.KindPartialFailure {
			e.Outcome = OutcomePartial
		}
	}
	type step struct {
		Name   string      `json:"name"`
		Status saga.Status `json:"status"`
		Error  string      `json:"error,omitempty"`
		Millis int64       `json:"ms"`
	}
	steps := make([]step, len(out.Steps))
	for i, s := range out.Steps {
		steps[i] = step{Name: s.Name, Status: s.Status, Millis: s.Duration.Milliseconds()}
		if s.Err != nil {
			steps[i].Error = s.Err.Error()
		}
	}
	e.Steps, _ = json.Marshal(steps)
	return e
}

// Recorder persists entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, org site.OrgID, limit int) ([]Entry, error)
}

// Journal is the MySQL-backed Recorder.
type Journal struct {
	db *sqlx.DB
}

// New wraps db.
func New(db *sqlx.DB) *Journal { return &Journal{db: db} }

// EnsureSchema creates the table when missing.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("journal: ensure schema: %w", err)
	}
	return nil
}

// Record inserts e.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	steps := e.Steps
	if len(steps) == 0 {
		steps = json.RawMessage("[]")
	}
	_, err := j.db.ExecContext(ctx, insertSQL,
		e.RunID, e.OrgID, e.Operation, e.Outcome, e.Version, e.ErrorKind,
		[]byte(steps), e.StartedAt, e.FinishedAt)
	if err != nil {
		return fmt.Errorf("journal: insert %s: %w", e.RunID, err)
	}
	return nil
}

// Recent returns org's latest runs, newest first.
func (j *Journal) Recent(ctx context.Context, org site.OrgID, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	out := []Entry{}
	if err := j.db.SelectContext(ctx, &out, recentSQL, org.String(), limit); err != nil {
		return nil, fmt.Errorf("journal: recent %s: %w", org, err)
	}
	return out, nil
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

func (Nop) Recent(context.Context, site.OrgID, int) ([]Entry, error) { return []Entry{}, nil }
