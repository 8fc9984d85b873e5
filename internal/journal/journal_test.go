// internal/journal/journal_test.go
//
// Unit-tests for the publish journal using sqlmock.
//
// Run: go test ./internal/journal -v

package journal

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/apperr"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/saga"
)

func mockJournal(t *testing.T) (*Journal, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "mysql")), mock
}

func TestRecord(t *testing.T) {
	j, mock := mockJournal(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
		WithArgs("run-1", "42", "publish_by_slug", OutcomeSuccess, int64(1000), "",
			[]byte(`[]`), at, at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := j.Record(context.Background(), Entry{
		RunID: "run-1", OrgID: "42", Operation: "publish_by_slug", Outcome: OutcomeSuccess,
		Version: 1000, StartedAt: at, FinishedAt: at,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestRecord_PropagatesDBError(t *testing.T) {
	j, mock := mockJournal(t)
	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).WillReturnError(errors.New("deadlock"))

	if err := j.Record(context.Background(), Entry{RunID: "r"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRecent(t *testing.T) {
	j, mock := mockJournal(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cols := []string{"run_id", "org_id", "operation", "outcome", "version", "error_kind", "steps", "started_at", "finished_at"}

	mock.ExpectQuery(regexp.QuoteMeta(recentSQL)).
		WithArgs("42", 50).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("run-2", "42", "set_site_status", OutcomePartial, 0, "partial_failure", []byte(`[{"name":"pages_status"}]`), at, at).
			AddRow("run-1", "42", "publish_by_slug", OutcomeSuccess, 1000, "", []byte(`[]`), at, at))

	got, err := j.Recent(context.Background(), "42", 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].Outcome != OutcomePartial || got[1].Version != 1000 {
		t.Fatalf("unexpected result: %#v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestEnsureSchema(t *testing.T) {
	j, mock := mockJournal(t)
	mock.ExpectExec(regexp.QuoteMeta(Schema)).WillReturnResult(sqlmock.NewResult(0, 0))
	if err := j.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
}

func TestFromOutcome_Partial(t *testing.T) {
	out := saga.Run(context.Background(), "set_site_status",
		saga.Step{Name: "pages_status", Run: func(context.Context) error { return nil }},
		saga.Step{Name: "org_active", Run: func(context.Context) error {
			return apperr.New(apperr.KindUpstream, "draft.set_org_active", "boom")
		}},
	)
	e := FromOutcome("42", "set_site_status", 0, out)
	if e.Outcome != OutcomePartial || e.ErrorKind != string(apperr.KindPartialFailure) {
		t.Fatalf("entry = %+v", e)
	}
	if e.RunID != out.ID {
		t.Fatalf("run id = %q", e.RunID)
	}
	var steps []map[string]any
	if err := json.Unmarshal(e.Steps, &steps); err != nil || len(steps) != 2 {
		t.Fatalf("steps = %s", e.Steps)
	}
	if steps[1]["status"] != "failed" || steps[1]["error"] == "" {
		t.Fatalf("step = %v", steps[1])
	}
}
