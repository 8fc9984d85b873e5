// internal/saga/saga.go
//
// Ordered multi-step writes with explicit partial-failure reporting.
//
// Context
// -------
// The backend offers no transactions, so a logical operation made of
// several writes (persist a snapshot then flip a page, or flip every page
// then the organization's active flag) is run as a saga: an ordered list of
// independently committing steps.  Each step yields a StepResult.  After
// the first failure the remaining steps are skipped, and nothing already
// committed is undone.
//
// Outcome.Err() classifies the run:
//
//   - every step ok or skipped          → nil
//   - the first write failed            → that step's error, unchanged
//   - a later write failed after an
//     earlier write committed            → apperr.KindPartialFailure
//
// BestEffort steps run, record their result, and never escalate or stop
// the saga.
//
// Notes
// -----
// • A step signals "nothing to do" by returning ErrSkip.
// • Oxford commas, two spaces after periods.
package saga

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/apperr"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/metrics"
)

// ErrSkip is returned by a step that had nothing to write.
var ErrSkip = errors.New("saga: step skipped")

// Status of one step.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Step is one write.
type Step struct {
	Name       string
	BestEffort bool
	Run        func(ctx context.Context) error
}

// StepResult records what a step did.
type StepResult struct {
	Name       string        `json:"name"`
	Status     Status        `json:"status"`
	BestEffort bool          `json:"best_effort,omitempty"`
	Err        error         `json:"-"`
	Duration   time.Duration `json:"duration"`
}

// Outcome is the record of one saga run.
type Outcome struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	StartedAt time.Time    `json:"started_at"`
	Steps     []StepResult `json:"steps"`
}

// Run executes steps in order under a fresh run id.
func Run(ctx context.Context, name string, steps ...Step) *Outcome {
	out := &Outcome{
		ID:        uuid.NewString(),
		Name:      name,
		StartedAt: time.Now().UTC(),
		Steps:     make([]StepResult, 0, len(steps)),
	}
	log := zap.S().With("saga", name, "run", out.ID)

	failed := false
	for _, st := range steps {
		res := StepResult{Name: st.Name, BestEffort: st.BestEffort}
		if failed {
			res.Status = StatusSkipped
			out.Steps = append(out.Steps, res)
			continue
		}

		start := time.Now()
		err := st.Run(ctx)
		res.Duration = time.Since(start)
		metrics.PublishStepDuration.WithLabelValues(st.Name).Observe(res.Duration.Seconds())

		switch {
		case err == nil:
			res.Status = StatusOK
		case errors.Is(err, ErrSkip):
			res.Status = StatusSkipped
		default:
			res.Status = StatusFailed
			res.Err = err
			if st.BestEffort {
				log.Warnw("best-effort step failed", "step", st.Name, "err", err)
			} else {
				log.Errorw("step failed", "step", st.Name, "err", err)
				failed = true
			}
		}
		out.Steps = append(out.Steps, res)
	}
	return out
}

// Failed returns the first failed non-best-effort step, or nil.
func (o *Outcome) Failed() *StepResult {
	for i := range o.Steps {
		if o.Steps[i].Status == StatusFailed && !o.Steps[i].BestEffort {
			return &o.Steps[i]
		}
	}
	return nil
}

// Committed lists the writes that took effect.
func (o *Outcome) Committed() []string {
	var out []string
	for _, s := range o.Steps {
		if s.Status == StatusOK && !s.BestEffort {
			out = append(out, s.Name)
		}
	}
	return out
}

// Err classifies the run.  See the package comment.
func (o *Outcome) Err() error {
	f := o.Failed()
	if f == nil {
		return nil
	}
	done := o.Committed()
	if len(done) == 0 {
		return f.Err
	}
	return &apperr.Error{
		Kind:    apperr.KindPartialFailure,
		Op:      f.Name,
		Message: fmt.Sprintf("%s committed but %s failed: %v", strings.Join(done, ", "), f.Name, f.Err),
		Err:     f.Err,
	}
}

// Step returns the named result, or nil.
func (o *Outcome) Step(name string) *StepResult {
	for i := range o.Steps {
		if o.Steps[i].Name == name {
			return &o.Steps[i]
		}
	}
	return nil
}
