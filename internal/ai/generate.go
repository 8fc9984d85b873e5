// Package ai orchestrates the backend's two-step content generation.
//
// GenerateAll calls plan, then copy.  A step that answers success=false
// stops the run with a tagged error (PlanFailed or CopyFailed), so copy is
// never attempted on top of a failed plan.  Transport and upstream errors
// pass through with their own kinds.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/analytics"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/apperr"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/gateway"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/site"
)

const op = "ai.generate_all"

// Plan is the answer of the plan step.
type Plan struct {
	Success      bool            `json:"success"`
	PagesCreated int             `json:"pages_created"`
	Plan         json.RawMessage `json:"plan,omitempty"`
	Message      string          `json:"message,omitempty"`
}

// Copy is the answer of the copy step.
type Copy struct {
	Success        bool   `json:"success"`
	TotalProcessed int    `json:"total_processed"`
	TotalUpdated   int    `json:"total_updated"`
	Message        string `json:"message,omitempty"`
}

// Summary combines both steps.
type Summary struct {
	Plan        Plan   `json:"plan"`
	Copy        Copy   `json:"copy"`
	SuccessRate string `json:"success_rate"`
	Message     string `json:"message"`
}

// Generator runs generate-all against the gateway.
type Generator struct {
	gw     gateway.Caller
	events analytics.Emitter
}

// New returns a Generator.  events may be nil.
func New(gw gateway.Caller, events analytics.Emitter) *Generator {
	if events == nil {
		events = analytics.Discard{}
	}
	return &Generator{gw: gw, events: events}
}

// GenerateAll runs plan then copy for org.
func (g *Generator) GenerateAll(ctx context.Context, org site.OrgID) (*Summary, error) {
	if org.Empty() {
		return nil, apperr.New(apperr.KindValidation, op, "org id is required")
	}
	body := map[string]any{"org_id": org}

	plan, err := gateway.Fetch[Plan](ctx, g.gw, gateway.Request{
		Group: gateway.GroupAI, Method: "POST", Path: "generate_plan", Body: body,
	})
	if err != nil {
		return nil, err
	}
	if !plan.Success {
		return nil, apperr.New(apperr.KindPlanFailed, op, failMessage("plan generation failed", plan.Message))
	}

	cp, err := gateway.Fetch[Copy](ctx, g.gw, gateway.Request{
		Group: gateway.GroupAI, Method: "POST", Path: "generate_copy", Body: body,
	})
	if err != nil {
		return nil, err
	}
	if !cp.Success {
		return nil, apperr.New(apperr.KindCopyFailed, op, failMessage("copy generation failed", cp.Message))
	}

	s := &Summary{Plan: plan, Copy: cp, SuccessRate: SuccessRate(cp.TotalUpdated, cp.TotalProcessed)}
	s.Message = fmt.Sprintf("Created %d pages and updated %d of %d sections (%s).",
		plan.PagesCreated, cp.TotalUpdated, cp.TotalProcessed, s.SuccessRate)

	g.events.Emit(ctx, analytics.Event{
		TenantID: org,
		Type:     analytics.EventAIGenerateAll,
		Metadata: map[string]any{
			"pages_created":   plan.PagesCreated,
			"total_processed": cp.TotalProcessed,
			"total_updated":   cp.TotalUpdated,
		},
	})
	return s, nil
}

// SuccessRate renders round(updated/processed*100) as a percentage.
// Nothing processed reads as "0%".
func SuccessRate(updated, processed int) string {
	if processed <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", int(math.Round(float64(updated)/float64(processed)*100)))
}

func failMessage(prefix, detail string) string {
	if detail == "" {
		return prefix
	}
	return prefix + ": " + detail
}
