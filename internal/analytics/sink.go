// internal/analytics/sink.go
//
// Fire-and-forget analytics events.
//
// Context
// -------
// Publish and generation flows record what happened ("site_published",
// "ai_generate_all", …) in the backend's event log.  Delivery must never
// slow down or fail the operation that triggered it, so Emit only
// enqueues.  A single worker drains the bounded queue and POSTs each event
// through the gateway.  A full queue or a failed delivery drops the event,
// bumps a counter, and logs.
//
// Metadata from the request context (user agent, geo, request id) is
// merged into every event automatically.
//
// Notes
// -----
// • Emit on a nil *Sink or after Close is a no-op.
// • Oxford commas, two spaces after periods.
package analytics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/auth"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/gateway"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/metrics"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/requestinfo"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/site"
)

// Event types emitted by this service.
const (
	EventSitePublished    = "site_published"
	EventSnapshotStored   = "snapshot_stored"
	EventSiteStatusChange = "site_status_changed"
	EventAIGenerateAll    = "ai_generate_all"
)

const deliverTimeout = 5 * time.Second

// Event is the payload accepted by the backend's event log.
type Event struct {
	TenantID  site.OrgID     `json:"tenant_id"`
	Type      string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	token string // relayed credential of the triggering request
}

// Emitter is what producers depend on.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

// Sink is an Emitter backed by a bounded queue and one worker.
type Sink struct {
	gw  gateway.Caller
	log *zap.SugaredLogger
	q   chan Event

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// New starts a Sink with room for size queued events.
func New(gw gateway.Caller, size int, log *zap.SugaredLogger) *Sink {
	if size <= 0 {
		size = 1
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Sink{gw: gw, log: log, q: make(chan Event, size), done: make(chan struct{})}
	go s.run()
	return s
}

// Emit enqueues ev without blocking.
func (s *Sink) Emit(ctx context.Context, ev Event) {
	if s == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if info := requestinfo.FromContext(ctx); info != nil {
		md := info.Metadata()
		for k, v := range ev.Metadata {
			md[k] = v
		}
		ev.Metadata = md
	}
	ev.token, _ = auth.Token(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.q <- ev:
	default:
		metrics.AnalyticsDroppedTotal.Inc()
		s.log.Warnw("analytics queue full, event dropped", "tenant", ev.TenantID, "type", ev.Type)
	}
}

// Close stops accepting events and waits for the queue to drain or ctx to
// expire.
func (s *Sink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.q)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sink) run() {
	defer close(s.done)
	for ev := range s.q {
		s.deliver(ev)
	}
}

func (s *Sink) deliver(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	_, err := s.gw.Do(ctx, gateway.Request{
		Group:  gateway.GroupAnalytics,
		Method: http.MethodPost,
		Path:   "events",
		Body:   ev,
		Token:  ev.token,
	})
	if err != nil {
		metrics.AnalyticsDroppedTotal.Inc()
		s.log.Warnw("analytics delivery failed", "tenant", ev.TenantID, "type", ev.Type, "err", err)
	}
}

// Discard drops every event.  Used when analytics is disabled.
type Discard struct{}

func (Discard) Emit(context.Context, Event) {}
