// internal/api/router.go
//
// HTTP surface of the publish service.
//
// Context
// -------
// Every route answers the JSON envelope in response.go.  Failures carry
// the taxonomy kind, so the dashboard can tell a missing page from a
// timeout from a half-finished toggle.  PartialFailure answers 207 with
// both the committed data and the error.
//
// Middleware order, outermost first: request id, real IP, recoverer,
// access log, security headers, credential relay, request-info enrichment.
// The recoverer turns a panic in one handler into a structured 500 so the
// process keeps serving.
//
// Notes
// -----
// • /healthz and /metrics sit outside /api and skip the relay.
// • Oxford commas, two spaces after periods.
package api

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/ai"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/apperr"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/auth"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/domain"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/journal"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/middleware"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/publish"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/requestinfo"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/site"
)

//
// Dependencies
//

// Publisher runs the write paths.  *publish.Coordinator satisfies it.
type Publisher interface {
	PublishBySlug(ctx context.Context, org site.OrgID, slug string) (*publish.Result, error)
	PublishSnapshot(ctx context.Context, org site.OrgID, bundle site.Bundle, action site.SiteAction) (*publish.SnapshotResult, error)
	SetSiteStatus(ctx context.Context, org site.OrgID, action site.SiteAction) (*publish.SiteStatusResult, error)
}

// LiveSites serves the current snapshot.
type LiveSites interface {
	GetLiveSite(ctx context.Context, org site.OrgID) (*site.Snapshot, error)
}

// History reads the snapshot ledger.
type History interface {
	History(ctx context.Context, org site.OrgID, limit int) ([]site.Summary, error)
	Get(ctx context.Context, org site.OrgID, version int64) (site.Snapshot, error)
}

// Generator runs AI generate-all.
type Generator interface {
	GenerateAll(ctx context.Context, org site.OrgID) (*ai.Summary, error)
}

// Drafts writes design settings and site configuration.
type Drafts interface {
	UpdateDesignSettings(ctx context.Context, org site.OrgID, ds site.DesignSettings) (site.DesignSettings, error)
	UpdateSiteConfig(ctx context.Context, org site.OrgID, sc site.SiteConfig) (site.SiteConfig, error)
}

// Domains resolves visitor hosts.
type Domains interface {
	Lookup(ctx context.Context, host string) (domain.Match, error)
}

// Deps wires the router.  Journal may be nil.
type Deps struct {
	Publisher Publisher
	Live      LiveSites
	History   History
	AI        Generator
	Drafts    Drafts
	Domains   Domains
	Journal   journal.Recorder
}

// Options toggles outer middleware.
type Options struct {
	ForceHTTPS bool
}

type handler struct {
	Deps
	validate *validator.Validate
}

// NewRouter returns the service's handler tree.
func NewRouter(d Deps, opts Options) http.Handler {
	if d.Journal == nil {
		d.Journal = journal.Nop{}
	}
	h := &handler{Deps: d, validate: validator.New(validator.WithRequiredStructEnabled())}

	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, recoverer, accessLog, middleware.Security)
	if opts.ForceHTTPS {
		r.Use(middleware.ForceHTTPS)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		ok(w, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Relay, requestinfo.Enrich)

		r.Route("/orgs/{org}", func(r chi.Router) {
			r.Post("/publish", h.publishBySlug)
			r.Post("/snapshots", h.publishSnapshot)
			r.Post("/site-status", h.setSiteStatus)
			r.Get("/live-site", h.liveSite)
			r.Get("/history", h.history)
			r.Get("/history/{version}", h.historyVersion)
			r.Post("/generate", h.generateAll)
			r.Put("/design-settings", h.updateDesign)
			r.Put("/site-config", h.updateConfig)
			r.Get("/journal", h.journal)
		})
		r.Get("/domains/lookup", h.lookupDomain)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		fail(w, r, apperr.New(apperr.KindNotFound, "api", "no such route"), nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: &ErrorInfo{
			Kind: string(apperr.KindValidation), Message: "method not allowed",
		}})
	})
	return r
}

//
// Middleware
//

// recoverer converts a handler panic into an internal-error envelope.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			zap.S().Errorw("handler panic",
				"method", r.Method, "path", r.URL.Path,
				"request_id", chimw.GetReqID(r.Context()),
				"panic", rec, "stack", string(debug.Stack()))
			writeJSON(w, http.StatusInternalServerError, Response{Error: &ErrorInfo{
				Kind: string(apperr.KindInternal), Message: "internal error",
			}})
		}()
		next.ServeHTTP(w, r)
	})
}

// accessLog writes one line per request through zap.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.S().Infow("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"ms", time.Since(start).Milliseconds(),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}
