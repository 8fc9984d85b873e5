package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/apperr"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/site"
)

const maxBody = 4 << 20

//
// Request bodies
//

type publishRequest struct {
	Slug string `json:"slug" validate:"required"`
}

type snapshotRequest struct {
	Bundle site.Bundle `json:"bundle"`
	Action string      `json:"action" validate:"omitempty,oneof=publish unpublish"`
}

type siteStatusRequest struct {
	Action string `json:"action" validate:"required,oneof=publish unpublish"`
}

//
// Publish paths
//

func (h *handler) publishBySlug(w http.ResponseWriter, r *http.Request) {
	var in publishRequest
	if err := h.decode(r, "api.publish", &in); err != nil {
		fail(w, r, err, nil)
		return
	}
	res, err := h.Publisher.PublishBySlug(r.Context(), orgParam(r), strings.TrimSpace(in.Slug))
	if err != nil {
		fail(w, r, err, res)
		return
	}
	ok(w, res)
}

func (h *handler) publishSnapshot(w http.ResponseWriter, r *http.Request) {
	var in snapshotRequest
	if err := h.decode(r, "api.snapshot", &in); err != nil {
		fail(w, r, err, nil)
		return
	}
	action := site.ActionPublish
	if in.Action != "" {
		action = site.SiteAction(in.Action)
	}
	res, err := h.Publisher.PublishSnapshot(r.Context(), orgParam(r), in.Bundle, action)
	if err != nil {
		fail(w, r, err, res)
		return
	}
	ok(w, res)
}

func (h *handler) setSiteStatus(w http.ResponseWriter, r *http.Request) {
	var in siteStatusRequest
	if err := h.decode(r, "api.site_status", &in); err != nil {
		fail(w, r, err, nil)
		return
	}
	res, err := h.Publisher.SetSiteStatus(r.Context(), orgParam(r), site.SiteAction(in.Action))
	if err != nil {
		fail(w, r, err, res)
		return
	}
	ok(w, res)
}

//
// Read paths
//

func (h *handler) liveSite(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Live.GetLiveSite(r.Context(), orgParam(r))
	if err != nil {
		fail(w, r, err, nil)
		return
	}
	ok(w, snap)
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", "api.history")
	if err != nil {
		fail(w, r, err, nil)
		return
	}
	hist, err := h.History.History(r.Context(), orgParam(r), limit)
	if err != nil {
		fail(w, r, err, nil)
		return
	}
	ok(w, hist)
}

func (h *handler) historyVersion(w http.ResponseWriter, r *http.Request) {
	v, err := strconv.ParseInt(chi.URLParam(r, "version"), 10, 64)
	if err != nil {
		fail(w, r, apperr.New(apperr.KindValidation, "api.history_version", "version must be an integer"), nil)
		return
	}
	snap, err := h.History.Get(r.Context(), orgParam(r), v)
	if err != nil {
		fail(w, r, err, nil)
		return
	}
	ok(w, snap)
}

func (h *handler) journal(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", "api.journal")
	if err != nil {
		fail(w, r, err, nil)
		return
	}
	org := orgParam(r)
	if org.Empty() {
		fail(w, r, apperr.New(apperr.KindValidation, "api.journal", "org id is required"), nil)
		return
	}
	entries, err := h.Journal.Recent(r.Context(), org, limit)
	if err != nil {
		fail(w, r, apperr.Wrap(apperr.KindInternal, "api.journal", err), nil)
		return
	}
	ok(w, entries)
}

//
// AI, drafts, and domains
//

func (h *handler) generateAll(w http.ResponseWriter, r *http.Request) {
	sum, err := h.AI.GenerateAll(r.Context(), orgParam(r))
	if err != nil {
		fail(w, r, err, nil)
		return
	}
	ok(w, sum)
}

func (h *handler) updateDesign(w http.ResponseWriter, r *http.Request) {
	var in site.DesignSettings
	if err := h.decode(r, "api.design_settings", &in); err != nil {
		fail(w, r, err, nil)
		return
	}
	out, err := h.Drafts.UpdateDesignSettings(r.Context(), orgParam(r), in)
	if err != nil {
		fail(w, r, err, nil)
		return
	}
	ok(w, out)
}

func (h *handler) updateConfig(w http.ResponseWriter, r *http.Request) {
	var in site.SiteConfig
	if err := h.decode(r, "api.site_config", &in); err != nil {
		fail(w, r, err, nil)
		return
	}
	out, err := h.Drafts.UpdateSiteConfig(r.Context(), orgParam(r), in)
	if err != nil {
		fail(w, r, err, nil)
		return
	}
	ok(w, out)
}

func (h *handler) lookupDomain(w http.ResponseWriter, r *http.Request) {
	m, err := h.Domains.Lookup(r.Context(), r.URL.Query().Get("host"))
	if err != nil {
		fail(w, r, err, nil)
		return
	}
	ok(w, m)
}

//
// Helpers
//

func orgParam(r *http.Request) site.OrgID {
	return site.OrgID(strings.TrimSpace(chi.URLParam(r, "org")))
}

// decode reads a JSON body into dst and validates its tags.
func (h *handler) decode(r *http.Request, op string, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.KindValidation, op, "request body is required")
		}
		return apperr.New(apperr.KindValidation, op, fmt.Sprintf("invalid JSON body: %v", err))
	}
	if err := h.validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			f := ve[0]
			return apperr.New(apperr.KindValidation, op, fmt.Sprintf("%s failed %q", strings.ToLower(f.Field()), f.Tag()))
		}
		return apperr.New(apperr.KindValidation, op, err.Error())
	}
	return nil
}

func intQuery(r *http.Request, key, op string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.New(apperr.KindValidation, op, key+" must be a non-negative integer")
	}
	return n, nil
}
