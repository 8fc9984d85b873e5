package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/apperr"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/ledger"
)

// KindNotPublished is the error kind for an organization with nothing live.
const KindNotPublished = "not_published"

// Response is the envelope of every JSON answer.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo carries the taxonomy kind, a human-readable message, and the
// step that failed when there is one.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Step    string `json:"step,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// fail renders err.  data is attached for partial failures so the caller
// sees what committed.
func fail(w http.ResponseWriter, r *http.Request, err error, data any) {
	status, info := describe(err)

	log := zap.S().With("method", r.Method, "path", r.URL.Path, "kind", info.Kind)
	switch {
	case status >= 500 && status != http.StatusMultiStatus:
		log.Errorw("request failed", "err", err)
	default:
		log.Debugw("request rejected", "err", err)
	}

	body := Response{Success: false, Error: info}
	if status == http.StatusMultiStatus {
		body.Data = data
	}
	writeJSON(w, status, body)
}

func describe(err error) (int, *ErrorInfo) {
	if errors.Is(err, ledger.ErrNotPublished) {
		return http.StatusNotFound, &ErrorInfo{Kind: KindNotPublished, Message: "site is not published"}
	}
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError, &ErrorInfo{
			Kind:    string(apperr.KindInternal),
			Message: "internal error",
		}
	}
	kind := apperr.KindOf(err)
	info := &ErrorInfo{Kind: string(kind), Message: err.Error(), Step: apperr.OpOf(err)}
	return apperr.HTTPStatus(kind), info
}
